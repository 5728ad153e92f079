package revolut

import "time"

type OrderState string

const (
	OrderPending    OrderState = "pending"
	OrderProcessing OrderState = "processing"
	OrderAuthorised OrderState = "authorised"
	OrderCompleted  OrderState = "completed"
	OrderCancelled  OrderState = "cancelled"
	OrderFailed     OrderState = "failed"
)

type PaymentState string

const (
	PaymentPending                 PaymentState = "pending"
	PaymentAuthenticationChallenge PaymentState = "authentication_challenge"
	PaymentAuthenticationVerified  PaymentState = "authentication_verified"
	PaymentAuthorisationStarted    PaymentState = "authorisation_started"
	PaymentAuthorisationPassed     PaymentState = "authorisation_passed"
	PaymentAuthorised              PaymentState = "authorised"
	PaymentCaptureStarted          PaymentState = "capture_started"
	PaymentCaptured                PaymentState = "captured"
	PaymentRefundValidated         PaymentState = "refund_validated"
	PaymentRefundStarted           PaymentState = "refund_started"
	PaymentCancellationStarted     PaymentState = "cancellation_started"
	PaymentDeclining               PaymentState = "declining"
	PaymentCompleting              PaymentState = "completing"
	PaymentCancelling              PaymentState = "cancelling"
	PaymentFailing                 PaymentState = "failing"
	PaymentCompleted               PaymentState = "completed"
	PaymentDeclined                PaymentState = "declined"
	PaymentSoftDeclined            PaymentState = "soft_declined"
	PaymentCancelled               PaymentState = "cancelled"
	PaymentFailed                  PaymentState = "failed"
)

type PaymentMethodType string

const (
	MethodApplePay          PaymentMethodType = "apple_pay"
	MethodCard              PaymentMethodType = "card"
	MethodGooglePay         PaymentMethodType = "google_pay"
	MethodRevolutPayCard    PaymentMethodType = "revolut_pay_card"
	MethodRevolutPayAccount PaymentMethodType = "revolut_pay_account"
)

type RiskLevel string

const (
	RiskHigh RiskLevel = "high"
	RiskLow  RiskLevel = "low"
)

type WebhookEvent string

const (
	EventOrderAuthorised WebhookEvent = "ORDER_AUTHORISED"
	EventOrderCompleted  WebhookEvent = "ORDER_COMPLETED"
	EventOrderCancelled  WebhookEvent = "ORDER_CANCELLED"
)

type Webhook struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Events        []WebhookEvent `json:"events"`
	SigningSecret string         `json:"signing_secret,omitempty"`
}

type createWebhookRequest struct {
	URL    string         `json:"url"`
	Events []WebhookEvent `json:"events"`
}

type createOrderRequest struct {
	Amount      uint64     `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	LineItems   []LineItem `json:"line_items,omitempty"`
}

type LineItemType string

const (
	ItemPhysical LineItemType = "physical"
	ItemDigital  LineItemType = "digital"
	ItemService  LineItemType = "service"
)

type LineItem struct {
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	Type            LineItemType `json:"type,omitempty"`
	Quantity        Quantity     `json:"quantity"`
	UnitPriceAmount uint64       `json:"unit_price_amount"`
	TotalAmount     uint64       `json:"total_amount"`
	ExternalID      string       `json:"external_id,omitempty"`
	Discounts       []Discount   `json:"discounts,omitempty"`
	Taxes           []Tax        `json:"taxes,omitempty"`
	ImageURLs       []string     `json:"image_urls,omitempty"`
	URL             string       `json:"url,omitempty"`
}

// SimpleLineItem builds a line item with the total derived from quantity
// and unit price. Discounts and taxes adjust the total afterwards.
func SimpleLineItem(name string, quantity, unitPriceAmount uint64) LineItem {
	return LineItem{
		Name:            name,
		Quantity:        Quantity{Value: quantity},
		UnitPriceAmount: unitPriceAmount,
		TotalAmount:     quantity * unitPriceAmount,
	}
}

// WithDiscounts sets discounts and subtracts them from the total,
// flooring at zero.
func (l LineItem) WithDiscounts(discounts ...Discount) LineItem {
	var sum uint64
	for _, d := range discounts {
		sum += d.Amount
	}
	base := l.Quantity.Value * l.UnitPriceAmount
	if sum > base {
		sum = base
	}
	l.TotalAmount = base - sum
	l.Discounts = discounts
	return l
}

// WithTaxes sets taxes and adds them to the total.
func (l LineItem) WithTaxes(taxes ...Tax) LineItem {
	for _, t := range taxes {
		l.TotalAmount += t.Amount
	}
	l.Taxes = taxes
	return l
}

type Quantity struct {
	Value uint64 `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type Discount struct {
	Name   string `json:"name"`
	Amount uint64 `json:"amount"`
}

type Tax struct {
	Name   string `json:"name"`
	Amount uint64 `json:"amount"`
}

type Order struct {
	ID                string         `json:"id"`
	Token             string         `json:"token"`
	State             OrderState     `json:"state"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Description       string         `json:"description,omitempty"`
	Amount            uint64         `json:"amount"`
	Currency          string         `json:"currency"`
	OutstandingAmount uint64         `json:"outstanding_amount"`
	CheckoutURL       string         `json:"checkout_url,omitempty"`
	Payments          []OrderPayment `json:"payments,omitempty"`
	LineItems         []LineItem     `json:"line_items,omitempty"`
}

type OrderPayment struct {
	ID              string          `json:"id"`
	State           PaymentState    `json:"state"`
	DeclineReason   string          `json:"decline_reason,omitempty"`
	BankMessage     string          `json:"bank_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Token           string          `json:"token,omitempty"`
	Amount          uint64          `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	SettledAmount   *uint64         `json:"settled_amount,omitempty"`
	SettledCurrency string          `json:"settled_currency,omitempty"`
	PaymentMethod   *PaymentMethod  `json:"payment_method,omitempty"`
	BillingAddress  *BillingAddress `json:"billing_address,omitempty"`
	RiskLevel       RiskLevel       `json:"risk_level,omitempty"`
}

type PaymentMethod struct {
	ID              string            `json:"id,omitempty"`
	Type            PaymentMethodType `json:"type"`
	CardBrand       string            `json:"card_brand,omitempty"`
	Funding         string            `json:"funding,omitempty"`
	CardCountryCode string            `json:"card_country_code,omitempty"`
	CardBin         string            `json:"card_bin,omitempty"`
	CardLastFour    string            `json:"card_last_four,omitempty"`
	CardExpiry      string            `json:"card_expiry,omitempty"`
	CardholderName  string            `json:"cardholder_name,omitempty"`
}

type BillingAddress struct {
	StreetLine1 string `json:"street_line_1,omitempty"`
	StreetLine2 string `json:"street_line_2,omitempty"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"country_code"`
	Postcode    string `json:"postcode"`
}

// WebhookBody is the payload of an order event notification.
type WebhookBody struct {
	Event               WebhookEvent `json:"event"`
	OrderID             string       `json:"order_id"`
	MerchantOrderExtRef string       `json:"merchant_order_ext_ref,omitempty"`
}
