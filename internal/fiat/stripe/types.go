package stripe

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Webhook endpoint management.

type Webhook struct {
	ID            string   `json:"id"`
	Object        string   `json:"object"`
	URL           string   `json:"url"`
	EnabledEvents []string `json:"enabled_events"`
	Secret        string   `json:"secret,omitempty"`
	Status        string   `json:"status"`
	Livemode      bool     `json:"livemode"`
}

type WebhookList struct {
	Object  string    `json:"object"`
	Data    []Webhook `json:"data"`
	HasMore bool      `json:"has_more"`
}

// Checkout sessions.

type CreateCheckoutSessionRequest struct {
	LineItems         []CheckoutLineItem
	Mode              string // "payment", "subscription" or "setup"
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	Customer          string
	ClientReferenceID string
	Metadata          map[string]string
	ExpiresAt         int64
}

func (r CreateCheckoutSessionRequest) encode() url.Values {
	form := url.Values{}
	form.Set("mode", r.Mode)
	for i, item := range r.LineItems {
		item.encode(form, fmt.Sprintf("line_items[%d]", i))
	}
	if r.SuccessURL != "" {
		form.Set("success_url", r.SuccessURL)
	}
	if r.CancelURL != "" {
		form.Set("cancel_url", r.CancelURL)
	}
	if r.CustomerEmail != "" {
		form.Set("customer_email", r.CustomerEmail)
	}
	if r.Customer != "" {
		form.Set("customer", r.Customer)
	}
	if r.ClientReferenceID != "" {
		form.Set("client_reference_id", r.ClientReferenceID)
	}
	for k, v := range r.Metadata {
		form.Set("metadata["+k+"]", v)
	}
	if r.ExpiresAt != 0 {
		form.Set("expires_at", strconv.FormatInt(r.ExpiresAt, 10))
	}
	return form
}

type CheckoutLineItem struct {
	// Price references an existing Price object; PriceData builds one
	// inline. Exactly one should be set.
	Price     string
	PriceData *PriceData
	Quantity  uint64
}

func (i CheckoutLineItem) encode(form url.Values, prefix string) {
	form.Set(prefix+"[quantity]", strconv.FormatUint(i.Quantity, 10))
	if i.Price != "" {
		form.Set(prefix+"[price]", i.Price)
		return
	}
	if i.PriceData != nil {
		i.PriceData.encode(form, prefix+"[price_data]")
	}
}

type PriceData struct {
	Currency    string
	UnitAmount  uint64
	ProductData ProductData
	TaxBehavior string // "inclusive", "exclusive" or "unspecified"
}

func (p PriceData) encode(form url.Values, prefix string) {
	form.Set(prefix+"[currency]", p.Currency)
	form.Set(prefix+"[unit_amount]", strconv.FormatUint(p.UnitAmount, 10))
	p.ProductData.encode(form, prefix+"[product_data]")
	if p.TaxBehavior != "" {
		form.Set(prefix+"[tax_behavior]", p.TaxBehavior)
	}
}

type ProductData struct {
	Name        string
	Description string
	Images      []string
	Metadata    map[string]string
}

func (p ProductData) encode(form url.Values, prefix string) {
	form.Set(prefix+"[name]", p.Name)
	if p.Description != "" {
		form.Set(prefix+"[description]", p.Description)
	}
	for i, img := range p.Images {
		form.Set(fmt.Sprintf("%s[images][%d]", prefix, i), img)
	}
	for k, v := range p.Metadata {
		form.Set(prefix+"[metadata]["+k+"]", v)
	}
}

type CheckoutSession struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	AmountSubtotal    *int64            `json:"amount_subtotal,omitempty"`
	AmountTotal       *int64            `json:"amount_total,omitempty"`
	Currency          string            `json:"currency,omitempty"`
	Customer          string            `json:"customer,omitempty"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	PaymentStatus     string            `json:"payment_status"`
	Status            string            `json:"status,omitempty"`
	URL               string            `json:"url,omitempty"`
	ExpiresAt         int64             `json:"expires_at"`
	Livemode          bool              `json:"livemode"`
	ClientReferenceID string            `json:"client_reference_id,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	PaymentIntent     string            `json:"payment_intent,omitempty"`
	Subscription      string            `json:"subscription,omitempty"`
}

type CheckoutSessionList struct {
	Object  string            `json:"object"`
	Data    []CheckoutSession `json:"data"`
	HasMore bool              `json:"has_more"`
	URL     string            `json:"url"`
}

type LineItemList struct {
	Object  string         `json:"object"`
	Data    []LineItemData `json:"data"`
	HasMore bool           `json:"has_more"`
}

type LineItemData struct {
	ID             string          `json:"id"`
	Object         string          `json:"object"`
	AmountSubtotal int64           `json:"amount_subtotal"`
	AmountTotal    int64           `json:"amount_total"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	Price          json.RawMessage `json:"price,omitempty"`
	Quantity       *int64          `json:"quantity"`
}

// Payment intents.

type PaymentIntentStatus string

const (
	PaymentIntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentProcessing            PaymentIntentStatus = "processing"
	PaymentIntentRequiresCapture       PaymentIntentStatus = "requires_capture"
	PaymentIntentCanceled              PaymentIntentStatus = "canceled"
	PaymentIntentSucceeded             PaymentIntentStatus = "succeeded"
)

type PaymentIntent struct {
	ID           string              `json:"id"`
	Object       string              `json:"object"`
	Amount       uint64              `json:"amount"`
	Currency     string              `json:"currency"`
	Status       PaymentIntentStatus `json:"status"`
	Description  string              `json:"description,omitempty"`
	ClientSecret string              `json:"client_secret,omitempty"`
	Customer     string              `json:"customer,omitempty"`
}

// Webhook events.

type WebhookEvent struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}
