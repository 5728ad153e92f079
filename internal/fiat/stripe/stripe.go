// Package stripe integrates the Stripe API: checkout sessions, payment
// intents, webhook endpoint management and webhook signature verification.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/payway/internal/currency"
	"github.com/smallbiznis/payway/internal/fiat"
	"go.uber.org/zap"
)

const defaultURL = "https://api.stripe.com"

type Config struct {
	// URL overrides the API base, for stripe-mock or test servers.
	URL           string
	APIKey        string
	WebhookSecret string

	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

type Api struct {
	api           *formClient
	webhookSecret string
}

var _ fiat.PaymentService = (*Api)(nil)

func New(cfg Config) (*Api, error) {
	base := cfg.URL
	if base == "" {
		base = defaultURL
	}
	api, err := newFormClient(base, cfg.APIKey, cfg.RequestTimeout, cfg.ConnectTimeout, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &Api{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

// WebhookSecret returns the secret used with VerifyWebhook for inbound
// event verification.
func (s *Api) WebhookSecret() string {
	return s.webhookSecret
}

// ListWebhooks lists all registered webhook endpoints.
func (s *Api) ListWebhooks(ctx context.Context) (*WebhookList, error) {
	var out WebhookList
	if err := s.api.get(ctx, "/v1/webhook_endpoints", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWebhook removes a webhook endpoint.
func (s *Api) DeleteWebhook(ctx context.Context, webhookID string) (*Webhook, error) {
	var out Webhook
	if err := s.api.delete(ctx, "/v1/webhook_endpoints/"+webhookID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWebhook registers a webhook endpoint for the given event types.
func (s *Api) CreateWebhook(ctx context.Context, endpoint string, enabledEvents []string) (*Webhook, error) {
	form := url.Values{}
	form.Set("url", endpoint)
	for i, ev := range enabledEvents {
		form.Set(fmt.Sprintf("enabled_events[%d]", i), ev)
	}
	var out Webhook
	if err := s.api.postForm(ctx, "/v1/webhook_endpoints", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession creates a hosted checkout session.
func (s *Api) CreateCheckoutSession(ctx context.Context, req CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := s.api.postForm(ctx, "/v1/checkout/sessions", req.encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCheckoutSession retrieves a checkout session.
func (s *Api) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := s.api.get(ctx, "/v1/checkout/sessions/"+sessionID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCheckoutSession updates session metadata (the only mutable field
// this client supports).
func (s *Api) UpdateCheckoutSession(ctx context.Context, sessionID string, metadata map[string]string) (*CheckoutSession, error) {
	form := url.Values{}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var out CheckoutSession
	if err := s.api.postForm(ctx, "/v1/checkout/sessions/"+sessionID, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCheckoutSessions lists checkout sessions, optionally limited.
func (s *Api) ListCheckoutSessions(ctx context.Context, limit int) (*CheckoutSessionList, error) {
	path := "/v1/checkout/sessions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out CheckoutSessionList
	if err := s.api.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCheckoutSessionLineItems retrieves a session's line items.
func (s *Api) GetCheckoutSessionLineItems(ctx context.Context, sessionID string) (*LineItemList, error) {
	var out LineItemList
	if err := s.api.get(ctx, "/v1/checkout/sessions/"+sessionID+"/line_items", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpireCheckoutSession expires an open checkout session.
func (s *Api) ExpireCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := s.api.postForm(ctx, "/v1/checkout/sessions/"+sessionID+"/expire", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentIntent creates a confirmed payment intent, the lighter
// alternative to checkout sessions.
func (s *Api) CreatePaymentIntent(ctx context.Context, amount currency.Amount, description string) (*PaymentIntent, error) {
	if amount.Currency() == currency.BTC {
		return nil, fiat.ErrBitcoinAmount
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatUint(amount.Value(), 10))
	form.Set("currency", strings.ToLower(amount.Currency().String()))
	if description != "" {
		form.Set("description", description)
	}
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("confirm", "true")

	var out PaymentIntent
	if err := s.api.postForm(ctx, "/v1/payment_intents", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaymentIntent retrieves a payment intent.
func (s *Api) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := s.api.get(ctx, "/v1/payment_intents/"+paymentIntentID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelPaymentIntent cancels a payment intent.
func (s *Api) CancelPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := s.api.postForm(ctx, "/v1/payment_intents/"+paymentIntentID+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder implements fiat.PaymentService. With line items it opens a
// checkout session; without, it charges via a payment intent.
func (s *Api) CreateOrder(ctx context.Context, description string, amount currency.Amount, lineItems []fiat.LineItem) (*fiat.PaymentInfo, error) {
	if len(lineItems) > 0 {
		items := make([]CheckoutLineItem, 0, len(lineItems))
		for _, item := range lineItems {
			metadata := map[string]string{}
			if item.TaxAmount > 0 {
				metadata["tax_amount"] = strconv.FormatUint(item.TaxAmount, 10)
			}
			if item.TaxName != "" {
				metadata["tax_name"] = item.TaxName
			}
			for k, v := range item.Metadata {
				metadata[k] = fmt.Sprint(v)
			}
			if len(metadata) == 0 {
				metadata = nil
			}
			items = append(items, CheckoutLineItem{
				PriceData: &PriceData{
					Currency:   strings.ToLower(item.Currency),
					UnitAmount: item.UnitAmount,
					ProductData: ProductData{
						Name:        item.Name,
						Description: item.Description,
						Images:      item.Images,
						Metadata:    metadata,
					},
					// Tax is added on top of the unit amount.
					TaxBehavior: "exclusive",
				},
				Quantity: item.Quantity,
			})
		}

		rsp, err := s.CreateCheckoutSession(ctx, CreateCheckoutSessionRequest{
			LineItems:         items,
			Mode:              "payment",
			ClientReferenceID: description,
		})
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(rsp)
		if err != nil {
			return nil, err
		}
		return &fiat.PaymentInfo{ExternalID: rsp.ID, RawData: string(raw)}, nil
	}

	rsp, err := s.CreatePaymentIntent(ctx, amount, description)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(rsp)
	if err != nil {
		return nil, err
	}
	return &fiat.PaymentInfo{ExternalID: rsp.ID, RawData: string(raw)}, nil
}

// CancelOrder implements fiat.PaymentService. Payment intents are
// canceled, checkout sessions expired; an unrecognized ID tries both.
func (s *Api) CancelOrder(ctx context.Context, id string) error {
	switch {
	case strings.HasPrefix(id, "pi_"):
		_, err := s.CancelPaymentIntent(ctx, id)
		return err
	case strings.HasPrefix(id, "cs_"):
		_, err := s.ExpireCheckoutSession(ctx, id)
		return err
	default:
		if _, err := s.CancelPaymentIntent(ctx, id); err == nil {
			return nil
		}
		_, err := s.ExpireCheckoutSession(ctx, id)
		return err
	}
}
