// Package revolut integrates the Revolut Merchant API: orders, webhook
// endpoint management and webhook signature verification.
package revolut

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/payway/internal/currency"
	"github.com/smallbiznis/payway/internal/fiat"
	"github.com/smallbiznis/payway/pkg/jsonapi"
	"go.uber.org/zap"
)

const defaultURL = "https://merchant.revolut.com"

type Config struct {
	// URL overrides the API base for test servers.
	URL           string
	APIVersion    string
	Token         string
	WebhookSecret string

	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

type Api struct {
	api           *jsonapi.Client
	log           *zap.Logger
	webhookSecret string
}

var _ fiat.PaymentService = (*Api)(nil)

func New(cfg Config) (*Api, error) {
	base := cfg.URL
	if base == "" {
		base = defaultURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	api, err := jsonapi.New(jsonapi.Config{
		BaseURL:        base,
		RequestTimeout: cfg.RequestTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		Signer: &jsonapi.BearerSigner{
			Token:         cfg.Token,
			VersionHeader: "Revolut-Api-Version",
			Version:       cfg.APIVersion,
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	return &Api{api: api, log: log.Named("revolut"), webhookSecret: cfg.WebhookSecret}, nil
}

// WebhookSecret returns the signing secret used with VerifyWebhook.
func (r *Api) WebhookSecret() string {
	return r.webhookSecret
}

// ListWebhooks lists all registered webhook endpoints.
func (r *Api) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var out []Webhook
	if err := r.api.Get(ctx, "/api/1.0/webhooks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteWebhook removes a webhook endpoint.
func (r *Api) DeleteWebhook(ctx context.Context, webhookID string) error {
	_, err := r.api.Status(ctx, http.MethodDelete, "/api/1.0/webhooks/"+webhookID, nil)
	return err
}

// CreateWebhook registers a webhook endpoint for the given order events.
func (r *Api) CreateWebhook(ctx context.Context, endpoint string, events []WebhookEvent) (*Webhook, error) {
	var out Webhook
	if err := r.api.Post(ctx, "/api/1.0/webhooks", createWebhookRequest{URL: endpoint, Events: events}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrderRaw creates an order with the full request surface.
func (r *Api) CreateOrderRaw(ctx context.Context, amount currency.Amount, description string, lineItems []LineItem) (*Order, error) {
	if amount.Currency() == currency.BTC {
		return nil, fiat.ErrBitcoinAmount
	}
	var out Order
	err := r.api.Post(ctx, "/api/orders", createOrderRequest{
		Amount:      amount.Value(),
		Currency:    amount.Currency().String(),
		Description: description,
		LineItems:   lineItems,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder retrieves an order.
func (r *Api) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := r.api.Get(ctx, "/api/orders/"+orderID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrderByID cancels an order and returns its final state.
func (r *Api) CancelOrderByID(ctx context.Context, orderID string) (*Order, error) {
	var out Order
	if err := r.api.Do(ctx, http.MethodPost, "/api/orders/"+orderID+"/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder implements fiat.PaymentService.
func (r *Api) CreateOrder(ctx context.Context, description string, amount currency.Amount, lineItems []fiat.LineItem) (*fiat.PaymentInfo, error) {
	items := make([]LineItem, 0, len(lineItems))
	for _, item := range lineItems {
		li := LineItem{
			Name:            item.Name,
			Description:     item.Description,
			Quantity:        Quantity{Value: item.Quantity},
			UnitPriceAmount: item.UnitAmount,
			TotalAmount:     item.TotalAmount(),
			ImageURLs:       item.Images,
		}
		if item.TaxAmount > 0 && item.TaxName != "" {
			li.Taxes = []Tax{{Name: item.TaxName, Amount: item.TaxAmount}}
		}
		items = append(items, li)
	}
	if len(items) == 0 {
		items = nil
	}

	rsp, err := r.CreateOrderRaw(ctx, amount, description, items)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(rsp)
	if err != nil {
		return nil, err
	}
	return &fiat.PaymentInfo{ExternalID: rsp.ID, RawData: string(raw)}, nil
}

// CancelOrder implements fiat.PaymentService.
func (r *Api) CancelOrder(ctx context.Context, id string) error {
	_, err := r.CancelOrderByID(ctx, strings.TrimSpace(id))
	return err
}
