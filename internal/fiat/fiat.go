// Package fiat defines the provider-agnostic surface for card/checkout
// payment processors. Stripe and Revolut implement PaymentService; new
// processors add implementations without touching callers.
package fiat

import (
	"context"
	"errors"

	"github.com/smallbiznis/payway/internal/currency"
)

// ErrBitcoinAmount is returned when a BTC amount is handed to a fiat-only
// processor.
var ErrBitcoinAmount = errors.New("bitcoin_amount_not_supported")

// PaymentService is implemented by every fiat payment processor.
type PaymentService interface {
	// CreateOrder creates a payment order for the given amount. Line
	// items, when present, give the customer-visible breakdown and may
	// switch the provider to a richer checkout flow.
	CreateOrder(ctx context.Context, description string, amount currency.Amount, lineItems []LineItem) (*PaymentInfo, error)

	// CancelOrder cancels an order by its provider-external ID.
	CancelOrder(ctx context.Context, id string) error
}

// PaymentInfo describes a created payment.
type PaymentInfo struct {
	// ExternalID is the provider's ID for the payment.
	ExternalID string
	// RawData is the raw JSON response from the provider.
	RawData string
}

// LineItem is one purchasable unit in an order. Amounts are in the
// smallest currency unit. Zero TaxAmount with empty TaxName means untaxed.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  uint64
	Quantity    uint64
	Currency    string
	Images      []string
	Metadata    map[string]any
	TaxAmount   uint64
	TaxName     string
}

// SubtotalAmount is the pre-tax amount for this line.
func (l LineItem) SubtotalAmount() uint64 {
	return l.UnitAmount * l.Quantity
}

// TotalAmount includes tax.
func (l LineItem) TotalAmount() uint64 {
	return l.SubtotalAmount() + l.TaxAmount
}
