// Package lightning defines the provider-agnostic surface for Lightning
// Network invoice operations. LND and Bitvora implement Node.
package lightning

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// ErrNotSupported is returned by providers that cannot perform an
// operation, such as canceling an invoice on a custodial API.
var ErrNotSupported = errors.New("operation_not_supported")

// Node is implemented by every Lightning payment backend.
type Node interface {
	// AddInvoice creates an invoice for receiving a payment.
	AddInvoice(ctx context.Context, req AddInvoiceRequest) (*InvoiceResponse, error)

	// CancelInvoice cancels an open invoice by payment hash.
	CancelInvoice(ctx context.Context, paymentHash []byte) error

	// PayInvoice pays a BOLT11 invoice and blocks until the payment
	// reaches a terminal state.
	PayInvoice(ctx context.Context, req PayInvoiceRequest) (*PayInvoiceResponse, error)

	// SubscribeInvoices streams invoice state changes. A non-nil
	// fromPaymentHash resumes delivery after the settle point of that
	// invoice, so settlements during a disconnect are replayed. The
	// channel closes when ctx is canceled or after a terminal Error
	// update.
	SubscribeInvoices(ctx context.Context, fromPaymentHash []byte) (<-chan InvoiceUpdate, error)
}

// AddInvoiceRequest describes the invoice to create. Amounts are in
// milli-satoshis.
type AddInvoiceRequest struct {
	AmountMsat uint64
	Memo       string
	// Expiry in seconds. Zero means the provider default of one hour.
	Expiry uint32
}

// InvoiceResponse is a created invoice with its decoded payment hash.
type InvoiceResponse struct {
	// ExternalID is the provider's ID for the invoice, when it has one.
	ExternalID     string
	PaymentRequest string
	PaymentHash    []byte
}

// NewInvoiceResponse decodes a BOLT11 payment request and captures its
// payment hash.
func NewInvoiceResponse(paymentRequest, externalID string, net *chaincfg.Params) (*InvoiceResponse, error) {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	invoice, err := zpay32.Decode(paymentRequest, net)
	if err != nil {
		return nil, fmt.Errorf("decode payment request: %w", err)
	}
	return &InvoiceResponse{
		ExternalID:     externalID,
		PaymentRequest: paymentRequest,
		PaymentHash:    invoice.PaymentHash[:],
	}, nil
}

// PaymentHashHex returns the payment hash as a hex string.
func (r *InvoiceResponse) PaymentHashHex() string {
	return hex.EncodeToString(r.PaymentHash)
}

type PayInvoiceRequest struct {
	// Invoice is the BOLT11 payment request to pay.
	Invoice string
	// TimeoutSeconds bounds the payment attempt. Zero means 60.
	TimeoutSeconds int32
}

type PayInvoiceResponse struct {
	PaymentHash string
	// Preimage is the proof of payment, hex encoded.
	Preimage   string
	AmountMsat uint64
	FeeMsat    uint64
}

// UpdateKind tags an InvoiceUpdate.
type UpdateKind string

const (
	UpdateCreated  UpdateKind = "created"
	UpdateSettled  UpdateKind = "settled"
	UpdateCanceled UpdateKind = "canceled"
	UpdateUnknown  UpdateKind = "unknown"
	UpdateError    UpdateKind = "error"
)

// InvoiceUpdate is one invoice state change on a subscription stream.
// Stream-level failures are delivered inline as UpdateError rather than
// tearing the channel down silently.
type InvoiceUpdate struct {
	Kind UpdateKind
	// PaymentHash is hex encoded. Empty for error updates.
	PaymentHash string
	// PaymentRequest is set for created updates.
	PaymentRequest string
	// Preimage is set for settled updates when the provider reveals it.
	Preimage string
	// ExternalID is set when the provider has its own invoice ID.
	ExternalID string
	// Message describes error updates.
	Message string
}

func ErrorUpdate(format string, args ...any) InvoiceUpdate {
	return InvoiceUpdate{Kind: UpdateError, Message: fmt.Sprintf(format, args...)}
}
