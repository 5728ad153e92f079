package bitvora

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smallbiznis/payway/internal/webhook"
	"go.uber.org/zap"
)

// SignatureHeader carries a single hex HMAC-SHA256 of the raw body.
// There is no timestamp in this scheme.
const SignatureHeader = "bitvora-signature"

var (
	ErrMissingSignatureHeader = errors.New("missing_bitvora_signature_header")
	ErrInvalidSignature       = errors.New("invalid_signature")
	ErrMalformedPayload       = errors.New("malformed_payload")
)

type Event string

const (
	EventDepositCompleted Event = "deposit.lightning.completed"
	EventDepositFailed    Event = "deposit.lightning.failed"
)

type WebhookEvent struct {
	Event Event   `json:"event"`
	Data  Deposit `json:"data"`
}

type Deposit struct {
	ID                 string `json:"id"`
	LightningInvoiceID string `json:"lightning_invoice_id"`
	// Recipient is the BOLT11 payment request of the deposit.
	Recipient string `json:"recipient"`
}

// VerifyWebhook checks the body signature of an inbound event and
// decodes it.
func VerifyWebhook(secret string, msg webhook.Message, log *zap.Logger) (*WebhookEvent, error) {
	if log == nil {
		log = zap.L()
	}
	header, ok := msg.Header(SignatureHeader)
	if !ok {
		return nil, ErrMissingSignatureHeader
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg.Body)
	expected := mac.Sum(nil)

	sig, err := hex.DecodeString(header)
	if err != nil || !hmac.Equal(sig, expected) {
		log.Warn("signature mismatch",
			zap.String("endpoint", msg.Endpoint),
			zap.String("candidate", header),
			zap.String("expected", hex.EncodeToString(expected)))
		return nil, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &event, nil
}
