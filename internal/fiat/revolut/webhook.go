package revolut

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/payway/internal/webhook"
	"go.uber.org/zap"
)

// Signature headers. The signature header carries one or more
// "version=hex" candidates separated by commas; the timestamp is a
// separate header and is part of the signed payload.
const (
	SignatureHeader = "revolut-signature"
	TimestampHeader = "revolut-request-timestamp"
)

var (
	ErrMissingSignatureHeader = errors.New("missing_revolut_signature_header")
	ErrMissingTimestampHeader = errors.New("missing_revolut_request_timestamp_header")
	ErrInvalidSignature       = errors.New("invalid_signature")
	ErrMalformedPayload       = errors.New("malformed_payload")
)

// VerifyWebhook checks the signature of an inbound order event and
// decodes its body. Each candidate signs "<version>.<timestamp>.<body>"
// with its own scheme tag; any matching candidate accepts the message.
func VerifyWebhook(secret string, msg webhook.Message, log *zap.Logger) (*WebhookBody, error) {
	if log == nil {
		log = zap.L()
	}
	header, ok := msg.Header(SignatureHeader)
	if !ok {
		return nil, ErrMissingSignatureHeader
	}
	timestamp, ok := msg.Header(TimestampHeader)
	if !ok {
		return nil, ErrMissingTimestampHeader
	}

	for _, candidate := range strings.Split(header, ",") {
		version, code, found := strings.Cut(strings.TrimSpace(candidate), "=")
		if !found {
			log.Warn("discarding malformed signature candidate",
				zap.String("endpoint", msg.Endpoint))
			continue
		}

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(version))
		mac.Write([]byte("."))
		mac.Write([]byte(timestamp))
		mac.Write([]byte("."))
		mac.Write(msg.Body)
		expected := mac.Sum(nil)

		sig, err := hex.DecodeString(code)
		if err == nil && hmac.Equal(sig, expected) {
			var body WebhookBody
			if err := json.Unmarshal(msg.Body, &body); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
			}
			return &body, nil
		}
		log.Warn("signature candidate mismatch",
			zap.String("endpoint", msg.Endpoint),
			zap.String("scheme", version),
			zap.String("candidate", code),
			zap.String("expected", hex.EncodeToString(expected)))
	}

	return nil, ErrInvalidSignature
}
