package stripe

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

// SignatureHeader carries the timestamp and one or more signature
// candidates as comma-separated key=value pairs, e.g.
// "t=1614556800,v1=5257a8...,v0=6ffbb5...".
const SignatureHeader = "stripe-signature"

var (
	ErrMissingSignatureHeader = errors.New("missing_signature_header")
	ErrMissingTimestamp       = errors.New("missing_signature_timestamp")
	ErrNoSignatureCandidates  = errors.New("no_signature_candidates")
	ErrInvalidSignature       = errors.New("invalid_signature")
	ErrMalformedPayload       = errors.New("malformed_payload")
)

// VerifyWebhook checks the signature of an inbound event against secret
// and decodes its body. The signed payload is "<timestamp>.<body>"; any
// matching v1 candidate accepts the message. Scheme versions other than
// v1 are ignored.
func VerifyWebhook(secret string, msg webhook.Message, log *zap.Logger) (*WebhookEvent, error) {
	if log == nil {
		log = zap.L()
	}
	header, ok := msg.Header(SignatureHeader)
	if !ok {
		return nil, ErrMissingSignatureHeader
	}

	var timestamp string
	var candidates []string
	for _, pair := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" {
		return nil, ErrMissingTimestamp
	}
	if len(candidates) == 0 {
		return nil, ErrNoSignatureCandidates
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(msg.Body)
	expected := mac.Sum(nil)

	matched := false
	for _, candidate := range candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			log.Warn("discarding undecodable signature candidate",
				zap.String("endpoint", msg.Endpoint),
				zap.String("candidate", candidate),
				zap.Error(err))
			continue
		}
		if hmac.Equal(sig, expected) {
			matched = true
			break
		}
		log.Warn("signature candidate mismatch",
			zap.String("endpoint", msg.Endpoint),
			zap.String("timestamp", timestamp),
			zap.String("candidate", candidate),
			zap.String("expected", hex.EncodeToString(expected)))
	}
	if !matched {
		return nil, ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &event, nil
}
