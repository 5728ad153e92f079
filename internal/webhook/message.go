// Package webhook normalizes inbound provider notifications and fans them
// out to in-process consumers. The transport layer decodes an HTTP delivery
// into a Message and publishes it on the Bridge; provider consumers
// subscribe, filter by endpoint path and verify signatures themselves.
package webhook

import (
	"net/http"
	"strings"
)

// Message is one inbound webhook delivery. Body holds the exact raw bytes
// received; signatures are computed over them, so it must never be mutated
// after capture. Header keys are lower-cased and unique.
type Message struct {
	Endpoint string
	Body     []byte
	Headers  map[string]string
}

// NewMessage builds a Message from request parts, normalizing header names.
// When a header carries multiple values the first one wins, matching
// http.Header.Get.
func NewMessage(endpoint string, body []byte, headers http.Header) Message {
	normalized := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		normalized[strings.ToLower(name)] = values[0]
	}
	return Message{
		Endpoint: endpoint,
		Body:     body,
		Headers:  normalized,
	}
}

// Header returns a header value by case-insensitive name.
func (m Message) Header(name string) (string, bool) {
	v, ok := m.Headers[strings.ToLower(name)]
	return v, ok
}
