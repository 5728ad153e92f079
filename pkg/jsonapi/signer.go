package jsonapi

import (
	"net/http"
	"strings"
)

// Signer mutates an outgoing request to attach provider credentials.
//
// Apply is invoked exactly once per request, after the JSON body has been
// serialized and before the request is dispatched, so body-dependent schemes
// sign the literal bytes that go on the wire. Implementations must be safe
// for concurrent use across in-flight requests.
type Signer interface {
	Apply(req *http.Request, body []byte) error
}

// BearerSigner attaches a bearer token plus an optional provider
// API-version header (e.g. Revolut-Api-Version).
type BearerSigner struct {
	Token         string
	VersionHeader string
	Version       string
}

func (s BearerSigner) Apply(req *http.Request, _ []byte) error {
	token := strings.TrimSpace(s.Token)
	if token == "" {
		return &SignError{Reason: "empty bearer token"}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if s.VersionHeader != "" {
		req.Header.Set(s.VersionHeader, s.Version)
	}
	return nil
}

// NopSigner leaves the request untouched, for providers that carry
// authentication in the URL or body instead of a header.
type NopSigner struct{}

func (NopSigner) Apply(*http.Request, []byte) error { return nil }

// StaticTokenSigner attaches a fixed Authorization header value.
type StaticTokenSigner struct {
	Authorization string
}

func (s StaticTokenSigner) Apply(req *http.Request, _ []byte) error {
	value := strings.TrimSpace(s.Authorization)
	if value == "" {
		return &SignError{Reason: "empty authorization value"}
	}
	req.Header.Set("Authorization", value)
	return nil
}
