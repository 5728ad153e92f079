package jsonapi

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath   = errors.New("empty_path")
	ErrInvalidBase = errors.New("invalid_base_url")
)

// SignError reports that a Signer failed to construct credentials. The
// request is never sent.
type SignError struct {
	Reason string
	Err    error
}

func (e *SignError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sign request: %s: %v", e.Reason, e.Err)
	}
	return "sign request: " + e.Reason
}

func (e *SignError) Unwrap() error { return e.Err }

// TransportError reports a connection, DNS, TLS or timeout failure on an
// outbound call, before any HTTP status was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. Body carries the raw response
// text for diagnostics.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// DecodeError reports a 2xx response whose body failed JSON decoding.
// Distinguished from StatusError so callers can tell a provider contract
// drift from a plain request failure.
type DecodeError struct {
	Path string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v: %s", e.Path, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error { return e.Err }
