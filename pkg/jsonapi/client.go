// Package jsonapi provides the authenticated JSON HTTP client shared by the
// payment provider integrations. Authentication is pluggable per provider
// via the Signer interface; errors are classified so callers can tell
// transport failures, HTTP status failures and response decode failures
// apart with errors.As.
package jsonapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/smallbiznis/payway/internal/observability/logger"
	"github.com/smallbiznis/payway/internal/observability/tracing"
	"go.uber.org/zap"
)

const (
	userAgent = "payway/1.0"

	defaultRequestTimeout = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second

	logBodyLimit = 2048
)

// Config configures a Client. Zero-value timeouts fall back to the
// defaults (30s request, 10s connect).
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	// InsecureSkipVerify disables TLS verification. Only used for
	// self-hosted providers with self-signed certificates.
	InsecureSkipVerify bool
	Signer             Signer
	Logger             *zap.Logger
}

// Client joins paths against a base URL, signs requests through the
// configured Signer and decodes JSON responses. It is safe for concurrent
// use; the Signer is the only per-provider state and must be read-only.
type Client struct {
	base   *url.URL
	http   *http.Client
	signer Signer
	log    *zap.Logger
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBase, cfg.BaseURL)
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		Proxy:               http.ProxyFromEnvironment,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		base: base,
		http: tracing.WrapHTTPClient(&http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		}),
		signer: cfg.Signer,
		log:    log.Named("jsonapi"),
	}, nil
}

// Base returns the configured base URL.
func (c *Client) Base() *url.URL {
	clone := *c.base
	return &clone
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Do executes a request and decodes a successful JSON response into out.
// A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	status, text, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: status, Body: string(text)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return &DecodeError{Path: path, Body: string(text), Err: err}
	}
	return nil
}

// Status executes a request and returns only the response status code.
// Non-2xx responses are returned as a StatusError.
func (c *Client) Status(ctx context.Context, method, path string, body any) (int, error) {
	status, text, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	if status < 200 || status > 299 {
		return status, &StatusError{Method: method, Path: path, StatusCode: status, Body: string(text)}
	}
	return status, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (int, []byte, error) {
	req, err := c.buildRequest(ctx, method, path, body)
	if err != nil {
		return 0, nil, err
	}

	rsp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Method: method, URL: req.URL.String(), Err: err}
	}
	defer rsp.Body.Close()

	text, err := io.ReadAll(rsp.Body)
	if err != nil {
		return 0, nil, &TransportError{Method: method, URL: req.URL.String(), Err: err}
	}
	c.log.Debug("<<",
		zap.Int("status", rsp.StatusCode),
		zap.String("body", truncateForLog(text)),
	)
	return rsp.StatusCode, text, nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	u, err := c.base.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("join %q onto base url: %w", path, err)
	}

	// Serialize before signing so body-dependent signature schemes cover
	// the exact bytes sent.
	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json; charset=utf-8")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	if c.signer != nil {
		if err := c.signer.Apply(req, payload); err != nil {
			var signErr *SignError
			if errors.As(err, &signErr) {
				return nil, err
			}
			return nil, &SignError{Reason: "signer failed", Err: err}
		}
	}

	c.log.Debug(">>",
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", logger.MaskHeaders(req.Header)),
		zap.String("body", truncateForLog(payload)),
	)
	return req, nil
}

func truncateForLog(body []byte) string {
	if len(body) <= logBodyLimit {
		return string(body)
	}
	return string(body[:logBodyLimit]) + "...(truncated)"
}
