package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/payway/internal/observability/logger"
	"github.com/smallbiznis/payway/internal/observability/tracing"
	"github.com/smallbiznis/payway/pkg/jsonapi"
	"go.uber.org/zap"
)

// formClient speaks Stripe's dialect: form-encoded requests, JSON
// responses, bearer auth on every call. Errors are classified with the
// same types as pkg/jsonapi so callers handle both clients uniformly.
type formClient struct {
	base   *url.URL
	http   *http.Client
	apiKey string
	log    *zap.Logger
}

func newFormClient(baseURL, apiKey string, requestTimeout, connectTimeout time.Duration, log *zap.Logger) (*formClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", jsonapi.ErrInvalidBase, baseURL)
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &formClient{
		base: base,
		http: tracing.WrapHTTPClient(&http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
				Proxy:               http.ProxyFromEnvironment,
			},
			Timeout: requestTimeout,
		}),
		apiKey: apiKey,
		log:    log.Named("stripe.client"),
	}, nil
}

func (c *formClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// postForm posts form values; nil form sends an empty body (Stripe's
// "POST to act" endpoints such as cancel/expire).
func (c *formClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, form, out)
}

func (c *formClient) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *formClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if path == "" {
		return jsonapi.ErrEmptyPath
	}
	u, err := c.base.Parse(path)
	if err != nil {
		return fmt.Errorf("join %q onto base url: %w", path, err)
	}

	var body io.Reader
	encoded := ""
	if form != nil {
		encoded = form.Encode()
		body = strings.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "payway/1.0")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.log.Debug(">>",
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", logger.MaskHeaders(req.Header)),
		zap.String("form", encoded),
	)

	rsp, err := c.http.Do(req)
	if err != nil {
		return &jsonapi.TransportError{Method: method, URL: u.String(), Err: err}
	}
	defer rsp.Body.Close()

	text, err := io.ReadAll(rsp.Body)
	if err != nil {
		return &jsonapi.TransportError{Method: method, URL: u.String(), Err: err}
	}
	c.log.Debug("<<", zap.Int("status", rsp.StatusCode), zap.String("body", string(text)))

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return &jsonapi.StatusError{Method: method, Path: path, StatusCode: rsp.StatusCode, Body: string(text)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return &jsonapi.DecodeError{Path: path, Body: string(text), Err: err}
	}
	return nil
}
