package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DevAPIKey is the key a development server accepts by default.
const DevAPIKey = "sk_local_activity_dev_key"

// RetryConfig bounds retries of idempotent requests.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string // API key for actor authentication (must be explicitly configured)
	retry   RetryConfig
}

// New constructs a Client with the specified baseURL and apiKey.
// Additional options can be provided via functional arguments.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}
	if apiKey == "" {
		panic("apiKey cannot be empty")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   RetryConfig{MaxAttempts: 4, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}

	c.wrapTransportWithAPIKey()
	return c
}

// NewWithDevMode constructs a Client using DevAPIKey.
func NewWithDevMode(baseURL string, opts ...Option) *Client {
	return New(baseURL, DevAPIKey, opts...)
}

// wrapTransportWithAPIKey wraps the HTTP client's transport to automatically
// add the Authorization header to all requests using the configured API key.
func (c *Client) wrapTransportWithAPIKey() {
	baseTransport := c.http.Transport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	c.http.Transport = &apiKeyTransport{
		base:   baseTransport,
		apiKey: c.apiKey,
	}
}

// apiKeyTransport wraps an http.RoundTripper to automatically add Authorization header
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(cloned)
}

// call describes one API request.
type call struct {
	op        string
	method    string
	path      string
	query     url.Values
	body      any
	want      int
	retryable bool
}

// do sends c and decodes a successful response into out. Retryable calls are
// repeated on transport errors, 429 and 5xx with exponential backoff.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var payload []byte
	if cl.body != nil {
		var err error
		if payload, err = json.Marshal(cl.body); err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
	}
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	attempt := func() error {
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, cl.method, target, rdr)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != cl.want {
			apiErr := decodeAPIError(resp)
			if apiErr.retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	maxAttempts := 1
	if cl.retryable {
		maxAttempts = c.retry.MaxAttempts
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retry.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = c.retry.MaxBackoff
	exp.MaxElapsedTime = 0
	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(maxAttempts-1))
	b = backoff.WithContext(b, ctx)

	err := backoff.RetryNotify(attempt, b, func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(cl.op).Inc()
	})
	if err != nil {
		requestsTotal.WithLabelValues(cl.op, "error").Inc()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%s: %w", cl.op, apiErr)
		}
		return fmt.Errorf("%s: %w", cl.op, err)
	}
	requestsTotal.WithLabelValues(cl.op, "ok").Inc()
	return nil
}
