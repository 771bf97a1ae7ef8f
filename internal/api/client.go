package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quangtm/stashsync/internal/metrics"
	"github.com/quangtm/stashsync/internal/telemetry"
)

// SessionStore is the slice of the session layer the client consumes.
type SessionStore interface {
	Credential() (string, bool)
	Clear()
}

// Client issues authenticated JSON requests against the stash service,
// retrying transient failures per Policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionStore
	sink       telemetry.Sink
	policy     Policy
	maxRetries int

	connectivity     func() Connectivity
	onSessionExpired func()
	expireMu         sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTelemetry sets the failure sink.
func WithTelemetry(sink telemetry.Sink) Option {
	return func(c *Client) { c.sink = sink }
}

// WithPolicy sets the backoff policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMaxRetries sets the default retry budget per request.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithConnectivity sets the connectivity probe consulted before each retry.
func WithConnectivity(probe func() Connectivity) Option {
	return func(c *Client) { c.connectivity = probe }
}

// WithSessionExpired sets the one-shot callback fired when a 401 ends the
// session.
func WithSessionExpired(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, session SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		session:      session,
		sink:         telemetry.NopSink{},
		policy:       DefaultPolicy,
		maxRetries:   3,
		connectivity: func() Connectivity { return Foregrounded },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	retry      bool
	maxRetries int
}

// NoRetry disables retries for this request.
func NoRetry() RequestOption {
	return func(o *requestOptions) { o.retry = false }
}

// MaxRetries overrides the retry budget for this request.
func MaxRetries(n int) RequestOption {
	return func(o *requestOptions) { o.maxRetries = n }
}

// Get issues a GET and decodes a JSON response into out when present.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.execute(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.execute(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.execute(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.execute(ctx, http.MethodDelete, path, nil, out, opts...)
}

// execute runs the attempt loop: issue, classify, decide, wait, repeat.
// Terminal auth failures are handled here (session cleared, UI notified) and
// reported as success with no value; all other terminal failures propagate.
func (c *Client) execute(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	ro := requestOptions{retry: true, maxRetries: c.maxRetries}
	for _, opt := range opts {
		opt(&ro)
	}
	maxAttempts := ro.maxRetries
	if !ro.retry {
		maxAttempts = 0
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, method, path, bodyBytes, out)
		if err == nil {
			return nil
		}
		lastErr = err

		kind := Classify(err)
		decision := c.policy.Decide(kind, attempt, maxAttempts, c.connectivity())
		if !decision.Retry {
			break
		}

		metrics.APIRetries.WithLabelValues(kind.String()).Inc()
		slog.Debug("Retrying request",
			"method", method, "path", path,
			"kind", kind.String(), "attempt", attempt, "delay", decision.Delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(decision.Delay):
		}
	}

	kind := Classify(lastErr)
	c.sink.ReportFailure(lastErr, telemetry.Event{
		Component: "api_client",
		Action:    method + " " + path,
		Extra:     map[string]any{"kind": kind.String()},
	})

	if kind == KindAuth {
		// Terminal and handled out-of-band: clear the session, tell the UI
		// once, and resolve with no value.
		c.expireSession()
		return nil
	}

	return lastErr
}

// attempt performs one transport round-trip.
func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	start := time.Now()

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.session.Credential(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "transport").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()
	metrics.APILatency.WithLabelValues(method).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newServiceError(resp.StatusCode, respBody)
	}

	// 204, empty bodies, and non-JSON content types resolve with no value.
	if out == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// expireSession clears the credential and fires the session-expired callback
// exactly once per expiry, even under concurrent 401s.
func (c *Client) expireSession() {
	c.expireMu.Lock()
	_, hadCredential := c.session.Credential()
	if hadCredential {
		c.session.Clear()
	}
	c.expireMu.Unlock()

	if hadCredential {
		slog.Info("Session expired, credential cleared")
		if c.onSessionExpired != nil {
			c.onSessionExpired()
		}
	}
}

type errorPayload struct {
	Message   string            `json:"message"`
	ErrorCode string            `json:"error_code"`
	Errors    map[string]string `json:"errors"`
}

func newServiceError(status int, body []byte) *ServiceError {
	var payload errorPayload
	if len(body) > 0 {
		_ = json.Unmarshal(body, &payload)
	}
	if payload.Message == "" {
		payload.Message = http.StatusText(status)
		if payload.Message == "" {
			payload.Message = fmt.Sprintf("unexpected status %d", status)
		}
	}
	return &ServiceError{
		HTTPStatus: status,
		ErrorCode:  payload.ErrorCode,
		Message:    payload.Message,
		Details:    payload.Errors,
	}
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
