// Package resilient issues outbound HTTP requests with a per-attempt timeout
// and a bounded number of retries. Every provider adapter sends through it.
package resilient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/leadsync/pkg/logging"
)

var tracer = otel.Tracer("leadsync.internal.resilient")

const (
	// DefaultBackoff is the fixed wait between attempts.
	DefaultBackoff = time.Second
	defaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrTimeout marks an attempt aborted by its own timeout window.
var ErrTimeout = errors.New("resilient: attempt timed out")

// Request is a fully formed outbound call. Body is replayed on every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response carries the status and the fully read body of a completed attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Policy bounds one Send call. MaxRetries counts attempts beyond the first;
// Timeout applies to each attempt independently.
type Policy struct {
	MaxRetries int
	Timeout    time.Duration
	Backoff    time.Duration
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultTimeout
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultBackoff
	}
	return p
}

// SendError is returned once every attempt has failed.
type SendError struct {
	URL      string
	Attempts int
	Timeout  bool
	Err      error
}

func (e *SendError) Error() string {
	kind := "network error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("resilient: %s %s after %d attempt(s): %v", kind, e.URL, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// RetryObserver is notified once per retry.
type RetryObserver interface {
	ObserveRetry(host string)
}

// Client sends requests under a Policy.
type Client struct {
	httpClient *http.Client
	logger     *logging.Logger
	observer   RetryObserver
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryObserver records retries, typically into Prometheus.
func WithRetryObserver(obs RetryObserver) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

// NewClient builds a Client. Timeouts come from each Policy, so the default
// http.Client carries none of its own.
func NewClient(logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send attempts req up to policy.MaxRetries+1 times. Transport failures and
// attempt timeouts are retried after policy.Backoff; any HTTP response,
// whatever its status, is returned to the caller as-is.
func (c *Client) Send(ctx context.Context, req Request, policy Policy) (*Response, error) {
	policy = policy.normalized()
	host := hostOf(req.URL)

	ctx, span := tracer.Start(ctx, "resilient.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("net.peer.name", host),
		attribute.Int("leadsync.max_retries", policy.MaxRetries),
	)

	total := policy.MaxRetries + 1
	attempts := 0
	var lastErr error

loop:
	for attempts < total {
		attempts++
		resp, err := c.attempt(ctx, req, policy.Timeout)
		if err == nil {
			span.SetAttributes(
				attribute.Int("leadsync.attempts", attempts),
				attribute.Int("http.status_code", resp.StatusCode),
			)
			return resp, nil
		}
		lastErr = err

		var buildErr *buildError
		if errors.As(err, &buildErr) || ctx.Err() != nil || attempts == total {
			break
		}

		c.logger.Warn("outbound request failed, retrying",
			"url", req.URL,
			"attempt", attempts,
			"max_attempts", total,
			"backoff", policy.Backoff.String(),
			"error", err,
		)
		if c.observer != nil {
			c.observer.ObserveRetry(host)
		}

		timer := time.NewTimer(policy.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			break loop
		case <-timer.C:
		}
	}

	sendErr := &SendError{
		URL:      req.URL,
		Attempts: attempts,
		Timeout:  errors.Is(lastErr, ErrTimeout),
		Err:      lastErr,
	}
	span.SetAttributes(attribute.Int("leadsync.attempts", attempts))
	span.RecordError(sendErr)
	span.SetStatus(codes.Error, "outbound request failed")
	return nil, sendErr
}

// Transport exposes the client as an http.RoundTripper so SDK clients that
// build their own requests share the retry policy, logging and metrics.
// Request bodies are buffered for replay.
func (c *Client) Transport(policy Policy) http.RoundTripper {
	return &transport{client: c, policy: policy}
}

type transport struct {
	client *Client
	policy Policy
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("resilient: read request body: %w", err)
		}
		if len(b) > 0 {
			body = b
		}
	}
	resp, err := t.client.Send(r.Context(), Request{
		Method: r.Method,
		URL:    r.URL.String(),
		Header: r.Header.Clone(),
		Body:   body,
	}, t.policy)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       r,
	}, nil
}

type buildError struct{ err error }

func (e *buildError) Error() string { return "build request: " + e.err.Error() }
func (e *buildError) Unwrap() error { return e.err }

func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, &buildError{err: err}
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, attemptCtx, timeout, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, attemptCtx, timeout, fmt.Errorf("read response: %w", err))
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// classify tags errors caused by the attempt's own deadline, as opposed to
// the caller's context or the network.
func classify(parent, attemptCtx context.Context, timeout time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
	}
	return err
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
