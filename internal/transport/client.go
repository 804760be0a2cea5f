package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/roach88/ndc-test/internal/ndc"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config configures the connector client.
type Config struct {
	// BaseURL is the connector root; endpoint paths are appended to it.
	BaseURL string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst size (default: 1 when limiting).
	RateBurst int

	// Headers are added to every request, e.g. authorization.
	Headers map[string]string

	// UserAgent string (default: "ndc-test/<version>").
	UserAgent string

	// Transport allows injecting a custom round tripper (for tests).
	Transport http.RoundTripper

	// Logger receives one debug entry per request.
	Logger *zap.Logger

	// TracerProvider and Propagators trace every request and carry the
	// trace context to the connector. Default to the otel globals.
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// tracerName is the instrumentation scope of connector request spans.
const tracerName = "github.com/roach88/ndc-test/internal/transport"

// DefaultUserAgent identifies the harness to connectors.
const DefaultUserAgent = "ndc-test/0.1"

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		UserAgent: DefaultUserAgent,
		Headers:   make(map[string]string),
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client issues JSON requests against a single connector. It never retries:
// a failed request is reported to the caller as is.
type Client struct {
	config     *Config
	base       *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	tracer     trace.Tracer
}

// New creates a client. The base URL must be absolute.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid connector URL %q", config.BaseURL)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, errors.WithHint(
			errors.Newf("connector URL %q is not absolute", config.BaseURL),
			"include the scheme, e.g. http://localhost:8100",
		)
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	props := config.Propagators
	if props == nil {
		props = otel.GetTextMapPropagator()
	}
	rt := config.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	return &Client{
		config: config,
		base:   base,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(rt,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(props),
		)},
		limiter: limiter,
		logger:  logger,
		tracer:  tp.Tracer(tracerName),
	}, nil
}

// URL resolves an endpoint path against the base URL. The base may carry a
// path prefix and may or may not end in a slash; the endpoint is always
// appended below it.
func (c *Client) URL(path string) string {
	u := *c.base
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	return u.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
}

// Get fetches path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON to path and decodes the JSON reply into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request body")
	}
	return c.do(ctx, http.MethodPost, path, data, out)
}

// do issues one request under a client span named after the endpoint. Any
// error is recorded on the span.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "ndc "+strings.TrimPrefix(path, "/"),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("ndc.endpoint", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	target := c.URL(path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(err, "%s %s: request timed out after %s", method, target, c.config.Timeout)
		}
		return errors.Wrapf(err, "%s %s", method, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s %s: read body", method, target)
	}

	c.logger.Debug("connector request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ce := newConnectorError(resp.StatusCode, data)
		if ce.IsServerError() {
			c.logger.Warn("connector server error",
				zap.String("url", target),
				zap.Int("status", resp.StatusCode),
				zap.String("message", ce.Response.Message),
			)
		}
		return ce
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Path: path, Body: truncate(string(data), 512), Err: err}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ConnectorError is a non-2xx reply. When the body follows the protocol's
// error shape it is decoded into Response.
type ConnectorError struct {
	StatusCode int
	Response   ndc.ErrorResponse
	Body       string
}

func newConnectorError(status int, body []byte) *ConnectorError {
	ce := &ConnectorError{StatusCode: status, Body: truncate(string(body), 512)}
	_ = json.Unmarshal(body, &ce.Response)
	return ce
}

func (e *ConnectorError) Error() string {
	if e.Response.Message != "" {
		return fmt.Sprintf("connector returned HTTP %d: %s", e.StatusCode, e.Response.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("connector returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("connector returned HTTP %d", e.StatusCode)
}

// IsServerError returns true for 5xx replies.
func (e *ConnectorError) IsServerError() bool {
	return e.StatusCode >= 500
}

// DecodeError is a 2xx reply whose body is not the expected JSON document.
type DecodeError struct {
	Path string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
