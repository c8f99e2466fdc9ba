package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/resumeinsider/internal/platform/correlation"
	"github.com/pscheid92/resumeinsider/internal/platform/version"
	"golang.org/x/time/rate"
)

const (
	pathObtainToken = "api/auth/jwt/create/"
	pathUsers       = "api/auth/users/"
	pathUpload      = "api/upload-resume/"
	pathHistory     = "api/history/"

	defaultTimeout = 10 * time.Second
)

// Metrics receives per-request and breaker observations.
type Metrics interface {
	RequestCompleted(endpoint, code string, elapsed time.Duration)
	BreakerStateChanged(state string)
}

type noopMetrics struct{}

func (noopMetrics) RequestCompleted(string, string, time.Duration) {}
func (noopMetrics) BreakerStateChanged(string)                    {}

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
	limit     rate.Limit
	burst     int
	metrics   Metrics
	failures  uint
	delay     time.Duration
}

type Option func(*options)

// WithTransport sets the innermost RoundTripper (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRateLimit paces outgoing requests to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.limit = rate.Limit(perSecond)
		o.burst = burst
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBreaker sets how many consecutive history failures open the circuit
// and how long it stays open before a probe is allowed.
func WithBreaker(failures uint, delay time.Duration) Option {
	return func(o *options) {
		o.failures = failures
		o.delay = delay
	}
}

// Client talks to the public endpoints and builds JobsClients for the private ones.
type Client struct {
	baseURL   *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	http      *http.Client
	breaker   circuitbreaker.CircuitBreaker[any]
}

// NewClient creates a client for the API rooted at baseURL, which must end in "/".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		return nil, fmt.Errorf("base URL %q must end with /", baseURL)
	}

	o := options{
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
		limit:     rate.Inf,
		metrics:   noopMetrics{},
		failures:  5,
		delay:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rt http.RoundTripper = &instrumentedTransport{base: o.transport, metrics: o.metrics, root: base.Path}
	rt = &headerTransport{base: rt, userAgent: version.UserAgent()}
	if o.limit != rate.Inf {
		rt = &limitTransport{base: rt, limiter: rate.NewLimiter(o.limit, o.burst)}
	}

	return &Client{
		baseURL:   base,
		transport: rt,
		timeout:   o.timeout,
		http:      &http.Client{Transport: rt, Timeout: o.timeout},
		breaker:   newHistoryBreaker(o.failures, o.delay, o.metrics),
	}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: path}).String()
}

// newHistoryBreaker opens after the given number of consecutive failures.
// A single successful probe in half-open closes it again.
func newHistoryBreaker(failures uint, delay time.Duration, metrics Metrics) circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(failures).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "history",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.BreakerStateChanged(e.NewState.String())
		}).
		Build()
}

// headerTransport stamps the User-Agent and correlation ID on every request.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, id := correlation.Ensure(req.Context())
	out := req.Clone(ctx)
	out.Header.Set("User-Agent", t.userAgent)
	out.Header.Set(correlation.Header, id)
	return t.base.RoundTrip(out)
}

// limitTransport waits for the rate limiter before sending.
type limitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.base.RoundTrip(req)
}

type instrumentedTransport struct {
	base    http.RoundTripper
	metrics Metrics
	root    string
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	endpoint := strings.TrimPrefix(req.URL.Path, t.root)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.metrics.RequestCompleted(endpoint, "error", time.Since(start))
		slog.DebugContext(req.Context(), "API request failed", "method", req.Method, "endpoint", endpoint, "error", err)
		return nil, err
	}

	t.metrics.RequestCompleted(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	slog.DebugContext(req.Context(), "API request", "method", req.Method, "endpoint", endpoint, "status", resp.StatusCode)
	return resp, nil
}

func newJSONRequest(ctx context.Context, method, target string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}
