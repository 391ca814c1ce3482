// Package client looks up carrier records in the SaferWatch CarrierLookup web
// service.
package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"haulgate/internal/eligibility"
	"haulgate/internal/registry/metrics"
	id "haulgate/pkg/domain"
	dErrors "haulgate/pkg/domain-errors"
	"haulgate/pkg/platform/circuit"
	"haulgate/pkg/platform/tracer"
	"haulgate/pkg/platform/upstream"
)

const (
	serviceName    = "registry"
	lookupPath     = "/webservices/CarrierService32.php"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL     string
	ServiceKey  string
	CustomerKey string
	Timeout     time.Duration
	HTTPClient  HTTPDoer
}

// Client fetches carrier records. Calls are paced by a token-bucket limiter
// and short-circuited by a breaker after a run of outages.
type Client struct {
	baseURL     string
	serviceKey  string
	customerKey string
	http        HTTPDoer
	limiter     *rate.Limiter
	breaker     *circuit.Breaker
	tracer      tracer.Tracer
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Client)

// WithLimiter paces outbound lookups. Without one, calls are not paced.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey:  cfg.ServiceKey,
		customerKey: cfg.CustomerKey,
		http:        httpClient,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		breaker:     circuit.New(serviceName),
		tracer:      tracer.NewNoop(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the current registry record for dot.
//
// Errors carry CodeLookupFailure and wrap an *upstream.Error whose category
// says what went wrong; CategoryNotFound means the registry has no such
// carrier. Partially populated records are returned as-is.
func (c *Client) Fetch(ctx context.Context, dot id.DOTNumber) (_ *eligibility.CarrierRecord, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRegistryLookup, tracer.String(tracer.AttrDOTNumber, dot.String()))
	start := time.Now()
	defer func() {
		result := metrics.ResultFound
		if err != nil {
			result = string(upstream.CategoryOf(err))
			span.SetAttributes(tracer.String(tracer.AttrCategory, result))
		}
		if c.metrics != nil {
			c.metrics.ObserveLookup(result, time.Since(start))
		}
		span.End(err)
	}()

	if !c.breaker.Allow() {
		span.AddEvent(tracer.EventCircuitOpen)
		return nil, lookupFailure(upstream.New(upstream.CategoryCircuitOpen, serviceName, "registry circuit open", nil))
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, lookupFailure(upstream.New(upstream.CategoryTimeout, serviceName, "rate limiter wait aborted", err))
	}
	if waited := time.Since(waitStart); waited > time.Millisecond {
		span.AddEvent(tracer.EventRateLimited, tracer.Duration("wait_ms", waited))
		if c.metrics != nil {
			c.metrics.ObserveRateLimitWait(waited)
		}
	}

	rec, err := c.lookup(ctx, dot)
	c.recordOutcome(ctx, err)
	if err != nil {
		return nil, lookupFailure(err)
	}
	return rec, nil
}

// Health reports whether lookups are currently being attempted.
func (c *Client) Health(_ context.Context) error {
	if c.breaker.State() == circuit.StateOpen {
		return dErrors.New(dErrors.CodeLookupFailure, "registry circuit open")
	}
	return nil
}

func (c *Client) lookup(ctx context.Context, dot id.DOTNumber) (*eligibility.CarrierRecord, error) {
	q := url.Values{}
	q.Set("Action", "CarrierLookup")
	q.Set("ServiceKey", c.serviceKey)
	q.Set("CustomerKey", c.customerKey)
	q.Set("number", dot.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+lookupPath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, upstream.New(upstream.CategoryInternal, serviceName, "failed to create request", redact(err))
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, upstream.FromTransport(ctx, serviceName, redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "failed to read response", err)
	}
	if perr := upstream.FromStatus(serviceName, resp.StatusCode); perr != nil {
		return nil, perr
	}
	return parseLookup(dot, body)
}

// recordOutcome feeds the breaker. Only outages and timeouts count as
// failures; a carrier that does not exist is a healthy answer.
func (c *Client) recordOutcome(ctx context.Context, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	var change circuit.StateChange
	switch upstream.CategoryOf(err) {
	case upstream.CategoryTimeout, upstream.CategoryOutage:
		change = c.breaker.RecordFailure()
	default:
		change = c.breaker.RecordSuccess()
	}

	switch {
	case change.Opened:
		c.logger.WarnContext(ctx, "registry circuit opened", "error", err)
	case change.Closed:
		c.logger.InfoContext(ctx, "registry circuit closed")
	}
	if c.metrics != nil && (change.Opened || change.Closed) {
		c.metrics.SetCircuitOpen(change.Opened)
	}
}

func lookupFailure(err error) error {
	msg := "carrier lookup failed"
	if upstream.CategoryOf(err) == upstream.CategoryNotFound {
		msg = "carrier not found"
	}
	return dErrors.Wrap(err, dErrors.CodeLookupFailure, msg)
}

// redact strips the request URL, which carries the service keys, from
// transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
