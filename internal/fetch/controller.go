// Package fetch is the single chokepoint for outbound requests against the
// platform: bounded concurrency, adaptive rate limiting, retry with backoff,
// and per-host circuit breaking all live behind Controller.Get.
package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/folio-scout/harvest-cli/internal/resilience"
)

// maxBodyBytes caps how much of a response body is read. Profile pages are
// well under this; anything larger is truncated rather than buffered.
const maxBodyBytes = 4 << 20

// Fetcher is the capability discovery and extraction consume. They never
// build their own HTTP client.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*Response, error)
}

// Response is a fully buffered HTTP response.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Config controls the controller's admission gate, rate limiter, retry
// policy, and circuit breaker.
type Config struct {
	// Concurrency is the maximum number of in-flight requests. Default: 16.
	Concurrency int

	// RequestTimeout bounds each individual request. Default: 20s.
	RequestTimeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// RatePerSec is the initial request rate; the limiter adapts around it.
	// Default: 1.
	RatePerSec float64

	// Burst is the limiter burst size. Default: 1.
	Burst int

	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Controller owns the shared network gate. One instance is passed to both
// discovery and extraction so the concurrency bound and rate limit are
// global across the run.
type Controller struct {
	client   *http.Client
	gate     *semaphore.Weighted
	limiter  *AdaptiveLimiter
	breakers *resilience.HostBreakers
	retry    resilience.RetryConfig
	ua       string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the underlying HTTP client. Tests use this to
// point the controller at an httptest server or a stub round tripper.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// NewController creates the shared fetch controller.
func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	retry := cfg.Retry
	retry.ShouldRetry = retryableError

	c := &Controller{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		gate:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:  NewAdaptiveLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		breakers: resilience.NewHostBreakers(cfg.Breaker),
		retry:    retry,
		ua:       cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a URL through the admission gate, retry policy, and per-host
// circuit breaker. Errors are always *FetchError after policy has been
// applied; the caller decides whether to record or abort.
func (c *Controller) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: eris.Wrap(err, "fetch: admission gate")}
	}
	defer c.gate.Release(1)

	cb := c.breakers.Get(hostOf(rawURL))
	resp, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*Response, error) {
		return c.getWithRetry(ctx, rawURL)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
		}
		return nil, err
	}
	return resp, nil
}

// getWithRetry runs the single-attempt fetch under the retry policy and
// stamps the attempt count onto the terminal error.
func (c *Controller) getWithRetry(ctx context.Context, rawURL string) (*Response, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(hostOf(rawURL), "fetch")

	resp, attempts, err := resilience.DoValAttempts(ctx, retry, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, rawURL)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Attempts = attempts
			return nil, fe
		}
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Attempts: attempts, Err: err}
	}
	return resp, nil
}

// attempt performs one rate-limited request.
func (c *Controller) attempt(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: eris.Wrap(err, "fetch: rate limiter wait")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: eris.Wrap(err, "fetch: create request")}
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		c.limiter.OnThrottle(resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		// Drain so the connection is reusable.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{Kind: KindHTTPStatus, Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(rawURL, err)
	}

	c.limiter.OnSuccess()

	return &Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// BreakerStates reports the per-host circuit states for observability.
func (c *Controller) BreakerStates() map[string]resilience.CircuitState {
	return c.breakers.States()
}

// Rate reports the limiter's current rate.
func (c *Controller) Rate() float64 {
	return float64(c.limiter.Limit())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		zap.L().Debug("fetch: unparseable url for host keying", zap.String("url", rawURL))
		return rawURL
	}
	return u.Host
}
