package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-scout/harvest-cli/internal/resilience"
)

func fastRetry(maxRetries int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestControllerGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(2)})

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "ok")
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
}

func TestControllerGet_RetryExhaustion503(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	const maxRetries = 3
	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(maxRetries)})

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fe.Code)
	assert.Equal(t, maxRetries+1, fe.Attempts)
	assert.Equal(t, int32(maxRetries+1), hits.Load())
}

func TestControllerGet_NoRetryOn404(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(3)})

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusNotFound, fe.Code)
	assert.False(t, fe.Retryable())
	assert.Equal(t, int32(1), hits.Load())
}

func TestControllerGet_RecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(3)})

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestControllerGet_NetworkError(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(1)})

	_, err := c.Get(context.Background(), target)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.True(t, fe.Retryable())
}

func TestControllerGet_CircuitOpensAfterExhaustedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewController(Config{
		RatePerSec: 1000,
		Burst:      100,
		Retry:      fastRetry(0),
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: 2,
			ResetTimeout:     time.Minute,
		},
	})

	ctx := context.Background()
	for range 2 {
		_, err := c.Get(ctx, srv.URL)
		require.Error(t, err)
	}
	before := hits.Load()

	// Circuit is now open: the next call fails fast without touching the server.
	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, hits.Load())
}

func TestControllerGet_ThrottleLowersRate(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewController(Config{RatePerSec: 100, Burst: 100, Retry: fastRetry(2)})
	initial := c.Rate()

	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	// One throttle halves, one success raises 20%: net below initial.
	assert.Less(t, c.Rate(), initial)
}

func TestControllerGet_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewController(Config{RatePerSec: 1000, Burst: 100, Retry: fastRetry(3)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)
	// Cancellation stops retries immediately, no backoff marathon.
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestControllerGet_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewController(Config{Concurrency: 2, RatePerSec: 1000, Burst: 100, Retry: fastRetry(0)})

	done := make(chan error, 6)
	for range 6 {
		go func() {
			_, err := c.Get(context.Background(), srv.URL)
			done <- err
		}()
	}
	for range 6 {
		require.NoError(t, <-done)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFetchErrorRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  *FetchError
		want bool
	}{
		{"timeout", &FetchError{Kind: KindTimeout}, true},
		{"network", &FetchError{Kind: KindNetwork}, true},
		{"status 500", &FetchError{Kind: KindHTTPStatus, Code: 500}, true},
		{"status 429", &FetchError{Kind: KindHTTPStatus, Code: 429}, true},
		{"status 404", &FetchError{Kind: KindHTTPStatus, Code: 404}, false},
		{"status 403", &FetchError{Kind: KindHTTPStatus, Code: 403}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Retryable())
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	fe := classifyTransport("https://example.com", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, fe.Kind)

	fe = classifyTransport("https://example.com", errors.New("connection refused"))
	assert.Equal(t, KindNetwork, fe.Kind)
}
