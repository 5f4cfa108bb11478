package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/folio-scout/harvest-cli/internal/resilience"
)

// Kind classifies a transport-layer failure.
type Kind string

const (
	// KindTimeout covers per-request deadline and dial timeouts.
	KindTimeout Kind = "timeout"
	// KindHTTPStatus covers responses with a non-success status code.
	KindHTTPStatus Kind = "http_status"
	// KindNetwork covers everything else on the wire, plus fast-fails from
	// an open circuit breaker.
	KindNetwork Kind = "network"
)

// FetchError is the error type surfaced by the Controller after its retry
// policy has been applied. Attempts records how many attempts were made
// before giving up.
type FetchError struct {
	Kind     Kind
	Code     int // HTTP status code, set when Kind is KindHTTPStatus
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.Code)
	case KindTimeout:
		return fmt.Sprintf("fetch %s: timeout: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether this failure is transient per the retry policy:
// timeouts, network failures, and throttling/server statuses retry; other
// HTTP statuses propagate immediately.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTPStatus:
		return resilience.IsTransientHTTPStatus(e.Code)
	default:
		return false
	}
}

// classifyTransport maps an http.Client transport error to a FetchError.
func classifyTransport(rawURL string, err error) *FetchError {
	kind := KindNetwork
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: rawURL, Err: err}
}

// retryableError is the ShouldRetry hook handed to the resilience layer.
func retryableError(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return resilience.IsTransient(err)
}
