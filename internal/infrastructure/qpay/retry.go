package qpay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Executor runs a gateway call under a retry policy. The operation must build
// a fresh *http.Request on every invocation so retries can resend the body.
type Executor interface {
	Do(ctx context.Context, op func(ctx context.Context) (*http.Response, error)) (*http.Response, error)
}

// BackoffRetry is the policy for idempotent operations (status checks,
// cancellations): retry any transient failure or 5xx with exponential backoff,
// bounded attempts, and stop on any 4xx response.
type BackoffRetry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultBackoffRetry returns the executor used for idempotent gateway calls.
func DefaultBackoffRetry() BackoffRetry {
	return BackoffRetry{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

func (p BackoffRetry) Do(ctx context.Context, op func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := op(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("gateway returned %d", resp.StatusCode)
			continue
		}
		// 2xx and 4xx are both final; the caller maps 4xx to an error.
		return resp, nil
	}

	return nil, lastErr
}

// CreateSafeRetry is the policy for non-idempotent operations (invoice and
// receipt creation). A retry is permitted only when the failure proves the
// request never reached the gateway: connection refused, DNS failure or a
// reset during dial. Never on a timeout, and never once any HTTP response was
// received, because the gateway may already have created the resource.
type CreateSafeRetry struct{}

func (CreateSafeRetry) Do(ctx context.Context, op func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	resp, err := op(ctx)
	if err == nil {
		return resp, nil
	}
	if !NeverReached(err) {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return op(ctx)
}

// NeverReached reports whether the error is a definite network-layer failure
// proving the request was never delivered. Timeouts are indefinite: the
// request may have been processed even though no response arrived.
func NeverReached(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
