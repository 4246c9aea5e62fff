package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a provider call: each attempt gets Timeout, and transient
// failures are retried up to MaxRetries times, waiting Backoff before the first retry.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// DefaultPolicy is a 30s attempt timeout with a single retry after 500ms.
func DefaultPolicy() Policy {
	return Policy{Timeout: 30 * time.Second, MaxRetries: 1, Backoff: 500 * time.Millisecond}
}

// WithTimeout returns a copy of p with a different attempt timeout.
func (p Policy) WithTimeout(d time.Duration) Policy {
	if d > 0 {
		p.Timeout = d
	}
	return p
}

// WithoutRetries returns a copy of p that makes a single attempt.
func (p Policy) WithoutRetries() Policy {
	p.MaxRetries = 0
	return p
}

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is a rate limit, a server fault, a network
// failure or an attempt timeout.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// Call runs op under the policy and reports failure as *domain.ProviderError.
func Call[T any](ctx context.Context, p Policy, provider, capability string, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := 0

	operation := func() (T, error) {
		attempts++
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.RetryWithData(operation, p.backOff(ctx))
	if err != nil {
		var zero T
		return zero, &domain.ProviderError{
			Provider:   provider,
			Capability: capability,
			Attempts:   attempts,
			Err:        err,
		}
	}
	return res, nil
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Backoff
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = time.Millisecond
	}
	exp.MaxElapsedTime = 0

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}
