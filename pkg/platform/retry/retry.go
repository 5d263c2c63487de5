// Package retry re-runs idempotent reads once after an infrastructure failure.
// Writes must never go through here: a retried insert could duplicate a record.
package retry

import (
	"context"
	"time"

	dErrors "supplierhub/pkg/domain-errors"
)

// backoff is the pause before the single retry.
const backoff = 50 * time.Millisecond

// Once calls fn and, if it fails with an internal or unavailable error, calls
// it one more time. Domain outcomes such as not found are returned immediately.
func Once[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !retryable(err) {
		return v, err
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return v, err
	case <-timer.C:
	}
	return fn(ctx)
}

func retryable(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		return true
	}
	return false
}
