// Package retry provides the single bounded-backoff retry helper used by
// every upstream call site. Call sites classify their own errors: wrap
// terminal ones with Permanent, return retryable ones as-is.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts  int           // total attempts including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff cap
	Multiplier   float64       // backoff growth factor
}

// DefaultPolicy matches the spacing used against rate-limited RPC
// endpoints: 4 attempts at 500ms, 1s, 2s (jittered, capped at 8s).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  4,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// Do runs op until it succeeds, returns a permanent error, the attempt
// budget is exhausted, or ctx is done. The last error is returned as-is so
// callers can wrap it with their own context.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2.0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // bounded by attempts, not wall time

	wrapped := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(op, wrapped)
}

// Permanent marks err as terminal: Do stops immediately and returns it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
