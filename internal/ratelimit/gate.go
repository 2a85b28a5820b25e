// Package ratelimit serializes calls to a shared upstream behind a minimum
// inter-request spacing. Exceeding the rate delays the next call, it never
// fails it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between consecutive requests to one
// upstream endpoint. All clients sharing the endpoint must share the Gate.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate spacing requests at least minInterval apart.
// A non-positive interval produces a pass-through gate.
func NewGate(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the gate allows the next request, or ctx is done.
// Uses Reserve() to guarantee exactly one slot is consumed per call.
func (g *Gate) Wait(ctx context.Context) error {
	r := g.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("ratelimit: cannot reserve slot")
	}
	delay := r.Delay()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
