// File: internal/usecase/retry.go
package usecase

import (
	"context"
	"errors"
	"time"

	"booking-agent-billing/internal/domain"
	"booking-agent-billing/internal/domain/model"
)

// RetryPolicy is a bounded retry schedule for resolving a subscription row
// that another webhook handler may not have created yet. Delays[i] is the
// wait before attempt i, so Delays[0] is normally zero. The schedule trades
// webhook-handler latency against race-window coverage; it is policy, not a
// correctness requirement.
type RetryPolicy struct {
	Delays []time.Duration
	// Sleep is injectable so tests can run the schedule without real time
	// passing. nil means context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultResolutionRetry covers the invoice-paid-before-checkout-completed
// window: four attempts over roughly twelve seconds.
func DefaultResolutionRetry() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{0, 2 * time.Second, 4 * time.Second, 6 * time.Second}}
}

// ZeroDelayRetry keeps the attempt count but drops all waits. Test helper.
func ZeroDelayRetry(attempts int) RetryPolicy {
	return RetryPolicy{Delays: make([]time.Duration, attempts)}
}

// Resolve calls fn until it returns a row, a non-ErrNotFound error, or the
// attempt budget runs out. Exhaustion returns domain.ErrNotFound.
func (p RetryPolicy) Resolve(ctx context.Context, fn func(ctx context.Context) (*model.Subscription, error)) (*model.Subscription, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	delays := p.Delays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}
	for _, d := range delays {
		if d > 0 {
			if err := sleep(ctx, d); err != nil {
				return nil, err
			}
		}
		s, err := fn(ctx)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrNotFound
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
