package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"vaultledger/internal/ledger"
)

// Breaker wraps a Venue with a circuit breaker. Repeated venue failures trip
// the breaker and subsequent calls fail fast with ErrExternalCallFailed
// instead of hitting a venue that is known to be down.
type Breaker struct {
	inner Venue
	cb    *gobreaker.CircuitBreaker
}

func NewBreaker(inner Venue, onStateChange func(from, to gobreaker.State)) *Breaker {
	settings := gobreaker.Settings{
		Name:    "external-venue",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			onStateChange(from, to)
		}
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *Breaker) Swap(ctx context.Context, params SwapParams) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Swap(ctx, params)
	})
	if err != nil {
		return fmt.Errorf("venue call: %v: %w", err, ledger.ErrExternalCallFailed)
	}
	return nil
}

// State exposes the breaker state for metrics.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
