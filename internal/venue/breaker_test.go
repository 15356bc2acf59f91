package venue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultledger/internal/ledger"
	"vaultledger/internal/venue"
)

// failingVenue fails every call until the remaining counter hits zero.
type failingVenue struct {
	remaining int
	calls     int
}

func (f *failingVenue) Swap(ctx context.Context, params venue.SwapParams) error {
	f.calls++
	if f.remaining > 0 {
		f.remaining--
		return errors.New("venue down")
	}
	return nil
}

func TestBreaker_MapsErrors(t *testing.T) {
	b := venue.NewBreaker(&failingVenue{remaining: 1}, nil)

	err := b.Swap(context.Background(), venue.SwapParams{})
	assert.ErrorIs(t, err, ledger.ErrExternalCallFailed)

	// Next call succeeds and the breaker stays closed.
	require.NoError(t, b.Swap(context.Background(), venue.SwapParams{}))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingVenue{remaining: 100}
	var transitions []gobreaker.State
	b := venue.NewBreaker(inner, func(from, to gobreaker.State) {
		transitions = append(transitions, to)
	})

	for i := 0; i < 5; i++ {
		err := b.Swap(context.Background(), venue.SwapParams{})
		require.ErrorIs(t, err, ledger.ErrExternalCallFailed)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	require.NotEmpty(t, transitions)
	assert.Equal(t, gobreaker.StateOpen, transitions[len(transitions)-1])

	// While open, calls fail fast without reaching the venue.
	callsBefore := inner.calls
	err := b.Swap(context.Background(), venue.SwapParams{})
	assert.ErrorIs(t, err, ledger.ErrExternalCallFailed)
	assert.Equal(t, callsBefore, inner.calls)
}
