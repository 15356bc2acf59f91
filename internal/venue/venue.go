// Package venue models the external exchange venue. The engine treats the
// call as opaque: no return value is trusted, custody balances are re-read
// after the call and diffed against the pre-call cached totals.
package venue

import (
	"context"
	"math/big"
)

// Direction selects the swap leg ordering at the venue.
type Direction bool

const (
	// WrappedToQuote sells custody wrapped base for quote.
	WrappedToQuote Direction = true
	// QuoteToWrapped sells custody quote for wrapped base.
	QuoteToWrapped Direction = false
)

// SwapParams is the venue call contract. MinAmountOut and PriceLimit are
// enforced venue-side as well; the engine re-checks slippage itself after
// re-reading balances.
type SwapParams struct {
	AmountIn      uint64
	MinAmountOut  uint64
	PriceLimit    *big.Int // venue price bound, 128-bit
	AmountIsInput bool     // AmountIn fixes the input leg (vs the output leg)
	Direction     Direction
}

// Venue executes a swap against the external pool, moving custody token
// balances as a side effect. An error means the venue call itself failed;
// the engine maps it to ErrExternalCallFailed and aborts the operation.
type Venue interface {
	Swap(ctx context.Context, params SwapParams) error
}
