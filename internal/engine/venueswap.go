package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaultledger/internal/custody"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	vmath "vaultledger/internal/math"
	"vaultledger/internal/venue"
)

// VenueSwap executes a swap of pooled custody funds at the external venue.
// No per-user subledger is touched. The protocol is explicit three-step:
// read the cached totals before, make the opaque call, re-read the actual
// balances after and diff. The realized output is only knowable post-hoc;
// if it misses the caller's minimum the whole operation, including the funds
// the venue already moved, is rolled back.
func (e *Engine) VenueSwap(ctx context.Context, caller ledger.Address, params venue.SwapParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	opType := event.OpTypeVenueSwapBaseToQuote
	if params.Direction == venue.QuoteToWrapped {
		opType = event.OpTypeVenueSwapQuoteToBase
	}
	op := e.newOp(opType, ledger.ZeroAddress, caller, false)
	op.AmountIn = params.AmountIn

	return e.finish(op, start, e.venueSwap(ctx, op, params))
}

func (e *Engine) venueSwap(ctx context.Context, op *event.Operation, params venue.SwapParams) error {
	custodyLedger, err := e.book.TokenCustody()
	if err != nil {
		return err
	}
	stats, err := e.book.SwapStats()
	if err != nil {
		return err
	}

	var assetIn, assetOut custody.Asset
	var cachedIn, cachedOut uint64
	switch params.Direction {
	case venue.WrappedToQuote:
		assetIn, assetOut = custody.AssetWrapped, custody.AssetQuote
		cachedIn, cachedOut = custodyLedger.TotalWrapped, custodyLedger.TotalQuote
	case venue.QuoteToWrapped:
		assetIn, assetOut = custody.AssetQuote, custody.AssetWrapped
		cachedIn, cachedOut = custodyLedger.TotalQuote, custodyLedger.TotalWrapped
	}

	if e.env.TokenBalance(assetIn) < params.AmountIn {
		return insufficientInput(assetIn, params.AmountIn, e.env.TokenBalance(assetIn))
	}
	if cachedIn < params.AmountIn {
		return insufficientInput(assetIn, params.AmountIn, cachedIn)
	}

	// Step 1 of 3: pre-swap cached output total, the diff baseline.
	preOut := cachedOut

	sp := e.env.Savepoint()

	// Step 2 of 3: the opaque venue call, signed by the custody authority.
	// Funds may move by an amount only discoverable afterwards.
	callStart := time.Now()
	err = e.venue.Swap(ctx, params)
	if e.metrics != nil {
		e.metrics.VenueCallDuration.Observe(time.Since(callStart).Seconds())
	}
	if err != nil {
		e.env.Rollback(sp)
		if errors.Is(err, ledger.ErrExternalCallFailed) {
			return err
		}
		return fmt.Errorf("venue swap: %v: %w", err, ledger.ErrExternalCallFailed)
	}

	// Step 3 of 3: re-read actual balances and diff against the baseline.
	postOut := e.env.TokenBalance(assetOut)
	received := vmath.SaturatingSub(postOut, preOut)

	if received < params.MinAmountOut {
		// The venue has already settled; the savepoint rollback is the
		// all-or-nothing boundary that unwinds its transfer.
		e.env.Rollback(sp)
		return fmt.Errorf("received %d below minimum %d: %w",
			received, params.MinAmountOut, ledger.ErrSlippageExceeded)
	}

	newCustody := custodyLedger.Clone()
	newStats := stats.Clone()

	newIn, ok := vmath.CheckedSub(cachedIn, params.AmountIn)
	if !ok {
		e.env.Rollback(sp)
		return fmt.Errorf("custody %s total: %w", assetIn, ledger.ErrArithmeticOverflow)
	}

	// Cached totals refresh from re-read balances, not arithmetic, so the
	// cache reconverges with reality even if the venue moved an unexpected
	// input amount.
	switch params.Direction {
	case venue.WrappedToQuote:
		newCustody.TotalWrapped = newIn
		newCustody.TotalQuote = postOut
	case venue.QuoteToWrapped:
		newCustody.TotalQuote = newIn
		newCustody.TotalWrapped = postOut
	}

	if err := accumulateStats(newStats, params, received); err != nil {
		e.env.Rollback(sp)
		return err
	}

	e.book.SetTokenCustody(newCustody)
	e.book.SetSwapStats(newStats)
	op.AmountOut = received
	return nil
}

// accumulateStats folds one settled venue swap into the statistics record.
// last_swap_price is always quote per base at PriceScale; the division is
// skipped when its denominator is zero.
func accumulateStats(stats *ledger.SwapStats, params venue.SwapParams, received uint64) error {
	var ok bool
	switch params.Direction {
	case venue.WrappedToQuote:
		if stats.TotalBaseSwapped, ok = vmath.CheckedAdd(stats.TotalBaseSwapped, params.AmountIn); !ok {
			return fmt.Errorf("base volume: %w", ledger.ErrArithmeticOverflow)
		}
		if stats.TotalQuoteReceived, ok = vmath.CheckedAdd(stats.TotalQuoteReceived, received); !ok {
			return fmt.Errorf("quote volume: %w", ledger.ErrArithmeticOverflow)
		}
		if params.AmountIn > 0 {
			price, priceOK := vmath.MulDiv(received, ledger.PriceScale, params.AmountIn)
			if !priceOK {
				return fmt.Errorf("swap price: %w", ledger.ErrArithmeticOverflow)
			}
			stats.LastSwapPrice = price
		}
	case venue.QuoteToWrapped:
		if stats.TotalBaseSwapped, ok = vmath.CheckedAdd(stats.TotalBaseSwapped, received); !ok {
			return fmt.Errorf("base volume: %w", ledger.ErrArithmeticOverflow)
		}
		if stats.TotalQuoteReceived, ok = vmath.CheckedAdd(stats.TotalQuoteReceived, params.AmountIn); !ok {
			return fmt.Errorf("quote volume: %w", ledger.ErrArithmeticOverflow)
		}
		if received > 0 {
			price, priceOK := vmath.MulDiv(params.AmountIn, ledger.PriceScale, received)
			if !priceOK {
				return fmt.Errorf("swap price: %w", ledger.ErrArithmeticOverflow)
			}
			stats.LastSwapPrice = price
		}
	}

	if stats.SwapCount, ok = vmath.CheckedAdd(stats.SwapCount, 1); !ok {
		return fmt.Errorf("swap count: %w", ledger.ErrArithmeticOverflow)
	}
	return nil
}

func insufficientInput(asset custody.Asset, want, have uint64) error {
	kind := ledger.ErrInsufficientWrappedBalance
	if asset == custody.AssetQuote {
		kind = ledger.ErrInsufficientQuoteBalance
	}
	return fmt.Errorf("venue swap %d with %s balance %d: %w", want, asset, have, kind)
}
