package venue

import (
	"context"
	"fmt"

	"vaultledger/internal/custody"
	vmath "vaultledger/internal/math"
)

// CustodyBooks is the slice of the custody environment the venue moves funds
// through: the venue debits the input token account and credits the output
// account, exactly as the real pool would during settlement.
type CustodyBooks interface {
	DebitToken(asset custody.Asset, amount uint64) error
	CreditToken(asset custody.Asset, amount uint64)
}

// Sim is a deterministic fixed-price venue used in place of the real pool.
// Price is quote units per one whole base unit; FeeBps is taken from the
// output leg.
type Sim struct {
	books  CustodyBooks
	price  uint64 // quote (1e6 scale) per base (1e9 scale) unit
	feeBps uint64
}

// Base and quote fixed-point scales of the custody assets.
const (
	baseUnit  = 1_000_000_000
	quoteUnit = 1_000_000
)

func NewSim(books CustodyBooks, priceQuotePerBase uint64, feeBps uint64) *Sim {
	return &Sim{
		books:  books,
		price:  priceQuotePerBase,
		feeBps: feeBps,
	}
}

func (s *Sim) Swap(ctx context.Context, params SwapParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !params.AmountIsInput {
		return fmt.Errorf("sim venue: fixed-output swaps unsupported")
	}

	var assetIn, assetOut custody.Asset
	var out uint64
	var ok bool

	switch params.Direction {
	case WrappedToQuote:
		assetIn, assetOut = custody.AssetWrapped, custody.AssetQuote
		// price carries the quote scale per whole base unit
		out, ok = vmath.MulDiv(params.AmountIn, s.price, baseUnit)
	case QuoteToWrapped:
		assetIn, assetOut = custody.AssetQuote, custody.AssetWrapped
		out, ok = vmath.MulDiv(params.AmountIn, baseUnit, s.price)
	}
	if !ok {
		return fmt.Errorf("sim venue: output computation overflow")
	}

	if s.feeBps > 0 {
		fee, feeOK := vmath.MulDiv(out, s.feeBps, 10_000)
		if !feeOK {
			return fmt.Errorf("sim venue: fee computation overflow")
		}
		out -= fee
	}

	if out < params.MinAmountOut {
		return fmt.Errorf("sim venue: output %d below venue minimum %d", out, params.MinAmountOut)
	}

	if err := s.books.DebitToken(assetIn, params.AmountIn); err != nil {
		return fmt.Errorf("sim venue: %w", err)
	}
	s.books.CreditToken(assetOut, out)

	return nil
}
