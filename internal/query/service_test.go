package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultledger/internal/ledger"
	"vaultledger/internal/query"
)

// stubReader serves canned balances.
type stubReader struct {
	balance uint64
	wrapped uint64
	quote   uint64
	stats   ledger.SwapStats

	totalDeposits  uint64
	custodyBalance uint64

	err error
}

func (s *stubReader) GetUserBalance(ledger.Address) (uint64, error) {
	return s.balance, s.err
}

func (s *stubReader) GetVaultStats() (uint64, uint64, error) {
	return s.totalDeposits, s.custodyBalance, s.err
}

func (s *stubReader) GetUserTokenBalances(ledger.Address) (uint64, uint64, error) {
	return s.wrapped, s.quote, s.err
}

func (s *stubReader) GetSwapStats() (ledger.SwapStats, error) {
	return s.stats, s.err
}

func TestUserBalance_Display(t *testing.T) {
	reader := &stubReader{balance: 2_500_000_000}
	svc := query.NewService(reader, nil, nil, nil)

	resp, err := svc.UserBalance(context.Background(), ledger.AddressFromName("alice"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500_000_000), resp.Balance)
	assert.Equal(t, "2.5", resp.Display)
}

func TestUserBalance_ReaderError(t *testing.T) {
	reader := &stubReader{err: ledger.ErrNotInitialized}
	svc := query.NewService(reader, nil, nil, nil)

	_, err := svc.UserBalance(context.Background(), ledger.AddressFromName("nobody"))
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
}

func TestTokenBalances_Display(t *testing.T) {
	reader := &stubReader{wrapped: 1_000_000_000, quote: 40_500_000}
	svc := query.NewService(reader, nil, nil, nil)

	resp, err := svc.TokenBalances(context.Background(), ledger.AddressFromName("alice"))
	require.NoError(t, err)
	// Wrapped carries the base scale, quote its own 6-decimal scale.
	assert.Equal(t, "1", resp.WrappedDisplay)
	assert.Equal(t, "40.5", resp.QuoteDisplay)
}

func TestVaultStats(t *testing.T) {
	reader := &stubReader{totalDeposits: 5_000_000_000, custodyBalance: 5_002_039_280}
	svc := query.NewService(reader, nil, nil, nil)

	resp, err := svc.VaultStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5", resp.TotalDepositsDisplay)
	assert.Equal(t, "5.00203928", resp.CustodyDisplay)
}

func TestSwapStats(t *testing.T) {
	reader := &stubReader{stats: ledger.SwapStats{
		TotalBaseSwapped:   1_000_000_000,
		TotalQuoteReceived: 40_000_000,
		LastSwapPrice:      40_000,
		SwapCount:          3,
	}}
	svc := query.NewService(reader, nil, nil, nil)

	resp, err := svc.SwapStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), resp.SwapCount)
	assert.Equal(t, uint64(40_000), resp.LastSwapPrice)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", query.FormatAmount(0, query.BaseDecimals))
	assert.Equal(t, "0.000000001", query.FormatAmount(1, query.BaseDecimals))
	assert.Equal(t, "40", query.FormatAmount(40_000_000, query.QuoteDecimals))
	assert.Equal(t, "123.456789", query.FormatAmount(123_456_789, query.QuoteDecimals))
}

func TestNilCache_IsDisabled(t *testing.T) {
	var c *query.Cache

	ok, err := c.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Set(context.Background(), "k", 1))
	assert.NoError(t, c.Invalidate(context.Background(), "k"))
	assert.NoError(t, c.Close())
}
