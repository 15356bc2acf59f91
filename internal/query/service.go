package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vaultledger/internal/ledger"
	"vaultledger/internal/observability"
)

// BookReader is the read side of the ledger engine.
type BookReader interface {
	GetUserBalance(user ledger.Address) (uint64, error)
	GetVaultStats() (totalDeposits, custodyBalance uint64, err error)
	GetUserTokenBalances(user ledger.Address) (wrapped, quote uint64, err error)
	GetSwapStats() (ledger.SwapStats, error)
}

// Service answers read queries from the in-memory book, with an optional
// redis cache in front, and serves operation history from the operation
// log in PostgreSQL.
type Service struct {
	reader  BookReader
	db      *sql.DB
	cache   *Cache
	metrics *observability.Metrics
}

func NewService(reader BookReader, db *sql.DB, cache *Cache, metrics *observability.Metrics) *Service {
	return &Service{
		reader:  reader,
		db:      db,
		cache:   cache,
		metrics: metrics,
	}
}

func userBalanceKey(user ledger.Address) string   { return "balance:" + user.String() }
func tokenBalancesKey(user ledger.Address) string { return "token:" + user.String() }

const (
	vaultStatsKey = "vault_stats"
	swapStatsKey  = "swap_stats"
)

// UserBalance returns a user's base-asset balance.
func (s *Service) UserBalance(ctx context.Context, user ledger.Address) (*UserBalanceResponse, error) {
	defer s.observe("user_balance", time.Now())

	key := userBalanceKey(user)
	var cached UserBalanceResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	balance, err := s.reader.GetUserBalance(user)
	if err != nil {
		return nil, err
	}

	resp := &UserBalanceResponse{
		User:    user.String(),
		Balance: balance,
		Display: FormatAmount(balance, BaseDecimals),
	}
	_ = s.cache.Set(ctx, key, resp)
	return resp, nil
}

// VaultStats returns tracked deposits and the actual custody balance.
func (s *Service) VaultStats(ctx context.Context) (*VaultStatsResponse, error) {
	defer s.observe("vault_stats", time.Now())

	var cached VaultStatsResponse
	if ok, err := s.cache.Get(ctx, vaultStatsKey, &cached); err == nil && ok {
		return &cached, nil
	}

	totalDeposits, custodyBalance, err := s.reader.GetVaultStats()
	if err != nil {
		return nil, err
	}

	resp := &VaultStatsResponse{
		TotalDeposits:        totalDeposits,
		CustodyBalance:       custodyBalance,
		TotalDepositsDisplay: FormatAmount(totalDeposits, BaseDecimals),
		CustodyDisplay:       FormatAmount(custodyBalance, BaseDecimals),
	}
	_ = s.cache.Set(ctx, vaultStatsKey, resp)
	return resp, nil
}

// TokenBalances returns a user's wrapped and quote token balances.
func (s *Service) TokenBalances(ctx context.Context, user ledger.Address) (*TokenBalancesResponse, error) {
	defer s.observe("token_balances", time.Now())

	key := tokenBalancesKey(user)
	var cached TokenBalancesResponse
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	wrapped, quote, err := s.reader.GetUserTokenBalances(user)
	if err != nil {
		return nil, err
	}

	resp := &TokenBalancesResponse{
		User:           user.String(),
		WrappedBalance: wrapped,
		QuoteBalance:   quote,
		WrappedDisplay: FormatAmount(wrapped, BaseDecimals),
		QuoteDisplay:   FormatAmount(quote, QuoteDecimals),
	}
	_ = s.cache.Set(ctx, key, resp)
	return resp, nil
}

// SwapStats returns the aggregate venue swap record.
func (s *Service) SwapStats(ctx context.Context) (*SwapStatsResponse, error) {
	defer s.observe("swap_stats", time.Now())

	var cached SwapStatsResponse
	if ok, err := s.cache.Get(ctx, swapStatsKey, &cached); err == nil && ok {
		return &cached, nil
	}

	stats, err := s.reader.GetSwapStats()
	if err != nil {
		return nil, err
	}

	resp := &SwapStatsResponse{
		TotalBaseSwapped:   stats.TotalBaseSwapped,
		TotalQuoteReceived: stats.TotalQuoteReceived,
		LastSwapPrice:      stats.LastSwapPrice,
		SwapCount:          stats.SwapCount,
	}
	_ = s.cache.Set(ctx, swapStatsKey, resp)
	return resp, nil
}

// History returns the most recent operations touching user, newest first.
func (s *Service) History(ctx context.Context, user ledger.Address, limit int) (*OperationHistoryResponse, error) {
	defer s.observe("history", time.Now())

	if s.db == nil {
		return nil, fmt.Errorf("operation log not configured")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT op_id, op_type, user_addr, actor_addr, on_behalf,
		       amount_in, amount_out, balance, timestamp
		FROM op_log.operations
		WHERE user_addr = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, user.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	resp := &OperationHistoryResponse{User: user.String()}
	for rows.Next() {
		var e OperationHistoryEntry
		if err := rows.Scan(
			&e.OpID, &e.OpType, &e.User, &e.Actor, &e.OnBehalf,
			&e.AmountIn, &e.AmountOut, &e.Balance, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		resp.Operations = append(resp.Operations, e)
	}
	return resp, rows.Err()
}

// InvalidateUser drops cached reads affected by a write touching user.
// Vault and swap aggregates are always dropped; they are cheap to rebuild.
func (s *Service) InvalidateUser(ctx context.Context, user ledger.Address) {
	_ = s.cache.Invalidate(ctx,
		userBalanceKey(user),
		tokenBalancesKey(user),
		vaultStatsKey,
		swapStatsKey,
	)
}

func (s *Service) observe(endpoint string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
