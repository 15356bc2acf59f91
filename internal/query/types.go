package query

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Native amounts are integer subunits: the base asset carries 9 decimal
// places, the quote asset 6. Responses include both the raw subunit value
// and a human-readable decimal string.
const (
	BaseDecimals  = 9
	QuoteDecimals = 6
)

// UserBalanceResponse is a user's base-asset subledger view.
type UserBalanceResponse struct {
	User    string `json:"user"`
	Balance uint64 `json:"balance"`
	Display string `json:"display"`
}

// VaultStatsResponse reports tracked deposits against actual custody funds.
type VaultStatsResponse struct {
	TotalDeposits        uint64 `json:"total_deposits"`
	CustodyBalance       uint64 `json:"custody_balance"`
	TotalDepositsDisplay string `json:"total_deposits_display"`
	CustodyDisplay       string `json:"custody_display"`
}

// TokenBalancesResponse is a user's wrapped and quote token view.
type TokenBalancesResponse struct {
	User           string `json:"user"`
	WrappedBalance uint64 `json:"wrapped_balance"`
	QuoteBalance   uint64 `json:"quote_balance"`
	WrappedDisplay string `json:"wrapped_display"`
	QuoteDisplay   string `json:"quote_display"`
}

// SwapStatsResponse is the aggregate venue swap record.
type SwapStatsResponse struct {
	TotalBaseSwapped   uint64 `json:"total_base_swapped"`
	TotalQuoteReceived uint64 `json:"total_quote_received"`
	LastSwapPrice      uint64 `json:"last_swap_price"`
	SwapCount          uint64 `json:"swap_count"`
}

// OperationHistoryEntry is one applied operation from the operation log.
type OperationHistoryEntry struct {
	OpID      string    `json:"op_id"`
	OpType    string    `json:"op_type"`
	User      string    `json:"user"`
	Actor     string    `json:"actor"`
	OnBehalf  bool      `json:"on_behalf"`
	AmountIn  int64     `json:"amount_in"`
	AmountOut int64     `json:"amount_out"`
	Balance   int64     `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// OperationHistoryResponse wraps a page of history entries.
type OperationHistoryResponse struct {
	User       string                  `json:"user"`
	Operations []OperationHistoryEntry `json:"operations"`
}

// FormatAmount renders an integer subunit amount as a decimal string,
// e.g. FormatAmount(2_500_000_000, BaseDecimals) == "2.5".
func FormatAmount(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).String()
}
