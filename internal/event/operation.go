package event

import (
	"time"

	"github.com/google/uuid"

	"vaultledger/internal/ledger"
)

// OpType discriminator for applied ledger operations
type OpType int32

const (
	OpTypeUnknown OpType = iota
	OpTypeInitializeVault
	OpTypeInitializeUserLedger
	OpTypeInitializeTokenCustody
	OpTypeDeposit
	OpTypeWithdraw
	OpTypeWrap
	OpTypeUnwrap
	OpTypeSwapBaseToQuote
	OpTypeSwapQuoteToBase
	OpTypeVenueSwapBaseToQuote
	OpTypeVenueSwapQuoteToBase
	OpTypeWithdrawQuote
)

func (t OpType) String() string {
	switch t {
	case OpTypeInitializeVault:
		return "InitializeVault"
	case OpTypeInitializeUserLedger:
		return "InitializeUserLedger"
	case OpTypeInitializeTokenCustody:
		return "InitializeTokenCustody"
	case OpTypeDeposit:
		return "Deposit"
	case OpTypeWithdraw:
		return "Withdraw"
	case OpTypeWrap:
		return "Wrap"
	case OpTypeUnwrap:
		return "Unwrap"
	case OpTypeSwapBaseToQuote:
		return "SwapBaseToQuote"
	case OpTypeSwapQuoteToBase:
		return "SwapQuoteToBase"
	case OpTypeVenueSwapBaseToQuote:
		return "VenueSwapBaseToQuote"
	case OpTypeVenueSwapQuoteToBase:
		return "VenueSwapQuoteToBase"
	case OpTypeWithdrawQuote:
		return "WithdrawQuote"
	default:
		return "Unknown"
	}
}

// Operation is the record of one applied (committed) ledger operation. It is
// written to the operation log and published to downstream consumers; failed
// operations never produce one.
type Operation struct {
	OpID      uuid.UUID      `json:"op_id"`
	Type      OpType         `json:"type"`
	User      ledger.Address `json:"user"`            // affected user (zero for custody-only ops)
	Actor     ledger.Address `json:"actor"`           // authenticated caller
	OnBehalf  bool           `json:"on_behalf"`       // admin acted for User
	AmountIn  uint64         `json:"amount_in"`       // input amount
	AmountOut uint64         `json:"amount_out"`      // output amount (swaps), else 0
	Balance   uint64         `json:"balance"`         // user base balance after commit
	Timestamp time.Time      `json:"timestamp"`
}
