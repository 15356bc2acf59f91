package ledger

import "errors"

// Error taxonomy for all ledger operations. Every precondition failure maps
// to exactly one of these; callers match with errors.Is.
var (
	// ErrUnauthorized: caller identity does not match the required owner or
	// authority for the target record.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInsufficientBalance: user subledger base balance too low.
	ErrInsufficientBalance = errors.New("insufficient user balance")

	// ErrInsufficientWrappedBalance: wrapped-base balance too low, either in
	// the user token subledger or the custody wrapped holding.
	ErrInsufficientWrappedBalance = errors.New("insufficient wrapped-base balance")

	// ErrInsufficientQuoteBalance: quote-asset balance too low in the user
	// token subledger.
	ErrInsufficientQuoteBalance = errors.New("insufficient quote balance")

	// ErrInsufficientCustodyFunds: the custody account physically holds less
	// than the requested movement.
	ErrInsufficientCustodyFunds = errors.New("insufficient custody funds")

	// ErrArithmeticOverflow: a checked add/sub/mul-div failed.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrSlippageExceeded: realized or quoted output below the caller's
	// minimum.
	ErrSlippageExceeded = errors.New("slippage tolerance exceeded")

	// ErrInvalidConfiguration: custody token account wiring does not match
	// the recorded addresses.
	ErrInvalidConfiguration = errors.New("invalid custody configuration")

	// ErrExternalCallFailed: the external venue call itself errored.
	ErrExternalCallFailed = errors.New("external venue call failed")

	// ErrNotInitialized: the vault or token custody singleton does not exist
	// yet.
	ErrNotInitialized = errors.New("ledger not initialized")

	// ErrAlreadyInitialized: bootstrap called twice.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)
