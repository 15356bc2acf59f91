package engine

import (
	"fmt"
	"time"

	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
)

// InitializeVault creates the vault singleton with the given administrator
// authority. Bootstrap requires no prior authority.
func (e *Engine) InitializeVault(authority ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeInitializeVault, ledger.ZeroAddress, authority, false)

	if err := e.book.InitVault(authority); err != nil {
		return e.finish(op, start, fmt.Errorf("initialize vault: %w", err))
	}

	e.log.Info().Str("authority", authority.String()).Msg("vault initialized")
	return e.finish(op, start, nil)
}

// InitializeUserLedger explicitly creates an empty subledger for owner.
// Deposits and swaps also create it lazily; calling this twice fails.
func (e *Engine) InitializeUserLedger(owner ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeInitializeUserLedger, owner, owner, false)

	if _, err := e.book.Vault(); err != nil {
		return e.finish(op, start, err)
	}
	if e.book.User(owner) != nil {
		return e.finish(op, start, fmt.Errorf("user ledger for %s: %w", owner, ledger.ErrAlreadyInitialized))
	}

	e.book.GetOrCreateUser(owner)
	return e.finish(op, start, nil)
}

// InitializeTokenCustody creates the token custody singleton, recording the
// addresses of the two custody token accounts. The provided addresses must
// match the environment's actual accounts.
func (e *Engine) InitializeTokenCustody(authority, wrappedAccount, quoteAccount ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeInitializeTokenCustody, ledger.ZeroAddress, authority, false)

	if wrappedAccount != e.env.WrappedAccount() || quoteAccount != e.env.QuoteAccount() {
		return e.finish(op, start, fmt.Errorf("token custody accounts: %w", ledger.ErrInvalidConfiguration))
	}

	if err := e.book.InitTokenCustody(authority, wrappedAccount, quoteAccount); err != nil {
		return e.finish(op, start, fmt.Errorf("initialize token custody: %w", err))
	}

	e.log.Info().
		Str("authority", authority.String()).
		Str("wrapped_account", wrappedAccount.String()).
		Str("quote_account", quoteAccount.String()).
		Msg("token custody initialized")
	return e.finish(op, start, nil)
}

// GetUserBalance returns the live spendable base balance of a user.
func (e *Engine) GetUserBalance(user ledger.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := e.book.User(user)
	if sub == nil {
		return 0, fmt.Errorf("user ledger for %s: %w", user, ledger.ErrNotInitialized)
	}
	return sub.CurrentBalance, nil
}

// GetVaultStats returns the recorded deposit aggregate alongside the actual
// custody balance, letting callers observe any divergence.
func (e *Engine) GetVaultStats() (totalDeposits, custodyBalance uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vault, err := e.book.Vault()
	if err != nil {
		return 0, 0, err
	}
	return vault.TotalDeposits, e.env.NativeBalance(), nil
}

// GetUserTokenBalances returns a user's custody-held token balances.
func (e *Engine) GetUserTokenBalances(user ledger.Address) (wrapped, quote uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tok := e.book.TokenUser(user)
	if tok == nil {
		return 0, 0, fmt.Errorf("token ledger for %s: %w", user, ledger.ErrNotInitialized)
	}
	return tok.WrappedBalance, tok.QuoteBalance, nil
}

// GetSwapStats returns a copy of the swap statistics singleton.
func (e *Engine) GetSwapStats() (ledger.SwapStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, err := e.book.SwapStats()
	if err != nil {
		return ledger.SwapStats{}, err
	}
	return *stats, nil
}
