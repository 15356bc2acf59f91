// Package custody abstracts the host environment's custody primitives: the
// pooled native account holding the base asset, the two custody-held token
// accounts, and the external wallets funds move against. The engine consumes
// the Env interface; the in-memory implementation stands in for the real
// execution environment and provides the all-or-nothing operation boundary
// via savepoints.
package custody

import (
	"fmt"

	"vaultledger/internal/ledger"
)

// Asset selects one of the two custody-held token accounts.
type Asset uint8

const (
	AssetWrapped Asset = iota
	AssetQuote
)

func (a Asset) String() string {
	switch a {
	case AssetWrapped:
		return "wrapped_base"
	case AssetQuote:
		return "quote"
	default:
		return "unknown"
	}
}

// Env is the custody environment the engine operates against. Transfers are
// authorized by the custody signing credential the environment verifies; the
// engine only sequences them.
type Env interface {
	// WrappedAccount and QuoteAccount are the addresses of the two custody
	// token accounts; recorded in the token custody ledger at bootstrap.
	WrappedAccount() ledger.Address
	QuoteAccount() ledger.Address

	// NativeBalance is the actual base-asset balance of the custody account.
	NativeBalance() uint64

	// TokenBalance is the actual balance of a custody token account. This is
	// the reconcile read: after an opaque venue call it is the only source
	// of truth.
	TokenBalance(asset Asset) uint64

	// TransferIn moves base asset from an external wallet into custody.
	TransferIn(from ledger.Address, amount uint64) error

	// TransferOut moves base asset from custody to an external wallet.
	TransferOut(to ledger.Address, amount uint64) error

	// Wrap converts custody-held base asset into the custody wrapped-base
	// token account, synchronizing the token balance before returning.
	Wrap(amount uint64) error

	// Unwrap converts custody-held wrapped base back to native. Draining the
	// account closes it and returns its residual reserve to custody.
	Unwrap(amount uint64) error

	// TransferTokenOut moves token balance from custody to an external
	// token wallet.
	TransferTokenOut(asset Asset, to ledger.Address, amount uint64) error

	// Savepoint captures the full custody state; Rollback restores it.
	// The engine brackets every operation with a savepoint so a late
	// failure (including one after a venue call has moved funds) leaves
	// custody byte-identical.
	Savepoint() Savepoint
	Rollback(Savepoint)
}

// Savepoint is an opaque captured custody state.
type Savepoint struct {
	native        uint64
	wrapped       uint64
	quote         uint64
	wrappedOpen   bool
	reserveHeld   uint64
	wallets       map[ledger.Address]uint64
	wrappedWallet map[ledger.Address]uint64
	quoteWallet   map[ledger.Address]uint64
}

// DefaultAccountReserve mirrors the rent-exempt reserve of a token account
// on the host environment.
const DefaultAccountReserve = 2_039_280

// Memory is the in-memory custody environment.
type Memory struct {
	native  uint64
	wrapped uint64
	quote   uint64

	// wrappedOpen tracks whether the wrapped token account currently
	// exists; a full unwrap closes it and returns reserveHeld to native.
	wrappedOpen bool
	reserveHeld uint64
	reserve     uint64

	wallets       map[ledger.Address]uint64 // external base-asset wallets
	wrappedWallet map[ledger.Address]uint64 // external wrapped token wallets
	quoteWallet   map[ledger.Address]uint64 // external quote token wallets

	wrappedAccount ledger.Address
	quoteAccount   ledger.Address
}

func NewMemory() *Memory {
	return &Memory{
		wrappedOpen:    true,
		reserveHeld:    DefaultAccountReserve,
		reserve:        DefaultAccountReserve,
		wallets:        make(map[ledger.Address]uint64),
		wrappedWallet:  make(map[ledger.Address]uint64),
		quoteWallet:    make(map[ledger.Address]uint64),
		wrappedAccount: ledger.AddressFromName("custody:wrapped-base-account"),
		quoteAccount:   ledger.AddressFromName("custody:quote-account"),
	}
}

// WrappedAccount returns the address of the custody wrapped-base token
// account.
func (m *Memory) WrappedAccount() ledger.Address { return m.wrappedAccount }

// QuoteAccount returns the address of the custody quote token account.
func (m *Memory) QuoteAccount() ledger.Address { return m.quoteAccount }

// FundWallet seeds an external base-asset wallet. Test and bootstrap helper.
func (m *Memory) FundWallet(addr ledger.Address, amount uint64) {
	m.wallets[addr] += amount
}

// FundQuote seeds the custody quote account directly, standing in for
// liquidity arriving outside the engine.
func (m *Memory) FundQuote(amount uint64) {
	m.quote += amount
}

// WalletBalance returns an external base wallet balance.
func (m *Memory) WalletBalance(addr ledger.Address) uint64 {
	return m.wallets[addr]
}

// QuoteWalletBalance returns an external quote token wallet balance.
func (m *Memory) QuoteWalletBalance(addr ledger.Address) uint64 {
	return m.quoteWallet[addr]
}

func (m *Memory) NativeBalance() uint64 {
	return m.native
}

func (m *Memory) TokenBalance(asset Asset) uint64 {
	switch asset {
	case AssetWrapped:
		return m.wrapped
	case AssetQuote:
		return m.quote
	default:
		return 0
	}
}

func (m *Memory) TransferIn(from ledger.Address, amount uint64) error {
	if m.wallets[from] < amount {
		return fmt.Errorf("transfer in from %s: wallet holds %d, need %d: %w",
			from, m.wallets[from], amount, ledger.ErrInsufficientCustodyFunds)
	}
	m.wallets[from] -= amount
	m.native += amount
	return nil
}

func (m *Memory) TransferOut(to ledger.Address, amount uint64) error {
	if m.native < amount {
		return fmt.Errorf("transfer out: custody holds %d, need %d: %w",
			m.native, amount, ledger.ErrInsufficientCustodyFunds)
	}
	m.native -= amount
	m.wallets[to] += amount
	return nil
}

func (m *Memory) Wrap(amount uint64) error {
	if m.native < amount {
		return fmt.Errorf("wrap: custody holds %d, need %d: %w",
			m.native, amount, ledger.ErrInsufficientCustodyFunds)
	}
	if !m.wrappedOpen {
		// Reopen the account: the reserve comes back out of custody.
		if m.native-amount < m.reserve {
			return fmt.Errorf("wrap: cannot fund account reserve: %w",
				ledger.ErrInsufficientCustodyFunds)
		}
		m.native -= m.reserve
		m.reserveHeld = m.reserve
		m.wrappedOpen = true
	}
	m.native -= amount
	m.wrapped += amount
	return nil
}

func (m *Memory) Unwrap(amount uint64) error {
	if !m.wrappedOpen || m.wrapped < amount {
		return fmt.Errorf("unwrap: account holds %d, need %d: %w",
			m.wrapped, amount, ledger.ErrInsufficientCustodyFunds)
	}

	if m.wrapped == amount {
		// Drained: close the account, reserve returns to custody.
		m.native += amount + m.reserveHeld
		m.wrapped = 0
		m.reserveHeld = 0
		m.wrappedOpen = false
		return nil
	}

	m.wrapped -= amount
	m.native += amount
	return nil
}

func (m *Memory) TransferTokenOut(asset Asset, to ledger.Address, amount uint64) error {
	switch asset {
	case AssetWrapped:
		if m.wrapped < amount {
			return fmt.Errorf("token transfer out %s: custody holds %d, need %d: %w",
				asset, m.wrapped, amount, ledger.ErrInsufficientCustodyFunds)
		}
		m.wrapped -= amount
		m.wrappedWallet[to] += amount
	case AssetQuote:
		if m.quote < amount {
			return fmt.Errorf("token transfer out %s: custody holds %d, need %d: %w",
				asset, m.quote, amount, ledger.ErrInsufficientCustodyFunds)
		}
		m.quote -= amount
		m.quoteWallet[to] += amount
	default:
		return fmt.Errorf("token transfer out: unknown asset %d: %w", asset, ledger.ErrInvalidConfiguration)
	}
	return nil
}

// DebitToken removes token balance from custody. Venue-side movement.
func (m *Memory) DebitToken(asset Asset, amount uint64) error {
	switch asset {
	case AssetWrapped:
		if m.wrapped < amount {
			return fmt.Errorf("venue debit %s: custody holds %d, need %d: %w",
				asset, m.wrapped, amount, ledger.ErrInsufficientCustodyFunds)
		}
		m.wrapped -= amount
	case AssetQuote:
		if m.quote < amount {
			return fmt.Errorf("venue debit %s: custody holds %d, need %d: %w",
				asset, m.quote, amount, ledger.ErrInsufficientCustodyFunds)
		}
		m.quote -= amount
	}
	return nil
}

// CreditToken adds token balance to custody. Venue-side movement.
func (m *Memory) CreditToken(asset Asset, amount uint64) {
	switch asset {
	case AssetWrapped:
		m.wrapped += amount
	case AssetQuote:
		m.quote += amount
	}
}

func (m *Memory) Savepoint() Savepoint {
	return Savepoint{
		native:        m.native,
		wrapped:       m.wrapped,
		quote:         m.quote,
		wrappedOpen:   m.wrappedOpen,
		reserveHeld:   m.reserveHeld,
		wallets:       copyBalances(m.wallets),
		wrappedWallet: copyBalances(m.wrappedWallet),
		quoteWallet:   copyBalances(m.quoteWallet),
	}
}

func (m *Memory) Rollback(sp Savepoint) {
	m.native = sp.native
	m.wrapped = sp.wrapped
	m.quote = sp.quote
	m.wrappedOpen = sp.wrappedOpen
	m.reserveHeld = sp.reserveHeld
	m.wallets = copyBalances(sp.wallets)
	m.wrappedWallet = copyBalances(sp.wrappedWallet)
	m.quoteWallet = copyBalances(sp.quoteWallet)
}

func copyBalances(src map[ledger.Address]uint64) map[ledger.Address]uint64 {
	dst := make(map[ledger.Address]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
