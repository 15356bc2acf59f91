package custody_test

import (
	"errors"
	"testing"

	"vaultledger/internal/custody"
	"vaultledger/internal/ledger"
)

var alice = ledger.AddressFromName("alice")

// ============================================================================
// Test: base-asset transfers
// ============================================================================

func TestTransferInOut(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 5_000)

	if err := m.TransferIn(alice, 3_000); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if m.NativeBalance() != 3_000 {
		t.Errorf("native: got %d, want 3000", m.NativeBalance())
	}
	if m.WalletBalance(alice) != 2_000 {
		t.Errorf("wallet: got %d, want 2000", m.WalletBalance(alice))
	}

	if err := m.TransferOut(alice, 1_000); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if m.NativeBalance() != 2_000 || m.WalletBalance(alice) != 3_000 {
		t.Error("transfer out did not move funds")
	}
}

func TestTransferIn_InsufficientWallet(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 100)

	err := m.TransferIn(alice, 101)
	if !errors.Is(err, ledger.ErrInsufficientCustodyFunds) {
		t.Errorf("got %v, want ErrInsufficientCustodyFunds", err)
	}
	if m.NativeBalance() != 0 || m.WalletBalance(alice) != 100 {
		t.Error("failed transfer must not move funds")
	}
}

func TestTransferOut_InsufficientCustody(t *testing.T) {
	m := custody.NewMemory()
	if err := m.TransferOut(alice, 1); !errors.Is(err, ledger.ErrInsufficientCustodyFunds) {
		t.Errorf("got %v, want ErrInsufficientCustodyFunds", err)
	}
}

// ============================================================================
// Test: wrap / unwrap account lifecycle
// ============================================================================

func TestWrapUnwrap_CloseOnDrain(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 5_000_000_000)
	if err := m.TransferIn(alice, 5_000_000_000); err != nil {
		t.Fatal(err)
	}

	if err := m.Wrap(3_000_000_000); err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if m.TokenBalance(custody.AssetWrapped) != 3_000_000_000 {
		t.Errorf("wrapped: got %d", m.TokenBalance(custody.AssetWrapped))
	}
	if m.NativeBalance() != 2_000_000_000 {
		t.Errorf("native after wrap: got %d", m.NativeBalance())
	}

	// Partial unwrap leaves the account open.
	if err := m.Unwrap(1_000_000_000); err != nil {
		t.Fatalf("partial unwrap: %v", err)
	}
	if m.TokenBalance(custody.AssetWrapped) != 2_000_000_000 {
		t.Error("partial unwrap should leave remainder")
	}

	// Draining closes the account: the reserve comes back to custody.
	if err := m.Unwrap(2_000_000_000); err != nil {
		t.Fatalf("draining unwrap: %v", err)
	}
	if m.TokenBalance(custody.AssetWrapped) != 0 {
		t.Error("drained account should hold zero")
	}
	want := uint64(5_000_000_000) + custody.DefaultAccountReserve
	if m.NativeBalance() != want {
		t.Errorf("native after drain: got %d, want %d (reserve returned)", m.NativeBalance(), want)
	}

	// Unwrapping from a closed account fails.
	if err := m.Unwrap(1); !errors.Is(err, ledger.ErrInsufficientCustodyFunds) {
		t.Errorf("unwrap from closed account: got %v", err)
	}
}

func TestWrap_ReopensClosedAccount(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 5_000_000_000)
	if err := m.TransferIn(alice, 5_000_000_000); err != nil {
		t.Fatal(err)
	}
	if err := m.Wrap(1_000_000_000); err != nil {
		t.Fatal(err)
	}
	if err := m.Unwrap(1_000_000_000); err != nil { // drain, account closes
		t.Fatal(err)
	}

	// Reopening funds the reserve out of custody again.
	before := m.NativeBalance()
	if err := m.Wrap(1_000_000_000); err != nil {
		t.Fatalf("wrap after close: %v", err)
	}
	want := before - 1_000_000_000 - custody.DefaultAccountReserve
	if m.NativeBalance() != want {
		t.Errorf("native after reopen: got %d, want %d", m.NativeBalance(), want)
	}
	if m.TokenBalance(custody.AssetWrapped) != 1_000_000_000 {
		t.Error("reopened account should hold the wrapped amount")
	}
}

// ============================================================================
// Test: token transfers out
// ============================================================================

func TestTransferTokenOut(t *testing.T) {
	m := custody.NewMemory()
	m.FundQuote(500)

	if err := m.TransferTokenOut(custody.AssetQuote, alice, 200); err != nil {
		t.Fatalf("token transfer out: %v", err)
	}
	if m.TokenBalance(custody.AssetQuote) != 300 {
		t.Errorf("custody quote: got %d, want 300", m.TokenBalance(custody.AssetQuote))
	}
	if m.QuoteWalletBalance(alice) != 200 {
		t.Errorf("wallet quote: got %d, want 200", m.QuoteWalletBalance(alice))
	}

	err := m.TransferTokenOut(custody.AssetQuote, alice, 301)
	if !errors.Is(err, ledger.ErrInsufficientCustodyFunds) {
		t.Errorf("overdrawn token transfer: got %v", err)
	}
}

// ============================================================================
// Test: savepoint rollback
// ============================================================================

func TestSavepointRollback(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 10_000_000_000)
	if err := m.TransferIn(alice, 6_000_000_000); err != nil {
		t.Fatal(err)
	}
	if err := m.Wrap(2_000_000_000); err != nil {
		t.Fatal(err)
	}
	m.FundQuote(1_000_000)

	sp := m.Savepoint()

	// Mutate every dimension of custody state.
	if err := m.TransferOut(alice, 1_000_000_000); err != nil {
		t.Fatal(err)
	}
	if err := m.Unwrap(2_000_000_000); err != nil { // drains and closes
		t.Fatal(err)
	}
	if err := m.TransferTokenOut(custody.AssetQuote, alice, 500_000); err != nil {
		t.Fatal(err)
	}
	if err := m.DebitToken(custody.AssetQuote, 100_000); err != nil {
		t.Fatal(err)
	}
	m.CreditToken(custody.AssetWrapped, 42)

	m.Rollback(sp)

	if m.NativeBalance() != 4_000_000_000 {
		t.Errorf("native after rollback: got %d", m.NativeBalance())
	}
	if m.TokenBalance(custody.AssetWrapped) != 2_000_000_000 {
		t.Errorf("wrapped after rollback: got %d", m.TokenBalance(custody.AssetWrapped))
	}
	if m.TokenBalance(custody.AssetQuote) != 1_000_000 {
		t.Errorf("quote after rollback: got %d", m.TokenBalance(custody.AssetQuote))
	}
	if m.WalletBalance(alice) != 4_000_000_000 {
		t.Errorf("wallet after rollback: got %d", m.WalletBalance(alice))
	}
	if m.QuoteWalletBalance(alice) != 0 {
		t.Errorf("quote wallet after rollback: got %d", m.QuoteWalletBalance(alice))
	}

	// The account must be open again: unwrap works.
	if err := m.Unwrap(1_000_000_000); err != nil {
		t.Errorf("unwrap after rollback: %v", err)
	}
}

func TestSavepoint_DeepCopiesWallets(t *testing.T) {
	m := custody.NewMemory()
	m.FundWallet(alice, 1_000)

	sp := m.Savepoint()
	m.FundWallet(alice, 9_000) // mutate after capture

	m.Rollback(sp)
	if m.WalletBalance(alice) != 1_000 {
		t.Errorf("savepoint shares wallet map: got %d, want 1000", m.WalletBalance(alice))
	}
}
