package ledger_test

import (
	"errors"
	"testing"

	"vaultledger/internal/ledger"
)

// ============================================================================
// Test: singleton lifecycle
// ============================================================================

func TestBook_VaultLifecycle(t *testing.T) {
	b := ledger.NewBook()
	admin := ledger.AddressFromName("admin")

	if _, err := b.Vault(); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Errorf("vault before init: got %v, want ErrNotInitialized", err)
	}

	if err := b.InitVault(admin); err != nil {
		t.Fatalf("init vault: %v", err)
	}

	v, err := b.Vault()
	if err != nil {
		t.Fatalf("vault after init: %v", err)
	}
	if v.Authority != admin {
		t.Error("authority not recorded")
	}
	if v.TotalDeposits != 0 {
		t.Error("fresh vault should have zero deposits")
	}

	if err := b.InitVault(admin); !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Errorf("double init: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestBook_TokenCustodyCreatesStats(t *testing.T) {
	b := ledger.NewBook()
	admin := ledger.AddressFromName("admin")
	wrapped := ledger.AddressFromName("wrapped-acct")
	quote := ledger.AddressFromName("quote-acct")

	if _, err := b.SwapStats(); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Errorf("stats before init: got %v, want ErrNotInitialized", err)
	}

	if err := b.InitTokenCustody(admin, wrapped, quote); err != nil {
		t.Fatalf("init custody: %v", err)
	}

	tc, err := b.TokenCustody()
	if err != nil {
		t.Fatalf("custody after init: %v", err)
	}
	if tc.WrappedAccount != wrapped || tc.QuoteAccount != quote {
		t.Error("custody accounts not recorded")
	}

	// Custody bootstrap also creates the statistics record.
	stats, err := b.SwapStats()
	if err != nil {
		t.Fatalf("stats after custody init: %v", err)
	}
	if stats.SwapCount != 0 {
		t.Error("fresh stats should be zeroed")
	}

	if err := b.InitTokenCustody(admin, wrapped, quote); !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Errorf("double init: got %v, want ErrAlreadyInitialized", err)
	}
}

// ============================================================================
// Test: per-user records
// ============================================================================

func TestBook_UserAbsenceMeansUninitialized(t *testing.T) {
	b := ledger.NewBook()
	alice := ledger.AddressFromName("alice")

	if b.User(alice) != nil {
		t.Error("untouched user should be nil")
	}
	if b.TokenUser(alice) != nil {
		t.Error("untouched token user should be nil")
	}

	u := b.GetOrCreateUser(alice)
	if u == nil || u.Owner != alice {
		t.Fatal("get-or-create should return a record owned by alice")
	}
	if b.GetOrCreateUser(alice) != u {
		t.Error("second get-or-create should return the same record")
	}

	ut := b.GetOrCreateTokenUser(alice)
	if ut.Owner != alice {
		t.Error("token record should be owned by alice")
	}
}

func TestBook_PutInstallsStagedCopy(t *testing.T) {
	b := ledger.NewBook()
	alice := ledger.AddressFromName("alice")

	orig := b.GetOrCreateUser(alice)
	staged := orig.Clone()
	staged.CurrentBalance = 777

	if orig.CurrentBalance != 0 {
		t.Fatal("clone must not alias the live record")
	}

	b.PutUser(staged)
	if b.User(alice).CurrentBalance != 777 {
		t.Error("commit should install the staged copy")
	}
}

func TestBook_SumUserBalances(t *testing.T) {
	b := ledger.NewBook()

	b.GetOrCreateUser(ledger.AddressFromName("a")).CurrentBalance = 100
	b.GetOrCreateUser(ledger.AddressFromName("b")).CurrentBalance = 250
	b.GetOrCreateUser(ledger.AddressFromName("c")) // zero balance

	if got := b.SumUserBalances(); got != 350 {
		t.Errorf("sum: got %d, want 350", got)
	}
}

// ============================================================================
// Test: Clone independence
// ============================================================================

func TestClone_Independence(t *testing.T) {
	sub := &ledger.UserSubledger{Owner: ledger.AddressFromName("a"), CurrentBalance: 10}
	c := sub.Clone()
	c.CurrentBalance = 99
	if sub.CurrentBalance != 10 {
		t.Error("subledger clone aliases original")
	}

	tc := &ledger.TokenCustody{TotalWrapped: 5}
	tcc := tc.Clone()
	tcc.TotalWrapped = 50
	if tc.TotalWrapped != 5 {
		t.Error("custody clone aliases original")
	}

	st := &ledger.SwapStats{SwapCount: 1}
	stc := st.Clone()
	stc.SwapCount = 2
	if st.SwapCount != 1 {
		t.Error("stats clone aliases original")
	}
}
