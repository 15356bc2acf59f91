package engine_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"vaultledger/internal/custody"
	"vaultledger/internal/engine"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	"vaultledger/internal/venue"
)

// --- Test helpers ---

var (
	admin = ledger.AddressFromName("admin")
	alice = ledger.AddressFromName("alice")
	bob   = ledger.AddressFromName("bob")
)

// recordingSink collects committed operations.
type recordingSink struct {
	ops []event.Operation
}

func (s *recordingSink) Record(op event.Operation) {
	s.ops = append(s.ops, op)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// newTestEngine returns a bootstrapped engine over in-memory custody and a
// zero-fee fixed-price venue, with a recording sink attached.
func newTestEngine(t *testing.T) (*engine.Engine, *custody.Memory, *recordingSink) {
	t.Helper()

	env := custody.NewMemory()
	sim := venue.NewSim(env, 40_000_000, 0)
	sink := &recordingSink{}
	eng := engine.New(env, sim, testLogger(), engine.WithSink(sink))

	if err := eng.InitializeVault(admin); err != nil {
		t.Fatalf("bootstrap vault: %v", err)
	}
	if err := eng.InitializeTokenCustody(admin, env.WrappedAccount(), env.QuoteAccount()); err != nil {
		t.Fatalf("bootstrap custody: %v", err)
	}
	return eng, env, sink
}

func mustDeposit(t *testing.T, eng *engine.Engine, env *custody.Memory, user ledger.Address, amount uint64) {
	t.Helper()
	env.FundWallet(user, amount)
	if err := eng.Deposit(user, amount); err != nil {
		t.Fatalf("deposit %d for %s: %v", amount, user, err)
	}
}

// seedTokenUser gives user wrapped/quote token balances with the custody
// side (cached totals and actual account balances) kept consistent. Swapped
// balances can only be bootstrapped out-of-band; the base-to-quote swap
// requires a pre-existing wrapped holding.
func seedTokenUser(t *testing.T, eng *engine.Engine, env *custody.Memory, user ledger.Address, wrapped, quote uint64) {
	t.Helper()

	tok := eng.Book().GetOrCreateTokenUser(user)
	tok.WrappedBalance = wrapped
	tok.QuoteBalance = quote

	cl, err := eng.Book().TokenCustody()
	if err != nil {
		t.Fatalf("token custody: %v", err)
	}
	cl.TotalWrapped += wrapped
	cl.TotalQuote += quote
	env.CreditToken(custody.AssetWrapped, wrapped)
	env.CreditToken(custody.AssetQuote, quote)
}

// ============================================================================
// Test: bootstrap
// ============================================================================

func TestInitializeVault_Twice(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if err := eng.InitializeVault(admin); !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Errorf("got %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitializeTokenCustody_WrongAccounts(t *testing.T) {
	env := custody.NewMemory()
	eng := engine.New(env, venue.NewSim(env, 40_000_000, 0), testLogger())
	if err := eng.InitializeVault(admin); err != nil {
		t.Fatal(err)
	}

	err := eng.InitializeTokenCustody(admin, ledger.AddressFromName("bogus"), env.QuoteAccount())
	if !errors.Is(err, ledger.ErrInvalidConfiguration) {
		t.Errorf("got %v, want ErrInvalidConfiguration", err)
	}
}

func TestInitializeUserLedger(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	if err := eng.InitializeUserLedger(alice); err != nil {
		t.Fatalf("init user: %v", err)
	}
	if err := eng.InitializeUserLedger(alice); !errors.Is(err, ledger.ErrAlreadyInitialized) {
		t.Errorf("second init: got %v, want ErrAlreadyInitialized", err)
	}

	balance, err := eng.GetUserBalance(alice)
	if err != nil || balance != 0 {
		t.Errorf("fresh user balance: got (%d, %v)", balance, err)
	}
}

func TestGetUserBalance_Unknown(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if _, err := eng.GetUserBalance(bob); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
}

// ============================================================================
// Test: deposit
// ============================================================================

func TestDeposit_CreatesAndCredits(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 5_000_000_000)

	balance, err := eng.GetUserBalance(alice)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 5_000_000_000 {
		t.Errorf("balance: got %d, want 5_000_000_000", balance)
	}

	totalDeposits, custodyBalance, err := eng.GetVaultStats()
	if err != nil {
		t.Fatal(err)
	}
	if totalDeposits != 5_000_000_000 {
		t.Errorf("total deposits: got %d", totalDeposits)
	}
	if custodyBalance != 5_000_000_000 {
		t.Errorf("custody balance: got %d", custodyBalance)
	}
	if env.WalletBalance(alice) != 0 {
		t.Error("deposit should drain the wallet")
	}
}

func TestDeposit_ZeroAmount(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	// A zero deposit is a no-op credit but still creates the subledger.
	if err := eng.Deposit(alice, 0); err != nil {
		t.Fatalf("zero deposit: %v", err)
	}
	if balance, err := eng.GetUserBalance(alice); err != nil || balance != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", balance, err)
	}
}

func TestDeposit_BeforeVault(t *testing.T) {
	env := custody.NewMemory()
	eng := engine.New(env, venue.NewSim(env, 40_000_000, 0), testLogger())
	if err := eng.Deposit(alice, 1); !errors.Is(err, ledger.ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
}

func TestDeposit_InsufficientWallet(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	env.FundWallet(alice, 100)

	err := eng.Deposit(alice, 101)
	if !errors.Is(err, ledger.ErrInsufficientCustodyFunds) {
		t.Fatalf("got %v, want ErrInsufficientCustodyFunds", err)
	}

	// Failure leaves everything untouched, including the staged subledger.
	if env.WalletBalance(alice) != 100 || env.NativeBalance() != 0 {
		t.Error("failed deposit moved funds")
	}
	totalDeposits, _, _ := eng.GetVaultStats()
	if totalDeposits != 0 {
		t.Error("failed deposit changed vault totals")
	}
}

// ============================================================================
// Test: withdraw
// ============================================================================

func TestWithdraw(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 5_000_000_000)

	recipient := ledger.AddressFromName("recipient")
	if err := eng.Withdraw(alice, 2_000_000_000, recipient); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	balance, _ := eng.GetUserBalance(alice)
	if balance != 3_000_000_000 {
		t.Errorf("balance: got %d, want 3_000_000_000", balance)
	}
	if env.WalletBalance(recipient) != 2_000_000_000 {
		t.Errorf("recipient wallet: got %d", env.WalletBalance(recipient))
	}
	totalDeposits, custodyBalance, _ := eng.GetVaultStats()
	if totalDeposits != 3_000_000_000 || custodyBalance != 3_000_000_000 {
		t.Errorf("vault stats: got (%d, %d)", totalDeposits, custodyBalance)
	}
}

func TestWithdraw_MoreThanBalance(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 5_000_000_000)

	err := eng.Withdraw(alice, 6_000_000_000, alice)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if balance, _ := eng.GetUserBalance(alice); balance != 5_000_000_000 {
		t.Error("failed withdraw changed the balance")
	}
}

func TestWithdraw_WithoutSubledger(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	if err := eng.Withdraw(bob, 1, bob); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestDepositWithdraw_BalanceSumInvariant(t *testing.T) {
	eng, env, _ := newTestEngine(t)

	mustDeposit(t, eng, env, alice, 3_000_000_000)
	mustDeposit(t, eng, env, bob, 1_500_000_000)
	mustDeposit(t, eng, env, alice, 500_000_000)
	if err := eng.Withdraw(bob, 700_000_000, bob); err != nil {
		t.Fatal(err)
	}

	// Quiescent invariant over deposit/withdraw-only histories: the user
	// balance sum, the vault total, and the custody funds all agree.
	totalDeposits, custodyBalance, err := eng.GetVaultStats()
	if err != nil {
		t.Fatal(err)
	}
	sum := eng.Book().SumUserBalances()
	if sum != totalDeposits || totalDeposits != custodyBalance {
		t.Errorf("invariant broken: sum=%d total=%d custody=%d", sum, totalDeposits, custodyBalance)
	}
}

// ============================================================================
// Test: wrap / unwrap
// ============================================================================

func TestWrap(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 5_000_000_000)

	if err := eng.Wrap(alice, alice, 3_000_000_000); err != nil {
		t.Fatalf("wrap: %v", err)
	}

	balance, _ := eng.GetUserBalance(alice)
	if balance != 2_000_000_000 {
		t.Errorf("balance after wrap: got %d", balance)
	}
	cl, _ := eng.Book().TokenCustody()
	if cl.TotalWrapped != 3_000_000_000 {
		t.Errorf("cached wrapped total: got %d", cl.TotalWrapped)
	}
	if env.TokenBalance(custody.AssetWrapped) != 3_000_000_000 {
		t.Errorf("actual wrapped balance: got %d", env.TokenBalance(custody.AssetWrapped))
	}
}

func TestWrap_CosignerMismatch(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 1_000_000_000)

	if err := eng.Wrap(alice, bob, 1); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestWrap_InsufficientBalance(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 100)

	if err := eng.Wrap(alice, alice, 101); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestUnwrap_RoundTrip(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 5_000_000_000)
	if err := eng.Wrap(alice, alice, 3_000_000_000); err != nil {
		t.Fatal(err)
	}

	if err := eng.Unwrap(alice, alice, 3_000_000_000); err != nil {
		t.Fatalf("unwrap: %v", err)
	}

	balance, _ := eng.GetUserBalance(alice)
	if balance != 5_000_000_000 {
		t.Errorf("balance after round trip: got %d", balance)
	}
	cl, _ := eng.Book().TokenCustody()
	if cl.TotalWrapped != 0 {
		t.Errorf("cached wrapped total: got %d", cl.TotalWrapped)
	}
	// Draining closed the wrapped account; its reserve returned to the
	// custody pool on top of the unwrapped funds.
	want := uint64(5_000_000_000) + custody.DefaultAccountReserve
	if env.NativeBalance() != want {
		t.Errorf("custody native: got %d, want %d", env.NativeBalance(), want)
	}
}

func TestUnwrap_MoreThanWrapped(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 2_000_000_000)
	if err := eng.Wrap(alice, alice, 1_000_000_000); err != nil {
		t.Fatal(err)
	}

	err := eng.Unwrap(alice, alice, 1_000_000_001)
	if !errors.Is(err, ledger.ErrInsufficientWrappedBalance) {
		t.Errorf("got %v, want ErrInsufficientWrappedBalance", err)
	}
}

func TestAdminWrap(t *testing.T) {
	eng, env, _ := newTestEngine(t)
	mustDeposit(t, eng, env, alice, 2_000_000_000)

	if err := eng.AdminWrap(admin, alice, 1_000_000_000); err != nil {
		t.Fatalf("admin wrap: %v", err)
	}
	balance, _ := eng.GetUserBalance(alice)
	if balance != 1_000_000_000 {
		t.Errorf("balance: got %d", balance)
	}

	// Only the vault/custody authority may act on behalf of a user.
	if err := eng.AdminWrap(bob, alice, 1); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("non-authority: got %v, want ErrUnauthorized", err)
	}
}

// ============================================================================
// Test: operation sink
// ============================================================================

func TestSink_RecordsOnlyCommits(t *testing.T) {
	eng, env, sink := newTestEngine(t)
	bootstrapOps := len(sink.ops) // vault + custody init

	mustDeposit(t, eng, env, alice, 1_000_000_000)
	if err := eng.Withdraw(alice, 2_000_000_000, alice); err == nil {
		t.Fatal("overdrawn withdraw should fail")
	}

	if len(sink.ops) != bootstrapOps+1 {
		t.Fatalf("sink ops: got %d, want %d", len(sink.ops), bootstrapOps+1)
	}
	op := sink.ops[len(sink.ops)-1]
	if op.Type != event.OpTypeDeposit {
		t.Errorf("op type: got %s", op.Type)
	}
	if op.User != alice || op.Actor != alice || op.OnBehalf {
		t.Error("op identities wrong")
	}
	if op.AmountIn != 1_000_000_000 || op.Balance != 1_000_000_000 {
		t.Errorf("op amounts: in=%d balance=%d", op.AmountIn, op.Balance)
	}
	if op.OpID == (event.Operation{}).OpID {
		t.Error("op id should be assigned")
	}
}
