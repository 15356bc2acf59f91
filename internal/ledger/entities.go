package ledger

// Vault is the singleton aggregate over all base-asset custody.
// TotalDeposits tracks direct deposit/withdraw volume only: fixed-rate and
// venue swaps move value through the token custody without touching it.
type Vault struct {
	Authority     Address
	TotalDeposits uint64
}

// UserSubledger is the per-user base-asset record. CurrentBalance is the
// live spendable balance; TotalDeposited/TotalWithdrawn count only direct
// deposit/withdraw volume, so CurrentBalance need not equal their difference
// once swaps have run.
type UserSubledger struct {
	Owner           Address
	TotalDeposited  uint64
	TotalWithdrawn  uint64
	CurrentBalance  uint64
	LastTransaction int64 // unix seconds
}

// TokenCustody is the singleton cached view over the two custody-held token
// accounts. TotalWrapped/TotalQuote must equal the actual token account
// balances; venue swaps refresh them from re-read balances.
type TokenCustody struct {
	Authority      Address
	WrappedAccount Address
	QuoteAccount   Address
	TotalWrapped   uint64
	TotalQuote     uint64
}

// UserTokenSubledger is the per-user record of custody-held token balances.
// TotalSwapped is volume denominated in the asset given up.
type UserTokenSubledger struct {
	Owner          Address
	WrappedBalance uint64
	QuoteBalance   uint64
	LastSwap       int64 // unix seconds
	TotalSwapped   uint64
}

// SwapStats is the singleton, monotonically accumulated swap bookkeeping.
// Advisory only; never consulted for authorization.
type SwapStats struct {
	TotalBaseSwapped   uint64
	TotalQuoteReceived uint64
	LastSwapPrice      uint64 // quote per base, scaled by PriceScale
	SwapCount          uint64
}

// PriceScale is the fixed-point scale of SwapStats.LastSwapPrice.
const PriceScale = 1_000_000

func (v *Vault) Clone() *Vault {
	c := *v
	return &c
}

func (u *UserSubledger) Clone() *UserSubledger {
	c := *u
	return &c
}

func (tc *TokenCustody) Clone() *TokenCustody {
	c := *tc
	return &c
}

func (ut *UserTokenSubledger) Clone() *UserTokenSubledger {
	c := *ut
	return &c
}

func (s *SwapStats) Clone() *SwapStats {
	c := *s
	return &c
}
