package ledger

// Book holds every ledger record. A record that is absent from its map is
// uninitialized; GetOrCreate accessors are the only way a record comes into
// existence, replacing the original sentinel-owner pattern with an explicit
// one-way Uninitialized -> Active transition.
type Book struct {
	vault      *Vault
	custody    *TokenCustody
	stats      *SwapStats
	users      map[Address]*UserSubledger
	tokenUsers map[Address]*UserTokenSubledger
}

func NewBook() *Book {
	return &Book{
		users:      make(map[Address]*UserSubledger),
		tokenUsers: make(map[Address]*UserTokenSubledger),
	}
}

// InitVault creates the vault singleton. The creator supplies the authority;
// no prior authority is required for bootstrap.
func (b *Book) InitVault(authority Address) error {
	if b.vault != nil {
		return ErrAlreadyInitialized
	}
	b.vault = &Vault{Authority: authority}
	return nil
}

// InitTokenCustody creates the token custody singleton together with the
// swap statistics record.
func (b *Book) InitTokenCustody(authority, wrappedAccount, quoteAccount Address) error {
	if b.custody != nil {
		return ErrAlreadyInitialized
	}
	b.custody = &TokenCustody{
		Authority:      authority,
		WrappedAccount: wrappedAccount,
		QuoteAccount:   quoteAccount,
	}
	b.stats = &SwapStats{}
	return nil
}

// Vault returns the vault singleton or ErrNotInitialized.
func (b *Book) Vault() (*Vault, error) {
	if b.vault == nil {
		return nil, ErrNotInitialized
	}
	return b.vault, nil
}

// TokenCustody returns the custody singleton or ErrNotInitialized.
func (b *Book) TokenCustody() (*TokenCustody, error) {
	if b.custody == nil {
		return nil, ErrNotInitialized
	}
	return b.custody, nil
}

// SwapStats returns the statistics singleton or ErrNotInitialized.
func (b *Book) SwapStats() (*SwapStats, error) {
	if b.stats == nil {
		return nil, ErrNotInitialized
	}
	return b.stats, nil
}

// User returns an existing subledger or nil.
func (b *Book) User(owner Address) *UserSubledger {
	return b.users[owner]
}

// GetOrCreateUser returns the subledger for owner, creating an empty Active
// record on first touch.
func (b *Book) GetOrCreateUser(owner Address) *UserSubledger {
	u := b.users[owner]
	if u == nil {
		u = &UserSubledger{Owner: owner}
		b.users[owner] = u
	}
	return u
}

// TokenUser returns an existing token subledger or nil.
func (b *Book) TokenUser(owner Address) *UserTokenSubledger {
	return b.tokenUsers[owner]
}

// GetOrCreateTokenUser returns the token subledger for owner, creating an
// empty Active record on first touch.
func (b *Book) GetOrCreateTokenUser(owner Address) *UserTokenSubledger {
	ut := b.tokenUsers[owner]
	if ut == nil {
		ut = &UserTokenSubledger{Owner: owner}
		b.tokenUsers[owner] = ut
	}
	return ut
}

// PutUser installs a staged subledger copy. Used by the engine at commit.
func (b *Book) PutUser(u *UserSubledger) {
	b.users[u.Owner] = u
}

// PutTokenUser installs a staged token subledger copy.
func (b *Book) PutTokenUser(ut *UserTokenSubledger) {
	b.tokenUsers[ut.Owner] = ut
}

// SetVault installs a staged vault copy.
func (b *Book) SetVault(v *Vault) {
	b.vault = v
}

// SetTokenCustody installs a staged custody copy.
func (b *Book) SetTokenCustody(tc *TokenCustody) {
	b.custody = tc
}

// SetSwapStats installs a staged statistics copy.
func (b *Book) SetSwapStats(s *SwapStats) {
	b.stats = s
}

// SumUserBalances returns the sum of all live user base balances. Quiescent
// invariant: equals Vault.TotalDeposits over deposit/withdraw-only histories.
func (b *Book) SumUserBalances() uint64 {
	var sum uint64
	for _, u := range b.users {
		sum += u.CurrentBalance
	}
	return sum
}
