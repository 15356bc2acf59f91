// Package auth implements the three authorization patterns of the vault:
// owner-direct, dual-signer delegation, and administrator-on-behalf. A
// policy is evaluated against already-authenticated identities before any
// operation body runs; the engine never mutates on a failed policy.
package auth

import (
	"fmt"

	"vaultledger/internal/ledger"
)

// Policy is one authorization decision. Evaluate returns ErrUnauthorized
// (wrapped with context) on any identity mismatch.
type Policy interface {
	Evaluate(book *ledger.Book) error
}

// OwnerDirect requires the caller to be the stored owner of the target
// subledger.
type OwnerDirect struct {
	Caller ledger.Address
}

func (p OwnerDirect) Evaluate(book *ledger.Book) error {
	sub := book.User(p.Caller)
	if sub == nil || sub.Owner != p.Caller {
		return fmt.Errorf("owner-direct: %w", ledger.ErrUnauthorized)
	}
	return nil
}

// DualSigner requires two authenticated identities: the beneficiary User and
// a cosigning Owner equal to the stored owner of the user's subledger. This
// models a custodial session where a controller co-approves beneficiary
// actions.
type DualSigner struct {
	User  ledger.Address
	Owner ledger.Address
}

func (p DualSigner) Evaluate(book *ledger.Book) error {
	sub := book.User(p.User)
	if sub == nil {
		return fmt.Errorf("dual-signer: no subledger for user: %w", ledger.ErrUnauthorized)
	}
	if sub.Owner != p.Owner {
		return fmt.Errorf("dual-signer: cosigner mismatch: %w", ledger.ErrUnauthorized)
	}
	return nil
}

// AdminOnBehalf requires the caller to hold the vault authority and, when
// token custody is touched, the token custody authority. The operation then
// acts on a target user's subledgers directly.
type AdminOnBehalf struct {
	Caller       ledger.Address
	TokenCustody bool // also check TokenCustody.Authority
}

func (p AdminOnBehalf) Evaluate(book *ledger.Book) error {
	vault, err := book.Vault()
	if err != nil {
		return err
	}
	if vault.Authority != p.Caller {
		return fmt.Errorf("admin-on-behalf: vault authority mismatch: %w", ledger.ErrUnauthorized)
	}

	if p.TokenCustody {
		custody, err := book.TokenCustody()
		if err != nil {
			return err
		}
		if custody.Authority != p.Caller {
			return fmt.Errorf("admin-on-behalf: custody authority mismatch: %w", ledger.ErrUnauthorized)
		}
	}

	return nil
}
