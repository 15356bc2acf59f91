package engine

import (
	"fmt"
	"time"

	"vaultledger/internal/auth"
	"vaultledger/internal/custody"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	vmath "vaultledger/internal/math"
)

// Wrap converts amount of the user's custody-held base asset into the
// custody wrapped-base holding. Dual-signer authority.
func (e *Engine) Wrap(user, owner ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeWrap, user, user, false)
	op.AmountIn = amount

	policy := auth.DualSigner{User: user, Owner: owner}
	return e.finish(op, start, e.wrap(policy, op, user, amount))
}

// AdminWrap wraps on behalf of targetUser. The caller must hold both the
// vault and token custody authorities.
func (e *Engine) AdminWrap(authority, targetUser ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeWrap, targetUser, authority, true)
	op.AmountIn = amount

	policy := auth.AdminOnBehalf{Caller: authority, TokenCustody: true}
	return e.finish(op, start, e.wrap(policy, op, targetUser, amount))
}

func (e *Engine) wrap(policy auth.Policy, op *event.Operation, user ledger.Address, amount uint64) error {
	custodyLedger, err := e.book.TokenCustody()
	if err != nil {
		return err
	}
	if err := policy.Evaluate(e.book); err != nil {
		return err
	}

	sub := e.book.User(user)
	if sub == nil {
		return fmt.Errorf("user ledger for %s: %w", user, ledger.ErrNotInitialized)
	}

	if sub.CurrentBalance < amount {
		return fmt.Errorf("wrap %d with balance %d: %w",
			amount, sub.CurrentBalance, ledger.ErrInsufficientBalance)
	}
	if e.env.NativeBalance() < amount {
		return fmt.Errorf("wrap %d with custody %d: %w",
			amount, e.env.NativeBalance(), ledger.ErrInsufficientCustodyFunds)
	}

	newSub := sub.Clone()
	newCustody := custodyLedger.Clone()

	var ok bool
	if newSub.CurrentBalance, ok = vmath.CheckedSub(newSub.CurrentBalance, amount); !ok {
		return fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newCustody.TotalWrapped, ok = vmath.CheckedAdd(newCustody.TotalWrapped, amount); !ok {
		return fmt.Errorf("custody wrapped total: %w", ledger.ErrArithmeticOverflow)
	}
	newSub.LastTransaction = e.now().Unix()

	// The environment synchronizes the token account balance with the
	// physical transfer before returning; the cached total stays reconciled.
	sp := e.env.Savepoint()
	if err := e.env.Wrap(amount); err != nil {
		e.env.Rollback(sp)
		return fmt.Errorf("wrap transfer: %w", err)
	}

	e.book.PutUser(newSub)
	e.book.SetTokenCustody(newCustody)
	op.Balance = newSub.CurrentBalance
	return nil
}

// Unwrap converts amount of custody wrapped base back into the user's
// spendable base balance. Draining the custody wrapped account closes it and
// returns its residual reserve to custody. Dual-signer authority.
func (e *Engine) Unwrap(user, owner ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeUnwrap, user, user, false)
	op.AmountIn = amount

	custodyLedger, err := e.book.TokenCustody()
	if err != nil {
		return e.finish(op, start, err)
	}
	if err := (auth.DualSigner{User: user, Owner: owner}).Evaluate(e.book); err != nil {
		return e.finish(op, start, err)
	}
	sub := e.book.User(user)

	if e.env.TokenBalance(custody.AssetWrapped) < amount {
		return e.finish(op, start, fmt.Errorf("unwrap %d with account balance %d: %w",
			amount, e.env.TokenBalance(custody.AssetWrapped), ledger.ErrInsufficientWrappedBalance))
	}
	if custodyLedger.TotalWrapped < amount {
		return e.finish(op, start, fmt.Errorf("unwrap %d with cached total %d: %w",
			amount, custodyLedger.TotalWrapped, ledger.ErrInsufficientWrappedBalance))
	}

	newSub := sub.Clone()
	newCustody := custodyLedger.Clone()

	var ok bool
	if newSub.CurrentBalance, ok = vmath.CheckedAdd(newSub.CurrentBalance, amount); !ok {
		return e.finish(op, start, fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow))
	}
	if newCustody.TotalWrapped, ok = vmath.CheckedSub(newCustody.TotalWrapped, amount); !ok {
		return e.finish(op, start, fmt.Errorf("custody wrapped total: %w", ledger.ErrArithmeticOverflow))
	}
	newSub.LastTransaction = e.now().Unix()

	sp := e.env.Savepoint()
	if err := e.env.Unwrap(amount); err != nil {
		e.env.Rollback(sp)
		return e.finish(op, start, fmt.Errorf("unwrap transfer: %w", err))
	}

	e.book.PutUser(newSub)
	e.book.SetTokenCustody(newCustody)
	op.Balance = newSub.CurrentBalance
	return e.finish(op, start, nil)
}
