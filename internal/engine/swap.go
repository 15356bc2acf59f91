package engine

import (
	"fmt"
	"time"

	"vaultledger/internal/auth"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	vmath "vaultledger/internal/math"
)

// SwapBaseToQuote converts amount of the user's base balance into quote at
// the fixed internal rate. Pure ledger move, no custody funds change hands.
// Dual-signer authority.
func (e *Engine) SwapBaseToQuote(user, owner ledger.Address, amount, minOut uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeSwapBaseToQuote, user, user, false)
	op.AmountIn = amount

	policy := auth.DualSigner{User: user, Owner: owner}
	return e.finish(op, start, e.swapBaseToQuote(policy, op, user, amount, minOut))
}

// AdminSwapBaseToQuote performs the base-to-quote swap on behalf of
// targetUser under the administrator authorities.
func (e *Engine) AdminSwapBaseToQuote(authority, targetUser ledger.Address, amount, minOut uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeSwapBaseToQuote, targetUser, authority, true)
	op.AmountIn = amount

	policy := auth.AdminOnBehalf{Caller: authority, TokenCustody: true}
	return e.finish(op, start, e.swapBaseToQuote(policy, op, targetUser, amount, minOut))
}

// SwapQuoteToBase converts amount of the user's quote balance back into
// base at the fixed internal rate. The two fixed rates are not exact
// inverses; a round trip does not restore the starting value.
func (e *Engine) SwapQuoteToBase(user, owner ledger.Address, amount, minOut uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeSwapQuoteToBase, user, user, false)
	op.AmountIn = amount

	policy := auth.DualSigner{User: user, Owner: owner}
	return e.finish(op, start, e.swapQuoteToBase(policy, op, user, amount, minOut))
}

// AdminSwapQuoteToBase performs the quote-to-base swap on behalf of
// targetUser under the administrator authorities.
func (e *Engine) AdminSwapQuoteToBase(authority, targetUser ledger.Address, amount, minOut uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeSwapQuoteToBase, targetUser, authority, true)
	op.AmountIn = amount

	policy := auth.AdminOnBehalf{Caller: authority, TokenCustody: true}
	return e.finish(op, start, e.swapQuoteToBase(policy, op, targetUser, amount, minOut))
}

func (e *Engine) swapBaseToQuote(policy auth.Policy, op *event.Operation, user ledger.Address, amount, minOut uint64) error {
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
		return fmt.Errorf("swap %d with balance %d: %w",
			amount, sub.CurrentBalance, ledger.ErrInsufficientBalance)
	}
	if custodyLedger.TotalWrapped < amount {
		return fmt.Errorf("swap %d with custody wrapped %d: %w",
			amount, custodyLedger.TotalWrapped, ledger.ErrInsufficientWrappedBalance)
	}

	// The swap pays out of the user's wrapped holding as well as the base
	// subledger, so a user with no wrapped balance cannot swap.
	tok := e.book.TokenUser(user)
	var newTok *ledger.UserTokenSubledger
	if tok != nil {
		newTok = tok.Clone()
	} else {
		newTok = &ledger.UserTokenSubledger{Owner: user}
	}
	if newTok.WrappedBalance < amount {
		return fmt.Errorf("swap %d with wrapped balance %d: %w",
			amount, newTok.WrappedBalance, ledger.ErrInsufficientWrappedBalance)
	}

	out, ok := vmath.MulDiv(amount, BaseToQuoteRate, BaseToQuoteScale)
	if !ok {
		return fmt.Errorf("swap output: %w", ledger.ErrArithmeticOverflow)
	}
	if out < minOut {
		return fmt.Errorf("output %d below minimum %d: %w", out, minOut, ledger.ErrSlippageExceeded)
	}

	newSub := sub.Clone()
	if newSub.CurrentBalance, ok = vmath.CheckedSub(newSub.CurrentBalance, amount); !ok {
		return fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newTok.WrappedBalance, ok = vmath.CheckedSub(newTok.WrappedBalance, amount); !ok {
		return fmt.Errorf("wrapped balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newTok.QuoteBalance, ok = vmath.CheckedAdd(newTok.QuoteBalance, out); !ok {
		return fmt.Errorf("quote balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newTok.TotalSwapped, ok = vmath.CheckedAdd(newTok.TotalSwapped, amount); !ok {
		return fmt.Errorf("swap volume: %w", ledger.ErrArithmeticOverflow)
	}

	now := e.now().Unix()
	newTok.LastSwap = now
	newSub.LastTransaction = now

	e.book.PutUser(newSub)
	e.book.PutTokenUser(newTok)
	op.AmountOut = out
	op.Balance = newSub.CurrentBalance
	return nil
}

func (e *Engine) swapQuoteToBase(policy auth.Policy, op *event.Operation, user ledger.Address, amount, minOut uint64) error {
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

	tok := e.book.TokenUser(user)
	var newTok *ledger.UserTokenSubledger
	if tok != nil {
		newTok = tok.Clone()
	} else {
		newTok = &ledger.UserTokenSubledger{Owner: user}
	}

	if newTok.QuoteBalance < amount {
		return fmt.Errorf("swap %d with quote balance %d: %w",
			amount, newTok.QuoteBalance, ledger.ErrInsufficientQuoteBalance)
	}
	if custodyLedger.TotalQuote < amount {
		return fmt.Errorf("swap %d with custody quote %d: %w",
			amount, custodyLedger.TotalQuote, ledger.ErrInsufficientCustodyFunds)
	}

	out, ok := vmath.MulDiv(amount, QuoteToBaseRate, QuoteToBaseScale)
	if !ok {
		return fmt.Errorf("swap output: %w", ledger.ErrArithmeticOverflow)
	}
	if out < minOut {
		return fmt.Errorf("output %d below minimum %d: %w", out, minOut, ledger.ErrSlippageExceeded)
	}

	newSub := sub.Clone()
	if newTok.QuoteBalance, ok = vmath.CheckedSub(newTok.QuoteBalance, amount); !ok {
		return fmt.Errorf("quote balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newTok.WrappedBalance, ok = vmath.CheckedAdd(newTok.WrappedBalance, out); !ok {
		return fmt.Errorf("wrapped balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newSub.CurrentBalance, ok = vmath.CheckedAdd(newSub.CurrentBalance, out); !ok {
		return fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newTok.TotalSwapped, ok = vmath.CheckedAdd(newTok.TotalSwapped, amount); !ok {
		return fmt.Errorf("swap volume: %w", ledger.ErrArithmeticOverflow)
	}

	now := e.now().Unix()
	newTok.LastSwap = now
	newSub.LastTransaction = now

	e.book.PutUser(newSub)
	e.book.PutTokenUser(newTok)
	op.AmountOut = out
	op.Balance = newSub.CurrentBalance
	return nil
}
