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

// WithdrawQuoteAsset transfers amount of the user's quote balance from
// custody to the user's external token wallet. Dual-signer authority.
func (e *Engine) WithdrawQuoteAsset(user, owner ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeWithdrawQuote, user, user, false)
	op.AmountIn = amount

	policy := auth.DualSigner{User: user, Owner: owner}
	return e.finish(op, start, e.withdrawQuote(policy, op, user, amount))
}

// AdminWithdrawQuoteAsset withdraws quote on behalf of targetUser under the
// administrator authorities. The funds still go to the target user's wallet.
func (e *Engine) AdminWithdrawQuoteAsset(authority, targetUser ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeWithdrawQuote, targetUser, authority, true)
	op.AmountIn = amount

	policy := auth.AdminOnBehalf{Caller: authority, TokenCustody: true}
	return e.finish(op, start, e.withdrawQuote(policy, op, targetUser, amount))
}

func (e *Engine) withdrawQuote(policy auth.Policy, op *event.Operation, user ledger.Address, amount uint64) error {
	custodyLedger, err := e.book.TokenCustody()
	if err != nil {
		return err
	}
	if err := policy.Evaluate(e.book); err != nil {
		return err
	}

	tok := e.book.TokenUser(user)
	if tok == nil {
		return fmt.Errorf("token ledger for %s: %w", user, ledger.ErrNotInitialized)
	}

	if tok.QuoteBalance < amount {
		return fmt.Errorf("withdraw %d with quote balance %d: %w",
			amount, tok.QuoteBalance, ledger.ErrInsufficientQuoteBalance)
	}
	if e.env.TokenBalance(custody.AssetQuote) < amount {
		return fmt.Errorf("withdraw %d with custody quote %d: %w",
			amount, e.env.TokenBalance(custody.AssetQuote), ledger.ErrInsufficientCustodyFunds)
	}

	newTok := tok.Clone()
	newCustody := custodyLedger.Clone()

	var ok bool
	if newTok.QuoteBalance, ok = vmath.CheckedSub(newTok.QuoteBalance, amount); !ok {
		return fmt.Errorf("quote balance: %w", ledger.ErrArithmeticOverflow)
	}
	if newCustody.TotalQuote, ok = vmath.CheckedSub(newCustody.TotalQuote, amount); !ok {
		return fmt.Errorf("custody quote total: %w", ledger.ErrArithmeticOverflow)
	}

	sp := e.env.Savepoint()
	if err := e.env.TransferTokenOut(custody.AssetQuote, user, amount); err != nil {
		e.env.Rollback(sp)
		return fmt.Errorf("quote transfer: %w", err)
	}

	e.book.PutTokenUser(newTok)
	e.book.SetTokenCustody(newCustody)
	return nil
}
