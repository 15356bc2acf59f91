package engine

import (
	"fmt"
	"time"

	"vaultledger/internal/auth"
	"vaultledger/internal/event"
	"vaultledger/internal/ledger"
	vmath "vaultledger/internal/math"
)

// Deposit moves amount of base asset from the user's external wallet into
// custody and credits the user's subledger, creating it on first deposit.
// A zero amount is permitted.
func (e *Engine) Deposit(user ledger.Address, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeDeposit, user, user, false)
	op.AmountIn = amount

	vault, err := e.book.Vault()
	if err != nil {
		return e.finish(op, start, err)
	}

	// Stage on clones; nothing below mutates live records until commit.
	newVault := vault.Clone()
	sub := e.book.User(user)
	var newSub *ledger.UserSubledger
	if sub != nil {
		newSub = sub.Clone()
	} else {
		newSub = &ledger.UserSubledger{Owner: user}
	}

	var ok bool
	if newVault.TotalDeposits, ok = vmath.CheckedAdd(newVault.TotalDeposits, amount); !ok {
		return e.finish(op, start, fmt.Errorf("vault total deposits: %w", ledger.ErrArithmeticOverflow))
	}
	if newSub.TotalDeposited, ok = vmath.CheckedAdd(newSub.TotalDeposited, amount); !ok {
		return e.finish(op, start, fmt.Errorf("user total deposited: %w", ledger.ErrArithmeticOverflow))
	}
	if newSub.CurrentBalance, ok = vmath.CheckedAdd(newSub.CurrentBalance, amount); !ok {
		return e.finish(op, start, fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow))
	}
	newSub.LastTransaction = e.now().Unix()

	sp := e.env.Savepoint()
	if err := e.env.TransferIn(user, amount); err != nil {
		e.env.Rollback(sp)
		return e.finish(op, start, fmt.Errorf("deposit transfer: %w", err))
	}

	e.book.SetVault(newVault)
	e.book.PutUser(newSub)
	op.Balance = newSub.CurrentBalance
	return e.finish(op, start, nil)
}

// Withdraw moves amount of base asset from custody to recipient. Requires
// owner-direct authority over the subledger.
func (e *Engine) Withdraw(owner ledger.Address, amount uint64, recipient ledger.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	op := e.newOp(event.OpTypeWithdraw, owner, owner, false)
	op.AmountIn = amount

	vault, err := e.book.Vault()
	if err != nil {
		return e.finish(op, start, err)
	}
	if err := (auth.OwnerDirect{Caller: owner}).Evaluate(e.book); err != nil {
		return e.finish(op, start, err)
	}
	sub := e.book.User(owner)

	if sub.CurrentBalance < amount {
		return e.finish(op, start, fmt.Errorf("withdraw %d with balance %d: %w",
			amount, sub.CurrentBalance, ledger.ErrInsufficientBalance))
	}
	if e.env.NativeBalance() < amount {
		return e.finish(op, start, fmt.Errorf("withdraw %d with custody %d: %w",
			amount, e.env.NativeBalance(), ledger.ErrInsufficientCustodyFunds))
	}

	newVault := vault.Clone()
	newSub := sub.Clone()

	var ok bool
	if newSub.CurrentBalance, ok = vmath.CheckedSub(newSub.CurrentBalance, amount); !ok {
		return e.finish(op, start, fmt.Errorf("user balance: %w", ledger.ErrArithmeticOverflow))
	}
	if newSub.TotalWithdrawn, ok = vmath.CheckedAdd(newSub.TotalWithdrawn, amount); !ok {
		return e.finish(op, start, fmt.Errorf("user total withdrawn: %w", ledger.ErrArithmeticOverflow))
	}
	if newVault.TotalDeposits, ok = vmath.CheckedSub(newVault.TotalDeposits, amount); !ok {
		return e.finish(op, start, fmt.Errorf("vault total deposits: %w", ledger.ErrArithmeticOverflow))
	}
	newSub.LastTransaction = e.now().Unix()

	sp := e.env.Savepoint()
	if err := e.env.TransferOut(recipient, amount); err != nil {
		e.env.Rollback(sp)
		return e.finish(op, start, fmt.Errorf("withdraw transfer: %w", err))
	}

	e.book.SetVault(newVault)
	e.book.PutUser(newSub)
	op.Balance = newSub.CurrentBalance
	return e.finish(op, start, nil)
}
