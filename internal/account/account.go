// Package account implements the balance holders opened by a bank.
//
// An Account is a tagged variant: its Kind selects the minimum-balance rule
// applied to every mutation and, for deposits, the maturity guard on withdrawal.
package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/model"
)

var (
	// ErrInvalidAmount is returned when an amount or resulting balance falls
	// below the debit or deposit floor.
	ErrInvalidAmount = fmt.Errorf("%w: amount has not passed validation", model.ErrValidation)

	// ErrInvalidMaturity is returned when a deposit matures before it opens.
	ErrInvalidMaturity = fmt.Errorf("%w: maturity date precedes opening date", model.ErrValidation)

	// ErrMaturityNotReached is returned for deposit withdrawals before maturity.
	ErrMaturityNotReached = fmt.Errorf("%w: deposit maturity not reached", model.ErrBusinessRule)

	// ErrCreditThreshold is returned when a credit amount or resulting
	// balance is below the account's threshold.
	ErrCreditThreshold = fmt.Errorf("%w: credit threshold not satisfied", model.ErrBusinessRule)
)

// Account holds a balance and the rule data of its variant.
type Account struct {
	id      string
	kind    model.AccountKind
	balance decimal.Decimal

	threshold decimal.Decimal // credit only

	openedAt  time.Time // deposit only
	maturesAt time.Time // deposit only
	now       time.Time // deposit only
}

// NewDebit opens a debit account. The floor is zero.
func NewDebit(balance decimal.Decimal) (*Account, error) {
	a := &Account{id: id.New(), kind: model.AccountKindDebit}
	if err := a.check(balance); err != nil {
		return nil, err
	}
	a.balance = balance
	return a, nil
}

// NewDeposit opens a deposit account at openedAt that cannot be withdrawn
// from before maturesAt.
func NewDeposit(balance decimal.Decimal, openedAt, maturesAt time.Time) (*Account, error) {
	a := &Account{id: id.New(), kind: model.AccountKindDeposit}
	if err := a.check(balance); err != nil {
		return nil, err
	}
	if maturesAt.Before(openedAt) {
		return nil, ErrInvalidMaturity
	}
	a.balance = balance
	a.openedAt = openedAt
	a.maturesAt = maturesAt
	a.now = openedAt
	return a, nil
}

// NewCredit opens a credit account whose amounts and balance must stay at or
// above threshold.
func NewCredit(balance, threshold decimal.Decimal) (*Account, error) {
	a := &Account{id: id.New(), kind: model.AccountKindCredit, threshold: threshold}
	if err := a.check(balance); err != nil {
		return nil, err
	}
	a.balance = balance
	return a, nil
}

// ID returns the account identifier.
func (a *Account) ID() string { return a.id }

// Kind returns the account variant.
func (a *Account) Kind() model.AccountKind { return a.kind }

// Balance returns the current balance.
func (a *Account) Balance() decimal.Decimal { return a.balance }

// Threshold returns the credit threshold; zero for other kinds.
func (a *Account) Threshold() decimal.Decimal { return a.threshold }

// OpenedAt returns the deposit opening date; zero for other kinds.
func (a *Account) OpenedAt() time.Time { return a.openedAt }

// MaturesAt returns the deposit maturity date; zero for other kinds.
func (a *Account) MaturesAt() time.Time { return a.maturesAt }

// Now returns the deposit's internal clock; zero for other kinds.
func (a *Account) Now() time.Time { return a.now }

// Withdraw removes amount from the balance. Both amount and the resulting
// balance must pass the variant rule; on failure the balance is unchanged.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if err := a.CanWithdraw(amount); err != nil {
		return err
	}
	a.balance = a.balance.Sub(amount)
	return nil
}

// CanWithdraw reports the error Withdraw would return, without mutating.
func (a *Account) CanWithdraw(amount decimal.Decimal) error {
	if err := a.guard(); err != nil {
		return err
	}
	if err := a.check(amount); err != nil {
		return err
	}
	return a.check(a.balance.Sub(amount))
}

// TopUp adds amount to the balance after validating amount alone.
func (a *Account) TopUp(amount decimal.Decimal) error {
	if err := a.CanTopUp(amount); err != nil {
		return err
	}
	a.balance = a.balance.Add(amount)
	return nil
}

// CanTopUp reports the error TopUp would return, without mutating.
func (a *Account) CanTopUp(amount decimal.Decimal) error {
	return a.check(amount)
}

// Transfer is the source side of a transfer and behaves like Withdraw.
func (a *Account) Transfer(amount decimal.Decimal) error {
	return a.Withdraw(amount)
}

// AdvanceTime sets a deposit's internal clock. Other kinds ignore it.
func (a *Account) AdvanceTime(now time.Time) {
	if a.kind == model.AccountKindDeposit {
		a.now = now
	}
}

// Mature reports whether a deposit may be withdrawn from. Other kinds are
// always mature.
func (a *Account) Mature() bool {
	return a.kind != model.AccountKindDeposit || !a.now.Before(a.maturesAt)
}

func (a *Account) guard() error {
	if !a.Mature() {
		return fmt.Errorf("%w: matures %s, now %s", ErrMaturityNotReached,
			a.maturesAt.Format(time.DateOnly), a.now.Format(time.DateOnly))
	}
	return nil
}

func (a *Account) validateMoney(v decimal.Decimal) bool {
	switch a.kind {
	case model.AccountKindCredit:
		return v.GreaterThanOrEqual(a.threshold)
	default:
		return !v.IsNegative()
	}
}

func (a *Account) check(v decimal.Decimal) error {
	if a.validateMoney(v) {
		return nil
	}
	if a.kind == model.AccountKindCredit {
		return fmt.Errorf("%w: %s < %s", ErrCreditThreshold, v, a.threshold)
	}
	return fmt.Errorf("%w: %s", ErrInvalidAmount, v)
}
