package bank

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/account"
	"github.com/lab-banks/banks/internal/model"
)

// DebitInterest is one day of interest on a debit account:
// balance * (debitRate / 365).
func (b *Bank) DebitInterest(a *account.Account) decimal.Decimal {
	return a.Balance().Mul(b.conditions.DebitInterest().Div(DaysInYear))
}

// DepositInterest is one day of interest on a deposit account:
// balance * (tierRate(balance) / 365).
func (b *Bank) DepositInterest(a *account.Account) (decimal.Decimal, error) {
	rate, err := b.conditions.InterestForDeposit(a.Balance())
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance().Mul(rate.Div(DaysInYear)), nil
}

// CreditLoan is one day of loan charge on a credit account: zero while the
// balance is positive, else (balance - creditLimit) - loanCommission/365.
func (b *Bank) CreditLoan(a *account.Account) decimal.Decimal {
	if a.Balance().IsPositive() {
		return decimal.Zero
	}
	return a.Balance().Sub(b.conditions.CreditLimit()).Sub(b.conditions.LoanCommission().Div(DaysInYear))
}

// AdvanceOneDay moves the bank clock forward a day, advances deposit clocks,
// and adds one day of accrual to every account's pending value. Accounts that
// fail keep their previous pending value; the failures are returned joined.
func (b *Bank) AdvanceOneDay() error {
	b.now = b.now.AddDate(0, 0, 1)
	for _, ca := range b.clients {
		for _, a := range ca.Accounts() {
			a.AdvanceTime(b.now)
		}
	}

	var errs []error
	for _, ca := range b.clients {
		for _, a := range ca.Accounts() {
			pending, _ := ca.Pending(a.ID())
			var next decimal.Decimal
			switch a.Kind() {
			case model.AccountKindCredit:
				next = pending.Sub(b.CreditLoan(a))
			case model.AccountKindDebit:
				next = pending.Add(b.DebitInterest(a))
			case model.AccountKindDeposit:
				interest, err := b.DepositInterest(a)
				if err != nil {
					errs = append(errs, fmt.Errorf("accrual on %s: %w", a.ID(), err))
					continue
				}
				next = pending.Add(interest)
			}
			if err := ca.ChangeAccrual(a, next); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Warn("daily accrual incomplete", "date", b.now.Format("2006-01-02"), "error", err)
		return err
	}
	return nil
}

// ApplyAccrual folds every pending accrual into real balances.
func (b *Bank) ApplyAccrual() error {
	var errs []error
	for _, ca := range b.clients {
		if err := ca.ApplyAccrual(); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	b.recorder.AccrualApplied(err)
	if err != nil {
		b.logger.Warn("accrual applied with failures", "error", err)
		return err
	}
	b.logger.Info("accrual applied", "date", b.now.Format("2006-01-02"), "clients", len(b.clients))
	return nil
}

// PendingTotal sums the pending accrual over every account, for reporting.
func (b *Bank) PendingTotal() decimal.Decimal {
	total := decimal.Zero
	for _, ca := range b.clients {
		for _, a := range ca.Accounts() {
			p, _ := ca.Pending(a.ID())
			total = total.Add(p)
		}
	}
	return total
}
