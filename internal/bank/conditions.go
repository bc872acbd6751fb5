package bank

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// DaysInYear divides annual rates into daily accruals.
var DaysInYear = decimal.NewFromInt(365)

// DepositTier maps balances below Threshold to Rate.
type DepositTier struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
}

// ConditionsParams holds the values for NewConditions.
type ConditionsParams struct {
	DepositTiers            []DepositTier
	CreditLimit             decimal.Decimal
	LoanCommission          decimal.Decimal
	DebitInterest           decimal.Decimal
	UnverifiedWithdrawalCap decimal.Decimal
}

// Conditions is a bank's mutable rule set. Every value is non-negative.
type Conditions struct {
	depositTiers   []DepositTier // sorted by threshold
	creditLimit    decimal.Decimal
	loanCommission decimal.Decimal
	debitInterest  decimal.Decimal
	unverifiedCap  decimal.Decimal
}

// NewConditions validates params and returns a rule set.
func NewConditions(p ConditionsParams) (*Conditions, error) {
	tiers, err := normalizeTiers(p.DepositTiers)
	if err != nil {
		return nil, err
	}
	checks := []struct {
		name  string
		value decimal.Decimal
	}{
		{"credit limit", p.CreditLimit},
		{"loan commission", p.LoanCommission},
		{"debit interest", p.DebitInterest},
		{"unverified withdrawal cap", p.UnverifiedWithdrawalCap},
	}
	for _, c := range checks {
		if err := checkCondition(c.name, c.value); err != nil {
			return nil, err
		}
	}
	return &Conditions{
		depositTiers:   tiers,
		creditLimit:    p.CreditLimit,
		loanCommission: p.LoanCommission,
		debitInterest:  p.DebitInterest,
		unverifiedCap:  p.UnverifiedWithdrawalCap,
	}, nil
}

func (c *Conditions) CreditLimit() decimal.Decimal             { return c.creditLimit }
func (c *Conditions) LoanCommission() decimal.Decimal          { return c.loanCommission }
func (c *Conditions) DebitInterest() decimal.Decimal           { return c.debitInterest }
func (c *Conditions) UnverifiedWithdrawalCap() decimal.Decimal { return c.unverifiedCap }

// DepositTiers returns a copy of the tier table in threshold order.
func (c *Conditions) DepositTiers() []DepositTier {
	return slices.Clone(c.depositTiers)
}

// Clone returns an independent copy of c.
func (c *Conditions) Clone() *Conditions {
	cp := *c
	cp.depositTiers = slices.Clone(c.depositTiers)
	return &cp
}

// InterestForDeposit returns the rate of the smallest threshold strictly
// greater than balance. The table's highest threshold must exceed any balance
// it is asked about.
func (c *Conditions) InterestForDeposit(balance decimal.Decimal) (decimal.Decimal, error) {
	for _, t := range c.depositTiers {
		if balance.LessThan(t.Threshold) {
			return t.Rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrNoDepositTier, balance)
}

// ChangeCreditLimit replaces the credit limit.
func (c *Conditions) ChangeCreditLimit(v decimal.Decimal) error {
	if err := checkCondition("credit limit", v); err != nil {
		return err
	}
	c.creditLimit = v
	return nil
}

// ChangeLoanCommission replaces the annual loan commission.
func (c *Conditions) ChangeLoanCommission(v decimal.Decimal) error {
	if err := checkCondition("loan commission", v); err != nil {
		return err
	}
	c.loanCommission = v
	return nil
}

// ChangeDebitInterest replaces the annual debit interest rate.
func (c *Conditions) ChangeDebitInterest(v decimal.Decimal) error {
	if err := checkCondition("debit interest", v); err != nil {
		return err
	}
	c.debitInterest = v
	return nil
}

// ChangeUnverifiedWithdrawalCap replaces the cap on unverified withdrawals.
func (c *Conditions) ChangeUnverifiedWithdrawalCap(v decimal.Decimal) error {
	if err := checkCondition("unverified withdrawal cap", v); err != nil {
		return err
	}
	c.unverifiedCap = v
	return nil
}

// ChangeDepositInterestTable replaces the deposit tier table.
func (c *Conditions) ChangeDepositInterestTable(tiers []DepositTier) error {
	normalized, err := normalizeTiers(tiers)
	if err != nil {
		return err
	}
	c.depositTiers = normalized
	return nil
}

func checkCondition(name string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: %s = %s", ErrInvalidCondition, name, v)
	}
	return nil
}

func normalizeTiers(tiers []DepositTier) ([]DepositTier, error) {
	out := slices.Clone(tiers)
	for _, t := range out {
		if err := checkCondition("deposit tier threshold", t.Threshold); err != nil {
			return nil, err
		}
		if err := checkCondition("deposit tier rate", t.Rate); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(out, func(a, b DepositTier) int { return a.Threshold.Cmp(b.Threshold) })
	for i := 1; i < len(out); i++ {
		if out[i].Threshold.Equal(out[i-1].Threshold) {
			return nil, fmt.Errorf("%w: duplicate deposit tier threshold %s", ErrInvalidCondition, out[i].Threshold)
		}
	}
	return out, nil
}
