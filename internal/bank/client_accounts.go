package bank

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/account"
	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/model"
)

type holding struct {
	account *account.Account
	pending decimal.Decimal
}

// ClientAccounts is one client's accounts at a bank with the accrual pending
// on each of them.
type ClientAccounts struct {
	client   *client.Client
	holdings []*holding
	byID     map[string]*holding
	verified bool
}

// NewClientAccounts creates an empty collection for c.
// Verification is fixed here: a client is verified when no passport number
// was supplied.
func NewClientAccounts(c *client.Client) *ClientAccounts {
	_, hasPassport := c.Passport()
	return &ClientAccounts{
		client:   c,
		byID:     make(map[string]*holding),
		verified: !hasPassport,
	}
}

// Client returns the owning client.
func (ca *ClientAccounts) Client() *client.Client { return ca.client }

// Verified reports whether withdrawals are exempt from the unverified cap.
func (ca *ClientAccounts) Verified() bool { return ca.verified }

// Len returns the number of held accounts.
func (ca *ClientAccounts) Len() int { return len(ca.holdings) }

// Accounts returns the held accounts in opening order.
func (ca *ClientAccounts) Accounts() []*account.Account {
	out := make([]*account.Account, len(ca.holdings))
	for i, h := range ca.holdings {
		out[i] = h.account
	}
	return out
}

// Find returns the held account with the given ID, or nil.
func (ca *ClientAccounts) Find(accountID string) *account.Account {
	if h, ok := ca.byID[accountID]; ok {
		return h.account
	}
	return nil
}

// Pending returns the accrual pending on an account.
func (ca *ClientAccounts) Pending(accountID string) (decimal.Decimal, bool) {
	h, ok := ca.byID[accountID]
	if !ok {
		return decimal.Zero, false
	}
	return h.pending, true
}

// HasKind reports whether any held account is of kind k.
func (ca *ClientAccounts) HasKind(k model.AccountKind) bool {
	for _, h := range ca.holdings {
		if h.account.Kind() == k {
			return true
		}
	}
	return false
}

// OpenAccount adds a with zero pending accrual.
func (ca *ClientAccounts) OpenAccount(a *account.Account) error {
	if _, ok := ca.byID[a.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.ID())
	}
	h := &holding{account: a}
	ca.holdings = append(ca.holdings, h)
	ca.byID[a.ID()] = h
	return nil
}

// CloseAccount removes a.
func (ca *ClientAccounts) CloseAccount(a *account.Account) error {
	if _, ok := ca.byID[a.ID()]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID())
	}
	delete(ca.byID, a.ID())
	for i, h := range ca.holdings {
		if h.account.ID() == a.ID() {
			ca.holdings = append(ca.holdings[:i], ca.holdings[i+1:]...)
			break
		}
	}
	return nil
}

// ChangeAccrual overwrites the pending accrual of a.
func (ca *ClientAccounts) ChangeAccrual(a *account.Account, value decimal.Decimal) error {
	h, ok := ca.byID[a.ID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID())
	}
	h.pending = value
	return nil
}

// ApplyAccrual tops up every account by its pending value and resets the
// pending value. Zero values are skipped. An account whose top-up is rejected
// keeps its pending value and the others are still applied.
func (ca *ClientAccounts) ApplyAccrual() error {
	var errs []error
	for _, h := range ca.holdings {
		if h.pending.IsZero() {
			continue
		}
		if err := h.account.TopUp(h.pending); err != nil {
			errs = append(errs, fmt.Errorf("applying accrual to %s: %w", h.account.ID(), err))
			continue
		}
		h.pending = decimal.Zero
	}
	return errors.Join(errs...)
}
