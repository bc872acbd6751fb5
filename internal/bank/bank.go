// Package bank implements a single bank: its rule set, client accounts,
// transaction log, daily accrual and policy-change notifications.
//
// A Bank is not safe for concurrent use. Callers that share one across
// goroutines must serialize every call on it.
package bank

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/account"
	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/logging"
	"github.com/lab-banks/banks/internal/model"
)

// Operation names passed to a Recorder.
const (
	OpOpen      = "open"
	OpReplenish = "replenish"
	OpWithdraw  = "withdraw"
	OpTransfer  = "transfer"
	OpCancel    = "cancel"
)

// Recorder observes bank activity, e.g. for metrics.
type Recorder interface {
	Operation(op string, err error)
	Notified(change model.ChangeKind, delivered int)
	AccrualApplied(err error)
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, error)        {}
func (nopRecorder) Notified(model.ChangeKind, int) {}
func (nopRecorder) AccrualApplied(error)           {}

// Option configures a Bank.
type Option func(*Bank)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bank) { b.logger = l }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Bank) { b.recorder = r }
}

// WithClock sets the bank's simulated current time.
func WithClock(now time.Time) Option {
	return func(b *Bank) { b.now = now }
}

// Bank owns a rule set, client accounts, a transaction log and subscribers.
type Bank struct {
	id           string
	conditions   *Conditions
	clients      []*ClientAccounts
	transactions []model.Transaction
	subscribers  []Subscriber
	now          time.Time
	logger       *slog.Logger
	recorder     Recorder
}

// New creates a bank governed by conditions.
func New(conditions *Conditions, opts ...Option) *Bank {
	b := &Bank{
		id:         id.New(),
		conditions: conditions,
		now:        time.Now().UTC().Truncate(24 * time.Hour),
		logger:     logging.Discard(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("bank", id.Short(b.id))
	return b
}

// ID returns the bank identifier.
func (b *Bank) ID() string { return b.id }

// Now returns the bank's simulated current time.
func (b *Bank) Now() time.Time { return b.now }

// Conditions returns a copy of the current rule set. Change rules through the
// Bank so subscribers are notified.
func (b *Bank) Conditions() *Conditions { return b.conditions.Clone() }

// Clients returns the client account collections in registration order.
func (b *Bank) Clients() []*ClientAccounts { return slices.Clone(b.clients) }

// Transactions returns a copy of the transaction log.
func (b *Bank) Transactions() []model.Transaction { return slices.Clone(b.transactions) }

// OpenDebit opens a debit account for c.
func (b *Bank) OpenDebit(c *client.Client, amount decimal.Decimal) (*account.Account, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	a, err := account.NewDebit(amount)
	if err != nil {
		return nil, err
	}
	if err := b.attach(c, a); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenDeposit opens a deposit account for c that matures at maturesAt.
func (b *Bank) OpenDeposit(c *client.Client, amount decimal.Decimal, maturesAt time.Time) (*account.Account, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	a, err := account.NewDeposit(amount, b.now, maturesAt)
	if err != nil {
		return nil, err
	}
	if err := b.attach(c, a); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenDepositForDays opens a deposit account maturing days after the bank's
// current time.
func (b *Bank) OpenDepositForDays(c *client.Client, amount decimal.Decimal, days int) (*account.Account, error) {
	return b.OpenDeposit(c, amount, b.now.AddDate(0, 0, days))
}

// OpenCredit opens a credit account for c whose threshold is the current
// credit limit.
func (b *Bank) OpenCredit(c *client.Client, amount decimal.Decimal) (*account.Account, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	a, err := account.NewCredit(amount, b.conditions.CreditLimit())
	if err != nil {
		return nil, err
	}
	if err := b.attach(c, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (b *Bank) attach(c *client.Client, a *account.Account) error {
	ca := b.ClientAccountsFor(c)
	if ca == nil {
		ca = NewClientAccounts(c)
		b.clients = append(b.clients, ca)
	}
	err := ca.OpenAccount(a)
	b.recorder.Operation(OpOpen, err)
	if err != nil {
		return err
	}
	b.logger.Debug("account opened", "account", id.Short(a.ID()), "kind", a.Kind(), "client", c.FullName(), "balance", a.Balance())
	return nil
}

// Movement describes one replenishment or withdrawal.
type Movement struct {
	Account *account.Account
	Amount  decimal.Decimal
	// BankID is recorded on the transaction; empty means this bank.
	BankID string
	// TransactionID links transfer legs; empty means a fresh ID.
	TransactionID string
}

// Replenish tops up an account held at this bank and logs the transaction.
func (b *Bank) Replenish(m Movement) (model.Transaction, error) {
	tx, err := b.replenish(m)
	b.recorder.Operation(OpReplenish, err)
	return tx, err
}

func (b *Bank) replenish(m Movement) (model.Transaction, error) {
	if err := checkAmount(m.Amount); err != nil {
		return model.Transaction{}, err
	}
	if _, err := b.owner(m.Account); err != nil {
		return model.Transaction{}, err
	}
	if err := m.Account.TopUp(m.Amount); err != nil {
		return model.Transaction{}, fmt.Errorf("replenish %s: %w", m.Account.ID(), err)
	}
	return b.record(model.TransactionReplenishment, m), nil
}

// Withdraw removes money from an account held at this bank and logs the
// transaction. Unverified clients may not withdraw more than the cap.
func (b *Bank) Withdraw(m Movement) (model.Transaction, error) {
	tx, err := b.withdraw(m)
	b.recorder.Operation(OpWithdraw, err)
	return tx, err
}

func (b *Bank) withdraw(m Movement) (model.Transaction, error) {
	if err := checkAmount(m.Amount); err != nil {
		return model.Transaction{}, err
	}
	ca, err := b.owner(m.Account)
	if err != nil {
		return model.Transaction{}, err
	}
	if !ca.Verified() && m.Amount.GreaterThan(b.conditions.UnverifiedWithdrawalCap()) {
		return model.Transaction{}, fmt.Errorf("%w: %s > %s", ErrUnverifiedLimit, m.Amount, b.conditions.UnverifiedWithdrawalCap())
	}
	if err := m.Account.Withdraw(m.Amount); err != nil {
		return model.Transaction{}, fmt.Errorf("withdraw %s: %w", m.Account.ID(), err)
	}
	return b.record(model.TransactionWithdrawal, m), nil
}

// Transfer withdraws from one account and replenishes another under one
// shared transaction ID, which it returns. It is not atomic: if the
// replenishment fails the withdrawal stands, and the caller should Cancel the
// returned ID to reverse it.
func (b *Bank) Transfer(bankIDFrom, bankIDTo string, from, to *account.Account, amount decimal.Decimal) (string, error) {
	txID := id.New()
	_, err := b.withdraw(Movement{Account: from, Amount: amount, BankID: bankIDFrom, TransactionID: txID})
	if err != nil {
		b.recorder.Operation(OpTransfer, err)
		return "", err
	}
	_, err = b.replenish(Movement{Account: to, Amount: amount, BankID: bankIDTo, TransactionID: txID})
	b.recorder.Operation(OpTransfer, err)
	if err != nil {
		return txID, fmt.Errorf("transfer %s: withdrawal leg recorded, replenishment failed: %w", id.Short(txID), err)
	}
	return txID, nil
}

// Cancel reverses every logged transaction carrying txID and removes it from
// the log. A transfer's two legs are reversed together. All legs are checked
// before any balance changes.
func (b *Bank) Cancel(txID string) error {
	err := b.cancel(txID)
	b.recorder.Operation(OpCancel, err)
	return err
}

// CanCancel reports whether Cancel(txID) would succeed without changing
// anything.
func (b *Bank) CanCancel(txID string) error {
	_, err := b.reversals(txID)
	return err
}

// HasTransaction reports whether any logged leg carries txID.
func (b *Bank) HasTransaction(txID string) bool {
	return slices.ContainsFunc(b.transactions, func(tx model.Transaction) bool { return tx.ID == txID })
}

type reversal struct {
	tx      model.Transaction
	account *account.Account
}

func (r reversal) check() error {
	if r.tx.Reversal() == model.TransactionWithdrawal {
		return r.account.CanWithdraw(r.tx.Amount)
	}
	return r.account.CanTopUp(r.tx.Amount)
}

func (r reversal) apply() error {
	if r.tx.Reversal() == model.TransactionWithdrawal {
		return r.account.Withdraw(r.tx.Amount)
	}
	return r.account.TopUp(r.tx.Amount)
}

// reversals collects and checks the legs carrying txID.
func (b *Bank) reversals(txID string) ([]reversal, error) {
	var legs []reversal
	for _, tx := range b.transactions {
		if tx.ID != txID {
			continue
		}
		a := b.FindAccount(tx.AccountID)
		if a == nil {
			return nil, fmt.Errorf("cancel %s: %w: %s", id.Short(txID), ErrAccountNotFound, tx.AccountID)
		}
		legs = append(legs, reversal{tx: tx, account: a})
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	for _, l := range legs {
		if err := l.check(); err != nil {
			return nil, fmt.Errorf("cancel %s: %w", id.Short(txID), err)
		}
	}
	return legs, nil
}

func (b *Bank) cancel(txID string) error {
	legs, err := b.reversals(txID)
	if err != nil {
		return err
	}
	for _, l := range legs {
		if err := l.apply(); err != nil {
			return fmt.Errorf("cancel %s: %w", id.Short(txID), err)
		}
	}
	b.transactions = slices.DeleteFunc(b.transactions, func(tx model.Transaction) bool { return tx.ID == txID })
	b.logger.Debug("transaction cancelled", "tx", id.Short(txID), "legs", len(legs))
	return nil
}

func (b *Bank) record(kind model.TransactionKind, m Movement) model.Transaction {
	tx := model.Transaction{
		ID:        m.TransactionID,
		Kind:      kind,
		AccountID: m.Account.ID(),
		BankID:    m.BankID,
		Amount:    m.Amount,
	}
	if tx.ID == "" {
		tx.ID = id.New()
	}
	if tx.BankID == "" {
		tx.BankID = b.id
	}
	b.transactions = append(b.transactions, tx)
	b.logger.Debug("transaction recorded", "tx", id.Short(tx.ID), "kind", kind, "account", id.Short(tx.AccountID), "amount", tx.Amount)
	return tx
}

// FindAccount returns the account with the given ID held by any client, or nil.
func (b *Bank) FindAccount(accountID string) *account.Account {
	for _, ca := range b.clients {
		if a := ca.Find(accountID); a != nil {
			return a
		}
	}
	return nil
}

// FindClientAccounts returns the collection holding an account, or nil.
func (b *Bank) FindClientAccounts(accountID string) *ClientAccounts {
	for _, ca := range b.clients {
		if ca.Find(accountID) != nil {
			return ca
		}
	}
	return nil
}

// ClientAccountsFor returns the collection owned by c, or nil.
func (b *Bank) ClientAccountsFor(c *client.Client) *ClientAccounts {
	for _, ca := range b.clients {
		if ca.Client().ID() == c.ID() {
			return ca
		}
	}
	return nil
}

func (b *Bank) owner(a *account.Account) (*ClientAccounts, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil account", ErrAccountNotFound)
	}
	ca := b.FindClientAccounts(a.ID())
	if ca == nil {
		return nil, fmt.Errorf("%w: %s not held at bank %s", ErrAccountNotFound, a.ID(), id.Short(b.id))
	}
	return ca, nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}
