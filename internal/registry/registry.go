// Package registry holds the set of banks that share one simulated calendar.
//
// A Registry is created once by the frontend and passed to whatever drives the
// simulation. Like a Bank it is not safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/account"
	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/logging"
	"github.com/lab-banks/banks/internal/model"
)

// MonthDays is the length of an accrual period.
const MonthDays = 30

var (
	ErrBankExists   = fmt.Errorf("%w: bank already registered", model.ErrConflict)
	ErrBankNotFound = fmt.Errorf("%w: bank", model.ErrNotFound)
	ErrInvalidDays  = fmt.Errorf("%w: days must not be negative", model.ErrValidation)
)

// AccrualRule decides when AdvanceDate applies pending accrual.
type AccrualRule string

const (
	// ElapsedModulo applies accrual once per AdvanceDate call whenever the
	// days elapsed since the start date are not a multiple of MonthDays.
	ElapsedModulo AccrualRule = "elapsed-modulo"
	// DaysSinceLast applies accrual every MonthDays simulated days, checked
	// after each day.
	DaysSinceLast AccrualRule = "days-since-last"
)

// ParseAccrualRule returns the rule named by s. Empty means DaysSinceLast.
func ParseAccrualRule(s string) (AccrualRule, error) {
	switch AccrualRule(s) {
	case "", DaysSinceLast:
		return DaysSinceLast, nil
	case ElapsedModulo:
		return ElapsedModulo, nil
	}
	return "", fmt.Errorf("%w: unknown accrual rule %q", model.ErrValidation, s)
}

// Option configures a Registry.
type Option func(*Registry)

// WithStartDate sets the calendar start. The default is today, UTC.
func WithStartDate(t time.Time) Option {
	return func(r *Registry) { r.start = t }
}

// WithLogger sets the logger handed to the registry and to every bank it creates.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithRecorder sets the recorder handed to every bank the registry creates.
func WithRecorder(rec bank.Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithAccrualRule selects the monthly accrual rule.
func WithAccrualRule(rule AccrualRule) Option {
	return func(r *Registry) { r.rule = rule }
}

// Registry is the central bank: registered banks and the shared calendar.
type Registry struct {
	banks       []*bank.Bank
	start       time.Time
	current     time.Time
	sinceAccrue int
	rule        AccrualRule
	logger      *slog.Logger
	recorder    bank.Recorder
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		start:  time.Now().UTC().Truncate(24 * time.Hour),
		rule:   DaysSinceLast,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current = r.start
	return r
}

// StartDate returns the calendar start.
func (r *Registry) StartDate() time.Time { return r.start }

// CurrentDate returns the shared simulated date.
func (r *Registry) CurrentDate() time.Time { return r.current }

// Rule returns the monthly accrual rule in effect.
func (r *Registry) Rule() AccrualRule { return r.rule }

// Banks returns the registered banks in registration order.
func (r *Registry) Banks() []*bank.Bank { return slices.Clone(r.banks) }

// Bank returns the registered bank with the given ID.
func (r *Registry) Bank(bankID string) (*bank.Bank, error) {
	for _, b := range r.banks {
		if b.ID() == bankID {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBankNotFound, bankID)
}

// RegisterConditions creates a bank governed by cond, starting at the
// current date, and registers it.
func (r *Registry) RegisterConditions(cond *bank.Conditions) (*bank.Bank, error) {
	opts := []bank.Option{bank.WithClock(r.current), bank.WithLogger(r.logger)}
	if r.recorder != nil {
		opts = append(opts, bank.WithRecorder(r.recorder))
	}
	b := bank.New(cond, opts...)
	if err := r.Register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Register adds a pre-built bank. Duplicate IDs are rejected.
func (r *Registry) Register(b *bank.Bank) error {
	if _, err := r.Bank(b.ID()); err == nil {
		return fmt.Errorf("%w: %s", ErrBankExists, b.ID())
	}
	r.banks = append(r.banks, b)
	r.logger.Info("bank registered", "bank", id.Short(b.ID()), "banks", len(r.banks))
	return nil
}

// Disband removes a registered bank.
func (r *Registry) Disband(bankID string) error {
	i := slices.IndexFunc(r.banks, func(b *bank.Bank) bool { return b.ID() == bankID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBankNotFound, bankID)
	}
	r.banks = slices.Delete(r.banks, i, i+1)
	r.logger.Info("bank disbanded", "bank", id.Short(bankID))
	return nil
}

// AdvanceDate moves the calendar forward by days, advancing every bank one
// day at a time, and applies accrual according to the registry's rule.
// Per-bank failures do not stop the advance; they are returned joined.
func (r *Registry) AdvanceDate(days int) error {
	if days < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}
	var errs []error
	for range days {
		r.current = r.current.AddDate(0, 0, 1)
		r.sinceAccrue++
		for _, b := range r.banks {
			if err := b.AdvanceOneDay(); err != nil {
				errs = append(errs, fmt.Errorf("bank %s: %w", id.Short(b.ID()), err))
			}
		}
		if r.rule == DaysSinceLast && r.sinceAccrue >= MonthDays {
			errs = append(errs, r.applyAccrual())
		}
	}
	if r.rule == ElapsedModulo && r.ElapsedDays()%MonthDays >= 1 {
		errs = append(errs, r.applyAccrual())
	}
	return errors.Join(errs...)
}

// ElapsedDays returns the whole days between the start and current dates.
func (r *Registry) ElapsedDays() int {
	return int(r.current.Sub(r.start).Hours() / 24)
}

func (r *Registry) applyAccrual() error {
	r.sinceAccrue = 0
	var errs []error
	for _, b := range r.banks {
		if err := b.ApplyAccrual(); err != nil {
			errs = append(errs, fmt.Errorf("bank %s: %w", id.Short(b.ID()), err))
		}
	}
	r.logger.Info("monthly accrual applied", "date", r.current.Format(time.DateOnly), "banks", len(r.banks))
	return errors.Join(errs...)
}

// Transfer moves amount from an account at one registered bank to an account
// at another under one transaction ID, which it returns. If the replenishment
// fails the withdrawal stands; Cancel the returned ID to reverse it.
func (r *Registry) Transfer(fromBankID, toBankID string, from, to *account.Account, amount decimal.Decimal) (string, error) {
	src, err := r.Bank(fromBankID)
	if err != nil {
		return "", err
	}
	dst, err := r.Bank(toBankID)
	if err != nil {
		return "", err
	}
	if src == dst {
		return src.Transfer(fromBankID, toBankID, from, to, amount)
	}

	txID := id.New()
	if _, err := src.Withdraw(bank.Movement{Account: from, Amount: amount, BankID: fromBankID, TransactionID: txID}); err != nil {
		return "", err
	}
	if _, err := dst.Replenish(bank.Movement{Account: to, Amount: amount, BankID: toBankID, TransactionID: txID}); err != nil {
		return txID, fmt.Errorf("transfer %s: withdrawal leg recorded, replenishment failed: %w", id.Short(txID), err)
	}
	r.logger.Debug("interbank transfer", "tx", id.Short(txID), "from", id.Short(fromBankID), "to", id.Short(toBankID), "amount", amount)
	return txID, nil
}

// Cancel reverses txID in every bank that logged a leg of it. Every bank is
// checked before any is changed.
func (r *Registry) Cancel(txID string) error {
	var holders []*bank.Bank
	for _, b := range r.banks {
		if b.HasTransaction(txID) {
			holders = append(holders, b)
		}
	}
	if len(holders) == 0 {
		return fmt.Errorf("%w: %s", bank.ErrTransactionNotFound, txID)
	}
	for _, b := range holders {
		if err := b.CanCancel(txID); err != nil {
			return err
		}
	}
	for _, b := range holders {
		if err := b.Cancel(txID); err != nil {
			return err
		}
	}
	return nil
}

// FindAccount returns the account with the given ID and the bank holding it.
func (r *Registry) FindAccount(accountID string) (*bank.Bank, *account.Account, error) {
	for _, b := range r.banks {
		if a := b.FindAccount(accountID); a != nil {
			return b, a, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", bank.ErrAccountNotFound, accountID)
}

// HasAccount reports whether any registered bank holds the account.
func (r *Registry) HasAccount(accountID string) bool {
	_, _, err := r.FindAccount(accountID)
	return err == nil
}
