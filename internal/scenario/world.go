package scenario

import (
	"fmt"
	"log/slog"

	"github.com/lab-banks/banks/internal/account"
	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/config"
	"github.com/lab-banks/banks/internal/logging"
	"github.com/lab-banks/banks/internal/model"
	"github.com/lab-banks/banks/internal/notifylog"
	"github.com/lab-banks/banks/internal/registry"
)

// World is a registry populated from config, with the config labels kept so
// operations can refer to banks and accounts by name.
type World struct {
	Registry      *registry.Registry
	Notifications *notifylog.Log

	bankNames     []string
	banks         map[string]*bank.Bank
	clients       map[string]*client.Client
	accountLabels []string
	accounts      map[string]*account.Account
	accountBank   map[string]*bank.Bank
	logger        *slog.Logger
}

// Build validates cfg, registers its banks, builds its clients and opens its
// accounts. Every client is subscribed to each bank where it holds an
// account. Extra registry options are applied after the config's own.
func Build(cfg *config.Config, logger *slog.Logger, opts ...registry.Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	start, err := cfg.Simulation.Start()
	if err != nil {
		return nil, err
	}
	rule, err := cfg.Simulation.Rule()
	if err != nil {
		return nil, err
	}
	reg := registry.New(append([]registry.Option{
		registry.WithStartDate(start),
		registry.WithAccrualRule(rule),
		registry.WithLogger(logger),
	}, opts...)...)

	w := &World{
		Registry:      reg,
		Notifications: notifylog.New(reg.CurrentDate),
		banks:         make(map[string]*bank.Bank),
		clients:       make(map[string]*client.Client),
		accounts:      make(map[string]*account.Account),
		accountBank:   make(map[string]*bank.Bank),
		logger:        logger,
	}

	for _, bc := range cfg.Banks {
		cond, err := bc.Conditions()
		if err != nil {
			return nil, err
		}
		b, err := reg.RegisterConditions(cond)
		if err != nil {
			return nil, fmt.Errorf("registering bank %q: %w", bc.Name, err)
		}
		w.bankNames = append(w.bankNames, bc.Name)
		w.banks[bc.Name] = b
	}

	for _, cc := range cfg.Clients {
		builder := client.NewBuilder().Name(cc.Name).Surname(cc.Surname)
		if cc.Address != "" {
			builder = builder.Address(cc.Address)
		}
		if cc.Passport != "" {
			builder = builder.Passport(cc.Passport)
		}
		c, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("client %q: %w", cc.Label, err)
		}
		w.clients[cc.Label] = c
	}

	for _, ac := range cfg.Accounts {
		if err := w.open(ac); err != nil {
			return nil, fmt.Errorf("account %q: %w", ac.Label, err)
		}
	}
	return w, nil
}

func (w *World) open(ac config.AccountConfig) error {
	b := w.banks[ac.Bank]
	c := w.clients[ac.Client]
	amount, err := ac.Money()
	if err != nil {
		return err
	}
	kind, _ := model.ParseAccountKind(ac.Kind)

	var a *account.Account
	switch kind {
	case model.AccountKindDebit:
		a, err = b.OpenDebit(c, amount)
	case model.AccountKindDeposit:
		a, err = b.OpenDepositForDays(c, amount, ac.MaturityDays)
	case model.AccountKindCredit:
		a, err = b.OpenCredit(c, amount)
	}
	if err != nil {
		return err
	}
	if err := b.Subscribe(w.Notifications.Subscriber(c)); err != nil {
		return err
	}
	w.accountLabels = append(w.accountLabels, ac.Label)
	w.accounts[ac.Label] = a
	w.accountBank[ac.Label] = b
	return nil
}

// BankNames returns the configured bank names in config order.
func (w *World) BankNames() []string { return append([]string(nil), w.bankNames...) }

// Bank returns the bank configured under name.
func (w *World) Bank(name string) (*bank.Bank, error) {
	b, ok := w.banks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrBankNotFound, name)
	}
	return b, nil
}

// BankName returns the config name of the bank with the given ID.
func (w *World) BankName(bankID string) string {
	for name, b := range w.banks {
		if b.ID() == bankID {
			return name
		}
	}
	return bankID
}

// AccountLabels returns the configured account labels in config order.
func (w *World) AccountLabels() []string { return append([]string(nil), w.accountLabels...) }

// Account returns the account opened under label and the bank holding it.
func (w *World) Account(label string) (*bank.Bank, *account.Account, error) {
	a, ok := w.accounts[label]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", bank.ErrAccountNotFound, label)
	}
	return w.accountBank[label], a, nil
}

// AccountLabel returns the config label of the account with the given ID.
func (w *World) AccountLabel(accountID string) string {
	for label, a := range w.accounts {
		if a.ID() == accountID {
			return label
		}
	}
	return accountID
}
