package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/model"
	"github.com/lab-banks/banks/internal/registry"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = fmt.Errorf("%w: invalid config", model.ErrValidation)

// Config represents the top-level banks.yaml configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
	Banks      []BankConfig     `yaml:"banks"`
	Clients    []ClientConfig   `yaml:"clients,omitempty"`
	Accounts   []AccountConfig  `yaml:"accounts,omitempty"`
}

// SimulationConfig controls the shared calendar.
type SimulationConfig struct {
	StartDate   string `yaml:"start_date"`   // "2006-01-02"
	AccrualRule string `yaml:"accrual_rule"` // "days-since-last" or "elapsed-modulo"
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// BankConfig holds one bank's conditions. Amounts are decimal strings.
type BankConfig struct {
	Name                    string       `yaml:"name"`
	CreditLimit             string       `yaml:"credit_limit"`
	LoanCommission          string       `yaml:"loan_commission"`
	DebitInterest           string       `yaml:"debit_interest"`
	UnverifiedWithdrawalCap string       `yaml:"unverified_withdrawal_cap"`
	DepositTiers            []TierConfig `yaml:"deposit_tiers"`
}

// TierConfig is one row of a deposit interest table.
type TierConfig struct {
	Threshold string `yaml:"threshold"`
	Rate      string `yaml:"rate"`
}

// ClientConfig describes a client to build. Label is how accounts refer to it.
type ClientConfig struct {
	Label    string `yaml:"label"`
	Name     string `yaml:"name"`
	Surname  string `yaml:"surname"`
	Address  string `yaml:"address,omitempty"`
	Passport string `yaml:"passport,omitempty"`
}

// AccountConfig describes an account opened before the simulation starts.
type AccountConfig struct {
	Label        string `yaml:"label"`
	Bank         string `yaml:"bank"`
	Client       string `yaml:"client"`
	Kind         string `yaml:"kind"`
	Amount       string `yaml:"amount"`
	MaturityDays int    `yaml:"maturity_days,omitempty"`
}

// Load reads a banks.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a sample Config: two banks, two clients and one account of
// each kind.
func Default(startDate string) *Config {
	tiers := []TierConfig{
		{Threshold: "50000", Rate: "3"},
		{Threshold: "100000", Rate: "3.5"},
		{Threshold: "1000000000", Rate: "4"},
	}
	return &Config{
		Simulation: SimulationConfig{
			StartDate:   startDate,
			AccrualRule: string(registry.DaysSinceLast),
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Banks: []BankConfig{
			{
				Name:                    "north",
				CreditLimit:             "100000",
				LoanCommission:          "1000",
				DebitInterest:           "5",
				UnverifiedWithdrawalCap: "20000",
				DepositTiers:            tiers,
			},
			{
				Name:                    "south",
				CreditLimit:             "50000",
				LoanCommission:          "500",
				DebitInterest:           "4",
				UnverifiedWithdrawalCap: "10000",
				DepositTiers:            tiers,
			},
		},
		Clients: []ClientConfig{
			{Label: "ivan", Name: "Ivan", Surname: "Petrov", Address: "Nevsky 1"},
			{Label: "alisa", Name: "Alisa", Surname: "Smirnova", Passport: "8888111111"},
		},
		Accounts: []AccountConfig{
			{Label: "ivan-debit", Bank: "north", Client: "ivan", Kind: "debit", Amount: "100000"},
			{Label: "ivan-deposit", Bank: "north", Client: "ivan", Kind: "deposit", Amount: "5000", MaturityDays: 10},
			{Label: "alisa-debit", Bank: "south", Client: "alisa", Kind: "debit", Amount: "100000"},
			{Label: "alisa-credit", Bank: "south", Client: "alisa", Kind: "credit", Amount: "150000"},
		},
	}
}

// Start parses the simulation start date. Empty means today, UTC.
func (s SimulationConfig) Start() (time.Time, error) {
	if s.StartDate == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(time.DateOnly, s.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_date: %w", ErrInvalid, err)
	}
	return t, nil
}

// Rule parses the accrual rule.
func (s SimulationConfig) Rule() (registry.AccrualRule, error) {
	return registry.ParseAccrualRule(s.AccrualRule)
}

// Conditions builds the validated bank conditions described by b.
func (b BankConfig) Conditions() (*bank.Conditions, error) {
	var p bank.ConditionsParams
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"credit_limit", b.CreditLimit, &p.CreditLimit},
		{"loan_commission", b.LoanCommission, &p.LoanCommission},
		{"debit_interest", b.DebitInterest, &p.DebitInterest},
		{"unverified_withdrawal_cap", b.UnverifiedWithdrawalCap, &p.UnverifiedWithdrawalCap},
	}
	for _, f := range fields {
		v, err := parseAmount(f.raw)
		if err != nil {
			return nil, fmt.Errorf("bank %q %s: %w", b.Name, f.name, err)
		}
		*f.dst = v
	}
	for i, t := range b.DepositTiers {
		threshold, err := parseAmount(t.Threshold)
		if err != nil {
			return nil, fmt.Errorf("bank %q deposit_tiers[%d].threshold: %w", b.Name, i, err)
		}
		rate, err := parseAmount(t.Rate)
		if err != nil {
			return nil, fmt.Errorf("bank %q deposit_tiers[%d].rate: %w", b.Name, i, err)
		}
		p.DepositTiers = append(p.DepositTiers, bank.DepositTier{Threshold: threshold, Rate: rate})
	}
	cond, err := bank.NewConditions(p)
	if err != nil {
		return nil, fmt.Errorf("bank %q: %w", b.Name, err)
	}
	return cond, nil
}

// Money returns the opening amount.
func (a AccountConfig) Money() (decimal.Decimal, error) {
	v, err := parseAmount(a.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account %q amount: %w", a.Label, err)
	}
	return v, nil
}

// Validate checks the config for structural errors and broken references.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Simulation.Start(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Simulation.Rule(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if len(c.Banks) == 0 {
		errs = append(errs, fmt.Errorf("%w: no banks", ErrInvalid))
	}

	banks := make(map[string]bool)
	for i, b := range c.Banks {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%w: banks[%d] has no name", ErrInvalid, i))
		} else if banks[b.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate bank %q", ErrInvalid, b.Name))
		}
		banks[b.Name] = true
		if _, err := b.Conditions(); err != nil {
			errs = append(errs, err)
		}
	}

	clients := make(map[string]bool)
	for i, cl := range c.Clients {
		if cl.Label == "" {
			errs = append(errs, fmt.Errorf("%w: clients[%d] has no label", ErrInvalid, i))
		} else if clients[cl.Label] {
			errs = append(errs, fmt.Errorf("%w: duplicate client %q", ErrInvalid, cl.Label))
		}
		clients[cl.Label] = true
	}

	accounts := make(map[string]bool)
	for i, a := range c.Accounts {
		switch {
		case a.Label == "":
			errs = append(errs, fmt.Errorf("%w: accounts[%d] has no label", ErrInvalid, i))
		case accounts[a.Label]:
			errs = append(errs, fmt.Errorf("%w: duplicate account %q", ErrInvalid, a.Label))
		}
		accounts[a.Label] = true
		if !banks[a.Bank] {
			errs = append(errs, fmt.Errorf("%w: account %q references unknown bank %q", ErrInvalid, a.Label, a.Bank))
		}
		if !clients[a.Client] {
			errs = append(errs, fmt.Errorf("%w: account %q references unknown client %q", ErrInvalid, a.Label, a.Client))
		}
		if _, ok := model.ParseAccountKind(a.Kind); !ok {
			errs = append(errs, fmt.Errorf("%w: account %q has unknown kind %q", ErrInvalid, a.Label, a.Kind))
		}
		if _, err := a.Money(); err != nil {
			errs = append(errs, err)
		}
		if a.MaturityDays < 0 {
			errs = append(errs, fmt.Errorf("%w: account %q has negative maturity_days", ErrInvalid, a.Label))
		}
	}
	return errors.Join(errs...)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal", ErrInvalid, s)
	}
	return v, nil
}
