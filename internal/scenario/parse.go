// Package scenario parses an operations file and replays it against a set of
// banks built from config.
package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/model"
)

// OpKind names a scripted operation.
type OpKind string

const (
	OpReplenish OpKind = "replenish"
	OpWithdraw  OpKind = "withdraw"
	OpTransfer  OpKind = "transfer"
	OpCancel    OpKind = "cancel"
	OpAdvance   OpKind = "advance"

	// Policy changes. The account column names the bank.
	OpCreditLimit    OpKind = "credit-limit"
	OpLoanCommission OpKind = "loan-commission"
	OpDebitInterest  OpKind = "debit-interest"
	OpWithdrawalCap  OpKind = "withdrawal-cap"
	OpNotifyAll      OpKind = "notify-all"
)

// Header is the CSV header for an operations file.
const Header = "label,op,account,target,amount,days,ref"

const (
	numFields  = 7
	colLabel   = 0
	colOp      = 1
	colAccount = 2
	colTarget  = 3
	colAmount  = 4
	colDays    = 5
	colRef     = 6
)

// Op is one scripted operation. Account and Target are account labels from
// the config, or a bank name for policy changes. Ref is the label of an
// earlier operation whose transaction a cancel reverses.
type Op struct {
	Label   string
	Kind    OpKind
	Account string
	Target  string
	Amount  decimal.Decimal
	Days    int
	Ref     string
}

// ErrInvalidOp is wrapped by every parse failure.
var ErrInvalidOp = fmt.Errorf("%w: invalid operation", model.ErrValidation)

// Parse reads an operations file. Blank lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader) ([]Op, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading operations CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	labels := make(map[string]bool)
	var ops []Op
	for i, rec := range records[1:] {
		op, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if labels[op.Label] {
			return nil, fmt.Errorf("row %d: %w: duplicate label %q", i+2, ErrInvalidOp, op.Label)
		}
		if op.Kind == OpCancel && !labels[op.Ref] {
			return nil, fmt.Errorf("row %d: %w: cancel refers to unknown or later label %q", i+2, ErrInvalidOp, op.Ref)
		}
		labels[op.Label] = true
		ops = append(ops, op)
	}
	return ops, nil
}

func parseRow(rec []string) (Op, error) {
	op := Op{
		Label:   strings.TrimSpace(rec[colLabel]),
		Kind:    OpKind(strings.ToLower(strings.TrimSpace(rec[colOp]))),
		Account: strings.TrimSpace(rec[colAccount]),
		Target:  strings.TrimSpace(rec[colTarget]),
		Ref:     strings.TrimSpace(rec[colRef]),
	}
	if op.Label == "" {
		return Op{}, fmt.Errorf("%w: missing label", ErrInvalidOp)
	}

	if s := strings.TrimSpace(rec[colAmount]); s != "" {
		amount, err := decimal.NewFromString(s)
		if err != nil {
			return Op{}, fmt.Errorf("%w: parsing amount %q: %w", ErrInvalidOp, s, err)
		}
		op.Amount = amount
	}
	if s := strings.TrimSpace(rec[colDays]); s != "" {
		days, err := strconv.Atoi(s)
		if err != nil {
			return Op{}, fmt.Errorf("%w: parsing days %q: %w", ErrInvalidOp, s, err)
		}
		op.Days = days
	}

	required := map[OpKind][]struct {
		name  string
		value string
	}{
		OpReplenish:      {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpWithdraw:       {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpTransfer:       {{"account", op.Account}, {"target", op.Target}, {"amount", rec[colAmount]}},
		OpCancel:         {{"ref", op.Ref}},
		OpAdvance:        {{"days", rec[colDays]}},
		OpCreditLimit:    {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpLoanCommission: {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpDebitInterest:  {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpWithdrawalCap:  {{"account", op.Account}, {"amount", rec[colAmount]}},
		OpNotifyAll:      {{"account", op.Account}},
	}
	fields, ok := required[op.Kind]
	if !ok {
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrInvalidOp, rec[colOp])
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Op{}, fmt.Errorf("%w: %s %s requires %s", ErrInvalidOp, op.Kind, op.Label, f.name)
		}
	}
	return op, nil
}

// Write writes ops to w in the operations file format (including header).
func Write(w io.Writer, ops []Op) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, op := range ops {
		if err := cw.Write(marshalOp(op)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

func marshalOp(op Op) []string {
	rec := make([]string, numFields)
	rec[colLabel] = op.Label
	rec[colOp] = string(op.Kind)
	rec[colAccount] = op.Account
	rec[colTarget] = op.Target
	rec[colRef] = op.Ref
	if op.Kind == OpAdvance {
		rec[colDays] = strconv.Itoa(op.Days)
	} else if op.Kind != OpCancel && op.Kind != OpNotifyAll {
		rec[colAmount] = op.Amount.String()
	}
	return rec
}

// Sample returns operations that exercise the Default config.
func Sample() []Op {
	d := decimal.RequireFromString
	return []Op{
		{Label: "w1", Kind: OpWithdraw, Account: "alisa-debit", Amount: d("30000")},
		{Label: "w2", Kind: OpWithdraw, Account: "alisa-debit", Amount: d("5000")},
		{Label: "t1", Kind: OpTransfer, Account: "ivan-debit", Target: "alisa-debit", Amount: d("2500")},
		{Label: "c1", Kind: OpCancel, Ref: "t1"},
		{Label: "p1", Kind: OpCreditLimit, Account: "south", Amount: d("40000")},
		{Label: "a1", Kind: OpAdvance, Days: 10},
		{Label: "w3", Kind: OpWithdraw, Account: "ivan-deposit", Amount: d("1000")},
		{Label: "a2", Kind: OpAdvance, Days: 30},
	}
}
