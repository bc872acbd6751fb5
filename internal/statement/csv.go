// Package statement exports a bank's transaction log as CSV.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/model"
)

// Header is the CSV header for a statement.
const Header = "transaction_id,leg,kind,bank_id,account_id,amount"

const (
	numFields    = 6
	colTxID      = 0
	colLeg       = 1
	colKind      = 2
	colBankID    = 3
	colAcctID    = 4
	colAmount    = 5
	amountPlaces = 2
)

// Row is one statement line: a transaction and its leg label.
type Row struct {
	Transaction model.Transaction
	// Leg is the transaction ID with a leg suffix, e.g. "<txid>.b".
	Leg string
}

// Rows labels each transaction with its leg. Legs that share an ID are
// lettered in log order.
func Rows(txs []model.Transaction) []Row {
	seen := make(map[string]int, len(txs))
	rows := make([]Row, len(txs))
	for i, tx := range txs {
		rows[i] = Row{Transaction: tx, Leg: id.FormatLegID(tx.ID, seen[tx.ID])}
		seen[tx.ID]++
	}
	return rows
}

// Write writes txs to w as a statement (including header).
func Write(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range Rows(txs) {
		if err := cw.Write(MarshalRow(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// Read parses a statement written by Write.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MarshalRow converts a Row to a CSV record.
func MarshalRow(row Row) []string {
	rec := make([]string, numFields)
	rec[colTxID] = row.Transaction.ID
	rec[colLeg] = row.Leg
	rec[colKind] = string(row.Transaction.Kind)
	rec[colBankID] = row.Transaction.BankID
	rec[colAcctID] = row.Transaction.AccountID
	rec[colAmount] = row.Transaction.Amount.StringFixed(amountPlaces)
	return rec
}

// UnmarshalRow converts a CSV record to a Row.
func UnmarshalRow(rec []string) (Row, error) {
	if len(rec) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(rec))
	}
	txID, _, err := id.ParseLegID(rec[colLeg])
	if err != nil {
		return Row{}, err
	}
	if txID != rec[colTxID] {
		return Row{}, fmt.Errorf("leg %q does not belong to transaction %q", rec[colLeg], rec[colTxID])
	}

	kind := model.TransactionKind(rec[colKind])
	if kind != model.TransactionReplenishment && kind != model.TransactionWithdrawal {
		return Row{}, fmt.Errorf("unknown kind %q", rec[colKind])
	}
	amount, err := decimal.NewFromString(rec[colAmount])
	if err != nil {
		return Row{}, fmt.Errorf("parsing amount %q: %w", rec[colAmount], err)
	}

	return Row{
		Transaction: model.Transaction{
			ID:        rec[colTxID],
			Kind:      kind,
			AccountID: rec[colAcctID],
			BankID:    rec[colBankID],
			Amount:    amount,
		},
		Leg: rec[colLeg],
	}, nil
}
