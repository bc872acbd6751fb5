package statement

import (
	"fmt"

	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/model"
)

// Rule numbers reported by Validate.
const (
	RuleLegCount = iota + 1
	RuleTransferBalance
	RuleAmount
	RuleKnownAccount
	RuleLegLabel
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule          int
	TransactionID string
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rule %d [%s]: %s", e.Rule, id.Short(e.TransactionID), e.Description)
}

// AccountChecker tests whether an account ID is held at some bank.
type AccountChecker interface {
	HasAccount(accountID string) bool
}

// Validate checks rows, usually the concatenated statements of every bank.
// A transaction ID carries one leg, or two legs that are a withdrawal and a
// replenishment of the same amount.
func Validate(rows []Row, accounts AccountChecker) []ValidationError {
	var errs []ValidationError

	groups := make(map[string][]Row)
	var order []string
	for _, row := range rows {
		txID := row.Transaction.ID
		if _, seen := groups[txID]; !seen {
			order = append(order, txID)
		}
		groups[txID] = append(groups[txID], row)
	}

	for _, txID := range order {
		legs := groups[txID]
		switch len(legs) {
		case 1:
		case 2:
			a, b := legs[0].Transaction, legs[1].Transaction
			if a.Kind == b.Kind {
				errs = append(errs, ValidationError{
					Rule:          RuleTransferBalance,
					TransactionID: txID,
					Description:   fmt.Sprintf("both legs are %s", a.Kind),
				})
			} else if !a.Amount.Equal(b.Amount) {
				errs = append(errs, ValidationError{
					Rule:          RuleTransferBalance,
					TransactionID: txID,
					Description:   fmt.Sprintf("legs move %s and %s", a.Amount.StringFixed(amountPlaces), b.Amount.StringFixed(amountPlaces)),
				})
			}
		default:
			errs = append(errs, ValidationError{
				Rule:          RuleLegCount,
				TransactionID: txID,
				Description:   fmt.Sprintf("%d legs, want 1 or 2", len(legs)),
			})
		}
	}

	for _, row := range rows {
		tx := row.Transaction
		if tx.Amount.IsNegative() {
			errs = append(errs, ValidationError{
				Rule:          RuleAmount,
				TransactionID: tx.ID,
				Description:   fmt.Sprintf("amount %s is negative", tx.Amount),
			})
		}
		if accounts != nil && !accounts.HasAccount(tx.AccountID) {
			errs = append(errs, ValidationError{
				Rule:          RuleKnownAccount,
				TransactionID: tx.ID,
				Description:   fmt.Sprintf("unknown account %s", tx.AccountID),
			})
		}
		if txID, _, err := id.ParseLegID(row.Leg); err != nil || txID != tx.ID {
			errs = append(errs, ValidationError{
				Rule:          RuleLegLabel,
				TransactionID: tx.ID,
				Description:   fmt.Sprintf("leg %q does not label this transaction", row.Leg),
			})
		}
	}

	return errs
}

// Concat labels each bank's log separately and joins the rows in order.
func Concat(logs ...[]model.Transaction) []Row {
	var rows []Row
	for _, txs := range logs {
		rows = append(rows, Rows(txs)...)
	}
	return rows
}
