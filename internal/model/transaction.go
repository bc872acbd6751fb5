package model

import (
	"github.com/shopspring/decimal"
)

// TransactionKind tags the direction of a recorded money movement.
type TransactionKind string

const (
	TransactionReplenishment TransactionKind = "replenishment"
	TransactionWithdrawal    TransactionKind = "withdrawal"
)

// Transaction is an immutable audit record of one money movement.
// The two legs of a transfer share the same ID.
type Transaction struct {
	ID        string
	Kind      TransactionKind
	AccountID string
	BankID    string
	Amount    decimal.Decimal // never negative
}

// Reversal returns the kind of movement that undoes t.
func (t Transaction) Reversal() TransactionKind {
	if t.Kind == TransactionReplenishment {
		return TransactionWithdrawal
	}
	return TransactionReplenishment
}
