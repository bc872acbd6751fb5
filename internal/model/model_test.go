package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeKindAffectedKind(t *testing.T) {
	tests := []struct {
		change ChangeKind
		want   AccountKind
		ok     bool
	}{
		{ChangeCreditLimit, AccountKindCredit, true},
		{ChangeLoanCommission, AccountKindCredit, true},
		{ChangeDebitInterest, AccountKindDebit, true},
		{ChangeDepositInterest, AccountKindDeposit, true},
		{ChangeBroadcast, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.change.AffectedKind()
		assert.Equal(t, tt.ok, ok, "AffectedKind(%q)", tt.change)
		assert.Equal(t, tt.want, got, "AffectedKind(%q)", tt.change)
	}
}

func TestTransactionReversal(t *testing.T) {
	assert.Equal(t, TransactionWithdrawal, Transaction{Kind: TransactionReplenishment}.Reversal())
	assert.Equal(t, TransactionReplenishment, Transaction{Kind: TransactionWithdrawal}.Reversal())
}

func TestParseAccountKind(t *testing.T) {
	k, ok := ParseAccountKind("deposit")
	assert.True(t, ok)
	assert.Equal(t, AccountKindDeposit, k)

	_, ok = ParseAccountKind("savings")
	assert.False(t, ok)
}
