package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/model"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", model.ErrValidation), "validation"},
		{bank.ErrAccountNotFound, "not_found"},
		{bank.ErrAccountExists, "conflict"},
		{bank.ErrUnverifiedLimit, "business_rule"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}

func TestRecorderCounters(t *testing.T) {
	c := NewCollector(nil)
	c.Operation(bank.OpWithdraw, nil)
	c.Operation(bank.OpWithdraw, bank.ErrUnverifiedLimit)
	c.Operation(bank.OpCancel, bank.ErrTransactionNotFound)
	c.Notified(model.ChangeCreditLimit, 3)
	c.Notified(model.ChangeCreditLimit, 0)
	c.AccrualApplied(nil)
	c.AccrualApplied(errors.New("rejected"))

	assert.InDelta(t, 2, testutil.ToFloat64(c.operations.WithLabelValues(bank.OpWithdraw)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.failures.WithLabelValues(bank.OpWithdraw, "business_rule")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.failures.WithLabelValues(bank.OpCancel, "not_found")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.notifications.WithLabelValues(string(model.ChangeCreditLimit))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.accruals.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.accruals.WithLabelValues("partial")), 0)
}

func TestCollectorAsBankRecorder(t *testing.T) {
	c := NewCollector(nil)
	cond, err := bank.NewConditions(bank.ConditionsParams{
		DepositTiers:            []bank.DepositTier{{Threshold: decimal.NewFromInt(1000000), Rate: decimal.NewFromInt(3)}},
		CreditLimit:             decimal.NewFromInt(100),
		UnverifiedWithdrawalCap: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	b := bank.New(cond, bank.WithRecorder(c), bank.WithClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	owner, err := client.NewBuilder().Name("Ivan").Surname("Petrov").Build()
	require.NoError(t, err)
	debit, err := b.OpenDebit(owner, decimal.NewFromInt(70))
	require.NoError(t, err)
	_, err = b.OpenCredit(owner, decimal.NewFromInt(200))
	require.NoError(t, err)
	_, err = b.Withdraw(bank.Movement{Account: debit, Amount: decimal.NewFromInt(80)})
	require.Error(t, err)

	c.ObserveBank(b)
	label := id.Short(b.ID())
	assert.InDelta(t, 2, testutil.ToFloat64(c.operations.WithLabelValues(bank.OpOpen)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.failures.WithLabelValues(bank.OpWithdraw, "validation")), 0)
	assert.InDelta(t, 70, testutil.ToFloat64(c.balance.WithLabelValues(label, "debit")), 0)
	assert.InDelta(t, 200, testutil.ToFloat64(c.balance.WithLabelValues(label, "credit")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.balance.WithLabelValues(label, "deposit")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.transactionLogs.WithLabelValues(label)), 0)
}

func TestWriteText(t *testing.T) {
	c := NewCollector(nil)
	c.Operation(bank.OpReplenish, nil)

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE bank_operations_total counter")
	assert.Contains(t, out, `bank_operations_total{op="replenish"} 1`)
}
