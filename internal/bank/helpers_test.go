package bank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lab-banks/banks/internal/client"
	"github.com/lab-banks/banks/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func defaultTiers() []DepositTier {
	return []DepositTier{
		{Threshold: dec("50000"), Rate: dec("3")},
		{Threshold: dec("100000"), Rate: dec("4")},
		{Threshold: dec("1000000"), Rate: dec("5")},
	}
}

func newConditions(t *testing.T) *Conditions {
	t.Helper()
	c, err := NewConditions(ConditionsParams{
		DepositTiers:            defaultTiers(),
		CreditLimit:             dec("100000"),
		LoanCommission:          dec("1000"),
		DebitInterest:           dec("5"),
		UnverifiedWithdrawalCap: dec("20000"),
	})
	require.NoError(t, err)
	return c
}

func newBank(t *testing.T) *Bank {
	t.Helper()
	return New(newConditions(t), WithClock(day0))
}

func withPassport(t *testing.T, name, passport string) *client.Client {
	t.Helper()
	c, err := client.NewBuilder().Name(name).Surname("Tester").Passport(passport).Build()
	require.NoError(t, err)
	return c
}

func noPassport(t *testing.T, name string) *client.Client {
	t.Helper()
	c, err := client.NewBuilder().Name(name).Surname("Tester").Build()
	require.NoError(t, err)
	return c
}

type recordingSubscriber struct {
	id       string
	received []model.Notification
}

func (s *recordingSubscriber) SubscriberID() string { return s.id }

func (s *recordingSubscriber) Notified(n model.Notification) {
	s.received = append(s.received, n)
}

type countingRecorder struct {
	ops      map[string]int
	failures map[string]int
	notified map[model.ChangeKind]int
	accruals int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		ops:      make(map[string]int),
		failures: make(map[string]int),
		notified: make(map[model.ChangeKind]int),
	}
}

func (r *countingRecorder) Operation(op string, err error) {
	r.ops[op]++
	if err != nil {
		r.failures[op]++
	}
}

func (r *countingRecorder) Notified(change model.ChangeKind, delivered int) {
	r.notified[change] += delivered
}

func (r *countingRecorder) AccrualApplied(error) { r.accruals++ }
