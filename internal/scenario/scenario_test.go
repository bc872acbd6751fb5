package scenario

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-banks/banks/internal/bank"
	"github.com/lab-banks/banks/internal/config"
	"github.com/lab-banks/banks/internal/model"
	"github.com/lab-banks/banks/internal/registry"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newWorld(t *testing.T) *World {
	t.Helper()
	w, err := Build(config.Default("2025-01-01"), nil)
	require.NoError(t, err)
	return w
}

func balance(t *testing.T, w *World, label string) decimal.Decimal {
	t.Helper()
	_, a, err := w.Account(label)
	require.NoError(t, err)
	return a.Balance()
}

func TestParse_File(t *testing.T) {
	f, err := os.Open("testdata/ops.csv")
	require.NoError(t, err)
	defer f.Close()

	ops, err := Parse(f)
	require.NoError(t, err)
	require.Len(t, ops, len(Sample()))
	for i, want := range Sample() {
		got := ops[i]
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.Account, got.Account)
		assert.Equal(t, want.Target, got.Target)
		assert.Equal(t, want.Days, got.Days)
		assert.Equal(t, want.Ref, got.Ref)
		assert.True(t, want.Amount.Equal(got.Amount), "%s amount %s", want.Label, got.Amount)
	}
}

func TestWriteThenParse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Sample()))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))
	assert.Contains(t, buf.String(), "c1,cancel,,,,,t1\n")

	ops, err := Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, ops, len(Sample()))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows string
		msg  string
	}{
		{"unknown op", "x,deposit,a,,1,,", "unknown op"},
		{"missing amount", "x,withdraw,a,,,,", "requires amount"},
		{"missing target", "x,transfer,a,,1,,", "requires target"},
		{"bad amount", "x,replenish,a,,ten,,", "parsing amount"},
		{"bad days", "x,advance,,,,soon,", "parsing days"},
		{"missing label", ",advance,,,,1,", "missing label"},
		{"duplicate label", "x,advance,,,,1,\nx,advance,,,,1,", "duplicate label"},
		{"forward ref", "c,cancel,,,,,t\nt,replenish,a,,1,,", "unknown or later label"},
		{"field count", "x,advance", "wrong number of fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(Header + "\n" + tt.rows + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	ops, err := Parse(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestBuild(t *testing.T) {
	w := newWorld(t)
	assert.Equal(t, []string{"north", "south"}, w.BankNames())
	assert.Equal(t, []string{"ivan-debit", "ivan-deposit", "alisa-debit", "alisa-credit"}, w.AccountLabels())
	assert.Equal(t, day0, w.Registry.StartDate())
	assert.Len(t, w.Registry.Banks(), 2)

	south, err := w.Bank("south")
	require.NoError(t, err)
	b, credit, err := w.Account("alisa-credit")
	require.NoError(t, err)
	assert.Same(t, south, b)
	assert.Equal(t, model.AccountKindCredit, credit.Kind())
	assert.True(t, credit.Threshold().Equal(dec("50000")))
	assert.Equal(t, "south", w.BankName(south.ID()))
	assert.Equal(t, "alisa-credit", w.AccountLabel(credit.ID()))

	_, deposit, err := w.Account("ivan-deposit")
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 10), deposit.MaturesAt())

	// Each client is subscribed once at the bank where they hold accounts.
	assert.Len(t, south.Subscribers(), 1)

	_, err = w.Bank("east")
	assert.ErrorIs(t, err, registry.ErrBankNotFound)
	_, _, err = w.Account("nope")
	assert.ErrorIs(t, err, bank.ErrAccountNotFound)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := config.Default("2025-01-01")
	cfg.Accounts[0].Bank = "east"
	_, err := Build(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = config.Default("2025-01-01")
	cfg.Clients[1].Passport = "123"
	_, err = Build(cfg, nil)
	assert.ErrorContains(t, err, "passport")

	cfg = config.Default("2025-01-01")
	cfg.Accounts[3].Amount = "100"
	_, err = Build(cfg, nil)
	assert.ErrorContains(t, err, "credit threshold")
}

func TestRun_MovementsAndCancel(t *testing.T) {
	w := newWorld(t)
	results := w.Run(Sample()[:4])
	require.Len(t, results, 4)

	assert.ErrorIs(t, results[0].Err, bank.ErrUnverifiedLimit)
	assert.Empty(t, results[0].TxID)
	require.NoError(t, results[1].Err)
	require.NoError(t, results[2].Err)
	assert.NotEmpty(t, results[2].TxID)
	require.NoError(t, results[3].Err)
	assert.Equal(t, 1, Failed(results))

	assert.True(t, balance(t, w, "alisa-debit").Equal(dec("95000")))
	assert.True(t, balance(t, w, "ivan-debit").Equal(dec("100000")), "transfer cancelled")
}

func TestRun_Sample(t *testing.T) {
	w := newWorld(t)
	results := w.Run(Sample())
	assert.Equal(t, 1, Failed(results))
	assert.Equal(t, day0.AddDate(0, 0, 40), w.Registry.CurrentDate())

	w3 := results[6]
	require.NoError(t, w3.Err, "deposit matured after 10 days")
	assert.True(t, balance(t, w, "ivan-deposit").GreaterThan(dec("4000")), "accrual applied on day 30")

	entries := w.Notifications.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.ChangeCreditLimit, entries[0].Change)
	assert.Equal(t, "8888111111", entries[0].Subscriber)
	assert.Equal(t, day0, entries[0].Date)
}

func TestRun_DepositScenario(t *testing.T) {
	w := newWorld(t)
	results := w.Run([]Op{
		{Label: "early", Kind: OpWithdraw, Account: "ivan-deposit", Amount: dec("1000")},
		{Label: "wait", Kind: OpAdvance, Days: 10},
		{Label: "late", Kind: OpWithdraw, Account: "ivan-deposit", Amount: dec("1000")},
	})
	assert.ErrorContains(t, results[0].Err, "maturity not reached")
	require.NoError(t, results[2].Err)
	assert.True(t, balance(t, w, "ivan-deposit").Equal(dec("4000")))
}

func TestRun_Errors(t *testing.T) {
	w := newWorld(t)
	results := w.Run([]Op{
		{Label: "a", Kind: OpReplenish, Account: "ghost", Amount: dec("1")},
		{Label: "b", Kind: OpCreditLimit, Account: "east", Amount: dec("1")},
		{Label: "c", Kind: OpCancel, Ref: "a"},
		{Label: "d", Kind: OpAdvance, Days: -1},
		{Label: "e", Kind: OpDebitInterest, Account: "north", Amount: dec("-1")},
		{Label: "f", Kind: OpNotifyAll, Account: "north"},
		{Label: "g", Kind: OpWithdrawalCap, Account: "south", Amount: dec("50000")},
		{Label: "h", Kind: OpWithdraw, Account: "alisa-debit", Amount: dec("30000")},
	})
	assert.ErrorIs(t, results[0].Err, bank.ErrAccountNotFound)
	assert.ErrorIs(t, results[1].Err, registry.ErrBankNotFound)
	assert.ErrorIs(t, results[2].Err, bank.ErrTransactionNotFound)
	assert.ErrorIs(t, results[3].Err, registry.ErrInvalidDays)
	assert.ErrorIs(t, results[4].Err, bank.ErrInvalidCondition)
	assert.NoError(t, results[5].Err)
	assert.NoError(t, results[6].Err)
	assert.NoError(t, results[7].Err, "cap raised")
	assert.Equal(t, 5, Failed(results))
	assert.Len(t, w.Notifications.Entries(), 1, "broadcast reaches the north subscriber")
}

func TestTransferFailureKeepsTxID(t *testing.T) {
	w := newWorld(t)

	// Credit threshold rejects the landing amount, so only the withdrawal stands.
	results := w.Run([]Op{
		{Label: "t", Kind: OpTransfer, Account: "ivan-debit", Target: "alisa-credit", Amount: dec("100")},
		{Label: "undo", Kind: OpCancel, Ref: "t"},
	})
	require.Error(t, results[0].Err)
	assert.NotEmpty(t, results[0].TxID)
	require.NoError(t, results[1].Err)
	assert.True(t, balance(t, w, "ivan-debit").Equal(dec("100000")))
}
