package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-banks/banks/internal/commands"
	"github.com/lab-banks/banks/internal/config"
	"github.com/lab-banks/banks/internal/notifylog"
	"github.com/lab-banks/banks/internal/scenario"
	"github.com/lab-banks/banks/internal/statement"
)

func runBanks(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func initDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := runBanks(t, "init", dir, "--start", "2025-01-01")
	require.NoError(t, err)
	return dir
}

func TestInit_WritesFiles(t *testing.T) {
	dir := initDir(t)

	cfg, err := config.Load(filepath.Join(dir, "banks.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "2025-01-01", cfg.Simulation.StartDate)

	f, err := os.Open(filepath.Join(dir, "ops.csv"))
	require.NoError(t, err)
	defer f.Close()
	ops, err := scenario.Parse(f)
	require.NoError(t, err)
	assert.Len(t, ops, len(scenario.Sample()))
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := initDir(t)

	_, _, err := runBanks(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = runBanks(t, "init", dir, "--force", "--start", "2025-06-01")
	require.NoError(t, err)
	cfg, err := config.Load(filepath.Join(dir, "banks.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", cfg.Simulation.StartDate)
}

func TestInit_BadStartDate(t *testing.T) {
	_, _, err := runBanks(t, "init", t.TempDir(), "--start", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start_date")
}

func TestSimulate_Stdout(t *testing.T) {
	dir := initDir(t)

	out, _, err := runBanks(t, "simulate",
		"--config", filepath.Join(dir, "banks.yaml"),
		"--ops", filepath.Join(dir, "ops.csv"),
		"--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "# operations")
	assert.Contains(t, out, "unverified client exceeds withdrawal cap")
	assert.Contains(t, out, "date: 2025-02-10")
	assert.Contains(t, out, "# statement north")
	assert.Contains(t, out, "# statement south")
	assert.Contains(t, out, statement.Header)
	assert.Contains(t, out, notifylog.Header)
	assert.Contains(t, out, "credit-limit,8888111111,Alisa Smirnova")
	assert.Contains(t, out, `bank_operations_failed_total{kind="business_rule",op="withdraw"} 1`)
	assert.Contains(t, out, "bank_balance_total")
}

func TestSimulate_Strict(t *testing.T) {
	dir := initDir(t)

	_, _, err := runBanks(t, "simulate",
		"--config", filepath.Join(dir, "banks.yaml"),
		"--ops", filepath.Join(dir, "ops.csv"),
		"--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 8 operations failed")
}

func TestSimulate_OutDir(t *testing.T) {
	dir := initDir(t)
	outDir := filepath.Join(dir, "out")

	out, _, err := runBanks(t, "simulate",
		"--config", filepath.Join(dir, "banks.yaml"),
		"--ops", filepath.Join(dir, "ops.csv"),
		"--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote statements and notifications")

	f, err := os.Open(filepath.Join(outDir, "statement-north.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := statement.Read(f)
	require.NoError(t, err)
	// North keeps the mature deposit withdrawal; the cancelled transfer is gone.
	require.Len(t, rows, 1)
	assert.Equal(t, "withdrawal", string(rows[0].Transaction.Kind))

	entries, err := notifylog.Read(filepath.Join(outDir, "notifications.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSimulate_LogsToStderr(t *testing.T) {
	dir := initDir(t)

	_, errOut, err := runBanks(t, "simulate",
		"--config", filepath.Join(dir, "banks.yaml"),
		"--ops", filepath.Join(dir, "ops.csv"),
		"--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, errOut, "operation failed")
	assert.Contains(t, errOut, "simulation finished")
	assert.Contains(t, errOut, "statements checked")
	assert.True(t, strings.Contains(errOut, "level=DEBUG"))
}

func TestSimulate_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runBanks(t, "simulate", "--config", filepath.Join(dir, "banks.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")

	initD := initDir(t)
	_, _, err = runBanks(t, "simulate",
		"--config", filepath.Join(initD, "banks.yaml"),
		"--ops", filepath.Join(dir, "ops.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening operations file")
}

func TestVersion(t *testing.T) {
	out, _, err := runBanks(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}
