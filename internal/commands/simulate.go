package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lab-banks/banks/internal/config"
	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/logging"
	"github.com/lab-banks/banks/internal/metrics"
	"github.com/lab-banks/banks/internal/model"
	"github.com/lab-banks/banks/internal/notifylog"
	"github.com/lab-banks/banks/internal/registry"
	"github.com/lab-banks/banks/internal/scenario"
	"github.com/lab-banks/banks/internal/statement"
)

type simulateOptions struct {
	configPath string
	opsPath    string
	outDir     string
	logLevel   string
	metrics    bool
	strict     bool
}

func newSimulateCommand() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an operations file against the configured banks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", configFile, "banks config file")
	cmd.Flags().StringVar(&opts.opsPath, "ops", opsFile, "operations file")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "directory for statement and notification CSVs (default: print to stdout)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log.level from the config")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "print metrics in Prometheus text format")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error if any operation fails")

	return cmd
}

func runSimulate(out, errOut io.Writer, opts simulateOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.New(level, cfg.Log.Format, errOut)

	f, err := os.Open(opts.opsPath)
	if err != nil {
		return fmt.Errorf("opening operations file: %w", err)
	}
	defer f.Close()
	ops, err := scenario.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", opts.opsPath, err)
	}

	collector := metrics.NewCollector(logger)
	world, err := scenario.Build(cfg, logger, registry.WithRecorder(collector))
	if err != nil {
		return fmt.Errorf("building banks: %w", err)
	}
	results := world.Run(ops)

	printResults(out, world, results)
	printBanks(out, world)
	checkStatements(world, logger)
	if err := writeStatements(out, world, opts.outDir); err != nil {
		return err
	}

	if opts.metrics {
		for _, name := range world.BankNames() {
			b, _ := world.Bank(name)
			collector.ObserveBank(b)
		}
		fmt.Fprintln(out, "\n# metrics")
		if err := collector.WriteText(out); err != nil {
			return err
		}
	}

	failed := scenario.Failed(results)
	logger.Info("simulation finished", "ops", len(results), "failed", failed, "date", world.Registry.CurrentDate().Format(time.DateOnly))
	if opts.strict && failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(results))
	}
	return nil
}

func checkStatements(w *scenario.World, logger *slog.Logger) {
	var logs [][]model.Transaction
	for _, b := range w.Registry.Banks() {
		logs = append(logs, b.Transactions())
	}
	violations := statement.Validate(statement.Concat(logs...), w.Registry)
	for _, v := range violations {
		logger.Warn("statement check failed", "rule", v.Rule, "tx", id.Short(v.TransactionID), "detail", v.Description)
	}
	logger.Debug("statements checked", "violations", len(violations))
}

func printResults(out io.Writer, w *scenario.World, results []scenario.Result) {
	fmt.Fprintln(out, "# operations")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tOP\tSTATUS\tTX\tDETAIL")
	for _, r := range results {
		status, detail := "ok", ""
		if r.Err != nil {
			status, detail = "failed", r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Op.Label, r.Op.Kind, status, id.Short(r.TxID), detail)
	}
	tw.Flush()
	fmt.Fprintf(out, "date: %s\n", w.Registry.CurrentDate().Format(time.DateOnly))
}

func printBanks(out io.Writer, w *scenario.World) {
	fmt.Fprintln(out, "\n# accounts")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tBANK\tKIND\tBALANCE\tPENDING")
	for _, label := range w.AccountLabels() {
		b, a, err := w.Account(label)
		if err != nil {
			continue
		}
		pending := "0.00"
		if ca := b.FindClientAccounts(a.ID()); ca != nil {
			p, _ := ca.Pending(a.ID())
			pending = p.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", label, w.BankName(b.ID()), a.Kind(), a.Balance().StringFixed(2), pending)
	}
	tw.Flush()
}

func writeStatements(out io.Writer, w *scenario.World, dir string) error {
	if dir == "" {
		for _, name := range w.BankNames() {
			b, _ := w.Bank(name)
			fmt.Fprintf(out, "\n# statement %s\n", name)
			if err := statement.Write(out, b.Transactions()); err != nil {
				return fmt.Errorf("writing statement for %s: %w", name, err)
			}
		}
		fmt.Fprintln(out, "\n# notifications")
		return notifylog.Write(out, w.Notifications.Entries())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, name := range w.BankNames() {
		b, _ := w.Bank(name)
		path := filepath.Join(dir, "statement-"+name+".csv")
		if err := writeStatementFile(path, b.Transactions()); err != nil {
			return err
		}
	}
	path := filepath.Join(dir, "notifications.csv")
	if err := notifylog.Append(path, w.Notifications.Entries()); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWrote statements and notifications to %s\n", dir)
	return nil
}

func writeStatementFile(path string, txs []model.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := statement.Write(f, txs); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
