package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lab-banks/banks/internal/config"
	"github.com/lab-banks/banks/internal/scenario"
)

const (
	configFile = "banks.yaml"
	opsFile    = "ops.csv"
)

func newInitCommand() *cobra.Command {
	var startDate string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a sample banks.yaml and ops.csv",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, startDate, force)
		},
	}

	cmd.Flags().StringVar(&startDate, "start", time.Now().UTC().Format(time.DateOnly), "simulation start date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}

func runInit(out io.Writer, dir, startDate string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, configFile)
	opsPath := filepath.Join(dir, opsFile)
	if !force {
		for _, p := range []string{cfgPath, opsPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", p, err)
			}
		}
	}

	// Write banks.yaml.
	cfg := config.Default(startDate)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write ops.csv.
	f, err := os.Create(opsPath)
	if err != nil {
		return fmt.Errorf("creating operations file: %w", err)
	}
	defer f.Close()
	if err := scenario.Write(f, scenario.Sample()); err != nil {
		return fmt.Errorf("writing operations file: %w", err)
	}

	fmt.Fprintf(out, "Wrote %s and %s\n", cfgPath, opsPath)
	return nil
}
