package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/dlqdiag/internal/control"
	"github.com/vietddude/dlqdiag/internal/report"
)

var runOpts control.Options

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one diagnostic pass over the DLQ and write reports",
	Args:  cobra.NoArgs,
	Run:   runDiagnostic,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runOpts.Input, "input", "", "read records from an NDJSON dump instead of Kafka")
	cmd.Flags().BoolVar(&runOpts.NoReport, "no-report", false, "do not write report files")
	cmd.Flags().BoolVar(&runOpts.Offline, "offline", false, "skip ClickHouse and Kafka Connect cross-validation")
}

func runDiagnostic(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, cfg, runOpts)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	run, err := app.Diagnostic.Run(ctx)
	if err != nil {
		_ = app.Close()
		if errors.Is(err, control.ErrNoRecords) {
			slog.Warn("No messages found in DLQ")
		} else {
			slog.Error("Diagnostic run failed", "error", err)
		}
		os.Exit(1)
	}
	if err := app.Close(); err != nil {
		slog.Warn("Failed to close connections", "error", err)
	}

	if err := report.WriteText(os.Stdout, run.Analysis, cfg.Report.Top, run.FinishedAt); err != nil {
		slog.Error("Failed to print report", "error", err)
		os.Exit(1)
	}
	for _, path := range run.Artifacts {
		fmt.Printf("Saved: %s\n", path)
	}
	if n := run.Analysis.Uncategorized(); n > 0 {
		slog.Warn("Some records matched no rule", "count", n, "run_id", run.ID)
	}
}
