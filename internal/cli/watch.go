package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dlqdiag/internal/control"
	"github.com/vietddude/dlqdiag/internal/core/worker"
	"github.com/vietddude/dlqdiag/internal/health"
)

var watchNoReport bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run diagnostics periodically and serve health and metrics",
	Args:  cobra.NoArgs,
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoReport, "no-report", false, "do not write report files on each run")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{NoReport: watchNoReport})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Failed to close connections", "error", err)
		}
	}()

	var pruner *worker.Pruner
	if cfg.Database.URL != "" && cfg.Database.Retention > 0 {
		pruner = worker.NewPruner(cfg.Database.Retention, app.Runs)
	}

	watcher := control.NewWatcher(
		control.WatcherConfig{Port: cfg.Server.Port, Interval: cfg.Watch.Interval},
		app.Diagnostic,
		app.Locker(),
		health.NewMonitor(app.HealthCheckers()),
		pruner,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	app.StartMetricsCollector(ctx)
	if err := watcher.Start(ctx); err != nil {
		slog.Error("Failed to start Watcher", "error", err)
		return
	}

	slog.Info("Watcher started", "config", cfgPath, "interval", cfg.Watch.Interval)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := watcher.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
