package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	redisclient "github.com/vietddude/dlqdiag/internal/infra/redis"
	"github.com/vietddude/dlqdiag/internal/infra/storage/postgres"
)

var resetOlderThan time.Duration

var resetHistoryCmd = &cobra.Command{
	Use:   "reset-history",
	Short: "Delete stored diagnostic runs",
	Args:  cobra.NoArgs,
	Run:   runResetHistory,
}

var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Drop the cached ClickHouse and connector snapshot",
	Args:  cobra.NoArgs,
	Run:   runResetCache,
}

func init() {
	resetHistoryCmd.Flags().DurationVar(&resetOlderThan, "older-than", 0, "only delete runs older than this (e.g. 720h)")
	rootCmd.AddCommand(resetHistoryCmd)
	rootCmd.AddCommand(resetCacheCmd)
}

func runResetHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx := context.Background()
	db := openHistory(ctx, cfg)
	defer func() {
		_ = db.Close()
	}()
	repo := postgres.NewRunRepo(db)

	var (
		n   int64
		err error
	)
	if resetOlderThan > 0 {
		n, err = repo.DeleteOlderThan(ctx, time.Now().Add(-resetOlderThan))
	} else {
		n, err = repo.DeleteAll(ctx)
	}
	if err != nil {
		slog.Error("Failed to reset history", "error", err)
		return
	}

	fmt.Printf("Successfully deleted %d runs\n", n)
}

func runResetCache(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	if cfg.Redis.URL == "" {
		slog.Error("Cache reset requires redis.url")
		os.Exit(1)
	}

	rc, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rc.Close()
	}()

	scope := cfg.ClickHouse.Database + ":" + cfg.Connect.Connector
	if err := redisclient.NewTruthCache(rc, scope, cfg.Redis.TTL).Invalidate(context.Background()); err != nil {
		slog.Error("Failed to reset cache", "error", err)
		return
	}
	fmt.Printf("Successfully dropped cached ground truth for %s\n", scope)
}
