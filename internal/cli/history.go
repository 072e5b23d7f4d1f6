package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dlqdiag/internal/core/config"
	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/infra/storage"
	"github.com/vietddude/dlqdiag/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run_id]",
	Short: "List past diagnostic runs, or show one run's root causes",
	Args:  cobra.MaximumNArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

// openHistory connects to the run-history database or exits.
func openHistory(ctx context.Context, cfg *config.AppConfig) *postgres.DB {
	if cfg.Database.URL == "" {
		slog.Error("Run history requires database.url")
		os.Exit(1)
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	ctx := context.Background()
	db := openHistory(ctx, cfg)
	defer func() {
		_ = db.Close()
	}()
	repo := postgres.NewRunRepo(db)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	defer func() {
		_ = w.Flush()
	}()

	if len(args) == 1 {
		run, err := repo.Get(ctx, args[0])
		if errors.Is(err, storage.ErrRunNotFound) {
			slog.Error("Run not found", "id", args[0])
			return
		}
		if err != nil {
			slog.Error("Failed to load run", "error", err)
			return
		}
		_, _ = fmt.Fprintln(w, "CATEGORY\tCOUNT\tSHARE\tSEVERITY\tPRIORITY\tFIX")
		for _, rc := range run.RootCauses {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.1f\t%s\n",
				rc.Category, rc.ErrorCount, rc.Percentage, rc.Severity(), rc.PriorityScore, rc.FixComplexity)
		}
		return
	}

	runs, err := repo.List(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		return
	}

	_, _ = fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tRECORDS\tTOP CAUSE\tSOURCE")
	for _, r := range runs {
		top := r.TopCategory().String()
		if r.Status != domain.RunStatusSucceeded {
			top = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.Status, r.TotalRecords, top, r.Source)
	}
}
