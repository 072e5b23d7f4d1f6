package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/infra/storage"
)

const (
	upsertRun = `
INSERT INTO diagnostic_runs
    (id, source, status, started_at, finished_at, total_records, uncategorized, top_categories, summary)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    status         = EXCLUDED.status,
    finished_at    = EXCLUDED.finished_at,
    total_records  = EXCLUDED.total_records,
    uncategorized  = EXCLUDED.uncategorized,
    top_categories = EXCLUDED.top_categories,
    summary        = EXCLUDED.summary`

	getRun = `SELECT summary FROM diagnostic_runs WHERE id = $1`

	listRuns = `SELECT summary FROM diagnostic_runs ORDER BY started_at DESC, id LIMIT $1`

	deleteRunsBefore = `DELETE FROM diagnostic_runs WHERE started_at < $1`

	deleteAllRuns = `DELETE FROM diagnostic_runs`

	defaultListLimit = 20
)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

var _ storage.RunRepository = (*RunRepo)(nil)

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save upserts a run summary.
func (r *RunRepo) Save(ctx context.Context, run *domain.RunSummary) error {
	summary, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	_, err = r.db.ExecContext(ctx, upsertRun,
		run.ID,
		run.Source,
		string(run.Status),
		run.StartedAt,
		run.FinishedAt,
		run.TotalRecords,
		run.Uncategorized,
		pq.Array(topCategories(run)),
		summary,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *RunRepo) Get(ctx context.Context, id string) (*domain.RunSummary, error) {
	var summary []byte
	err := r.db.GetContext(ctx, &summary, getRun, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeRun(summary)
}

// List returns the most recent runs.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*domain.RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var summaries [][]byte
	if err := r.db.SelectContext(ctx, &summaries, listRuns, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*domain.RunSummary, 0, len(summaries))
	for _, s := range summaries {
		run, err := decodeRun(s)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteOlderThan removes runs started before cutoff.
func (r *RunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteRunsBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll wipes the run history.
func (r *RunRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteAllRuns)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	return res.RowsAffected()
}

func decodeRun(summary []byte) (*domain.RunSummary, error) {
	var run domain.RunSummary
	if err := json.Unmarshal(summary, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

func topCategories(run *domain.RunSummary) []string {
	out := make([]string, 0, len(run.RootCauses))
	for _, rc := range run.RootCauses {
		out = append(out, rc.Category.String())
	}
	return out
}
