package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

var (
	// ErrRunNotFound is returned when a run doesn't exist
	ErrRunNotFound = errors.New("run not found")
)

// RunRepository stores diagnostic run summaries. History is for display
// only and never feeds classification.
type RunRepository interface {
	// Save inserts or replaces a run
	Save(ctx context.Context, run *domain.RunSummary) error

	// Get retrieves a run by ID
	Get(ctx context.Context, id string) (*domain.RunSummary, error)

	// List returns the most recent runs, newest first
	List(ctx context.Context, limit int) ([]*domain.RunSummary, error)

	// DeleteOlderThan removes runs that started before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteAll wipes the history
	DeleteAll(ctx context.Context) (int64, error)
}
