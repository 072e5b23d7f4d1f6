// Package control wires the diagnostic pipeline to its collaborators and
// drives one-shot and periodic runs.
package control

import (
	"context"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
)

// SchemaCatalog reads the sink database catalog.
type SchemaCatalog interface {
	// Schema returns the known tables and their column types.
	Schema(ctx context.Context) (map[string]bool, map[string]map[string]string, error)
}

// ConnectorConfigFetcher reads the sink connector configuration.
type ConnectorConfigFetcher interface {
	ConnectorConfig(ctx context.Context, name string) (map[string]string, error)
}

// TruthCache caches ground-truth snapshots between runs.
type TruthCache interface {
	Get(ctx context.Context) (*domain.GroundTruth, bool, error)
	Set(ctx context.Context, truth *domain.GroundTruth) error
}

// ReportWriter persists report artifacts for a finished analysis.
type ReportWriter interface {
	WriteAll(a *engine.Analysis, truth domain.GroundTruth, now time.Time) ([]string, error)
}

// Locker serialises periodic runs across processes.
type Locker interface {
	AcquireLock(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope, owner string) error
	// RefreshLock extends the lock; false means owner lost it.
	RefreshLock(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error)
}
