package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/dlqdiag/internal/infra/storage"
)

// Pruner deletes old diagnostic runs based on retention policy.
type Pruner struct {
	retention time.Duration
	runRepo   storage.RunRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, runRepo storage.RunRepository) *Pruner {
	return &Pruner{
		retention: retention,
		runRepo:   runRepo,
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune deletes runs older than the retention period once.
func (p *Pruner) Prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)
	n, err := p.runRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune diagnostic runs", "cutoff", cutoff, "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("Pruned diagnostic runs", "count", n, "cutoff", cutoff)
	}
	return n
}
