package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/diagnosis/metrics"
	"github.com/vietddude/dlqdiag/internal/infra/dlq"
	"github.com/vietddude/dlqdiag/internal/infra/retry"
	"github.com/vietddude/dlqdiag/internal/infra/storage"
)

// ErrNoRecords is returned when the DLQ batch is empty.
var ErrNoRecords = errors.New("no messages found in DLQ")

// Run is the outcome of one successful diagnostic run.
type Run struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Analysis   *engine.Analysis
	Truth      domain.GroundTruth
	Artifacts  []string
}

// Summary returns the persisted form of the run.
func (r *Run) Summary() *domain.RunSummary {
	return &domain.RunSummary{
		ID:            r.ID,
		Source:        r.Source,
		Status:        domain.RunStatusSucceeded,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		TotalRecords:  r.Analysis.Total,
		Uncategorized: r.Analysis.Uncategorized(),
		RootCauses:    r.Analysis.RootCauses,
		Artifacts:     r.Artifacts,
	}
}

// Deps holds the collaborators of a Diagnostic. Only Source and Engine are
// required; nil collaborators disable their step.
type Deps struct {
	Source    dlq.Source
	Engine    *engine.Engine
	Catalog   SchemaCatalog
	Connect   ConnectorConfigFetcher
	Connector string
	Cache     TruthCache
	Runs      storage.RunRepository
	Reports   ReportWriter
	Retry     retry.Strategy
}

// Diagnostic runs acquire -> analyse -> persist -> report for one batch.
type Diagnostic struct {
	deps Deps
	now  func() time.Time
	log  *slog.Logger
}

// NewDiagnostic creates a new Diagnostic.
func NewDiagnostic(deps Deps) (*Diagnostic, error) {
	if deps.Source == nil {
		return nil, errors.New("dlq source is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if deps.Retry == nil {
		deps.Retry = retry.DefaultBackoff(nil)
	}
	return &Diagnostic{
		deps: deps,
		now:  time.Now,
		log:  slog.Default().With("component", "diagnostic"),
	}, nil
}

// Run performs one diagnostic run. Failures after the batch was acquired
// are recorded in the run history before being returned.
func (d *Diagnostic) Run(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Source:    d.deps.Source.Name(),
		StartedAt: d.now(),
	}
	log := d.log.With("run_id", run.ID, "source", run.Source)

	fetchStart := time.Now()
	records, err := d.deps.Source.Fetch(ctx)
	metrics.RunDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues("dlq").Inc()
		metrics.RunsTotal.WithLabelValues(string(domain.RunStatusFailed)).Inc()
		return nil, fmt.Errorf("failed to fetch dlq records: %w", err)
	}
	if len(records) == 0 {
		metrics.RunsTotal.WithLabelValues("empty").Inc()
		return nil, ErrNoRecords
	}
	log.Info("Fetched DLQ records", "count", len(records))

	run.Truth = d.GroundTruth(ctx)

	analyseStart := time.Now()
	analysis, err := d.deps.Engine.Run(ctx, records, run.Truth)
	metrics.RunDuration.WithLabelValues("analyse").Observe(time.Since(analyseStart).Seconds())
	if err != nil {
		d.fail(ctx, run, err)
		return nil, fmt.Errorf("failed to analyse records: %w", err)
	}
	run.Analysis = analysis
	observe(run.Source, analysis)

	run.FinishedAt = d.now()
	if d.deps.Reports != nil {
		paths, err := d.deps.Reports.WriteAll(analysis, run.Truth, run.FinishedAt)
		if err != nil {
			d.fail(ctx, run, err)
			return nil, fmt.Errorf("failed to write reports: %w", err)
		}
		run.Artifacts = paths
	}

	if d.deps.Runs != nil {
		if err := d.deps.Runs.Save(ctx, run.Summary()); err != nil {
			log.Warn("Failed to save run history", "error", err)
		}
	}

	metrics.RunsTotal.WithLabelValues(string(domain.RunStatusSucceeded)).Inc()
	metrics.RunDuration.WithLabelValues("total").Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	log.Info("Diagnostic run finished",
		"total", analysis.Total,
		"root_causes", len(analysis.RootCauses),
		"uncategorized", analysis.Uncategorized(),
	)
	return run, nil
}

// GroundTruth fetches the catalog and connector config, preferring a cached
// snapshot. Unavailable facts stay nil so the matching checks are skipped.
func (d *Diagnostic) GroundTruth(ctx context.Context) domain.GroundTruth {
	if d.deps.Cache != nil {
		cached, found, err := d.deps.Cache.Get(ctx)
		if err != nil {
			metrics.UpstreamErrorsTotal.WithLabelValues("redis").Inc()
			d.log.Warn("Failed to read ground truth cache", "error", err)
		} else if found {
			d.log.Debug("Using cached ground truth")
			return *cached
		}
	}

	var truth domain.GroundTruth
	complete := true

	if d.deps.Catalog != nil {
		err := retry.Do(ctx, d.deps.Retry, func(ctx context.Context) error {
			known, columns, err := d.deps.Catalog.Schema(ctx)
			if err != nil {
				return err
			}
			truth.KnownEntities, truth.Columns = known, columns
			return nil
		})
		if err != nil {
			complete = false
			metrics.UpstreamErrorsTotal.WithLabelValues("clickhouse").Inc()
			d.log.Warn("Could not read sink tables, skipping table checks", "error", err)
		}
	} else {
		complete = false
	}

	if d.deps.Connect != nil {
		err := retry.Do(ctx, d.deps.Retry, func(ctx context.Context) error {
			cfg, err := d.deps.Connect.ConnectorConfig(ctx, d.deps.Connector)
			if err != nil {
				return err
			}
			truth.ConnectorConfig = cfg
			return nil
		})
		if err != nil {
			complete = false
			metrics.UpstreamErrorsTotal.WithLabelValues("connect").Inc()
			d.log.Warn("Could not read connector config, skipping config checks",
				"connector", d.deps.Connector, "error", err)
		}
	} else {
		complete = false
	}

	// Partial snapshots are not cached so the next run retries the gaps
	if d.deps.Cache != nil && complete {
		if err := d.deps.Cache.Set(ctx, &truth); err != nil {
			metrics.UpstreamErrorsTotal.WithLabelValues("redis").Inc()
			d.log.Warn("Failed to cache ground truth", "error", err)
		}
	}
	return truth
}

func (d *Diagnostic) fail(ctx context.Context, run *Run, cause error) {
	metrics.RunsTotal.WithLabelValues(string(domain.RunStatusFailed)).Inc()
	if d.deps.Runs == nil {
		return
	}
	summary := &domain.RunSummary{
		ID:         run.ID,
		Source:     run.Source,
		Status:     domain.RunStatusFailed,
		StartedAt:  run.StartedAt,
		FinishedAt: d.now(),
		Error:      cause.Error(),
	}
	// The caller's context may already be done
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.deps.Runs.Save(saveCtx, summary); err != nil {
		d.log.Warn("Failed to save failed run", "run_id", run.ID, "error", err)
	}
}

func observe(source string, a *engine.Analysis) {
	metrics.RecordsProcessed.WithLabelValues(source).Add(float64(a.Total))
	metrics.LastRunRecords.Set(float64(a.Total))
	for _, c := range a.Statistics.Categories {
		metrics.RecordsClassified.WithLabelValues(c.Category.String()).Add(float64(c.Count))
	}
	metrics.RootCausePriority.Reset()
	for _, rc := range a.RootCauses {
		metrics.RootCausePriority.WithLabelValues(rc.Category.String()).Set(rc.PriorityScore)
	}
}
