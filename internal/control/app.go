package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/dlqdiag/internal/core/config"
	"github.com/vietddude/dlqdiag/internal/diagnosis/classifier"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/health"
	"github.com/vietddude/dlqdiag/internal/infra/clickhouse"
	"github.com/vietddude/dlqdiag/internal/infra/connect"
	"github.com/vietddude/dlqdiag/internal/infra/dlq"
	redisclient "github.com/vietddude/dlqdiag/internal/infra/redis"
	"github.com/vietddude/dlqdiag/internal/infra/retry"
	"github.com/vietddude/dlqdiag/internal/infra/storage"
	"github.com/vietddude/dlqdiag/internal/infra/storage/memory"
	"github.com/vietddude/dlqdiag/internal/infra/storage/postgres"
	"github.com/vietddude/dlqdiag/internal/report"
)

// Options are per-invocation switches that are not part of the config file.
type Options struct {
	// Input reads records from an NDJSON dump instead of Kafka.
	Input string
	// NoReport skips writing report artifacts.
	NoReport bool
	// Offline skips the ClickHouse and Kafka Connect lookups.
	Offline bool
}

// App owns every long-lived connection used by the diagnostic commands.
type App struct {
	Diagnostic *Diagnostic
	Engine     *engine.Engine
	Runs       storage.RunRepository

	db      *postgres.DB
	redis   *redisclient.Client
	catalog *clickhouse.Catalog
	connect *connect.Client
	cfg     *config.AppConfig
}

// NewApp creates the App with all dependencies initialized. Optional
// upstreams that cannot be reached are logged and left out.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	app := &App{cfg: cfg}

	eng, err := engine.New(engine.Config{
		Rules:   classifier.DefaultRules(),
		Workers: cfg.Engine.Workers,
		TopN:    cfg.Engine.TopN,
	})
	if err != nil {
		return nil, err
	}
	app.Engine = eng

	// 1. Run history
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		app.Runs = postgres.NewRunRepo(db)
		slog.Info("Using PostgreSQL run history")
	} else {
		app.Runs = memory.NewRunRepo(memory.NewMemoryStorage())
		slog.Debug("Using in-memory run history")
	}

	deps := Deps{
		Engine:    eng,
		Connector: cfg.Connect.Connector,
		Runs:      app.Runs,
		Retry:     retry.DefaultBackoff(nil),
	}

	// 2. DLQ source
	if opts.Input != "" {
		deps.Source = dlq.NewFileSource(opts.Input, cfg.Kafka.SampleSize)
	} else {
		deps.Source = dlq.NewKafkaSource(cfg.Kafka)
	}

	// 3. Ground truth
	if !opts.Offline {
		catalog, err := clickhouse.NewCatalog(ctx, cfg.ClickHouse)
		if err != nil {
			slog.Warn("ClickHouse unavailable, table checks disabled", "error", err)
		} else {
			app.catalog = catalog
			deps.Catalog = catalog
		}

		if cfg.Connect.URL != "" {
			app.connect = connect.NewClient(cfg.Connect.URL, cfg.Connect.Timeout)
			deps.Connect = app.connect
		}

		if cfg.Redis.URL != "" {
			rc, err := redisclient.NewClient(cfg.Redis)
			if err != nil {
				slog.Warn("Failed to connect to Redis, ground truth cache disabled", "error", err)
			} else {
				app.redis = rc
				scope := cfg.ClickHouse.Database + ":" + cfg.Connect.Connector
				deps.Cache = redisclient.NewTruthCache(rc, scope, cfg.Redis.TTL)
			}
		}
	}

	// 4. Reports
	if !opts.NoReport {
		deps.Reports = &report.Writer{
			Dir:      cfg.Report.Dir,
			Database: cfg.ClickHouse.Database,
			Top:      cfg.Report.Top,
			DDLDir:   cfg.Report.MySQLDDLDir,
		}
	}

	diag, err := NewDiagnostic(deps)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Diagnostic = diag
	return app, nil
}

// HealthCheckers returns checks for the upstreams this App is connected to.
func (a *App) HealthCheckers() map[string]health.Checker {
	checks := make(map[string]health.Checker)
	if a.db != nil {
		checks["postgres"] = a.db.Health
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	if a.catalog != nil {
		checks["clickhouse"] = a.catalog.Ping
	}
	if a.connect != nil {
		checks["connect"] = func(ctx context.Context) error {
			_, err := a.connect.Connectors(ctx)
			return err
		}
	}
	return checks
}

// Locker returns the distributed run lock, or nil without Redis.
func (a *App) Locker() Locker {
	if a.redis == nil {
		return nil
	}
	return a.redis
}

// StartMetricsCollector starts the DB pool metrics loop when Postgres is used.
func (a *App) StartMetricsCollector(ctx context.Context) {
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
}

// Close releases every connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close clickhouse: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
