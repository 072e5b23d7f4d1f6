package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dlqdiag/internal/core/worker"
	"github.com/vietddude/dlqdiag/internal/health"
)

const lockScope = "watch"

// Runner performs one diagnostic run.
type Runner interface {
	Run(ctx context.Context) (*Run, error)
}

// WatcherConfig holds the periodic-run settings.
type WatcherConfig struct {
	Port     int
	Interval time.Duration
}

// Watcher runs diagnostics on a fixed interval and serves health and
// metrics while doing so.
type Watcher struct {
	cfg          WatcherConfig
	runner       Runner
	locker       Locker
	monitor      *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	owner        string
	log          *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWatcher creates a new Watcher. locker and pruner may be nil.
func NewWatcher(cfg WatcherConfig, runner Runner, locker Locker, monitor *health.Monitor, pruner *worker.Pruner) *Watcher {
	host, _ := os.Hostname()
	return &Watcher{
		cfg:          cfg,
		runner:       runner,
		locker:       locker,
		monitor:      monitor,
		healthServer: health.NewServer(monitor, cfg.Port),
		pruner:       pruner,
		owner:        fmt.Sprintf("%s-%s", host, uuid.NewString()[:8]),
		log:          slog.Default().With("component", "watcher"),
	}
}

// Start starts the health server, the pruner and the run loop. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	if w.cfg.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", w.cfg.Interval)
	}
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		w.log.Info("Starting health server", "port", w.cfg.Port)
		if err := w.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	if w.pruner != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.pruner.Start(ctx)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()

	return nil
}

// Stop stops the run loop and the health server.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warn("Timed out waiting for the current run")
	}

	return w.healthServer.Stop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick performs one guarded run and records its outcome. It returns false
// when another process held the run lock.
func (w *Watcher) Tick(ctx context.Context) bool {
	if w.locker != nil {
		ok, err := w.locker.AcquireLock(ctx, lockScope, w.owner, w.cfg.Interval)
		if err != nil {
			// Fall through: a broken lock must not stop diagnostics
			w.log.Warn("Failed to acquire run lock", "error", err)
		} else if !ok {
			w.log.Debug("Another instance holds the run lock, skipping")
			return false
		} else {
			stop := w.keepLock(ctx)
			defer func() {
				stop()
				if err := w.locker.ReleaseLock(context.WithoutCancel(ctx), lockScope, w.owner); err != nil {
					w.log.Warn("Failed to release run lock", "error", err)
				}
			}()
		}
	}

	run, err := w.runner.Run(ctx)
	switch {
	case errors.Is(err, ErrNoRecords):
		w.log.Info("DLQ is empty")
		w.monitor.RecordEmpty()
		return true
	case errors.Is(err, context.Canceled):
		return true
	case err != nil:
		w.log.Error("Diagnostic run failed", "error", err)
		w.monitor.RecordFailure(err)
		return true
	}

	summary := run.Summary()
	w.monitor.RecordRun(summary)
	w.log.Info("Diagnostic run recorded",
		"run_id", run.ID,
		"total", summary.TotalRecords,
		"top_category", summary.TopCategory(),
	)
	return true
}

// keepLock refreshes the run lock every third of its TTL until the returned
// func is called, so a run longer than the interval keeps exclusive access.
func (w *Watcher) keepLock(ctx context.Context) func() {
	ttl := w.cfg.Interval
	period := ttl / 3
	if period <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := w.locker.RefreshLock(ctx, lockScope, w.owner, ttl)
				if err != nil {
					w.log.Warn("Failed to refresh run lock", "error", err)
				} else if !ok {
					w.log.Warn("Run lock lost to another instance")
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
