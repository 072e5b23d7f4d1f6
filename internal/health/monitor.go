package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

const (
	checkInterval       = 10 * time.Second
	criticalFailures    = 3
	defaultCheckTimeout = 5 * time.Second
)

// Checker checks one upstream dependency.
type Checker func(ctx context.Context) error

// Monitor aggregates run outcomes and upstream checks.
type Monitor struct {
	checkers map[string]Checker
	now      func() time.Time

	mu         sync.RWMutex
	run        RunHealth
	lastCheck  time.Time
	lastReport map[string]UpstreamHealth
}

// NewMonitor creates a new health monitor. checkers may be empty.
func NewMonitor(checkers map[string]Checker) *Monitor {
	if checkers == nil {
		checkers = make(map[string]Checker)
	}
	return &Monitor{
		checkers:   checkers,
		now:        time.Now,
		lastReport: make(map[string]UpstreamHealth),
	}
}

// RecordRun stores the outcome of a completed run.
func (m *Monitor) RecordRun(run *domain.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run.LastRunID = run.ID
	m.run.LastRunAt = run.FinishedAt
	m.run.LastStatus = run.Status
	m.run.LastError = run.Error
	m.run.TotalRecords = run.TotalRecords
	m.run.TopCategory = run.TopCategory().String()
	if run.Status == domain.RunStatusFailed {
		m.run.ConsecutiveFailures++
	} else {
		m.run.ConsecutiveFailures = 0
	}
}

// RecordFailure stores a run that failed before producing a summary.
func (m *Monitor) RecordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run.LastRunID = ""
	m.run.LastRunAt = m.now()
	m.run.LastStatus = domain.RunStatusFailed
	m.run.LastError = err.Error()
	m.run.TotalRecords = 0
	m.run.TopCategory = ""
	m.run.ConsecutiveFailures++
}

// RecordEmpty stores a run that found no DLQ records.
func (m *Monitor) RecordEmpty() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.run = RunHealth{
		LastRunAt:  m.now(),
		LastStatus: domain.RunStatusSucceeded,
	}
}

// CheckHealth checks the upstreams and combines them with the run state.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit upstream checks to avoid hammering upstreams
	if m.now().Sub(m.lastCheck) >= checkInterval || len(m.lastReport) != len(m.checkers) {
		m.lastReport = m.checkUpstreams(ctx)
		m.lastCheck = m.now()
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Run:          m.run,
		Upstreams:    m.lastReport,
	}

	for _, u := range m.lastReport {
		if u.Status != StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}
	if m.run.ConsecutiveFailures >= criticalFailures {
		report.SystemStatus = StatusCritical
	} else if m.run.ConsecutiveFailures > 0 {
		report.SystemStatus = StatusDegraded
	}
	return report
}

func (m *Monitor) checkUpstreams(ctx context.Context) map[string]UpstreamHealth {
	out := make(map[string]UpstreamHealth, len(m.checkers))
	for name, check := range m.checkers {
		pctx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
		err := check(pctx)
		cancel()

		h := UpstreamHealth{Name: name, Status: StatusHealthy}
		if err != nil {
			h.Status = StatusDegraded
			h.Error = err.Error()
		}
		out[name] = h
	}
	return out
}
