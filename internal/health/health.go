// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// UpstreamHealth is the result of one dependency check.
type UpstreamHealth struct {
	Name   string       `json:"name"`
	Status SystemStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// RunHealth describes the latest diagnostic runs.
type RunHealth struct {
	LastRunID           string           `json:"last_run_id,omitempty"`
	LastRunAt           time.Time        `json:"last_run_at"`
	LastStatus          domain.RunStatus `json:"last_status,omitempty"`
	LastError           string           `json:"last_error,omitempty"`
	TotalRecords        int              `json:"total_records"`
	TopCategory         string           `json:"top_category,omitempty"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus              `json:"system_status"`
	Run          RunHealth                 `json:"run"`
	Upstreams    map[string]UpstreamHealth `json:"upstreams"`
}
