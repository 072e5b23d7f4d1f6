package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed tracks DLQ records run through the engine
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlqdiag_records_processed_total",
			Help: "Total number of DLQ records classified",
		},
		[]string{"source"},
	)

	// RecordsClassified tracks records per assigned category
	RecordsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlqdiag_records_classified_total",
			Help: "Total number of DLQ records per failure category",
		},
		[]string{"category"},
	)

	// RootCausePriority tracks the latest priority score per category
	RootCausePriority = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dlqdiag_root_cause_priority",
			Help: "Priority score of each root cause in the latest run",
		},
		[]string{"category"},
	)

	// RunsTotal tracks diagnostic runs by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlqdiag_runs_total",
			Help: "Total number of diagnostic runs",
		},
		[]string{"status"},
	)

	// RunDuration tracks end-to-end run latency
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dlqdiag_run_duration_seconds",
			Help:    "Diagnostic run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// UpstreamErrorsTotal tracks failures talking to Kafka, Connect, ClickHouse or Redis
	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlqdiag_upstream_errors_total",
			Help: "Total number of upstream errors",
		},
		[]string{"upstream"},
	)

	// LastRunRecords tracks the record count of the latest run
	LastRunRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlqdiag_last_run_records",
			Help: "Number of DLQ records in the latest run",
		},
	)

	// DBConnectionPoolUsage tracks run-history pool usage in percent
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlqdiag_db_connection_pool_usage_percent",
			Help: "Open run-history connections as a percentage of the pool size",
		},
	)
)
