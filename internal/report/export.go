package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/aggregator"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/diagnosis/validator"
)

// Export is the structured data export.
type Export struct {
	Timestamp       time.Time             `json:"timestamp"`
	TotalErrors     int                   `json:"total_errors"`
	Statistics      aggregator.Statistics `json:"statistics"`
	RootCauses      []ExportedCause       `json:"root_causes"`
	Findings        []validator.Finding   `json:"findings"`
	ConnectorConfig map[string]string     `json:"connector_config"`
}

// ExportedCause adds the display severity to a root cause.
type ExportedCause struct {
	domain.RootCause
	Severity domain.Severity `json:"severity"`
}

// NewExport assembles the export for a.
func NewExport(a *engine.Analysis, connectorConfig map[string]string, ts time.Time) Export {
	causes := make([]ExportedCause, 0, len(a.RootCauses))
	for _, rc := range a.RootCauses {
		causes = append(causes, ExportedCause{RootCause: rc, Severity: rc.Severity()})
	}
	if connectorConfig == nil {
		connectorConfig = map[string]string{}
	}
	return Export{
		Timestamp:       ts,
		TotalErrors:     a.Total,
		Statistics:      a.Statistics,
		RootCauses:      causes,
		Findings:        a.Findings,
		ConnectorConfig: connectorConfig,
	}
}

// WriteJSON writes e as indented JSON.
func WriteJSON(w io.Writer, e Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
