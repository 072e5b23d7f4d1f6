package domain

// FixComplexity is a coarse remediation-effort label.
type FixComplexity string

const (
	FixCreateTables      FixComplexity = "EASY (Create tables)"
	FixConfigChange      FixComplexity = "EASY (Config change)"
	FixTransformPattern  FixComplexity = "MEDIUM (Fix transform pattern)"
	FixAlterColumnTypes  FixComplexity = "MEDIUM (Alter column types)"
	FixSchemaAlignment   FixComplexity = "MEDIUM-HARD (Schema alignment)"
	FixConfigNetwork     FixComplexity = "MEDIUM (Config/network fix)"
	FixComplexityUnknown FixComplexity = "UNKNOWN"
)

// RootCause is a category-level aggregate ranked by priority.
type RootCause struct {
	Category         Category      `json:"category"`
	ErrorCount       int           `json:"error_count"`
	Percentage       Percent       `json:"percentage"`
	AffectedEntities []string      `json:"affected_tables"`
	AffectedFields   []string      `json:"affected_fields"`
	SampleMessages   []string      `json:"sample_messages"`
	ImpactScore      int           `json:"impact_score"`
	FixComplexity    FixComplexity `json:"fix_complexity"`
	PriorityScore    float64       `json:"priority"`
}

// Severity returns the display label for this root cause.
func (rc RootCause) Severity() Severity {
	return SeverityFor(rc.Percentage)
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// SeverityFor derives a severity label from a share of total errors.
// It is independent of the priority ranking.
func SeverityFor(p Percent) Severity {
	switch {
	case !p.Valid:
		return SeverityLow
	case p.Value >= 50:
		return SeverityCritical
	case p.Value >= 20:
		return SeverityHigh
	case p.Value >= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
