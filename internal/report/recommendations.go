package report

import (
	"strings"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

const maxListed = 5

// Recommendations returns the remediation steps for a root cause.
func Recommendations(rc domain.RootCause) []string {
	switch rc.Category {
	case domain.CategorySchemaMismatch:
		return []string{
			"→ Review ClickHouse table schemas and compare with the source database",
			"→ Common fix: Change DateTime to DateTime64(3) for wider range",
			"→ Use String type for problematic fields temporarily",
			"→ Enable schema.evolution: 'basic' in connector config",
		}
	case domain.CategoryMissingTable:
		return []string{
			"→ Create missing tables in ClickHouse before restarting connector",
			"→ Missing tables: " + strings.Join(head(rc.AffectedEntities, maxListed), ", "),
			"→ Or: Enable auto.create.tables if supported",
		}
	case domain.CategoryPrimaryKey:
		return []string{
			"→ Change primary.key.mode from 'record_key' to 'record_value'",
			"→ Set primary.key.fields to your actual PK column (e.g., 'id')",
			"→ Update connector configuration and redeploy",
		}
	case domain.CategoryTransform:
		return []string{
			"→ Review RegexRouter transform pattern",
			"→ Test pattern against actual topic names",
			`→ Example: 'mysql\.([^.]+)\.(.*)' -> '$2'`,
		}
	case domain.CategoryConnection:
		return []string{
			"→ Increase connection timeout in JDBC URL",
			"→ Add connection pooling parameters",
			"→ Check ClickHouse server health and capacity",
		}
	case domain.CategoryDataOverflow:
		return []string{
			"→ Widen the numeric column types of the affected fields",
			"→ Check source values against the target type range",
		}
	case domain.CategoryEncoding:
		return []string{
			"→ Check the source charset and converter encoding settings",
		}
	default:
		return nil
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
