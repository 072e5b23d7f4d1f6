// Package ranker turns category buckets into root causes ordered by
// remediation priority.
package ranker

import (
	"sort"
	"strings"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/aggregator"
)

const (
	maxSamples = 3
	sampleLen  = 200
	dateMarker = "Date"
)

// complexityWeights maps each tier to its priority multiplier. Easier
// fixes score higher per unit of impact.
var complexityWeights = map[domain.FixComplexity]float64{
	domain.FixCreateTables:      1.5,
	domain.FixConfigChange:      1.5,
	domain.FixTransformPattern:  1.0,
	domain.FixAlterColumnTypes:  1.0,
	domain.FixSchemaAlignment:   0.7,
	domain.FixConfigNetwork:     1.0,
	domain.FixComplexityUnknown: 0.5,
}

// Weight returns the priority multiplier of tier.
func Weight(tier domain.FixComplexity) float64 {
	if w, ok := complexityWeights[tier]; ok {
		return w
	}
	return complexityWeights[domain.FixComplexityUnknown]
}

// Complexity picks the fix tier for a category given its records.
func Complexity(cat domain.Category, ds []*domain.Descriptor) domain.FixComplexity {
	switch cat {
	case domain.CategoryMissingTable:
		return domain.FixCreateTables
	case domain.CategoryPrimaryKey:
		return domain.FixConfigChange
	case domain.CategoryTransform:
		return domain.FixTransformPattern
	case domain.CategorySchemaMismatch:
		// "Date" also covers DateTime, Date32 and DateTime64.
		for _, d := range ds {
			if strings.Contains(d.ExceptionMessage, dateMarker) {
				return domain.FixAlterColumnTypes
			}
		}
		return domain.FixSchemaAlignment
	case domain.CategoryConnection:
		return domain.FixConfigNetwork
	default:
		return domain.FixComplexityUnknown
	}
}

// Rank builds one root cause per classified, non-empty category. The result
// is ordered by priority, then error count, then category order.
func Rank(b *aggregator.Buckets, total int) []domain.RootCause {
	causes := []domain.RootCause{}
	for _, cat := range domain.Categories() {
		ds := b.Category(cat)
		if len(ds) == 0 {
			continue
		}
		causes = append(causes, rootCause(cat, ds, total))
	}

	sort.SliceStable(causes, func(i, j int) bool {
		if causes[i].PriorityScore != causes[j].PriorityScore {
			return causes[i].PriorityScore > causes[j].PriorityScore
		}
		return causes[i].ErrorCount > causes[j].ErrorCount
	})
	return causes
}

func rootCause(cat domain.Category, ds []*domain.Descriptor, total int) domain.RootCause {
	entities := make(map[string]struct{})
	fields := make(map[string]struct{})
	for _, d := range ds {
		entities[d.Entity] = struct{}{}
		for _, f := range d.CandidateFields {
			fields[f] = struct{}{}
		}
	}

	samples := make([]string, 0, maxSamples)
	for i := 0; i < len(ds) && i < maxSamples; i++ {
		samples = append(samples, domain.Excerpt(ds[i].ExceptionMessage, sampleLen))
	}

	tier := Complexity(cat, ds)
	impact := len(ds) * len(entities)
	return domain.RootCause{
		Category:         cat,
		ErrorCount:       len(ds),
		Percentage:       domain.PercentOf(len(ds), total),
		AffectedEntities: sortedKeys(entities),
		AffectedFields:   sortedKeys(fields),
		SampleMessages:   samples,
		ImpactScore:      impact,
		FixComplexity:    tier,
		PriorityScore:    float64(impact) * Weight(tier),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
