// Package validator cross-checks classification hypotheses against the
// observed state of the sink database and connector.
package validator

import (
	"sort"
	"strings"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/aggregator"
)

type Kind string

const (
	KindConfirmed Kind = "confirmed"
	KindCaveat    Kind = "caveat"
	KindInfo      Kind = "info"
)

const (
	sampleLen         = 100
	recordKeyMode     = "record_key"
	transformsKey     = "transforms"
	transformsPrefix  = "transforms."
	primaryKeyMode    = "primary.key.mode"
	primaryKeyFields  = "primary.key.fields"
	unknownConfigItem = "unknown"
)

// Finding is advisory output. It never changes a descriptor or root cause.
type Finding struct {
	Category domain.Category `json:"category"`
	Kind     Kind            `json:"kind"`
	Subject  string          `json:"subject,omitempty"`
	Message  string          `json:"message"`
	// ColumnType is the sink column type, set for schema findings when known.
	ColumnType string `json:"column_type,omitempty"`
}

// Validate runs the per-category checks. Checks whose ground truth is
// missing, and categories with no records, produce nothing.
func Validate(b *aggregator.Buckets, truth domain.GroundTruth) []Finding {
	out := []Finding{}
	out = append(out, missingTables(b.Category(domain.CategoryMissingTable), truth)...)
	out = append(out, schemaIssues(b.Category(domain.CategorySchemaMismatch), truth)...)
	out = append(out, primaryKey(b.Category(domain.CategoryPrimaryKey), truth)...)
	out = append(out, transforms(b.Category(domain.CategoryTransform), truth)...)
	return out
}

func missingTables(ds []*domain.Descriptor, truth domain.GroundTruth) []Finding {
	if len(ds) == 0 || !truth.HasEntities() {
		return nil
	}

	seen := make(map[string]bool)
	var missing []string
	for _, d := range ds {
		if d.Entity == "" || d.Entity == "unknown" || truth.KnownEntities[d.Entity] || seen[d.Entity] {
			continue
		}
		seen[d.Entity] = true
		missing = append(missing, d.Entity)
	}

	if len(missing) == 0 {
		return []Finding{{
			Category: domain.CategoryMissingTable,
			Kind:     KindCaveat,
			Message:  "tables exist but errors still occur - may be transform issue",
		}}
	}

	sort.Strings(missing)
	out := make([]Finding, 0, len(missing))
	for _, t := range missing {
		out = append(out, Finding{
			Category: domain.CategoryMissingTable,
			Kind:     KindConfirmed,
			Subject:  t,
			Message:  "table is missing from the sink database",
		})
	}
	return out
}

func schemaIssues(ds []*domain.Descriptor, truth domain.GroundTruth) []Finding {
	if len(ds) == 0 || !truth.HasEntities() {
		return nil
	}

	var out []Finding
	index := make(map[string]int)
	for _, d := range ds {
		if !truth.KnownEntities[d.Entity] || len(d.CandidateFields) == 0 {
			continue
		}
		for _, f := range d.CandidateFields {
			key := d.Entity + "." + f
			if _, ok := index[key]; ok {
				continue
			}
			index[key] = len(out)
			colType, _ := truth.ColumnType(d.Entity, f)
			out = append(out, Finding{
				Category:   domain.CategorySchemaMismatch,
				Kind:       KindConfirmed,
				Subject:    key,
				Message:    domain.Excerpt(d.ExceptionMessage, sampleLen),
				ColumnType: colType,
			})
		}
	}
	return out
}

func primaryKey(ds []*domain.Descriptor, truth domain.GroundTruth) []Finding {
	if len(ds) == 0 || !truth.HasConfig() {
		return nil
	}

	mode := configValue(truth.ConnectorConfig, primaryKeyMode)
	fields := configValue(truth.ConnectorConfig, primaryKeyFields)
	out := []Finding{
		{Category: domain.CategoryPrimaryKey, Kind: KindInfo, Subject: primaryKeyMode, Message: mode},
		{Category: domain.CategoryPrimaryKey, Kind: KindInfo, Subject: primaryKeyFields, Message: fields},
	}
	if mode == recordKeyMode {
		out = append(out, Finding{
			Category: domain.CategoryPrimaryKey,
			Kind:     KindCaveat,
			Subject:  primaryKeyMode,
			Message:  "using 'record_key' mode - this can cause issues with DELETE operations",
		})
	}
	return out
}

func transforms(ds []*domain.Descriptor, truth domain.GroundTruth) []Finding {
	if len(ds) == 0 || !truth.HasConfig() {
		return nil
	}

	chain := truth.ConnectorConfig[transformsKey]
	if chain == "" {
		return nil
	}
	out := []Finding{{
		Category: domain.CategoryTransform,
		Kind:     KindInfo,
		Subject:  transformsKey,
		Message:  chain,
	}}

	var keys []string
	for k := range truth.ConnectorConfig {
		if strings.HasPrefix(k, transformsPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, Finding{
			Category: domain.CategoryTransform,
			Kind:     KindInfo,
			Subject:  k,
			Message:  truth.ConnectorConfig[k],
		})
	}
	return out
}

func configValue(cfg map[string]string, key string) string {
	if v, ok := cfg[key]; ok {
		return v
	}
	return unknownConfigItem
}
