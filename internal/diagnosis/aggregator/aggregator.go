// Package aggregator groups classified descriptors and computes batch-level
// statistics.
package aggregator

import (
	"sort"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

// DefaultTopN bounds the entity and field listings.
const DefaultTopN = 20

type CategoryStat struct {
	Category   domain.Category `json:"category"`
	Count      int             `json:"count"`
	Percentage domain.Percent  `json:"percentage"`
}

type EntityStat struct {
	Entity          string          `json:"table"`
	Count           int             `json:"count"`
	PrimaryCategory domain.Category `json:"primary_category"`
}

type FieldStat struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// Statistics summarises one batch. Lists are ordered by descending count;
// equal counts keep first-seen order.
type Statistics struct {
	Total      int            `json:"total_errors"`
	Categories []CategoryStat `json:"categories"`
	Entities   []EntityStat   `json:"tables"`
	Fields     []FieldStat    `json:"fields"`
}

// Aggregate computes statistics over b. Entity and field lists are cut to
// topN entries; topN <= 0 selects DefaultTopN.
func Aggregate(b *Buckets, topN int) Statistics {
	if topN <= 0 {
		topN = DefaultTopN
	}
	total := b.Total()
	stats := Statistics{
		Total:      total,
		Categories: []CategoryStat{},
		Entities:   []EntityStat{},
		Fields:     []FieldStat{},
	}

	for _, c := range b.CategoryOrder() {
		n := len(b.Category(c))
		stats.Categories = append(stats.Categories, CategoryStat{
			Category:   c,
			Count:      n,
			Percentage: domain.PercentOf(n, total),
		})
	}
	sort.SliceStable(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].Count > stats.Categories[j].Count
	})

	for _, e := range b.EntityOrder() {
		ds := b.Entity(e)
		stats.Entities = append(stats.Entities, EntityStat{
			Entity:          e,
			Count:           len(ds),
			PrimaryCategory: PrimaryCategory(ds),
		})
	}
	sort.SliceStable(stats.Entities, func(i, j int) bool {
		return stats.Entities[i].Count > stats.Entities[j].Count
	})
	if len(stats.Entities) > topN {
		stats.Entities = stats.Entities[:topN]
	}

	for _, f := range b.FieldOrder() {
		stats.Fields = append(stats.Fields, FieldStat{Field: f, Count: len(b.Field(f))})
	}
	sort.SliceStable(stats.Fields, func(i, j int) bool {
		return stats.Fields[i].Count > stats.Fields[j].Count
	})
	if len(stats.Fields) > topN {
		stats.Fields = stats.Fields[:topN]
	}

	return stats
}

// PrimaryCategory returns the most frequent category among ds. Ties go to
// the category encountered first. An empty slice yields UNKNOWN.
func PrimaryCategory(ds []*domain.Descriptor) domain.Category {
	var counts [domain.NumCategories + 1]int
	var order []domain.Category
	for _, d := range ds {
		c := d.Category
		if c < 0 || c > domain.CategoryUnknown {
			c = domain.CategoryUnknown
		}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best, top := domain.CategoryUnknown, 0
	for _, c := range order {
		if counts[c] > top {
			best, top = c, counts[c]
		}
	}
	return best
}
