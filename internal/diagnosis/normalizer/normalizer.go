// Package normalizer flattens raw DLQ records into error descriptors.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/spf13/cast"
	"github.com/vietddude/dlqdiag/internal/core/domain"
)

const unknown = "unknown"

// fieldPattern extracts field names from phrases like "field 'score'" or "fields `a`".
var fieldPattern = regexp.MustCompile("(?i)fields?\\s+['\"`]?([\\p{L}\\p{N}_]+)['\"`]?")

// Normalize builds a Descriptor from the record's error-context headers.
// Missing or malformed headers fall back to defaults; it never fails.
func Normalize(rec domain.RawRecord) *domain.Descriptor {
	h := rec.Headers
	d := &domain.Descriptor{
		OriginTopic:      stringHeader(h, domain.HeaderTopic, unknown),
		Partition:        intHeader(h, domain.HeaderPartition),
		Offset:           int64Header(h, domain.HeaderOffset),
		ConnectorName:    stringHeader(h, domain.HeaderConnectorName, unknown),
		TaskID:           intHeader(h, domain.HeaderTaskID),
		Stage:            stringHeader(h, domain.HeaderStage, unknown),
		ExceptionClass:   stringHeader(h, domain.HeaderExceptionClass, ""),
		ExceptionMessage: stringHeader(h, domain.HeaderExceptionMsg, ""),
		StackTrace:       stringHeader(h, domain.HeaderStackTrace, ""),
		Category:         domain.CategoryUnknown,
	}
	d.Entity = EntityFromTopic(d.OriginTopic)
	d.CandidateFields = ExtractFields(d.ExceptionMessage)
	return d
}

// EntityFromTopic derives the sink table name from a CDC topic.
// "mysql.shop.orders" -> "orders"; topics with fewer than three segments are
// returned whole. Applying it to its own output yields the same value.
func EntityFromTopic(topic string) string {
	if topic == "" || topic == unknown {
		return unknown
	}
	parts := strings.Split(topic, ".")
	if len(parts) >= 3 {
		if last := parts[len(parts)-1]; last != "" {
			return last
		}
		return unknown
	}
	return topic
}

// ExtractFields returns every field name mentioned in msg, in order of
// appearance. Duplicates are kept.
func ExtractFields(msg string) []string {
	matches := fieldPattern.FindAllStringSubmatch(msg, -1)
	fields := make([]string, 0, len(matches))
	for _, m := range matches {
		fields = append(fields, m[1])
	}
	return fields
}

func stringHeader(h map[string]any, key, fallback string) string {
	v, ok := h[key]
	if !ok || v == nil {
		return fallback
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fallback
	}
	if s == "" && fallback == unknown {
		return fallback
	}
	return s
}

func intHeader(h map[string]any, key string) int {
	v, ok := h[key]
	if !ok || v == nil {
		return -1
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return -1
	}
	return n
}

func int64Header(h map[string]any, key string) int64 {
	v, ok := h[key]
	if !ok || v == nil {
		return -1
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return -1
	}
	return n
}
