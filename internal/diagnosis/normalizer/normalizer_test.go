package normalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/dlqdiag/internal/core/domain"
)

func TestNormalize_FullHeaders(t *testing.T) {
	rec := domain.RawRecord{Headers: map[string]any{
		domain.HeaderTopic:          "mysql.shop.orders",
		domain.HeaderPartition:      "3",
		domain.HeaderOffset:         int64(1042),
		domain.HeaderConnectorName:  "clickhouse-sink-connector",
		domain.HeaderTaskID:         0,
		domain.HeaderStage:          "VALUE_CONVERTER",
		domain.HeaderExceptionClass: "org.apache.kafka.connect.errors.DataException",
		domain.HeaderExceptionMsg:   "Cannot convert field 'score' to Int32",
		domain.HeaderStackTrace:     "at Foo.bar()",
	}}

	d := Normalize(rec)

	if d.OriginTopic != "mysql.shop.orders" {
		t.Errorf("unexpected topic %q", d.OriginTopic)
	}
	if d.Partition != 3 {
		t.Errorf("expected partition 3, got %d", d.Partition)
	}
	if d.Offset != 1042 {
		t.Errorf("expected offset 1042, got %d", d.Offset)
	}
	if d.TaskID != 0 {
		t.Errorf("expected task 0, got %d", d.TaskID)
	}
	if d.Entity != "orders" {
		t.Errorf("expected entity orders, got %q", d.Entity)
	}
	if diff := cmp.Diff([]string{"score"}, d.CandidateFields); diff != "" {
		t.Errorf("candidate fields mismatch (-want +got):\n%s", diff)
	}
	if d.Category != domain.CategoryUnknown || d.Confidence != 0 {
		t.Errorf("normalizer must not classify, got %s/%d", d.Category, d.Confidence)
	}
}

func TestNormalize_MissingHeaders(t *testing.T) {
	d := Normalize(domain.RawRecord{})

	if d.OriginTopic != "unknown" || d.ConnectorName != "unknown" || d.Stage != "unknown" {
		t.Errorf("expected unknown provenance, got %+v", d)
	}
	if d.Partition != -1 || d.Offset != -1 || d.TaskID != -1 {
		t.Errorf("expected -1 positions, got %d/%d/%d", d.Partition, d.Offset, d.TaskID)
	}
	if d.ExceptionClass != "" || d.ExceptionMessage != "" || d.StackTrace != "" {
		t.Errorf("expected empty failure detail, got %+v", d)
	}
	if d.Entity != "unknown" {
		t.Errorf("expected entity unknown, got %q", d.Entity)
	}
	if len(d.CandidateFields) != 0 {
		t.Errorf("expected no fields, got %v", d.CandidateFields)
	}
}

func TestNormalize_MalformedIntegers(t *testing.T) {
	d := Normalize(domain.RawRecord{Headers: map[string]any{
		domain.HeaderPartition: "not-a-number",
		domain.HeaderTaskID:    []string{"x"},
	}})
	if d.Partition != -1 {
		t.Errorf("expected -1 for malformed partition, got %d", d.Partition)
	}
	if d.TaskID != -1 {
		t.Errorf("expected -1 for malformed task id, got %d", d.TaskID)
	}
}

func TestEntityFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"mysql.shop.orders", "orders"},
		{"a.b.c.d", "d"},
		{"shop.orders", "shop.orders"},
		{"events_raw", "events_raw"},
		{"", "unknown"},
		{"unknown", "unknown"},
		{"a.b.", "unknown"},
	}
	for _, tt := range tests {
		got := EntityFromTopic(tt.topic)
		if got != tt.want {
			t.Errorf("EntityFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
		if got == "" {
			t.Errorf("EntityFromTopic(%q) returned empty entity", tt.topic)
		}
		if again := EntityFromTopic(got); again != got {
			t.Errorf("EntityFromTopic not idempotent for %q: %q -> %q", tt.topic, got, again)
		}
	}
}

func TestExtractFields(t *testing.T) {
	tests := []struct {
		msg  string
		want []string
	}{
		{"Cannot convert field 'score' to Int32", []string{"score"}},
		{"FIELD `created_at` is out of range; field \"created_at\" again", []string{"created_at", "created_at"}},
		{"fields amount and field id", []string{"amount", "id"}},
		{"Cannot convert field 'über' to Int32", []string{"über"}},
		{"field 数量 overflow", []string{"数量"}},
		{"no such table", []string{}},
	}
	for _, tt := range tests {
		got := ExtractFields(tt.msg)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ExtractFields(%q) mismatch (-want +got):\n%s", tt.msg, diff)
		}
	}
}
