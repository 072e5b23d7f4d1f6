package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/validator"
)

func record(topic, class, msg, stage string) domain.RawRecord {
	return domain.RawRecord{Headers: map[string]any{
		domain.HeaderTopic:          topic,
		domain.HeaderExceptionClass: class,
		domain.HeaderExceptionMsg:   msg,
		domain.HeaderStage:          stage,
	}}
}

func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = workers
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func TestRun_Scenarios(t *testing.T) {
	e := newTestEngine(t, 1)
	records := []domain.RawRecord{
		record("dbserver1.inventory.users", "org.apache.kafka.connect.errors.DataException",
			"Cannot convert field 'score' to Int32", "VALUE_CONVERTER"),
		record("dbserver1.inventory.events_raw", "java.sql.SQLException",
			"Table 'events_raw' doesn't exist", "TASK_PUT"),
		record("dbserver1.inventory.misc", "", "something odd happened", ""),
	}
	truth := domain.GroundTruth{KnownEntities: map[string]bool{"users": true}}

	a, err := e.Run(context.Background(), records, truth)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if a.Total != 3 {
		t.Fatalf("expected total 3, got %d", a.Total)
	}

	schema := a.Descriptors[0]
	if schema.Category != domain.CategorySchemaMismatch || schema.Confidence != 100 {
		t.Errorf("expected SCHEMA_MISMATCH/100, got %s/%d", schema.Category, schema.Confidence)
	}
	if diff := cmp.Diff([]string{"score"}, schema.CandidateFields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	if got := a.Descriptors[1].Category; got != domain.CategoryMissingTable {
		t.Errorf("expected MISSING_TABLE, got %s", got)
	}
	unknown := a.Descriptors[2]
	if unknown.Category != domain.CategoryUnknown || unknown.Confidence != 0 {
		t.Errorf("expected UNKNOWN/0, got %s/%d", unknown.Category, unknown.Confidence)
	}
	if a.Uncategorized() != 1 {
		t.Errorf("expected 1 uncategorized, got %d", a.Uncategorized())
	}

	var confirmed []string
	for _, f := range a.Findings {
		if f.Category == domain.CategoryMissingTable && f.Kind == validator.KindConfirmed {
			confirmed = append(confirmed, f.Subject)
		}
	}
	if diff := cmp.Diff([]string{"events_raw"}, confirmed); diff != "" {
		t.Errorf("confirmed missing mismatch (-want +got):\n%s", diff)
	}

	for _, rc := range a.RootCauses {
		if rc.Category == domain.CategoryUnknown {
			t.Error("UNKNOWN must not be ranked")
		}
	}
	if len(a.RootCauses) != 2 {
		t.Errorf("expected 2 root causes, got %d", len(a.RootCauses))
	}
	// MISSING_TABLE 1*1*1.5 beats SCHEMA_MISMATCH 1*1*0.7.
	if a.RootCauses[0].Category != domain.CategoryMissingTable {
		t.Errorf("expected MISSING_TABLE first, got %s", a.RootCauses[0].Category)
	}
}

func TestRun_Empty(t *testing.T) {
	e := newTestEngine(t, 4)
	a, err := e.Run(context.Background(), nil, domain.GroundTruth{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Total != 0 || len(a.RootCauses) != 0 || len(a.Statistics.Categories) != 0 {
		t.Errorf("expected empty analysis, got %+v", a)
	}
	if len(a.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", a.Findings)
	}
}

func TestRun_InvariantsAndDeterminism(t *testing.T) {
	messages := []struct{ class, msg, stage string }{
		{"DataException", "Cannot convert field 'ts' to DateTime", "VALUE_CONVERTER"},
		{"", "Table 'orders' doesn't exist", "TASK_PUT"},
		{"DataException", "Record key is required", "TASK_PUT"},
		{"ConnectException", "connection refused", "TASK_PUT"},
		{"", "regex failed for route", "TRANSFORMATION"},
		{"", "value out of range", "TASK_PUT"},
		{"", "invalid character in field 'name'", "KEY_CONVERTER"},
		{"", "nothing to see", ""},
	}
	var records []domain.RawRecord
	for i := 0; i < 500; i++ {
		m := messages[(i*7)%len(messages)]
		topic := fmt.Sprintf("cdc.shop.t%d", i%13)
		records = append(records, record(topic, m.class, m.msg, m.stage))
	}

	seq, err := newTestEngine(t, 1).Run(context.Background(), records, domain.GroundTruth{})
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	par, err := newTestEngine(t, 8).Run(context.Background(), records, domain.GroundTruth{})
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	sum := 0
	for _, c := range seq.Statistics.Categories {
		sum += c.Count
	}
	if sum != len(records) {
		t.Errorf("category counts sum to %d, want %d", sum, len(records))
	}
	for i, d := range seq.Descriptors {
		if d.Confidence < 0 || d.Confidence > 100 {
			t.Fatalf("record %d: confidence %d out of range", i, d.Confidence)
		}
		if (d.Confidence == 0) != (d.Category == domain.CategoryUnknown) {
			t.Fatalf("record %d: confidence %d with category %s", i, d.Confidence, d.Category)
		}
	}

	if diff := cmp.Diff(seq.Statistics, par.Statistics); diff != "" {
		t.Errorf("statistics differ between sequential and parallel runs (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seq.RootCauses, par.RootCauses); diff != "" {
		t.Errorf("root causes differ between sequential and parallel runs (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seq.Descriptors, par.Descriptors); diff != "" {
		t.Errorf("descriptors differ between sequential and parallel runs (-seq +par):\n%s", diff)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make([]domain.RawRecord, 200)
	for _, workers := range []int{1, 4} {
		_, err := newTestEngine(t, workers).Run(ctx, records, domain.GroundTruth{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestExplain(t *testing.T) {
	e := newTestEngine(t, 1)
	d, scores := e.Explain(record("a.b.users", "DataException", "Cannot convert field 'score' to Int32", "VALUE_CONVERTER"))

	if d.Entity != "users" || d.Category != domain.CategorySchemaMismatch {
		t.Errorf("unexpected descriptor %+v", d)
	}
	if scores.Total(domain.CategorySchemaMismatch) != 30 {
		t.Errorf("expected score 30, got %d", scores.Total(domain.CategorySchemaMismatch))
	}
}

func TestNew_InvalidRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.Categories = append(cfg.Rules.Categories, cfg.Rules.Categories[0])
	if _, err := New(cfg); err == nil {
		t.Error("expected error for duplicate rule")
	}
}
