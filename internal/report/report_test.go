package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
)

var generatedAt = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func rec(topic, class, msg, stage string) domain.RawRecord {
	return domain.RawRecord{Headers: map[string]any{
		domain.HeaderTopic:          topic,
		domain.HeaderExceptionClass: class,
		domain.HeaderExceptionMsg:   msg,
		domain.HeaderStage:          stage,
	}}
}

func testAnalysis(t *testing.T, truth domain.GroundTruth) *engine.Analysis {
	t.Helper()
	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	records := []domain.RawRecord{
		rec("mysql.shop.orders", "DataException", "Cannot convert field 'created_at' to DateTime", "VALUE_CONVERTER"),
		rec("mysql.shop.orders", "DataException", "Cannot convert field 'score' to Int32", "VALUE_CONVERTER"),
		rec("mysql.shop.events_raw", "", "Table 'events_raw' doesn't exist", "TASK_PUT"),
		rec("mysql.shop.users", "DataException", "Record key is required", "TASK_PUT"),
	}
	a, err := e.Run(context.Background(), records, truth)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return a
}

func TestWriteText(t *testing.T) {
	truth := domain.GroundTruth{
		KnownEntities:   map[string]bool{"orders": true, "users": true},
		ConnectorConfig: map[string]string{"primary.key.mode": "record_key"},
	}
	a := testAnalysis(t, truth)

	var buf bytes.Buffer
	if err := WriteText(&buf, a, 5, generatedAt); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"DLQ DIAGNOSTIC REPORT",
		"Generated: 2026-05-04 10:30:00",
		"Total Messages Analyzed: 4",
		" 50.0% - SCHEMA_MISMATCH (2 errors)",
		"CRITICAL: SCHEMA_MISMATCH",
		"Fix Complexity: MEDIUM (Alter column types)",
		"[MISSING_TABLE] missing: events_raw",
		"[SCHEMA_MISMATCH] orders.created_at: Cannot convert field 'created_at' to DateTime...",
		"warning: using 'record_key' mode",
		"RECOMMENDED ACTIONS",
		"→ Create missing tables in ClickHouse before restarting connector",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestWriteText_Empty(t *testing.T) {
	e, _ := engine.New(engine.DefaultConfig())
	a, _ := e.Run(context.Background(), nil, domain.GroundTruth{})

	var buf bytes.Buffer
	if err := WriteText(&buf, a, 5, generatedAt); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Messages Analyzed: 0") {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}

func TestWriteFixSQL(t *testing.T) {
	causes := []domain.RootCause{
		{Category: domain.CategoryMissingTable, AffectedEntities: []string{"events_raw"}},
		{
			Category:         domain.CategorySchemaMismatch,
			AffectedEntities: []string{"orders", "users"},
			AffectedFields:   []string{"created_at", "score", "updated_time"},
		},
	}
	truth := domain.GroundTruth{Columns: map[string]map[string]string{
		"users": {"created_at": "DateTime"},
	}}

	var buf bytes.Buffer
	if err := WriteFixSQL(&buf, causes, "analytics", truth); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var alters []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "ALTER") {
			alters = append(alters, line)
		}
	}
	want := []string{
		"ALTER TABLE analytics.orders MODIFY COLUMN created_at DateTime64(3);",
		"ALTER TABLE analytics.orders MODIFY COLUMN updated_time DateTime64(3);",
		"ALTER TABLE analytics.users MODIFY COLUMN created_at DateTime64(3);",
	}
	if diff := cmp.Diff(want, alters); diff != "" {
		t.Errorf("alter statements mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCreateTables(t *testing.T) {
	dir := t.TempDir()
	dump := "CREATE TABLE `events_raw` (\n" +
		"  `id` bigint NOT NULL,\n" +
		"  `created_at` datetime NOT NULL,\n" +
		"  PRIMARY KEY (`id`)\n" +
		") ENGINE=InnoDB"
	if err := os.WriteFile(filepath.Join(dir, "events_raw.sql"), []byte(dump), 0o644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}

	causes := []domain.RootCause{{
		Category:         domain.CategoryMissingTable,
		AffectedEntities: []string{"events_raw", "orders", "ghost"},
	}}
	truth := domain.GroundTruth{KnownEntities: map[string]bool{"orders": true}}

	var buf bytes.Buffer
	if err := WriteCreateTables(&buf, causes, "analytics", truth, dir); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"-- Create missing table events_raw",
		"CREATE TABLE IF NOT EXISTS analytics.`events_raw`",
		"ORDER BY (`id`)",
		"PARTITION BY toYYYYMM(`created_at`)",
		"-- no MySQL DDL for ghost",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "orders") {
		t.Errorf("existing table must not be recreated:\n%s", out)
	}

	// Without a catalog nothing is confirmed missing
	buf.Reset()
	if err := WriteCreateTables(&buf, causes, "analytics", domain.GroundTruth{}, dir); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output without a catalog, got:\n%s", buf.String())
	}
}

func TestSuggestConfig(t *testing.T) {
	current := map[string]string{"primary.key.mode": "record_key", "topics": "a,b"}
	causes := []domain.RootCause{
		{Category: domain.CategoryPrimaryKey},
		{Category: domain.CategorySchemaMismatch},
	}

	got := SuggestConfig(current, causes)
	want := map[string]string{
		"primary.key.mode":   "record_value",
		"primary.key.fields": "id",
		"schema.evolution":   "basic",
		"topics":             "a,b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("suggested config mismatch (-want +got):\n%s", diff)
	}
	if current["primary.key.mode"] != "record_key" {
		t.Error("SuggestConfig must not modify its input")
	}
	if got := SuggestConfig(nil, nil); len(got) != 0 {
		t.Errorf("expected empty config, got %v", got)
	}
}

func TestRecommendations(t *testing.T) {
	rc := domain.RootCause{
		Category:         domain.CategoryMissingTable,
		AffectedEntities: []string{"a", "b", "c", "d", "e", "f"},
	}
	recs := Recommendations(rc)
	if len(recs) != 3 || recs[1] != "→ Missing tables: a, b, c, d, e" {
		t.Errorf("unexpected recommendations: %v", recs)
	}
	if Recommendations(domain.RootCause{Category: domain.CategoryUnknown}) != nil {
		t.Error("expected no recommendations for UNKNOWN")
	}
}

func TestWriter_WriteAll(t *testing.T) {
	truth := domain.GroundTruth{ConnectorConfig: map[string]string{"primary.key.mode": "record_key"}}
	a := testAnalysis(t, truth)

	dir := filepath.Join(t.TempDir(), "reports")
	w := &Writer{Dir: dir, Database: "analytics", Top: 5}
	paths, err := w.WriteAll(a, truth, generatedAt)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "dlq_diagnostic_report_20260504_103000.txt"),
		filepath.Join(dir, "dlq_diagnostic_data_20260504_103000.json"),
		filepath.Join(dir, "fix_schema_issues_20260504_103000.sql"),
		filepath.Join(dir, "suggested_connector_config_20260504_103000.json"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var export struct {
		TotalErrors int `json:"total_errors"`
		RootCauses  []struct {
			Category string   `json:"category"`
			Severity string   `json:"severity"`
			Priority float64  `json:"priority"`
			Tables   []string `json:"affected_tables"`
		} `json:"root_causes"`
		ConnectorConfig map[string]string `json:"connector_config"`
	}
	if err := json.Unmarshal(data, &export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if export.TotalErrors != 4 || len(export.RootCauses) != 3 {
		t.Errorf("unexpected export: %+v", export)
	}
	if export.ConnectorConfig["primary.key.mode"] != "record_key" {
		t.Errorf("export should carry the live connector config, got %v", export.ConnectorConfig)
	}

	suggested, _ := os.ReadFile(paths[3])
	if !strings.Contains(string(suggested), `"primary.key.mode": "record_value"`) {
		t.Errorf("unexpected suggested config:\n%s", suggested)
	}
}
