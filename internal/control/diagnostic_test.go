package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/infra/retry"
	"github.com/vietddude/dlqdiag/internal/infra/storage/memory"
)

// =============================================================================
// Mocks
// =============================================================================

type mockSource struct {
	records []domain.RawRecord
	err     error
}

func (m *mockSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	return m.records, m.err
}
func (m *mockSource) Name() string { return "mock" }

type mockCatalog struct {
	known   map[string]bool
	columns map[string]map[string]string
	err     error
	calls   int
}

func (m *mockCatalog) Schema(ctx context.Context) (map[string]bool, map[string]map[string]string, error) {
	m.calls++
	return m.known, m.columns, m.err
}

type mockConnect struct {
	cfg   map[string]string
	err   error
	calls int
	name  string
}

func (m *mockConnect) ConnectorConfig(ctx context.Context, name string) (map[string]string, error) {
	m.calls++
	m.name = name
	return m.cfg, m.err
}

type mockCache struct {
	truth  *domain.GroundTruth
	getErr error
	sets   int
}

func (m *mockCache) Get(ctx context.Context) (*domain.GroundTruth, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	return m.truth, m.truth != nil, nil
}

func (m *mockCache) Set(ctx context.Context, truth *domain.GroundTruth) error {
	m.sets++
	m.truth = truth
	return nil
}

type mockReports struct {
	err   error
	calls int
}

func (m *mockReports) WriteAll(a *engine.Analysis, truth domain.GroundTruth, now time.Time) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return []string{"report.txt"}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func record(topic, class, msg string) domain.RawRecord {
	return domain.RawRecord{Headers: map[string]any{
		domain.HeaderTopic:          topic,
		domain.HeaderExceptionClass: class,
		domain.HeaderExceptionMsg:   msg,
	}}
}

func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		record("mysql.shop.events_raw", "", "Table 'events_raw' doesn't exist"),
		record("mysql.shop.orders", "DataException", "Cannot convert field 'score' to Int32"),
		record("mysql.shop.events_raw", "", "Table 'events_raw' doesn't exist"),
	}
}

func fastRetry() retry.Strategy {
	return &retry.ExponentialBackoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		MaxAttempts:  2,
	}
}

func newDiagnostic(t *testing.T, deps Deps) *Diagnostic {
	t.Helper()
	if deps.Engine == nil {
		eng, err := engine.New(engine.DefaultConfig())
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}
		deps.Engine = eng
	}
	if deps.Retry == nil {
		deps.Retry = fastRetry()
	}
	d, err := NewDiagnostic(deps)
	if err != nil {
		t.Fatalf("NewDiagnostic failed: %v", err)
	}
	return d
}

// =============================================================================
// Tests
// =============================================================================

func TestDiagnostic_Run(t *testing.T) {
	runs := memory.NewRunRepo(memory.NewMemoryStorage())
	reports := &mockReports{}
	catalog := &mockCatalog{known: map[string]bool{"orders": true}}
	conn := &mockConnect{cfg: map[string]string{"primary.key.mode": "record_value"}}

	d := newDiagnostic(t, Deps{
		Source:    &mockSource{records: sampleRecords()},
		Catalog:   catalog,
		Connect:   conn,
		Connector: "sink",
		Runs:      runs,
		Reports:   reports,
	})

	run, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Analysis.Total != 3 {
		t.Errorf("expected 3 records, got %d", run.Analysis.Total)
	}
	if got := run.Analysis.RootCauses[0].Category; got != domain.CategoryMissingTable {
		t.Errorf("expected MISSING_TABLE first, got %s", got)
	}
	if conn.name != "sink" {
		t.Errorf("expected connector name sink, got %q", conn.name)
	}
	if diff := cmp.Diff([]string{"report.txt"}, run.Artifacts); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}

	saved, err := runs.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("run was not saved: %v", err)
	}
	if saved.Status != domain.RunStatusSucceeded || saved.TotalRecords != 3 || saved.Source != "mock" {
		t.Errorf("unexpected saved run: %+v", saved)
	}
	if saved.TopCategory() != domain.CategoryMissingTable {
		t.Errorf("expected MISSING_TABLE top category, got %s", saved.TopCategory())
	}
}

func TestDiagnostic_Run_EmptyBatch(t *testing.T) {
	runs := memory.NewRunRepo(memory.NewMemoryStorage())
	reports := &mockReports{}
	d := newDiagnostic(t, Deps{Source: &mockSource{}, Runs: runs, Reports: reports})

	if _, err := d.Run(context.Background()); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	if reports.calls != 0 {
		t.Error("reports must not be written for an empty batch")
	}
	if list, _ := runs.List(context.Background(), 10); len(list) != 0 {
		t.Errorf("expected no history, got %d runs", len(list))
	}
}

func TestDiagnostic_Run_FetchFailure(t *testing.T) {
	catalog := &mockCatalog{}
	d := newDiagnostic(t, Deps{
		Source:  &mockSource{err: errors.New("broker down")},
		Catalog: catalog,
	})

	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if catalog.calls != 0 {
		t.Error("ground truth must not be fetched when acquisition fails")
	}
}

func TestDiagnostic_Run_ReportFailureIsRecorded(t *testing.T) {
	runs := memory.NewRunRepo(memory.NewMemoryStorage())
	d := newDiagnostic(t, Deps{
		Source:  &mockSource{records: sampleRecords()},
		Runs:    runs,
		Reports: &mockReports{err: errors.New("disk full")},
	})

	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected report error")
	}
	list, _ := runs.List(context.Background(), 10)
	if len(list) != 1 || list[0].Status != domain.RunStatusFailed || list[0].Error != "disk full" {
		t.Errorf("expected one failed run, got %+v", list)
	}
}

func TestDiagnostic_GroundTruth_Degrades(t *testing.T) {
	catalog := &mockCatalog{err: errors.New("clickhouse down")}
	conn := &mockConnect{err: retry.Permanent(errors.New("connector not found"))}
	cache := &mockCache{}
	d := newDiagnostic(t, Deps{
		Source:  &mockSource{},
		Catalog: catalog,
		Connect: conn,
		Cache:   cache,
	})

	truth := d.GroundTruth(context.Background())
	if truth.HasEntities() || truth.HasConfig() {
		t.Errorf("expected empty ground truth, got %+v", truth)
	}
	// First attempt plus MaxAttempts retries
	if catalog.calls != 3 {
		t.Errorf("expected transient catalog error to be retried, got %d calls", catalog.calls)
	}
	if conn.calls != 1 {
		t.Errorf("expected permanent connect error not to be retried, got %d calls", conn.calls)
	}
	if cache.sets != 0 {
		t.Error("partial ground truth must not be cached")
	}
}

func TestDiagnostic_GroundTruth_Cache(t *testing.T) {
	catalog := &mockCatalog{known: map[string]bool{"orders": true}}
	conn := &mockConnect{cfg: map[string]string{"topics": "a"}}
	cache := &mockCache{}
	d := newDiagnostic(t, Deps{
		Source:  &mockSource{},
		Catalog: catalog,
		Connect: conn,
		Cache:   cache,
	})

	first := d.GroundTruth(context.Background())
	second := d.GroundTruth(context.Background())

	if cache.sets != 1 {
		t.Errorf("expected one cache write, got %d", cache.sets)
	}
	if catalog.calls != 1 || conn.calls != 1 {
		t.Errorf("expected upstreams to be read once, got catalog=%d connect=%d", catalog.calls, conn.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached truth mismatch (-first +second):\n%s", diff)
	}
}

func TestDiagnostic_GroundTruth_CacheErrorFallsBack(t *testing.T) {
	catalog := &mockCatalog{known: map[string]bool{"orders": true}}
	d := newDiagnostic(t, Deps{
		Source:  &mockSource{},
		Catalog: catalog,
		Cache:   &mockCache{getErr: errors.New("redis down")},
	})

	truth := d.GroundTruth(context.Background())
	if !truth.KnownEntities["orders"] {
		t.Errorf("expected catalog to be read on cache error, got %+v", truth)
	}
}

func TestNewDiagnostic_RequiresSourceAndEngine(t *testing.T) {
	if _, err := NewDiagnostic(Deps{}); err == nil {
		t.Error("expected error without source")
	}
	if _, err := NewDiagnostic(Deps{Source: &mockSource{}}); err == nil {
		t.Error("expected error without engine")
	}
}
