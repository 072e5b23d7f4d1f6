package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/infra/storage"
)

func TestRunRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepo(NewMemoryStorage())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		err := repo.Save(ctx, &domain.RunSummary{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    domain.RunStatusSucceeded,
		})
		if err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	got, err := repo.Get(ctx, "b")
	if err != nil || got.ID != "b" {
		t.Fatalf("expected run b, got %v, %v", got, err)
	}
	if _, err := repo.Get(ctx, "zzz"); !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	runs, _ := repo.List(ctx, 2)
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("expected [c b], got %v", ids(runs))
	}

	n, _ := repo.DeleteOlderThan(ctx, base.Add(90*time.Minute))
	if n != 2 {
		t.Errorf("expected 2 pruned runs, got %d", n)
	}
	runs, _ = repo.List(ctx, 0)
	if len(runs) != 1 || runs[0].ID != "c" {
		t.Errorf("expected only c to remain, got %v", ids(runs))
	}

	n, _ = repo.DeleteAll(ctx)
	if n != 1 {
		t.Errorf("expected 1 deleted run, got %d", n)
	}
}

func TestRunRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRunRepo(NewMemoryStorage())
	run := &domain.RunSummary{ID: "x", TotalRecords: 5}
	_ = repo.Save(ctx, run)

	run.TotalRecords = 99
	got, _ := repo.Get(ctx, "x")
	if got.TotalRecords != 5 {
		t.Errorf("stored run was mutated through caller pointer: %d", got.TotalRecords)
	}
}

func ids(runs []*domain.RunSummary) []string {
	var out []string
	for _, r := range runs {
		out = append(out, r.ID)
	}
	return out
}
