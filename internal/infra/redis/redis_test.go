package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

func setupTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("DLQDIAG_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test. Set DLQDIAG_TEST_REDIS_URL to run.")
	}
	c, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTruthCache_Live(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	cache := NewTruthCache(c, "test:"+uuid.NewString(), time.Minute)
	t.Cleanup(func() { _ = cache.Invalidate(ctx) })

	if _, found, err := cache.Get(ctx); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	truth := &domain.GroundTruth{
		KnownEntities:   map[string]bool{"orders": true},
		Columns:         map[string]map[string]string{"orders": {"created_at": "DateTime"}},
		ConnectorConfig: map[string]string{"primary.key.mode": "record_key"},
	}
	if err := cache.Set(ctx, truth); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found, err := cache.Get(ctx)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if typ, _ := got.ColumnType("orders", "created_at"); typ != "DateTime" || !got.KnownEntities["orders"] {
		t.Errorf("unexpected cached truth: %+v", got)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, found, _ := cache.Get(ctx); found {
		t.Error("expected miss after invalidate")
	}
}

func TestLock_Live(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	scope := "test:" + uuid.NewString()

	ok, err := c.AcquireLock(ctx, scope, "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock, got ok=%v err=%v", ok, err)
	}
	if ok, _ := c.AcquireLock(ctx, scope, "b", time.Minute); ok {
		t.Error("second owner must not get the lock")
	}

	// Releasing as a non-owner is a no-op
	if err := c.ReleaseLock(ctx, scope, "b"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if ok, _ := c.AcquireLock(ctx, scope, "b", time.Minute); ok {
		t.Error("lock must survive a foreign release")
	}

	// Only the holder can extend the lock
	if ok, err := c.RefreshLock(ctx, scope, "b", time.Minute); err != nil || ok {
		t.Errorf("foreign refresh must fail, got ok=%v err=%v", ok, err)
	}
	if ok, err := c.RefreshLock(ctx, scope, "a", 2*time.Minute); err != nil || !ok {
		t.Fatalf("expected refresh, got ok=%v err=%v", ok, err)
	}
	if ttl := c.rdb.PTTL(ctx, lockKey(scope)).Val(); ttl <= time.Minute {
		t.Errorf("expected extended ttl, got %s", ttl)
	}

	if err := c.ReleaseLock(ctx, scope, "a"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if ok, _ := c.AcquireLock(ctx, scope, "b", time.Minute); !ok {
		t.Error("expected lock after release")
	}
	_ = c.ReleaseLock(ctx, scope, "b")
}

func TestLock_ReleaseAfterExpiry_Live(t *testing.T) {
	c := setupTestClient(t)
	ctx := context.Background()
	scope := "test:" + uuid.NewString()

	if ok, err := c.AcquireLock(ctx, scope, "a", 50*time.Millisecond); err != nil || !ok {
		t.Fatalf("expected lock, got ok=%v err=%v", ok, err)
	}
	time.Sleep(100 * time.Millisecond)

	if ok, _ := c.AcquireLock(ctx, scope, "b", time.Minute); !ok {
		t.Fatal("expected lock after expiry")
	}
	t.Cleanup(func() { _ = c.ReleaseLock(ctx, scope, "b") })

	// The stale holder must not drop or extend the new owner's lock
	if err := c.ReleaseLock(ctx, scope, "a"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if ok, _ := c.RefreshLock(ctx, scope, "a", time.Minute); ok {
		t.Error("stale holder must not refresh")
	}
	if held := c.rdb.Get(ctx, lockKey(scope)).Val(); held != "b" {
		t.Errorf("expected lock held by b, got %q", held)
	}
}
