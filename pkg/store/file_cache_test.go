package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testCaseDigest = "4a5c9e2f0b1d8a7c6e5f4a3b2c1d0e9f8a7b6c5d4e3f2a1b0c9d8e7f6a5b4c3d"

func TestFileCache_MissReturnsNil(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	report, err := cache.Get(context.Background(), testCaseDigest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if report != nil {
		t.Errorf("expected miss, got %+v", report)
	}
}

func TestFileCache_PutGet(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	want := testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)
	if err := cache.Put(ctx, testCaseDigest, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := cache.Get(ctx, testCaseDigest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected hit, got miss")
	}
	if got.ComplianceScore != 75 || got.CaseID != "CASE-2024-001" {
		t.Errorf("cached report does not match: %+v", got)
	}
}

func TestFileCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	if err := cache.Put(ctx, testCaseDigest, testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, testCaseDigest)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry to survive reopen")
	}
}

func TestFileCache_Invalidate(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()

	if err := cache.Put(ctx, testCaseDigest, testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Invalidate(ctx, testCaseDigest); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	got, err := cache.Get(ctx, testCaseDigest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss after invalidate, got %+v", got)
	}
}

func TestFileCache_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report_cache.json"), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache on corrupt file: %v", err)
	}
	got, err := cache.Get(context.Background(), testCaseDigest)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected empty cache after corrupt file, got %+v", got)
	}
}
