package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rowhouse-labs/docket/pkg/canonical"
)

func newTestSQLiteStore(t *testing.T) *SQLiteReportStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docket.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteReportStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteReportStore: %v", err)
	}
	return store
}

func TestSQLiteReportStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	report := testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)
	if err := store.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Latest(ctx, "CASE-2024-001")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ComplianceScore != 75 {
		t.Errorf("expected score 75, got %v", got.ComplianceScore)
	}
	if len(got.RuleViolations) != 1 || got.RuleViolations[0].Rule != "AST-01" {
		t.Errorf("violations did not survive the round trip: %+v", got.RuleViolations)
	}
	if got.RuleViolations[0].Citation != "HPD Succession Rules §2-08" {
		t.Errorf("citation did not survive the round trip: %q", got.RuleViolations[0].Citation)
	}
}

func TestSQLiteReportStore_LatestPicksNewest(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	older := testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)
	newer := testReport(time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC), 100)
	newer.RuleViolations = nil
	newer.MissingDocuments = nil

	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	got, err := store.Latest(ctx, "CASE-2024-001")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ComplianceScore != 100 {
		t.Errorf("expected newest report, got score %v", got.ComplianceScore)
	}
}

func TestSQLiteReportStore_ContentKeyedIdempotency(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	report := testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)
	if err := store.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Same findings regenerated a day later share the digest, so the
	// second save must not create a second row.
	rerun := testReport(time.Date(2024, 3, 16, 10, 30, 0, 0, time.UTC), 75)
	if err := store.Save(ctx, rerun); err != nil {
		t.Fatalf("Save rerun: %v", err)
	}

	reports, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report after idempotent re-save, got %d", len(reports))
	}
}

func TestSQLiteReportStore_GetByDigest(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	report := testReport(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), 75)
	if err := store.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	digest, err := canonical.ReportDigest(report)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	got, err := store.GetByDigest(ctx, digest)
	if err != nil {
		t.Fatalf("GetByDigest: %v", err)
	}
	if got.CaseID != "CASE-2024-001" {
		t.Errorf("expected CASE-2024-001, got %s", got.CaseID)
	}

	_, err = store.GetByDigest(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestSQLiteReportStore_ListNewestFirst(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	scores := []float64{50, 75, 100}
	for i, score := range scores {
		r := testReport(time.Date(2024, 3, 15+i, 10, 0, 0, 0, time.UTC), score)
		if err := store.Save(ctx, r); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	reports, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected limit of 2 reports, got %d", len(reports))
	}
	if reports[0].ComplianceScore != 100 || reports[1].ComplianceScore != 75 {
		t.Errorf("expected newest first, got %v then %v", reports[0].ComplianceScore, reports[1].ComplianceScore)
	}
}
