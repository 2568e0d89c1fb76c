package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock returns a deterministic clock that advances by step on
// each call.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func TestFileLedger_UpsertPreservesCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	fl, err := NewFileLedgerWithClock(path, tickingClock(start, time.Minute))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-001", Status: StatusScanned, RiskScore: 20}))

	rec, err := fl.Get(ctx, "CASE-2024-001")
	require.NoError(t, err)
	assert.Equal(t, start, rec.CreatedAt)
	assert.Equal(t, start, rec.UpdatedAt)

	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-001", Status: StatusVerified, RiskScore: 20, ReportDigest: "9f2c"}))

	rec, err = fl.Get(ctx, "CASE-2024-001")
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, rec.Status)
	assert.Equal(t, "9f2c", rec.ReportDigest)
	assert.Equal(t, start, rec.CreatedAt, "first-seen time must survive upserts")
	assert.Equal(t, start.Add(time.Minute), rec.UpdatedAt)
}

func TestFileLedger_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	ctx := context.Background()

	fl, err := NewFileLedger(path)
	require.NoError(t, err)
	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-001", Status: StatusScanned}))
	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-002", Status: StatusExported}))

	reopened, err := NewFileLedger(path)
	require.NoError(t, err)

	rec, err := reopened.Get(ctx, "CASE-2024-002")
	require.NoError(t, err)
	assert.Equal(t, StatusExported, rec.Status)

	all, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileLedger_GetNotFound(t *testing.T) {
	fl, err := NewFileLedger(filepath.Join(t.TempDir(), "cases.json"))
	require.NoError(t, err)

	_, err = fl.Get(context.Background(), "CASE-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileLedger_ListOrderedByCaseID(t *testing.T) {
	fl, err := NewFileLedger(filepath.Join(t.TempDir(), "cases.json"))
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"CASE-2024-003", "CASE-2024-001", "CASE-2024-002"} {
		require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: id, Status: StatusScanned}))
	}

	all, err := fl.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CASE-2024-001", all[0].CaseID)
	assert.Equal(t, "CASE-2024-002", all[1].CaseID)
	assert.Equal(t, "CASE-2024-003", all[2].CaseID)
}

func TestFileLedger_ListByStatus(t *testing.T) {
	fl, err := NewFileLedger(filepath.Join(t.TempDir(), "cases.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-001", Status: StatusScanned}))
	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-002", Status: StatusVerified}))
	require.NoError(t, fl.Upsert(ctx, CaseRecord{CaseID: "CASE-2024-003", Status: StatusScanned}))

	scanned, err := fl.ListByStatus(ctx, StatusScanned)
	require.NoError(t, err)
	require.Len(t, scanned, 2)
	assert.Equal(t, "CASE-2024-001", scanned[0].CaseID)
	assert.Equal(t, "CASE-2024-003", scanned[1].CaseID)

	attested, err := fl.ListByStatus(ctx, StatusAttested)
	require.NoError(t, err)
	assert.Empty(t, attested)
}

func TestFileLedger_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := NewFileLedger(path)
	assert.Error(t, err)
}
