package ledger

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"
)

// FileLedger implements Ledger using a local JSON file (for simple durability).
type FileLedger struct {
	path  string
	mu    sync.RWMutex
	data  map[string]CaseRecord
	clock func() time.Time // Injectable clock
}

func NewFileLedger(path string) (*FileLedger, error) {
	return NewFileLedgerWithClock(path, time.Now)
}

func NewFileLedgerWithClock(path string, clock func() time.Time) (*FileLedger, error) {
	fl := &FileLedger{
		path:  path,
		data:  make(map[string]CaseRecord),
		clock: clock,
	}
	if err := fl.load(); err != nil {
		return nil, err
	}
	return fl, nil
}

func (f *FileLedger) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil // Start empty
	}

	bytes, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, &f.data)
}

func (f *FileLedger) save() error {
	bytes, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, bytes, 0600)
}

func (f *FileLedger) Upsert(ctx context.Context, rec CaseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock().UTC()
	if prev, exists := f.data[rec.CaseID]; exists {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	f.data[rec.CaseID] = rec
	return f.save()
}

func (f *FileLedger) Get(ctx context.Context, caseID string) (CaseRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, exists := f.data[caseID]
	if !exists {
		return CaseRecord{}, ErrNotFound
	}
	return rec, nil
}

func (f *FileLedger) List(ctx context.Context) ([]CaseRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := make([]CaseRecord, 0, len(f.data))
	for _, rec := range f.data {
		list = append(list, rec)
	}
	sortByCaseID(list)
	return list, nil
}

func (f *FileLedger) ListByStatus(ctx context.Context, status Status) ([]CaseRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var matched []CaseRecord
	for _, rec := range f.data {
		if rec.Status == status {
			matched = append(matched, rec)
		}
	}
	sortByCaseID(matched)
	return matched, nil
}

func sortByCaseID(recs []CaseRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].CaseID < recs[j].CaseID })
}
