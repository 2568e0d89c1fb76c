// Package ledger tracks the lifecycle of succession cases across CLI
// invocations. Each case gets one record that is updated in place as
// the case moves from intake scan through verification to export; the
// record carries pointers (scan id, report digest) into the artifact
// store rather than the artifacts themselves.
package ledger

import "context"

// Ledger is the durable case registry. Upsert replaces the stored
// record wholesale except for CreatedAt, which is preserved from the
// first write.
type Ledger interface {
	// Upsert writes the record for rec.CaseID, creating it if absent.
	Upsert(ctx context.Context, rec CaseRecord) error

	// Get retrieves the record for a case by ID.
	Get(ctx context.Context, caseID string) (CaseRecord, error)

	// List retrieves all records ordered by case ID.
	List(ctx context.Context) ([]CaseRecord, error)

	// ListByStatus retrieves records in the given status, ordered by case ID.
	ListByStatus(ctx context.Context, status Status) ([]CaseRecord, error)
}
