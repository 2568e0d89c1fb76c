package ledger

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a case has no ledger record.
var ErrNotFound = errors.New("case not found")

// Status is a case's position in the intake-to-submission lifecycle.
// Transitions are advisory; the ledger records what happened, it does
// not gate what may happen next.
type Status string

const (
	StatusScanned  Status = "SCANNED"
	StatusVerified Status = "VERIFIED"
	StatusPackaged Status = "PACKAGED"
	StatusAttested Status = "ATTESTED"
	StatusExported Status = "EXPORTED"
)

// CaseRecord is the durable summary of one succession case: where it
// stands and which artifacts its latest run produced.
type CaseRecord struct {
	CaseID       string    `json:"case_id"`
	BuildingID   string    `json:"building_id,omitempty"`
	Status       Status    `json:"status"`
	RiskScore    int       `json:"risk_score"`
	ScanID       string    `json:"scan_id,omitempty"`
	ReportDigest string    `json:"report_digest,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
