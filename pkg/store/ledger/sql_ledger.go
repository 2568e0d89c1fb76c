package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLLedger implements Ledger using database/sql.
// It supports both Postgres and SQLite via standard drivers.
type SQLLedger struct {
	db *sql.DB
}

func NewSQLLedger(db *sql.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	case_id TEXT PRIMARY KEY,
	building_id TEXT,
	status TEXT NOT NULL,
	risk_score INTEGER NOT NULL DEFAULT 0,
	scan_id TEXT,
	report_digest TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS cases_status_idx ON cases (status);
`

func (s *SQLLedger) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLLedger) Upsert(ctx context.Context, rec CaseRecord) error {
	// created_at is written once; the conflict clause leaves it alone so
	// the first-seen time survives later upserts.
	query := `
		INSERT INTO cases (case_id, building_id, status, risk_score, scan_id, report_digest, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (case_id) DO UPDATE SET
			building_id = EXCLUDED.building_id,
			status = EXCLUDED.status,
			risk_score = EXCLUDED.risk_score,
			scan_id = EXCLUDED.scan_id,
			report_digest = EXCLUDED.report_digest,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		rec.CaseID, rec.BuildingID, rec.Status, rec.RiskScore, rec.ScanID, rec.ReportDigest, now, now,
	)
	return err
}

func (s *SQLLedger) Get(ctx context.Context, caseID string) (CaseRecord, error) {
	query := `SELECT case_id, building_id, status, risk_score, scan_id, report_digest, created_at, updated_at FROM cases WHERE case_id = $1`
	row := s.db.QueryRowContext(ctx, query, caseID)

	var rec CaseRecord
	err := row.Scan(&rec.CaseID, &rec.BuildingID, &rec.Status, &rec.RiskScore, &rec.ScanID, &rec.ReportDigest, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CaseRecord{}, ErrNotFound
		}
		return CaseRecord{}, err
	}
	return rec, nil
}

func (s *SQLLedger) List(ctx context.Context) ([]CaseRecord, error) {
	query := `SELECT case_id, building_id, status, risk_score, scan_id, report_digest, created_at, updated_at FROM cases ORDER BY case_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *SQLLedger) ListByStatus(ctx context.Context, status Status) ([]CaseRecord, error) {
	query := `SELECT case_id, building_id, status, risk_score, scan_id, report_digest, created_at, updated_at FROM cases WHERE status = $1 ORDER BY case_id`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]CaseRecord, error) {
	defer func() { _ = rows.Close() }()

	result := make([]CaseRecord, 0)
	for rows.Next() {
		var rec CaseRecord
		if err := rows.Scan(&rec.CaseID, &rec.BuildingID, &rec.Status, &rec.RiskScore, &rec.ScanID, &rec.ReportDigest, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
