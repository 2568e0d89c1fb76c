// Package store persists verification output: compliance reports keyed
// by their canonical digest, a hash-chained audit trail, a case
// lifecycle ledger, and a report cache keyed by case input digest.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rowhouse-labs/docket/pkg/canonical"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

var ErrReportNotFound = errors.New("report not found")

// ReportStore persists compliance reports. Reports are content-keyed
// by their timestamp-independent digest, so re-running an unchanged
// case never creates a duplicate row.
type ReportStore interface {
	// Save persists a report. Saving a report whose digest already
	// exists is a no-op.
	Save(ctx context.Context, report *verify.ComplianceReport) error
	// Latest returns the most recent report for a case.
	Latest(ctx context.Context, caseID string) (*verify.ComplianceReport, error)
	// GetByDigest returns the report with the given canonical digest.
	GetByDigest(ctx context.Context, digest string) (*verify.ComplianceReport, error)
	// List returns recent reports across all cases, newest first.
	List(ctx context.Context, limit int) ([]*verify.ComplianceReport, error)
}

// PostgresReportStore is the durable SQL implementation used by shared
// deployments (DATABASE_URL).
type PostgresReportStore struct {
	db *sql.DB
}

const postgresReportSchema = `
CREATE TABLE IF NOT EXISTS reports (
	report_digest TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	ruleset_version TEXT NOT NULL,
	compliance_score DOUBLE PRECISION NOT NULL,
	violation_count INTEGER NOT NULL,
	report_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_case_idx ON reports (case_id, generated_at);
`

func NewPostgresReportStore(ctx context.Context, db *sql.DB) (*PostgresReportStore, error) {
	s := &PostgresReportStore{db: db}
	if _, err := db.ExecContext(ctx, postgresReportSchema); err != nil {
		return nil, fmt.Errorf("ensure reports schema: %w", err)
	}
	return s, nil
}

func (s *PostgresReportStore) Save(ctx context.Context, report *verify.ComplianceReport) error {
	digest, reportJSON, err := encodeReport(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (report_digest, case_id, generated_at, ruleset_version, compliance_score, violation_count, report_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (report_digest) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		digest,
		report.CaseID,
		report.GeneratedAt,
		report.RulesetVersion,
		report.ComplianceScore,
		len(report.RuleViolations),
		reportJSON,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) Latest(ctx context.Context, caseID string) (*verify.ComplianceReport, error) {
	query := `
		SELECT report_json FROM reports
		WHERE case_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, caseID)
}

func (s *PostgresReportStore) GetByDigest(ctx context.Context, digest string) (*verify.ComplianceReport, error) {
	query := `SELECT report_json FROM reports WHERE report_digest = $1`
	return s.queryOne(ctx, query, digest)
}

func (s *PostgresReportStore) List(ctx context.Context, limit int) ([]*verify.ComplianceReport, error) {
	query := `
		SELECT report_json FROM reports
		ORDER BY generated_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reports []*verify.ComplianceReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, err
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *PostgresReportStore) queryOne(ctx context.Context, query string, arg any) (*verify.ComplianceReport, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return decodeReport(reportJSON)
}

func encodeReport(report *verify.ComplianceReport) (digest, reportJSON string, err error) {
	if report == nil {
		return "", "", errors.New("nil report")
	}
	digest, err = canonical.ReportDigest(report)
	if err != nil {
		return "", "", fmt.Errorf("digest report: %w", err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", "", fmt.Errorf("marshal report: %w", err)
	}
	return digest, string(data), nil
}

func decodeReport(reportJSON string) (*verify.ComplianceReport, error) {
	var report verify.ComplianceReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("corrupt report row: %w", err)
	}
	return &report, nil
}
