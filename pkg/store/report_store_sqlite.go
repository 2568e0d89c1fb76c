package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rowhouse-labs/docket/pkg/verify"
)

// SQLiteReportStore backs Lite Mode: a single-file database, no server.
type SQLiteReportStore struct {
	db *sql.DB
}

func NewSQLiteReportStore(db *sql.DB) (*SQLiteReportStore, error) {
	s := &SQLiteReportStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteReportStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS reports (
		report_digest TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		ruleset_version TEXT NOT NULL,
		compliance_score REAL NOT NULL,
		violation_count INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS reports_case_idx ON reports (case_id, generated_at);
	`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteReportStore) Save(ctx context.Context, report *verify.ComplianceReport) error {
	digest, reportJSON, err := encodeReport(report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (report_digest, case_id, generated_at, ruleset_version, compliance_score, violation_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_digest) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		digest,
		report.CaseID,
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
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

func (s *SQLiteReportStore) Latest(ctx context.Context, caseID string) (*verify.ComplianceReport, error) {
	query := `
		SELECT report_json FROM reports
		WHERE case_id = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, caseID)
}

func (s *SQLiteReportStore) GetByDigest(ctx context.Context, digest string) (*verify.ComplianceReport, error) {
	query := `SELECT report_json FROM reports WHERE report_digest = ?`
	return s.queryOne(ctx, query, digest)
}

func (s *SQLiteReportStore) List(ctx context.Context, limit int) ([]*verify.ComplianceReport, error) {
	query := `
		SELECT report_json FROM reports
		ORDER BY generated_at DESC
		LIMIT ?
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

func (s *SQLiteReportStore) queryOne(ctx context.Context, query string, arg any) (*verify.ComplianceReport, error) {
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
