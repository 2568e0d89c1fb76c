package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/config"
	"github.com/rowhouse-labs/docket/pkg/crypto"
	"github.com/rowhouse-labs/docket/pkg/observability"
	"github.com/rowhouse-labs/docket/pkg/store"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
	"github.com/rowhouse-labs/docket/pkg/verify"
	"github.com/rowhouse-labs/docket/pkg/verify/checks"
)

const auditLogFile = "audit_log.json"

// services bundles the persistence and telemetry every stateful
// subcommand shares. Commands open it, run, and Close it; nothing here
// outlives a single invocation.
type services struct {
	cfg      *config.Config
	db       *sql.DB
	ledger   ledger.Ledger
	reports  store.ReportStore
	cache    store.ReportCache
	auditDB  *store.AuditStore
	auditLog audit.Logger
	otel     *observability.Provider

	// signer is loaded lazily so read-only commands never mint a key.
	signer *crypto.Ed25519Signer
	stderr io.Writer
}

// openServices wires stores, cache, audit chain, and telemetry from
// the environment. Informational banners go to stderr so piped JSON
// output stays clean.
func openServices(ctx context.Context, stderr io.Writer) (*services, error) {
	cfg := config.Load()
	svc := &services{cfg: cfg, stderr: stderr}

	var err error
	if cfg.LiteMode() {
		fmt.Fprintf(stderr, "ℹ️  DATABASE_URL not set. Running in %sLite Mode%s (SQLite).\n", ColorBold+ColorCyan, ColorReset)
		svc.db, svc.ledger, svc.reports, err = setupLiteMode(ctx, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("lite mode: %w", err)
		}
	} else {
		svc.db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := svc.db.PingContext(ctx); err != nil {
			svc.db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		lgr := ledger.NewSQLLedger(svc.db)
		if err := lgr.Init(ctx); err != nil {
			svc.db.Close()
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		svc.ledger = lgr
		svc.reports, err = store.NewPostgresReportStore(ctx, svc.db)
		if err != nil {
			svc.db.Close()
			return nil, fmt.Errorf("init report store: %w", err)
		}
	}

	if cfg.RedisAddr != "" {
		client := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		svc.cache = store.NewRedisCache(client, cfg.CacheTTL)
	} else {
		svc.cache, err = store.NewFileCache(cfg.DataDir)
		if err != nil {
			svc.db.Close()
			return nil, fmt.Errorf("init report cache: %w", err)
		}
	}

	svc.auditDB, err = loadAuditStore(filepath.Join(cfg.DataDir, auditLogFile))
	if err != nil {
		svc.db.Close()
		return nil, fmt.Errorf("load audit chain: %w", err)
	}
	svc.auditLog = audit.NewStoreLogger(svc.auditDB, cfg.Operator)

	obsCfg := observability.DefaultConfig()
	obsCfg.Environment = cfg.Environment
	if cfg.OTLPEndpoint != "" {
		obsCfg.Enabled = true
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	svc.otel, err = observability.New(ctx, obsCfg)
	if err != nil {
		// Telemetry is optional; a missing collector never blocks casework.
		fmt.Fprintf(stderr, "⚠️  telemetry disabled: %v\n", err)
		svc.otel, _ = observability.New(ctx, observability.DefaultConfig())
	}

	return svc, nil
}

// Close flushes telemetry and releases the database handle.
func (s *services) Close() {
	if s.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.otel.Shutdown(ctx)
		cancel()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Signer loads the office signing key on first use, generating one in
// non-production environments.
func (s *services) Signer() (*crypto.Ed25519Signer, error) {
	if s.signer != nil {
		return s.signer, nil
	}
	signer, err := loadOrGenerateSigner(s.cfg, s.stderr)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	return signer, nil
}

// recordAudit appends one entry to the hash chain and persists it. A
// store failure degrades to a stderr audit line so the event is never
// silently lost.
func (s *services) recordAudit(ctx context.Context, eventType audit.EventType, caseID, action string, metadata map[string]interface{}) {
	if err := s.auditLog.Record(ctx, eventType, caseID, action, metadata); err != nil {
		_ = audit.NewLoggerWithWriter(s.stderr, s.cfg.Operator).Record(ctx, eventType, caseID, action, metadata)
		return
	}
	if err := saveAuditStore(filepath.Join(s.cfg.DataDir, auditLogFile), s.auditDB); err != nil {
		fmt.Fprintf(s.stderr, "⚠️  audit: persist failed: %v\n", err)
	}
}

// setStatus advances a case's ledger record. The ledger is advisory
// bookkeeping; failures warn rather than abort the operation.
func (s *services) setStatus(ctx context.Context, caseID string, mutate func(*ledger.CaseRecord)) {
	rec, err := s.ledger.Get(ctx, caseID)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			fmt.Fprintf(s.stderr, "⚠️  ledger: %v\n", err)
			return
		}
		rec = ledger.CaseRecord{CaseID: caseID}
	}
	mutate(&rec)
	if err := s.ledger.Upsert(ctx, rec); err != nil {
		fmt.Fprintf(s.stderr, "⚠️  ledger: %v\n", err)
	}
}

// loadAuditStore rebuilds the hash chain from the persisted entry log.
// A missing file starts a fresh chain; a corrupt or tampered one is an
// error, never silently reset.
func loadAuditStore(path string) (*store.AuditStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store.NewAuditStore(), nil
		}
		return nil, err
	}
	var entries []*store.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return store.NewAuditStoreFromEntries(entries)
}

func saveAuditStore(path string, s *store.AuditStore) error {
	data, err := json.MarshalIndent(s.Entries(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// loadCase reads a succession case file.
func loadCase(path string) (*casefile.SuccessionCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var c casefile.SuccessionCase
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse case file: %w", err)
	}
	if c.CaseID == "" {
		return nil, fmt.Errorf("case file %s has no case_id", path)
	}
	return &c, nil
}

// buildEngine returns the verification engine: the published built-in
// rules, or the rules of an operator-supplied bundle file.
func buildEngine(bundlePath string) (*verify.Engine, error) {
	if bundlePath == "" {
		return checks.DefaultEngine()
	}
	loader, err := catalog.NewBundleLoader(filepath.Dir(bundlePath))
	if err != nil {
		return nil, err
	}
	if err := loader.LoadFile(bundlePath); err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", bundlePath, err)
	}
	bundles := loader.All()
	if len(bundles) == 0 {
		return nil, fmt.Errorf("bundle %s loaded no rules", bundlePath)
	}
	return checks.FromBundle(bundles[0])
}

// loadRequirements resolves the jurisdiction requirement table: a
// profile file when one exists, the built-in NYC table otherwise.
func loadRequirements(cfg *config.Config, jurisdiction string) (*catalog.RequirementCatalog, error) {
	if jurisdiction == "" {
		jurisdiction = cfg.Jurisdiction
	}
	cat, err := catalog.LoadRequirements(cfg.ProfilesDir, jurisdiction)
	if err == nil {
		return cat, nil
	}
	if jurisdiction == "nyc" && errors.Is(err, os.ErrNotExist) {
		return catalog.DefaultRequirements(), nil
	}
	return nil, err
}
