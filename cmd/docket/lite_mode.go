package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rowhouse-labs/docket/pkg/config"
	"github.com/rowhouse-labs/docket/pkg/crypto"
	"github.com/rowhouse-labs/docket/pkg/store"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"

	_ "modernc.org/sqlite"
)

// setupLiteMode opens the single-file SQLite database used when no
// DATABASE_URL is configured. Field offices run this way permanently;
// everything lives under the data directory.
func setupLiteMode(ctx context.Context, dataDir string) (*sql.DB, ledger.Ledger, store.ReportStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "docket.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	lgr := ledger.NewSQLLedger(db)
	if err := lgr.Init(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init sqlite ledger: %w", err)
	}

	reports, err := store.NewSQLiteReportStore(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("init sqlite report store: %w", err)
	}

	return db, lgr, reports, nil
}

// loadOrGenerateSigner loads the office signing key from
// <data>/root.key (hex ed25519 seed). Outside production a missing key
// is generated and persisted; production requires one to exist.
func loadOrGenerateSigner(cfg *config.Config, stderr io.Writer) (*crypto.Ed25519Signer, error) {
	keyPath := filepath.Join(cfg.DataDir, "root.key")
	if _, err := os.Stat(keyPath); err == nil {
		keyHex, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read root.key: %w", err)
		}
		seed, err := hex.DecodeString(strings.TrimSpace(string(keyHex)))
		if err != nil {
			return nil, fmt.Errorf("invalid root.key format: %w", err)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("root.key seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return crypto.NewEd25519SignerFromKey(priv, "root"), nil
	}

	if cfg.Environment == "production" {
		return nil, fmt.Errorf("production mode requires %s to exist", keyPath)
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	fmt.Fprintf(stderr, "\n%s⚠️  SECURITY WARNING: Using auto-generated signing key.%s\n", ColorBold+ColorYellow, ColorReset)
	fmt.Fprintf(stderr, "   Key saved to: %s\n", keyPath)
	fmt.Fprintf(stderr, "   In production, provision the office key from the HPD key ceremony.\n\n")

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	seed := priv.Seed()
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(seed)), 0600); err != nil {
		return nil, fmt.Errorf("save root.key: %w", err)
	}

	pubPath := filepath.Join(cfg.DataDir, "root.pub")
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), 0644); err != nil {
		fmt.Fprintf(stderr, "⚠️  failed to save root.pub: %v\n", err)
	}

	return crypto.NewEd25519SignerFromKey(priv, "root"), nil
}
