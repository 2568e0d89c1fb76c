package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rowhouse-labs/docket/pkg/config"
)

const trustedKeysFile = "trusted_keys.json"

// trustedKey is one entry in the office trust store. Certificates
// signed by any trusted key verify, so other offices' packs can be
// checked without sharing private material.
type trustedKey struct {
	KeyID     string    `json:"key_id"`
	PublicKey string    `json:"public_key"` // hex ed25519
	AddedAt   time.Time `json:"added_at"`
}

func (k trustedKey) publicKey() (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(k.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key is %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

func loadTrustedKeys(cfg *config.Config) ([]trustedKey, error) {
	path := filepath.Join(cfg.DataDir, trustedKeysFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []trustedKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return keys, nil
}

func saveTrustedKeys(cfg *config.Config, keys []trustedKey) error {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cfg.DataDir, trustedKeysFile), data, 0600)
}

// runTrustCmd implements `docket trust <subcommand>` — management of
// the keys accepted when verifying another office's certificates.
func runTrustCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: docket trust <add-key|revoke-key|list-keys> [--json]")
		return 2
	}

	subCmd := args[0]
	jsonOutput := false
	var positional []string
	for _, a := range args[1:] {
		if a == "--json" {
			jsonOutput = true
			continue
		}
		positional = append(positional, a)
	}

	cfg := config.Load()

	switch subCmd {
	case "add-key":
		if len(positional) < 2 {
			_, _ = fmt.Fprintln(stderr, "Usage: docket trust add-key <key-id> <pubkey-file> [--json]")
			return 2
		}
		keyID, keyFile := positional[0], positional[1]
		keyData, err := os.ReadFile(keyFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot read key file: %v\n", err)
			return 2
		}
		key := trustedKey{
			KeyID:     keyID,
			PublicKey: strings.TrimSpace(string(keyData)),
			AddedAt:   time.Now().UTC(),
		}
		if _, err := key.publicKey(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}

		keys, err := loadTrustedKeys(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		for _, k := range keys {
			if k.KeyID == keyID {
				_, _ = fmt.Fprintf(stderr, "Error: key %s already trusted\n", keyID)
				return 2
			}
		}
		keys = append(keys, key)
		if err := saveTrustedKeys(cfg, keys); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}

		if jsonOutput {
			result := map[string]any{"action": "add-key", "key_id": keyID, "status": "added"}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stdout, "✅ Trusted key added: %s\n", keyID)
		}
		return 0

	case "revoke-key":
		if len(positional) < 1 {
			_, _ = fmt.Fprintln(stderr, "Usage: docket trust revoke-key <key-id> [--json]")
			return 2
		}
		keyID := positional[0]

		keys, err := loadTrustedKeys(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		kept := keys[:0]
		found := false
		for _, k := range keys {
			if k.KeyID == keyID {
				found = true
				continue
			}
			kept = append(kept, k)
		}
		if !found {
			_, _ = fmt.Fprintf(stderr, "Error: key %s not in trust store\n", keyID)
			return 1
		}
		if err := saveTrustedKeys(cfg, kept); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}

		if jsonOutput {
			result := map[string]any{"action": "revoke-key", "key_id": keyID, "status": "revoked"}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stdout, "✅ Trusted key revoked: %s\n", keyID)
		}
		return 0

	case "list-keys":
		keys, err := loadTrustedKeys(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if jsonOutput {
			result := map[string]any{"action": "list-keys", "keys": keys, "count": len(keys)}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
			return 0
		}
		_, _ = fmt.Fprintln(stdout, "Trusted Keys:")
		if len(keys) == 0 {
			_, _ = fmt.Fprintln(stdout, "  (none configured)")
			return 0
		}
		for _, k := range keys {
			_, _ = fmt.Fprintf(stdout, "  %s%-16s%s %s…  added %s\n", ColorGreen, k.KeyID, ColorReset, k.PublicKey[:16], k.AddedAt.Format("2006-01-02"))
		}
		return 0

	default:
		_, _ = fmt.Fprintf(stderr, "Unknown trust subcommand: %s\n", subCmd)
		return 2
	}
}
