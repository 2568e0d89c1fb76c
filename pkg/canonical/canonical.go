// Package canonical provides RFC 8785 (JSON Canonicalization Scheme)
// serialization for deterministic hashing of reports and artifacts.
//
// Two evaluations that reach the same decision must hash identically,
// so digests clear volatile fields (generation timestamps) before
// canonicalizing.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/rowhouse-labs/docket/pkg/verify"
)

// Marshal returns the RFC 8785 canonical JSON representation of v.
// Map keys are sorted by UTF-8 bytes and escaping is minimal.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}
	out, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform failed: %w", err)
	}
	return out, nil
}

// Digest returns the SHA-256 hex digest of the canonical form of v.
func Digest(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes as a hex string.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ReportDigest hashes the report content with the generation timestamp
// cleared, so re-evaluations of the same case produce the same digest.
func ReportDigest(r *verify.ComplianceReport) (string, error) {
	stable := *r
	stable.GeneratedAt = time.Time{}
	return Digest(&stable)
}
