package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rowhouse-labs/docket/pkg/canonical"
	"github.com/rowhouse-labs/docket/pkg/crypto"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// Artifact types stored by the registry.
const (
	TypeComplianceReport  = "report/compliance"
	TypeCaseScan          = "intake/scan"
	TypeSubmissionPackage = "submission/package"
)

// CurrentSchemaVersion is stamped on every new envelope.
const CurrentSchemaVersion = "v1"

// MaxPayloadBytes caps envelope payloads so a malformed producer cannot
// bloat the store.
const MaxPayloadBytes = 10 * 1024 * 1024

var ErrSignerNotConfigured = errors.New("artifacts: signer not configured (fail-closed)")

// ReportEnvelope wraps a verification output with provenance metadata
// and an optional Ed25519 signature. The payload is canonical JSON, so
// identical results produce identical envelope bytes and land at the
// same content hash.
type ReportEnvelope struct {
	Type           string          `json:"type"`
	SchemaVersion  string          `json:"schema_version"`
	ProducerID     string          `json:"producer_id"`
	CaseID         string          `json:"case_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Payload        json.RawMessage `json:"payload"`
	PayloadDigest  string          `json:"payload_digest,omitempty"`
	Signature      string          `json:"signature,omitempty"`
	SignatureKeyID string          `json:"signature_key_id,omitempty"`
}

// NewReportEnvelope wraps a compliance report. The payload digest is
// timestamp-independent, so re-running an unchanged case yields the
// same digest even though CreatedAt differs.
func NewReportEnvelope(report *verify.ComplianceReport, producerID string, now time.Time) (*ReportEnvelope, error) {
	if report == nil {
		return nil, errors.New("artifacts: nil report")
	}

	payload, err := canonical.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("artifacts: marshal report: %w", err)
	}
	digest, err := canonical.ReportDigest(report)
	if err != nil {
		return nil, fmt.Errorf("artifacts: digest report: %w", err)
	}

	return &ReportEnvelope{
		Type:          TypeComplianceReport,
		SchemaVersion: CurrentSchemaVersion,
		ProducerID:    producerID,
		CaseID:        report.CaseID,
		CreatedAt:     now.UTC(),
		Payload:       payload,
		PayloadDigest: digest,
	}, nil
}

// NewEnvelope wraps an arbitrary payload (a case scan, a submission
// package) for registry storage.
func NewEnvelope(artifactType, producerID, caseID string, payload any, now time.Time) (*ReportEnvelope, error) {
	if artifactType == "" {
		return nil, errors.New("artifacts: missing artifact type")
	}

	raw, err := canonical.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("artifacts: marshal payload: %w", err)
	}

	return &ReportEnvelope{
		Type:          artifactType,
		SchemaVersion: CurrentSchemaVersion,
		ProducerID:    producerID,
		CaseID:        caseID,
		CreatedAt:     now.UTC(),
		Payload:       raw,
		PayloadDigest: canonical.HashBytes(raw),
	}, nil
}

// Seal signs the envelope payload and stamps the signing key. Sealing
// without a signer is an error: unsigned output must be an explicit
// choice, never a silent fallback.
func (e *ReportEnvelope) Seal(signer crypto.Signer) error {
	if e == nil {
		return errors.New("artifacts: nil envelope")
	}
	if signer == nil {
		return ErrSignerNotConfigured
	}
	if len(e.Payload) == 0 {
		return errors.New("artifacts: missing payload")
	}

	sig, err := signer.Sign(e.Payload)
	if err != nil {
		return fmt.Errorf("artifacts: sign failed: %w", err)
	}
	e.Signature = sig
	e.SignatureKeyID = signer.PublicKey()
	return nil
}

// Registry stores envelopes in a content-addressed Store and verifies
// them against a set of trusted signing keys.
type Registry struct {
	store   Store
	trusted map[string]bool // hex public key -> trusted
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store:   store,
		trusted: make(map[string]bool),
	}
}

// TrustKey marks a hex-encoded Ed25519 public key as an accepted
// envelope signer.
func (r *Registry) TrustKey(pubKeyHex string) {
	r.trusted[strings.TrimPrefix(pubKeyHex, "hex:")] = true
}

// TrustSigner trusts the public half of a local signer.
func (r *Registry) TrustSigner(s crypto.Signer) {
	if s != nil {
		r.TrustKey(s.PublicKey())
	}
}

// Put validates and persists an envelope, returning its content hash.
func (r *Registry) Put(ctx context.Context, env *ReportEnvelope) (string, error) {
	if env == nil {
		return "", errors.New("artifacts: nil envelope")
	}
	if env.Type == "" {
		return "", errors.New("artifacts: missing artifact type")
	}
	if len(env.Payload) == 0 {
		return "", errors.New("artifacts: missing payload")
	}
	if len(env.Payload) > MaxPayloadBytes {
		return "", fmt.Errorf("artifacts: payload exceeds limit of %d bytes", MaxPayloadBytes)
	}

	data, err := canonical.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("artifacts: marshal envelope: %w", err)
	}
	return r.store.Store(ctx, data)
}

// Get retrieves and decodes an envelope by content hash.
func (r *Registry) Get(ctx context.Context, hash string) (*ReportEnvelope, error) {
	data, err := r.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	var env ReportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("artifacts: corrupt envelope data: %w", err)
	}
	return &env, nil
}

// Verify fetches an envelope and checks its structure, signature, and
// payload digest. It returns whether the envelope is valid along with
// every reason it is not; a fetch or decode failure is an error, not a
// verdict.
func (r *Registry) Verify(ctx context.Context, hash string) (bool, []string, error) {
	env, err := r.Get(ctx, hash)
	if err != nil {
		return false, nil, err
	}

	reasons := []string{}

	if env.Type == "" {
		reasons = append(reasons, "missing artifact type")
	}
	if env.SchemaVersion != CurrentSchemaVersion {
		reasons = append(reasons, fmt.Sprintf("unsupported schema version %q", env.SchemaVersion))
	}
	if len(env.Payload) == 0 {
		reasons = append(reasons, "missing payload")
		return false, reasons, nil
	}

	reasons = append(reasons, r.checkSignature(env)...)
	reasons = append(reasons, checkReportPayload(env)...)

	return len(reasons) == 0, reasons, nil
}

func (r *Registry) checkSignature(env *ReportEnvelope) []string {
	if env.Signature == "" || env.SignatureKeyID == "" {
		return []string{"missing signature or key id"}
	}

	// Fail closed: with no trusted keys configured, no signature can be
	// accepted.
	if len(r.trusted) == 0 {
		return []string{"no trusted signing keys configured (fail-closed)"}
	}

	keyHex := strings.TrimPrefix(env.SignatureKeyID, "hex:")
	if !r.trusted[keyHex] {
		return []string{"signing key is not trusted"}
	}

	sigHex := strings.TrimPrefix(env.Signature, "hex:")
	ok, err := crypto.Verify(keyHex, sigHex, env.Payload)
	if err != nil {
		return []string{fmt.Sprintf("signature check failed: %v", err)}
	}
	if !ok {
		return []string{"signature does not match payload"}
	}
	return nil
}

// checkReportPayload recomputes the digest of compliance-report
// payloads. The stored PayloadDigest is never trusted on its own.
func checkReportPayload(env *ReportEnvelope) []string {
	if env.Type != TypeComplianceReport {
		return nil
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(env.Payload, &report); err != nil {
		return []string{"payload is not a compliance report"}
	}

	var reasons []string
	if env.CaseID != "" && report.CaseID != env.CaseID {
		reasons = append(reasons, "case id does not match payload")
	}
	if env.PayloadDigest != "" {
		digest, err := canonical.ReportDigest(&report)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("digest recompute failed: %v", err))
		} else if digest != env.PayloadDigest {
			reasons = append(reasons, "payload digest mismatch")
		}
	}
	return reasons
}
