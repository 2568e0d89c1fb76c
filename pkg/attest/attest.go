// Package attest issues and verifies attestation certificates for
// compliance reports.
//
// A certificate is a signed JWS binding a case ID, ruleset version,
// score, and canonical report digest. Holders of the issuing public key
// can confirm a report came from this engine and was not altered after
// generation.
package attest

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rowhouse-labs/docket/pkg/canonical"
	"github.com/rowhouse-labs/docket/pkg/crypto"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// DefaultTTL bounds certificate validity.
const DefaultTTL = 90 * 24 * time.Hour

const issuerName = "docket/attest"

// Claims extends standard JWT claims with report binding fields.
type Claims struct {
	jwt.RegisteredClaims
	CaseID          string  `json:"case_id"`
	RulesetVersion  string  `json:"ruleset_version"`
	EngineVersion   string  `json:"engine_version"`
	ComplianceScore float64 `json:"compliance_score"`
	ReportDigest    string  `json:"report_digest"`
}

// Issuer creates attestation certificates.
type Issuer struct {
	signer *crypto.Ed25519Signer
	clock  func() time.Time
	ttl    time.Duration
}

func NewIssuer(signer *crypto.Ed25519Signer) *Issuer {
	return &Issuer{
		signer: signer,
		clock:  time.Now,
		ttl:    DefaultTTL,
	}
}

// WithClock overrides the clock for deterministic testing.
func (i *Issuer) WithClock(clock func() time.Time) *Issuer {
	i.clock = clock
	return i
}

// WithTTL overrides the certificate validity window.
func (i *Issuer) WithTTL(ttl time.Duration) *Issuer {
	i.ttl = ttl
	return i
}

// Certify issues a certificate for the report. The report digest is
// canonical and timestamp-free, so certificates from re-evaluations of
// the same outcome bind to the same digest.
func (i *Issuer) Certify(report *verify.ComplianceReport) (string, error) {
	digest, err := canonical.ReportDigest(report)
	if err != nil {
		return "", fmt.Errorf("attest: digest failed: %w", err)
	}

	now := i.clock().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   report.CaseID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		CaseID:          report.CaseID,
		RulesetVersion:  report.RulesetVersion,
		EngineVersion:   report.EngineVersion,
		ComplianceScore: report.ComplianceScore,
		ReportDigest:    digest,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = i.signer.KeyID
	return token.SignedString(i.signer.Key())
}

// Verifier checks attestation certificates against trusted keys.
type Verifier struct {
	keys  map[string]ed25519.PublicKey // kid → public key
	clock func() time.Time
}

func NewVerifier() *Verifier {
	return &Verifier{
		keys:  make(map[string]ed25519.PublicKey),
		clock: time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (v *Verifier) WithClock(clock func() time.Time) *Verifier {
	v.clock = clock
	return v
}

// AddKey registers a trusted verification key under its key ID.
func (v *Verifier) AddKey(kid string, pub ed25519.PublicKey) {
	v.keys[kid] = pub
}

// TrustSigner registers the signer's public key.
func (v *Verifier) TrustSigner(s *crypto.Ed25519Signer) {
	v.AddKey(s.KeyID, ed25519.PublicKey(s.PublicKeyBytes()))
}

// Verify parses and validates a certificate, returning its claims.
func (v *Verifier) Verify(certificate string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(certificate, &Claims{}, v.keyFunc, jwt.WithTimeFunc(v.clock))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenSignatureInvalid
}

// VerifyReport validates the certificate and confirms it binds the
// given report: case ID match and canonical digest match.
func (v *Verifier) VerifyReport(certificate string, report *verify.ComplianceReport) (*Claims, error) {
	claims, err := v.Verify(certificate)
	if err != nil {
		return nil, err
	}

	if claims.CaseID != report.CaseID {
		return nil, fmt.Errorf("attest: certificate is for case %s, report is for case %s",
			claims.CaseID, report.CaseID)
	}

	digest, err := canonical.ReportDigest(report)
	if err != nil {
		return nil, fmt.Errorf("attest: digest failed: %w", err)
	}
	if claims.ReportDigest != digest {
		return nil, fmt.Errorf("attest: report digest mismatch")
	}

	return claims, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("missing kid in header")
	}

	key, exists := v.keys[kid]
	if !exists {
		return nil, fmt.Errorf("key not found: %s", kid)
	}
	return key, nil
}
