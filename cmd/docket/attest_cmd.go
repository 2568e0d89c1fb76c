package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rowhouse-labs/docket/pkg/attest"
	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/canonical"
	"github.com/rowhouse-labs/docket/pkg/config"
	"github.com/rowhouse-labs/docket/pkg/observability"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// runAttestCmd implements `docket attest` — issue a verification
// certificate over a report, or verify one offline.
//
//	docket attest <report.json>            issue (prints the JWS)
//	docket attest -verify <cert> [flags]   verify a certificate
//
// Exit codes:
//
//	0 = issued / certificate valid
//	1 = certificate invalid
//	2 = runtime error
func runAttestCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("attest", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		verifyPath string
		reportPath string
		outPath    string
		jsonOutput bool
		caseKey    bool
	)

	cmd.StringVar(&verifyPath, "verify", "", "Certificate file to verify instead of issuing")
	cmd.StringVar(&reportPath, "report", "", "Report JSON the certificate must bind to (verify mode)")
	cmd.StringVar(&outPath, "out", "", "Write the certificate to a file")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	cmd.BoolVar(&caseKey, "case-key", false, "Sign with a case-scoped key derived from the office key")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if verifyPath != "" {
		return attestVerify(cmd.Args(), verifyPath, reportPath, jsonOutput, stdout, stderr)
	}
	return attestIssue(cmd.Arg(0), outPath, caseKey, jsonOutput, stdout, stderr)
}

func attestIssue(reportPath, outPath string, caseKey, jsonOutput bool, stdout, stderr io.Writer) int {
	if reportPath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket attest [flags] <report.json>")
		return 2
	}

	ctx := context.Background()
	svc, err := openServices(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	report, err := loadReport(reportPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	signer, err := svc.Signer()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if caseKey {
		signer, err = signer.DeriveForCase(report.CaseID)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: derive case key: %v\n", err)
			return 2
		}
	}

	_, done := svc.otel.TrackOperation(ctx, "docket.attest",
		observability.CryptoOperation("ed25519", "sign", signer.KeyID)...)
	cert, err := attest.NewIssuer(signer).Certify(report)
	done(err)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: certify: %v\n", err)
		return 2
	}

	digest, err := canonical.ReportDigest(report)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	svc.setStatus(ctx, report.CaseID, func(r *ledger.CaseRecord) {
		r.Status = ledger.StatusAttested
	})
	svc.recordAudit(ctx, audit.EventAttestation, report.CaseID, "issued verification certificate", map[string]interface{}{
		"key_id":        signer.KeyID,
		"report_digest": digest,
	})

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(cert+"\n"), 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", outPath, err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "✅ Certificate issued: %s (key %s)\n", outPath, signer.KeyID)
		return 0
	}

	if jsonOutput {
		result := map[string]any{
			"case_id":     report.CaseID,
			"key_id":      signer.KeyID,
			"certificate": cert,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	_, _ = fmt.Fprintln(stdout, cert)
	return 0
}

func attestVerify(extra []string, certPath, reportPath string, jsonOutput bool, stdout, stderr io.Writer) int {
	if len(extra) > 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: docket attest -verify <cert-file> [--report report.json]")
		return 2
	}

	certData, err := os.ReadFile(certPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read certificate: %v\n", err)
		return 2
	}
	cert := strings.TrimSpace(string(certData))

	var report *verify.ComplianceReport
	if reportPath != "" {
		report, err = loadReport(reportPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	verifier, err := buildVerifier(report, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var claims *attest.Claims
	if report != nil {
		claims, err = verifier.VerifyReport(cert, report)
	} else {
		claims, err = verifier.Verify(cert)
	}
	if err != nil {
		if jsonOutput {
			result := map[string]any{"certificate": certPath, "valid": false, "error": err.Error()}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stderr, "❌ Certificate invalid: %v\n", err)
		}
		return 1
	}

	if jsonOutput {
		result := map[string]any{
			"certificate":      certPath,
			"valid":            true,
			"case_id":          claims.CaseID,
			"ruleset_version":  claims.RulesetVersion,
			"compliance_score": claims.ComplianceScore,
			"report_digest":    claims.ReportDigest,
			"expires_at":       claims.ExpiresAt,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "✅ Certificate valid: %s\n", certPath)
	_, _ = fmt.Fprintf(stdout, "   Case:     %s\n", claims.CaseID)
	_, _ = fmt.Fprintf(stdout, "   Ruleset:  %s\n", claims.RulesetVersion)
	_, _ = fmt.Fprintf(stdout, "   Score:    %.1f\n", claims.ComplianceScore)
	_, _ = fmt.Fprintf(stdout, "   Digest:   %s\n", claims.ReportDigest)
	if claims.ExpiresAt != nil {
		_, _ = fmt.Fprintf(stdout, "   Expires:  %s\n", claims.ExpiresAt.Format("2006-01-02"))
	}
	return 0
}

// buildVerifier assembles the trust set for certificate verification:
// the local office key when present, its case-scoped derivation when a
// report names the case, and every key in the trust store. Verification
// never generates a key.
func buildVerifier(report *verify.ComplianceReport, stderr io.Writer) (*attest.Verifier, error) {
	verifier := attest.NewVerifier()

	cfg := config.Load()
	if _, err := os.Stat(filepath.Join(cfg.DataDir, "root.key")); err == nil {
		if signer, err := loadOrGenerateSigner(cfg, io.Discard); err == nil {
			verifier.TrustSigner(signer)
			if report != nil {
				if derived, derr := signer.DeriveForCase(report.CaseID); derr == nil {
					verifier.TrustSigner(derived)
				}
			}
		}
	}

	keys, err := loadTrustedKeys(cfg)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		pub, err := k.publicKey()
		if err != nil {
			fmt.Fprintf(stderr, "⚠️  trust store: skipping %s: %v\n", k.KeyID, err)
			continue
		}
		verifier.AddKey(k.KeyID, pub)
	}
	return verifier, nil
}

func loadReport(path string) (*verify.ComplianceReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	var report verify.ComplianceReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report file: %w", err)
	}
	if report.CaseID == "" {
		return nil, fmt.Errorf("report file %s has no case_id", path)
	}
	return &report, nil
}
