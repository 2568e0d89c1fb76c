package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rowhouse-labs/docket/pkg/artifacts"
	"github.com/rowhouse-labs/docket/pkg/assemble"
	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/checklist"
	"github.com/rowhouse-labs/docket/pkg/ingest"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// liteEnv pins a test to a throwaway Lite Mode data directory so CLI
// invocations never touch shared infrastructure or each other.
func liteEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DOCKET_OTLP_ENDPOINT", "")
	t.Setenv("DOCKET_ENV", "test")
	t.Setenv("DOCKET_OPERATOR", "tester")
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("ARTIFACT_STORAGE_TYPE", "")
	return dir
}

// writeCompliantCase writes a case file that passes every built-in rule:
// timely notice, twelve utility documents, no undeclared-income or
// foreign-asset indicators.
func writeCompliantCase(t *testing.T, dir string) string {
	t.Helper()
	vacancy := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	submission := vacancy.AddDate(0, 0, 45)

	c := casefile.SuccessionCase{
		CaseID:         "CASE-CLI-001",
		BuildingID:     "1-00123-0045",
		VacancyDate:    &vacancy,
		SubmissionDate: &submission,
	}
	for i := 0; i < 12; i++ {
		c.Documents = append(c.Documents, casefile.Document{
			DocumentType: fmt.Sprintf("utility bill %02d", i+1),
			UploadDate:   submission,
		})
	}
	c.Documents = append(c.Documents, casefile.Document{
		DocumentType: "death certificate",
		UploadDate:   submission,
	})

	path := filepath.Join(dir, "case.json")
	data, err := json.Marshal(&c)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeIncompleteCase writes a case with no dates and no utility
// records, so notice timing and utility continuity both fail.
func writeIncompleteCase(t *testing.T, dir string) string {
	t.Helper()
	c := casefile.SuccessionCase{
		CaseID: "CASE-CLI-002",
		Documents: []casefile.Document{
			{DocumentType: "lease agreement"},
		},
	}
	path := filepath.Join(dir, "incomplete.json")
	data, err := json.Marshal(&c)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCommand_JSON(t *testing.T) {
	dir := liteEnv(t)
	folder := filepath.Join(dir, "intake", "PFS-2026-0042")
	if err := os.MkdirAll(folder, 0750); err != nil {
		t.Fatal(err)
	}
	docs := map[string]string{
		"death_certificate.txt": "CERTIFICATE OF DEATH\nDate of death: January 15, 2026\n",
		"lease.txt":             "LEASE AGREEMENT for apartment 4B, executed March 1, 2024\n",
		"note.txt":              "Handwritten note from applicant\n",
	}
	for name, text := range docs {
		if err := os.WriteFile(filepath.Join(folder, name), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "scan", "--json", folder}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d\nstderr: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Lite Mode") {
		t.Errorf("Lite Mode banner missing from stderr")
	}

	var scan ingest.CaseScan
	if err := json.Unmarshal(stdout.Bytes(), &scan); err != nil {
		t.Fatalf("scan output is not JSON: %v\n%s", err, stdout.String())
	}
	if scan.FilesFound != 3 {
		t.Errorf("files found = %d, want 3", scan.FilesFound)
	}
	if scan.ScanID == "" {
		t.Errorf("scan id empty")
	}
}

func TestScoreCommand_JSON(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "score", "--json", casePath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d\nstderr: %s", code, stderr.String())
	}

	var b checklist.Breakdown
	if err := json.Unmarshal(stdout.Bytes(), &b); err != nil {
		t.Fatalf("breakdown output is not JSON: %v", err)
	}
	if b.CompletenessScore <= 0 || b.CompletenessScore > 100 {
		t.Errorf("completeness = %.1f, want (0,100]", b.CompletenessScore)
	}
	if b.LegalDisclaimer == "" {
		t.Errorf("disclaimer missing")
	}
}

func TestVerifyCommand_CompliantCase(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "verify", "--json", casePath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d\nstderr: %s", code, stderr.String())
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("report output is not JSON: %v", err)
	}
	if !report.Compliant() {
		t.Errorf("violations = %v, want none", report.RuleViolations)
	}
	if report.ComplianceScore != 100.0 {
		t.Errorf("score = %.1f, want 100", report.ComplianceScore)
	}
}

func TestVerifyCommand_SecondRunServedFromCache(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var first, firstErr bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json", casePath}, &first, &firstErr); code != 0 {
		t.Fatalf("first run exit = %d\nstderr: %s", code, firstErr.String())
	}

	var second, secondErr bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json", casePath}, &second, &secondErr); code != 0 {
		t.Fatalf("second run exit = %d\nstderr: %s", code, secondErr.String())
	}
	if !strings.Contains(secondErr.String(), "cached report") {
		t.Errorf("second run not served from cache:\n%s", secondErr.String())
	}

	var a, b verify.ComplianceReport
	if err := json.Unmarshal(first.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if a.ComplianceScore != b.ComplianceScore || a.RulesetVersion != b.RulesetVersion {
		t.Errorf("cached report differs: %.1f/%s vs %.1f/%s",
			a.ComplianceScore, a.RulesetVersion, b.ComplianceScore, b.RulesetVersion)
	}
}

func TestVerifyCommand_ViolationsExitOne(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeIncompleteCase(t, dir)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "verify", "--json", casePath}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit = %d, want 1\nstderr: %s", code, stderr.String())
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.RuleViolations) == 0 {
		t.Errorf("no violations reported for incomplete case")
	}
}

func TestVerifyCommand_CheckFilterSkipsCache(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var out1, err1 bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json", casePath}, &out1, &err1); code != 0 {
		t.Fatalf("seed run exit = %d", code)
	}

	var out2, err2 bytes.Buffer
	code := Run([]string{"docket", "verify", "--json", "--check", "AST-01", casePath}, &out2, &err2)
	if code != 0 {
		t.Fatalf("filtered run exit = %d\nstderr: %s", code, err2.String())
	}
	if strings.Contains(err2.String(), "cached report") {
		t.Errorf("filtered run must not hit the cache")
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(out2.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.CheckResults) != 1 {
		t.Errorf("check results = %d, want 1", len(report.CheckResults))
	}
}

func TestAssembleCommand_JSON(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "assemble", "--json", casePath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d\nstderr: %s", code, stderr.String())
	}

	var pkg assemble.SubmissionPackage
	if err := json.Unmarshal(stdout.Bytes(), &pkg); err != nil {
		t.Fatalf("package output is not JSON: %v", err)
	}
	if pkg.CaseID != "CASE-CLI-001" {
		t.Errorf("case id = %s", pkg.CaseID)
	}
	if pkg.Contents.ComplianceReport == nil {
		t.Errorf("package missing embedded report")
	}
	if len(pkg.Contents.TableOfContents) == 0 {
		t.Errorf("package missing table of contents")
	}
}

func TestExportCommand_WritesReadablePack(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)
	outPath := filepath.Join(dir, "evidence.tar.gz")

	var verifyOut, verifyErr bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json", casePath}, &verifyOut, &verifyErr); code != 0 {
		t.Fatalf("verify exit = %d\nstderr: %s", code, verifyErr.String())
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "export", "--out", outPath, casePath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("export exit = %d\nstderr: %s", code, stderr.String())
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	manifest, files, err := artifacts.ReadPack(f)
	if err != nil {
		t.Fatalf("pack does not verify: %v", err)
	}
	if manifest.CaseID != "CASE-CLI-001" {
		t.Errorf("manifest case = %s", manifest.CaseID)
	}
	for _, want := range []string{"report.json", "envelope.json", "checklist.txt", "audit_log.json"} {
		if _, ok := files[want]; !ok {
			t.Errorf("pack missing %s (has %v)", want, fileNames(files))
		}
	}
}

func fileNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	return names
}

func TestAttestCommand_IssueAndVerify(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)
	reportPath := filepath.Join(dir, "report.json")
	certPath := filepath.Join(dir, "cert.jwt")

	var vOut, vErr bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json-out", reportPath, casePath}, &vOut, &vErr); code != 0 {
		t.Fatalf("verify exit = %d\nstderr: %s", code, vErr.String())
	}

	var iOut, iErr bytes.Buffer
	if code := Run([]string{"docket", "attest", "--out", certPath, reportPath}, &iOut, &iErr); code != 0 {
		t.Fatalf("attest exit = %d\nstderr: %s", code, iErr.String())
	}
	if !strings.Contains(iErr.String(), "SECURITY WARNING") {
		t.Errorf("auto-generated key warning missing")
	}

	var cOut, cErr bytes.Buffer
	code := Run([]string{"docket", "attest", "--verify", certPath, "--report", reportPath}, &cOut, &cErr)
	if code != 0 {
		t.Fatalf("attest --verify exit = %d\nstderr: %s", code, cErr.String())
	}
	if !strings.Contains(cOut.String(), "Certificate valid") {
		t.Errorf("stdout = %q", cOut.String())
	}
	if !strings.Contains(cOut.String(), "CASE-CLI-001") {
		t.Errorf("claims missing case id: %q", cOut.String())
	}
}

func TestAttestCommand_TamperedCertificateFails(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)
	reportPath := filepath.Join(dir, "report.json")
	certPath := filepath.Join(dir, "cert.jwt")

	var buf bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json-out", reportPath, casePath}, &buf, &buf); code != 0 {
		t.Fatalf("verify exit = %d", code)
	}
	if code := Run([]string{"docket", "attest", "--out", certPath, reportPath}, &buf, &buf); code != 0 {
		t.Fatalf("attest exit = %d", code)
	}

	cert, err := os.ReadFile(certPath)
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(cert, []byte("."), []byte("x."), 1)
	if err := os.WriteFile(certPath, tampered, 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "attest", "--verify", certPath}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Certificate invalid") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestAuditCommand_ChainListAndPack(t *testing.T) {
	dir := liteEnv(t)
	casePath := writeCompliantCase(t, dir)

	var buf bytes.Buffer
	if code := Run([]string{"docket", "verify", "--json", casePath}, &buf, &buf); code != 0 {
		t.Fatalf("verify exit = %d", code)
	}

	var chainOut, chainErr bytes.Buffer
	if code := Run([]string{"docket", "audit", "--verify"}, &chainOut, &chainErr); code != 0 {
		t.Fatalf("audit --verify exit = %d\nstderr: %s", code, chainErr.String())
	}
	if !strings.Contains(chainOut.String(), "Audit chain intact") {
		t.Errorf("stdout = %q", chainOut.String())
	}

	var listOut, listErr bytes.Buffer
	if code := Run([]string{"docket", "audit", "--case", "CASE-CLI-001"}, &listOut, &listErr); code != 0 {
		t.Fatalf("audit list exit = %d", code)
	}
	if !strings.Contains(listOut.String(), "verified case against rule catalog") {
		t.Errorf("trail missing verification entry:\n%s", listOut.String())
	}

	packPath := filepath.Join(dir, "trail.zip")
	var packOut, packErr bytes.Buffer
	if code := Run([]string{"docket", "audit", "--case", "CASE-CLI-001", "--pack", packPath}, &packOut, &packErr); code != 0 {
		t.Fatalf("audit --pack exit = %d\nstderr: %s", code, packErr.String())
	}
	if _, err := os.Stat(packPath); err != nil {
		t.Errorf("pack not written: %v", err)
	}
	if !strings.Contains(packOut.String(), "sha256") {
		t.Errorf("checksum not printed: %q", packOut.String())
	}

	var noCase bytes.Buffer
	if code := Run([]string{"docket", "audit", "--pack", packPath}, &noCase, &noCase); code != 2 {
		t.Errorf("--pack without --case exit = %d, want 2", code)
	}
}

func TestTrustCommand_AddListRevoke(t *testing.T) {
	dir := liteEnv(t)
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	keyFile := filepath.Join(dir, "central.pub")
	if err := os.WriteFile(keyFile, []byte(hex.EncodeToString(pub)), 0644); err != nil {
		t.Fatal(err)
	}

	var addOut, addErr bytes.Buffer
	if code := Run([]string{"docket", "trust", "add-key", "central-2026", keyFile}, &addOut, &addErr); code != 0 {
		t.Fatalf("add-key exit = %d\nstderr: %s", code, addErr.String())
	}

	var dupOut, dupErr bytes.Buffer
	if code := Run([]string{"docket", "trust", "add-key", "central-2026", keyFile}, &dupOut, &dupErr); code != 2 {
		t.Errorf("duplicate add exit = %d, want 2", code)
	}

	var listOut, listErr bytes.Buffer
	if code := Run([]string{"docket", "trust", "list-keys"}, &listOut, &listErr); code != 0 {
		t.Fatalf("list-keys exit = %d", code)
	}
	if !strings.Contains(listOut.String(), "central-2026") {
		t.Errorf("list missing key: %q", listOut.String())
	}

	var revOut, revErr bytes.Buffer
	if code := Run([]string{"docket", "trust", "revoke-key", "central-2026"}, &revOut, &revErr); code != 0 {
		t.Fatalf("revoke-key exit = %d", code)
	}
	var missOut, missErr bytes.Buffer
	if code := Run([]string{"docket", "trust", "revoke-key", "central-2026"}, &missOut, &missErr); code != 1 {
		t.Errorf("revoking absent key exit = %d, want 1", code)
	}

	listOut.Reset()
	if code := Run([]string{"docket", "trust", "list-keys"}, &listOut, &listErr); code != 0 {
		t.Fatalf("list-keys exit = %d", code)
	}
	if !strings.Contains(listOut.String(), "none configured") {
		t.Errorf("list after revoke: %q", listOut.String())
	}
}

func TestInitCommand_SeedsWorkspace(t *testing.T) {
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	if code := Run([]string{"docket", "init", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("init exit = %d\nstderr: %s", code, stderr.String())
	}

	for _, path := range []string{
		filepath.Join(dir, "data", "artifacts"),
		filepath.Join(dir, "profiles", "requirements_nyc.yaml"),
		filepath.Join(dir, "docket.yaml"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}

	// Re-running must not clobber an edited config.
	marker := []byte("# edited\n")
	if err := os.WriteFile(filepath.Join(dir, "docket.yaml"), marker, 0600); err != nil {
		t.Fatal(err)
	}
	if code := Run([]string{"docket", "init", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("re-init exit = %d", code)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "docket.yaml"))
	if !bytes.Equal(data, marker) {
		t.Errorf("re-init overwrote docket.yaml")
	}
}

func TestDoctorCommand_LiteMode(t *testing.T) {
	liteEnv(t)

	var stdout, stderr bytes.Buffer
	code := Run([]string{"docket", "doctor"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d\nstdout: %s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "Docket Doctor") {
		t.Errorf("header missing: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "Lite Mode") {
		t.Errorf("lite mode warning missing: %q", stdout.String())
	}
}
