package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rowhouse-labs/docket/pkg/ingest"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

func sampleScan() *ingest.CaseScan {
	return &ingest.CaseScan{
		ScanDate:   time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Folder:     "/cases/nhs-001",
		FilesFound: 3,
		Documents: []ingest.DocumentScan{
			{Filename: "death_certificate.txt", Signals: signal.SignalSet{
				DocumentTypes: []string{signal.DocTypeDeathCertificate},
			}},
			{Filename: "bank_jan.txt", Signals: signal.SignalSet{
				DocumentTypes: []string{signal.DocTypeBankStatement},
			}},
			{Filename: "bank_feb.txt", Signals: signal.SignalSet{
				DocumentTypes: []string{signal.DocTypeBankStatement},
			}},
		},
		RedFlags:          []string{"FOREIGN_ACCOUNT: Found 'CHF' in bank_jan.txt"},
		DetectedTypes:     []string{signal.DocTypeDeathCertificate, signal.DocTypeBankStatement},
		MissingCategories: []string{"MISSING_DOC: LEASE not detected"},
		TimelineIssues:    []string{"TIMELINE: 120 days between earliest and latest document - check for gaps"},
		InternalScore:     5,
		RecommendedFocus:  []string{"FOCUS: Check for Schedule B and FBAR Form 114 for foreign accounts"},
	}
}

func TestInternalReport(t *testing.T) {
	report := InternalReport(sampleScan())

	require.Contains(t, report, "# INTERNAL CASE ANALYSIS")
	require.Contains(t, report, "Generated: 2024-03-15 09:30")
	require.Contains(t, report, "Folder: /cases/nhs-001")
	require.Contains(t, report, "Risk Score: 5/10")

	require.Contains(t, report, "## 🔴 RED FLAGS (1)")
	require.Contains(t, report, "- FOREIGN_ACCOUNT: Found 'CHF' in bank_jan.txt")

	require.Contains(t, report, "Files scanned: 3")
	require.Contains(t, report, "- Death Certificate: 1")
	require.Contains(t, report, "- Bank Statement: 2")

	require.Contains(t, report, "- ❌ MISSING_DOC: LEASE not detected")
	require.Contains(t, report, "- ⏰ TIMELINE: 120 days between earliest and latest document - check for gaps")

	require.Contains(t, report, "1. FOCUS: Check for Schedule B and FBAR Form 114 for foreign accounts")
	require.Contains(t, report, "Never share this report with clients")
}

func TestInternalReport_KeepsDetectionOrder(t *testing.T) {
	report := InternalReport(sampleScan())
	require.Less(t,
		strings.Index(report, "Death Certificate"),
		strings.Index(report, "Bank Statement"))
}

func TestClientChecklist(t *testing.T) {
	out := ClientChecklist(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "NHS-001")

	require.Contains(t, out, "DOCUMENT VERIFICATION CHECKLIST")
	require.Contains(t, out, "Date: 2024-03-15")
	require.Contains(t, out, "Case: NHS-001")
	for _, section := range []string{
		"DEATH CERTIFICATE / VACANCY NOTICE",
		"SUCCESSION NOTICE",
		"INCOME DOCUMENTATION",
		"ASSET DECLARATION",
		"UTILITY BILLS",
		"RESIDENCY PROOF",
		"HARDSHIP DOCUMENTATION",
	} {
		require.Contains(t, out, section)
	}
	require.Contains(t, out, "Schedule B + FBAR Form 114")
	require.Contains(t, out, "• Please redact SSNs and full account numbers")
	require.Contains(t, out, "This checklist is based on HPD published requirements.")
}

func TestClientChecklist_DefaultReference(t *testing.T) {
	out := ClientChecklist(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "")
	require.Contains(t, out, "Case: [Client Reference]")
}

func TestClientChecklist_CarriesNoFindings(t *testing.T) {
	out := ClientChecklist(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "NHS-001")
	require.NotContains(t, out, "Risk Score")
	require.NotContains(t, out, "FOREIGN_ACCOUNT")
	require.NotContains(t, out, "INTERNAL")
}

func TestComplianceSummary(t *testing.T) {
	report := &verify.ComplianceReport{
		CaseID:          "case-042",
		GeneratedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		EngineVersion:   "1.0.0",
		RulesetVersion:  "hpd-2024",
		ComplianceScore: 75.0,
		RuleViolations: []verify.RuleViolation{{
			Rule:             "AST-01",
			Issue:            "Foreign accounts indicated but missing Schedule B and/or FBAR",
			MissingDocuments: []string{"Schedule B", "FBAR Form 114"},
			Citation:         "HPD Asset Declaration Guidelines §3.2",
		}},
		RecommendedActions: []string{"1. Obtain Schedule B\n2. File FBAR Form 114"},
		LegalDisclaimer:    verify.LegalDisclaimer,
		PublicCitations:    []string{"HPD Asset Declaration Guidelines §3.2"},
	}

	out := ComplianceSummary(report)
	require.Contains(t, out, "COMPLIANCE VERIFICATION — case-042")
	require.Contains(t, out, "Ruleset: hpd-2024 (engine 1.0.0)")
	require.Contains(t, out, "Score: 75.0%")
	require.Contains(t, out, "Violations (1):")
	require.Contains(t, out, "  [AST-01] Foreign accounts indicated but missing Schedule B and/or FBAR")
	require.Contains(t, out, "      Missing: Schedule B, FBAR Form 114")
	require.Contains(t, out, "      Citation: HPD Asset Declaration Guidelines §3.2")
	require.Contains(t, out, "  - 1. Obtain Schedule B\n    2. File FBAR Form 114")
	require.Contains(t, out, "  - HPD Asset Declaration Guidelines §3.2")
	require.Contains(t, out, verify.LegalDisclaimer)
}

func TestComplianceSummary_Compliant(t *testing.T) {
	report := &verify.ComplianceReport{
		CaseID:          "case-042",
		GeneratedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		ComplianceScore: 100.0,
		LegalDisclaimer: verify.LegalDisclaimer,
	}

	out := ComplianceSummary(report)
	require.Contains(t, out, "No rule violations identified.")
	require.NotContains(t, out, "Recommended actions")
}
