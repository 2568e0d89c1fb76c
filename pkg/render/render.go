// Package render produces the human-facing text outputs: the internal
// staff triage report, the sanitized client checklist, and the plain
// compliance summary.
//
// The two audiences never share a template. The internal report carries
// scores, flag provenance, and staff notes; the client checklist names
// required documents and nothing else.
package render

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rowhouse-labs/docket/pkg/ingest"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

var titleCaser = cases.Title(language.English)

// InternalReport renders the staff-only markdown triage report for a
// folder scan.
func InternalReport(scan *ingest.CaseScan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# INTERNAL CASE ANALYSIS\n")
	fmt.Fprintf(&b, "Generated: %s\n", scan.ScanDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Folder: %s\n", scan.Folder)
	fmt.Fprintf(&b, "Risk Score: %d/10\n", scan.InternalScore)

	fmt.Fprintf(&b, "\n## 🔴 RED FLAGS (%d)\n", len(scan.RedFlags))
	for _, flag := range scan.RedFlags {
		fmt.Fprintf(&b, "- %s\n", flag)
	}

	fmt.Fprintf(&b, "\n## 📁 DOCUMENTS DETECTED\n")
	fmt.Fprintf(&b, "Files scanned: %d\n", scan.FilesFound)
	counts := typeCounts(scan)
	for _, dt := range scan.DetectedTypes {
		fmt.Fprintf(&b, "- %s: %d\n", titleCaser.String(strings.ReplaceAll(dt, "_", " ")), counts[dt])
	}

	fmt.Fprintf(&b, "\n## ⚠️ ISSUES IDENTIFIED\n")
	for _, issue := range scan.MissingCategories {
		fmt.Fprintf(&b, "- ❌ %s\n", issue)
	}
	for _, issue := range scan.TimelineIssues {
		fmt.Fprintf(&b, "- ⏰ %s\n", issue)
	}

	fmt.Fprintf(&b, "\n## 🎯 ACTION PLAN (Prioritized)\n")
	for i, action := range scan.RecommendedFocus {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}

	b.WriteString(`
## 📝 INTERNAL NOTES
1. Check death certificate DATE first
2. Calculate: Filing date - Vacancy date = ? days
3. Look for: Foreign accounts >$10k?
4. Look for: Gig income without 1099-K?
5. Utility gaps >60 days? Medical proof needed?

## ⚖️ REMINDER (INTERNAL USE ONLY)
- This analysis is a staff working aid only
- Never share this report with clients
- Always verify findings manually
- Final decision is human review
`)

	return b.String()
}

// typeCounts counts how many scanned documents matched each detected
// type.
func typeCounts(scan *ingest.CaseScan) map[string]int {
	counts := make(map[string]int)
	for _, d := range scan.Documents {
		for _, dt := range d.Signals.DocumentTypes {
			counts[dt]++
		}
	}
	return counts
}

// ClientChecklist renders the document checklist sent to clients. It
// carries no scores, no flag provenance, and no scan findings.
func ClientChecklist(date time.Time, caseRef string) string {
	if caseRef == "" {
		caseRef = "[Client Reference]"
	}
	return fmt.Sprintf(checklistTemplate, date.Format("2006-01-02"), caseRef)
}

const checklistTemplate = `DOCUMENT VERIFICATION CHECKLIST
Date: %s
Case: %s

Please verify the following documents are complete:

[ ] 1. DEATH CERTIFICATE / VACANCY NOTICE
    - Official document with date
    - Certified translation if not in English

[ ] 2. SUCCESSION NOTICE
    - Filed within 90 days of vacancy
    - Official receipt or confirmation

[ ] 3. INCOME DOCUMENTATION
    - All 1099 forms for past year
    - W-2s if applicable
    - For gig income: 1099-K + 3 months app screenshots

[ ] 4. ASSET DECLARATION
    - Bank statements (all accounts)
    - For foreign accounts >$10k: Schedule B + FBAR Form 114
    - Investment account statements

[ ] 5. UTILITY BILLS
    - 24 consecutive months
    - Any gaps >60 days explained with proof

[ ] 6. RESIDENCY PROOF
    - Lease agreement
    - Government ID with address
    - Mail at address for 2+ years

[ ] 7. HARDSHIP DOCUMENTATION (if applicable)
    - Medical: Hospital records covering dates
    - Incarceration: Release papers
    - Other: Official documentation

---
VERIFICATION NOTES:
• Please redact SSNs and full account numbers
• PDF format preferred
• Organize chronologically
• Label files clearly

This checklist is based on HPD published requirements.
`

// ComplianceSummary renders a verification report for terminal output.
func ComplianceSummary(report *verify.ComplianceReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COMPLIANCE VERIFICATION — %s\n", report.CaseID)
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Ruleset: %s (engine %s)\n", report.RulesetVersion, report.EngineVersion)
	fmt.Fprintf(&b, "Score: %.1f%%\n", report.ComplianceScore)

	if len(report.RuleViolations) == 0 {
		b.WriteString("\nNo rule violations identified.\n")
	} else {
		fmt.Fprintf(&b, "\nViolations (%d):\n", len(report.RuleViolations))
		for _, v := range report.RuleViolations {
			fmt.Fprintf(&b, "  [%s] %s\n", v.Rule, v.Issue)
			if len(v.MissingDocuments) > 0 {
				fmt.Fprintf(&b, "      Missing: %s\n", strings.Join(v.MissingDocuments, ", "))
			}
			if v.Citation != "" {
				fmt.Fprintf(&b, "      Citation: %s\n", v.Citation)
			}
		}
	}

	if len(report.RecommendedActions) > 0 {
		b.WriteString("\nRecommended actions:\n")
		for _, action := range report.RecommendedActions {
			fmt.Fprintf(&b, "  - %s\n", indentContinuations(action))
		}
	}

	if len(report.PublicCitations) > 0 {
		b.WriteString("\nPublic citations:\n")
		for _, c := range report.PublicCitations {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", report.LegalDisclaimer)
	return b.String()
}

// indentContinuations keeps multi-line remediation steps aligned under
// their bullet.
func indentContinuations(s string) string {
	return strings.ReplaceAll(s, "\n", "\n    ")
}
