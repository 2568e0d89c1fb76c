// Package assemble organizes verified case files into HPD-ready
// submission packages: a Bates-numbered index, category binders, a
// cover sheet, and a verification certificate.
//
// Assembly organizes documents the applicant already supplied. It never
// creates, rewrites, or fills in content.
package assemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// Binder categories in tab order.
const (
	CategoryResidency = "Residency Proof"
	CategoryIncome    = "Income Verification"
	CategoryAssets    = "Asset Declaration"
	CategoryHardship  = "Hardship Documentation"
	CategoryUtility   = "Utility Records"
	CategoryLegal     = "Legal Documents"
)

var categoryOrder = []string{
	CategoryResidency,
	CategoryIncome,
	CategoryAssets,
	CategoryHardship,
	CategoryUtility,
	CategoryLegal,
}

// categoryKeywords maps type-label substrings to binder categories.
// First hit wins; anything unmatched files under Legal Documents.
var categoryKeywords = []struct {
	category string
	terms    []string
}{
	{CategoryUtility, []string{"utility", "con ed", "electric", "gas"}},
	{CategoryAssets, []string{"bank", "account", "asset", "schedule"}},
	{CategoryIncome, []string{"income", "1099", "w2", "paystub"}},
	{CategoryResidency, []string{"lease", "id", "license", "passport"}},
	{CategoryHardship, []string{"medical", "hospital", "doctor", "discharge"}},
}

const batesFormat = "HPD-%04d"

const defaultPreparedBy = "Docket Verification Service"

// TOCEntry is one line of the Bates-numbered table of contents. Item
// and Bates numbers follow case order.
type TOCEntry struct {
	Item        int    `json:"item"`
	BatesNumber string `json:"bates_number"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	Category    string `json:"category"`
}

// CategorizedDocument is one document as listed inside a binder.
type CategorizedDocument struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	Source string `json:"source"`
}

// Contents holds the ordered parts of a submission package.
type Contents struct {
	CoverSheet          string                           `json:"cover_sheet"`
	TableOfContents     []TOCEntry                       `json:"table_of_contents"`
	DocumentsByCategory map[string][]CategorizedDocument `json:"documents_by_category"`
	ComplianceReport    *verify.ComplianceReport         `json:"compliance_report"`
	VerificationCert    string                           `json:"verification_certificate"`
}

// SubmissionPackage is the HPD-ready package for one case.
type SubmissionPackage struct {
	PackageID       string    `json:"package_id"`
	CreatedDate     time.Time `json:"created_date"`
	CaseID          string    `json:"case_id"`
	BuildingID      string    `json:"building_id"`
	Contents        Contents  `json:"contents"`
	FormattingNotes []string  `json:"formatting_notes"`
}

// Categorize files a free-text document type label under its binder
// category.
func Categorize(docType string) string {
	lower := strings.ToLower(docType)
	for _, ck := range categoryKeywords {
		for _, term := range ck.terms {
			if strings.Contains(lower, term) {
				return ck.category
			}
		}
	}
	return CategoryLegal
}

// Assembler builds submission packages.
type Assembler struct {
	rules      *catalog.RuleSet
	clock      func() time.Time
	preparedBy string
}

// NewAssembler creates an assembler over the published rule set.
func NewAssembler() *Assembler {
	return &Assembler{
		rules:      catalog.DefaultRuleSet(),
		clock:      time.Now,
		preparedBy: defaultPreparedBy,
	}
}

// WithRules sets the rule set named on the verification certificate.
func (a *Assembler) WithRules(rules *catalog.RuleSet) *Assembler {
	a.rules = rules
	return a
}

// WithClock overrides the clock for deterministic output.
func (a *Assembler) WithClock(clock func() time.Time) *Assembler {
	a.clock = clock
	return a
}

// WithPreparedBy sets the service name printed on cover sheet and
// certificate.
func (a *Assembler) WithPreparedBy(name string) *Assembler {
	a.preparedBy = name
	return a
}

// CreatePackage assembles the submission package for a verified case.
func (a *Assembler) CreatePackage(c *casefile.SuccessionCase, report *verify.ComplianceReport) (*SubmissionPackage, error) {
	if c == nil {
		return nil, fmt.Errorf("assemble: nil case")
	}
	if report == nil {
		return nil, fmt.Errorf("assemble: nil report")
	}

	now := a.clock()
	return &SubmissionPackage{
		PackageID:   fmt.Sprintf("HPD_%s_%s", c.CaseID, now.Format("20060102")),
		CreatedDate: now,
		CaseID:      c.CaseID,
		BuildingID:  c.BuildingID,
		Contents: Contents{
			CoverSheet:          a.coverSheet(c, report, now),
			TableOfContents:     tableOfContents(c.Documents),
			DocumentsByCategory: categorize(c.Documents),
			ComplianceReport:    report,
			VerificationCert:    a.certificate(report),
		},
		FormattingNotes: []string{
			"All documents Bates-numbered",
			"Color-coded tabs by document category",
			"Chronological order within categories",
			"Annotated with HPD rule references",
		},
	}, nil
}

func tableOfContents(docs []casefile.Document) []TOCEntry {
	toc := make([]TOCEntry, 0, len(docs))
	for i, d := range docs {
		toc = append(toc, TOCEntry{
			Item:        i + 1,
			BatesNumber: fmt.Sprintf(batesFormat, i+1),
			Description: d.DocumentType,
			Date:        formatDate(d.UploadDate),
			Source:      d.Source,
			Category:    Categorize(d.DocumentType),
		})
	}
	return toc
}

// categorize groups documents into binders, chronological within each.
func categorize(docs []casefile.Document) map[string][]CategorizedDocument {
	sorted := make([]casefile.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UploadDate.Before(sorted[j].UploadDate)
	})

	categories := make(map[string][]CategorizedDocument, len(categoryOrder))
	for _, cat := range categoryOrder {
		categories[cat] = []CategorizedDocument{}
	}
	for _, d := range sorted {
		cat := Categorize(d.DocumentType)
		categories[cat] = append(categories[cat], CategorizedDocument{
			Type:   d.DocumentType,
			Date:   formatDate(d.UploadDate),
			Source: d.Source,
		})
	}
	return categories
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

const coverTemplate = `HPD SUCCESSION VERIFICATION PACKAGE
===================================

Case ID: %s
Building BBL: %s
Submission Date: %s

VERIFICATION SUMMARY
--------------------
Compliance Score: %.1f%%
Rules Checked: %d violations identified

DOCUMENT INDEX
--------------
Total Documents: %d
Organized by: Category → Chronological

IMPORTANT DISCLAIMER
--------------------
This package organizes documents for HPD submission.
It does NOT guarantee approval.
It does NOT constitute legal advice.

Prepared by: %s
Verification Date: %s
`

func (a *Assembler) coverSheet(c *casefile.SuccessionCase, report *verify.ComplianceReport, now time.Time) string {
	day := now.Format("2006-01-02")
	return fmt.Sprintf(coverTemplate,
		c.CaseID,
		c.BuildingID,
		day,
		report.ComplianceScore,
		len(report.RuleViolations),
		len(c.Documents),
		a.preparedBy,
		day,
	)
}

const certTemplate = `VERIFICATION CERTIFICATE
========================

This certifies that the accompanying documents have been verified for:

1. Completeness against HPD published rules
2. Proper categorization and organization
3. Chronological ordering

VERIFICATION DETAILS
--------------------
Verification Date: %s
Compliance Score: %.1f%%
Ruleset Version: %s

CHECKED FOR (PUBLISHED RULES ONLY):
%s
IMPORTANT LIMITATIONS:
- This verification checks DOCUMENT COMPLETENESS only
- It does NOT guarantee HPD approval
- It does NOT constitute legal advice
- It does NOT predict individual auditor decisions

Prepared by: %s
`

func (a *Assembler) certificate(report *verify.ComplianceReport) string {
	var rules strings.Builder
	if a.rules != nil {
		for _, r := range a.rules.Rules {
			fmt.Fprintf(&rules, "- %s: %s\n", r.Code, r.Description)
		}
	}
	return fmt.Sprintf(certTemplate,
		report.GeneratedAt.Format(time.RFC3339),
		report.ComplianceScore,
		report.RulesetVersion,
		rules.String(),
		a.preparedBy,
	)
}
