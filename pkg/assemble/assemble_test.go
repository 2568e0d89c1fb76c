package assemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

func sampleCase() *casefile.SuccessionCase {
	return &casefile.SuccessionCase{
		CaseID:     "case-042",
		BuildingID: "1-00123-0042",
		Documents: []casefile.Document{
			{
				DocumentType: "death_certificate",
				UploadDate:   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
				Source:       "client upload",
			},
			{
				DocumentType: "lease_agreement",
				UploadDate:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Source:       "client upload",
			},
			{
				DocumentType: "utility_bill_01",
				UploadDate:   time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
				Source:       "client upload",
			},
		},
	}
}

func sampleReport() *verify.ComplianceReport {
	return &verify.ComplianceReport{
		CaseID:          "case-042",
		GeneratedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		EngineVersion:   catalog.EngineVersion,
		RulesetVersion:  "hpd-2024",
		ComplianceScore: 75.0,
		RuleViolations: []verify.RuleViolation{{
			Rule:     "AST-01",
			Issue:    "Foreign accounts indicated but missing Schedule B and/or FBAR",
			Citation: "HPD Asset Declaration Guidelines §3.2",
		}},
		LegalDisclaimer: verify.LegalDisclaimer,
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"utility_bill_03":               CategoryUtility,
		"Con Ed statement":              CategoryUtility,
		"Form 1040 Schedule B":          CategoryAssets,
		"bank_statement_2023":           CategoryAssets,
		"1099-K Payment Card Statement": CategoryIncome,
		"paystub_march":                 CategoryIncome,
		"lease_agreement":               CategoryResidency,
		"drivers_license":               CategoryResidency,
		"Discharge Summary - Mt Sinai":  CategoryHardship,
		"death_certificate":             CategoryLegal,
		"misc_paperwork":                CategoryLegal,
		// Keyword matching is substring-level; "id" hits inside the word.
		"Affidavit of Residence": CategoryResidency,
	}
	for label, want := range cases {
		require.Equal(t, want, Categorize(label), "label %q", label)
	}
}

func TestCreatePackage_Structure(t *testing.T) {
	report := sampleReport()
	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(sampleCase(), report)
	require.NoError(t, err)

	require.Equal(t, "HPD_case-042_20240315", pkg.PackageID)
	require.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), pkg.CreatedDate)
	require.Equal(t, "case-042", pkg.CaseID)
	require.Equal(t, "1-00123-0042", pkg.BuildingID)
	require.Equal(t, []string{
		"All documents Bates-numbered",
		"Color-coded tabs by document category",
		"Chronological order within categories",
		"Annotated with HPD rule references",
	}, pkg.FormattingNotes)
	require.Same(t, report, pkg.Contents.ComplianceReport)
}

func TestCreatePackage_TableOfContents(t *testing.T) {
	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(sampleCase(), sampleReport())
	require.NoError(t, err)

	require.Equal(t, []TOCEntry{
		{Item: 1, BatesNumber: "HPD-0001", Description: "death_certificate", Date: "2024-02-10", Source: "client upload", Category: CategoryLegal},
		{Item: 2, BatesNumber: "HPD-0002", Description: "lease_agreement", Date: "2024-01-05", Source: "client upload", Category: CategoryResidency},
		{Item: 3, BatesNumber: "HPD-0003", Description: "utility_bill_01", Date: "2024-01-20", Source: "client upload", Category: CategoryUtility},
	}, pkg.Contents.TableOfContents)
}

func TestCreatePackage_BindersChronological(t *testing.T) {
	c := sampleCase()
	c.Documents = append(c.Documents,
		casefile.Document{
			DocumentType: "utility_bill_02",
			UploadDate:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Source:       "client upload",
		},
	)

	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(c, sampleReport())
	require.NoError(t, err)

	binders := pkg.Contents.DocumentsByCategory
	require.Len(t, binders, 6)
	for _, cat := range []string{
		CategoryResidency, CategoryIncome, CategoryAssets,
		CategoryHardship, CategoryUtility, CategoryLegal,
	} {
		require.Contains(t, binders, cat)
	}

	// utility_bill_02 was uploaded earlier, so it files first even
	// though it came last in case order.
	require.Equal(t, []CategorizedDocument{
		{Type: "utility_bill_02", Date: "2024-01-02", Source: "client upload"},
		{Type: "utility_bill_01", Date: "2024-01-20", Source: "client upload"},
	}, binders[CategoryUtility])
	require.Empty(t, binders[CategoryIncome])
}

func TestCoverSheet(t *testing.T) {
	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(sampleCase(), sampleReport())
	require.NoError(t, err)

	cover := pkg.Contents.CoverSheet
	require.Contains(t, cover, "HPD SUCCESSION VERIFICATION PACKAGE")
	require.Contains(t, cover, "Case ID: case-042")
	require.Contains(t, cover, "Building BBL: 1-00123-0042")
	require.Contains(t, cover, "Submission Date: 2024-03-15")
	require.Contains(t, cover, "Compliance Score: 75.0%")
	require.Contains(t, cover, "Rules Checked: 1 violations identified")
	require.Contains(t, cover, "Total Documents: 3")
	require.Contains(t, cover, "It does NOT guarantee approval.")
	require.Contains(t, cover, "Prepared by: Docket Verification Service")
}

func TestCertificate(t *testing.T) {
	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(sampleCase(), sampleReport())
	require.NoError(t, err)

	cert := pkg.Contents.VerificationCert
	require.Contains(t, cert, "VERIFICATION CERTIFICATE")
	require.Contains(t, cert, "Verification Date: 2024-03-15T10:30:00Z")
	require.Contains(t, cert, "Compliance Score: 75.0%")
	require.Contains(t, cert, "Ruleset Version: hpd-2024")
	require.Contains(t, cert, "- AST-01: Foreign financial accounts >$10k must be declared")
	require.Contains(t, cert, "- INC-03: Gig economy income requires 1099-K + platform verification")
	require.Contains(t, cert, "- SUC-04: Succession notice within 90 days of vacancy")
	require.Contains(t, cert, "- UTI-01: Utility service gaps ≤60 days")
	require.Contains(t, cert, "It does NOT guarantee HPD approval")
	require.Contains(t, cert, "It does NOT predict individual auditor decisions")
}

func TestCreatePackage_CustomRulesAndName(t *testing.T) {
	rules := &catalog.RuleSet{
		Version: "custom-1",
		Rules: []catalog.ComplianceRule{
			{Code: "LOC-01", Description: "Local residency attestation", Citation: "Local Reg §1"},
		},
	}

	pkg, err := NewAssembler().
		WithClock(fixedClock()).
		WithRules(rules).
		WithPreparedBy("Harborview Legal Services").
		CreatePackage(sampleCase(), sampleReport())
	require.NoError(t, err)

	cert := pkg.Contents.VerificationCert
	require.Contains(t, cert, "- LOC-01: Local residency attestation")
	require.NotContains(t, cert, "AST-01")
	require.Contains(t, cert, "Prepared by: Harborview Legal Services")
	require.Contains(t, pkg.Contents.CoverSheet, "Prepared by: Harborview Legal Services")
}

func TestCreatePackage_EmptyCase(t *testing.T) {
	c := &casefile.SuccessionCase{CaseID: "case-9", BuildingID: "2-00001-0001"}

	pkg, err := NewAssembler().WithClock(fixedClock()).CreatePackage(c, sampleReport())
	require.NoError(t, err)
	require.Empty(t, pkg.Contents.TableOfContents)
	require.Len(t, pkg.Contents.DocumentsByCategory, 6)
	require.Contains(t, pkg.Contents.CoverSheet, "Total Documents: 0")
}

func TestCreatePackage_NilInputs(t *testing.T) {
	a := NewAssembler()

	_, err := a.CreatePackage(nil, sampleReport())
	require.Error(t, err)

	_, err = a.CreatePackage(sampleCase(), nil)
	require.Error(t, err)
}
