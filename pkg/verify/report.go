package verify

import (
	"math"
	"time"
)

// LegalDisclaimer is fixed report content. Downstream renderers must
// carry it verbatim.
const LegalDisclaimer = "Verification against published HPD rules only. Not a guarantee of approval."

// RuleViolation is one non-compliant finding inside a report.
type RuleViolation struct {
	Rule             string   `json:"rule"`
	Issue            string   `json:"issue"`
	MissingDocuments []string `json:"missing_documents,omitempty"`
	Remediation      string   `json:"remediation,omitempty"`
	Citation         string   `json:"public_citation"`
}

// ComplianceReport is the top-level result of a verification run.
// It is constructed fresh on every evaluation and never mutated after.
type ComplianceReport struct {
	CaseID             string          `json:"case_id"`
	GeneratedAt        time.Time       `json:"verification_date"`
	EngineVersion      string          `json:"engine_version"`
	RulesetVersion     string          `json:"ruleset_version"`
	ComplianceScore    float64         `json:"compliance_score"`
	RuleViolations     []RuleViolation `json:"rule_violations"`
	MissingDocuments   []string        `json:"missing_documents"`
	RecommendedActions []string        `json:"recommended_actions"`
	CheckResults       []*CheckResult  `json:"check_results,omitempty"`
	LegalDisclaimer    string          `json:"legal_disclaimer"`
	PublicCitations    []string        `json:"public_citations"`
}

// Compliant reports whether the run found no violations.
func (r *ComplianceReport) Compliant() bool {
	return len(r.RuleViolations) == 0
}

// PassRateScore converts a violation count into the report score,
// rounded to one decimal. This is the rule pass rate; it is a distinct
// formula from the weighted checklist score and the two must never be
// conflated.
func PassRateScore(totalRules, violations int) float64 {
	if totalRules == 0 {
		return 0
	}
	return math.Round(float64(totalRules-violations)/float64(totalRules)*1000) / 10
}
