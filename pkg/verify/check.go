// Package verify implements the rule compliance engine.
//
// It runs registered checks deterministically against a succession case
// and assembles a ComplianceReport with violations, missing documents,
// and remediation steps. Missing documents and absent dates are
// findings, not errors; only contradictions in the case data itself
// surface as typed errors.
package verify

import (
	"strings"

	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

// Check is the interface every rule check must implement.
// Each check produces a CheckResult containing compliance, reason
// codes, missing documents, and remediation text.
type Check interface {
	// Code returns the stable rule code (e.g. "AST-01").
	Code() string

	// Name returns a human-readable name.
	Name() string

	// Run executes the check against the given CaseContext.
	// It MUST NOT panic; normal missing-data conditions are expressed
	// via CheckResult. An error is returned only when the case data
	// itself is contradictory (see casefile.DataQualityError).
	Run(cc *CaseContext) (*CheckResult, error)
}

// CheckResult is the per-rule output contract.
type CheckResult struct {
	Code             string         `json:"code"`
	Compliant        bool           `json:"compliant"`
	Reasons          []string       `json:"reasons,omitempty"`
	Issue            string         `json:"issue,omitempty"`
	MissingDocuments []string       `json:"missing_documents,omitempty"`
	Remediation      string         `json:"remediation,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
}

// Compliant returns a passing result for the given rule code.
func Compliant(code string) *CheckResult {
	return &CheckResult{Code: code, Compliant: true}
}

// CaseContext provides the inputs for check execution.
type CaseContext struct {
	Case  *casefile.SuccessionCase
	Rules *catalog.RuleSet

	// Signals holds per-document extraction results in the same order
	// as Case.Documents. May be nil when no text extraction ran.
	Signals []signal.SignalSet
}

// AnyDocumentMatches reports whether any document label in the case
// matches the given catalog pattern key.
func (cc *CaseContext) AnyDocumentMatches(patternKey string) bool {
	for _, d := range cc.Case.Documents {
		if cc.Rules.DocumentMatches(d.DocumentType, patternKey) {
			return true
		}
	}
	return false
}

// HasIndicator reports whether the case shows an indicator for the
// rule: one of the rule's indicator terms inside a document label, or
// the given flag category among the extracted signals.
func (cc *CaseContext) HasIndicator(ruleCode, flagCategory string) bool {
	if rule, ok := cc.Rules.Rule(ruleCode); ok {
		for _, d := range cc.Case.Documents {
			label := signal.Fold(d.DocumentType)
			for _, term := range rule.IndicatorTerms {
				if term != "" && strings.Contains(label, signal.Fold(term)) {
					return true
				}
			}
		}
	}
	for _, s := range cc.Signals {
		if s.HasFlag(flagCategory) {
			return true
		}
	}
	return false
}

// Facts flattens the case into the activation map used by expression
// checks. days_since_vacancy is present only when both dates are known;
// expressions should guard with `"days_since_vacancy" in case`.
func (cc *CaseContext) Facts() (map[string]any, error) {
	facts := map[string]any{
		"case_id":        cc.Case.CaseID,
		"building_id":    cc.Case.BuildingID,
		"document_count": len(cc.Case.Documents),
		"document_types": cc.Case.DocumentTypes(),
		"flags":          signal.Merge(cc.Signals...).FlagCategories,
	}
	days, ok, err := cc.Case.DaysSinceVacancy()
	if err != nil {
		return nil, err
	}
	if ok {
		facts["days_since_vacancy"] = days
	}
	return facts, nil
}
