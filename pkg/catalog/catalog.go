// Package catalog holds the versioned rule and requirement tables the engine
// evaluates against: published compliance rules with citations, and the
// weighted document-requirement checklist.
//
// Catalogs are immutable after load. Multiple versions can coexist in one
// process; nothing in this package is a singleton.
package catalog

import (
	"fmt"
	"strings"
)

// EngineVersion is the rule-engine semantic version rule bundles pin
// compatibility against.
const EngineVersion = "1.0.0"

// Stable rule codes for the published reference rules.
const (
	RuleForeignAssets     = "AST-01"
	RuleGigIncome         = "INC-03"
	RuleNoticeTiming      = "SUC-04"
	RuleUtilityContinuity = "UTI-01"
)

// Document-pattern keys used by rule checks to recognize specific forms from
// free-text type labels.
const (
	PatternScheduleB       = "Schedule_B"
	PatternFBAR            = "FBAR_114"
	Pattern1099K           = "Form_1099K"
	PatternHospitalRecords = "Hospital_Records"
	PatternBankStatement   = "Bank_Statement"
)

// ComplianceRule is one published rule. Identity is the code, stable across
// catalog versions. IndicatorTerms are label substrings that trigger the
// rule's applicability check; Expression optionally carries a CEL predicate
// for jurisdiction-specific rules.
type ComplianceRule struct {
	Code           string   `json:"code" yaml:"code"`
	Description    string   `json:"description" yaml:"description"`
	RequiredDocs   []string `json:"required_docs,omitempty" yaml:"required_docs,omitempty"`
	ExceptionDocs  []string `json:"exception_docs,omitempty" yaml:"exception_docs,omitempty"`
	IndicatorTerms []string `json:"indicator_terms,omitempty" yaml:"indicator_terms,omitempty"`
	Threshold      float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Citation       string   `json:"public_citation" yaml:"public_citation"`
	Expression     string   `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// RuleSet is an ordered, immutable collection of rules plus the doc-pattern
// table rule checks consult. Order is check-execution order.
type RuleSet struct {
	Version     string              `json:"version"`
	Rules       []ComplianceRule    `json:"rules"`
	DocPatterns map[string][]string `json:"doc_patterns,omitempty"`
}

// Rule looks up a rule by code.
func (rs *RuleSet) Rule(code string) (ComplianceRule, bool) {
	for _, r := range rs.Rules {
		if r.Code == code {
			return r, true
		}
	}
	return ComplianceRule{}, false
}

// Citations returns every rule's citation in rule order. Reports carry the
// full list regardless of outcome.
func (rs *RuleSet) Citations() []string {
	out := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		out = append(out, r.Citation)
	}
	return out
}

// DocumentMatches reports whether a free-text type label names the form
// behind patternKey. Matching is lowercase substring, per the published
// pattern table.
func (rs *RuleSet) DocumentMatches(label, patternKey string) bool {
	patterns, ok := rs.DocPatterns[patternKey]
	if !ok {
		return false
	}
	lower := strings.ToLower(label)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Validate checks structural soundness at load time, not evaluation time.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return &ConfigurationError{Catalog: rs.Version, Detail: "rule set is empty"}
	}
	seen := make(map[string]bool, len(rs.Rules))
	for _, r := range rs.Rules {
		if r.Code == "" {
			return &ConfigurationError{Catalog: rs.Version, Detail: "rule with empty code"}
		}
		if seen[r.Code] {
			return &ConfigurationError{Catalog: rs.Version, Detail: fmt.Sprintf("duplicate rule code %s", r.Code)}
		}
		seen[r.Code] = true
	}
	return nil
}

// DefaultRuleSet returns the published reference rules.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version: "hpd-2024",
		Rules: []ComplianceRule{
			{
				Code:           RuleForeignAssets,
				Description:    "Foreign financial accounts >$10k must be declared",
				RequiredDocs:   []string{PatternScheduleB, PatternFBAR, PatternBankStatement},
				IndicatorTerms: []string{"foreign", "overseas", "international", "abroad"},
				Threshold:      10000,
				Citation:       "HPD Asset Declaration Guidelines §3.2",
			},
			{
				Code:           RuleGigIncome,
				Description:    "Gig economy income requires 1099-K + platform verification",
				RequiredDocs:   []string{Pattern1099K, "Platform_Screenshots", "Bank_Deposits"},
				IndicatorTerms: []string{"uber", "doordash", "lyft", "grubhub", "instacart", "taskrabbit"},
				Threshold:      600,
				Citation:       "HPD Income Verification Protocol §4.1",
			},
			{
				Code:          RuleNoticeTiming,
				Description:   "Succession notice within 90 days of vacancy",
				ExceptionDocs: []string{PatternHospitalRecords, "Discharge_Summary", "Physician_Letter"},
				Citation:      "HPD Succession Procedures §2.3",
			},
			{
				Code:          RuleUtilityContinuity,
				Description:   "Utility service gaps ≤60 days",
				ExceptionDocs: []string{PatternHospitalRecords, "Incarceration_Proof", "Travel_Documents"},
				Citation:      "HPD Residency Verification §5.4",
			},
		},
		DocPatterns: map[string][]string{
			PatternScheduleB:       {"schedule b", "form 1040 schedule b", "interest dividends"},
			PatternFBAR:            {"fbar", "fin114", "foreign bank account"},
			Pattern1099K:           {"1099-k", "payment card", "third party network"},
			PatternHospitalRecords: {"discharge summary", "medical records", "admission date"},
			PatternBankStatement:   {"bank statement", "account statement", "monthly statement"},
		},
	}
}

// ConfigurationError reports a catalog that cannot be used as loaded. It
// surfaces at setup time; evaluation never sees a bad catalog.
type ConfigurationError struct {
	Catalog string
	Detail  string
}

func (e *ConfigurationError) Error() string {
	if e.Catalog == "" {
		return fmt.Sprintf("catalog: %s", e.Detail)
	}
	return fmt.Sprintf("catalog %s: %s", e.Catalog, e.Detail)
}
