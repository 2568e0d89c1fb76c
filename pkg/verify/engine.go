package verify

import (
	"fmt"
	"time"

	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

// Engine runs rule checks in registration order and assembles the
// compliance report.
type Engine struct {
	rules   *catalog.RuleSet
	checks  map[string]Check
	ordered []string // check execution order
	clock   func() time.Time
}

// NewEngine creates an engine over the given rule set. The set is
// validated up front; an empty or inconsistent set is a configuration
// error, not an evaluation-time surprise.
func NewEngine(rules *catalog.RuleSet) (*Engine, error) {
	if rules == nil {
		return nil, &catalog.ConfigurationError{Catalog: "rules", Detail: "nil rule set"}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		rules:   rules,
		checks:  make(map[string]Check),
		ordered: make([]string, 0),
		clock:   time.Now,
	}, nil
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// RegisterCheck adds a check to the engine. Checks run in registration
// order; re-registering a code replaces the check but keeps its slot.
func (e *Engine) RegisterCheck(c Check) {
	code := c.Code()
	if _, exists := e.checks[code]; !exists {
		e.ordered = append(e.ordered, code)
	}
	e.checks[code] = c
}

// Rules returns the rule set the engine was built over.
func (e *Engine) Rules() *catalog.RuleSet {
	return e.rules
}

// EvalOptions configures a verification run.
type EvalOptions struct {
	Case *casefile.SuccessionCase

	// Signals holds per-document extraction results in document order.
	// Optional; checks fall back to label matching without it.
	Signals []signal.SignalSet

	// CheckFilter restricts the run to the named rule codes, in engine
	// registration order. Empty means all registered checks.
	CheckFilter []string
}

// Evaluate runs every registered check against the case and returns the
// compliance report. Checks that find missing documents or absent dates
// report them as violations; Evaluate itself fails only on engine
// misconfiguration or contradictory case data.
func (e *Engine) Evaluate(opts *EvalOptions) (*ComplianceReport, error) {
	if opts == nil || opts.Case == nil {
		return nil, fmt.Errorf("verify: no case to evaluate")
	}

	ordered, err := e.resolveChecks(opts.CheckFilter)
	if err != nil {
		return nil, err
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("verify: no checks registered")
	}

	cc := &CaseContext{Case: opts.Case, Rules: e.rules, Signals: opts.Signals}

	report := &ComplianceReport{
		CaseID:             opts.Case.CaseID,
		GeneratedAt:        e.clock(),
		EngineVersion:      catalog.EngineVersion,
		RulesetVersion:     e.rules.Version,
		RuleViolations:     []RuleViolation{},
		MissingDocuments:   []string{},
		RecommendedActions: []string{},
		LegalDisclaimer:    LegalDisclaimer,
		PublicCitations:    e.rules.Citations(),
	}

	violations := 0
	results := make([]*CheckResult, 0, len(ordered))
	for _, code := range ordered {
		result, err := e.checks[code].Run(cc)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", code, err)
		}
		results = append(results, result)
		if result.Compliant {
			continue
		}

		violations++
		report.RuleViolations = append(report.RuleViolations, RuleViolation{
			Rule:             code,
			Issue:            result.Issue,
			MissingDocuments: result.MissingDocuments,
			Remediation:      result.Remediation,
			Citation:         e.citationFor(code),
		})
		report.MissingDocuments = append(report.MissingDocuments, result.MissingDocuments...)
		if result.Remediation != "" {
			report.RecommendedActions = append(report.RecommendedActions, result.Remediation)
		}
	}

	report.ComplianceScore = PassRateScore(len(ordered), violations)
	report.CheckResults = results
	return report, nil
}

// resolveChecks returns the check codes to run. A filter naming an
// unregistered code is a caller error, not a silent skip.
func (e *Engine) resolveChecks(filter []string) ([]string, error) {
	if len(filter) == 0 {
		return e.ordered, nil
	}

	requested := make(map[string]bool, len(filter))
	for _, code := range filter {
		if _, ok := e.checks[code]; !ok {
			return nil, fmt.Errorf("verify: check %s not registered", code)
		}
		requested[code] = true
	}

	result := make([]string, 0, len(requested))
	for _, code := range e.ordered {
		if requested[code] {
			result = append(result, code)
		}
	}
	return result, nil
}

func (e *Engine) citationFor(code string) string {
	if rule, ok := e.rules.Rule(code); ok {
		return rule.Citation
	}
	return ""
}
