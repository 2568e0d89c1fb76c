package checks

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// Evaluator compiles and caches CEL programs for expression checks.
// Safe for concurrent use.
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates an evaluator exposing the case facts as a single
// "case" map variable.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("case", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Evaluate runs the expression against the case facts and returns its
// boolean result. Compiled programs are cached per expression.
func (ev *Evaluator) Evaluate(expression string, facts map[string]any) (bool, error) {
	ev.mu.RLock()
	prg, hit := ev.cache[expression]
	ev.mu.RUnlock()

	if !hit {
		ev.mu.Lock()
		if prg, hit = ev.cache[expression]; !hit {
			ast, issues := ev.env.Compile(expression)
			if issues != nil && issues.Err() != nil {
				ev.mu.Unlock()
				return false, fmt.Errorf("cel compile: %w", issues.Err())
			}
			p, err := ev.env.Program(ast)
			if err != nil {
				ev.mu.Unlock()
				return false, fmt.Errorf("cel program: %w", err)
			}
			ev.cache[expression] = p
			prg = p
		}
		ev.mu.Unlock()
	}

	out, _, err := prg.Eval(map[string]any{"case": facts})
	if err != nil {
		return false, fmt.Errorf("cel eval: %w", err)
	}
	satisfied, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression result is %T, not bool", out.Value())
	}
	return satisfied, nil
}

// Expression is a bundle-defined check: the rule passes iff its CEL
// expression evaluates true against the case facts.
type Expression struct {
	rule catalog.ComplianceRule
	ev   *Evaluator
}

// NewExpression builds an expression check for a bundle rule.
func NewExpression(rule catalog.ComplianceRule, ev *Evaluator) (*Expression, error) {
	if rule.Expression == "" {
		return nil, &catalog.ConfigurationError{
			Catalog: rule.Code,
			Detail:  "rule has no expression",
		}
	}
	return &Expression{rule: rule, ev: ev}, nil
}

func (c *Expression) Code() string { return c.rule.Code }
func (c *Expression) Name() string { return c.rule.Description }

func (c *Expression) Run(cc *verify.CaseContext) (*verify.CheckResult, error) {
	facts, err := cc.Facts()
	if err != nil {
		return nil, err
	}

	satisfied, err := c.ev.Evaluate(c.rule.Expression, facts)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", c.rule.Code, err)
	}
	if satisfied {
		return verify.Compliant(c.Code()), nil
	}

	return &verify.CheckResult{
		Code:             c.Code(),
		Compliant:        false,
		Reasons:          []string{verify.ReasonExpressionNotSatisfied},
		Issue:            c.rule.Description,
		MissingDocuments: c.rule.RequiredDocs,
		Details:          map[string]any{"expression": c.rule.Expression},
	}, nil
}
