// Package checks provides the built-in rule check implementations and a
// default registry.
package checks

import (
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// DefaultEngine returns an engine pre-loaded with the built-in checks
// in canonical order (AST-01, INC-03, SUC-04, UTI-01) over the
// published rule set. This is the standard way to create an engine for
// CLI usage.
func DefaultEngine() (*verify.Engine, error) {
	return ForRuleSet(catalog.DefaultRuleSet())
}

// ForRuleSet builds an engine over the given rule set, registering each
// built-in check whose rule code the set defines.
func ForRuleSet(rules *catalog.RuleSet) (*verify.Engine, error) {
	e, err := verify.NewEngine(rules)
	if err != nil {
		return nil, err
	}
	registerBuiltins(e, rules)
	return e, nil
}

// FromBundle builds an engine from a loaded rule bundle: built-in
// checks for the codes the bundle defines, plus one expression check
// per rule that carries an expression. An expression on a built-in code
// replaces that check while keeping its execution slot.
func FromBundle(b *catalog.RuleBundle) (*verify.Engine, error) {
	rules := b.RuleSet()
	e, err := verify.NewEngine(rules)
	if err != nil {
		return nil, err
	}
	registerBuiltins(e, rules)

	ev, err := NewEvaluator()
	if err != nil {
		return nil, err
	}
	for _, rule := range rules.Rules {
		if rule.Expression == "" {
			continue
		}
		chk, err := NewExpression(rule, ev)
		if err != nil {
			return nil, err
		}
		e.RegisterCheck(chk)
	}
	return e, nil
}

func registerBuiltins(e *verify.Engine, rules *catalog.RuleSet) {
	builtins := []verify.Check{
		&ForeignAssets{},
		&GigIncome{},
		&NoticeTiming{},
		&UtilityContinuity{},
	}
	for _, c := range builtins {
		if _, ok := rules.Rule(c.Code()); ok {
			e.RegisterCheck(c)
		}
	}
}
