package checks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

func TestEvaluator_Evaluate(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	facts := map[string]any{"document_count": 5}
	ok, err := ev.Evaluate("case.document_count >= 3", facts)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ev.Evaluate("case.document_count >= 3", map[string]any{"document_count": 2})
	require.NoError(t, err)
	require.False(t, ok, "cached program must still track its input")
}

func TestEvaluator_CompileError(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	_, err = ev.Evaluate("case..??", map[string]any{})
	require.ErrorContains(t, err, "cel compile")
}

func TestEvaluator_NonBoolResult(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	_, err = ev.Evaluate("case.document_count + 1", map[string]any{"document_count": 1})
	require.ErrorContains(t, err, "not bool")
}

func TestEvaluator_MembershipGuard(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	expr := `"days_since_vacancy" in case ? case.days_since_vacancy <= 90 : false`

	ok, err := ev.Evaluate(expr, map[string]any{"days_since_vacancy": 45})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ev.Evaluate(expr, map[string]any{})
	require.NoError(t, err)
	require.False(t, ok, "absent key must not error when guarded")
}

func TestNewExpression_RequiresExpression(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	_, err = NewExpression(catalog.ComplianceRule{Code: "LOC-02"}, ev)
	var cfg *catalog.ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestExpression_FactsCarrySignalsAndDates(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	chk, err := NewExpression(catalog.ComplianceRule{
		Code:        "LOC-03",
		Description: "Foreign flags require review within the filing window",
		Expression:  `case.flags.exists(f, f == "foreign_account") && case.days_since_vacancy <= 90`,
	}, ev)
	require.NoError(t, err)

	cc := ctxFor("bank_statement_jan")
	cc.Case.VacancyDate = dateOf(2024, time.March, 1)
	cc.Case.SubmissionDate = dateOf(2024, time.March, 21)
	cc.Signals = []signal.SignalSet{
		{FlagCategories: []string{signal.FlagForeignAccount}},
	}

	result, err := chk.Run(cc)
	require.NoError(t, err)
	require.True(t, result.Compliant)
}

func TestExpression_ContradictoryDatesSurface(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	chk, err := NewExpression(catalog.ComplianceRule{
		Code:       "LOC-04",
		Expression: "case.document_count >= 1",
	}, ev)
	require.NoError(t, err)

	cc := ctxFor("lease_agreement")
	cc.Case.VacancyDate = dateOf(2024, time.June, 1)
	cc.Case.SubmissionDate = dateOf(2024, time.January, 1)

	_, err = chk.Run(cc)
	require.Error(t, err, "facts construction must surface contradictory dates")
}
