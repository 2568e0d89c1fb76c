package checklist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(catalog.DefaultRequirements())
	require.NoError(t, err)
	return s
}

func TestScoreTypicalIntake(t *testing.T) {
	s := newScorer(t)

	labels := []string{
		"death_certificate.pdf",
		"lease_agreement.pdf",
		"bank_statements_2023.pdf", // does not contain the canonical 12mo name
	}
	b := s.Score(LabelPresence(labels))

	require.InDelta(t, 20.0, b.CompletenessScore, 0.001)
	require.Len(t, b.CategoryBreakdown, 11)
	require.Len(t, b.MissingItems, 9)
	require.Equal(t, LegalDisclaimer, b.LegalDisclaimer)
	require.Equal(t, []string{"HPD Succession Procedures 2024", "NYC Housing Maintenance Code"}, b.PublicCitations)
}

func TestScoreEveryItemListedOnce(t *testing.T) {
	s := newScorer(t)
	b := s.Score(func(catalog.RequirementItem) bool { return false })

	require.InDelta(t, 0.0, b.CompletenessScore, 0.001)
	require.Len(t, b.CategoryBreakdown, 11)
	require.Len(t, b.MissingItems, 11)

	// Declaration order is preserved: essential first, residency last.
	require.Equal(t, "death_certificate", b.CategoryBreakdown[0].Item)
	require.Equal(t, "essential", b.CategoryBreakdown[0].Category)
	require.Equal(t, "affidavit_of_residency", b.CategoryBreakdown[10].Item)

	for _, item := range b.CategoryBreakdown {
		require.Equal(t, StatusMissing, item.Status)
		require.Zero(t, item.Points)
	}
}

func TestScoreFullCompliance(t *testing.T) {
	s := newScorer(t)
	b := s.Score(func(catalog.RequirementItem) bool { return true })

	require.InDelta(t, 100.0, b.CompletenessScore, 0.001)
	require.Empty(t, b.MissingItems)
	for _, cs := range b.CategoryScores {
		require.InDelta(t, 100.0, cs.Score, 0.001)
	}
}

func TestScoreRoundsToOneDecimal(t *testing.T) {
	cat := &catalog.RequirementCatalog{
		Jurisdiction: "test",
		Categories: []catalog.RequirementCategory{{
			Name: "only",
			Items: []catalog.RequirementItem{
				{Name: "a", Points: 1, RuleCode: "T-01"},
				{Name: "b", Points: 1, RuleCode: "T-02"},
				{Name: "c", Points: 1, RuleCode: "T-03"},
			},
		}},
	}
	s, err := NewScorer(cat)
	require.NoError(t, err)

	b := s.Score(func(item catalog.RequirementItem) bool { return item.Name == "a" })
	// 1/3 → 33.333…% rounds to 33.3.
	require.Equal(t, 33.3, b.CompletenessScore)
}

func TestScoreCategorySubtotals(t *testing.T) {
	s := newScorer(t)
	// Everything in financial present, nothing else.
	b := s.Score(func(item catalog.RequirementItem) bool {
		return item.RuleCode == "INC-01" || item.RuleCode == "INC-02" ||
			item.RuleCode == "AST-01" || item.RuleCode == "AST-02"
	})

	require.Len(t, b.CategoryScores, 3)
	require.Equal(t, CategoryScore{Category: "essential", Earned: 0, Possible: 40, Score: 0}, b.CategoryScores[0])
	require.Equal(t, CategoryScore{Category: "financial", Earned: 30, Possible: 30, Score: 100}, b.CategoryScores[1])
	require.Equal(t, CategoryScore{Category: "residency", Earned: 0, Possible: 30, Score: 0}, b.CategoryScores[2])
	require.InDelta(t, 30.0, b.CompletenessScore, 0.001)
}

func TestLabelPresenceNormalization(t *testing.T) {
	item := catalog.RequirementItem{Name: "death_certificate", Points: 10}

	require.True(t, LabelPresence([]string{"Death Certificate (scan).pdf"})(item))
	require.True(t, LabelPresence([]string{"DEATH_CERTIFICATE.PDF"})(item))
	require.False(t, LabelPresence([]string{"certificate_of_occupancy.pdf"})(item))
	require.False(t, LabelPresence(nil)(item))
}

func TestSignalPresence(t *testing.T) {
	set := signal.SignalSet{DocumentTypes: []string{signal.DocTypeDeathCertificate, signal.DocTypeLease}}

	withType := catalog.RequirementItem{Name: "death_certificate", DocType: "death_certificate"}
	require.True(t, SignalPresence(set)(withType))

	// Items with no canonical type mapping are invisible to signal presence.
	unmapped := catalog.RequirementItem{Name: "government_id"}
	require.False(t, SignalPresence(set)(unmapped))
}

func TestAnyCombinesStrategies(t *testing.T) {
	set := signal.SignalSet{DocumentTypes: []string{signal.DocTypeUtilityBill}}
	item := catalog.RequirementItem{Name: "utility_bills_24mo", DocType: "utility_bill"}

	fn := Any(LabelPresence([]string{"random.pdf"}), SignalPresence(set))
	require.True(t, fn(item))

	fn = Any(LabelPresence([]string{"random.pdf"}), SignalPresence(signal.SignalSet{}))
	require.False(t, fn(item))
}

func TestNewScorerRejectsEmptyCatalog(t *testing.T) {
	_, err := NewScorer(&catalog.RequirementCatalog{Jurisdiction: "empty"})
	require.Error(t, err)
	var confErr *catalog.ConfigurationError
	require.ErrorAs(t, err, &confErr)
}
