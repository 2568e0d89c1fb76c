// Package checklist scores how complete a document package is against a
// weighted requirement catalog.
//
// The score measures document completeness only. It is not a probability of
// approval and the output says so, always.
package checklist

import (
	"math"
	"strings"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

// Item statuses in per-item results.
const (
	StatusPresent = "PRESENT"
	StatusMissing = "MISSING"
)

// LegalDisclaimer is contractual output carried on every breakdown.
// Downstream renderers must not omit or alter it.
const LegalDisclaimer = "This score reflects DOCUMENT COMPLETENESS only. It does not predict or guarantee HPD approval."

// PublicCitations returns the published sources the checklist derives from.
func PublicCitations() []string {
	return []string{"HPD Succession Procedures 2024", "NYC Housing Maintenance Code"}
}

// ItemResult is one checklist entry's outcome. Every catalog item appears
// exactly once, present or not.
type ItemResult struct {
	Item     string `json:"item"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Points   int    `json:"points"`
	RuleCode string `json:"rule"`
}

// CategoryScore is one category's subtotal.
type CategoryScore struct {
	Category string  `json:"category"`
	Earned   int     `json:"earned"`
	Possible int     `json:"possible"`
	Score    float64 `json:"score"`
}

// Breakdown is the completeness result.
type Breakdown struct {
	CompletenessScore float64         `json:"completeness_score"`
	CategoryBreakdown []ItemResult    `json:"category_breakdown"`
	CategoryScores    []CategoryScore `json:"category_scores"`
	MissingItems      []ItemResult    `json:"missing_items"`
	LegalDisclaimer   string          `json:"legal_disclaimer"`
	PublicCitations   []string        `json:"public_citations"`
}

// PresenceFunc decides whether one requirement item is satisfied. The policy
// boundary lives here: upstream signal quality varies, so callers pick the
// strategy.
type PresenceFunc func(item catalog.RequirementItem) bool

// LabelPresence satisfies an item when its canonical name appears as a
// substring of any supplied document label. Matching is case-insensitive and
// underscore-insensitive on both sides.
func LabelPresence(labels []string) PresenceFunc {
	normalized := make([]string, len(labels))
	for i, l := range labels {
		normalized[i] = normalizeLabel(l)
	}
	return func(item catalog.RequirementItem) bool {
		name := normalizeLabel(item.Name)
		for _, l := range normalized {
			if strings.Contains(l, name) {
				return true
			}
		}
		return false
	}
}

// SignalPresence satisfies an item when its canonical document type was
// detected in extracted text. Items without a canonical type mapping are
// invisible to this strategy; combine with LabelPresence via Any.
func SignalPresence(set signal.SignalSet) PresenceFunc {
	return func(item catalog.RequirementItem) bool {
		return item.DocType != "" && set.HasDocumentType(item.DocType)
	}
}

// Any satisfies an item when any of the given strategies does.
func Any(fns ...PresenceFunc) PresenceFunc {
	return func(item catalog.RequirementItem) bool {
		for _, fn := range fns {
			if fn(item) {
				return true
			}
		}
		return false
	}
}

func normalizeLabel(s string) string {
	return strings.ReplaceAll(signal.Fold(s), "_", " ")
}

// Scorer evaluates one immutable requirement catalog.
type Scorer struct {
	cat *catalog.RequirementCatalog
}

// NewScorer validates the catalog up front; an unusable catalog fails here,
// not at evaluation.
func NewScorer(cat *catalog.RequirementCatalog) (*Scorer, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cat: cat}, nil
}

// Score walks the catalog in declared order and produces a fresh Breakdown.
// Deterministic given catalog and presence function; no side effects.
func (s *Scorer) Score(present PresenceFunc) *Breakdown {
	out := &Breakdown{
		LegalDisclaimer: LegalDisclaimer,
		PublicCitations: PublicCitations(),
	}

	totalPossible := 0
	totalEarned := 0
	for _, cat := range s.cat.Categories {
		catPossible := 0
		catEarned := 0
		for _, item := range cat.Items {
			totalPossible += item.Points
			catPossible += item.Points

			result := ItemResult{
				Item:     item.Name,
				Category: cat.Name,
				RuleCode: item.RuleCode,
			}
			if present(item) {
				totalEarned += item.Points
				catEarned += item.Points
				result.Status = StatusPresent
				result.Points = item.Points
			} else {
				result.Status = StatusMissing
				result.Points = 0
				out.MissingItems = append(out.MissingItems, result)
			}
			out.CategoryBreakdown = append(out.CategoryBreakdown, result)
		}

		catScore := 0.0
		if catPossible > 0 {
			catScore = round1(float64(catEarned) / float64(catPossible) * 100)
		}
		out.CategoryScores = append(out.CategoryScores, CategoryScore{
			Category: cat.Name,
			Earned:   catEarned,
			Possible: catPossible,
			Score:    catScore,
		})
	}

	// Guard: a catalog with zero possible points scores zero, never NaN.
	if totalPossible > 0 {
		out.CompletenessScore = round1(float64(totalEarned) / float64(totalPossible) * 100)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
