//go:build property
// +build property

package checklist

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rowhouse-labs/docket/pkg/catalog"
)

func TestScoreBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("score is within [0,100] and 100 iff everything present", prop.ForAll(
		func(points []int, mask uint32) bool {
			cat := catalogFromPoints(points)
			s, err := NewScorer(cat)
			if err != nil {
				return false
			}

			b := s.Score(func(item catalog.RequirementItem) bool {
				var idx int
				fmt.Sscanf(item.Name, "item_%d", &idx)
				return mask&(1<<uint(idx%32)) != 0
			})

			if b.CompletenessScore < 0 || b.CompletenessScore > 100 {
				return false
			}
			allPresent := len(b.MissingItems) == 0
			return (b.CompletenessScore == 100) == allPresent
		},
		gen.SliceOfN(8, gen.IntRange(1, 25)),
		gen.UInt32(),
	))

	properties.Property("earned points never exceed possible", prop.ForAll(
		func(points []int, mask uint32) bool {
			cat := catalogFromPoints(points)
			s, err := NewScorer(cat)
			if err != nil {
				return false
			}
			b := s.Score(func(item catalog.RequirementItem) bool {
				var idx int
				fmt.Sscanf(item.Name, "item_%d", &idx)
				return mask&(1<<uint(idx%32)) != 0
			})
			for _, cs := range b.CategoryScores {
				if cs.Earned > cs.Possible {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.IntRange(1, 25)),
		gen.UInt32(),
	))

	properties.TestingRun(t)
}

func catalogFromPoints(points []int) *catalog.RequirementCatalog {
	items := make([]catalog.RequirementItem, len(points))
	for i, p := range points {
		items[i] = catalog.RequirementItem{
			Name:     fmt.Sprintf("item_%d", i),
			Points:   p,
			RuleCode: fmt.Sprintf("GEN-%02d", i),
		}
	}
	return &catalog.RequirementCatalog{
		Jurisdiction: "generated",
		Categories:   []catalog.RequirementCategory{{Name: "generated", Weight: 100, Items: items}},
	}
}
