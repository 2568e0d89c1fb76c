package checks

import (
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// ForeignAssets enforces AST-01: foreign financial accounts above the
// reporting threshold must be declared with Schedule B and FBAR.
type ForeignAssets struct{}

func (c *ForeignAssets) Code() string { return catalog.RuleForeignAssets }
func (c *ForeignAssets) Name() string { return "Foreign Asset Declaration" }

func (c *ForeignAssets) Run(cc *verify.CaseContext) (*verify.CheckResult, error) {
	hasScheduleB := cc.AnyDocumentMatches(catalog.PatternScheduleB)
	hasFBAR := cc.AnyDocumentMatches(catalog.PatternFBAR)
	hasForeign := cc.HasIndicator(c.Code(), signal.FlagForeignAccount)

	if hasForeign && !(hasScheduleB && hasFBAR) {
		return &verify.CheckResult{
			Code:             c.Code(),
			Compliant:        false,
			Reasons:          []string{verify.ReasonForeignUndeclared},
			Issue:            "Foreign accounts indicated but missing Schedule B and/or FBAR",
			MissingDocuments: []string{"Schedule B", "FBAR Form 114"},
			Remediation: "1. File amended tax return with Schedule B\n" +
				"2. Submit FBAR (FinCEN Form 114)\n" +
				"3. Include notarized translations if applicable",
			Details: map[string]any{
				"has_schedule_b": hasScheduleB,
				"has_fbar":       hasFBAR,
			},
		}, nil
	}

	return verify.Compliant(c.Code()), nil
}
