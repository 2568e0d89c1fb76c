package checks

import (
	"strings"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// minUtilityDocuments is the count of utility-typed records accepted as
// evidence of continuous service.
const minUtilityDocuments = 12

// UtilityContinuity enforces UTI-01 by counting utility-typed
// documents. The count stands in for month-by-month gap analysis over
// the 24-month window; callers that need real gap detection use
// timeline.GapExceedsThreshold on the extracted dates.
type UtilityContinuity struct{}

func (c *UtilityContinuity) Code() string { return catalog.RuleUtilityContinuity }
func (c *UtilityContinuity) Name() string { return "Utility Service Continuity" }

func (c *UtilityContinuity) Run(cc *verify.CaseContext) (*verify.CheckResult, error) {
	count := 0
	for _, d := range cc.Case.Documents {
		if strings.Contains(strings.ToLower(d.DocumentType), "utility") {
			count++
		}
	}

	if count < minUtilityDocuments {
		return &verify.CheckResult{
			Code:        c.Code(),
			Compliant:   false,
			Reasons:     []string{verify.ReasonUtilityInsufficient},
			Issue:       "Insufficient utility documentation",
			Remediation: "Provide 24 consecutive months of utility bills or explanation for gaps",
			Details:     map[string]any{"utility_documents": count},
		}, nil
	}

	return verify.Compliant(c.Code()), nil
}
