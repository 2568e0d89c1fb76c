package checks

import (
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// GigIncome enforces INC-03: gig-platform income requires a 1099-K and
// platform payment verification.
type GigIncome struct{}

func (c *GigIncome) Code() string { return catalog.RuleGigIncome }
func (c *GigIncome) Name() string { return "Gig Income Documentation" }

func (c *GigIncome) Run(cc *verify.CaseContext) (*verify.CheckResult, error) {
	has1099K := cc.AnyDocumentMatches(catalog.Pattern1099K)
	hasGig := cc.HasIndicator(c.Code(), signal.FlagGigIncome)

	if hasGig && !has1099K {
		return &verify.CheckResult{
			Code:             c.Code(),
			Compliant:        false,
			Reasons:          []string{verify.ReasonGigUndocumented},
			Issue:            "Gig income indicated but missing 1099-K",
			MissingDocuments: []string{"Form 1099-K", "Platform payment screenshots"},
			Remediation: "1. Request 1099-K from payment processor\n" +
				"2. Provide 3 months of app payment screenshots\n" +
				"3. Show matching bank deposits",
		}, nil
	}

	return verify.Compliant(c.Code()), nil
}
