package checks

import (
	"fmt"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// noticeDeadlineDays is the filing window after vacancy.
const noticeDeadlineDays = 90

// NoticeTiming enforces SUC-04: the succession notice must be filed
// within 90 days of vacancy. Documented medical hardship fully excuses
// a late filing regardless of the overage.
type NoticeTiming struct{}

func (c *NoticeTiming) Code() string { return catalog.RuleNoticeTiming }
func (c *NoticeTiming) Name() string { return "Succession Notice Timing" }

func (c *NoticeTiming) Run(cc *verify.CaseContext) (*verify.CheckResult, error) {
	days, ok, err := cc.Case.DaysSinceVacancy()
	if err != nil {
		// Negative span is a contradiction in the case data, not a finding.
		return nil, err
	}

	if !ok {
		return &verify.CheckResult{
			Code:        c.Code(),
			Compliant:   false,
			Reasons:     []string{verify.ReasonNoticeDatesMissing},
			Issue:       "Missing vacancy or submission date",
			Remediation: "Provide certified death certificate or vacancy notice with dates",
		}, nil
	}

	if days <= noticeDeadlineDays {
		return verify.Compliant(c.Code()), nil
	}

	if cc.AnyDocumentMatches(catalog.PatternHospitalRecords) {
		return verify.Compliant(c.Code()), nil
	}

	over := days - noticeDeadlineDays
	return &verify.CheckResult{
		Code:             c.Code(),
		Compliant:        false,
		Reasons:          []string{verify.ReasonNoticeDeadlineExceeded},
		Issue:            fmt.Sprintf("Notice filed %d days after vacancy (>90 day limit)", days),
		MissingDocuments: []string{"Hospital discharge papers", "Physician hardship letter"},
		Remediation: fmt.Sprintf("1. Obtain hospital records covering %d days\n"+
			"2. Cite HPD Protocol §4.2 for medical hardship\n"+
			"3. Calculate excused days: Hospitalization = %d excused days", over, over),
		Details: map[string]any{"days_since_vacancy": days},
	}, nil
}
