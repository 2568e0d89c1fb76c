package verify

// Reason codes are stable identifiers attached to check results.
// They MUST NOT change between releases; audit tooling keys on them.
const (
	// --- Asset declaration ---
	ReasonForeignUndeclared = "FOREIGN_ACCOUNTS_UNDECLARED" // AST-01: indicator present, forms missing

	// --- Income ---
	ReasonGigUndocumented = "GIG_INCOME_UNDOCUMENTED" // INC-03: platform indicator, no 1099-K

	// --- Notice timing ---
	ReasonNoticeDatesMissing     = "NOTICE_DATES_MISSING"
	ReasonNoticeDeadlineExceeded = "NOTICE_DEADLINE_EXCEEDED" // past 90 days, no hardship records

	// --- Residency ---
	ReasonUtilityInsufficient = "UTILITY_RECORDS_INSUFFICIENT"

	// --- Bundle rules ---
	ReasonExpressionNotSatisfied = "EXPRESSION_NOT_SATISFIED"
)

// AllReasonCodes returns the full set of normative reason codes.
func AllReasonCodes() []string {
	return []string{
		ReasonForeignUndeclared,
		ReasonGigUndocumented,
		ReasonNoticeDatesMissing,
		ReasonNoticeDeadlineExceeded,
		ReasonUtilityInsufficient,
		ReasonExpressionNotSatisfied,
	}
}
