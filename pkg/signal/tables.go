// Package signal applies configurable pattern tables to extracted document
// text and reports which risk-flag categories, canonical document types, and
// candidate date strings the text contains.
//
// Pattern tables are data, not code: categories are added by editing a table,
// never by touching evaluator logic.
package signal

// Flag category labels. Stable identifiers — reports and audit entries key
// off them.
const (
	FlagForeignAccount  = "foreign_account"
	FlagGigIncome       = "gig_income"
	FlagMedicalHardship = "medical_hardship"
)

// Canonical document-type labels recognized by the default tables.
const (
	DocTypeDeathCertificate = "death_certificate"
	DocTypeTaxReturn        = "tax_return"
	DocTypeBankStatement    = "bank_statement"
	DocTypeUtilityBill      = "utility_bill"
	DocTypeLease            = "lease"
	DocTypePayStub          = "pay_stub"
)

// PatternGroup is one labeled set of regular expressions. Matching is
// case-insensitive.
type PatternGroup struct {
	Label    string   `json:"label" yaml:"label"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// Tables is the complete pattern configuration for an Extractor.
type Tables struct {
	Flags         []PatternGroup `json:"flags" yaml:"flags"`
	DocumentTypes []PatternGroup `json:"document_types" yaml:"document_types"`
	DatePatterns  []string       `json:"date_patterns" yaml:"date_patterns"`
}

// DefaultTables returns the published pattern tables. Callers get a fresh
// value each time; compiled extractors never share table state.
func DefaultTables() Tables {
	return Tables{
		Flags: []PatternGroup{
			{Label: FlagForeignAccount, Patterns: []string{
				`swiss.*bank`, `foreign.*account`, `overseas.*account`,
				`CHF`, `EUR.*account`, `international.*bank`,
				`wire.*transfer.*international`, `wise\.com`, `revolut`,
				`金額`, `€`, `£`, `¥`,
			}},
			{Label: FlagGigIncome, Patterns: []string{
				`doordash`, `uber`, `lyft`, `grubhub`, `instacart`,
				`taskrabbit`, `1099-k`, `gig.*economy`, `platform.*income`,
				`delivery.*driver`, `ride.*share`, `food.*delivery`,
			}},
			{Label: FlagMedicalHardship, Patterns: []string{
				`hospital`, `discharge`, `emergency.*room`, `ER`,
				`surgery`, `ICU`, `住院`, `ingreso`,
				`medical.*records`, `physician`, `doctor.*note`,
				`inpatient`, `outpatient`, `clinic`,
			}},
		},
		DocumentTypes: []PatternGroup{
			{Label: DocTypeDeathCertificate, Patterns: []string{
				`death.*certificate`, `certificado.*defunción`, `死亡證明`,
			}},
			{Label: DocTypeTaxReturn, Patterns: []string{
				`tax.*return`, `1040`, `schedule.*b`, `w-2`, `w2`,
			}},
			{Label: DocTypeBankStatement, Patterns: []string{
				`bank.*statement`, `account.*statement`, `月結單`,
			}},
			{Label: DocTypeUtilityBill, Patterns: []string{
				`con.*ed`, `national.*grid`, `electric.*bill`, `gas.*bill`, `water.*bill`,
			}},
			{Label: DocTypeLease, Patterns: []string{
				`lease`, `租約`, `contrato.*arrendamiento`,
			}},
			{Label: DocTypePayStub, Patterns: []string{
				`pay.*stub`, `paycheck`, `earnings.*statement`,
			}},
		},
		DatePatterns: []string{
			`\d{1,2}/\d{1,2}/\d{4}`,
			`\d{4}-\d{1,2}-\d{1,2}`,
			`\d{1,2}-\d{1,2}-\d{4}`,
			`(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{1,2},? \d{4}`,
			`\d{1,2} (?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{4}`,
		},
	}
}
