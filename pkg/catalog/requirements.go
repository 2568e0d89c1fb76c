package catalog

// RequirementItem is one scored checklist entry. DocType optionally names
// the canonical signal document-type that satisfies the item when presence
// is derived from extracted text rather than file labels.
type RequirementItem struct {
	Name     string `json:"name" yaml:"name"`
	Points   int    `json:"points" yaml:"points"`
	RuleCode string `json:"rule" yaml:"rule"`
	DocType  string `json:"doc_type,omitempty" yaml:"doc_type,omitempty"`
}

// RequirementCategory groups items. Weight is descriptive metadata from the
// published checklist; it is not applied in the score formula.
type RequirementCategory struct {
	Name   string            `json:"name" yaml:"name"`
	Weight int               `json:"weight" yaml:"weight"`
	Items  []RequirementItem `json:"items" yaml:"items"`
}

// RequirementCatalog is the full weighted checklist for one jurisdiction.
// Category order and item order are declaration order and determine report
// grouping.
type RequirementCatalog struct {
	Jurisdiction string                `json:"jurisdiction" yaml:"jurisdiction"`
	Categories   []RequirementCategory `json:"categories" yaml:"categories"`
}

// TotalPossible sums every item's points across every category.
func (c *RequirementCatalog) TotalPossible() int {
	total := 0
	for _, cat := range c.Categories {
		for _, item := range cat.Items {
			total += item.Points
		}
	}
	return total
}

// Validate rejects empty or malformed catalogs at load time.
func (c *RequirementCatalog) Validate() error {
	if len(c.Categories) == 0 {
		return &ConfigurationError{Catalog: c.Jurisdiction, Detail: "no requirement categories"}
	}
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return &ConfigurationError{Catalog: c.Jurisdiction, Detail: "category with empty name"}
		}
		if len(cat.Items) == 0 {
			return &ConfigurationError{Catalog: c.Jurisdiction, Detail: "category " + cat.Name + " has no items"}
		}
		for _, item := range cat.Items {
			if item.Name == "" {
				return &ConfigurationError{Catalog: c.Jurisdiction, Detail: "item with empty name in " + cat.Name}
			}
			if item.Points <= 0 {
				return &ConfigurationError{Catalog: c.Jurisdiction, Detail: "item " + item.Name + " has non-positive points"}
			}
		}
	}
	return nil
}

// DefaultRequirements returns the published reference checklist. Points sum
// to 100.
func DefaultRequirements() *RequirementCatalog {
	return &RequirementCatalog{
		Jurisdiction: "nyc-hpd",
		Categories: []RequirementCategory{
			{
				Name:   "essential",
				Weight: 40,
				Items: []RequirementItem{
					{Name: "death_certificate", Points: 10, RuleCode: "SUC-01", DocType: "death_certificate"},
					{Name: "succession_notice", Points: 10, RuleCode: "SUC-02"},
					{Name: "lease_agreement", Points: 10, RuleCode: "RES-01", DocType: "lease"},
					{Name: "government_id", Points: 10, RuleCode: "RES-02"},
				},
			},
			{
				Name:   "financial",
				Weight: 30,
				Items: []RequirementItem{
					{Name: "tax_return_1040", Points: 7, RuleCode: "INC-01", DocType: "tax_return"},
					{Name: "w2_or_1099", Points: 8, RuleCode: "INC-02", DocType: "tax_return"},
					{Name: "bank_statements_12mo", Points: 8, RuleCode: "AST-01", DocType: "bank_statement"},
					{Name: "schedule_b_if_foreign", Points: 7, RuleCode: "AST-02", DocType: "tax_return"},
				},
			},
			{
				Name:   "residency",
				Weight: 30,
				Items: []RequirementItem{
					{Name: "utility_bills_24mo", Points: 10, RuleCode: "UTI-01", DocType: "utility_bill"},
					{Name: "mail_at_address", Points: 10, RuleCode: "RES-03"},
					{Name: "affidavit_of_residency", Points: 10, RuleCode: "RES-04"},
				},
			},
		},
	}
}
