package signal

import (
	"fmt"
	"regexp"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// FlagMatch records one pattern hit, retained for caller diagnostics
// (triage reports cite the exact pattern that fired).
type FlagMatch struct {
	Category string `json:"category"`
	Pattern  string `json:"pattern"`
}

// SignalSet is the outcome of extraction over one text, or the merge of
// several. FlagCategories and DocumentTypes are sets in first-seen order;
// DateStrings keeps every hit in pattern-table order, duplicates included.
type SignalSet struct {
	FlagCategories []string    `json:"flag_categories,omitempty"`
	FlagMatches    []FlagMatch `json:"flag_matches,omitempty"`
	DocumentTypes  []string    `json:"document_types,omitempty"`
	DateStrings    []string    `json:"date_strings,omitempty"`
}

// HasFlag reports whether the category was matched.
func (s SignalSet) HasFlag(category string) bool {
	for _, c := range s.FlagCategories {
		if c == category {
			return true
		}
	}
	return false
}

// HasDocumentType reports whether the canonical type was matched.
func (s SignalSet) HasDocumentType(label string) bool {
	for _, d := range s.DocumentTypes {
		if d == label {
			return true
		}
	}
	return false
}

// Merge combines per-document signal sets into a case aggregate, preserving
// input order and set semantics.
func Merge(sets ...SignalSet) SignalSet {
	var out SignalSet
	seenFlag := make(map[string]bool)
	seenType := make(map[string]bool)
	for _, s := range sets {
		for _, c := range s.FlagCategories {
			if !seenFlag[c] {
				seenFlag[c] = true
				out.FlagCategories = append(out.FlagCategories, c)
			}
		}
		out.FlagMatches = append(out.FlagMatches, s.FlagMatches...)
		for _, d := range s.DocumentTypes {
			if !seenType[d] {
				seenType[d] = true
				out.DocumentTypes = append(out.DocumentTypes, d)
			}
		}
		out.DateStrings = append(out.DateStrings, s.DateStrings...)
	}
	return out
}

// Fold lower-cases s with full Unicode case folding, the normalization every
// matcher in this package applies before pattern tests.
func Fold(s string) string {
	return cases.Fold().String(s)
}

type compiledGroup struct {
	label    string
	patterns []*regexp.Regexp
	sources  []string
}

// Extractor applies one immutable, pre-compiled pattern configuration.
// Safe for concurrent use.
type Extractor struct {
	flags    []compiledGroup
	docTypes []compiledGroup
	dates    []*regexp.Regexp
}

// NewExtractor compiles the tables. A pattern that does not compile is a
// configuration fault and fails construction.
func NewExtractor(t Tables) (*Extractor, error) {
	e := &Extractor{}
	var err error
	if e.flags, err = compileGroups(t.Flags); err != nil {
		return nil, err
	}
	if e.docTypes, err = compileGroups(t.DocumentTypes); err != nil {
		return nil, err
	}
	for _, p := range t.DatePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("signal: date pattern %q: %w", p, err)
		}
		e.dates = append(e.dates, re)
	}
	return e, nil
}

func compileGroups(groups []PatternGroup) ([]compiledGroup, error) {
	out := make([]compiledGroup, 0, len(groups))
	for _, g := range groups {
		cg := compiledGroup{label: g.Label}
		for _, p := range g.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("signal: group %s pattern %q: %w", g.Label, p, err)
			}
			cg.patterns = append(cg.patterns, re)
			cg.sources = append(cg.sources, p)
		}
		out = append(out, cg)
	}
	return out, nil
}

// Extract runs every configured pattern over the text. Empty text yields an
// empty SignalSet, never an error. Every flag pattern is tested (no
// short-circuit) so diagnostics name each hit.
func (e *Extractor) Extract(text string) SignalSet {
	var out SignalSet
	if text == "" {
		return out
	}
	folded := Fold(text)

	seenFlag := make(map[string]bool)
	for _, g := range e.flags {
		for i, re := range g.patterns {
			if re.MatchString(folded) {
				out.FlagMatches = append(out.FlagMatches, FlagMatch{Category: g.label, Pattern: g.sources[i]})
				if !seenFlag[g.label] {
					seenFlag[g.label] = true
					out.FlagCategories = append(out.FlagCategories, g.label)
				}
			}
		}
	}

	seenType := make(map[string]bool)
	for _, g := range e.docTypes {
		for _, re := range g.patterns {
			if re.MatchString(folded) && !seenType[g.label] {
				seenType[g.label] = true
				out.DocumentTypes = append(out.DocumentTypes, g.label)
			}
		}
	}

	for _, re := range e.dates {
		out.DateStrings = append(out.DateStrings, re.FindAllString(folded, -1)...)
	}
	return out
}

// TablesFromYAML parses an external pattern-table file. Missing sections fall
// back to the published defaults, so a deployment can override one table
// without restating the others.
func TablesFromYAML(data []byte) (Tables, error) {
	t := Tables{}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("signal: parse tables: %w", err)
	}
	def := DefaultTables()
	if len(t.Flags) == 0 {
		t.Flags = def.Flags
	}
	if len(t.DocumentTypes) == 0 {
		t.DocumentTypes = def.DocumentTypes
	}
	if len(t.DatePatterns) == 0 {
		t.DatePatterns = def.DatePatterns
	}
	return t, nil
}
