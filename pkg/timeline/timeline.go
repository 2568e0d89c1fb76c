// Package timeline normalizes the heterogeneous date strings pulled out of
// document text and answers the gap/span questions the timing rules ask.
//
// Parsing is deliberately forgiving: a string that matches no accepted
// template is dropped, never an error. Absent dates are absent signal.
package timeline

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Accepted templates, tried in fixed precedence order; first success wins.
// The numeric family is matched against a digits-and-separators projection
// of the input, the month-name family against a letter-preserving one.
var (
	numericLayouts = []string{
		"1/2/2006", // month/day/year
		"2006-1-2", // year-month-day
		"2-1-2006", // day-month-year
		"1-2-2006", // month-day-year
	}
	nameLayouts = []string{
		"January 2, 2006",
		"2 January 2006",
	}
)

// ParseOne parses a single date string against the accepted templates.
func ParseOne(raw string) (time.Time, bool) {
	numeric := cleanNumeric(raw)
	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, numeric); err == nil {
			return t, true
		}
	}
	named := cleanName(raw)
	for _, layout := range nameLayouts {
		if t, err := time.Parse(layout, named); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse parses a sequence of date strings, silently dropping anything that
// matches no template. Input order is preserved.
func Parse(raw []string) []time.Time {
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		if t, ok := ParseOne(s); ok {
			dates = append(dates, t)
		}
	}
	return dates
}

// Span summarizes the calendar range covered by a set of dates.
type Span struct {
	Earliest  time.Time `json:"earliest"`
	Latest    time.Time `json:"latest"`
	TotalDays int       `json:"total_days"`
}

// SpanOf computes the earliest/latest bounds and whole-day span. It needs at
// least two dates; ok is false otherwise.
func SpanOf(dates []time.Time) (Span, bool) {
	if len(dates) < 2 {
		return Span{}, false
	}
	sorted := sortedCopy(dates)
	earliest, latest := sorted[0], sorted[len(sorted)-1]
	return Span{
		Earliest:  earliest,
		Latest:    latest,
		TotalDays: wholeDays(earliest, latest),
	}, true
}

// GapExceedsThreshold reports whether any gap between consecutive dates
// (after sorting ascending) exceeds thresholdDays. Fewer than two dates can
// have no gap.
func GapExceedsThreshold(dates []time.Time, thresholdDays int) bool {
	if len(dates) < 2 {
		return false
	}
	sorted := sortedCopy(dates)
	for i := 1; i < len(sorted); i++ {
		if wholeDays(sorted[i-1], sorted[i]) > thresholdDays {
			return true
		}
	}
	return false
}

func sortedCopy(dates []time.Time) []time.Time {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// cleanNumeric blanks every character that is not a digit, '/', '-', or '.'
// and trims the result, stripping OCR noise around numeric dates.
func cleanNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '/', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// cleanName keeps letters, digits, commas and spaces, collapsing runs of
// whitespace, so "March 15, 2024." still matches its template.
func cleanName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ',':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
