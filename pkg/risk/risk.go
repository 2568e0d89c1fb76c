// Package risk ranks cases for internal staff triage.
//
// Scores and recommendations are working aids for reviewers deciding
// what to chase next. They are never client output and never part of a
// submission package.
package risk

import "github.com/rowhouse-labs/docket/pkg/signal"

// maxScore caps the triage score.
const maxScore = 10

// maxRecommendations caps the next-step list.
const maxRecommendations = 3

// criticalTypes are the document types whose absence weighs double.
var criticalTypes = []string{
	signal.DocTypeDeathCertificate,
	signal.DocTypeLease,
}

// Assessment bundles the triage outputs for one case.
type Assessment struct {
	Score           int      `json:"risk_score"`
	Recommendations []string `json:"recommendations"`
}

// Assess computes the score and recommendations together.
func Assess(signals []signal.SignalSet, detectedTypes []string, timelineIssue bool) Assessment {
	return Assessment{
		Score:           Aggregate(signals, detectedTypes, timelineIssue),
		Recommendations: Recommend(signals, detectedTypes, timelineIssue),
	}
}

// Aggregate computes the triage score in [0, 10]. Higher means more
// urgent attention. Red-flag matches count at most 5; each absent
// critical document type adds 2; a timeline issue adds 2. Integer
// arithmetic only, deterministic.
func Aggregate(signals []signal.SignalSet, detectedTypes []string, timelineIssue bool) int {
	score := redFlagCount(signals)
	if score > 5 {
		score = 5
	}

	seen := typeSet(detectedTypes)
	for _, dt := range criticalTypes {
		if !seen[dt] {
			score += 2
		}
	}

	if timelineIssue {
		score += 2
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// Recommend returns the top next steps, highest priority first: flag
// follow-ups, then missing critical documents, then timeline mapping.
func Recommend(signals []signal.SignalSet, detectedTypes []string, timelineIssue bool) []string {
	recs := make([]string, 0, maxRecommendations)
	merged := signal.Merge(signals...)

	if merged.HasFlag(signal.FlagForeignAccount) {
		recs = append(recs, "FOCUS: Check for Schedule B and FBAR Form 114 for foreign accounts")
	}
	if merged.HasFlag(signal.FlagGigIncome) {
		recs = append(recs, "FOCUS: Look for 1099-K and app screenshots for gig income")
	}
	if merged.HasFlag(signal.FlagMedicalHardship) {
		recs = append(recs, "FOCUS: Verify hospital records cover exact dates needed")
	}

	seen := typeSet(detectedTypes)
	if !seen[signal.DocTypeDeathCertificate] {
		recs = append(recs, "URGENT: Find death certificate or official vacancy notice")
	}
	if !seen[signal.DocTypeTaxReturn] {
		recs = append(recs, "CHECK: Income documentation may be incomplete")
	}

	if timelineIssue {
		recs = append(recs, "TIMELINE: Map all dates to identify gaps >60 days")
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func redFlagCount(signals []signal.SignalSet) int {
	n := 0
	for _, s := range signals {
		n += len(s.FlagMatches)
	}
	return n
}

func typeSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}
