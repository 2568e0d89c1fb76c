package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/checklist"
	"github.com/rowhouse-labs/docket/pkg/ingest"
	"github.com/rowhouse-labs/docket/pkg/signal"
)

// runScoreCmd implements `docket score <case.json>` — document
// completeness against the jurisdiction requirement table.
//
// Exit codes:
//
//	0 = scored
//	2 = runtime error
func runScoreCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("score", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		jurisdiction string
		scanPath     string
		jsonOutput   bool
	)

	cmd.StringVar(&jurisdiction, "jurisdiction", "", "Requirement profile to score against (default: DOCKET_JURISDICTION)")
	cmd.StringVar(&scanPath, "scan", "", "Scan JSON whose signals supplement label matching")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the breakdown as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	casePath := cmd.Arg(0)
	if casePath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket score [flags] <case.json>")
		cmd.Usage()
		return 2
	}

	ctx := context.Background()
	svc, err := openServices(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	c, err := loadCase(casePath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cat, err := loadRequirements(svc.cfg, jurisdiction)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	scorer, err := checklist.NewScorer(cat)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	present := checklist.LabelPresence(c.DocumentTypes())
	if scanPath != "" {
		scan, err := loadScan(scanPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		merged := signal.Merge(scan.SignalSets()...)
		present = checklist.Any(present, checklist.SignalPresence(merged))
	}

	breakdown := scorer.Score(present)
	svc.recordAudit(ctx, audit.EventVerification, c.CaseID, "scored document completeness", map[string]interface{}{
		"jurisdiction":       cat.Jurisdiction,
		"completeness_score": breakdown.CompletenessScore,
		"missing_items":      len(breakdown.MissingItems),
	})

	if jsonOutput {
		data, err := json.MarshalIndent(breakdown, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	printBreakdown(stdout, c.CaseID, breakdown)
	return 0
}

func loadScan(path string) (*ingest.CaseScan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scan file: %w", err)
	}
	var scan ingest.CaseScan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, fmt.Errorf("parse scan file: %w", err)
	}
	return &scan, nil
}

func printBreakdown(w io.Writer, caseID string, b *checklist.Breakdown) {
	_, _ = fmt.Fprintf(w, "\n%sDocument Completeness — %s%s\n", ColorBold+ColorBlue, caseID, ColorReset)
	_, _ = fmt.Fprintln(w, "──────────────────────")
	_, _ = fmt.Fprintf(w, "Score: %s%.1f/100%s\n\n", scoreColor(b.CompletenessScore)+ColorBold, b.CompletenessScore, ColorReset)

	for _, cs := range b.CategoryScores {
		_, _ = fmt.Fprintf(w, "  %-26s %3d/%d\n", cs.Category, cs.Earned, cs.Possible)
	}

	if len(b.MissingItems) > 0 {
		_, _ = fmt.Fprintf(w, "\n%sMISSING:%s\n", ColorBold, ColorReset)
		for _, item := range b.MissingItems {
			_, _ = fmt.Fprintf(w, "  ❌ %s (%s)\n", item.Item, item.RuleCode)
		}
	} else {
		_, _ = fmt.Fprintf(w, "\n✅ Every requirement item is present.\n")
	}

	_, _ = fmt.Fprintf(w, "\n%s%s%s\n", ColorGray, b.LegalDisclaimer, ColorReset)
	for _, cite := range b.PublicCitations {
		_, _ = fmt.Fprintf(w, "%s  • %s%s\n", ColorGray, cite, ColorReset)
	}
}

func scoreColor(score float64) string {
	switch {
	case score >= 90:
		return ColorGreen
	case score >= 60:
		return ColorYellow
	default:
		return ColorRed
	}
}
