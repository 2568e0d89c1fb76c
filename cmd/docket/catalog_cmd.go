package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/config"
)

// runCatalogCmd implements `docket catalog` — inspection of the rule
// and requirement tables the engine evaluates against.
//
//	docket catalog rules [--bundle file]     list compliance rules
//	docket catalog requirements [--jurisdiction code]
//	docket catalog validate <bundle.json>    validate a rule bundle
func runCatalogCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: docket catalog <rules|requirements|validate> [flags]")
		return 2
	}

	switch args[0] {
	case "rules":
		return catalogRules(args[1:], stdout, stderr)
	case "requirements":
		return catalogRequirements(args[1:], stdout, stderr)
	case "validate":
		return catalogValidate(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown catalog subcommand: %s\n", args[0])
		return 2
	}
}

func catalogRules(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("catalog rules", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundlePath string
		jsonOutput bool
	)
	cmd.StringVar(&bundlePath, "bundle", "", "List a bundle's rules instead of the built-in catalog")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	engine, err := buildEngine(bundlePath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	rules := engine.Rules()

	if jsonOutput {
		data, _ := json.MarshalIndent(rules, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "\n%sRule Catalog %s%s (engine %s)\n", ColorBold+ColorBlue, rules.Version, ColorReset, catalog.EngineVersion)
	_, _ = fmt.Fprintln(stdout, "────────────")
	for _, r := range rules.Rules {
		_, _ = fmt.Fprintf(stdout, "  %s%s%s  %s\n", ColorBold, r.Code, ColorReset, r.Description)
		_, _ = fmt.Fprintf(stdout, "          %s%s%s", ColorGray, r.Citation, ColorReset)
		if r.Threshold > 0 {
			_, _ = fmt.Fprintf(stdout, "%s · threshold %.0f%s", ColorGray, r.Threshold, ColorReset)
		}
		_, _ = fmt.Fprintln(stdout)
	}
	_, _ = fmt.Fprintf(stdout, "\n%d rules, %d document patterns\n", len(rules.Rules), len(rules.DocPatterns))
	return 0
}

func catalogRequirements(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("catalog requirements", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		jurisdiction string
		jsonOutput   bool
	)
	cmd.StringVar(&jurisdiction, "jurisdiction", "", "Requirement profile to list (default: DOCKET_JURISDICTION)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cat, err := loadRequirements(config.Load(), jurisdiction)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(cat, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "\n%sRequirement Checklist — %s%s (%d points)\n", ColorBold+ColorBlue, cat.Jurisdiction, ColorReset, cat.TotalPossible())
	_, _ = fmt.Fprintln(stdout, "─────────────────────")
	for _, c := range cat.Categories {
		_, _ = fmt.Fprintf(stdout, "\n  %s%s%s (weight %d)\n", ColorBold+ColorCyan, c.Name, ColorReset, c.Weight)
		for _, item := range c.Items {
			_, _ = fmt.Fprintf(stdout, "    %-28s %2d pts  %s%s%s\n", item.Name, item.Points, ColorGray, item.RuleCode, ColorReset)
		}
	}
	_, _ = fmt.Fprintln(stdout)
	return 0
}

func catalogValidate(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("catalog validate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	bundlePath := cmd.Arg(0)
	if bundlePath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket catalog validate <bundle.json>")
		return 2
	}

	ctx := context.Background()
	svc, err := openServices(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	engine, err := buildEngine(bundlePath)
	if err != nil {
		svc.recordAudit(ctx, audit.EventRuleset, "", "rejected rule bundle", map[string]interface{}{
			"bundle": bundlePath,
			"error":  err.Error(),
		})
		if jsonOutput {
			result := map[string]any{"bundle": bundlePath, "valid": false, "error": err.Error()}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stderr, "❌ Bundle invalid: %v\n", err)
		}
		return 1
	}

	rules := engine.Rules()
	svc.recordAudit(ctx, audit.EventRuleset, "", "validated rule bundle", map[string]interface{}{
		"bundle":  bundlePath,
		"version": rules.Version,
		"rules":   len(rules.Rules),
	})

	if jsonOutput {
		result := map[string]any{
			"bundle":  bundlePath,
			"valid":   true,
			"version": rules.Version,
			"rules":   len(rules.Rules),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "✅ Bundle valid: %s\n", bundlePath)
	_, _ = fmt.Fprintf(stdout, "   Version: %s\n", rules.Version)
	_, _ = fmt.Fprintf(stdout, "   Rules:   %d\n", len(rules.Rules))
	return 0
}
