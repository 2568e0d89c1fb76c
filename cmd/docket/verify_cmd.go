package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/canonical"
	"github.com/rowhouse-labs/docket/pkg/observability"
	"github.com/rowhouse-labs/docket/pkg/render"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// runVerifyCmd implements `docket verify <case.json>` — rule
// verification against the published catalog.
//
// Exit codes:
//
//	0 = compliant
//	1 = rule violations found
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		bundlePath  string
		scanPath    string
		jsonOutput  bool
		jsonOutPath string
		noCache     bool
		checkFilter multiFlag
	)

	cmd.StringVar(&bundlePath, "bundle", "", "Rule bundle file to verify against (default: built-in catalog)")
	cmd.StringVar(&scanPath, "scan", "", "Scan JSON whose signals feed indicator checks")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.StringVar(&jsonOutPath, "json-out", "", "Also write the JSON report to a file")
	cmd.BoolVar(&noCache, "no-cache", false, "Skip the report cache")
	cmd.Var(&checkFilter, "check", "Run only specific rule code(s) (repeatable)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	casePath := cmd.Arg(0)
	if casePath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket verify [flags] <case.json>")
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

	engine, err := buildEngine(bundlePath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var signals []signal.SignalSet
	if scanPath != "" {
		scan, err := loadScan(scanPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		signals = scan.SignalSets()
	}

	caseDigest, err := canonical.Digest(c)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	// The cache only answers full-catalog runs; a bundle or check
	// filter changes what the report means.
	cacheable := bundlePath == "" && len(checkFilter) == 0
	var report *verify.ComplianceReport
	fromCache := false
	if cacheable && !noCache {
		cached, err := svc.cache.Get(ctx, caseDigest)
		if err != nil {
			fmt.Fprintf(stderr, "⚠️  cache: %v\n", err)
		} else if cached != nil && cached.RulesetVersion == engine.Rules().Version {
			report = cached
			fromCache = true
			fmt.Fprintf(stderr, "ℹ️  Serving cached report for case digest %s…\n", caseDigest[:12])
		}
	}

	if report == nil {
		_, done := svc.otel.TrackOperation(ctx, "docket.verify",
			observability.AttrCaseID.String(c.CaseID),
			observability.AttrRulesetVersion.String(engine.Rules().Version),
		)
		report, err = engine.Evaluate(&verify.EvalOptions{
			Case:        c,
			Signals:     signals,
			CheckFilter: []string(checkFilter),
		})
		done(err)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: verification failed: %v\n", err)
			return 2
		}

		if err := svc.reports.Save(ctx, report); err != nil {
			fmt.Fprintf(stderr, "⚠️  report store: %v\n", err)
		}
		if cacheable {
			if err := svc.cache.Put(ctx, caseDigest, report); err != nil {
				fmt.Fprintf(stderr, "⚠️  cache: %v\n", err)
			}
		}
	}

	digest, err := canonical.ReportDigest(report)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	svc.setStatus(ctx, c.CaseID, func(r *ledger.CaseRecord) {
		r.Status = ledger.StatusVerified
		r.ReportDigest = digest
	})

	action := "verified case against rule catalog"
	if fromCache {
		action = "served cached verification report"
	}
	svc.recordAudit(ctx, audit.EventVerification, c.CaseID, action, map[string]interface{}{
		"ruleset_version":  report.RulesetVersion,
		"compliance_score": report.ComplianceScore,
		"violations":       len(report.RuleViolations),
		"report_digest":    digest,
	})

	if jsonOutPath != "" {
		data, _ := json.MarshalIndent(report, "", "  ")
		if err := os.WriteFile(jsonOutPath, data, 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", jsonOutPath, err)
			return 2
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprint(stdout, render.ComplianceSummary(report))
	}

	if !report.Compliant() {
		return 1
	}
	return 0
}

// multiFlag allows repeatable flag values (e.g. --check AST-01 --check INC-03).
type multiFlag []string

func (f *multiFlag) String() string { return fmt.Sprintf("%v", *f) }
func (f *multiFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}
