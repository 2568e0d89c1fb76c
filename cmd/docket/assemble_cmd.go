package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rowhouse-labs/docket/pkg/assemble"
	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/casefile"
	"github.com/rowhouse-labs/docket/pkg/store"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
	"github.com/rowhouse-labs/docket/pkg/verify"
)

// runAssembleCmd implements `docket assemble <case.json>` — build the
// HPD-ready submission package from a case and its verification report.
//
// Exit codes:
//
//	0 = package assembled
//	2 = runtime error
func runAssembleCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("assemble", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		reportPath string
		outPath    string
		jsonOutput bool
	)

	cmd.StringVar(&reportPath, "report", "", "Report JSON to embed (default: latest stored report, else fresh verification)")
	cmd.StringVar(&outPath, "out", "", "Write the package JSON to a file")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the full package as JSON instead of the cover sheet")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	casePath := cmd.Arg(0)
	if casePath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket assemble [flags] <case.json>")
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

	report, err := resolveReport(ctx, svc, c, reportPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	assembler := assemble.NewAssembler()
	if svc.cfg.Operator != "" {
		assembler = assembler.WithPreparedBy(svc.cfg.Operator)
	}
	pkg, err := assembler.CreatePackage(c, report)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: assembly failed: %v\n", err)
		return 2
	}

	svc.setStatus(ctx, c.CaseID, func(r *ledger.CaseRecord) {
		r.Status = ledger.StatusPackaged
	})
	svc.recordAudit(ctx, audit.EventAssembly, c.CaseID, "assembled submission package", map[string]interface{}{
		"package_id": pkg.PackageID,
		"documents":  len(pkg.Contents.TableOfContents),
	})

	if outPath != "" {
		data, _ := json.MarshalIndent(pkg, "", "  ")
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", outPath, err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "✅ Package assembled: %s → %s (%d documents)\n", pkg.PackageID, outPath, len(pkg.Contents.TableOfContents))
		return 0
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(pkg, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprint(stdout, pkg.Contents.CoverSheet)
	_, _ = fmt.Fprintf(stdout, "\n%sPackage %s assembled. Use --out to save it.%s\n", ColorGray, pkg.PackageID, ColorReset)
	return 0
}

// resolveReport finds the compliance report to embed: an explicit file,
// the latest stored report for the case, or a fresh evaluation when the
// store has none.
func resolveReport(ctx context.Context, svc *services, c *casefile.SuccessionCase, reportPath string) (*verify.ComplianceReport, error) {
	if reportPath != "" {
		data, err := os.ReadFile(reportPath)
		if err != nil {
			return nil, fmt.Errorf("read report file: %w", err)
		}
		var report verify.ComplianceReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("parse report file: %w", err)
		}
		if report.CaseID != c.CaseID {
			return nil, fmt.Errorf("report is for case %s, not %s", report.CaseID, c.CaseID)
		}
		return &report, nil
	}

	report, err := svc.reports.Latest(ctx, c.CaseID)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, store.ErrReportNotFound) {
		return nil, err
	}

	// No stored report yet; verify in place so assembly stays one-shot.
	engine, err := buildEngine("")
	if err != nil {
		return nil, err
	}
	report, err = engine.Evaluate(&verify.EvalOptions{Case: c})
	if err != nil {
		return nil, err
	}
	if err := svc.reports.Save(ctx, report); err != nil {
		fmt.Fprintf(svc.stderr, "⚠️  report store: %v\n", err)
	}
	return report, nil
}
