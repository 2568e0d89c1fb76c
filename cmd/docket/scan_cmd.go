package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/ingest"
	"github.com/rowhouse-labs/docket/pkg/observability"
	"github.com/rowhouse-labs/docket/pkg/render"
	"github.com/rowhouse-labs/docket/pkg/signal"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
)

// runScanCmd implements `docket scan <folder>` — intake scan of a case
// folder into the internal triage report.
//
// Exit codes:
//
//	0 = scan complete
//	2 = runtime error
func runScanCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("scan", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		caseID      string
		buildingID  string
		outPath     string
		jsonOutput  bool
		checklist   bool
		concurrency int
		rateLimit   float64
	)

	cmd.StringVar(&caseID, "case", "", "Case ID for the ledger record (default: folder name)")
	cmd.StringVar(&buildingID, "building", "", "Building BBL code for the ledger record")
	cmd.StringVar(&outPath, "out", "", "Write output to a file instead of stdout")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the raw scan as JSON")
	cmd.BoolVar(&checklist, "checklist", false, "Also print the client-safe checklist")
	cmd.IntVar(&concurrency, "concurrency", 4, "Concurrent document extractions")
	cmd.Float64Var(&rateLimit, "rate", 0, "Max files/sec to read (0 = unlimited)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	folder := cmd.Arg(0)
	if folder == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket scan [flags] <case-folder>")
		cmd.Usage()
		return 2
	}
	if caseID == "" {
		caseID = filepath.Base(filepath.Clean(folder))
	}

	ctx := context.Background()
	svc, err := openServices(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	extractor, err := signal.NewExtractor(signal.DefaultTables())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	scanner := ingest.NewScanner(extractor).WithConcurrency(concurrency)
	if rateLimit > 0 {
		scanner = scanner.WithRateLimit(rateLimit)
	}

	opCtx, done := svc.otel.TrackOperation(ctx, "docket.scan", observability.AttrCaseID.String(caseID))
	scan, err := scanner.ScanFolder(opCtx, folder)
	done(err)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: scan failed: %v\n", err)
		return 2
	}

	svc.setStatus(ctx, caseID, func(r *ledger.CaseRecord) {
		r.BuildingID = buildingID
		r.Status = ledger.StatusScanned
		r.RiskScore = scan.InternalScore
		r.ScanID = scan.ScanID
	})
	svc.recordAudit(ctx, audit.EventScan, caseID, "scanned case folder", map[string]interface{}{
		"scan_id":     scan.ScanID,
		"folder":      folder,
		"files_found": scan.FilesFound,
		"red_flags":   len(scan.RedFlags),
	})

	var out string
	if jsonOutput {
		data, err := json.MarshalIndent(scan, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		out = string(data) + "\n"
	} else {
		out = render.InternalReport(scan)
		if checklist {
			out += "\n" + render.ClientChecklist(scan.ScanDate, caseID)
		}
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", outPath, err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "✅ Scan written: %s (%d files, internal score %d/10)\n", outPath, scan.FilesFound, scan.InternalScore)
		return 0
	}
	_, _ = fmt.Fprint(stdout, out)
	return 0
}
