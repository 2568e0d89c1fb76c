package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/store"
)

// runAuditCmd implements `docket audit` — inspection of the hash-chained
// operation trail.
//
//	docket audit -verify            verify chain integrity
//	docket audit --case CASE-001    list a case's entries
//	docket audit --case CASE-001 --pack trail.zip
//
// Exit codes:
//
//	0 = chain intact / listed / packed
//	1 = chain broken
//	2 = runtime error
func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		verifyChain bool
		caseID      string
		packOut     string
		fromStr     string
		toStr       string
		limit       int
		jsonOutput  bool
	)

	cmd.BoolVar(&verifyChain, "verify", false, "Verify the audit chain and exit")
	cmd.StringVar(&caseID, "case", "", "Restrict to one case")
	cmd.StringVar(&packOut, "pack", "", "Export the case's trail as a zip to this path (requires --case)")
	cmd.StringVar(&fromStr, "from", "", "Earliest entry date, YYYY-MM-DD")
	cmd.StringVar(&toStr, "to", "", "Latest entry date, YYYY-MM-DD")
	cmd.IntVar(&limit, "limit", 20, "Max entries to list (0 = all)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	svc, err := openServices(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer svc.Close()

	if verifyChain {
		if err := svc.auditDB.VerifyChain(); err != nil {
			if jsonOutput {
				result := map[string]any{"valid": false, "error": err.Error()}
				data, _ := json.MarshalIndent(result, "", "  ")
				_, _ = fmt.Fprintln(stdout, string(data))
			} else {
				_, _ = fmt.Fprintf(stderr, "❌ Audit chain broken: %v\n", err)
			}
			return 1
		}
		if jsonOutput {
			result := map[string]any{
				"valid":      true,
				"entries":    svc.auditDB.Size(),
				"chain_head": svc.auditDB.ChainHead(),
			}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
			return 0
		}
		_, _ = fmt.Fprintf(stdout, "✅ Audit chain intact: %d entries\n", svc.auditDB.Size())
		_, _ = fmt.Fprintf(stdout, "   Head: %s\n", svc.auditDB.ChainHead())
		return 0
	}

	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if packOut != "" {
		if caseID == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --pack requires --case")
			return 2
		}
		pack, checksum, err := audit.NewExporter(svc.auditDB).GeneratePack(ctx, audit.ExportRequest{
			CaseID:    caseID,
			StartTime: from,
			EndTime:   to,
		})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if err := os.WriteFile(packOut, pack, 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", packOut, err)
			return 2
		}
		if jsonOutput {
			result := map[string]any{"case_id": caseID, "pack_path": packOut, "sha256": checksum}
			data, _ := json.MarshalIndent(result, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
			return 0
		}
		_, _ = fmt.Fprintf(stdout, "✅ Audit pack exported: %s\n", packOut)
		_, _ = fmt.Fprintf(stdout, "   sha256: %s\n", checksum)
		return 0
	}

	filter := store.QueryFilter{CaseID: caseID}
	if !from.IsZero() {
		filter.StartTime = &from
	}
	if !to.IsZero() {
		filter.EndTime = &to
	}
	entries := svc.auditDB.Query(filter)
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(entries, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(stdout, "No audit entries.")
		return 0
	}
	_, _ = fmt.Fprintf(stdout, "\n%sAudit Trail%s (%d of %d entries)\n", ColorBold+ColorPurple, ColorReset, len(entries), svc.auditDB.Size())
	_, _ = fmt.Fprintln(stdout, "───────────")
	for _, e := range entries {
		_, _ = fmt.Fprintf(stdout, "  #%-4d %s  %-14s %-14s %s\n",
			e.Sequence,
			e.Timestamp.Format("2006-01-02 15:04"),
			e.EntryType,
			e.CaseID,
			e.Action,
		)
	}
	return 0
}

// parseDateRange parses the optional --from/--to day bounds. The end
// bound is inclusive of its whole day.
func parseDateRange(fromStr, toStr string) (from, to time.Time, err error) {
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --from date %q (want YYYY-MM-DD)", fromStr)
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("bad --to date %q (want YYYY-MM-DD)", toStr)
		}
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	return from, to, nil
}
