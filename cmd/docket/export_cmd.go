package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rowhouse-labs/docket/pkg/artifacts"
	"github.com/rowhouse-labs/docket/pkg/audit"
	"github.com/rowhouse-labs/docket/pkg/observability"
	"github.com/rowhouse-labs/docket/pkg/render"
	"github.com/rowhouse-labs/docket/pkg/store"
	"github.com/rowhouse-labs/docket/pkg/store/ledger"
)

// runExportCmd implements `docket export <case.json>` — seal the
// verification report into an envelope, store it, and write the
// deterministic evidence pack.
//
// Exit codes:
//
//	0 = pack exported
//	2 = runtime error
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		reportPath string
		outPath    string
		jsonOutput bool
	)

	cmd.StringVar(&reportPath, "report", "", "Report JSON to export (default: latest stored report)")
	cmd.StringVar(&outPath, "out", "", "Output path for the tar.gz pack (default: <case>_evidence.tar.gz)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	casePath := cmd.Arg(0)
	if casePath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: docket export [flags] <case.json>")
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
	if outPath == "" {
		outPath = c.CaseID + "_evidence.tar.gz"
	}

	report, err := resolveReport(ctx, svc, c, reportPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	signer, err := svc.Signer()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	artStore, err := artifacts.NewStoreFromEnv(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: artifact store: %v\n", err)
		return 2
	}

	exportedAt := time.Now().UTC()
	producer := "docket"
	if svc.cfg.Office != "" {
		producer = "docket/" + svc.cfg.Office
	}

	env, err := artifacts.NewReportEnvelope(report, producer, exportedAt)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := env.Seal(signer); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: seal envelope: %v\n", err)
		return 2
	}

	registry := artifacts.NewRegistry(artStore)
	registry.TrustSigner(signer)
	envHash, err := registry.Put(ctx, env)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: store envelope: %v\n", err)
		return 2
	}

	auditSlice, err := svc.auditDB.ExportBundle(store.QueryFilter{CaseID: c.CaseID})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: audit slice: %v\n", err)
		return 2
	}

	reportJSON, _ := json.MarshalIndent(report, "", "  ")
	envJSON, _ := json.MarshalIndent(env, "", "  ")
	auditJSON, _ := json.MarshalIndent(auditSlice, "", "  ")
	files := map[string][]byte{
		"report.json":    reportJSON,
		"envelope.json":  envJSON,
		"checklist.txt":  []byte(render.ClientChecklist(report.GeneratedAt, c.CaseID)),
		"audit_log.json": auditJSON,
	}

	var buf bytes.Buffer
	_, done := svc.otel.TrackOperation(ctx, "docket.export",
		observability.AttrCaseID.String(c.CaseID),
		observability.AttrArtifactType.String("evidence_pack"),
	)
	err = artifacts.WritePack(&buf, c.CaseID, exportedAt, files)
	done(err)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: write pack: %v\n", err)
		return 2
	}

	packHash, err := artStore.Store(ctx, buf.Bytes())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: store pack: %v\n", err)
		return 2
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: write %s: %v\n", outPath, err)
		return 2
	}

	svc.setStatus(ctx, c.CaseID, func(r *ledger.CaseRecord) {
		r.Status = ledger.StatusExported
	})
	svc.recordAudit(ctx, audit.EventExport, c.CaseID, "exported evidence pack", map[string]interface{}{
		"pack_path":     outPath,
		"pack_hash":     packHash,
		"envelope_hash": envHash,
		"files":         len(files),
	})

	if jsonOutput {
		result := map[string]any{
			"case_id":       c.CaseID,
			"pack_path":     outPath,
			"pack_hash":     packHash,
			"envelope_hash": envHash,
			"file_count":    len(files),
			"status":        "exported",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "✅ Evidence pack exported: %s (%d files)\n", outPath, len(files))
	_, _ = fmt.Fprintf(stdout, "   Envelope: %s\n", envHash)
	_, _ = fmt.Fprintf(stdout, "   Pack:     %s\n", packHash)
	return 0
}
