package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rowhouse-labs/docket/pkg/catalog"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = findings (rule violations, failed verification, broken chain)
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "scan":
		return runScanCmd(args[2:], stdout, stderr)
	case "score":
		return runScoreCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "assemble":
		return runAssembleCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "attest":
		return runAttestCmd(args[2:], stdout, stderr)
	case "catalog":
		return runCatalogCmd(args[2:], stdout, stderr)
	case "audit":
		return runAuditCmd(args[2:], stdout, stderr)
	case "trust":
		if len(args) < 3 {
			_, _ = fmt.Fprintln(stderr, "Usage: docket trust <add-key|revoke-key|list-keys>")
			return 2
		}
		return runTrustCmd(args[2:], stdout, stderr)
	case "doctor":
		return runDoctorCmd(stdout, stderr)
	case "init":
		return runInitCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "docket %s (ruleset %s)\n", catalog.EngineVersion, catalog.DefaultRuleSet().Version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// ANSI Colors
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[37m"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sDocket %s%s\n", ColorBold+ColorBlue, "v"+catalog.EngineVersion, ColorReset)
	fmt.Fprintf(w, "%sChecks completeness. Never predicts approval.%s\n", ColorGray, ColorReset)
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "%sUSAGE:%s\n", ColorBold, ColorReset)
	fmt.Fprintln(w, "  docket <command> [flags]")
	fmt.Fprintln(w, "")

	printSection(w, "INTAKE & SCORING")
	printCommand(w, "scan", "Scan a case folder into a triage report")
	printCommand(w, "score", "Score document completeness (--json)")

	printSection(w, "VERIFICATION")
	printCommand(w, "verify", "Verify a case against the published rules")
	printCommand(w, "attest", "Issue or verify a verification certificate")
	printCommand(w, "catalog", "List rules and requirements, validate bundles")

	printSection(w, "PACKAGING & EXPORT")
	printCommand(w, "assemble", "Assemble the HPD submission package")
	printCommand(w, "export", "Export a sealed evidence pack (tar.gz)")

	printSection(w, "TRUST & AUDIT")
	printCommand(w, "trust", "Manage trusted certificate keys (add/revoke/list)")
	printCommand(w, "audit", "Inspect and verify the audit chain")

	printSection(w, "UTILITIES")
	printCommand(w, "doctor", "Check environment health and configuration")
	printCommand(w, "init", "Initialize a docket working directory")
	printCommand(w, "version", "Show version information")
	printCommand(w, "help", "Show this help")
	fmt.Fprintln(w, "")
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "%s%s:%s\n", ColorBold+ColorCyan, title, ColorReset)
}

func printCommand(w io.Writer, name, desc string) {
	fmt.Fprintf(w, "  %s%-12s%s %s\n", ColorGreen, name, ColorReset, desc)
}
