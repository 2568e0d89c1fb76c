package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rowhouse-labs/docket/pkg/catalog"
	"github.com/rowhouse-labs/docket/pkg/config"
)

// runDoctorCmd implements `docket doctor` — environment health check.
//
// Exit codes:
//
//	0 = all checks pass (warnings allowed)
//	1 = one or more checks failed
func runDoctorCmd(stdout, stderr io.Writer) int {
	type checkResult struct {
		Name   string `json:"name"`
		Status string `json:"status"` // "ok", "warn", "fail"
		Detail string `json:"detail,omitempty"`
	}

	cfg := config.Load()

	var results []checkResult
	allOK := true

	// Check 1: Go runtime
	results = append(results, checkResult{
		Name:   "go_runtime",
		Status: "ok",
		Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	// Check 2: DATABASE_URL
	if cfg.LiteMode() {
		results = append(results, checkResult{
			Name:   "database_url",
			Status: "warn",
			Detail: "DATABASE_URL not set (Lite Mode, local SQLite)",
		})
	} else {
		results = append(results, checkResult{
			Name:   "database_url",
			Status: "ok",
			Detail: "set",
		})
	}

	// Check 3: PostgreSQL connectivity
	if !cfg.LiteMode() {
		if _, err := exec.LookPath("pg_isready"); err == nil {
			if err := exec.Command("pg_isready").Run(); err != nil {
				results = append(results, checkResult{
					Name:   "postgres",
					Status: "fail",
					Detail: "pg_isready failed",
				})
				allOK = false
			} else {
				results = append(results, checkResult{
					Name:   "postgres",
					Status: "ok",
					Detail: "pg_isready succeeded",
				})
			}
		} else {
			results = append(results, checkResult{
				Name:   "postgres",
				Status: "warn",
				Detail: "pg_isready not found in PATH",
			})
		}
	}

	// Check 4: Data directory
	if _, err := os.Stat(cfg.DataDir); err != nil {
		results = append(results, checkResult{
			Name:   "data_dir",
			Status: "warn",
			Detail: fmt.Sprintf("%s does not exist (created on first run)", cfg.DataDir),
		})
	} else {
		results = append(results, checkResult{
			Name:   "data_dir",
			Status: "ok",
			Detail: cfg.DataDir,
		})
	}

	// Check 5: Profiles directory
	if _, err := os.Stat(cfg.ProfilesDir); err != nil {
		results = append(results, checkResult{
			Name:   "profiles_dir",
			Status: "warn",
			Detail: fmt.Sprintf("%s does not exist (run `docket init`)", cfg.ProfilesDir),
		})
	} else {
		results = append(results, checkResult{
			Name:   "profiles_dir",
			Status: "ok",
			Detail: cfg.ProfilesDir,
		})
	}

	// Check 6: Office signing key. When an office profile declares a
	// rotation window, a key older than the window fails the check.
	keyPath := filepath.Join(cfg.DataDir, "root.key")
	if info, err := os.Stat(keyPath); err != nil {
		results = append(results, checkResult{
			Name:   "signing_key",
			Status: "warn",
			Detail: "no signing key (generated on first attest)",
		})
	} else {
		keyAge := time.Since(info.ModTime())
		rotationDays := 0
		if cfg.Office != "" {
			if profile, err := config.LoadProfile(cfg.ProfilesDir, cfg.Office); err == nil {
				rotationDays = profile.CryptoPolicy.KeyRotationDays
			}
		}
		if rotationDays > 0 && keyAge > time.Duration(rotationDays)*24*time.Hour {
			results = append(results, checkResult{
				Name:   "signing_key",
				Status: "fail",
				Detail: fmt.Sprintf("key is %d days old, rotation policy is %d days", int(keyAge.Hours()/24), rotationDays),
			})
			allOK = false
		} else {
			results = append(results, checkResult{
				Name:   "signing_key",
				Status: "ok",
				Detail: fmt.Sprintf("%s (%d days old)", keyPath, int(keyAge.Hours()/24)),
			})
		}
	}

	// Check 7: Report cache backend
	if cfg.RedisAddr != "" {
		results = append(results, checkResult{
			Name:   "report_cache",
			Status: "ok",
			Detail: fmt.Sprintf("redis %s", cfg.RedisAddr),
		})
	} else {
		results = append(results, checkResult{
			Name:   "report_cache",
			Status: "ok",
			Detail: "file cache (REDIS_ADDR not set)",
		})
	}

	// Print results
	fmt.Fprintf(stdout, "\n%sDocket Doctor%s\n", ColorBold+ColorPurple, ColorReset)
	fmt.Fprintln(stdout, "─────────────")
	for _, r := range results {
		icon := "✅"
		if r.Status == "warn" {
			icon = "⚠️ "
		} else if r.Status == "fail" {
			icon = "❌"
		}
		fmt.Fprintf(stdout, "  %s  %-20s %s%s%s\n", icon, r.Name, ColorGray, r.Detail, ColorReset)
	}

	if allOK {
		fmt.Fprintf(stdout, "\n%sAll checks passed. You are ready to scan.%s\n", ColorGreen+ColorBold, ColorReset)
		return 0
	}
	return 1
}

// runInitCmd implements `docket init` — workspace initialization.
func runInitCmd(args []string, stdout, stderr io.Writer) int {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Create standard workspace structure
	dirs := []string{
		"data/artifacts",
		"profiles",
		"bundles",
	}

	for _, d := range dirs {
		path := filepath.Join(dir, d)
		if err := os.MkdirAll(path, 0750); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot create %s: %v\n", path, err)
			return 2
		}
	}

	// Seed the NYC requirement catalog so offline scoring works out of
	// the box. Never overwrite a customized copy.
	reqPath := filepath.Join(dir, "profiles", "requirements_nyc.yaml")
	if _, err := os.Stat(reqPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(catalog.DefaultRequirements())
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot encode requirement catalog: %v\n", err)
			return 2
		}
		if err := os.WriteFile(reqPath, data, 0644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write %s: %v\n", reqPath, err)
			return 2
		}
	}

	// Write minimal docket.yaml if it doesn't exist
	configPath := filepath.Join(dir, "docket.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := `# Docket Configuration
# See: https://github.com/rowhouse-labs/docket
version: "1.0"
jurisdiction: nyc
office: ""
profiles_dir: profiles
data_dir: data
`
		if err := os.WriteFile(configPath, []byte(config), 0600); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write %s: %v\n", configPath, err)
			return 2
		}
	}

	_, _ = fmt.Fprintf(stdout, "Initialized docket workspace in %s\n", dir)
	_, _ = fmt.Fprintf(stdout, "%sNext: docket scan <case-folder>%s\n", ColorGray, ColorReset)
	return 0
}
