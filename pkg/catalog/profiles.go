package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequirements loads a jurisdiction's requirement checklist from
// requirements_<code>.yaml in the profiles directory. The catalog is
// validated before it is returned; a bad profile never reaches evaluation.
func LoadRequirements(profilesDir, code string) (*RequirementCatalog, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("requirements_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load requirements %q: %w", code, err)
	}

	var cat RequirementCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse requirements %q: %w", code, err)
	}
	if cat.Jurisdiction == "" {
		cat.Jurisdiction = code
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// LoadAllRequirements loads every requirements_*.yaml file from the profiles
// directory, keyed by jurisdiction code.
func LoadAllRequirements(profilesDir string) (map[string]*RequirementCatalog, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "requirements_*.yaml"))
	if err != nil {
		return nil, err
	}

	catalogs := make(map[string]*RequirementCatalog, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var cat RequirementCatalog
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cat.Jurisdiction == "" {
			// requirements_nyc.yaml -> nyc
			base := filepath.Base(path)
			cat.Jurisdiction = strings.TrimSuffix(strings.TrimPrefix(base, "requirements_"), ".yaml")
		}
		if err := cat.Validate(); err != nil {
			return nil, err
		}
		catalogs[cat.Jurisdiction] = &cat
	}
	return catalogs, nil
}
