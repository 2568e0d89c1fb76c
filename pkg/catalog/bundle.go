package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/cel-go/cel"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// bundleSchema gates rule bundles before any field is trusted. Bundles are
// operator-supplied files; a malformed one must fail loudly at load.
const bundleSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "version", "rules"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "engine_compat": {"type": "string"},
    "created_at": {"type": "string"},
    "hash": {"type": "string"},
    "doc_patterns": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["code", "description", "public_citation"],
        "properties": {
          "code": {"type": "string", "pattern": "^[A-Z]{3}-[0-9]{2}$"},
          "description": {"type": "string", "minLength": 1},
          "required_docs": {"type": "array", "items": {"type": "string"}},
          "exception_docs": {"type": "array", "items": {"type": "string"}},
          "indicator_terms": {"type": "array", "items": {"type": "string"}},
          "threshold": {"type": "number"},
          "public_citation": {"type": "string", "minLength": 1},
          "expression": {"type": "string"}
        }
      }
    }
  }
}`

// RuleBundle is a versioned rule collection loaded from an external JSON
// file, enabling rule updates without a code deployment.
type RuleBundle struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	EngineCompat string              `json:"engine_compat,omitempty"` // semver constraint
	Rules        []ComplianceRule    `json:"rules"`
	DocPatterns  map[string][]string `json:"doc_patterns,omitempty"`
	CreatedAt    time.Time           `json:"created_at,omitempty"`
	Hash         string              `json:"hash,omitempty"`
}

// RuleSet converts the bundle into an immutable RuleSet. Bundles without
// their own doc-pattern table inherit the published defaults.
func (b *RuleBundle) RuleSet() *RuleSet {
	patterns := b.DocPatterns
	if len(patterns) == 0 {
		patterns = DefaultRuleSet().DocPatterns
	}
	return &RuleSet{
		Version:     b.Name + "@" + b.Version,
		Rules:       b.Rules,
		DocPatterns: patterns,
	}
}

// BundleLoader loads and holds rule bundles from a directory. Loaded bundles
// are immutable; the loader itself is safe for concurrent use.
type BundleLoader struct {
	mu        sync.RWMutex
	bundles   map[string]*RuleBundle // name -> bundle
	bundleDir string
	schema    *jsonschema.Schema
	celEnv    *cel.Env
	onLoad    func(*RuleBundle)
}

// NewBundleLoader creates a loader for the given directory. Schema and CEL
// environment compilation failures are programmer errors surfaced here.
func NewBundleLoader(bundleDir string) (*BundleLoader, error) {
	schema, err := jsonschema.CompileString("bundle.schema.json", bundleSchema)
	if err != nil {
		return nil, fmt.Errorf("catalog: compile bundle schema: %w", err)
	}
	env, err := cel.NewEnv(
		cel.Variable("case", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: cel env: %w", err)
	}
	return &BundleLoader{
		bundles:   make(map[string]*RuleBundle),
		bundleDir: bundleDir,
		schema:    schema,
		celEnv:    env,
	}, nil
}

// OnLoad registers a callback invoked after each successful bundle load.
func (l *BundleLoader) OnLoad(fn func(*RuleBundle)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLoad = fn
}

// LoadAll loads every .json bundle in the configured directory.
func (l *BundleLoader) LoadAll() error {
	entries, err := os.ReadDir(l.bundleDir)
	if err != nil {
		return fmt.Errorf("catalog: read dir %s: %w", l.bundleDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := l.LoadFile(filepath.Join(l.bundleDir, entry.Name())); err != nil {
			return fmt.Errorf("catalog: load %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// LoadFile validates and loads a single bundle file. Validation order:
// schema, engine compatibility, rule-set soundness, CEL compilability.
func (l *BundleLoader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse bundle: %w", err)
	}
	if err := l.schema.Validate(doc); err != nil {
		return &ConfigurationError{Catalog: filepath.Base(path), Detail: fmt.Sprintf("schema: %v", err)}
	}

	var bundle RuleBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}

	if err := l.checkEngineCompat(&bundle); err != nil {
		return err
	}
	rs := bundle.RuleSet()
	if err := rs.Validate(); err != nil {
		return err
	}
	for _, r := range bundle.Rules {
		if r.Expression == "" {
			continue
		}
		if _, iss := l.celEnv.Compile(r.Expression); iss != nil && iss.Err() != nil {
			return &ConfigurationError{
				Catalog: bundle.Name,
				Detail:  fmt.Sprintf("rule %s expression: %v", r.Code, iss.Err()),
			}
		}
	}

	l.mu.Lock()
	l.bundles[bundle.Name] = &bundle
	callback := l.onLoad
	l.mu.Unlock()

	if callback != nil {
		callback(&bundle)
	}
	return nil
}

func (l *BundleLoader) checkEngineCompat(b *RuleBundle) error {
	if b.EngineCompat == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(b.EngineCompat)
	if err != nil {
		return &ConfigurationError{Catalog: b.Name, Detail: fmt.Sprintf("engine_compat %q: %v", b.EngineCompat, err)}
	}
	if !constraint.Check(semver.MustParse(EngineVersion)) {
		return &ConfigurationError{
			Catalog: b.Name,
			Detail:  fmt.Sprintf("requires engine %s, running %s", b.EngineCompat, EngineVersion),
		}
	}
	return nil
}

// Bundle returns a loaded bundle by name.
func (l *BundleLoader) Bundle(name string) (*RuleBundle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bundles[name]
	return b, ok
}

// All returns every loaded bundle.
func (l *BundleLoader) All() []*RuleBundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*RuleBundle, 0, len(l.bundles))
	for _, b := range l.bundles {
		out = append(out, b)
	}
	return out
}
