package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rowhouse-labs/docket/pkg/verify"
)

// FileCache is the Lite Mode report cache: one JSON file, no server.
// It persists across runs so repeated scoring of an unchanged case
// stays warm even offline.
type FileCache struct {
	mu       sync.RWMutex
	filePath string
	cache    map[string]json.RawMessage
}

func NewFileCache(storageDir string) (*FileCache, error) {
	if err := os.MkdirAll(storageDir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &FileCache{
		filePath: filepath.Join(storageDir, "report_cache.json"),
		cache:    make(map[string]json.RawMessage),
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	return c, nil
}

func (c *FileCache) load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, &c.cache); err != nil {
		// A corrupt cache file starts over empty rather than wedging
		// every run.
		c.cache = make(map[string]json.RawMessage)
	}
	return nil
}

func (c *FileCache) save() error {
	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0o600)
}

func (c *FileCache) Get(ctx context.Context, caseDigest string) (*verify.ComplianceReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.cache[caseDigest]
	if !ok {
		return nil, nil
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, nil
	}
	return &report, nil
}

func (c *FileCache) Put(ctx context.Context, caseDigest string, report *verify.ComplianceReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[caseDigest] = data
	return c.save()
}

func (c *FileCache) Invalidate(ctx context.Context, caseDigest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, caseDigest)
	return c.save()
}
