package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rowhouse-labs/docket/pkg/verify"
)

// ReportCache short-circuits re-verification of unchanged cases. The
// key is the canonical digest of the case inputs, so any document
// change misses the cache and forces a fresh run.
type ReportCache interface {
	// Get returns the cached report for a case digest, or nil on miss.
	Get(ctx context.Context, caseDigest string) (*verify.ComplianceReport, error)
	Put(ctx context.Context, caseDigest string, report *verify.ComplianceReport) error
	Invalidate(ctx context.Context, caseDigest string) error
}

const cacheKeyPrefix = "docket:report:"

// RedisCache is the shared-deployment cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A zero ttl means entries
// never expire; rely on Invalidate when the ruleset changes.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient builds a client for the given address.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *RedisCache) Get(ctx context.Context, caseDigest string) (*verify.ComplianceReport, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+caseDigest).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var report verify.ComplianceReport
	if err := json.Unmarshal(data, &report); err != nil {
		// A corrupt cache entry is a miss, not a failure.
		return nil, nil
	}
	return &report, nil
}

func (c *RedisCache) Put(ctx context.Context, caseDigest string, report *verify.ComplianceReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+caseDigest, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, caseDigest string) error {
	if err := c.client.Del(ctx, cacheKeyPrefix+caseDigest).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
