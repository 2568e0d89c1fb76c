// Package config resolves runtime configuration for the docket CLI:
// 12-factor environment variables plus optional per-office YAML
// deployment profiles.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration. An empty DatabaseURL selects
// Lite Mode (single-file sqlite, file-backed cache and ledger); an
// empty RedisAddr selects the file cache even in shared deployments.
type Config struct {
	LogLevel      string
	Environment   string
	DataDir       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	Operator      string
	Jurisdiction  string
	ProfilesDir   string
	Office        string
	OTLPEndpoint  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	environment := os.Getenv("DOCKET_ENV")
	if environment == "" {
		environment = "development"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	jurisdiction := os.Getenv("DOCKET_JURISDICTION")
	if jurisdiction == "" {
		jurisdiction = "nyc"
	}

	profilesDir := os.Getenv("DOCKET_PROFILES_DIR")
	if profilesDir == "" {
		profilesDir = "profiles"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	cacheTTL := 24 * time.Hour
	if v := os.Getenv("DOCKET_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}

	return &Config{
		LogLevel:      logLevel,
		Environment:   environment,
		DataDir:       dataDir,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		CacheTTL:      cacheTTL,
		Operator:      os.Getenv("DOCKET_OPERATOR"),
		Jurisdiction:  jurisdiction,
		ProfilesDir:   profilesDir,
		Office:        os.Getenv("DOCKET_OFFICE"),
		OTLPEndpoint:  os.Getenv("DOCKET_OTLP_ENDPOINT"),
	}
}

// LiteMode reports whether the CLI runs against local files only.
func (c *Config) LiteMode() bool {
	return c.DatabaseURL == ""
}
