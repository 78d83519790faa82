// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "starmap/internal/errors"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	GithubUsername    string        `mapstructure:"GITHUB_USERNAME"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL      string        `mapstructure:"GITHUB_API_URL"`
	TargetRepoOwner   string        `mapstructure:"TARGET_REPO_OWNER"`
	TargetRepoName    string        `mapstructure:"TARGET_REPO_NAME"`
	TargetBranch      string        `mapstructure:"TARGET_BRANCH"`
	OutputPath        string        `mapstructure:"OUTPUT_PATH"`
	SupermemoryAPIKey string        `mapstructure:"SUPERMEMORY_API_KEY"`
	SupermemoryAPIURL string        `mapstructure:"SUPERMEMORY_API_URL"`
	MirrorConcurrency int           `mapstructure:"MIRROR_CONCURRENCY"`
	MirrorRateLimit   float64       `mapstructure:"MIRROR_RATE_LIMIT"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL"`
	CacheSize         int           `mapstructure:"CACHE_SIZE"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	DBURL             string        `mapstructure:"DB_URL"`
	MigrationsPath    string        `mapstructure:"MIGRATIONS_PATH"`
	SyncInterval      time.Duration `mapstructure:"SYNC_INTERVAL"`
}

// MirrorEnabled reports whether an index sink credential is configured.
func (c *Config) MirrorEnabled() bool {
	return c.SupermemoryAPIKey != ""
}

// LedgerEnabled reports whether sync runs should be recorded in Postgres.
func (c *Config) LedgerEnabled() bool {
	return c.DBURL != ""
}

// LoadConfig reads configuration from the given .env file (if it exists)
// and from environment variables, which take precedence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Every key gets a default so AutomaticEnv picks it up during Unmarshal.
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GITHUB_USERNAME", "")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("TARGET_REPO_OWNER", "")
	v.SetDefault("TARGET_REPO_NAME", "starmap")
	v.SetDefault("TARGET_BRANCH", "main")
	v.SetDefault("OUTPUT_PATH", "starred-repos.md")
	v.SetDefault("SUPERMEMORY_API_KEY", "")
	v.SetDefault("SUPERMEMORY_API_URL", "https://api.supermemory.ai/v1")
	v.SetDefault("MIRROR_CONCURRENCY", 4)
	v.SetDefault("MIRROR_RATE_LIMIT", 5.0)
	v.SetDefault("CACHE_TTL", "0s")
	v.SetDefault("CACHE_SIZE", 16)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("SYNC_INTERVAL", "0s")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // Ignore error if file not found
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GithubUsername == "" {
		return nil, &custom_errors.ErrConfiguration{Field: "GITHUB_USERNAME"}
	}
	if cfg.GithubToken == "" {
		return nil, &custom_errors.ErrConfiguration{Field: "GITHUB_TOKEN"}
	}
	if cfg.TargetRepoOwner == "" {
		cfg.TargetRepoOwner = cfg.GithubUsername
	}
	if cfg.MirrorConcurrency <= 0 {
		cfg.MirrorConcurrency = 1
	}

	return &cfg, nil
}
