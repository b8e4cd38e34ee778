package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Limits  LimitsConfig  `mapstructure:"limits" yaml:"limits"`
	Clone   CloneConfig   `mapstructure:"clone" yaml:"clone"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tokens  TokensConfig  `mapstructure:"tokens" yaml:"tokens"`
	Hosts   []string      `mapstructure:"hosts" yaml:"hosts"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	JSON bool   `mapstructure:"json" yaml:"json"`
}

// LimitsConfig contains traversal resource budgets
type LimitsConfig struct {
	MaxFileSize   string `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxFiles      int    `mapstructure:"max_files" yaml:"max_files"`
	MaxTotalBytes string `mapstructure:"max_total_bytes" yaml:"max_total_bytes"`
	MaxDepth      int    `mapstructure:"max_depth" yaml:"max_depth"`
}

// CloneConfig contains clone stage settings
type CloneConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PreferArchive bool          `mapstructure:"prefer_archive" yaml:"prefer_archive"`
}

// CacheConfig contains digest cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TokensConfig contains token estimation settings
type TokensConfig struct {
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// Validate validates the configuration and applies defaults for invalid
// values.
func (c *Config) Validate() error {
	if c.Limits.MaxFiles < 1 {
		c.Limits.MaxFiles = DefaultMaxFiles
	}
	if c.Limits.MaxDepth < 1 {
		c.Limits.MaxDepth = DefaultMaxDepth
	}
	if c.Clone.Timeout < time.Second {
		c.Clone.Timeout = DefaultCloneTimeout
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Tokens.Encoding == "" {
		c.Tokens.Encoding = DefaultTokenEncoding
	}
	if len(c.Hosts) == 0 {
		c.Hosts = append(c.Hosts, KnownHosts...)
	}
	if _, err := c.MaxFileSizeBytes(); err != nil {
		return err
	}
	if _, err := c.MaxTotalBytesValue(); err != nil {
		return err
	}
	return nil
}

// MaxFileSizeBytes returns the per-file size budget in bytes.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	return parseSize(c.Limits.MaxFileSize, DefaultMaxFileSize)
}

// MaxTotalBytesValue returns the whole-traversal byte budget.
func (c *Config) MaxTotalBytesValue() (int64, error) {
	return parseSize(c.Limits.MaxTotalBytes, DefaultMaxTotalBytes)
}

// parseSize parses human-friendly sizes like "10MB", "512KB" or plain byte
// counts.
func parseSize(s string, fallback int64) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return fallback, nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return value * multiplier, nil
}
