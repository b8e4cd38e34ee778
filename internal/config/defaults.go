package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Output defaults
	DefaultOutputPath = "digest.txt"

	// Limits defaults
	DefaultMaxFileSize   = int64(10 * 1024 * 1024)  // 10MB per file
	DefaultMaxFiles      = 10000                    // files per traversal
	DefaultMaxTotalBytes = int64(500 * 1024 * 1024) // 500MB per traversal
	DefaultMaxDepth      = 20

	// Clone defaults
	DefaultCloneTimeout = 60 * time.Second

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 24 * time.Hour

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"

	// Token estimation defaults
	DefaultTokenEncoding = "o200k_base"
)

// KnownHosts are the repository hosts probed for bare owner/repo slugs, in
// priority order.
var KnownHosts = []string{
	"github.com",
	"gitlab.com",
	"bitbucket.org",
	"codeberg.org",
	"gitea.com",
	"gist.github.com",
}

// DefaultIgnorePatterns is the fixed set of language and tooling artifacts
// unconditionally merged into the exclude set. An include pattern naming the
// same path overrides it.
var DefaultIgnorePatterns = []string{
	// Python
	"*.pyc", "*.pyo", "*.pyd", "__pycache__", ".pytest_cache",
	".coverage", ".tox", ".nox", ".mypy_cache", ".ruff_cache",
	".hypothesis", "poetry.lock", "Pipfile.lock",
	// JavaScript / Node
	"node_modules", "bower_components", "package-lock.json", "yarn.lock",
	".npm", ".yarn", ".pnpm-store", "bun.lock", "bun.lockb",
	// Go
	"vendor", "go.sum",
	// Java
	"*.class", "*.jar", "*.war", "*.ear", ".gradle", "gradle-app.setting",
	".classpath", ".project", ".settings",
	// C / C++ / generic build output
	"*.o", "*.obj", "*.dll", "*.dylib", "*.exe", "*.lib", "*.out", "*.a",
	"*.pdb", "build", "dist", "target", "bin", "obj",
	// Rust
	"Cargo.lock", "**/*.rs.bk",
	// Ruby
	"*.gem", ".bundle", "Gemfile.lock", ".ruby-version",
	// Swift / Xcode
	".build", "*.xcodeproj", "*.xcworkspace", "xcuserdata", ".swiftpm",
	// Version control metadata
	".git", ".svn", ".hg", ".gitignore", ".gitattributes", ".gitmodules",
	// Images and media
	"*.svg", "*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.webp",
	"*.pdf", "*.mov", "*.mp4", "*.mp3", "*.wav",
	// Virtual environments
	"venv", ".venv", "env", "virtualenv",
	// IDEs and editors
	".idea", ".vscode", ".vs", "*.swo", "*.swn", "*.swp",
	// OS artifacts
	".DS_Store", "Thumbs.db", "desktop.ini",
	// Temporary and cache files
	"*.bak", "*.tmp", "*.temp", "*.cache", ".sass-cache", ".eslintcache",
	// Minified and generated web assets
	"*.min.js", "*.min.css", "*.map", ".next", ".nuxt", ".svelte-kit",
	// Infrastructure
	".terraform", "*.tfstate", "*.tfstate.backup",
}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gitingest"
	}
	return filepath.Join(home, ".gitingest")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path: DefaultOutputPath,
		},
		Limits: LimitsConfig{
			MaxFileSize:   "10MB",
			MaxFiles:      DefaultMaxFiles,
			MaxTotalBytes: "500MB",
			MaxDepth:      DefaultMaxDepth,
		},
		Clone: CloneConfig{
			Timeout: DefaultCloneTimeout,
		},
		Cache: CacheConfig{
			Enabled: DefaultCacheEnabled,
			TTL:     DefaultCacheTTL,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tokens: TokensConfig{
			Encoding: DefaultTokenEncoding,
		},
		Hosts: append([]string(nil), KnownHosts...),
	}
}
