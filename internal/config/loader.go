package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults. It uses the
// global viper instance so CLI flag bindings are visible.
func Load() (*Config, error) {
	v := viper.GetViper()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("GITINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("output.json", false)

	v.SetDefault("limits.max_file_size", "10MB")
	v.SetDefault("limits.max_files", DefaultMaxFiles)
	v.SetDefault("limits.max_total_bytes", "500MB")
	v.SetDefault("limits.max_depth", DefaultMaxDepth)

	v.SetDefault("clone.timeout", DefaultCloneTimeout)
	v.SetDefault("clone.prefer_archive", false)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", "")

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("tokens.encoding", DefaultTokenEncoding)

	v.SetDefault("hosts", KnownHosts)
}
