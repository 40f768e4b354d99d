package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/specforge/internal/log"
)

// EnvPrefix prefixes environment overrides, e.g. SPECFORGE_DATABASE_DRIVER.
const EnvPrefix = "SPECFORGE"

// LocalConfigPath is the project-local config file, checked before the user config.
var LocalConfigPath = filepath.Join(".specforge", "config.yaml")

// SetDefaults registers every default on v so that environment overrides
// and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("compiler.cache_ttl", d.Compiler.CacheTTL)
	v.SetDefault("compiler.cleanup_interval", d.Compiler.CleanupInterval)
	v.SetDefault("compiler.disable_cache", d.Compiler.DisableCache)
	v.SetDefault("schemas.reject_element_cycles", d.Schemas.RejectElementCycles)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Load reads configuration into a Config.
//
// Lookup order when cfgFile is empty:
//  1. .specforge/config.yaml (current directory)
//  2. ~/.config/specforge/config.yaml (user config)
//
// A missing file is not an error; defaults and SPECFORGE_* variables still
// apply. The returned path is the file actually read, or "".
func Load(v *viper.Viper, cfgFile string) (Config, string, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "specforge"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	used := v.ConfigFileUsed()
	log.Debug(log.CatConfig, "Loaded config", "path", used, "driver", cfg.Database.Driver)
	return cfg, used, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
