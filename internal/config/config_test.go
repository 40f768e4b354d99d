package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/tracing"
)

// isolate points the home directory and working directory at a temp dir
// so user and project config files cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.NotEmpty(t, cfg.Database.Path)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, 10*time.Minute, cfg.Compiler.CacheTTL)
	require.False(t, cfg.Schemas.RejectElementCycles)
	require.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	require.NoError(t, cfg.Validate())
}

func TestValidateDatabase(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{name: "sqlite", db: DatabaseConfig{Driver: DriverSQLite, Path: "catalog.db"}},
		{name: "empty driver is sqlite", db: DatabaseConfig{Path: "catalog.db"}},
		{name: "sqlite without path", db: DatabaseConfig{Driver: DriverSQLite}, wantErr: "database.path is required"},
		{name: "postgres", db: DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/specforge"}},
		{name: "postgres without dsn", db: DatabaseConfig{Driver: DriverPostgres}, wantErr: "database.dsn is required"},
		{name: "unknown driver", db: DatabaseConfig{Driver: "mysql"}, wantErr: "database.driver must be"},
		{name: "negative pool", db: DatabaseConfig{Driver: DriverPostgres, DSN: "x", MaxOpenConns: -1}, wantErr: "max_open_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabase(tt.db)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{}))
	require.NoError(t, ValidateTracing(tracing.DefaultConfig()))

	require.ErrorContains(t, ValidateTracing(tracing.Config{SampleRate: 1.5}), "sample_rate")
	require.ErrorContains(t, ValidateTracing(tracing.Config{Exporter: "jaeger"}), "tracing.exporter")

	// Path requirements only apply when enabled.
	require.NoError(t, ValidateTracing(tracing.Config{Exporter: "file"}))
	require.ErrorContains(t, ValidateTracing(tracing.Config{Enabled: true, Exporter: "file"}), "file_path")
	require.ErrorContains(t, ValidateTracing(tracing.Config{Enabled: true, Exporter: "otlp"}), "otlp_endpoint")
}

func TestValidate_CompilerAndWatch(t *testing.T) {
	cfg := Defaults()
	cfg.Compiler.CacheTTL = -time.Second
	require.ErrorContains(t, cfg.Validate(), "compiler.cache_ttl")

	cfg = Defaults()
	cfg.Watch.Debounce = -time.Second
	require.ErrorContains(t, cfg.Validate(), "watch.debounce")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, used, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Empty(t, used)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_DefaultTemplateMatchesDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	cfg, used, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, path, used)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_ProjectFileWins(t *testing.T) {
	dir := isolate(t)

	userDir := filepath.Join(dir, ".config", "specforge")
	require.NoError(t, os.MkdirAll(userDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("compiler:\n  cache_ttl: 1m\n"), 0o600))

	cfg, used, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(userDir, "config.yaml"), used)
	require.Equal(t, time.Minute, cfg.Compiler.CacheTTL)

	require.NoError(t, os.MkdirAll(".specforge", 0o750))
	require.NoError(t, os.WriteFile(LocalConfigPath, []byte("compiler:\n  cache_ttl: 2m\n"), 0o600))

	cfg, used, err = Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, LocalConfigPath, used)
	require.Equal(t, 2*time.Minute, cfg.Compiler.CacheTTL)
}

func TestLoad_FileValues(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	content := `database:
  driver: postgres
  dsn: postgres://localhost/specforge
  max_open_conns: 8
log:
  debug: true
tracing:
  enabled: true
  exporter: otlp
  sample_rate: 0.25
compiler:
  disable_cache: true
schemas:
  reject_element_cycles: true
watch:
  debounce: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, _, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, DatabaseConfig{
		Driver:       DriverPostgres,
		Path:         DefaultDatabasePath(),
		DSN:          "postgres://localhost/specforge",
		MaxOpenConns: 8,
	}, cfg.Database)
	require.True(t, cfg.Log.Debug)
	require.True(t, cfg.Tracing.Enabled)
	require.Equal(t, "localhost:4317", cfg.Tracing.OTLPEndpoint, "unset keys keep defaults")
	require.InDelta(t, 0.25, cfg.Tracing.SampleRate, 1e-9)
	require.True(t, cfg.Compiler.DisableCache)
	require.True(t, cfg.Schemas.RejectElementCycles)
	require.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SPECFORGE_SCHEMAS_REJECT_ELEMENT_CYCLES", "true")
	t.Setenv("SPECFORGE_COMPILER_CACHE_TTL", "90s")
	t.Setenv("SPECFORGE_DATABASE_PATH", "/tmp/override.db")

	cfg, _, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.True(t, cfg.Schemas.RejectElementCycles)
	require.Equal(t, 90*time.Second, cfg.Compiler.CacheTTL)
	require.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	_, _, err := Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "reading config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("database:\n  driver: mysql\n"), 0o600))
	_, _, err = Load(viper.New(), bad)
	require.ErrorContains(t, err, "invalid configuration")
}
