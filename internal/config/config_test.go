package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/store"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("format", DefaultFormat, "")
	fs.Bool("verbose", false, "")
	fs.String("db", "", "")
	fs.String("driver", "", "")
	fs.String("log-level", "", "")
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livedb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultFormat, cfg.Format)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, store.DefaultDriver, cfg.Store.Driver)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Empty(t, cfg.File)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
format: json
store:
  path: /tmp/models.db
  driver: sqlite
log:
  level: debug
  format: json
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "/tmp/models.db", cfg.Store.Path)
	assert.Equal(t, store.DriverPureGo, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDiscoversFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "livedb.yml"), []byte("store:\n  path: found.db\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "livedb.yml", cfg.File)
	assert.Equal(t, "found.db", cfg.Store.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  path: file.db\n")
	t.Setenv("LIVEDB_STORE_PATH", "env.db")
	t.Setenv("LIVEDB_LOG_LEVEL", "info")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("LIVEDB_STORE_PATH", "env.db")
	t.Setenv("LIVEDB_STORE_DRIVER", store.DriverPureGo)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--db", "flag.db", "--format", "json"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.Store.Path)
	assert.Equal(t, "json", cfg.Format)
	// Unchanged flags leave lower layers alone.
	assert.Equal(t, store.DriverPureGo, cfg.Store.Driver)
}

func TestLoadUnchangedFlagsKeepDefaults(t *testing.T) {
	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Format: "text",
			Store:  StoreConfig{Path: "x.db", Driver: store.DriverCGO},
			Log:    LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, errSubstr: "invalid format"},
		{name: "bad driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, errSubstr: "invalid store.driver"},
		{name: "empty path", mutate: func(c *Config) { c.Store.Path = "" }, errSubstr: "store.path"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, errSubstr: "invalid log.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "yaml" }, errSubstr: "invalid log.format"},
		{name: "verbose ignores level", mutate: func(c *Config) { c.Verbose = true; c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("text at level", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{Log: LogConfig{Level: "info", Format: "text"}}
		logger := cfg.Logger(&buf)

		logger.Debug("hidden")
		logger.Info("shown", "k", "v")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.Contains(t, buf.String(), "k=v")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{Log: LogConfig{Level: "warn", Format: "json"}}
		cfg.Logger(&buf).Warn("careful")
		assert.Contains(t, buf.String(), `"msg":"careful"`)
	})

	t.Run("verbose forces debug", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{Verbose: true, Log: LogConfig{Level: "error", Format: "text"}}
		cfg.Logger(&buf).Debug("detail")
		assert.Contains(t, buf.String(), "msg=detail")
	})
}
