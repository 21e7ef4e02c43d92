// Package config loads livedb settings from defaults, a livedb.yaml file,
// LIVEDB_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/livedb/internal/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LIVEDB_"

// Defaults.
const (
	DefaultStorePath = "livedb.db"
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultFormat    = "text"
)

// Config file names searched in the working directory when no explicit
// file is given.
var configFileNames = []string{"livedb.yaml", "livedb.yml"}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"db":         "store.path",
	"driver":     "store.driver",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Config is the resolved configuration.
type Config struct {
	Format  string      `koanf:"format"`
	Verbose bool        `koanf:"verbose"`
	Store   StoreConfig `koanf:"store"`
	Log     LogConfig   `koanf:"log"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-"`
}

// StoreConfig selects the SQLite database.
type StoreConfig struct {
	Path   string `koanf:"path"`
	Driver string `koanf:"driver"`
}

// LogConfig configures the slog handler built by Logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load resolves the configuration. cfgFile names an explicit config file;
// when empty, livedb.yaml or livedb.yml in the working directory is used if
// present. Only flags the user changed override lower layers. flags may be
// nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"format":       DefaultFormat,
		"verbose":      false,
		"store.path":   DefaultStorePath,
		"store.driver": store.DefaultDriver,
		"log.level":    DefaultLogLevel,
		"log.format":   DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// LIVEDB_STORE_PATH -> store.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = f.Name
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"text", "json"}, c.Format) {
		return fmt.Errorf("invalid format %q: must be text or json", c.Format)
	}
	if !slices.Contains(store.Drivers(), c.Store.Driver) {
		return fmt.Errorf("invalid store.driver %q: must be one of %v", c.Store.Driver, store.Drivers())
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Logger builds a slog.Logger writing to w. --verbose forces debug level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, err := c.level()
	if err != nil {
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
