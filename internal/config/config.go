// Package config loads the hvfhir command configuration from defaults, an
// optional config file and HVFHIR_ environment variables.
package config

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/logger"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HVFHIR"

// Config is the command configuration.
type Config struct {
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	DictDir     string `mapstructure:"DICT_DIR"`
	DictDB      string `mapstructure:"DICT_DB"`
	CacheSize   int    `mapstructure:"CACHE_SIZE"`
	Workers     int    `mapstructure:"WORKERS"`
	StrictUnits bool   `mapstructure:"STRICT_UNITS"`
}

var keys = []string{
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DICT_DIR",
	"DICT_DB",
	"CACHE_SIZE",
	"WORKERS",
	"STRICT_UNITS",
}

// Load reads the configuration. An empty file skips the config file; a named
// file that cannot be read is an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DICT_DIR", "")
	v.SetDefault("DICT_DB", "")
	v.SetDefault("CACHE_SIZE", 1024)
	v.SetDefault("WORKERS", runtime.NumCPU())
	v.SetDefault("STRICT_UNITS", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be \"console\" or \"json\", got %q", c.LogFormat)
	}
	if c.DictDir != "" && c.DictDB != "" {
		return fmt.Errorf("DICT_DIR and DICT_DB are mutually exclusive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must be >= 0, got %d", c.CacheSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1, got %d", c.Workers)
	}
	return nil
}

// Logger builds the logger the configuration selects, writing to w.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	if c.LogFormat == "json" {
		return logger.New(w, level)
	}
	return logger.NewConsole(w, level)
}

// Options returns the library options for the configuration.
func (c *Config) Options(log zerolog.Logger) []hvfhir.Option {
	return []hvfhir.Option{
		hvfhir.WithCacheSize(c.CacheSize),
		hvfhir.WithWorkerCount(c.Workers),
		hvfhir.WithStrictUnits(c.StrictUnits),
		hvfhir.WithLogger(log),
	}
}

// Source opens the dictionary source the configuration names: a SQLite
// database, a directory of flat files, or the embedded dictionaries. The
// returned close function releases the database, if any.
func (c *Config) Source() (vocab.DictionarySource, func() error, error) {
	switch {
	case c.DictDB != "":
		src, err := vocab.OpenSQLite(c.DictDB)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case c.DictDir != "":
		return vocab.DirSource(c.DictDir), noClose, nil
	default:
		return vocab.EmbeddedSource(), noClose, nil
	}
}

func noClose() error { return nil }
