package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/vocab"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Positive(t, cfg.Workers)
	assert.False(t, cfg.StrictUnits)
	assert.Empty(t, cfg.DictDir)
	assert.Empty(t, cfg.DictDB)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HVFHIR_LOG_LEVEL", "debug")
	t.Setenv("HVFHIR_LOG_FORMAT", "JSON")
	t.Setenv("HVFHIR_CACHE_SIZE", "0")
	t.Setenv("HVFHIR_WORKERS", "3")
	t.Setenv("HVFHIR_STRICT_UNITS", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.StrictUnits)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "hvfhir.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log_level: warn\ndict_dir: /srv/dicts\nworkers: 2\n"), 0o600))

	t.Setenv("HVFHIR_WORKERS", "5")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/srv/dicts", cfg.DictDir)
	assert.Equal(t, 5, cfg.Workers, "environment overrides the file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HVFHIR_LOG_FORMAT", "xml")
	_, err := Load("")
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{LogLevel: "info", LogFormat: "console", CacheSize: 10, Workers: 1}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"both sources", func(c *Config) { c.DictDir, c.DictDB = "d", "db" }, "mutually exclusive"},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, "CACHE_SIZE"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	c := &Config{LogLevel: "warn", LogFormat: "json"}
	log := c.Logger(&buf)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestConfig_Options(t *testing.T) {
	c := &Config{CacheSize: 7, Workers: 2, StrictUnits: true}
	var buf bytes.Buffer
	o := hvfhir.Apply(c.Options(c.Logger(&buf))...)

	assert.Equal(t, 7, o.ResolverCacheSize)
	assert.Equal(t, 2, o.WorkerCount)
	assert.True(t, o.StrictUnits)
	assert.NotNil(t, o.Logger)
}

func TestConfig_Source(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		src, closeFn, err := (&Config{}).Source()
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &vocab.FSSource{}, src)
	})

	t.Run("sqlite", func(t *testing.T) {
		c := &Config{DictDB: filepath.Join(t.TempDir(), "dict.db")}
		src, closeFn, err := c.Source()
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &vocab.SQLiteSource{}, src)
	})
}
