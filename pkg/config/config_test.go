package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, "docNo", cfg.Indexer.DocIDColumn)
	assert.Equal(t, []string{FormatBinary, FormatText}, cfg.Indexer.Formats)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yml := []byte(`
indexer:
  workers: 4
  language: turkish
  formats: [text]
search:
  k1: 0.75
  b: 0.75
  format: text
`)
	require.NoError(t, os.WriteFile(path, yml, 0o644))
	t.Setenv("CS_REDIS_ADDR", "cache:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, "turkish", cfg.Indexer.Language)
	assert.Equal(t, 0.75, cfg.Search.K1)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Indexer.Workers = -1 }},
		{"no formats", func(c *Config) { c.Indexer.Formats = nil }},
		{"unknown format", func(c *Config) { c.Indexer.Formats = []string{"pickle"} }},
		{"b out of range", func(c *Config) { c.Search.B = 1.5 }},
		{"limit above max", func(c *Config) { c.Search.DefaultLimit = 500 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
