package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
common:
  username: cinephile
  limit: 6
defaults:
  rating: 3.5
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "cinephile", cfg.Common.Username)
	assert.Equal(t, 6, cfg.Common.Limit)
	assert.Equal(t, 2, cfg.Common.MinRecords)
	assert.Equal(t, SourceAuto, cfg.Common.Source)
	assert.Equal(t, 3.5, cfg.Defaults.Rating)
	assert.Equal(t, "2024", cfg.Defaults.Year)
	assert.Equal(t, "https://letterboxd.com", cfg.Site.BaseURL)
	assert.Equal(t, 25, cfg.Proxy.Timeout)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "common: [unterminated")

	_, err := LoadFile(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err, "default config should be written")
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	path := writeFile(t, dir, "custom.yaml", "common:\n  username: from-file\n")

	t.Setenv("LETTERBOXD_USERNAME", "from-env")
	t.Setenv("LETTERBOXD_LIMIT", "9")
	t.Setenv("LETTERBOXD_SOURCE", "RSS")
	t.Setenv("LETTERBOXD_OUTPUT", "out/reviews.json")
	t.Setenv("LBX_PROXY", "http://127.0.0.1:8080")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Common.Username)
	assert.Equal(t, 9, cfg.Common.Limit)
	assert.Equal(t, SourceRSS, cfg.Common.Source)
	assert.Equal(t, "out/reviews.json", cfg.Common.OutputPath)
	assert.True(t, cfg.Proxy.Switch)
	assert.Equal(t, "http", cfg.Proxy.Type)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("LETTERBOXD_USERNAME", "")
	os.Unsetenv("LETTERBOXD_USERNAME")
	writeFile(t, dir, ".env", "LETTERBOXD_USERNAME=dotenv-user\n")
	path := writeFile(t, dir, "config.yaml", "common:\n  username: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-user", cfg.Common.Username)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	path := writeFile(t, dir, "config.yaml", "common:\n  limit: 0\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestBasicConfigValidator(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"negative min records", func(c *Config) { c.Common.MinRecords = -1 }, "min_records"},
		{"unknown source", func(c *Config) { c.Common.Source = "atom" }, "invalid source"},
		{"relative base url", func(c *Config) { c.Site.BaseURL = "letterboxd.com" }, "base_url"},
		{"year not numeric", func(c *Config) { c.Defaults.Year = "20x4" }, "4-digit"},
		{"year out of range", func(c *Config) { c.Defaults.Year = "1700" }, "out of range"},
		{"rating off step", func(c *Config) { c.Defaults.Rating = 3.3 }, "0.5 steps"},
		{"rating too high", func(c *Config) { c.Defaults.Rating = 5.5 }, "0.5 steps"},
		{"template without verb", func(c *Config) { c.Defaults.ReviewTemplate = "Great film" }, "exactly one"},
		{"template with two verbs", func(c *Config) { c.Defaults.ReviewTemplate = "%s and %s" }, "exactly one"},
		{"bad proxy type", func(c *Config) {
			c.Proxy.Switch = true
			c.Proxy.Type = "ftp"
		}, "invalid proxy type"},
		{"poster folder required", func(c *Config) {
			c.Poster.Download = true
			c.Poster.Folder = " "
		}, "poster folder"},
	}

	v := NewBasicConfigValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := v.Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
