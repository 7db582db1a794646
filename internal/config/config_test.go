package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	return filepath.Join(dir, appName)
}

func TestLoadMergedWithoutProfile(t *testing.T) {
	root := isolate(t)

	cfg, source, err := LoadMerged(Options{Workers: 8})
	require.NoError(t, err)

	assert.Contains(t, source, "default config in memory")
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ".", cfg.Output)
	assert.Equal(t, 10, cfg.CatalogTimeout)
	assert.Equal(t, 15, cfg.ContentTimeout)
	assert.Zero(t, cfg.Retries)
	assert.Equal(t, filepath.Join(root, "library.db"), cfg.LibraryPath)
}

func TestLoadMergedIgnoreConfig(t *testing.T) {
	isolate(t)
	_, err := InitDefaultConfig("yaml")
	require.NoError(t, err)

	cfg, source, err := LoadMerged(Options{IgnoreConfig: true})
	require.NoError(t, err)
	assert.Equal(t, "(ignored config)", source)
	assert.Equal(t, 5, cfg.Workers)
}

func TestYAMLProfile(t *testing.T) {
	isolate(t)

	path, err := InitDefaultConfig("yaml")
	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))

	require.NoError(t, os.WriteFile(path, []byte(`
output: /books
workers: 3
rate_limit: 2.5
default_range: 5-12
cloudflare_bypass: true
`), 0o644))

	cfg, source, err := LoadMerged(Options{Output: "/override"})
	require.NoError(t, err)

	assert.Equal(t, path, source)
	assert.Equal(t, "/override", cfg.Output)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "5-12", cfg.DefaultRange)
	assert.True(t, cfg.CloudflareBypass)
	assert.Equal(t, 15, cfg.ContentTimeout)
}

func TestTOMLProfile(t *testing.T) {
	isolate(t)

	path, err := CreateEmptyConfig("jj", "toml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`
output = "/novels"
workers = 2
retries = 1
epub = true
`), 0o644))
	require.NoError(t, SwitchConfig("jj"))

	cfg, source, err := LoadMerged(Options{})
	require.NoError(t, err)

	assert.Equal(t, path, source)
	assert.Equal(t, "/novels", cfg.Output)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 1, cfg.Retries)
	assert.True(t, cfg.EPUB)
}

func TestSaveLoadRoundTripTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.toml")
	in := DefaultConfig()
	in.Cookie = "a=1"
	in.Workers = 9

	require.NoError(t, Save(in, path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "p.json"))
	assert.Error(t, err)
}

func TestPrintHidesCookie(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cookie = "secret=1"

	var buf bytes.Buffer
	cfg.Print(&buf)

	assert.Contains(t, buf.String(), "-cookie: (set)")
	assert.NotContains(t, buf.String(), "secret")
}

func TestRetriesOverride(t *testing.T) {
	isolate(t)

	path, err := CreateEmptyConfig("qd", "yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("retries: 3\n"), 0o644))
	require.NoError(t, SwitchConfig("qd"))

	cfg, _, err := LoadMerged(Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retries)

	zero := 0
	cfg, _, err = LoadMerged(Options{Retries: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Retries)

	two := 2
	cfg, _, err = LoadMerged(Options{IgnoreConfig: true, Retries: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Retries)

	negative := -1
	cfg, _, err = LoadMerged(Options{Retries: &negative})
	require.NoError(t, err)
	assert.Zero(t, cfg.Retries)
}
