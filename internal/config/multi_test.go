package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaultConfig(t *testing.T) {
	isolate(t)

	path, err := InitDefaultConfig("")
	require.NoError(t, err)
	assert.FileExists(t, path)

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "Default", label)

	again, err := InitDefaultConfig("toml")
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, path, again)
}

func TestListAndSwitch(t *testing.T) {
	isolate(t)

	_, err := InitDefaultConfig("yaml")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("qidian", "toml")
	require.NoError(t, err)

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Default", list[0].Label)
	assert.True(t, list[0].Active)
	assert.Equal(t, "qidian", list[1].Label)
	assert.Equal(t, ".toml", filepath.Ext(list[1].Path))

	require.NoError(t, SwitchConfig("qidian"))
	active, err := ActiveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, list[1].Path, active)

	assert.ErrorIs(t, SwitchConfig("missing"), ErrConfigMissing)
}

func TestCreateEmptyConfigRejectsDuplicates(t *testing.T) {
	isolate(t)

	_, err := CreateEmptyConfig("work", "yaml")
	require.NoError(t, err)

	_, err = CreateEmptyConfig("work", "toml")
	assert.ErrorIs(t, err, ErrConfigExists)

	_, err = CreateEmptyConfig("bad/label", "yaml")
	assert.Error(t, err)

	_, err = CreateEmptyConfig("other", "ini")
	assert.Error(t, err)
}

func TestRenameConfigKeepsActive(t *testing.T) {
	isolate(t)

	_, err := CreateEmptyConfig("old", "toml")
	require.NoError(t, err)
	require.NoError(t, SwitchConfig("old"))

	require.NoError(t, RenameConfig("old", "new"))

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "new", label)

	path, err := ProfilePath("new")
	require.NoError(t, err)
	assert.Equal(t, ".toml", filepath.Ext(path))
}

func TestRemoveConfig(t *testing.T) {
	isolate(t)

	_, err := InitDefaultConfig("yaml")
	require.NoError(t, err)
	_, err = CreateEmptyConfig("temp", "yaml")
	require.NoError(t, err)
	require.NoError(t, SwitchConfig("temp"))

	switched, err := RemoveConfig("temp")
	require.NoError(t, err)
	assert.True(t, switched)

	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "Default", label)

	_, err = RemoveConfig("Default")
	assert.Error(t, err)

	_, err = RemoveConfig("temp")
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestAddConfig(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "shared.yaml")
	require.NoError(t, os.WriteFile(src, []byte("workers: 4\n"), 0o644))

	require.NoError(t, AddConfig("shared", src))
	assert.ErrorIs(t, AddConfig("shared", src), ErrConfigExists)

	path, err := ProfilePath("shared")
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
}

func TestResetConfig(t *testing.T) {
	isolate(t)

	path, err := CreateEmptyConfig("r", "yaml")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("workers: 11\n"), 0o644))

	_, err = ResetConfig("r")
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
}
