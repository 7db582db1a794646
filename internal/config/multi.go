package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	appName      = "noveld"
	defaultLabel = "Default"
)

var (
	ErrNoConfig      = errors.New("no config selected")
	ErrConfigMissing = errors.New("config does not exist")
	ErrConfigExists  = errors.New("config already exists")
)

var profileExts = []string{".yaml", ".yml", ".toml"}

func ConfigRoot() string {
	// Windows
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, appName)
	}

	// Linux/macOS XDG
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0o755)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("invalid label %q", label)
	}

	return nil
}

func normalizeExt(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ".yaml", nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, e := range profileExts {
		if e == ext {
			return ext, nil
		}
	}

	return "", fmt.Errorf("unsupported config format %q (use yaml or toml)", strings.TrimPrefix(ext, "."))
}

// ProfilePath returns the file backing label, whatever its format.
func ProfilePath(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}

	for _, ext := range profileExts {
		p := filepath.Join(ConfigsDir(), label+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrConfigMissing, label)
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(CurrentLabelFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil {
		return "", err
	}
	if label == "" {
		return "", ErrNoConfig
	}

	return ProfilePath(label)
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(ConfigsDir())
	if err != nil {
		return nil, err
	}

	activeLabel, _ := CurrentLabel()
	var out []ConfigInfo

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if _, err := formatOf(name); err != nil {
			continue
		}

		label := strings.TrimSuffix(name, filepath.Ext(name))
		out = append(out, ConfigInfo{
			Label:  label,
			Path:   filepath.Join(ConfigsDir(), name),
			Active: label == activeLabel,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func SwitchConfig(label string) error {
	if err := ensureDirs(); err != nil {
		return err
	}
	if _, err := ProfilePath(label); err != nil {
		return err
	}

	return os.WriteFile(CurrentLabelFile(), []byte(label), 0o644)
}

// AddConfig imports srcPath as a new profile, keeping its format.
func AddConfig(label, srcPath string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}
	if _, err := ProfilePath(label); err == nil {
		return fmt.Errorf("%w: %q", ErrConfigExists, label)
	}

	ext, err := normalizeExt(filepath.Ext(srcPath))
	if err != nil {
		return err
	}

	if _, err := Load(srcPath); err != nil {
		return err
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigsDir(), label+ext), raw, 0o644)
}

// CreateEmptyConfig writes a default profile in the format named by ext
// ("yaml" or "toml").
func CreateEmptyConfig(label, ext string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}
	if _, err := ProfilePath(label); err == nil {
		return "", fmt.Errorf("%w: %q", ErrConfigExists, label)
	}

	ext, err := normalizeExt(ext)
	if err != nil {
		return "", err
	}

	path := filepath.Join(ConfigsDir(), label+ext)
	if err := Save(DefaultConfig(), path); err != nil {
		return "", err
	}

	return path, nil
}

func RenameConfig(oldLabel, newLabel string) error {
	if err := checkLabel(newLabel); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}

	oldPath, err := ProfilePath(oldLabel)
	if err != nil {
		return err
	}
	if _, err := ProfilePath(newLabel); err == nil {
		return fmt.Errorf("%w: %q", ErrConfigExists, newLabel)
	}

	newPath := filepath.Join(ConfigsDir(), newLabel+filepath.Ext(oldPath))
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	active, _ := CurrentLabel()
	if active == oldLabel {
		return os.WriteFile(CurrentLabelFile(), []byte(newLabel), 0o644)
	}

	return nil
}

// RemoveConfig deletes a profile. Removing the active one switches back to
// Default, which is reported by the first result.
func RemoveConfig(label string) (bool, error) {
	if label == defaultLabel {
		return false, errors.New("cannot remove the Default config")
	}
	if err := ensureDirs(); err != nil {
		return false, err
	}

	path, err := ProfilePath(label)
	if err != nil {
		return false, err
	}

	switched := false
	active, _ := CurrentLabel()
	if active == label {
		if err := SwitchConfig(defaultLabel); err != nil {
			return false, fmt.Errorf("failed switching to Default: %w", err)
		}
		switched = true
	}

	return switched, os.Remove(path)
}

// ResetConfig overwrites a profile with the defaults, keeping its format.
func ResetConfig(label string) (string, error) {
	path, err := ProfilePath(label)
	if err != nil {
		return "", err
	}

	return path, Save(DefaultConfig(), path)
}

// InitDefaultConfig creates the Default profile and makes it active. When it
// already exists it is activated and os.ErrExist is returned with its path.
func InitDefaultConfig(ext string) (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	if existing, err := ProfilePath(defaultLabel); err == nil {
		_ = os.WriteFile(CurrentLabelFile(), []byte(defaultLabel), 0o644)
		return existing, os.ErrExist
	}

	ext, err := normalizeExt(ext)
	if err != nil {
		return "", err
	}

	defPath := filepath.Join(ConfigsDir(), defaultLabel+ext)
	if err := Save(DefaultConfig(), defPath); err != nil {
		return "", err
	}

	_ = os.WriteFile(CurrentLabelFile(), []byte(defaultLabel), 0o644)
	return defPath, nil
}
