package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorkers        = 5
	defaultCatalogTimeout = 10
	defaultContentTimeout = 15
)

type Config struct {
	Output         string `yaml:"output" toml:"output"`
	Workers        int    `yaml:"workers" toml:"workers"`
	CatalogTimeout int    `yaml:"catalog_timeout_seconds" toml:"catalog_timeout_seconds"`
	ContentTimeout int    `yaml:"content_timeout_seconds" toml:"content_timeout_seconds"`
	Retries        int    `yaml:"retries" toml:"retries"`
	// RateLimit is requests per second across all workers; 0 is unlimited.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`

	Debug     bool   `yaml:"debug" toml:"debug"`
	LogFormat string `yaml:"log_format" toml:"log_format"`

	DefaultURL   string `yaml:"default_url" toml:"default_url"`
	DefaultRange string `yaml:"default_range" toml:"default_range"`

	Cookie           string `yaml:"cookie" toml:"cookie"`
	CookieFile       string `yaml:"cookie_file" toml:"cookie_file"`
	UserAgent        string `yaml:"user_agent" toml:"user_agent"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass" toml:"cloudflare_bypass"`

	LibraryPath string `yaml:"library_path" toml:"library_path"`
	EPUB        bool   `yaml:"epub" toml:"epub"`
}

// Options are command-line overrides. Zero values leave the file's value.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	Workers          int
	Retries          *int // nil leaves the file's value; set to override, 0 included
	RateLimit        float64
	DefaultURL       string
	DefaultRange     string
	Cookie           string
	CookieFile       string
	UserAgent        string
	CloudflareBypass bool
	LibraryPath      string
	EPUB             bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:         ".",
		Workers:        defaultWorkers,
		CatalogTimeout: defaultCatalogTimeout,
		ContentTimeout: defaultContentTimeout,
		LogFormat:      "text",
	}
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// Save writes cfg to path, as YAML or TOML depending on the extension.
func Save(cfg *Config, path string) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatTOML:
		data, err = toml.Marshal(cfg)
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func Load(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	switch f {
	case formatTOML:
		err = toml.Unmarshal(b, c)
	default:
		err = yaml.Unmarshal(b, c)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return c, nil
}

// LoadMerged reads the active profile, applies opts over it and fills in
// defaults. The second result names where the settings came from.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || (err == nil && activePath == "") {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `noveld config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.Retries != nil {
		c.Retries = *o.Retries
	}
	if o.RateLimit != 0 {
		c.RateLimit = o.RateLimit
	}
	if o.Debug {
		c.Debug = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.LibraryPath != "" {
		c.LibraryPath = o.LibraryPath
	}
	if o.EPUB {
		c.EPUB = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.CatalogTimeout <= 0 {
		c.CatalogTimeout = defaultCatalogTimeout
	}
	if c.ContentTimeout <= 0 {
		c.ContentTimeout = defaultContentTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LibraryPath == "" {
		c.LibraryPath = filepath.Join(ConfigRoot(), "library.db")
	}
}

func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, " -output: %s\n", c.Output)
	fmt.Fprintf(w, " -workers: %d\n", c.Workers)
	fmt.Fprintf(w, " -catalog_timeout_seconds: %d\n", c.CatalogTimeout)
	fmt.Fprintf(w, " -content_timeout_seconds: %d\n", c.ContentTimeout)
	if c.Retries > 0 {
		fmt.Fprintf(w, " -retries: %d\n", c.Retries)
	}
	if c.RateLimit > 0 {
		fmt.Fprintf(w, " -rate_limit: %.2f/s\n", c.RateLimit)
	}
	if c.Debug {
		fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	fmt.Fprintf(w, " -log_format: %s\n", c.LogFormat)
	if c.DefaultURL != "" {
		fmt.Fprintf(w, " -url: %s\n", c.DefaultURL)
	}
	if c.DefaultRange != "" {
		fmt.Fprintf(w, " -range: %s\n", c.DefaultRange)
	}
	if c.Cookie != "" {
		fmt.Fprintf(w, " -cookie: (set)\n")
	}
	if c.CookieFile != "" {
		fmt.Fprintf(w, " -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Fprintf(w, " -user_agent: %s\n", c.UserAgent)
	}
	if c.CloudflareBypass {
		fmt.Fprintf(w, " -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	fmt.Fprintf(w, " -library_path: %s\n", c.LibraryPath)
	if c.EPUB {
		fmt.Fprintf(w, " -epub: %t\n", c.EPUB)
	}
}
