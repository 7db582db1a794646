package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/logging"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagLogFormat    string
)

var rootCmd = &cobra.Command{
	Use:           "noveld",
	Short:         "Web novel downloader with resumable per-chapter text output",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the active profile with the persistent flags and opts.
func loadConfig(opts config.Options) (*config.Config, string, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.Debug = flagDebug

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, "", err
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	return cfg, used, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Options{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
	})
}
