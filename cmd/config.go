package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config profiles for noveld",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded config from:\n  %s\n\n", used)
		cfg.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
