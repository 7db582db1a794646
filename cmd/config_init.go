package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var (
	flagInitFormat string
	flagInitYes    bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if existing, err := config.ProfilePath("Default"); err == nil {
			fmt.Fprintln(out, "Configuration already exists at:")
			fmt.Fprintln(out, "  ", existing)
			fmt.Fprintln(out, "Use `noveld config reset Default` to recreate it.")
			return nil
		}

		fmt.Fprintf(out, "Configuration will be saved as %s under:\n  %s\n\n", flagInitFormat, config.ConfigsDir())
		fmt.Fprintln(out, "Default configuration:")
		config.DefaultConfig().Print(out)
		fmt.Fprintln(out)

		if !flagInitYes && !confirm("Create Default config") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		path, err := config.InitDefaultConfig(flagInitFormat)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Fprintln(out, "Config created at:", path)
		fmt.Fprintln(out, "This config is now active (label: Default).")
		return nil
	},
}

// confirm asks a yes/no question; anything but an explicit yes is a no.
func confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	return err == nil
}

func init() {
	configInitCmd.Flags().StringVar(&flagInitFormat, "format", "yaml", "profile format: yaml or toml")
	configInitCmd.Flags().BoolVarP(&flagInitYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(configInitCmd)
}
