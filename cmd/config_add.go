package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var (
	flagAddFormat  string
	flagResetForce bool
)

var configAddCmd = &cobra.Command{
	Use:   "add <label> [file]",
	Short: "Add a config, imported from a YAML/TOML file or created with defaults",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		out := cmd.OutOrStdout()

		if len(args) == 2 {
			if err := config.AddConfig(label, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %s as %q\n", args[1], label)
			return nil
		}

		path, err := config.CreateEmptyConfig(label, flagAddFormat)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Created %q at %s\n", label, path)
		return nil
	},
}

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RenameConfig(args[0], args[1]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q\n", args[0], args[1])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset <label>",
	Short: "Overwrite a config with the defaults",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagResetForce && !confirm(fmt.Sprintf("Reset %q to defaults", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		path, err := config.ResetConfig(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Reset:", path)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&flagAddFormat, "format", "yaml", "format of a new profile: yaml or toml")
	configResetCmd.Flags().BoolVarP(&flagResetForce, "force", "f", false, "reset without asking")

	configCmd.AddCommand(configAddCmd, configRenameCmd, configResetCmd)
}
