package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.ListConfigs()
		if err != nil {
			return fmt.Errorf("cannot read configs directory: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No configs yet. Run `noveld config init` to create one.")
			return nil
		}

		rows := make([][]string, 0, len(list))
		for _, c := range list {
			active := ""
			if c.Active {
				active = "yes"
			}
			rows = append(rows, []string{c.Label, c.Path, active})
		}

		fmt.Fprintln(out, renderTable([]string{"Label", "Path", "Active"}, rows, nil))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
}
