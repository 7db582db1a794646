package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var configSwitchCmd = &cobra.Command{
	Use:   "switch [label]",
	Short: "Switch to a different configuration profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			list, err := config.ListConfigs()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return errors.New("no configs available")
			}

			prompt := promptui.Select{
				Label: "Select config",
				Items: list,
				Size:  min(len(list), 10),
				Templates: &promptui.SelectTemplates{
					Label:    "{{ . }}",
					Active:   "▸ {{ .Label | cyan }}{{ if .Active }} (active){{ end }}",
					Inactive: "  {{ .Label }}{{ if .Active }} (active){{ end }}",
					Selected: "{{ .Label | green }}",
					Details:  "{{ .Path | faint }}",
				},
				Searcher: func(input string, i int) bool {
					return strings.Contains(strings.ToLower(list[i].Label), strings.ToLower(input))
				},
			}

			idx, _, err := prompt.Run()
			if err != nil {
				return errors.New("selection cancelled")
			}

			label = list[idx].Label
		}

		if err := config.SwitchConfig(label); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Switched to:", label)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSwitchCmd)
}
