package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
)

var configEditCmd = &cobra.Command{
	Use:   "edit (optional <config_label>)",
	Short: "Edit current or specified config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 0 {
			var err error
			label, err = config.CurrentLabel()
			if err != nil {
				return fmt.Errorf("failed to get current config label: %w", err)
			}
		} else {
			label = args[0]
		}

		path, err := config.ProfilePath(label)
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}

		editor, err := findEditor()
		if err != nil {
			return err
		}

		cmdExec := exec.Command(editor, path)
		cmdExec.Stdin = os.Stdin
		cmdExec.Stdout = os.Stdout
		cmdExec.Stderr = os.Stderr

		if err := cmdExec.Run(); err != nil {
			return fmt.Errorf("failed to open editor: %w", err)
		}

		if _, err := config.Load(path); err != nil {
			return fmt.Errorf("config %q no longer parses: %w", label, err)
		}

		return nil
	},
}

// findEditor prefers $VISUAL, then $EDITOR, then nvim or vi from PATH.
func findEditor() (string, error) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if e := os.Getenv(env); e != "" {
			return e, nil
		}
	}

	for _, name := range []string{"nvim", "vi"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no editor found, set $EDITOR")
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
