package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Render the companion notes for a converted unit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		name := args[0]
		path := filepath.Join(cfg.Output.Dir, "notes", name+".md")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no notes for %q at %s (is notes retention enabled?)", name, path)
			}
			return err
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}

		out, err := r.Render(string(data))
		if err != nil {
			return fmt.Errorf("render notes: %w", err)
		}

		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
