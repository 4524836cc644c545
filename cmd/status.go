package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"portforge/internal/corpus"
)

var statusCmd = &cobra.Command{
	Use:   "status <corpus>",
	Short: "Show per-unit conversion state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEnv(args[0], false)
		if err != nil {
			return err
		}
		defer e.close()

		converted := 0
		for _, u := range corpus.Order(e.units) {
			done, err := e.store.IsConverted(u.Name)
			if err != nil {
				return err
			}
			mark := " "
			if done {
				mark = "x"
				converted++
			}
			fmt.Printf("  [%s] %-16s %5d lines\n", mark, u.Name, u.Lines)
		}

		fmt.Printf("\n%d/%d converted\n", converted, len(e.units))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
