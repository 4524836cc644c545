package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unitCmd = &cobra.Command{
	Use:   "unit <corpus> <name>",
	Short: "Force re-conversion of one named unit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEnv(args[0], true)
		if err != nil {
			return err
		}
		defer e.close()

		name := args[1]
		if err := e.driver.ForceUnit(cmd.Context(), e.units, name); err != nil {
			return fmt.Errorf("convert %s: %w", name, err)
		}

		fmt.Printf("converted %s\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unitCmd)
}
