package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <corpus>",
	Short: "Convert every unit not yet ported, smallest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEnv(args[0], true)
		if err != nil {
			return err
		}
		defer e.close()

		e.driver.OnProgress = func(unit string, processed, total int) {
			fmt.Printf("  [%d/%d] %s\n", processed, total, unit)
		}

		fmt.Printf("Porting %d units from %s...\n", len(e.units), args[0])
		start := time.Now()

		stats, err := e.driver.Run(cmd.Context(), e.units)
		if err != nil {
			return err
		}

		fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
		return printStats(stats)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
