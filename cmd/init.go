package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter portforge.toml to the working directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "portforge.toml"
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
