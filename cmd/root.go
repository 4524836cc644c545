package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"portforge/internal/config"
	"portforge/internal/logger"
)

var (
	flagConfig  string
	flagVerbose bool
	flagOut     string
	flagOllama  string
	flagModel   string
)

var rootCmd = &cobra.Command{
	Use:   "portforge [corpus]",
	Short: "Assistant-driven porting of command-line utilities, one at a time",
	Long: `portforge walks a corpus of source utilities, converts each one through
an external assistant, and writes the resulting code into an output
tree. Progress is tracked so runs are resumable and idempotent.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runDashboard(args[0])
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads portforge.toml and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagOut != "" {
		cfg.Output.Dir = flagOut
	}
	if flagOllama != "" {
		cfg.Assistant.URL = flagOllama
	}
	if flagModel != "" {
		cfg.Assistant.Model = flagModel
	}
	return cfg, nil
}

func init() {
	cobra.OnInitialize(func() { logger.SetVerbose(flagVerbose) })

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./portforge.toml or ~/.portforge/portforge.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagOut, "out", "", "output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "assistant base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "assistant model (overrides config)")
}
