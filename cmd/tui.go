package cmd

import (
	"context"

	"portforge/internal/pipeline"
	"portforge/internal/tui"
)

// runDashboard runs the pipeline under the live dashboard.
func runDashboard(corpusRoot string) error {
	e, err := buildEnv(corpusRoot, true)
	if err != nil {
		return err
	}
	defer e.close()

	stats, err := tui.Run(tui.Config{
		Start: func(ctx context.Context, onProgress pipeline.ProgressFunc) (*pipeline.Stats, error) {
			e.driver.OnProgress = onProgress
			return e.driver.Run(ctx, e.units)
		},
	})
	if err != nil {
		return err
	}
	if stats != nil {
		return printStats(stats)
	}
	return nil
}
