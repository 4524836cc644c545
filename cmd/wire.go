package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"portforge/internal/artifact"
	"portforge/internal/assist"
	"portforge/internal/config"
	"portforge/internal/corpus"
	"portforge/internal/logger"
	"portforge/internal/pipeline"
	"portforge/internal/progress"
	"portforge/internal/prompt"
)

// env bundles everything a command needs to drive the pipeline.
type env struct {
	cfg    config.Config
	units  []corpus.Unit
	driver *pipeline.Driver
	store  *progress.SQLiteStore
	lock   *progress.Lock
}

func (e *env) close() {
	if e.lock != nil {
		e.lock.Release()
	}
	if e.store != nil {
		e.store.Close()
	}
}

// buildEnv scans the corpus, opens and locks the progress store, and
// wires the driver. withLock is false for read-only commands.
func buildEnv(corpusRoot string, withLock bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	units, err := corpus.Scan(corpusRoot, cfg.Corpus.SourceExt)
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(cfg.Output.Dir, ".portforge")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	store, err := progress.Open(filepath.Join(stateDir, "progress.db"))
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, units: units, store: store}

	if withLock {
		lock, err := progress.AcquireLock(filepath.Join(stateDir, "run.lock"))
		if err != nil {
			store.Close()
			return nil, err
		}
		e.lock = lock
	}

	embedder := assist.NewEmbedder(cfg.Assistant.URL, cfg.Assistant.EmbedModel)

	// Stored example vectors are only comparable within one embedding
	// model; drop them when the model changes.
	if lastModel, err := store.GetMeta("embed_model"); err == nil {
		if lastModel != "" && lastModel != embedder.Model() {
			logger.Warn("embedding model changed from %q to %q, clearing stored vectors", lastModel, embedder.Model())
			if err := store.ClearEmbeddings(); err != nil {
				e.close()
				return nil, err
			}
		}
		if err := store.SetMeta("embed_model", embedder.Model()); err != nil {
			e.close()
			return nil, err
		}
	}

	client := assist.NewRetrier(
		assist.NewOllamaClient(cfg.Assistant.URL, cfg.Assistant.Model),
		cfg.Retry.Attempts,
		cfg.Retry.BaseDelay(),
		cfg.Retry.MaxDelay(),
		cfg.Assistant.Timeout(),
	)

	e.driver = &pipeline.Driver{
		Store:  store,
		Client: client,
		Writer: artifact.NewWriter(cfg.Output.Dir, cfg.Output.Ext, cfg.Output.KeepNotes),
		Builder: &prompt.Builder{
			SourceLanguage: cfg.Corpus.SourceLanguage,
			TargetLanguage: cfg.Corpus.TargetLanguage,
			Examples:       cfg.Output.Examples,
		},
		Embedder: embedder,
	}

	return e, nil
}

// printStats writes the run summary and returns an error when any unit
// was skipped, so the process exits non-zero.
func printStats(stats *pipeline.Stats) error {
	fmt.Printf("\n%d units: %d converted, %d already done, %d skipped\n",
		stats.Total, stats.Converted, stats.AlreadyDone, len(stats.Skipped))
	for _, s := range stats.Skipped {
		fmt.Printf("  skipped %-12s [%s] %v\n", s.Name, s.Reason, s.Err)
	}
	if !stats.Clean() {
		return fmt.Errorf("%d units skipped", len(stats.Skipped))
	}
	return nil
}
