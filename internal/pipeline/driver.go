// Package pipeline composes corpus scanning, ordering, conversion,
// splitting, artifact writing, and progress tracking into one resumable
// run. One unit's failure never blocks the rest; only corpus-wide or
// store-wide faults abort a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"portforge/internal/artifact"
	"portforge/internal/assist"
	"portforge/internal/corpus"
	"portforge/internal/logger"
	"portforge/internal/progress"
	"portforge/internal/prompt"
	"portforge/internal/splitter"
)

// ProgressFunc reports per-unit progress during a run.
type ProgressFunc func(unit string, processed, total int)

// Driver runs the porting pipeline. Units are processed strictly
// sequentially, smallest first; the assistant invocation is the only
// operation that suspends.
type Driver struct {
	Store    progress.Store
	Client   assist.Client
	Writer   *artifact.Writer
	Builder  *prompt.Builder
	Embedder prompt.Embedder

	// OnProgress, if set, is called after each unit is handled.
	OnProgress ProgressFunc
}

// Run processes every unit not yet converted, in deterministic order.
// It reconciles the progress store against the output tree first, so a
// crash between artifact write and progress mark never causes a
// re-conversion. The returned stats are valid even when err is non-nil.
func (d *Driver) Run(ctx context.Context, units []corpus.Unit) (*Stats, error) {
	ordered := corpus.Order(units)
	stats := &Stats{Total: len(ordered)}

	names := make([]string, len(ordered))
	for i, u := range ordered {
		names[i] = u.Name
	}
	adopted, demoted, err := d.Store.Reconcile(names, d.Writer)
	if err != nil {
		return stats, err
	}
	if adopted > 0 || demoted > 0 {
		logger.Info("reconciled progress store: %d adopted, %d demoted", adopted, demoted)
	}

	for i, unit := range ordered {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		done, err := d.Store.IsConverted(unit.Name)
		if err != nil {
			return stats, err
		}
		if done {
			stats.AlreadyDone++
			d.report(unit.Name, i+1, stats.Total)
			continue
		}

		if err := d.convertUnit(ctx, unit); err != nil {
			if fatal(err) {
				return stats, err
			}
			reason := classify(err)
			logger.Warn("skipping %s (%s): %v", unit.Name, reason, err)
			stats.Skipped = append(stats.Skipped, Skip{Name: unit.Name, Reason: reason, Err: err})
			d.report(unit.Name, i+1, stats.Total)
			continue
		}

		stats.Converted++
		d.report(unit.Name, i+1, stats.Total)
	}

	return stats, nil
}

// ForceUnit re-converts one named unit regardless of its progress
// record.
func (d *Driver) ForceUnit(ctx context.Context, units []corpus.Unit, name string) error {
	for _, unit := range units {
		if unit.Name != name {
			continue
		}
		if err := d.Store.Unmark(name); err != nil {
			return err
		}
		return d.convertUnit(ctx, unit)
	}
	return fmt.Errorf("%w: unit %q not in corpus", corpus.ErrDiscovery, name)
}

// convertUnit runs one unit through invoke → split → write → record.
// Progress is marked only after the artifact is durably on disk.
func (d *Driver) convertUnit(ctx context.Context, unit corpus.Unit) error {
	logger.Debug("converting %s (%d lines)", unit.Name, unit.Lines)

	examples, vec := d.Builder.Select(ctx, d.Store, d.Embedder, unit)
	msgs := d.Builder.Build(unit, examples)

	raw, err := d.Client.Convert(ctx, msgs)
	if err != nil {
		return err
	}

	res, err := splitter.Split(unit.Name, raw)
	if err != nil {
		return err
	}

	path, err := d.Writer.Write(res)
	if err != nil {
		return err
	}

	if err := d.Store.MarkConverted(unit.Name, path); err != nil {
		return err
	}

	// Few-shot material is enrichment; a failure here costs later units
	// an example, not this unit its artifact.
	if err := d.Store.PutExample(unit.Name, unit.Source, res.Code, vec); err != nil {
		logger.Warn("example for %s not stored: %v", unit.Name, err)
	}

	logger.Info("converted %s -> %s", unit.Name, path)
	return nil
}

func (d *Driver) report(name string, processed, total int) {
	if d.OnProgress != nil {
		d.OnProgress(name, processed, total)
	}
}

// fatal reports errors that must abort the whole run rather than skip a
// unit.
func fatal(err error) bool {
	return errors.Is(err, progress.ErrStore) ||
		errors.Is(err, corpus.ErrDiscovery) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify maps a unit-scoped failure to its reason code.
func classify(err error) string {
	switch {
	case errors.Is(err, assist.ErrRefusal):
		return ReasonRefusal
	case errors.Is(err, assist.ErrInvocation):
		return ReasonInvocation
	case errors.Is(err, splitter.ErrMalformed):
		return ReasonMalformed
	case errors.Is(err, artifact.ErrWrite):
		return ReasonWrite
	default:
		return ReasonUnknown
	}
}
