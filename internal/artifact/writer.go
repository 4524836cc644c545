// Package artifact places converted code into the output tree. Each
// unit name maps to exactly one output path, and writes are atomic: a
// failure leaves either the prior artifact or nothing, never a
// truncated file.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"portforge/internal/logger"
	"portforge/internal/splitter"
)

// ErrWrite indicates a filesystem fault while persisting an artifact.
// The unit is skipped and its progress stays unmarked.
var ErrWrite = errors.New("artifact write failed")

const notesDir = "notes"

// Writer persists conversion results under a single output root.
type Writer struct {
	root      string
	ext       string
	keepNotes bool
}

// NewWriter creates a writer rooted at dir. ext is the artifact file
// extension (e.g. ".go"). When keepNotes is set, summary and discussion
// text is written as a companion markdown document.
func NewWriter(dir, ext string, keepNotes bool) *Writer {
	return &Writer{root: dir, ext: ext, keepNotes: keepNotes}
}

// Path returns the canonical artifact path for a unit name. The mapping
// is injective because corpus names are unique.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.root, name+w.ext)
}

// NotesPath returns the companion document path for a unit name.
func (w *Writer) NotesPath(name string) string {
	return filepath.Join(w.root, notesDir, name+".md")
}

// Exists reports whether a durable artifact is present for the unit.
// Progress reconciliation uses this as the ground truth at startup.
func (w *Writer) Exists(name string) bool {
	info, err := os.Stat(w.Path(name))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Write persists the code section to the unit's canonical path and
// returns that path. Companion notes are best-effort: their failure is
// logged but never blocks the code artifact.
func (w *Writer) Write(res splitter.Result) (string, error) {
	path := w.Path(res.Unit)

	code := res.Code
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}

	if err := writeAtomic(path, []byte(code)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}

	if w.keepNotes {
		if err := writeAtomic(w.NotesPath(res.Unit), []byte(renderNotes(res))); err != nil {
			logger.Warn("notes for %s not written: %v", res.Unit, err)
		}
	}

	return path, nil
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a fault mid-write cannot leave a truncated
// file at the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".portforge-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// renderNotes formats the companion document.
func renderNotes(res splitter.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", res.Unit)
	if res.Summary != "" {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(res.Summary)
		b.WriteString("\n")
	}
	if res.Discussion != "" {
		b.WriteString("\n## Discussion\n\n")
		b.WriteString(res.Discussion)
		b.WriteString("\n")
	}
	return b.String()
}
