package corpus

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize is the largest source file we'll consider (1 MB).
const maxFileSize = 1 << 20

// defaultIgnores are used when no .portforgeignore file exists.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	".portforge",
	"dist",
	"build",
}

// Scan traverses the corpus root and returns one Unit per convertible
// source file with the given extension (e.g. ".py"). It skips symlinks,
// empty and oversized files, and directories matching .portforgeignore
// patterns. Scan is read-only and idempotent: repeated calls over an
// unchanged tree return the same set of units.
func Scan(root, ext string) ([]Unit, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root %s: %v", ErrDiscovery, root, err)
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("%w: stat root %s: %v", ErrDiscovery, absRoot, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDiscovery, absRoot)
	}

	ignores := loadIgnorePatterns(absRoot)

	var units []Unit
	seen := make(map[string]string)

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			rel, _ := filepath.Rel(absRoot, path)
			if matchesIgnore(d.Name(), filepath.ToSlash(rel), ignores) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if filepath.Ext(path) != ext {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxFileSize || info.Size() == 0 {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(absRoot, path)
		relPath = filepath.ToSlash(relPath)
		name := strings.TrimSuffix(filepath.Base(path), ext)

		// Names are the stable key for progress and output paths, so a
		// clash between two corpus files is unresolvable.
		if prior, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate unit name %q (%s and %s)", ErrDiscovery, name, prior, relPath)
		}
		seen[name] = relPath

		units = append(units, Unit{
			Name:    name,
			Path:    path,
			RelPath: relPath,
			Lines:   countLines(src),
			Source:  string(src),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return units, nil
}

// countLines counts newline-terminated lines, counting a trailing
// partial line as one more.
func countLines(src []byte) int {
	n := 0
	for _, b := range src {
		if b == '\n' {
			n++
		}
	}
	if len(src) > 0 && src[len(src)-1] != '\n' {
		n++
	}
	return n
}

// loadIgnorePatterns reads .portforgeignore from the corpus root.
// If the file doesn't exist, the defaults are used.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".portforgeignore"))
	if err != nil {
		return defaultIgnores
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return defaultIgnores
	}
	return patterns
}

// matchesIgnore checks if a directory name or relative path matches any ignore pattern.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact directory name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path prefix match (e.g. "third_party/vendor").
		if strings.HasPrefix(relPath, p) {
			return true
		}
		// Glob match against the relative path.
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
