package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScanFindsUnits(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cat.py", "import sys\nprint(1)\n")
	writeFile(t, dir, "yes.py", "while True:\n    print('y')\n")
	writeFile(t, dir, "readme.md", "not a source file\n")

	units, err := Scan(dir, ".py")
	require.NoError(t, err)
	require.Len(t, units, 2)

	byName := map[string]Unit{}
	for _, u := range units {
		byName[u.Name] = u
	}
	require.Contains(t, byName, "cat")
	require.Contains(t, byName, "yes")

	assert.Equal(t, 2, byName["cat"].Lines)
	assert.Equal(t, "import sys\nprint(1)\n", byName["cat"].Source)
	assert.Equal(t, "cat.py", byName["cat"].RelPath)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), ".py")
	require.ErrorIs(t, err, ErrDiscovery)
}

func TestScanRootIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.py", "x\n")

	_, err := Scan(filepath.Join(dir, "f.py"), ".py")
	require.ErrorIs(t, err, ErrDiscovery)
}

func TestScanSkipsEmptyFilesAndIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.py", "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__pycache__"), 0o755))
	writeFile(t, filepath.Join(dir, "__pycache__"), "cached.py", "print(1)\n")
	writeFile(t, dir, "real.py", "print(2)\n")

	units, err := Scan(dir, ".py")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "real", units[0].Name)
}

func TestScanDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, dir, "cat.py", "a\n")
	writeFile(t, filepath.Join(dir, "sub"), "cat.py", "b\n")

	_, err := Scan(dir, ".py")
	require.ErrorIs(t, err, ErrDiscovery)
}

func TestScanIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "1\n2\n3\n")
	writeFile(t, dir, "b.py", "1\n")

	first, err := Scan(dir, ".py")
	require.NoError(t, err)
	second, err := Scan(dir, ".py")
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
}

func TestOrderByLinesThenName(t *testing.T) {
	units := []Unit{
		{Name: "gamma", Lines: 12},
		{Name: "beta", Lines: 5},
		{Name: "alpha", Lines: 5},
		{Name: "delta", Lines: 1},
	}

	ordered := Order(units)

	names := make([]string, len(ordered))
	for i, u := range ordered {
		names[i] = u.Name
	}
	assert.Equal(t, []string{"delta", "alpha", "beta", "gamma"}, names)

	// Input untouched.
	assert.Equal(t, "gamma", units[0].Name)
}

func TestOrderStableAcrossCalls(t *testing.T) {
	units := []Unit{
		{Name: "b", Lines: 3},
		{Name: "a", Lines: 3},
		{Name: "c", Lines: 3},
	}
	first := Order(units)
	second := Order(units)
	assert.Equal(t, first, second)
}

func TestOrderEmpty(t *testing.T) {
	assert.Empty(t, Order(nil))
}
