package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portforge.toml")
	content := `
[assistant]
url = "http://example.test:11434"
model = "llama3"
timeout_seconds = 60

[retry]
attempts = 5
base_delay_ms = 250

[output]
examples = 0
keep_notes = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://example.test:11434", cfg.Assistant.URL)
	assert.Equal(t, "llama3", cfg.Assistant.Model)
	assert.Equal(t, 60*time.Second, cfg.Assistant.Timeout())
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay())
	assert.Equal(t, 0, cfg.Output.Examples)
	assert.False(t, cfg.Output.KeepNotes)

	// Untouched sections keep defaults.
	assert.Equal(t, ".py", cfg.Corpus.SourceExt)
	assert.Equal(t, "Go", cfg.Corpus.TargetLanguage)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "portforge.toml")

	want := Default()
	want.Assistant.Model = "custom-model"
	want.Retry.Attempts = 7
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDefaultRetryBounds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay())
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay())
	assert.Equal(t, 3, cfg.Retry.Attempts)
}
