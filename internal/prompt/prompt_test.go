package prompt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portforge/internal/corpus"
	"portforge/internal/progress"
)

func testBuilder() *Builder {
	return &Builder{SourceLanguage: "Python", TargetLanguage: "Go", Examples: 2}
}

func TestBuildShape(t *testing.T) {
	b := testBuilder()
	unit := corpus.Unit{Name: "cat", Source: "print(open(f).read())"}
	examples := []progress.Example{
		{Name: "true", Source: "pass", Code: "package main\n\nfunc main() {}"},
	}

	msgs := b.Build(unit, examples)
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Python")
	assert.Contains(t, msgs[0].Content, "Go")

	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, `"true"`)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "```go")

	assert.Equal(t, "user", msgs[3].Role)
	assert.Contains(t, msgs[3].Content, `"cat"`)
	assert.Contains(t, msgs[3].Content, "print(open(f).read())")
}

func TestBuildNoExamples(t *testing.T) {
	b := testBuilder()
	msgs := b.Build(corpus.Unit{Name: "yes", Source: "y"}, nil)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
}

// stubEmbedder returns a fixed vector or an error.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func openStore(t *testing.T) progress.Store {
	t.Helper()
	s, err := progress.Open(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fullVec(fill float32) []float32 {
	v := make([]float32, 768)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestSelectPrefersNearest(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.PutExample("near", "s", "c", fullVec(0.1)))
	require.NoError(t, store.PutExample("far", "s", "c", fullVec(0.9)))

	b := testBuilder()
	b.Examples = 1

	examples, vec := b.Select(context.Background(), store, stubEmbedder{vec: fullVec(0.12)}, corpus.Unit{Name: "cat"})
	require.Len(t, examples, 1)
	assert.Equal(t, "near", examples[0].Name)
	assert.NotNil(t, vec)
}

func TestSelectFallsBackToRecentOnEmbedFault(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.PutExample("old", "s", "c", nil))
	require.NoError(t, store.PutExample("new", "s", "c", nil))

	b := testBuilder()
	b.Examples = 1

	examples, vec := b.Select(context.Background(), store, stubEmbedder{err: errors.New("down")}, corpus.Unit{Name: "cat"})
	require.Len(t, examples, 1)
	assert.Equal(t, "new", examples[0].Name)
	assert.Nil(t, vec)
}

func TestSelectDisabled(t *testing.T) {
	store := openStore(t)
	b := testBuilder()
	b.Examples = 0

	examples, vec := b.Select(context.Background(), store, nil, corpus.Unit{Name: "cat"})
	assert.Nil(t, examples)
	assert.Nil(t, vec)
}
