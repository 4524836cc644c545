package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIsConvertedAbsentIsFalse(t *testing.T) {
	s := openTestStore(t)

	done, err := s.IsConverted("cat")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMarkAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConverted("cat", "/out/cat.go"))

	done, err := s.IsConverted("cat")
	require.NoError(t, err)
	assert.True(t, done)

	rec, ok, err := s.Get("cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/out/cat.go", rec.OutputPath)
	assert.False(t, rec.ConvertedAt.IsZero())

	_, ok, err = s.Get("dog")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnmark(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConverted("cat", "/out/cat.go"))
	require.NoError(t, s.Unmark("cat"))

	done, err := s.IsConverted("cat")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestListOrderedByName(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConverted("yes", "y"))
	require.NoError(t, s.MarkConverted("cat", "c"))

	records, err := s.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "cat", records[0].Name)
	assert.Equal(t, "yes", records[1].Name)
}

// fakeArtifacts simulates the output tree for reconciliation.
type fakeArtifacts struct {
	present map[string]bool
}

func (f fakeArtifacts) Exists(name string) bool { return f.present[name] }
func (f fakeArtifacts) Path(name string) string { return "/out/" + name + ".go" }

func TestReconcileAdoptsOrphanArtifact(t *testing.T) {
	s := openTestStore(t)

	// Crash after write, before mark: artifact exists, no record.
	adopted, demoted, err := s.Reconcile(
		[]string{"cat", "yes"},
		fakeArtifacts{present: map[string]bool{"cat": true}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, adopted)
	assert.Equal(t, 0, demoted)

	done, err := s.IsConverted("cat")
	require.NoError(t, err)
	assert.True(t, done)

	rec, ok, err := s.Get("cat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/out/cat.go", rec.OutputPath)
}

func TestReconcileDemotesStaleFlag(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.MarkConverted("rev", "/out/rev.go"))

	adopted, demoted, err := s.Reconcile(
		[]string{"rev"},
		fakeArtifacts{present: map[string]bool{}},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, adopted)
	assert.Equal(t, 1, demoted)

	done, err := s.IsConverted("rev")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestExamplesRecent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutExample("true", "src-true", "code-true", nil))
	require.NoError(t, s.PutExample("yes", "src-yes", "code-yes", nil))
	require.NoError(t, s.PutExample("cat", "src-cat", "code-cat", nil))

	examples, err := s.RecentExamples(2)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "cat", examples[0].Name)
	assert.Equal(t, "yes", examples[1].Name)
}

func TestPutExampleReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutExample("cat", "old-src", "old-code", nil))
	require.NoError(t, s.PutExample("cat", "new-src", "new-code", nil))

	examples, err := s.RecentExamples(10)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "new-code", examples[0].Code)
}

func TestNearestExamples(t *testing.T) {
	s := openTestStore(t)

	vec := func(fill float32) []float32 {
		v := make([]float32, 768)
		for i := range v {
			v[i] = fill
		}
		return v
	}

	require.NoError(t, s.PutExample("near", "src-near", "code-near", vec(0.1)))
	require.NoError(t, s.PutExample("far", "src-far", "code-far", vec(0.9)))

	examples, err := s.NearestExamples(vec(0.11), 1)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "near", examples[0].Name)
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)

	v, err := s.GetMeta("embed_model")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMeta("embed_model", "nomic-embed-text"))
	require.NoError(t, s.SetMeta("embed_model", "other"))

	v, err = s.GetMeta("embed_model")
	require.NoError(t, err)
	assert.Equal(t, "other", v)
}

func TestLockExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	l, err := AcquireLock(path)
	require.NoError(t, err)

	_, err = AcquireLock(path)
	require.ErrorIs(t, err, ErrLocked)

	l.Release()

	l2, err := AcquireLock(path)
	require.NoError(t, err)
	l2.Release()
}

func TestLockBreaksStaleHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	// A pid that cannot be running.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	l, err := AcquireLock(path)
	require.NoError(t, err)
	l.Release()
}
