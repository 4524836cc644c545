// Package progress persists which corpus units have completed
// conversion, so repeated pipeline runs skip finished work. The store
// is SQLite-backed and reconciled against the actual output tree at
// startup: a converted flag is never trusted over the artifact itself.
package progress

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrStore indicates the progress store is unreadable or unwritable.
// It is fatal: without durable progress the run cannot proceed.
var ErrStore = errors.New("progress store failure")

// Record is one unit's persisted conversion state.
type Record struct {
	Name        string
	Converted   bool
	OutputPath  string
	ConvertedAt time.Time
}

// Example is one prior successful conversion, kept as few-shot guidance
// for later units.
type Example struct {
	Name   string
	Source string
	Code   string
}

// ArtifactChecker reports whether a durable artifact exists for a unit.
// Satisfied by the artifact writer.
type ArtifactChecker interface {
	Exists(name string) bool
	Path(name string) string
}

// Store is the persistence surface the pipeline driver depends on.
type Store interface {
	// IsConverted reports whether the unit has a durable artifact.
	// Absence of a record means false.
	IsConverted(name string) (bool, error)
	// MarkConverted records a durable artifact for the unit.
	MarkConverted(name, outputPath string) error
	// Unmark clears the converted flag, e.g. before a forced re-conversion.
	Unmark(name string) error
	// Get returns the unit's record; ok is false if none exists.
	Get(name string) (Record, bool, error)
	// List returns all records, ordered by name.
	List() ([]Record, error)
	// Reconcile re-derives converted flags from artifact presence for
	// the given unit names. It returns how many units were adopted
	// (artifact on disk, flag missing) and demoted (flag set, artifact
	// gone).
	Reconcile(names []string, artifacts ArtifactChecker) (adopted, demoted int, err error)
	// PutExample stores a successful conversion as few-shot material,
	// with an optional embedding vector.
	PutExample(name, source, code string, embedding []float32) error
	// NearestExamples returns up to k examples most similar to the
	// query embedding.
	NearestExamples(embedding []float32, k int) ([]Example, error)
	// RecentExamples returns up to k most recently stored examples.
	RecentExamples(k int) ([]Example, error)
	// ClearEmbeddings drops all stored example vectors, e.g. after an
	// embedding model change. Examples themselves are kept so the
	// recency fallback still works.
	ClearEmbeddings() error
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// Close closes the underlying database.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the progress database at the given path and
// initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrStore, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrStore, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsConverted(name string) (bool, error) {
	var converted bool
	err := s.db.QueryRow("SELECT converted FROM units WHERE name = ?", name).Scan(&converted)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return converted, nil
}

func (s *SQLiteStore) MarkConverted(name, outputPath string) error {
	_, err := s.db.Exec(`
		INSERT INTO units (name, converted, output_path, converted_at)
		VALUES (?, 1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			converted = 1, output_path = excluded.output_path, converted_at = CURRENT_TIMESTAMP`,
		name, outputPath,
	)
	if err != nil {
		return fmt.Errorf("%w: mark %s: %v", ErrStore, name, err)
	}
	return nil
}

func (s *SQLiteStore) Unmark(name string) error {
	_, err := s.db.Exec(
		"UPDATE units SET converted = 0, output_path = '', converted_at = NULL WHERE name = ?", name,
	)
	if err != nil {
		return fmt.Errorf("%w: unmark %s: %v", ErrStore, name, err)
	}
	return nil
}

func (s *SQLiteStore) Get(name string) (Record, bool, error) {
	var r Record
	var at sql.NullTime
	err := s.db.QueryRow(
		"SELECT name, converted, output_path, converted_at FROM units WHERE name = ?", name,
	).Scan(&r.Name, &r.Converted, &r.OutputPath, &at)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if at.Valid {
		r.ConvertedAt = at.Time
	}
	return r, true, nil
}

func (s *SQLiteStore) List() ([]Record, error) {
	rows, err := s.db.Query(
		"SELECT name, converted, output_path, converted_at FROM units ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var at sql.NullTime
		if err := rows.Scan(&r.Name, &r.Converted, &r.OutputPath, &at); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		if at.Valid {
			r.ConvertedAt = at.Time
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return records, nil
}

func (s *SQLiteStore) Reconcile(names []string, artifacts ArtifactChecker) (adopted, demoted int, err error) {
	for _, name := range names {
		converted, err := s.IsConverted(name)
		if err != nil {
			return adopted, demoted, err
		}
		present := artifacts.Exists(name)

		switch {
		case converted && !present:
			// Stored flag is stale: the artifact vanished.
			if err := s.Unmark(name); err != nil {
				return adopted, demoted, err
			}
			demoted++
		case !converted && present:
			// Crash between artifact write and mark: the artifact on
			// disk is the truth, adopt it.
			if err := s.MarkConverted(name, artifacts.Path(name)); err != nil {
				return adopted, demoted, err
			}
			adopted++
		}
	}
	return adopted, demoted, nil
}

func (s *SQLiteStore) PutExample(name, source, code string, embedding []float32) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer tx.Rollback()

	// Re-converted units replace their prior example and vector.
	var oldID int64
	err = tx.QueryRow("SELECT id FROM examples WHERE name = ?", name).Scan(&oldID)
	if err == nil {
		if _, err := tx.Exec("DELETE FROM vec_examples WHERE example_id = ?", oldID); err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		if _, err := tx.Exec("DELETE FROM examples WHERE id = ?", oldID); err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	res, err := tx.Exec(
		"INSERT INTO examples (name, source, code) VALUES (?, ?, ?)", name, source, code,
	)
	if err != nil {
		return fmt.Errorf("%w: insert example %s: %v", ErrStore, name, err)
	}

	if len(embedding) > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStore, err)
		}
		blob, err := sqlite_vec.SerializeFloat32(embedding)
		if err != nil {
			return fmt.Errorf("%w: serialize embedding for %s: %v", ErrStore, name, err)
		}
		if _, err := tx.Exec("INSERT INTO vec_examples (example_id, embedding) VALUES (?, ?)", id, blob); err != nil {
			return fmt.Errorf("%w: insert embedding for %s: %v", ErrStore, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) NearestExamples(embedding []float32, k int) ([]Example, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: serialize query embedding: %v", ErrStore, err)
	}
	rows, err := s.db.Query(`
		SELECT e.name, e.source, e.code
		FROM vec_examples v
		JOIN examples e ON e.id = v.example_id
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()
	return scanExamples(rows)
}

func (s *SQLiteStore) RecentExamples(k int) ([]Example, error) {
	rows, err := s.db.Query(
		"SELECT name, source, code FROM examples ORDER BY created_at DESC, id DESC LIMIT ?", k,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()
	return scanExamples(rows)
}

func scanExamples(rows *sql.Rows) ([]Example, error) {
	var examples []Example
	for rows.Next() {
		var e Example
		if err := rows.Scan(&e.Name, &e.Source, &e.Code); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		examples = append(examples, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return examples, nil
}

func (s *SQLiteStore) ClearEmbeddings() error {
	if _, err := s.db.Exec("DELETE FROM vec_examples"); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
