package corpus

import "errors"

// ErrDiscovery indicates the corpus root could not be enumerated.
// It is fatal: a run cannot proceed without a readable corpus.
var ErrDiscovery = errors.New("corpus discovery failed")

// Unit is one source utility awaiting conversion. Units are immutable
// once scanned; Name is the unique key used everywhere downstream.
type Unit struct {
	Name    string
	Path    string
	RelPath string
	Lines   int
	Source  string
}
