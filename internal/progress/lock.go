package progress

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
)

// ErrLocked means another run holds the progress store.
var ErrLocked = errors.New("progress store locked by another run")

// Lock is an advisory exclusive lease over the progress store for the
// duration of one run. It prevents two simultaneous runs from
// double-processing units or racing writes to the same output path.
type Lock struct {
	path string
}

// AcquireLock takes the run lock at the given path. It fails with
// ErrLocked if another live run already holds it; a lock left behind by
// a dead process is broken and re-acquired.
func AcquireLock(path string) (*Lock, error) {
	for range 2 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		if holderAlive(path) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		// Stale lock from a crashed run; remove and retry once.
		os.Remove(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrLocked, path)
}

// Release drops the lock. Safe to call on a nil receiver.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}

// holderAlive reports whether the pid recorded in the lock file still
// refers to a running process.
func holderAlive(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(string(trimNewline(data)))
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without touching the process.
	return proc.Signal(syscall.Signal(0)) == nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
