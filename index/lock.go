package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLock is a cross-process lock guarding the index folder so that two
// extraction runs cannot write to the same index concurrently.
type RunLock struct {
	flock *flock.Flock
}

// NewRunLock creates a lock for the given lock file path.
func NewRunLock(path string) *RunLock {
	return &RunLock{flock: flock.New(path)}
}

// Acquire takes the lock without blocking. It fails if another process
// already holds it.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire extraction lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another extraction run is already using %s", filepath.Dir(l.flock.Path()))
	}
	return nil
}

// Release drops the lock. Safe to call when the lock is not held.
func (l *RunLock) Release() error {
	return l.flock.Unlock()
}
