// Package joblock enforces the one-batch-at-a-time invariant.
//
// The lock is backed by a file lock so it is visible to worker subprocesses
// and to CLI status queries running in other processes, not just to the
// daemon's own memory. A holder that exits abnormally drops the OS-level
// lock with the process, but the lock file itself is left behind; Probe
// reports the live state rather than the file's existence.
package joblock

import (
	"fmt"
	"sync"

	"github.com/gofrs/flock"
)

// Lock is a process-wide mutual exclusion flag for batch runs.
type Lock struct {
	path string
	fl   *flock.Flock

	mu   sync.Mutex
	held bool
}

// New constructs a lock backed by the file at path.
func New(path string) *Lock {
	return &Lock{path: path, fl: flock.New(path)}
}

// TryAcquire attempts to take the lock without blocking. It returns false
// when another holder (in this or any other process) already has it.
func (l *Lock) TryAcquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire batch lock: %w", err)
	}
	l.held = ok
	return ok, nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	_ = l.fl.Unlock()
	l.held = false
}

// Held reports whether this process currently owns the lock.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Probe reports whether any process currently holds the lock. It briefly
// acquires and releases, so it must not be called by a prospective holder
// racing a real acquisition; use TryAcquire for that.
func (l *Lock) Probe() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return true, nil
	}
	probe := flock.New(l.path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe batch lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// Path returns the lock file location, for operator diagnostics.
func (l *Lock) Path() string {
	return l.path
}
