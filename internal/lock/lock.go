// Package lock enforces the single-supervisor-instance invariant: only
// one webx-session-manager process may run against a given sessions
// directory at a time. Grounded on the teacher's
// cmd/gc/controller.go:acquireControllerLock, which does the same thing
// with a raw syscall.Flock; here github.com/gofrs/flock provides the
// portable, already-declared-in-go.mod equivalent.
package lock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// InstanceLock holds an exclusive, non-blocking advisory lock on a file
// inside the sessions directory for the lifetime of the process.
type InstanceLock struct {
	fl *flock.Flock
}

// Acquire takes an exclusive, non-blocking lock on
// <sessionsPath>/.webx-session-manager.lock. Returns an error if
// another instance already holds it.
func Acquire(sessionsPath string) (*InstanceLock, error) {
	path := filepath.Join(sessionsPath, ".webx-session-manager.lock")
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock: acquiring %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock: another webx-session-manager instance is already running against %s", sessionsPath)
	}
	return &InstanceLock{fl: fl}, nil
}

// Release unlocks and closes the underlying lock file.
func (l *InstanceLock) Release() error {
	return l.fl.Unlock()
}
