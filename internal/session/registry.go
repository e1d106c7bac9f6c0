package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the custodian of all live Session values: one mutex
// guarding a slice, exactly as spec.md §4.3 and §9 call for (handler
// concurrency is 1, reaper cadence is low, so a dedicated actor would
// only add a hop for no benefit).
type Registry struct {
	mu       sync.Mutex
	sessions []Session
	poisoned bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Insert appends a session. The caller has already verified there is no
// uid/display collision (SessionEngine.Create checks FindByUID before
// spawning).
func (r *Registry) Insert(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return
	}
	r.sessions = append(r.sessions, s)
}

// FindByUID returns the live session for uid, if any.
func (r *Registry) FindByUID(uid uint32) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return Session{}, false
	}
	for _, s := range r.sessions {
		if s.UID == uid {
			return s, true
		}
	}
	return Session{}, false
}

// FindByID returns the live session with the given id, if any.
func (r *Registry) FindByID(id uuid.UUID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return Session{}, false
	}
	for _, s := range r.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// Snapshot returns a copy of every live session for read-only
// enumeration (ProcessHandles are shared, not deep-copied).
func (r *Registry) Snapshot() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return nil
	}
	out := make([]Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Reap removes and returns every session whose X ProcessHandle reports
// not-alive. It never kills anything — it only observes.
func (r *Registry) Reap() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return nil
	}

	var kept []Session
	var reaped []Session
	for _, s := range r.sessions {
		if s.Xorg.IsAlive() {
			kept = append(kept, s)
		} else {
			reaped = append(reaped, s)
		}
	}
	r.sessions = kept
	return reaped
}

// Drain removes and returns every session. Used at shutdown.
func (r *Registry) Drain() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return nil
	}
	out := r.sessions
	r.sessions = nil
	return out
}

// Poison marks the registry as failed: reads return empty and writes are
// dropped. Used if the mutex is ever observed in an inconsistent state
// (Go mutexes don't poison themselves on panic the way Rust's do, but
// callers that recover from a panic while holding the lock should call
// this before releasing it).
func (r *Registry) Poison() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poisoned = true
	r.sessions = nil
}
