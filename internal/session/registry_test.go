package session

import (
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
)

// spawnAlive starts a real, short-lived-but-not-yet-exited child so Reap
// has a genuine ProcessHandle to observe as alive.
func spawnAlive(t *testing.T) *ProcessHandle {
	t.Helper()
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep: %v", err)
	}
	h := newProcessHandle(cmd)
	t.Cleanup(h.Kill)
	return h
}

// spawnExited starts and waits out a child so its ProcessHandle reports
// not-alive, exercising Reap's removal path.
func spawnExited(t *testing.T) *ProcessHandle {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start true: %v", err)
	}
	h := newProcessHandle(cmd)
	deadline := time.Now().Add(2 * time.Second)
	for h.IsAlive() {
		if time.Now().After(deadline) {
			t.Fatal("process never exited")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return h
}

func newTestSession(uid uint32, alive *ProcessHandle) Session {
	return Session{
		ID:         uuid.New(),
		Username:   "alice",
		UID:        uid,
		DisplayTag: ":10",
		AuthFile:   "/run/webx/sessions/1001/Xauthority",
		Xorg:       alive,
		WM:         alive,
		CreatedAt:  time.Now(),
	}
}

func TestRegistry_InsertAndFind(t *testing.T) {
	r := NewRegistry()
	h := spawnAlive(t)
	s := newTestSession(1001, h)
	r.Insert(s)

	got, ok := r.FindByUID(1001)
	if !ok || got.ID != s.ID {
		t.Fatalf("FindByUID(1001) = %v, %v; want %v, true", got, ok, s.ID)
	}

	got, ok = r.FindByID(s.ID)
	if !ok || got.UID != 1001 {
		t.Fatalf("FindByID(%s) = %v, %v; want uid 1001, true", s.ID, got, ok)
	}

	if _, ok := r.FindByUID(9999); ok {
		t.Error("FindByUID of an unknown uid should report false")
	}
}

func TestRegistry_Snapshot_IsACopy(t *testing.T) {
	r := NewRegistry()
	h := spawnAlive(t)
	r.Insert(newTestSession(1001, h))

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot length = %d, want 1", len(snap))
	}

	r.Insert(newTestSession(1002, h))
	if len(snap) != 1 {
		t.Error("earlier snapshot mutated by a later Insert")
	}
	if len(r.Snapshot()) != 2 {
		t.Errorf("Snapshot after second insert = %d, want 2", len(r.Snapshot()))
	}
}

func TestRegistry_Reap_RemovesOnlyDeadSessions(t *testing.T) {
	r := NewRegistry()
	alive := spawnAlive(t)
	dead := spawnExited(t)

	aliveSession := newTestSession(1001, alive)
	deadSession := newTestSession(1002, dead)
	r.Insert(aliveSession)
	r.Insert(deadSession)

	reaped := r.Reap()
	if len(reaped) != 1 || reaped[0].ID != deadSession.ID {
		t.Fatalf("Reap() = %v, want exactly the dead session", reaped)
	}

	if _, ok := r.FindByID(deadSession.ID); ok {
		t.Error("reaped session should no longer be findable")
	}
	if _, ok := r.FindByID(aliveSession.ID); !ok {
		t.Error("live session should survive Reap")
	}
}

func TestRegistry_Drain_EmptiesAndReturnsAll(t *testing.T) {
	r := NewRegistry()
	h := spawnAlive(t)
	r.Insert(newTestSession(1001, h))
	r.Insert(newTestSession(1002, h))

	drained := r.Drain()
	if len(drained) != 2 {
		t.Fatalf("Drain() returned %d sessions, want 2", len(drained))
	}
	if len(r.Snapshot()) != 0 {
		t.Error("registry should be empty after Drain")
	}
}

func TestRegistry_Poison_DropsReadsAndWrites(t *testing.T) {
	r := NewRegistry()
	h := spawnAlive(t)
	s := newTestSession(1001, h)
	r.Insert(s)

	r.Poison()

	if got := r.Snapshot(); got != nil {
		t.Errorf("Snapshot after Poison = %v, want nil", got)
	}
	if _, ok := r.FindByUID(1001); ok {
		t.Error("FindByUID should report false once poisoned")
	}

	r.Insert(newTestSession(1002, h))
	if got := r.Snapshot(); len(got) != 0 {
		t.Error("Insert after Poison should be a no-op")
	}
}
