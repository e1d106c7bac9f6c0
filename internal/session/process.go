package session

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// Role distinguishes the two children a session supervises, used to name
// their log files and pick the environment-policy defaults.
type Role string

const (
	// RoleXorg is the X11 display server.
	RoleXorg Role = "xorg"
	// RoleWindowManager is the window manager rooted in that display.
	RoleWindowManager Role = "wm"
)

// ProcessHandle is an opaque, shared-ownership reference to a spawned
// child process. It is safe to call IsAlive and Kill concurrently from
// multiple goroutines (the IPC handler and the reaper both hold a copy).
//
// Adapted from the teacher's subprocess.Provider: a goroutine blocks on
// cmd.Wait() and closes a "done" channel exactly once; IsAlive becomes a
// non-blocking read of that channel instead of a second, racy waitpid.
type ProcessHandle struct {
	pid  int
	proc *os.Process
	done chan struct{}
}

// newProcessHandle starts the wait-goroutine for an already-started
// exec.Cmd and returns a handle observers can poll safely.
func newProcessHandle(cmd *exec.Cmd) *ProcessHandle {
	h := &ProcessHandle{
		pid:  cmd.Process.Pid,
		proc: cmd.Process,
		done: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(h.done)
	}()
	return h
}

// PID returns the child's process id.
func (h *ProcessHandle) PID() uint32 {
	return uint32(h.pid)
}

// IsAlive reports whether the child is still running. Non-blocking: once
// the process has exited this returns false on every subsequent call.
// Observing IsAlive never reaps anything itself — the wait-goroutine
// owns that.
func (h *ProcessHandle) IsAlive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Kill sends a best-effort, non-blocking SIGKILL. Safe to call after the
// process has already exited (os.Process.Kill on an already-reaped pid
// just returns an error, which is swallowed here).
func (h *ProcessHandle) Kill() {
	_ = h.proc.Kill()
}

// SpawnSpec is the common shape of a child-process spawn request, shared
// by the X server and the window manager so the environment/privilege/
// stdio policy in [ProcessSupervisor.Spawn] is written exactly once (the
// teacher's subprocess.Provider.Start takes a single session.Config for
// the same reason).
type SpawnSpec struct {
	Role       Role
	Command    string
	Args       []string
	Account    Account
	DisplayTag string // ":N"
	AuthFile   string
	Resolution ScreenResolution
	Env        EnvironmentList // authenticator-published overlay
	LogDir     string
	SessionTag string // session-uuid-simple, used to name log files
}

// ProcessSupervisor spawns children with a fully controlled environment,
// privilege identity, working directory, and stdio redirection.
type ProcessSupervisor struct{}

// NewProcessSupervisor returns a ready-to-use supervisor. It has no
// state — every spawn is independent. Engine holds it as a concrete
// *ProcessSupervisor.
func NewProcessSupervisor() *ProcessSupervisor {
	return &ProcessSupervisor{}
}

// Spawn starts a child per the spawn contract: clear the inherited
// environment, set DISPLAY/XAUTHORITY/HOME/XDG_RUNTIME_DIR (and the Xorg
// extras for RoleXorg), overlay the authenticator's EnvironmentList
// (which wins on name collision), drop privilege to the target account,
// chdir to its home, and redirect stdout/stderr to per-session log files
// with stdin closed.
func (s *ProcessSupervisor) Spawn(spec SpawnSpec) (*ProcessHandle, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Account.Home
	cmd.Env = buildEnv(spec)
	cmd.SysProcAttr = credentialSysProcAttr(spec.Account)

	outPath := filepath.Join(spec.LogDir, fmt.Sprintf("%s.%s.out.log", spec.SessionTag, spec.Role))
	errPath := filepath.Join(spec.LogDir, fmt.Sprintf("%s.%s.err.log", spec.SessionTag, spec.Role))

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, EnvironmentError("opening stdout log %s: %v", outPath, err)
	}
	errFile, err := os.OpenFile(errPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		_ = outFile.Close()
		return nil, EnvironmentError("opening stderr log %s: %v", errPath, err)
	}

	cmd.Stdin = nil
	cmd.Stdout = outFile
	cmd.Stderr = errFile

	if err := cmd.Start(); err != nil {
		_ = outFile.Close()
		_ = errFile.Close()
		return nil, SessionError("starting %s: %v", spec.Role, err)
	}

	// The files are duped by fork/exec into the child's fd table; the
	// parent's copies can be closed once the child holds its own.
	closeLater(outFile, errFile)

	return newProcessHandle(cmd), nil
}

// closeLater closes the writers immediately, without any delay.
// cmd.Start has already returned by the time this is called, so the
// child already has its own descriptors open.
func closeLater(ws ...io.Closer) {
	for _, w := range ws {
		_ = w.Close()
	}
}

// buildEnv assembles the child environment per the spawn contract:
// baseline vars first, then the authenticator's EnvironmentList
// overlaid on top (authenticator entries win on name collision).
func buildEnv(spec SpawnSpec) []string {
	base := map[string]string{
		"DISPLAY":         spec.DisplayTag,
		"XAUTHORITY":      spec.AuthFile,
		"HOME":            spec.Account.Home,
		"XDG_RUNTIME_DIR": filepath.Dir(spec.AuthFile),
	}
	if spec.Role == RoleXorg {
		base["XORG_RUN_AS_USER_OK"] = "1"
		base["XRDP_START_WIDTH"] = fmt.Sprintf("%d", spec.Resolution.Width)
		base["XRDP_START_HEIGHT"] = fmt.Sprintf("%d", spec.Resolution.Height)
	}
	for _, e := range spec.Env.Entries() {
		base[e.Name] = e.Value
	}

	names := make([]string, 0, len(base))
	for name := range base {
		names = append(names, name)
	}
	sort.Strings(names)

	env := make([]string, 0, len(names))
	for _, name := range names {
		env = append(env, name+"="+base[name])
	}
	return env
}
