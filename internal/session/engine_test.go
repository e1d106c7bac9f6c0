package session

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/illgrenoble/webx-session-manager/internal/fsys"
)

type fakeAuthenticator struct {
	username, password string
	calls              int
}

func (f *fakeAuthenticator) Authenticate(creds Credentials) (EnvironmentList, error) {
	f.calls++
	if creds.Username != f.username || creds.Password() != f.password {
		return EnvironmentList{}, AuthenticationError("invalid credentials for %s", creds.Username)
	}
	return NewEnvironmentList(EnvEntry{Name: "PAM_SESSION", Value: "1"}), nil
}

type fakeAccountResolver struct {
	accounts map[string]Account
}

func (f *fakeAccountResolver) Lookup(username string) (Account, bool, error) {
	a, ok := f.accounts[username]
	return a, ok, nil
}

type fakeDisplayAllocator struct {
	next uint32
}

func (f *fakeDisplayAllocator) Next() (uint32, error) {
	d := f.next
	f.next++
	return d, nil
}

type fakeXauthInstaller struct {
	prepareCalls int
	installCalls int
	installErr   error
}

func (f *fakeXauthInstaller) Prepare(account Account, serviceGID uint32) (string, error) {
	f.prepareCalls++
	return "/run/webx/sessions/" + account.Username + "/Xauthority", nil
}

func (f *fakeXauthInstaller) Install(account Account, authFile string, display uint32) error {
	f.installCalls++
	return f.installErr
}

// testAccount returns an Account that matches the uid/gid of the test
// process itself, so credentialSysProcAttr's uid/gid switch keeps the
// test process's own identity (the setgroups call still needs root; see
// newTestEngine).
func testAccount(username string) Account {
	return Account{
		Username: username,
		Home:     os.TempDir(),
		UID:      uint32(os.Getuid()),
		GID:      uint32(os.Getgid()),
	}
}

// newTestEngine spawns real children with a Credential-based privilege
// drop, same as production Spawn — setgroups(2) requires CAP_SETGID, so
// these tests need the same root privilege the server itself requires
// (cmd/webx-session-manager.doServe refuses to start otherwise).
func newTestEngine(t *testing.T) (*Engine, *fakeAuthenticator, *fakeXauthInstaller) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("requires root to exercise the privilege-drop spawn path")
	}
	logDir := t.TempDir()

	auth := &fakeAuthenticator{username: "alice", password: "p"}
	accounts := &fakeAccountResolver{accounts: map[string]Account{
		"alice": testAccount("alice"),
		"webx":  testAccount("webx"),
	}}
	displays := &fakeDisplayAllocator{next: 10}
	xauth := &fakeXauthInstaller{}

	cfg := Config{
		LogPath:          logDir,
		ServiceUserName:  "webx",
		WindowManagerCmd: "sleep",
		XorgCommand:      "sleep",
		XSettleTimeout:   time.Second,
	}
	e := NewEngine(cfg, fsys.OSFS{}, auth, accounts, displays, xauth, NewProcessSupervisor(), NewRegistry())
	// Skip waiting on a real X lock file; the fake spawns aren't a real X server.
	e.settle = func(Account, uint32) error { return nil }
	return e, auth, xauth
}

func TestEngine_Create_Success(t *testing.T) {
	e, _, xauth := newTestEngine(t)

	sess, err := e.Create(NewCredentials("alice", "p"), ScreenResolution{Width: 1920, Height: 1080})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Username != "alice" || sess.UID != uint32(os.Getuid()) {
		t.Errorf("Create() session = %+v", sess)
	}
	if sess.DisplayTag != ":10" {
		t.Errorf("DisplayTag = %q, want :10", sess.DisplayTag)
	}
	if xauth.prepareCalls != 1 || xauth.installCalls != 1 {
		t.Errorf("prepareCalls=%d installCalls=%d, want 1,1", xauth.prepareCalls, xauth.installCalls)
	}
	if _, ok := e.registry.FindByID(sess.ID); !ok {
		t.Error("created session should be registered")
	}

	sess.Xorg.Kill()
	sess.WM.Kill()
}

func TestEngine_Create_IdempotentLogin(t *testing.T) {
	e, _, xauth := newTestEngine(t)
	res := ScreenResolution{Width: 1920, Height: 1080}

	first, err := e.Create(NewCredentials("alice", "p"), res)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := e.Create(NewCredentials("alice", "p"), res)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second login for the same uid returned a new session: %s != %s", first.ID, second.ID)
	}
	if xauth.prepareCalls != 1 {
		t.Errorf("prepareCalls = %d, want 1 (second login should be a fast-exit)", xauth.prepareCalls)
	}

	first.Xorg.Kill()
	first.WM.Kill()
}

func TestEngine_Create_AuthenticationFailure(t *testing.T) {
	e, auth, xauth := newTestEngine(t)

	_, err := e.Create(NewCredentials("alice", "wrong"), ScreenResolution{})
	if err == nil {
		t.Fatal("Create with bad password should fail")
	}
	se, ok := err.(*Error)
	if !ok || se.Kind != KindAuthentication {
		t.Errorf("error = %v, want a KindAuthentication *Error", err)
	}
	if auth.calls != 1 {
		t.Errorf("Authenticate calls = %d, want 1", auth.calls)
	}
	if xauth.prepareCalls != 0 {
		t.Error("xauth.Prepare should not be called when authentication fails")
	}
}

func TestEngine_Create_UnknownUser(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.auth.(*fakeAuthenticator).username = "mallory"

	_, err := e.Create(NewCredentials("mallory", "p"), ScreenResolution{})
	if err == nil {
		t.Fatal("Create for an unresolvable account should fail")
	}
	se, ok := err.(*Error)
	if !ok || se.Kind != KindSession {
		t.Errorf("error = %v, want a KindSession *Error", err)
	}
}

func TestEngine_Create_WindowManagerSpawnFailureKillsXorg(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.cfg.WindowManagerCmd = "/nonexistent/binary/does-not-exist"

	_, err := e.Create(NewCredentials("alice", "p"), ScreenResolution{})
	if err == nil {
		t.Fatal("Create should fail when the window manager cannot be spawned")
	}
	se, ok := err.(*Error)
	if !ok || se.Kind != KindSession {
		t.Errorf("error = %v, want a KindSession *Error", err)
	}
	if len(e.registry.Snapshot()) != 0 {
		t.Error("a session that failed mid-spawn should never be registered")
	}
}

func TestEngine_Terminate(t *testing.T) {
	e, _, _ := newTestEngine(t)

	sess, err := e.Create(NewCredentials("alice", "p"), ScreenResolution{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := e.Terminate(sess.ID); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	// Terminate kills but does not unregister; List should still show it
	// until a reap tick observes the exit.
	if _, ok := e.registry.FindByID(sess.ID); !ok {
		t.Error("Terminate should not remove the session from the registry")
	}

	if err := e.Terminate(sess.ID); err != nil {
		t.Errorf("Terminate of an already-killed session should still succeed (idempotent kill): %v", err)
	}

	if err := e.Terminate(uuid.New()); err != ErrSessionNotFound {
		t.Errorf("Terminate of an unknown id = %v, want ErrSessionNotFound", err)
	}
}

func TestEngine_Drain_ReturnsAndEmpties(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if _, err := e.Create(NewCredentials("alice", "p"), ScreenResolution{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	drained := e.Drain()
	if len(drained) != 1 {
		t.Fatalf("Drain() returned %d sessions, want 1", len(drained))
	}
	if len(e.List()) != 0 {
		t.Error("List after Drain should be empty")
	}
}
