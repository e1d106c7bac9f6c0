package session

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/illgrenoble/webx-session-manager/internal/fsys"
)

// Authenticator validates credentials against the host's pluggable
// authentication stack and returns the environment the authenticated
// session published. Implemented by internal/auth.Service.
type Authenticator interface {
	Authenticate(creds Credentials) (EnvironmentList, error)
}

// AccountResolver looks up a host user-database entry by username.
// Implemented by internal/hostuser.Resolver.
type AccountResolver interface {
	Lookup(username string) (Account, bool, error)
}

// DisplayAllocator returns the lowest unused X display number.
// Implemented by internal/display.Allocator.
type DisplayAllocator interface {
	Next() (uint32, error)
}

// XauthInstaller materializes the per-user authority file and installs
// an xauth cookie for an allocated display. Implemented by
// internal/xauth.Installer.
type XauthInstaller interface {
	// Prepare ensures the per-user session directory and authority file
	// exist with the right mode/ownership, and returns the authority
	// file's path.
	Prepare(account Account, serviceGID uint32) (string, error)
	// Install mints a cookie and registers it in the authority file for
	// the given display, re-applying mode 0640 afterward.
	Install(account Account, authFile string, display uint32) error
}

// Config is the subset of deployment settings the engine needs. It is a
// plain struct (not internal/config.Settings) so the engine package has
// no dependency on the TOML loader — cmd/webx-session-manager maps the
// loaded config into this shape.
type Config struct {
	SessionsPath      string // <sessions_path>
	LogPath           string // <log_path>
	LockPath          string // <lock_path>, directory the X server drops .X<N>-lock in
	ServiceUserName   string // conventionally "webx"
	WindowManagerCmd  string
	WindowManagerArgs []string
	XorgCommand       string
	XorgConfigPath    string
	XSettleTimeout    time.Duration // post-X-spawn settle delay / poll bound
}

// Engine is the orchestrator of create/list/terminate/drain/reap, composing
// the Authenticator, AccountResolver, DisplayAllocator, XauthInstaller,
// ProcessSupervisor, and Registry.
type Engine struct {
	cfg        Config
	fs         fsys.FS
	auth       Authenticator
	accounts   AccountResolver
	displays   DisplayAllocator
	xauth      XauthInstaller
	supervisor *ProcessSupervisor
	registry   *Registry

	// settle lets tests fake the "wait for the X lock file" step
	// without a real X server. Defaults to a poll against fs.
	settle func(account Account, display uint32) error
}

// NewEngine wires the concrete collaborators together.
func NewEngine(
	cfg Config,
	fs fsys.FS,
	auth Authenticator,
	accounts AccountResolver,
	displays DisplayAllocator,
	xauth XauthInstaller,
	supervisor *ProcessSupervisor,
	registry *Registry,
) *Engine {
	e := &Engine{
		cfg:        cfg,
		fs:         fs,
		auth:       auth,
		accounts:   accounts,
		displays:   displays,
		xauth:      xauth,
		supervisor: supervisor,
		registry:   registry,
	}
	e.settle = e.pollForLock
	return e
}

// Create runs the 14-step login sequence from spec.md §4.5: authenticate,
// resolve the account, fast-exit on an existing session, provision
// per-user artefacts, allocate a display, spawn X then the window
// manager, and register the result.
func (e *Engine) Create(creds Credentials, resolution ScreenResolution) (Session, error) {
	defer creds.Wipe()

	env, err := e.auth.Authenticate(creds)
	if err != nil {
		return Session{}, AuthenticationError("authenticating %s: %v", creds.Username, err)
	}

	account, ok, err := e.accounts.Lookup(creds.Username)
	if err != nil {
		return Session{}, EnvironmentError("resolving account for %s: %v", creds.Username, err)
	}
	if !ok {
		return Session{}, SessionError("no such user %s", creds.Username)
	}
	if account.Home == "" {
		return Session{}, SessionError("user %s has no home directory", creds.Username)
	}

	if existing, found := e.registry.FindByUID(account.UID); found {
		return existing, nil
	}

	serviceAccount, ok, err := e.accounts.Lookup(e.cfg.ServiceUserName)
	if err != nil || !ok {
		return Session{}, EnvironmentError("service user %q not found", e.cfg.ServiceUserName)
	}

	authFile, err := e.xauth.Prepare(account, serviceAccount.GID)
	if err != nil {
		return Session{}, SessionError("provisioning session directory for uid %d: %v", account.UID, err)
	}

	display, err := e.displays.Next()
	if err != nil {
		return Session{}, err
	}
	displayTag := fmt.Sprintf(":%d", display)

	if err := e.xauth.Install(account, authFile, display); err != nil {
		return Session{}, SessionError("installing xauth cookie for display %s: %v", displayTag, err)
	}

	id := uuid.New()
	tag := simpleUUID(id)

	xorgSpec := SpawnSpec{
		Role:       RoleXorg,
		Command:    e.cfg.XorgCommand,
		Args:       []string{displayTag, "-auth", authFile, "-config", e.cfg.XorgConfigPath},
		Account:    account,
		DisplayTag: displayTag,
		AuthFile:   authFile,
		Resolution: resolution,
		Env:        env,
		LogDir:     e.cfg.LogPath,
		SessionTag: tag,
	}
	xorg, err := e.supervisor.Spawn(xorgSpec)
	if err != nil {
		return Session{}, SessionError("spawning Xorg on %s: %v", displayTag, err)
	}

	if err := e.settle(account, display); err != nil {
		xorg.Kill()
		return Session{}, SessionError("Xorg on %s did not become ready: %v", displayTag, err)
	}

	wmSpec := SpawnSpec{
		Role:       RoleWindowManager,
		Command:    e.cfg.WindowManagerCmd,
		Args:       e.cfg.WindowManagerArgs,
		Account:    account,
		DisplayTag: displayTag,
		AuthFile:   authFile,
		Resolution: resolution,
		Env:        env,
		LogDir:     e.cfg.LogPath,
		SessionTag: tag,
	}
	wm, err := e.supervisor.Spawn(wmSpec)
	if err != nil {
		xorg.Kill()
		return Session{}, SessionError("spawning window manager on %s: %v", displayTag, err)
	}

	sess := Session{
		ID:         id,
		Username:   account.Username,
		UID:        account.UID,
		DisplayTag: displayTag,
		AuthFile:   authFile,
		Xorg:       xorg,
		WM:         wm,
		Resolution: resolution,
		CreatedAt:  time.Now(),
	}
	e.registry.Insert(sess)
	return sess, nil
}

// List returns a snapshot of all live sessions.
func (e *Engine) List() []Session {
	return e.registry.Snapshot()
}

// Terminate kills the WM then the X handle for the named session. It
// does not remove the session from the registry — that is the reaper's
// job, preserving a single point of truth for liveness. Returns
// ErrSessionNotFound if id doesn't match a live session.
func (e *Engine) Terminate(id uuid.UUID) error {
	sess, ok := e.registry.FindByID(id)
	if !ok {
		return ErrSessionNotFound
	}
	sess.WM.Kill()
	sess.Xorg.Kill()
	return nil
}

// Drain kills WM then X for every live session and empties the registry.
// Best-effort: used at shutdown.
func (e *Engine) Drain() []Session {
	sessions := e.registry.Drain()
	for _, s := range sessions {
		s.WM.Kill()
		s.Xorg.Kill()
	}
	return sessions
}

// ReapTick scans the registry for sessions whose X process has exited
// and removes them. Returns the reaped sessions (callers that only want
// the count from spec.md's reap() -> u32 take len(...)).
func (e *Engine) ReapTick() []Session {
	return e.registry.Reap()
}

// pollForLock is the default settle strategy: poll for the X lock file's
// appearance instead of sleeping a fixed ~1s, bounded by
// cfg.XSettleTimeout. This is the property-testable alternative spec.md
// §4.5 step 11 and §9 call out explicitly.
func (e *Engine) pollForLock(_ Account, display uint32) error {
	deadline := time.Now().Add(e.cfg.XSettleTimeout)
	lockPath := fmt.Sprintf("%s/.X%d-lock", e.cfg.LockPath, display)
	for {
		if _, err := e.fs.Stat(lockPath); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", lockPath)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
