// Package xauth provisions the per-user session directory and
// Xauthority file, and installs an xauth cookie for an allocated
// display. Grounded on the original implementation's fs helpers
// (mkdir/chown/chmod/touch) and its Xorg service's setup/create_token
// steps.
package xauth

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/illgrenoble/webx-session-manager/internal/fsys"
	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// Installer implements session.XauthInstaller.
type Installer struct {
	fs           fsys.FS
	sessionsPath string
	xauthCommand string
}

// NewInstaller returns an Installer rooted at sessionsPath, invoking the
// host "xauth" binary (or an override, e.g. for tests) to install
// cookies.
func NewInstaller(fs fsys.FS, sessionsPath string, xauthCommand string) *Installer {
	if xauthCommand == "" {
		xauthCommand = "xauth"
	}
	return &Installer{fs: fs, sessionsPath: sessionsPath, xauthCommand: xauthCommand}
}

// Prepare ensures <sessions_path>/<uid>/ exists (0750, owner
// uid:serviceGID) and <sessions_path>/<uid>/Xauthority exists (0640,
// owner uid:serviceGID), and returns the authority file's path.
func (i *Installer) Prepare(account session.Account, serviceGID uint32) (string, error) {
	dir := filepath.Join(i.sessionsPath, fmt.Sprintf("%d", account.UID))
	if err := i.fs.MkdirAll(dir, 0o750); err != nil {
		return "", session.EnvironmentError("creating session directory %s: %v", dir, err)
	}
	if err := i.fs.Chown(dir, int(account.UID), int(serviceGID)); err != nil {
		return "", session.EnvironmentError("chown %s: %v", dir, err)
	}
	if err := i.fs.Chmod(dir, 0o750); err != nil {
		return "", session.EnvironmentError("chmod %s: %v", dir, err)
	}

	authFile := filepath.Join(dir, "Xauthority")
	if err := i.fs.Touch(authFile); err != nil {
		return "", session.EnvironmentError("creating authority file %s: %v", authFile, err)
	}
	if err := i.fs.Chmod(authFile, 0o640); err != nil {
		return "", session.EnvironmentError("chmod %s: %v", authFile, err)
	}
	if err := i.fs.Chown(authFile, int(account.UID), int(serviceGID)); err != nil {
		return "", session.EnvironmentError("chown %s: %v", authFile, err)
	}

	return authFile, nil
}

// Install mints a 32-character hex cookie and invokes "xauth add :<N> .
// <cookie>" as the target uid/gid against authFile, then re-applies mode
// 0640 (xauth may widen the mode when it rewrites the file).
func (i *Installer) Install(account session.Account, authFile string, display uint32) error {
	cookie, err := newCookie()
	if err != nil {
		return session.EnvironmentError("generating xauth cookie: %v", err)
	}

	cmd := exec.Command(i.xauthCommand, "-f", authFile, "add", fmt.Sprintf(":%d", display), ".", cookie)
	cmd.SysProcAttr = credentialSysProcAttr(account)
	if out, err := cmd.CombinedOutput(); err != nil {
		return session.EnvironmentError("xauth add failed: %v: %s", err, out)
	}

	return i.fs.Chmod(authFile, 0o640)
}

var _ session.XauthInstaller = (*Installer)(nil)
