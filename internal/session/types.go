// Package session implements the session lifecycle engine: authenticating
// a caller, allocating a display, spawning the X server and window
// manager as the target user, and tracking the pair under a stable
// session identity until it is terminated or reaped.
package session

import "fmt"

// Credentials is a username/password pair supplied by a login request.
// It is constructed per request and dropped at the end of the handler;
// [Credentials.Wipe] should be called once the authenticator has
// consumed the password so it doesn't linger in memory longer than
// necessary.
type Credentials struct {
	Username string
	password []byte
}

// NewCredentials copies password into an internally-owned buffer so the
// caller's copy (e.g. a decoded JSON string) can be discarded.
func NewCredentials(username, password string) Credentials {
	buf := make([]byte, len(password))
	copy(buf, password)
	return Credentials{Username: username, password: buf}
}

// Password returns the password as a string. Never log or serialize the
// result.
func (c Credentials) Password() string {
	return string(c.password)
}

// Wipe zeroes the password buffer. Best-effort defense in depth: the
// string returned by Password may already have been copied by Go's
// string-from-bytes conversion, but this at minimum prevents the
// Credentials value itself from holding plaintext after use.
func (c *Credentials) Wipe() {
	for i := range c.password {
		c.password[i] = 0
	}
}

// Account is a resolved host user-database entry: everything the
// ProcessSupervisor needs to drop privilege into the target user.
type Account struct {
	Username string
	Home     string
	UID      uint32
	GID      uint32
	Groups   []uint32 // supplementary group ids, including GID if root
}

// String renders the account for debug logging.
func (a Account) String() string {
	return fmt.Sprintf("username=%s home=%s uid=%d gid=%d groups=%v",
		a.Username, a.Home, a.UID, a.GID, a.Groups)
}

// ScreenResolution is the requested framebuffer size for a session.
type ScreenResolution struct {
	Width  uint32
	Height uint32
}

// String renders the resolution as "widthxheight".
func (r ScreenResolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// EnvEntry is one ordered (name, value) pair from an [EnvironmentList].
type EnvEntry struct {
	Name  string
	Value string
}

// EnvironmentList is the ordered set of environment variables published
// by the authentication service when it opens a session. Iteration order
// is stable; it is consumed once by the process supervisor when spawning
// a child.
type EnvironmentList struct {
	entries []EnvEntry
}

// NewEnvironmentList builds an EnvironmentList from ordered entries.
func NewEnvironmentList(entries ...EnvEntry) EnvironmentList {
	return EnvironmentList{entries: entries}
}

// Entries returns the ordered (name, value) pairs.
func (e EnvironmentList) Entries() []EnvEntry {
	return e.entries
}
