package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is a live (X server, window manager) pair tracked under a
// stable identity. The SessionRegistry exclusively owns the authoritative
// collection of these values; every other holder (the reaper, a
// terminate call) works with a shared clone — ProcessHandle is itself
// shared-ownership, so killing from one copy is visible to all.
type Session struct {
	ID         uuid.UUID
	Username   string
	UID        uint32
	DisplayTag string // ":N"
	AuthFile   string
	Xorg       *ProcessHandle
	WM         *ProcessHandle
	Resolution ScreenResolution
	CreatedAt  time.Time
}

// String renders the session for debug logging.
func (s Session) String() string {
	return fmt.Sprintf("session id=%s username=%s uid=%d display=%s xorg_pid=%d wm_pid=%d",
		s.ID.String(), s.Username, s.UID, s.DisplayTag, s.Xorg.PID(), s.WM.PID())
}

// View is the wire-level projection of a Session (the SessionView DTO in
// spec.md): a read-only snapshot with no back-reference to the
// ProcessHandle, suitable for JSON encoding.
type View struct {
	ID                     string `json:"id"`
	Username               string `json:"username"`
	UID                    uint32 `json:"uid"`
	DisplayID              string `json:"display_id"`
	XorgProcessID          uint32 `json:"xorg_process_id"`
	WindowManagerProcessID uint32 `json:"window_manager_process_id"`
	XauthorityFilePath     string `json:"xauthority_file_path"`
	Width                  uint32 `json:"width"`
	Height                 uint32 `json:"height"`
}

// ToView materializes the DTO for an IPC response. id is rendered as 32
// hex characters with no hyphens (uuid.Simple form).
func (s Session) ToView() View {
	return View{
		ID:                     simpleUUID(s.ID),
		Username:               s.Username,
		UID:                    s.UID,
		DisplayID:              s.DisplayTag,
		XorgProcessID:          s.Xorg.PID(),
		WindowManagerProcessID: s.WM.PID(),
		XauthorityFilePath:     s.AuthFile,
		Width:                  s.Resolution.Width,
		Height:                 s.Resolution.Height,
	}
}

// simpleUUID renders a UUID as 32 lowercase hex characters, no hyphens.
func simpleUUID(id uuid.UUID) string {
	var buf [32]byte
	const hexDigits = "0123456789abcdef"
	raw := id[:]
	for i, b := range raw {
		buf[i*2] = hexDigits[b>>4]
		buf[i*2+1] = hexDigits[b&0x0f]
	}
	return string(buf[:])
}
