// Package display allocates X11 display numbers by probing for the
// lowest one whose lock file is absent.
package display

import (
	"fmt"
	"os"

	"github.com/illgrenoble/webx-session-manager/internal/fsys"
	"github.com/illgrenoble/webx-session-manager/internal/session"
)

// maxProbe bounds how many display numbers above offset are probed
// before giving up. spec.md §4.2: "cap recursion/iteration at a
// reasonable bound".
const maxProbe = 1024

// Allocator returns the lowest unused X display number at or above a
// configured offset. A display number N is in use iff
// <lockPath>/.X<N>-lock exists. This is a metadata-only check — the
// allocator never reads or creates lock files itself (the X server
// creates its own). There is an inherent TOCTOU window between the
// probe and the child spawn; spec.md §4.2 accepts this because Xorg
// itself fails fast on a lock-file collision, surfacing as a session
// creation error.
type Allocator struct {
	fs       fsys.FS
	lockPath string
	offset   uint32
}

// NewAllocator returns an Allocator probing lockPath starting at offset.
func NewAllocator(fs fsys.FS, lockPath string, offset uint32) *Allocator {
	return &Allocator{fs: fs, lockPath: lockPath, offset: offset}
}

// Next returns the first display number at or above offset whose lock
// file is absent.
func (a *Allocator) Next() (uint32, error) {
	for i := uint32(0); i < maxProbe; i++ {
		n := a.offset + i
		path := fmt.Sprintf("%s/.X%d-lock", a.lockPath, n)
		_, err := a.fs.Stat(path)
		if err == nil {
			continue // in use
		}
		if os.IsNotExist(err) {
			return n, nil
		}
		return 0, session.EnvironmentError("probing %s: %v", path, err)
	}
	return 0, session.EnvironmentError("no free display found within %d of offset %d", maxProbe, a.offset)
}

var _ session.DisplayAllocator = (*Allocator)(nil)
