package config

import (
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is the coalesce window for filesystem events. Multiple
// events within this window (editors doing atomic rename-swap saves)
// collapse into a single dirty signal. Adapted from the teacher's
// cmd/gc/controller.go debounceDelay/watchConfigDirs pair.
var reloadDebounce = 200 * time.Millisecond

// Watcher reports when the config file on disk has changed since it was
// last loaded, debounced against editor atomic-save churn.
type Watcher struct {
	dirty   atomic.Bool
	cleanup func()
}

// WatchFile starts watching the directory containing path (not the file
// itself, so editors that rename-over the file are still observed) and
// returns a Watcher. If the underlying fsnotify watcher cannot be
// created, Watcher.Dirty simply never reports true — reload then
// depends on whatever poll loop the caller also runs.
func WatchFile(path string, stderr io.Writer) *Watcher {
	if stderr == nil {
		stderr = io.Discard
	}
	w := &Watcher{cleanup: func() {}}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(stderr, "config: creating watcher: %v (reload on tick only)\n", err) //nolint:errcheck // best-effort stderr
		return w
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		fmt.Fprintf(stderr, "config: cannot watch %s: %v\n", dir, err) //nolint:errcheck // best-effort stderr
		watcher.Close()                                                //nolint:errcheck // best-effort cleanup
		return w
	}

	go func() {
		var debounce *time.Timer
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					w.dirty.Store(true)
				})
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	w.cleanup = func() { watcher.Close() } //nolint:errcheck // best-effort cleanup
	return w
}

// Dirty reports whether the file has changed since the last call that
// cleared it, and clears the flag (swap-and-read, same shape as the
// teacher's atomic.Bool dirty flag in controllerLoop).
func (w *Watcher) Dirty() bool {
	return w.dirty.Swap(false)
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() {
	w.cleanup()
}
