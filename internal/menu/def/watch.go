package def

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

// Watch reloads dir whenever a menu file (or a picture under dir/images)
// changes, coalescing bursts of events within debounce. onReload receives the
// freshly loaded set and any per-file errors; a nil set means the watcher
// itself failed and nothing was reloaded. Watch blocks until ctx is done.
func Watch(ctx context.Context, dir string, debounce time.Duration, onReload func(Set, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	// Optional.
	_ = w.Add(filepath.Join(dir, "images"))

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			fire = time.After(debounce)
		case <-fire:
			fire = nil
			set, err := LoadDir(dir)
			onReload(set, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onReload(nil, err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return true
}
