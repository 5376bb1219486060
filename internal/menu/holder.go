package menu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
)

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventOpen         EventKind = "open"
	EventClose        EventKind = "close"
	EventPreviewOpen  EventKind = "preview_open"
	EventPreviewClose EventKind = "preview_close"
	// EventPreviewFailed precedes the close of a preview whose tick panicked.
	EventPreviewFailed EventKind = "preview_failed"
)

// SessionEvent is emitted by a holder whenever one of its slots changes.
type SessionEvent struct {
	Kind       EventKind `json:"kind"`
	ObserverID string    `json:"observer_id"`
	MenuID     string    `json:"menu_id"`
	Remember   bool      `json:"remember,omitempty"`
	At         time.Time `json:"at"`
}

// Holder owns one observer's primary session and preview. Each slot has its
// own lock so preview churn never waits on menu clicks.
type Holder struct {
	observer Observer
	env      *Env
	notify   func(SessionEvent)

	sessionMu sync.Mutex
	session   *Session
	last      string

	previewMu sync.Mutex
	preview   *BlockSession

	// closed is set under both slot locks; a closed holder never opens again.
	closed atomic.Bool
}

func newHolder(o Observer, env *Env, notify func(SessionEvent)) *Holder {
	return &Holder{observer: o, env: env, notify: notify}
}

func (h *Holder) Observer() Observer { return h.observer }

// Closed reports whether Close has run. The manager replaces closed holders.
func (h *Holder) Closed() bool { return h.closed.Load() }

func (h *Holder) usable() bool { return !h.closed.Load() && h.observer.Online() }

func (h *Holder) emit(kind EventKind, menuID string, remember bool) {
	if h.notify == nil {
		return
	}
	h.notify(SessionEvent{
		Kind:       kind,
		ObserverID: h.observer.ID(),
		MenuID:     menuID,
		Remember:   remember,
		At:         time.Now().UTC(),
	})
}

// OpenSession replaces the primary session with one built from d. The old
// session is fully closed, and remembered as last, before the new one opens.
func (h *Holder) OpenSession(d *def.Menu) bool {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.openSessionLocked(d)
}

func (h *Holder) openSessionLocked(d *def.Menu) bool {
	if !h.usable() {
		return false
	}
	h.closeSessionLocked(true)
	h.session = NewSession(d, h.observer, h.env)
	h.session.Open()
	h.emit(EventOpen, d.ID, false)
	return true
}

// OpenLast reopens the last remembered session. fallback supplies a
// remembered id when the holder has none, e.g. from persistent storage.
func (h *Holder) OpenLast(lookup func(id string) (*def.Menu, bool), fallback func() (string, bool)) bool {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	id := h.last
	if id == "" && fallback != nil {
		id, _ = fallback()
	}
	if id == "" {
		return false
	}
	d, ok := lookup(id)
	if !ok {
		return false
	}
	return h.openSessionLocked(d)
}

// OpenPreview replaces the preview with b. It reports false, leaving b
// unopened, once the holder is closed or the observer is offline.
func (h *Holder) OpenPreview(b *BlockSession) bool {
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	if !h.usable() {
		return false
	}
	h.closePreviewLocked()
	h.preview = b
	b.Open()
	h.emit(EventPreviewOpen, b.ID(), false)
	return true
}

// Tick advances both slots once. It reports true, after closing everything,
// when the observer has gone offline and the holder should be dropped.
func (h *Holder) Tick() bool {
	if !h.observer.Online() {
		h.Close()
		return true
	}

	h.sessionMu.Lock()
	if h.session != nil {
		h.session.Tick()
	}
	h.sessionMu.Unlock()

	h.previewMu.Lock()
	if h.preview != nil {
		h.tickPreviewLocked()
	}
	h.previewMu.Unlock()
	return false
}

func (h *Holder) tickPreviewLocked() {
	defer func() {
		if r := recover(); r != nil {
			h.env.Log.Error().
				Str("observer", h.observer.Name()).
				Str("panic", fmt.Sprint(r)).
				Msg("preview tick failed, closing preview")
			h.emit(EventPreviewFailed, h.preview.ID(), false)
			h.closePreviewLocked()
		}
	}()
	eye := h.observer.EyeLocation()
	dir := eye.Direction()
	_, yaw := geom.RotationFromDirection(dir)
	h.preview.Rotate(-float32(yaw))
	h.preview.Move(eye.Add(dir.Mul(2)), RotateByCenter)
	h.preview.Tick()
}

// CloseSession closes the primary session. With history set its id is kept
// for OpenLast; otherwise the remembered id is cleared.
func (h *Holder) CloseSession(history bool) bool {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.closeSessionLocked(history)
}

func (h *Holder) closeSessionLocked(history bool) bool {
	if h.session == nil {
		return false
	}
	s := h.session
	h.session = nil
	if history {
		h.last = s.ID()
	} else {
		h.last = ""
	}
	s.Close()
	h.emit(EventClose, s.ID(), history)
	return true
}

func (h *Holder) ClosePreview() {
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	h.closePreviewLocked()
}

func (h *Holder) closePreviewLocked() {
	p := h.preview
	h.preview = nil
	if p == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.env.Log.Error().
				Str("observer", h.observer.Name()).
				Str("panic", fmt.Sprint(r)).
				Msg("preview close failed")
		}
	}()
	p.Close()
	h.emit(EventPreviewClose, p.ID(), false)
}

// Close releases both slots and retires the holder.
func (h *Holder) Close() {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	h.closed.Store(true)
	h.closeSessionLocked(false)
	h.closePreviewLocked()
}

// OnSession runs fn with the current session, possibly nil, under the
// session lock. If fn returns true the session is closed without history
// before the lock is released.
func (h *Holder) OnSession(fn func(s *Session) (closeIt bool)) bool {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	if fn(h.session) {
		return h.closeSessionLocked(false)
	}
	return false
}

// OnPreview is OnSession for the preview slot.
func (h *Holder) OnPreview(fn func(p *BlockSession) (closeIt bool)) {
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	if fn(h.preview) {
		h.closePreviewLocked()
	}
}

// LastSession is the remembered menu id, empty if none.
func (h *Holder) LastSession() string {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.last
}

// RefreshVisuals respawns every open component so settings changes such as
// scale take effect.
func (h *Holder) RefreshVisuals() {
	h.sessionMu.Lock()
	if h.session != nil {
		h.session.reopen(RotateByObserver)
	}
	h.sessionMu.Unlock()

	h.previewMu.Lock()
	if h.preview != nil {
		h.preview.reopen(RotateByCenter)
	}
	h.previewMu.Unlock()
}
