package menu

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
)

// LastSessionStore persists the remembered menu per observer. Writes must
// not block the caller.
type LastSessionStore interface {
	SaveLast(observerID, menuID string)
	LoadLast(observerID string) (string, bool)
}

// AuditSink receives every session lifecycle event.
type AuditSink interface {
	Record(ev SessionEvent)
}

// AuditSinks fans one event out to several sinks in order.
type AuditSinks []AuditSink

func (s AuditSinks) Record(ev SessionEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Record(ev)
		}
	}
}

// ReloadSound is played to observers whose menu was closed by a reload.
const ReloadSound = "entity.experience_orb.pickup"

// ReloadNotice is the action-bar text sent alongside ReloadSound.
const ReloadNotice = "&2Menu \"%s\" reloaded."

type Options struct {
	Env   *Env
	Menus def.Set
	Store LastSessionStore
	Audit AuditSink
	// Meters defaults to the global otel provider.
	Meters metric.MeterProvider
}

// Manager owns every observer's holder and routes host events to them.
type Manager struct {
	env     *Env
	store   LastSessionStore
	audit   AuditSink
	metrics *metrics

	mu      sync.RWMutex
	holders map[string]*Holder

	menuMu sync.RWMutex
	menus  def.Set

	ticks uint64
	stop  chan struct{}
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Env == nil {
		return nil, fmt.Errorf("menu manager: nil env")
	}
	m := &Manager{
		env:     opts.Env,
		store:   opts.Store,
		audit:   opts.Audit,
		holders: map[string]*Holder{},
		menus:   opts.Menus,
		stop:    make(chan struct{}),
	}
	if m.menus == nil {
		m.menus = def.Set{}
	}
	mt, err := newMetrics(m, opts.Meters)
	if err != nil {
		return nil, err
	}
	m.metrics = mt
	return m, nil
}

// Len is the number of tracked observers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.holders)
}

func (m *Manager) notify(ev SessionEvent) {
	m.metrics.transition(ev)
	if m.audit != nil {
		m.audit.Record(ev)
	}
	if m.store == nil || ev.Kind != EventClose {
		return
	}
	if ev.Remember {
		m.store.SaveLast(ev.ObserverID, ev.MenuID)
	} else {
		m.store.SaveLast(ev.ObserverID, "")
	}
}

func (m *Manager) holder(observerID string) *Holder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holders[observerID]
}

// Track returns the observer's holder, creating it on first sight or when
// the tracked one has been closed.
func (m *Manager) Track(o Observer) *Holder {
	m.mu.RLock()
	h := m.holders[o.ID()]
	m.mu.RUnlock()
	if h != nil && !h.Closed() {
		return h
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h = m.holders[o.ID()]; h == nil || h.Closed() {
		h = newHolder(o, m.env, m.notify)
		m.holders[o.ID()] = h
	}
	return h
}

func (m *Manager) snapshot() []*Holder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Holder, 0, len(m.holders))
	for _, h := range m.holders {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].observer.ID() < out[j].observer.ID() })
	return out
}

func (m *Manager) drop(h *Holder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holders[h.observer.ID()] == h {
		delete(m.holders, h.observer.ID())
	}
}

// Menu looks up a loaded definition by id, ignoring case.
func (m *Manager) Menu(id string) (*def.Menu, bool) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()
	return m.menus.Get(id)
}

// MenuIDs lists loaded menu ids in sorted order.
func (m *Manager) MenuIDs() []string {
	m.menuMu.RLock()
	ids := m.menus.IDs()
	m.menuMu.RUnlock()
	sort.Strings(ids)
	return ids
}

// CreateSession opens d for o, replacing any open session.
func (m *Manager) CreateSession(o Observer, d *def.Menu) bool {
	return m.Track(o).OpenSession(d)
}

func (m *Manager) CreateSessionByID(o Observer, id string) error {
	d, ok := m.Menu(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMenu, id)
	}
	if !m.CreateSession(o, d) {
		return fmt.Errorf("%w: %s", ErrObserverOffline, o.ID())
	}
	return nil
}

func (m *Manager) DestroySession(observerID string, remember bool) bool {
	h := m.holder(observerID)
	if h == nil {
		return false
	}
	return h.CloseSession(remember)
}

// OpenLastSession reopens the observer's remembered menu, consulting the
// persistent store when nothing is remembered in memory.
func (m *Manager) OpenLastSession(observerID string) bool {
	h := m.holder(observerID)
	if h == nil {
		return false
	}
	var fallback func() (string, bool)
	if m.store != nil {
		fallback = func() (string, bool) { return m.store.LoadLast(observerID) }
	}
	return h.OpenLast(m.Menu, fallback)
}

// DestroyAllOfType closes every session built from menu id and calls fn for
// each affected observer.
func (m *Manager) DestroyAllOfType(id string, fn func(Observer)) {
	for _, h := range m.snapshot() {
		closed := h.OnSession(func(s *Session) bool {
			return s != nil && s.Is(id)
		})
		if closed && fn != nil {
			fn(h.observer)
		}
	}
}

// AddPreviewSession opens b in the observer's preview slot. It reports false
// when the observer is offline.
func (m *Manager) AddPreviewSession(o Observer, b *BlockSession) bool {
	return m.Track(o).OpenPreview(b)
}

// DestroyAll closes and forgets every holder. Holders tracked while it runs
// are left alone.
func (m *Manager) DestroyAll() {
	for _, h := range m.snapshot() {
		h.Close()
		m.drop(h)
	}
}

func (m *Manager) RefreshVisuals() {
	for _, h := range m.snapshot() {
		h.RefreshVisuals()
	}
}

// HandleMove applies an observer move to their session. It reports whether
// the move must be cancelled because the session freezes the observer.
func (m *Manager) HandleMove(observerID string, to geom.Position) (cancelled bool) {
	h := m.holder(observerID)
	if h == nil {
		return false
	}
	h.OnSession(func(s *Session) bool {
		switch {
		case s == nil:
			return false
		case !s.IsValid(to):
			return true
		case s.FreezeObserver():
			cancelled = true
		case s.FollowObserver():
			s.Move(to, RotateByObserver)
		}
		return false
	})
	return cancelled
}

func (m *Manager) HandleDeath(observerID string) {
	if h := m.holder(observerID); h != nil {
		h.OnSession(func(s *Session) bool {
			return s != nil && s.CloseOnDeath()
		})
	}
}

func (m *Manager) HandleRespawn(observerID string, at geom.Position) {
	m.relocate(observerID, at, false)
}

func (m *Manager) HandleTeleport(observerID string, to geom.Position) {
	m.relocate(observerID, to, true)
}

func (m *Manager) relocate(observerID string, to geom.Position, teleport bool) {
	h := m.holder(observerID)
	if h == nil {
		return
	}
	h.OnSession(func(s *Session) bool {
		if s == nil {
			return false
		}
		if !s.IsValid(to) || (teleport && s.CloseOnTeleport()) {
			return true
		}
		s.Move(to, RotateByObserver)
		return false
	})
}

// HandleQuit synchronously releases everything the observer owned.
func (m *Manager) HandleQuit(observerID string) {
	m.mu.Lock()
	h := m.holders[observerID]
	delete(m.holders, observerID)
	m.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// HandleClick clicks whatever the observer is looking at.
func (m *Manager) HandleClick(observerID string) bool {
	h := m.holder(observerID)
	if h == nil {
		return false
	}
	clicked := false
	menuID := ""
	h.OnSession(func(s *Session) bool {
		if s != nil && s.Click() {
			clicked, menuID = true, s.ID()
		}
		return false
	})
	if clicked {
		m.metrics.click(menuID)
	}
	return clicked
}

// Reload swaps in a freshly loaded menu set. Menus that failed to load keep
// their previous definition. Sessions of removed or changed menus are closed
// and their observers told with a sound.
func (m *Manager) Reload(set def.Set, loadErr error) {
	if set == nil && loadErr != nil {
		m.env.Log.Error().Err(loadErr).Msg("menu reload failed")
		return
	}
	m.menuMu.Lock()
	old := m.menus
	next := make(def.Set, len(set))
	for k, d := range set {
		next[k] = d
	}
	for _, id := range def.FailedIDs(loadErr) {
		if d, ok := old[id]; ok {
			if _, replaced := next[id]; !replaced {
				next[id] = d
			}
		}
	}
	stale := map[string]bool{}
	for k, d := range old {
		if nd, ok := next[k]; !ok || nd.Digest != d.Digest {
			stale[k] = true
		}
	}
	m.menus = next
	m.menuMu.Unlock()

	if loadErr != nil {
		m.env.Log.Warn().Err(loadErr).Strs("kept", def.FailedIDs(loadErr)).Msg("some menus failed to load")
	}
	m.env.Log.Info().Int("menus", len(next)).Int("stale", len(stale)).Msg("menus reloaded")
	if len(stale) == 0 {
		return
	}
	sound := def.SoundAction{Sound: ReloadSound, Source: "master", Volume: .5, Pitch: 1}
	for _, h := range m.snapshot() {
		var id string
		closed := h.OnSession(func(s *Session) bool {
			if s == nil || !stale[strings.ToLower(s.ID())] {
				return false
			}
			id = s.ID()
			return true
		})
		if closed {
			m.env.runActions(h.observer, []def.Action{
				def.MessageAction{Text: fmt.Sprintf(ReloadNotice, id), ActionBar: true},
				sound,
			})
		}
	}
}

// Tick runs one frame: holders tick in observer order, then previews are
// reconciled with what each observer looks at.
func (m *Manager) Tick() {
	m.ticks++
	st := m.env.settings()
	for _, h := range m.snapshot() {
		if h.Tick() {
			m.drop(h)
			continue
		}
		m.UpdatePreview(h)
		if m.ticks%2 == 0 {
			if st.Debug.Hitbox {
				h.debugHitboxes()
			}
			if st.Debug.Position {
				h.debugPositions()
			}
		}
	}
}

// UpdatePreview opens, keeps or closes h's container preview depending on
// the block the observer looks at.
func (m *Manager) UpdatePreview(h *Holder) {
	if !h.usable() {
		h.ClosePreview()
		return
	}
	st := m.env.settings()
	w := m.env.World
	if !st.Preview.Enabled || w == nil || m.env.Blocks == nil {
		h.ClosePreview()
		return
	}
	o := h.observer
	eye := o.EyeLocation()
	hit := w.RayTrace(eye.World, eye.Vec, eye.Direction(), st.Preview.LookDistance)
	if !hit.Hit {
		h.ClosePreview()
		return
	}
	blockID := w.BlockAt(eye.World, hit.Block)
	if m.env.Blocks.ContainerKind(blockID) == "" {
		h.ClosePreview()
		return
	}

	rebuild := false
	h.OnPreview(func(p *BlockSession) bool {
		if p != nil && p.ShouldRender(eye.World, hit.Block) {
			return false
		}
		rebuild = true
		return p != nil
	})
	if !rebuild {
		return
	}
	b, ok := NewPreview(m.env, o, eye.World, hit.Block, blockID)
	if !ok || !b.HasPermission() {
		return
	}
	h.OpenPreview(b)
}

// Run ticks at the configured rate until ctx is done or Stop is called.
func (m *Manager) Run(ctx context.Context) error {
	hz := m.env.settings().TickRateHz
	if hz <= 0 {
		hz = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.DestroyAll()
			return ctx.Err()
		case <-m.stop:
			m.DestroyAll()
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

func (m *Manager) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}
