package bridge

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/protocol"
	"holoui.ai/internal/sim/geom"
)

const defaultEyeHeight = 1.62

// observer is the server-side mirror of a player reported by a bridge. It
// implements menu.Observer.
type observer struct {
	id string

	mu        sync.RWMutex
	bridge    string
	name      string
	online    bool
	loc       geom.Position
	eyeHeight float64
	perms     map[string]bool
	vars      map[string]string
}

func (o *observer) ID() string { return o.id }

func (o *observer) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name
}

func (o *observer) Online() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.online
}

func (o *observer) Location() geom.Position {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loc
}

func (o *observer) EyeLocation() geom.Position {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loc.Add(mgl64.Vec3{0, o.eyeHeight, 0})
}

func (o *observer) HasPermission(node string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.perms[node] || o.perms["*"]
}

func (o *observer) Variable(key string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.vars[key]
	return v, ok
}

func (o *observer) setLocation(p geom.Position) {
	o.mu.Lock()
	o.loc = p
	o.mu.Unlock()
}

func (o *observer) setOnline(v bool) {
	o.mu.Lock()
	o.online = v
	o.mu.Unlock()
}

func (o *observer) apply(m protocol.ObserverMsg) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if m.Name != "" {
		o.name = m.Name
	} else if o.name == "" {
		o.name = m.ObserverID
	}
	o.online = m.Online
	o.loc = position(m.Location)
	o.eyeHeight = m.EyeHeight
	if o.eyeHeight <= 0 {
		o.eyeHeight = defaultEyeHeight
	}
	if m.Permissions != nil {
		o.perms = make(map[string]bool, len(m.Permissions))
		for _, p := range m.Permissions {
			o.perms[p] = true
		}
	}
	if m.Variables != nil {
		o.vars = make(map[string]string, len(m.Variables))
		for k, v := range m.Variables {
			o.vars[k] = v
		}
	}
}

func position(l protocol.Location) geom.Position {
	return geom.Position{
		World: l.World,
		Vec:   mgl64.Vec3{l.Pos[0], l.Pos[1], l.Pos[2]},
		Yaw:   l.Yaw,
		Pitch: l.Pitch,
	}
}

// Directory maps observer ids to their state and owning bridge connection.
type Directory struct {
	mu        sync.RWMutex
	observers map[string]*observer
}

func NewDirectory() *Directory {
	return &Directory{observers: map[string]*observer{}}
}

// upsert applies an OBSERVER message. An observer reported by a different
// bridge moves to that bridge; the object itself is kept so open sessions
// keep tracking it.
func (d *Directory) upsert(bridgeID string, m protocol.ObserverMsg) *observer {
	d.mu.Lock()
	o := d.observers[m.ObserverID]
	if o == nil {
		o = &observer{id: m.ObserverID}
		d.observers[m.ObserverID] = o
	}
	d.mu.Unlock()
	o.mu.Lock()
	o.bridge = bridgeID
	o.mu.Unlock()
	o.apply(m)
	return o
}

func (d *Directory) get(id string) (*observer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.observers[id]
	return o, ok
}

// BridgeOf reports which bridge connection owns the observer.
func (d *Directory) BridgeOf(id string) (string, bool) {
	o, ok := d.get(id)
	if !ok {
		return "", false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.bridge, true
}

func (d *Directory) Remove(id string) {
	d.mu.Lock()
	delete(d.observers, id)
	d.mu.Unlock()
}

// RemoveBridge forgets every observer owned by bridgeID and returns their
// ids in sorted order.
func (d *Directory) RemoveBridge(bridgeID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	for id, o := range d.observers {
		o.mu.RLock()
		owned := o.bridge == bridgeID
		o.mu.RUnlock()
		if owned {
			ids = append(ids, id)
			delete(d.observers, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}
