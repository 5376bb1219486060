// Package render tracks the remote display entities spawned for observers and
// turns every change into a RENDER message for the host bridge.
package render

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"holoui.ai/internal/protocol"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

type Handle string

type Kind uint8

const (
	KindText Kind = iota + 1
	KindItem
	// KindBlock is an item rendered as a placed block.
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return protocol.EntityText
	case KindItem:
		return protocol.EntityItem
	case KindBlock:
		return protocol.EntityBlock
	default:
		return "UNKNOWN"
	}
}

// Entity is the full state of one display entity.
type Entity struct {
	Kind       Kind
	Position   geom.Position
	Text       string
	Item       voxel.ItemStack
	Scale      float64
	Billboard  bool
	Background bool
}

// Sink delivers server messages to whichever bridge owns observerID.
type Sink interface {
	Send(observerID string, v any)
}

type SinkFunc func(observerID string, v any)

func (f SinkFunc) Send(observerID string, v any) { f(observerID, v) }

type tracked struct {
	observer string
	entity   Entity
	spawned  bool
}

// Registry is the handle arena shared by every session. It is safe for
// concurrent use; operations on unknown handles are ignored.
type Registry struct {
	sink Sink
	log  zerolog.Logger

	mu       sync.Mutex
	entities map[Handle]*tracked
}

func NewRegistry(sink Sink, logger zerolog.Logger) *Registry {
	return &Registry{
		sink:     sink,
		log:      logger.With().Str("component", "render").Logger(),
		entities: map[Handle]*tracked{},
	}
}

// Add registers an entity without showing it to anyone.
func (r *Registry) Add(e Entity) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	r.entities[h] = &tracked{entity: e}
	r.mu.Unlock()
	return h
}

func (r *Registry) Spawn(h Handle, observerID string) {
	r.mu.Lock()
	t, ok := r.entities[h]
	if !ok {
		r.mu.Unlock()
		r.log.Debug().Str("handle", string(h)).Msg("spawn of released handle")
		return
	}
	t.observer = observerID
	t.spawned = true
	e := t.entity
	r.mu.Unlock()

	loc := location(e.Position)
	item := wireItem(e)
	r.send(observerID, protocol.RenderMsg{
		Op:         protocol.OpSpawn,
		Handle:     string(h),
		Entity:     e.Kind.String(),
		Location:   &loc,
		Text:       e.Text,
		Item:       item,
		Scale:      e.Scale,
		Background: e.Background,
		Billboard:  e.Billboard,
	})
}

func (r *Registry) Move(h Handle, delta mgl64.Vec3) {
	obs, ok := r.update(h, func(e *Entity) { e.Position.Vec = e.Position.Vec.Add(delta) })
	if !ok {
		return
	}
	d := [3]float64{delta.X(), delta.Y(), delta.Z()}
	r.send(obs, protocol.RenderMsg{Op: protocol.OpMove, Handle: string(h), Delta: &d})
}

func (r *Registry) GoTo(h Handle, pos geom.Position) {
	obs, ok := r.update(h, func(e *Entity) { e.Position = pos })
	if !ok {
		return
	}
	loc := location(pos)
	r.send(obs, protocol.RenderMsg{Op: protocol.OpGoTo, Handle: string(h), Location: &loc})
}

func (r *Registry) Rotate(h Handle, yaw float32) {
	obs, ok := r.update(h, func(e *Entity) { e.Position.Yaw = yaw })
	if !ok {
		return
	}
	r.send(obs, protocol.RenderMsg{Op: protocol.OpRotate, Handle: string(h), Yaw: &yaw})
}

func (r *Registry) SetText(h Handle, text string) {
	obs, ok := r.update(h, func(e *Entity) { e.Text = text })
	if !ok {
		return
	}
	r.send(obs, protocol.RenderMsg{Op: protocol.OpSetText, Handle: string(h), Text: text})
}

func (r *Registry) SetItem(h Handle, item voxel.ItemStack) {
	var e Entity
	obs, ok := r.update(h, func(cur *Entity) {
		cur.Item = item
		e = *cur
	})
	if !ok {
		return
	}
	r.send(obs, protocol.RenderMsg{Op: protocol.OpSetItem, Handle: string(h), Item: wireItem(e)})
}

// Despawn hides the entity but keeps the handle.
func (r *Registry) Despawn(h Handle) {
	r.mu.Lock()
	t, ok := r.entities[h]
	if !ok || !t.spawned {
		r.mu.Unlock()
		return
	}
	t.spawned = false
	obs := t.observer
	r.mu.Unlock()
	r.send(obs, protocol.RenderMsg{Op: protocol.OpDespawn, Handle: string(h)})
}

// Delete despawns the entity and releases the handle.
func (r *Registry) Delete(h Handle) {
	r.Despawn(h)
	r.mu.Lock()
	delete(r.entities, h)
	r.mu.Unlock()
}

// Particle is a one-shot debug marker.
func (r *Registry) Particle(observerID, world string, at mgl64.Vec3, color string) {
	loc := protocol.Location{World: world, Pos: [3]float64{at.X(), at.Y(), at.Z()}}
	r.send(observerID, protocol.RenderMsg{Op: protocol.OpParticle, Location: &loc, Particle: color})
}

func (r *Registry) Lookup(h Handle) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entities[h]
	if !ok {
		return Entity{}, false
	}
	return t.entity, true
}

// Owned lists the spawned handles shown to observerID, sorted.
func (r *Registry) Owned(observerID string) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Handle
	for h, t := range r.entities {
		if t.spawned && t.observer == observerID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// update mutates a tracked entity and reports its observer if it is spawned.
func (r *Registry) update(h Handle, fn func(*Entity)) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entities[h]
	if !ok {
		return "", false
	}
	fn(&t.entity)
	return t.observer, t.spawned
}

func (r *Registry) send(observerID string, m protocol.RenderMsg) {
	if r.sink == nil || observerID == "" {
		return
	}
	m.Type = protocol.TypeRender
	m.ProtocolVersion = protocol.Version
	m.ObserverID = observerID
	r.sink.Send(observerID, m)
}

func location(p geom.Position) protocol.Location {
	return protocol.Location{
		World: p.World,
		Pos:   [3]float64{p.Vec.X(), p.Vec.Y(), p.Vec.Z()},
		Yaw:   p.Yaw,
		Pitch: p.Pitch,
	}
}

func wireItem(e Entity) *protocol.ItemStack {
	if e.Kind == KindText {
		return nil
	}
	return &protocol.ItemStack{Item: e.Item.Item, Count: e.Item.Count, ModelData: e.Item.ModelData}
}
