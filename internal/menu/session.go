package menu

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
)

// Session is one open menu: a center anchored to an observer and the
// components laid out around it.
type Session struct {
	id       string
	observer Observer
	env      *Env

	freeze          bool
	follow          bool
	closeOnDeath    bool
	closeOnTeleport bool
	maxDistance     float64
	offset          mgl64.Vec3
	offsetDistSq    float64

	center     geom.Position
	initialYaw float32
	components []*Component

	// block marks preview sessions: icons billboard and use preview scales.
	block bool
}

// NewSession lays out d around the observer's current location. Components
// whose definition cannot be built are skipped.
func NewSession(d *def.Menu, o Observer, env *Env) *Session {
	s := newSession(d, o, env)
	for _, cd := range d.Components {
		if c := componentFromDef(s, cd); c != nil {
			s.components = append(s.components, c)
		}
	}
	return s
}

func newSession(d *def.Menu, o Observer, env *Env) *Session {
	offset := mirrorX(d.Offset)
	maxDist := d.MaxDistance
	if maxDist <= 0 {
		maxDist = def.DefaultMaxDistance
	}
	s := &Session{
		id:              d.ID,
		observer:        o,
		env:             env,
		freeze:          d.LockPosition,
		follow:          d.FollowObserver,
		closeOnDeath:    d.CloseOnDeath,
		closeOnTeleport: d.CloseOnTeleport,
		maxDistance:     maxDist,
		offset:          offset,
		offsetDistSq:    geom.LenSq(offset),
	}
	s.center = o.Location().Add(offset)
	return s
}

func (s *Session) ID() string               { return s.id }
func (s *Session) Observer() Observer       { return s.observer }
func (s *Session) Center() geom.Position    { return s.center }
func (s *Session) Offset() mgl64.Vec3       { return s.offset }
func (s *Session) InitialYaw() float32      { return s.initialYaw }
func (s *Session) FreezeObserver() bool     { return s.freeze }
func (s *Session) FollowObserver() bool     { return s.follow }
func (s *Session) CloseOnDeath() bool       { return s.closeOnDeath }
func (s *Session) CloseOnTeleport() bool    { return s.closeOnTeleport }
func (s *Session) MaxDistance() float64     { return s.maxDistance }
func (s *Session) Components() []*Component { return s.components }

// Is reports whether the session was built from the menu id, ignoring case.
func (s *Session) Is(id string) bool { return strings.EqualFold(s.id, id) }

// Open faces the menu toward where the observer looks and spawns every
// component.
func (s *Session) Open() {
	s.initialYaw = -s.observer.EyeLocation().Yaw
	for _, c := range s.components {
		c.Open(RotateByObserver)
	}
}

// Move re-centers the session on to plus the session offset.
func (s *Session) Move(to geom.Position, policy RotationPolicy) {
	s.center = to.Add(s.offset)
	for _, c := range s.components {
		c.Move(s.center)
		c.AdjustRotation(policy)
	}
}

func (s *Session) AdjustRotation(policy RotationPolicy) {
	for _, c := range s.components {
		c.AdjustRotation(policy)
	}
}

func (s *Session) Rotate(yaw float32) {
	for _, c := range s.components {
		c.Rotate(yaw)
	}
}

// RotateCenter swings the center around its un-offset origin by the initial
// yaw and re-anchors the components without rotating them.
func (s *Session) RotateCenter() {
	s.center = s.center.RotatedAround(s.CenterNoOffset().Vec, 0, float64(s.initialYaw))
	for _, c := range s.components {
		c.Move(s.center)
	}
}

// IsValid reports whether an observer at loc may keep the session open.
func (s *Session) IsValid(loc geom.Position) bool {
	if s.center.World == "" || !s.center.SameWorld(loc) {
		return false
	}
	return s.center.DistanceSq(loc) <= s.maxDistance*s.maxDistance+s.offsetDistSq
}

func (s *Session) CenterNoOffset() geom.Position {
	return s.center.Sub(s.offset)
}

// CenterInitialYawAdjusted is the center as seen after the opening rotation
// around the observer's eye.
func (s *Session) CenterInitialYawAdjusted() geom.Position {
	return s.center.RotatedAround(s.observer.EyeLocation().Vec, 0, float64(s.initialYaw))
}

// Tick ticks components in declared order.
func (s *Session) Tick() {
	for _, c := range s.components {
		c.Tick()
	}
}

// Close closes every component. The session is not reused afterwards.
func (s *Session) Close() {
	for _, c := range s.components {
		c.Close()
	}
}

// Click forwards a click to the selected clickable components.
func (s *Session) Click() bool {
	clicked := false
	for _, c := range s.components {
		if c.Selected() && c.Click() {
			clicked = true
		}
	}
	return clicked
}

// reopen closes and reopens every open component so they pick up new
// settings.
func (s *Session) reopen(policy RotationPolicy) {
	for _, c := range s.components {
		if !c.IsOpen() {
			continue
		}
		c.Close()
		c.Open(policy)
	}
}
