package menu

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

// RotationPolicy selects the pivot used when a session turns its components.
type RotationPolicy uint8

const (
	// RotateByObserver pivots around the observer's eye, keeping the menu in
	// front of them.
	RotateByObserver RotationPolicy = iota + 1
	// RotateByCenter pivots around the session center, spinning the menu in
	// place.
	RotateByCenter
)

func (p RotationPolicy) String() string {
	switch p {
	case RotateByObserver:
		return "observer"
	case RotateByCenter:
		return "center"
	default:
		return "unknown"
	}
}

// variant is one of *decoration, *button, *toggle, *slot or *progress.
type variant interface{ isVariant() }

type decoration struct {
	icon def.Icon
}

type clickable struct {
	highlight float64
	plane     *geom.CollisionPlane
	selected  bool
}

type button struct {
	clickable
	icon    def.Icon
	actions []def.Action
}

type toggle struct {
	clickable
	state        bool
	trueIcon     *Icon
	falseIcon    *Icon
	trueActions  []def.Action
	falseActions []def.Action
}

// ContainerSource reads the live contents of a container.
type ContainerSource func() (voxel.Container, bool)

type slot struct {
	source      ContainerSource
	index       int
	current     voxel.ItemStack
	placeholder bool
}

type progress struct {
	source   func() float64
	segments int
	filled   int
}

func (*decoration) isVariant() {}
func (*button) isVariant()     {}
func (*toggle) isVariant()     {}
func (*slot) isVariant()       {}
func (*progress) isVariant()   {}

// Component is one offset-anchored element of a session. It owns exactly one
// active icon while open.
type Component struct {
	id       string
	session  *Session
	offset   mgl64.Vec3
	location geom.Position
	icon     *Icon
	open     bool
	variant  variant
}

// mirrorX flips an authored offset into world space.
func mirrorX(v mgl64.Vec3) mgl64.Vec3 { return mgl64.Vec3{-v.X(), v.Y(), v.Z()} }

func newComponent(s *Session, id string, offset mgl64.Vec3, v variant) *Component {
	c := &Component{id: id, session: s, offset: mirrorX(offset), variant: v}
	c.location = c.homeLocation(s.center)
	return c
}

func componentFromDef(s *Session, d def.Component) *Component {
	switch data := d.Data.(type) {
	case def.Decoration:
		return newComponent(s, d.ID, d.Offset, &decoration{icon: data.Icon})
	case def.Button:
		return newComponent(s, d.ID, d.Offset, &button{
			clickable: clickable{highlight: data.HighlightMod},
			icon:      data.Icon,
			actions:   data.Actions,
		})
	case def.Toggle:
		t := &toggle{
			clickable:    clickable{highlight: data.HighlightMod},
			trueActions:  data.TrueActions,
			falseActions: data.FalseActions,
		}
		c := newComponent(s, d.ID, d.Offset, t)
		t.trueIcon = newIcon(s, c.location, data.TrueIcon, d.ID)
		t.falseIcon = newIcon(s, c.location, data.FalseIcon, d.ID)
		t.state = strings.EqualFold(s.env.resolve(s.observer, data.Condition), data.Expected)
		return c
	default:
		s.env.Log.Warn().Str("menu", s.id).Str("component", d.ID).Msgf("skipping component of kind %T", d.Data)
		return nil
	}
}

func newSlotComponent(s *Session, id string, offset mgl64.Vec3, source ContainerSource, index int) *Component {
	sl := &slot{source: source, index: index}
	sl.current, sl.placeholder = sl.read(s)
	return newComponent(s, id, offset, sl)
}

func newProgressComponent(s *Session, id string, offset mgl64.Vec3, source func() float64, segments int) *Component {
	p := &progress{source: source, segments: segments}
	p.filled = p.read()
	return newComponent(s, id, offset, p)
}

func (c *Component) ID() string              { return c.id }
func (c *Component) Location() geom.Position { return c.location }
func (c *Component) Offset() mgl64.Vec3      { return c.offset }
func (c *Component) IsOpen() bool            { return c.open }
func (c *Component) Icon() *Icon             { return c.icon }

func (c *Component) clickable() *clickable {
	switch v := c.variant.(type) {
	case *button:
		return &v.clickable
	case *toggle:
		return &v.clickable
	}
	return nil
}

// Clickable reports whether the component reacts to clicks.
func (c *Component) Clickable() bool { return c.clickable() != nil }

func (c *Component) Selected() bool {
	cl := c.clickable()
	return cl != nil && cl.selected
}

// Plane is the click target, nil for passive components or before open.
func (c *Component) Plane() *geom.CollisionPlane {
	if cl := c.clickable(); cl != nil {
		return cl.plane
	}
	return nil
}

func (c *Component) homeLocation(center geom.Position) geom.Position {
	loc := center.Add(c.offset)
	loc.Yaw, loc.Pitch = 0, 0
	return loc
}

func (c *Component) pivot(policy RotationPolicy) mgl64.Vec3 {
	if policy == RotateByObserver {
		return c.session.observer.EyeLocation().Vec
	}
	return c.session.center.Vec
}

// Open places the component, spawns its icon and arms click detection.
func (c *Component) Open(policy RotationPolicy) {
	if c.open {
		return
	}
	c.location = c.homeLocation(c.session.center).
		RotatedAround(c.pivot(policy), 0, float64(c.session.initialYaw))
	c.icon = c.createIcon()
	c.icon.Teleport(c.location)
	c.icon.Spawn()
	c.icon.Rotate(c.session.initialYaw)
	if cl := c.clickable(); cl != nil {
		cl.plane = c.icon.BoundingPlane()
		cl.selected = false
	}
	c.open = true
}

func (c *Component) createIcon() *Icon {
	s := c.session
	switch v := c.variant.(type) {
	case *decoration:
		return newIcon(s, c.location, v.icon, c.id)
	case *button:
		return newIcon(s, c.location, v.icon, c.id)
	case *toggle:
		v.trueIcon.Teleport(c.location)
		v.falseIcon.Teleport(c.location)
		if v.state {
			return v.trueIcon
		}
		return v.falseIcon
	case *slot:
		return itemIcon(s, c.location, v.current)
	case *progress:
		return textIcon(s, c.location, progressBar(v.filled, v.segments))
	}
	return missingIcon(s, c.location)
}

// Tick runs the per-variant update, then animates the icon. Closed
// components ignore it.
func (c *Component) Tick() {
	if !c.open {
		return
	}
	switch v := c.variant.(type) {
	case *decoration:
	case *button:
		c.tickClickable(&v.clickable)
	case *toggle:
		c.tickClickable(&v.clickable)
	case *slot:
		c.tickSlot(v)
	case *progress:
		c.tickProgress(v)
	}
	c.icon.Tick()
}

func (c *Component) highlighted(cl *clickable) geom.Position {
	return c.location.Add(cl.plane.Normal().Mul(cl.highlight))
}

func (c *Component) tickClickable(cl *clickable) {
	eye := c.session.observer.EyeLocation()

	toPlane := geom.Normalize(cl.plane.Center().Sub(eye.Vec), geom.AxisZ)
	pitch, yaw := geom.RotationFromDirection(toPlane)
	cl.plane.Rotate(float32(pitch), float32(-yaw))
	if cl.selected {
		c.icon.Teleport(c.highlighted(cl))
	}

	looking := cl.plane.IsLookingAt(eye.Vec, eye.Direction())
	switch {
	case looking && !cl.selected:
		cl.selected = true
		c.icon.Move(cl.plane.Normal().Mul(cl.highlight))
	case !looking && cl.selected:
		cl.selected = false
		c.icon.Teleport(c.location)
	}
}

func (sl *slot) read(s *Session) (voxel.ItemStack, bool) {
	var stack voxel.ItemStack
	if sl.source != nil {
		if ct, ok := sl.source(); ok {
			stack = ct.Slot(sl.index)
		}
	}
	if !stack.Empty() {
		return stack, false
	}
	st := s.env.settings()
	if !st.Preview.ShowEmptySlots || st.Preview.EmptySlotItem == "" {
		return voxel.ItemStack{}, true
	}
	return voxel.ItemStack{Item: st.Preview.EmptySlotItem, Count: 1}, true
}

func (c *Component) tickSlot(sl *slot) {
	stack, placeholder := sl.read(c.session)
	switch {
	case placeholder:
		if sl.placeholder {
			return
		}
	case sl.current.SameItem(stack) && !sl.placeholder:
		if sl.current.Count != stack.Count {
			sl.current.Count = stack.Count
			c.icon.UpdateCount(stack.Count)
		}
		return
	}
	sl.current, sl.placeholder = stack, placeholder
	c.replaceIcon(itemIcon(c.session, c.location, stack))
}

func (p *progress) read() int {
	if p.source == nil {
		return 0
	}
	v := p.source()
	if math.IsNaN(v) {
		v = 0
	}
	return int(geom.Clamp(v, 0, 1) * float64(p.segments))
}

func (c *Component) tickProgress(p *progress) {
	filled := p.read()
	if filled == p.filled {
		return
	}
	p.filled = filled
	c.icon.UpdateLine(0, progressBar(filled, p.segments))
}

// replaceIcon removes the current icon before spawning next in its place.
func (c *Component) replaceIcon(next *Icon) {
	if c.icon != nil {
		c.icon.Remove()
	}
	c.icon = next
	c.icon.Teleport(c.location)
	c.icon.Spawn()
	c.icon.Rotate(c.session.initialYaw)
	if cl := c.clickable(); cl != nil {
		cl.plane = c.icon.BoundingPlane()
	}
}

// Move re-anchors the component to center. Rotation is left to
// AdjustRotation, which also brings the icon along.
func (c *Component) Move(center geom.Position) {
	c.location = c.homeLocation(center)
	if cl := c.clickable(); cl != nil && cl.plane != nil {
		cl.plane.Move(c.location.Vec)
	}
}

// AdjustRotation turns the location by the session's initial yaw around the
// pivot chosen by policy and syncs the icon.
func (c *Component) AdjustRotation(policy RotationPolicy) {
	c.location = c.location.RotatedAround(c.pivot(policy), 0, float64(c.session.initialYaw))
	cl := c.clickable()
	if cl != nil && cl.plane != nil {
		cl.plane.Move(c.location.Vec)
	}
	if !c.open {
		return
	}
	if cl != nil && cl.selected {
		c.icon.Teleport(c.highlighted(cl))
	} else {
		c.icon.Teleport(c.location)
	}
}

func (c *Component) Rotate(yaw float32) {
	if c.open {
		c.icon.Rotate(yaw)
	}
}

// Click runs the component's actions if the observer is looking at it.
func (c *Component) Click() bool {
	if !c.open {
		return false
	}
	o := c.session.observer
	switch v := c.variant.(type) {
	case *button:
		if !v.selected {
			return false
		}
		c.session.env.runActions(o, v.actions)
		return true
	case *toggle:
		if !v.selected {
			return false
		}
		if v.state {
			c.session.env.runActions(o, v.falseActions)
			c.replaceIcon(v.falseIcon)
		} else {
			c.session.env.runActions(o, v.trueActions)
			c.replaceIcon(v.trueIcon)
		}
		v.state = !v.state
		return true
	}
	return false
}

// State is the toggle state; false for other variants.
func (c *Component) State() bool {
	if t, ok := c.variant.(*toggle); ok {
		return t.state
	}
	return false
}

// Close removes the icon. Closing twice is a no-op.
func (c *Component) Close() {
	if !c.open {
		return
	}
	c.open = false
	c.icon.Remove()
	if cl := c.clickable(); cl != nil {
		cl.selected = false
	}
}
