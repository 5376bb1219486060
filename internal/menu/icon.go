package menu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

const (
	// NametagSize is the height of one text line at scale 1.
	NametagSize = 1.0 / 16 * 3.5

	itemOffset  = 1.0
	blockOffset = -0.95
	countLift   = 0.09
)

type iconKind uint8

const (
	iconItem iconKind = iota + 1
	iconText
	iconImage
	iconAnimated
)

// Icon owns the display entities that draw one component.
type Icon struct {
	kind     iconKind
	session  *Session
	position geom.Position
	handles  []render.Handle

	item voxel.ItemStack

	// Text lines; for animations the current frame.
	lines  []string
	frames [][]string
	frame  int
	ticks  int
	speed  int
}

// newIcon builds the icon described by d. Build failures are logged and
// replaced with the missing placeholder.
func newIcon(s *Session, loc geom.Position, d def.Icon, componentID string) *Icon {
	ic, err := buildIcon(s, loc, d)
	if err != nil {
		s.env.Log.Warn().Err(err).
			Str("menu", s.id).
			Str("component", componentID).
			Msg("icon build failed, using missing placeholder")
		return missingIcon(s, loc)
	}
	return ic
}

func baseIcon(s *Session, loc geom.Position, kind iconKind) *Icon {
	loc.Yaw, loc.Pitch = 0, 0
	return &Icon{kind: kind, session: s, position: loc}
}

func buildIcon(s *Session, loc geom.Position, d def.Icon) (*Icon, error) {
	switch d := d.(type) {
	case def.ItemIcon:
		ic := baseIcon(s, loc, iconItem)
		ic.item = voxel.ItemStack{Item: d.Item, Count: max(d.Count, 1), ModelData: d.ModelData}
		return ic, nil
	case def.TextIcon:
		ic := baseIcon(s, loc, iconText)
		for _, l := range splitLines(d.Text) {
			ic.lines = append(ic.lines, s.env.resolve(s.observer, l))
		}
		return ic, nil
	case def.ImageIcon:
		if d.Err != nil {
			return nil, fmt.Errorf("image %q: %w", d.Path, d.Err)
		}
		if d.Image == nil {
			return nil, fmt.Errorf("image %q: not loaded", d.Path)
		}
		ic := baseIcon(s, loc, iconImage)
		ic.lines = imageLines(d.Image, d.Image.Height)
		return ic, nil
	case def.AnimatedIcon:
		if d.Err != nil {
			return nil, fmt.Errorf("animation %v: %w", d.Sources, d.Err)
		}
		if len(d.Frames) == 0 {
			return nil, fmt.Errorf("animation %v: no frames", d.Sources)
		}
		height := 0
		for _, f := range d.Frames {
			height = max(height, f.Height)
		}
		ic := baseIcon(s, loc, iconAnimated)
		for _, f := range d.Frames {
			ic.frames = append(ic.frames, imageLines(f, height))
		}
		ic.lines = ic.frames[0]
		ic.speed = max(d.Speed, 1)
		return ic, nil
	case nil:
		return nil, fmt.Errorf("no icon: %w", def.ErrUnknownKind)
	default:
		return nil, fmt.Errorf("icon %T: %w", d, def.ErrUnknownKind)
	}
}

func missingIcon(s *Session, loc geom.Position) *Icon {
	ic := baseIcon(s, loc, iconImage)
	ic.lines = append([]string(nil), missingLines...)
	return ic
}

func itemIcon(s *Session, loc geom.Position, stack voxel.ItemStack) *Icon {
	ic := baseIcon(s, loc, iconItem)
	ic.item = stack
	return ic
}

func textIcon(s *Session, loc geom.Position, lines ...string) *Icon {
	ic := baseIcon(s, loc, iconText)
	ic.lines = lines
	return ic
}

func (ic *Icon) Position() geom.Position  { return ic.position }
func (ic *Icon) Handles() []render.Handle { return ic.handles }
func (ic *Icon) Spawned() bool            { return len(ic.handles) > 0 }

func (ic *Icon) scale() float64 {
	st := ic.session.env.settings()
	scale := st.UIScale
	if ic.session.block {
		if ic.kind == iconItem {
			scale *= st.Preview.IconScale
		} else {
			scale *= st.Preview.TextScale
		}
	}
	return scale
}

func (ic *Icon) tagSize() float64 { return NametagSize * ic.scale() }

func (ic *Icon) billboard() bool { return ic.session.block }

// asBlock reports whether the item is drawn as a placed block.
func (ic *Icon) asBlock() bool {
	if ic.session.block || ic.kind != iconItem {
		return false
	}
	items := ic.session.env.Items
	return items != nil && items.RendersAsBlock(ic.item.Item)
}

func (ic *Icon) renderer() Renderer { return ic.session.env.Renderer }

// Spawn creates the entities and shows them to the session's observer.
func (ic *Icon) Spawn() {
	if ic.Spawned() {
		return
	}
	at := ic.position.Sub(mgl64.Vec3{0, ic.tagSize(), 0})
	ic.handles = ic.createEntities(at)
	r, obs := ic.renderer(), ic.session.observer.ID()
	for _, h := range ic.handles {
		r.Spawn(h, obs)
	}
}

func (ic *Icon) createEntities(at geom.Position) []render.Handle {
	r := ic.renderer()
	scale := ic.scale()
	if ic.kind == iconItem {
		if ic.item.Empty() {
			return nil
		}
		loc := at
		kind := render.KindItem
		if ic.asBlock() {
			kind = render.KindBlock
			loc = loc.Add(mgl64.Vec3{0, blockOffset * scale, 0})
		} else {
			lift := 0.0
			if !ic.session.block && ic.item.Count <= 1 {
				lift = countLift
			}
			loc = loc.Sub(mgl64.Vec3{0, (itemOffset + lift) * scale, 0})
		}
		hs := []render.Handle{r.Add(render.Entity{
			Kind:      kind,
			Position:  loc,
			Item:      ic.item,
			Scale:     scale,
			Billboard: ic.billboard(),
		})}
		if ic.item.Count > 1 {
			hs = append(hs, r.Add(ic.countEntity(ic.item.Count)))
		}
		return hs
	}

	lh := ic.tagSize()
	loc := at.Add(mgl64.Vec3{0, float64(len(ic.lines)-1)/2*lh - lh, 0})
	hs := make([]render.Handle, 0, len(ic.lines))
	for _, line := range ic.lines {
		hs = append(hs, r.Add(render.Entity{
			Kind:       render.KindText,
			Position:   loc,
			Text:       line,
			Scale:      scale,
			Billboard:  ic.billboard(),
			Background: ic.session.block && ic.kind == iconText,
		}))
		loc = loc.Sub(mgl64.Vec3{0, lh, 0})
	}
	return hs
}

func (ic *Icon) countScale() float64 {
	scale := ic.scale()
	if ic.session.block {
		st := ic.session.env.settings()
		if st.Preview.IconScale > 0 {
			scale *= st.Preview.TextScale / st.Preview.IconScale
		}
	}
	return scale
}

func (ic *Icon) countEntity(count int) render.Entity {
	return render.Entity{
		Kind:       render.KindText,
		Position:   ic.countLocation(),
		Text:       fmt.Sprintf("&f&l%d", count),
		Scale:      ic.countScale(),
		Billboard:  ic.billboard(),
		Background: ic.session.block,
	}
}

func (ic *Icon) countLocation() geom.Position {
	scale := ic.scale()
	if ic.session.block {
		loc := ic.position.Add(mgl64.Vec3{.18 * scale, -ic.tagSize() - .20*scale, 0})
		toward := ic.session.observer.EyeLocation().Vec.Sub(loc.Vec)
		if toward.Dot(toward) > 0 {
			loc = loc.Add(toward.Normalize().Mul(.08 * scale))
		}
		return loc
	}
	return ic.position.Add(mgl64.Vec3{0, -ic.tagSize() - .37*scale, 0})
}

// Remove despawns and releases every entity.
func (ic *Icon) Remove() {
	r := ic.renderer()
	for _, h := range ic.handles {
		r.Delete(h)
	}
	ic.handles = nil
}

func (ic *Icon) Move(offset mgl64.Vec3) {
	r := ic.renderer()
	for _, h := range ic.handles {
		r.Move(h, offset)
	}
	ic.position = ic.position.Add(offset)
}

// Teleport moves the icon so its position becomes loc.
func (ic *Icon) Teleport(loc geom.Position) {
	delta := loc.Vec.Sub(ic.position.Vec)
	if delta == (mgl64.Vec3{}) {
		return
	}
	ic.Move(delta)
}

// Rotate turns the icon for a session yaw. Billboarded icons always face the
// observer and ignore it.
func (ic *Icon) Rotate(yaw float32) {
	if ic.billboard() || !ic.Spawned() {
		return
	}
	r := ic.renderer()
	if ic.asBlock() {
		scale := ic.scale()
		pivot := ic.position.Vec
		at := ic.position.Add(mgl64.Vec3{0, blockOffset * scale, .3 * scale}).RotatedAround(pivot, 0, float64(yaw))
		r.GoTo(ic.handles[0], at)
	}
	facing := 180 - yaw
	for _, h := range ic.handles {
		r.Rotate(h, facing)
	}
}

// Tick advances animations.
func (ic *Icon) Tick() {
	if ic.kind != iconAnimated || len(ic.frames) < 2 {
		return
	}
	ic.ticks++
	if ic.ticks < ic.speed {
		return
	}
	ic.ticks = 0
	ic.frame = (ic.frame + 1) % len(ic.frames)
	ic.lines = ic.frames[ic.frame]
	r := ic.renderer()
	for i, h := range ic.handles {
		if i < len(ic.lines) {
			r.SetText(h, ic.lines[i])
		}
	}
}

// BoundingPlane is the click target for the icon at its current position.
func (ic *Icon) BoundingPlane() *geom.CollisionPlane {
	scale := ic.scale()
	if ic.kind == iconItem {
		center := ic.position.Vec.Sub(mgl64.Vec3{0, .05 * scale, 0})
		return geom.NewCollisionPlane(center, float32(.75*scale), float32(.75*scale))
	}
	lh := ic.tagSize()
	width := 0.0
	for _, l := range ic.lines {
		width = max(width, float64(contentLen(l))*lh/2)
	}
	rows := len(ic.lines)
	if ic.kind != iconText {
		rows--
	}
	return geom.NewCollisionPlane(ic.position.Vec, float32(width), float32(float64(rows)*lh))
}

// UpdateCount changes the stack size of an item icon in place, adding or
// removing the count label as needed.
func (ic *Icon) UpdateCount(count int) {
	if ic.kind != iconItem {
		return
	}
	ic.item.Count = count
	if !ic.Spawned() {
		return
	}
	r := ic.renderer()
	scale := ic.scale()
	switch {
	case len(ic.handles) == 1 && count > 1:
		if !ic.session.block && !ic.asBlock() {
			r.Move(ic.handles[0], mgl64.Vec3{0, countLift * scale, 0})
		}
		h := r.Add(ic.countEntity(count))
		ic.handles = append(ic.handles, h)
		r.Spawn(h, ic.session.observer.ID())
	case len(ic.handles) == 2 && count < 2:
		if !ic.session.block && !ic.asBlock() {
			r.Move(ic.handles[0], mgl64.Vec3{0, -countLift * scale, 0})
		}
		r.Delete(ic.handles[1])
		ic.handles = ic.handles[:1]
	case len(ic.handles) == 2:
		r.SetText(ic.handles[1], fmt.Sprintf("&f&l%d", count))
	}
	r.SetItem(ic.handles[0], ic.item)
}

// UpdateLine replaces one line of a text icon.
func (ic *Icon) UpdateLine(i int, text string) {
	if ic.kind != iconText || i < 0 || i >= len(ic.lines) {
		return
	}
	ic.lines[i] = text
	if i < len(ic.handles) {
		ic.renderer().SetText(ic.handles[i], text)
	}
}
