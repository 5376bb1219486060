package menu

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

// BlockSession is a session anchored near a block rather than carried by
// the observer. Container previews are block sessions.
type BlockSession struct {
	*Session

	world    string
	block    geom.BlockPos
	blockID  string
	resolver anchorResolver
	smoother anchorSmoother
}

// NewBlockSession builds an empty block session for the block blockID at
// pos. Callers add components with AddSlot, AddProgress and AddDecoration.
func NewBlockSession(d *def.Menu, o Observer, env *Env, world string, pos geom.BlockPos, blockID string) *BlockSession {
	s := newSession(d, o, env)
	s.block = true
	st := env.settings()
	bs := &BlockSession{
		Session: s,
		world:   world,
		block:   pos,
		blockID: blockID,
		resolver: anchorResolver{
			world:   env.World,
			worldID: world,
			block:   pos,
			height:  st.Preview.AnchorHeight,
			push:    st.Preview.AnchorPush,
		},
	}
	for _, cd := range d.Components {
		if c := componentFromDef(s, cd); c != nil {
			s.components = append(s.components, c)
		}
	}
	return bs
}

func (b *BlockSession) Block() geom.BlockPos { return b.block }
func (b *BlockSession) BlockID() string      { return b.blockID }
func (b *BlockSession) World() string        { return b.world }

// ShouldRender reports whether the preview still matches the block the
// observer looks at.
func (b *BlockSession) ShouldRender(world string, pos geom.BlockPos) bool {
	return b.env.settings().Preview.Enabled && world == b.world && pos == b.block
}

// HasPermission gates previews per block type when preview.by_permission is
// set.
func (b *BlockSession) HasPermission() bool {
	if !b.env.settings().Preview.ByPermission {
		return true
	}
	return b.observer.HasPermission("holoui.preview." + strings.ToLower(b.blockID))
}

// Open faces the panel toward the observer's view and spawns components
// rotated around the session center.
func (b *BlockSession) Open() {
	_, yaw := geom.RotationFromDirection(b.observer.EyeLocation().Direction())
	b.initialYaw = -float32(yaw)
	for _, c := range b.components {
		c.Open(RotateByCenter)
	}
}

// Rotate also makes yaw the pivot angle for following rotations.
func (b *BlockSession) Rotate(yaw float32) {
	b.Session.Rotate(yaw)
	b.initialYaw = yaw
}

// Move re-resolves the anchor near the block, or tracks to like a regular
// session when previews follow the observer. The center never tilts.
func (b *BlockSession) Move(to geom.Position, policy RotationPolicy) {
	if !b.env.settings().Preview.FollowObserver {
		eye := b.observer.EyeLocation()
		b.center = b.smoother.next(b.resolver.resolve(eye))
		for _, c := range b.components {
			c.Move(b.center)
		}
	} else {
		b.smoother.reset()
		b.center = to.Add(b.offset)
		b.RotateCenter()
	}
	b.center.Yaw, b.center.Pitch = 0, 0
	b.AdjustRotation(policy)
}

// AddSlot mirrors slot index of the container under the block.
func (b *BlockSession) AddSlot(id string, x, y, z float64, index int) {
	world, pos, w := b.world, b.block, b.env.World
	source := ContainerSource(nil)
	if w != nil {
		source = func() (voxel.Container, bool) { return w.ContainerAt(world, pos) }
	}
	b.components = append(b.components, newSlotComponent(b.Session, id, mgl64.Vec3{x, y, z}, source, index))
}

// AddProgress shows the container's cook progress as a segmented bar.
func (b *BlockSession) AddProgress(id string, x, y, z float64, segments int) {
	world, pos, w := b.world, b.block, b.env.World
	source := func() float64 {
		if w == nil {
			return 0
		}
		ct, ok := w.ContainerAt(world, pos)
		if !ok {
			return 0
		}
		return ct.CookProgress
	}
	b.components = append(b.components, newProgressComponent(b.Session, id, mgl64.Vec3{x, y, z}, source, segments))
}

// AddDecoration adds a static text line.
func (b *BlockSession) AddDecoration(id string, x, y, z float64, text string) {
	b.components = append(b.components, newComponent(b.Session, id, mgl64.Vec3{x, y, z}, &decoration{icon: def.TextIcon{Text: text}}))
}
