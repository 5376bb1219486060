package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Position is a world coordinate with a facing. It is a value: holders keep
// their own copy and reconcile it explicitly.
type Position struct {
	World string
	Vec   mgl64.Vec3
	Yaw   float32
	Pitch float32
}

func At(world string, x, y, z float64) Position {
	return Position{World: world, Vec: mgl64.Vec3{x, y, z}}
}

func (p Position) Add(v mgl64.Vec3) Position {
	p.Vec = p.Vec.Add(v)
	return p
}

func (p Position) Sub(v mgl64.Vec3) Position {
	p.Vec = p.Vec.Sub(v)
	return p
}

func (p Position) WithVec(v mgl64.Vec3) Position {
	p.Vec = v
	return p
}

func (p Position) WithRotation(yaw, pitch float32) Position {
	p.Yaw = yaw
	p.Pitch = pitch
	return p
}

// DistanceSq ignores worlds; callers compare World first where it matters.
func (p Position) DistanceSq(o Position) float64 {
	return DistSq(p.Vec, o.Vec)
}

func (p Position) SameWorld(o Position) bool {
	return p.World != "" && p.World == o.World
}

func (p Position) Direction() mgl64.Vec3 {
	return DirectionFromRotation(float64(p.Yaw), float64(p.Pitch))
}

func (p Position) Block() BlockPos {
	return BlockPos{
		X: int(math.Floor(p.Vec.X())),
		Y: int(math.Floor(p.Vec.Y())),
		Z: int(math.Floor(p.Vec.Z())),
	}
}

// RotatedAround returns p rotated about center (position only, facing kept).
func (p Position) RotatedAround(center mgl64.Vec3, pitch, yaw float64) Position {
	p.Vec = RotateAroundPoint(p.Vec, center, pitch, yaw)
	return p
}

type BlockPos struct {
	X, Y, Z int
}

func BlockAt(v mgl64.Vec3) BlockPos {
	return BlockPos{
		X: int(math.Floor(v.X())),
		Y: int(math.Floor(v.Y())),
		Z: int(math.Floor(v.Z())),
	}
}

func (b BlockPos) Vec() mgl64.Vec3 {
	return mgl64.Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
}

func (b BlockPos) Center() mgl64.Vec3 {
	return b.Vec().Add(mgl64.Vec3{0.5, 0.5, 0.5})
}
