package menu

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

// Candidate grid, searched height-major: the first visible candidate wins,
// so the order is the priority.
var (
	anchorHeightOffsets = [...]float64{0, .35, -.25, .70, -.55, 1.05, -.85}
	anchorPushOffsets   = [...]float64{0, .35, .70, 1.05, 1.40}
)

const (
	anchorSnapDistSq = 2.25
	anchorRestDistSq = 0.0004
	anchorBlend      = 0.22
	anchorPitchBias  = 0.40

	degenerateSq = 1.0e-6
)

// anchorResolver finds a visible, unobstructed point in front of a block.
type anchorResolver struct {
	world   voxel.World
	worldID string
	block   geom.BlockPos
	height  float64
	push    float64
}

// pitchBias raises the anchor when the observer looks down and lowers it
// when they look up.
func pitchBias(pitch float32) float64 {
	n := geom.Clamp(float64(pitch)/90, -1, 1)
	return math.Sin(n*math.Pi/2) * anchorPitchBias
}

func pushDirection(eye geom.Position, blockCenter mgl64.Vec3) mgl64.Vec3 {
	dir := geom.Flatten(eye.Vec.Sub(blockCenter))
	if geom.LenSq(dir) <= degenerateSq {
		dir = geom.Flatten(eye.Direction().Mul(-1))
	}
	if geom.LenSq(dir) <= degenerateSq {
		return geom.AxisZ
	}
	return dir.Normalize()
}

func (r anchorResolver) resolve(eye geom.Position) geom.Position {
	center := r.block.Center()
	push := pushDirection(eye, center)
	baseHeight := r.height + pitchBias(eye.Pitch)

	at := func(height, dist float64) geom.Position {
		v := center.Add(mgl64.Vec3{0, height, 0}).Add(push.Mul(dist))
		return geom.Position{World: r.worldID, Vec: v}
	}
	for _, h := range anchorHeightOffsets {
		for _, p := range anchorPushOffsets {
			c := at(baseHeight+h, r.push+p)
			if r.visible(c, eye) {
				return c
			}
		}
	}
	return at(baseHeight, r.push)
}

func (r anchorResolver) visible(candidate, eye geom.Position) bool {
	if r.world == nil || candidate.World == "" || candidate.World != eye.World {
		return false
	}
	if !r.world.Passable(candidate.World, candidate.Block()) {
		return false
	}
	toward := candidate.Vec.Sub(eye.Vec)
	dist := toward.Len()
	if dist <= 0 {
		return true
	}
	hit := r.world.RayTrace(eye.World, eye.Vec, toward.Mul(1/dist), dist)
	return !hit.Hit
}

// anchorSmoother damps anchor motion: small jitter is dropped, large jumps
// snap, everything else blends toward the target.
type anchorSmoother struct {
	anchor geom.Position
	ok     bool
}

func (s *anchorSmoother) reset() { s.ok = false }

func (s *anchorSmoother) next(target geom.Position) geom.Position {
	if !s.ok || s.anchor.World != target.World {
		s.anchor, s.ok = target, true
		return s.anchor
	}
	d := s.anchor.DistanceSq(target)
	switch {
	case d > anchorSnapDistSq:
		s.anchor = target
	case d < anchorRestDistSq:
	default:
		s.anchor.Vec = geom.Lerp(s.anchor.Vec, target.Vec, anchorBlend)
	}
	return s.anchor
}
