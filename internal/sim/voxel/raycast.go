package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/geom"
)

// Raycast walks the voxels pierced by the ray (Amanatides & Woo) starting
// with the block containing start. solid decides what stops the ray. Hits at
// or beyond maxDist are ignored.
func Raycast(start, direction mgl64.Vec3, maxDist float64, solid func(geom.BlockPos) bool) RaycastResult {
	if maxDist <= 0 || direction.Dot(direction) < 1e-12 {
		return RaycastResult{}
	}
	dir := direction.Normalize()

	cur := geom.BlockAt(start)
	var step [3]int
	var tMax, tDelta [3]float64
	pos := [3]int{cur.X, cur.Y, cur.Z}
	for i := 0; i < 3; i++ {
		d := dir[i]
		switch {
		case d > 0:
			step[i] = 1
			tMax[i] = (float64(pos[i]+1) - start[i]) / d
			tDelta[i] = 1 / d
		case d < 0:
			step[i] = -1
			tMax[i] = (float64(pos[i]) - start[i]) / d
			tDelta[i] = -1 / d
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	prev := cur
	dist := 0.0
	for dist < maxDist {
		bp := geom.BlockPos{X: pos[0], Y: pos[1], Z: pos[2]}
		if solid(bp) {
			return RaycastResult{Block: bp, Adjacent: prev, Distance: dist, Hit: true}
		}
		prev = bp

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		dist = tMax[axis]
		pos[axis] += step[axis]
		tMax[axis] += tDelta[axis]
	}
	return RaycastResult{}
}
