package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon below which a squared length is treated as zero.
const degenerateLenSq = 1.0e-6

var (
	AxisX = mgl64.Vec3{1, 0, 0}
	AxisY = mgl64.Vec3{0, 1, 0}
	AxisZ = mgl64.Vec3{0, 0, 1}
)

func LenSq(v mgl64.Vec3) float64 {
	return v.Dot(v)
}

func DistSq(a, b mgl64.Vec3) float64 {
	return LenSq(a.Sub(b))
}

// Normalize returns the unit vector of v, or fallback when v has no usable length.
func Normalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if LenSq(v) <= degenerateLenSq {
		return fallback
	}
	return v.Normalize()
}

func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

func RotateAroundX(v mgl64.Vec3, degrees float64) mgl64.Vec3 {
	if degrees == 0 {
		return v
	}
	return mgl64.Rotate3DX(mgl64.DegToRad(degrees)).Mul3x1(v)
}

func RotateAroundY(v mgl64.Vec3, degrees float64) mgl64.Vec3 {
	if degrees == 0 {
		return v
	}
	return mgl64.Rotate3DY(mgl64.DegToRad(degrees)).Mul3x1(v)
}

// RotateAroundPoint rotates p about center, pitch around X first, then yaw around Y.
func RotateAroundPoint(p, center mgl64.Vec3, pitch, yaw float64) mgl64.Vec3 {
	rel := RotateAroundY(RotateAroundX(p.Sub(center), pitch), yaw)
	return rel.Add(center)
}

// RotationFromDirection returns (pitch, yaw) in degrees for a direction vector.
// Yaw is in [0, 360) with 0 facing +Z; a vertical direction yields yaw 0.
func RotationFromDirection(dir mgl64.Vec3) (pitch, yaw float64) {
	x, z := dir.X(), dir.Z()
	if x == 0 && z == 0 {
		if dir.Y() > 0 {
			return -90, 0
		}
		return 90, 0
	}
	const twoPi = 2 * math.Pi
	theta := math.Atan2(-x, z)
	yaw = mgl64.RadToDeg(math.Mod(theta+twoPi, twoPi))
	xz := math.Sqrt(x*x + z*z)
	pitch = mgl64.RadToDeg(math.Atan(-dir.Y() / xz))
	return pitch, yaw
}

// DirectionFromRotation is the inverse of RotationFromDirection for unit vectors.
func DirectionFromRotation(yaw, pitch float64) mgl64.Vec3 {
	ry := mgl64.DegToRad(yaw)
	rp := mgl64.DegToRad(pitch)
	xz := math.Cos(rp)
	return mgl64.Vec3{-xz * math.Sin(ry), -math.Sin(rp), xz * math.Cos(ry)}
}

func Lerp(from, to mgl64.Vec3, alpha float64) mgl64.Vec3 {
	alpha = Clamp(alpha, 0, 1)
	inv := 1 - alpha
	return mgl64.Vec3{
		from.X()*inv + to.X()*alpha,
		from.Y()*inv + to.Y()*alpha,
		from.Z()*inv + to.Z()*alpha,
	}
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
