package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CollisionPlane is a rotatable rectangle used for view-ray hit testing.
// Up, right and normal are kept consistent: normal = normalize(up x right).
type CollisionPlane struct {
	center mgl64.Vec3
	up     mgl64.Vec3
	right  mgl64.Vec3
	normal mgl64.Vec3

	width  float32
	height float32
	pitch  float32
	yaw    float32
}

func NewCollisionPlane(center mgl64.Vec3, width, height float32) *CollisionPlane {
	p := &CollisionPlane{
		center: center,
		width:  width,
		height: height,
		up:     AxisY,
		right:  AxisX,
	}
	p.calcNormal()
	return p
}

func (p *CollisionPlane) Center() mgl64.Vec3 { return p.center }
func (p *CollisionPlane) Up() mgl64.Vec3     { return p.up }
func (p *CollisionPlane) Right() mgl64.Vec3  { return p.right }
func (p *CollisionPlane) Normal() mgl64.Vec3 { return p.normal }
func (p *CollisionPlane) Width() float32     { return p.width }
func (p *CollisionPlane) Height() float32    { return p.height }
func (p *CollisionPlane) Pitch() float32     { return p.pitch }
func (p *CollisionPlane) Yaw() float32       { return p.yaw }

// IsLookingAt reports whether the ray origin+t*dir (t >= 0) crosses the rectangle.
func (p *CollisionPlane) IsLookingAt(origin, dir mgl64.Vec3) bool {
	proj := p.normal.Dot(dir)
	if proj == 0 {
		return false
	}
	t := p.normal.Dot(p.center.Sub(origin)) / proj
	if t < 0 {
		return false
	}
	hit := origin.Add(dir.Mul(t)).Sub(p.center)
	distX := math.Abs(p.right.Dot(hit))
	distY := math.Abs(p.up.Dot(hit))
	return distX < float64(p.width)/2 && distY < float64(p.height)/2
}

// Rotate sets the absolute pitch/yaw in degrees. Unchanged angles are a no-op.
func (p *CollisionPlane) Rotate(pitch, yaw float32) {
	if pitch == p.pitch && yaw == p.yaw {
		return
	}
	p.pitch = pitch
	p.yaw = yaw
	p.up = RotateAroundY(RotateAroundX(AxisY, float64(pitch)), float64(yaw))
	p.right = RotateAroundY(RotateAroundX(AxisX, float64(pitch)), float64(yaw))
	p.calcNormal()
}

func (p *CollisionPlane) Move(center mgl64.Vec3) {
	p.center = center
}

func (p *CollisionPlane) Translate(delta mgl64.Vec3) {
	p.center = p.center.Add(delta)
}

func (p *CollisionPlane) Resize(width, height float32) {
	p.width = width
	p.height = height
}

// Corners returns the rectangle corners: down-right, down-left, up-right, up-left.
func (p *CollisionPlane) Corners() [4]mgl64.Vec3 {
	halfUp := p.up.Mul(float64(p.height) / 2)
	halfRight := p.right.Mul(float64(p.width) / 2)
	return [4]mgl64.Vec3{
		p.center.Sub(halfUp).Add(halfRight),
		p.center.Sub(halfUp).Sub(halfRight),
		p.center.Add(halfUp).Add(halfRight),
		p.center.Add(halfUp).Sub(halfRight),
	}
}

func (p *CollisionPlane) calcNormal() {
	p.normal = Normalize(p.up.Cross(p.right), AxisZ.Mul(-1))
}
