package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestRotationFromDirection_RoundTrip(t *testing.T) {
	for _, rot := range [][2]float64{{0, 0}, {30, 90}, {-45, 180}, {10, 270}, {0, 359}} {
		dir := DirectionFromRotation(rot[1], rot[0])
		pitch, yaw := RotationFromDirection(dir)
		if math.Abs(pitch-rot[0]) > 1e-9 || math.Abs(yaw-rot[1]) > 1e-9 {
			t.Fatalf("rotation %v: got pitch=%v yaw=%v", rot, pitch, yaw)
		}
	}
}

func TestRotationFromDirection_Vertical(t *testing.T) {
	if p, y := RotationFromDirection(mgl64.Vec3{0, 1, 0}); p != -90 || y != 0 {
		t.Fatalf("up: got %v %v", p, y)
	}
	if p, y := RotationFromDirection(mgl64.Vec3{0, -1, 0}); p != 90 || y != 0 {
		t.Fatalf("down: got %v %v", p, y)
	}
}

func TestRotateAroundPoint(t *testing.T) {
	center := mgl64.Vec3{10, 0, 10}
	got := RotateAroundPoint(mgl64.Vec3{11, 0, 10}, center, 0, 90)
	if !vecNear(got, mgl64.Vec3{10, 0, 9}) {
		t.Fatalf("got %v", got)
	}
	if got := RotateAroundPoint(mgl64.Vec3{11, 2, 10}, center, 0, 0); got != (mgl64.Vec3{11, 2, 10}) {
		t.Fatalf("zero rotation moved point: %v", got)
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	fb := mgl64.Vec3{0, 0, 1}
	if got := Normalize(mgl64.Vec3{}, fb); got != fb {
		t.Fatalf("got %v", got)
	}
	if got := Normalize(mgl64.Vec3{0, 0, 4}, mgl64.Vec3{1, 0, 0}); !vecNear(got, fb) {
		t.Fatalf("got %v", got)
	}
}

func TestLerp(t *testing.T) {
	got := Lerp(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 2, 4}, 0.25)
	if !vecNear(got, mgl64.Vec3{0.25, 0.5, 1}) {
		t.Fatalf("got %v", got)
	}
	if got := Lerp(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, 3); got != (mgl64.Vec3{1, 1, 1}) {
		t.Fatalf("alpha not clamped: %v", got)
	}
}
