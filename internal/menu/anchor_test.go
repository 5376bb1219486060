package menu

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/geom"
)

func TestAnchorSmoother_ConvergesGeometrically(t *testing.T) {
	var s anchorSmoother
	s.next(geom.At(testWorld, 0, 0, 0))
	target := geom.At(testWorld, 1, 0, 0)

	ticks := 0
	for ; ticks < 100; ticks++ {
		got := s.next(target)
		if got.DistanceSq(target) < anchorRestDistSq {
			break
		}
	}
	if ticks > 35 {
		t.Fatalf("took %d ticks to settle, want <= 35", ticks)
	}

	// Once settled the anchor stays put.
	settled := s.anchor
	s.next(target)
	if s.anchor != settled {
		t.Fatalf("settled anchor drifted: %v -> %v", settled.Vec, s.anchor.Vec)
	}
}

func TestAnchorSmoother_SingleBlendStep(t *testing.T) {
	var s anchorSmoother
	s.next(geom.At(testWorld, 0, 0, 0))
	got := s.next(geom.At(testWorld, 1, 0, 0))
	assertVec(t, got.Vec, mgl64.Vec3{anchorBlend, 0, 0})
}

func TestAnchorSmoother_SnapsOnLargeJumps(t *testing.T) {
	var s anchorSmoother
	s.next(geom.At(testWorld, 0, 0, 0))
	far := geom.At(testWorld, 1.2, 1.0, 0) // distSq 2.44
	if got := s.next(far); got.Vec != far.Vec {
		t.Fatalf("got %v want snap to %v", got.Vec, far.Vec)
	}
	other := geom.At("nether", 1.3, 1.0, 0)
	if got := s.next(other); got != other {
		t.Fatalf("world change should snap, got %+v", got)
	}
	s.reset()
	fresh := geom.At("nether", 9, 9, 9)
	if got := s.next(fresh); got != fresh {
		t.Fatalf("reset should snap, got %+v", got)
	}
}

func TestPitchBias(t *testing.T) {
	cases := []struct {
		pitch float32
		want  float64
	}{
		{0, 0},
		{90, anchorPitchBias},
		{-90, -anchorPitchBias},
		{180, anchorPitchBias},
		{45, math.Sin(math.Pi/4) * anchorPitchBias},
	}
	for _, tc := range cases {
		if got := pitchBias(tc.pitch); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("pitch %v: got %v want %v", tc.pitch, got, tc.want)
		}
	}
}

func TestPushDirection_Fallbacks(t *testing.T) {
	center := mgl64.Vec3{10.5, 64.5, 10.5}

	eye := geom.Position{World: testWorld, Vec: mgl64.Vec3{10.5, 70, 10.5}, Yaw: 0}
	assertVec(t, pushDirection(eye, center), mgl64.Vec3{0, 0, -1})

	eye.Pitch = 90
	assertVec(t, pushDirection(eye, center), geom.AxisZ)

	eye = geom.Position{World: testWorld, Vec: mgl64.Vec3{13.5, 60, 10.5}}
	assertVec(t, pushDirection(eye, center), mgl64.Vec3{1, 0, 0})
}

func scenarioResolver(env *testEnv) anchorResolver {
	return anchorResolver{
		world:   env.World,
		worldID: testWorld,
		block:   geom.BlockPos{X: 10, Y: 64, Z: 10},
		height:  .45,
		push:    .85,
	}
}

func baseCandidate(eye geom.Position, r anchorResolver) mgl64.Vec3 {
	center := r.block.Center()
	push := geom.Flatten(eye.Vec.Sub(center)).Normalize()
	return center.Add(mgl64.Vec3{0, r.height + pitchBias(eye.Pitch), 0}).Add(push.Mul(r.push))
}

func TestAnchorResolver_AcceptsBaseCandidateWhenClear(t *testing.T) {
	env := newTestEnv(t)
	env.grid.SetBlock(testWorld, geom.BlockPos{X: 10, Y: 64, Z: 10}, "CHEST")
	r := scenarioResolver(env)
	eye := geom.Position{World: testWorld, Vec: mgl64.Vec3{10, 65, 15}, Yaw: 180}

	got := r.resolve(eye)
	assertVec(t, got.Vec, baseCandidate(eye, r))
	if got.World != testWorld || got.Yaw != 0 || got.Pitch != 0 {
		t.Fatalf("anchor facing/world: %+v", got)
	}
}

func TestAnchorResolver_SkipsSolidCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.grid.SetBlock(testWorld, geom.BlockPos{X: 10, Y: 64, Z: 10}, "CHEST")
	r := scenarioResolver(env)
	eye := geom.Position{World: testWorld, Vec: mgl64.Vec3{10, 65, 15}, Yaw: 180}
	base := baseCandidate(eye, r)
	env.grid.SetBlock(testWorld, geom.BlockAt(base), "STONE")

	got := r.resolve(eye)
	if geom.BlockAt(got.Vec) == geom.BlockAt(base) {
		t.Fatalf("resolver picked the solid block %v", got.Vec)
	}
	if !env.grid.Passable(testWorld, got.Block()) {
		t.Fatalf("resolver picked a solid block %v", got.Vec)
	}
	// Height stays at the base while a push offset can clear the stone.
	if math.Abs(got.Vec.Y()-base.Y()) > 1e-9 {
		t.Fatalf("got height %v want %v", got.Vec.Y(), base.Y())
	}
}

func TestAnchorResolver_FallsBackWhenEverythingIsHidden(t *testing.T) {
	env := newTestEnv(t)
	r := scenarioResolver(env)
	eye := geom.Position{World: testWorld, Vec: mgl64.Vec3{10.5, 65.5, 15.5}, Yaw: 180}
	// Entomb the eye: every line of sight starts inside stone.
	env.grid.SetBlock(testWorld, geom.BlockAt(eye.Vec), "STONE")

	got := r.resolve(eye)
	assertVec(t, got.Vec, baseCandidate(eye, r))
}

func TestAnchorResolver_UsesBlockWorld(t *testing.T) {
	env := newTestEnv(t)
	r := scenarioResolver(env)
	eye := geom.Position{World: "nether", Vec: mgl64.Vec3{10, 65, 15}, Yaw: 180}

	got := r.resolve(eye)
	if got.World != testWorld {
		t.Fatalf("got world %q want %q", got.World, testWorld)
	}
	assertVec(t, got.Vec, baseCandidate(eye, r))
}
