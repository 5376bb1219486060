package menu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
)

func TestSession_ThreeComponentLayout(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	offsets := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, .5, -.25}}
	d := textMenu("main", mgl64.Vec3{0, 1, 0},
		deco("a", offsets[0]), deco("b", offsets[1]), deco("c", offsets[2]))

	s := NewSession(d, o, env.Env)
	assertVec(t, s.Center().Vec, mgl64.Vec3{0, 1, 0})
	s.Open()

	cs := s.Components()
	if len(cs) != 3 {
		t.Fatalf("got %d components want 3", len(cs))
	}
	for i, c := range cs {
		if !c.IsOpen() {
			t.Fatalf("component %s not open", c.ID())
		}
		want := s.Center().Vec.Add(mirrorX(offsets[i]))
		assertVec(t, c.Location().Vec, want)
	}
	// Pairwise differences are exactly the declared offsets.
	assertVec(t, cs[1].Location().Vec.Sub(cs[0].Location().Vec), mirrorX(offsets[1].Sub(offsets[0])))
}

func TestSession_MoveKeepsComponentOffsets(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	d := textMenu("main", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{.5, 0, 0}), deco("b", mgl64.Vec3{0, -.5, 0}))
	s := NewSession(d, o, env.Env)
	s.Open()

	targets := []geom.Position{geom.At(testWorld, 3, 0, 0), geom.At(testWorld, -2, 5, 7)}
	for _, to := range targets {
		s.Move(to, RotateByObserver)
		assertVec(t, s.Center().Vec, to.Vec.Add(mgl64.Vec3{0, 1, 2}))
		for _, c := range s.Components() {
			assertVec(t, c.Location().Vec, s.Center().Vec.Add(c.Offset()))
			assertVec(t, c.Icon().Position().Vec, c.Location().Vec)
		}
	}
}

func TestSession_OpenFacesObserver(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	o.look(90, 0)
	d := textMenu("main", mgl64.Vec3{0, testEyeHeight, 2}, deco("a", mgl64.Vec3{}))
	s := NewSession(d, o, env.Env)
	s.Open()

	if s.InitialYaw() != -90 {
		t.Fatalf("initial yaw: got %v want -90", s.InitialYaw())
	}
	c := s.Components()[0]
	eye := o.EyeLocation().Vec
	if d := c.Location().Vec.Sub(eye).Len(); d < 1.999 || d > 2.001 {
		t.Fatalf("distance from eye: got %v want 2", d)
	}
	// Yaw 90 looks toward -X.
	if c.Location().Vec.X() > -1.999 {
		t.Fatalf("component not in view: %v", c.Location().Vec)
	}
}

func TestSession_IsValid(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	d := textMenu("main", mgl64.Vec3{0, 1, 0})
	d.MaxDistance = 5
	s := NewSession(d, o, env.Env)

	// Limit is 5² + |offset|² = 26.
	if !s.IsValid(geom.At(testWorld, 5, 1, 1)) {
		t.Fatalf("expected inside envelope")
	}
	if s.IsValid(geom.At(testWorld, 5.2, 1, 1)) {
		t.Fatalf("expected outside envelope")
	}
	if s.IsValid(geom.At("nether", 0, 1, 0)) {
		t.Fatalf("expected other world to be invalid")
	}
}

func TestSession_RotateCenterAndHelpers(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	d := textMenu("main", mgl64.Vec3{0, 0, 2}, deco("a", mgl64.Vec3{}))
	s := NewSession(d, o, env.Env)
	assertVec(t, s.CenterNoOffset().Vec, mgl64.Vec3{0, 0, 0})

	s.initialYaw = 180
	s.RotateCenter()
	assertVec(t, s.Center().Vec, mgl64.Vec3{0, 0, -2})
	assertVec(t, s.Components()[0].Location().Vec, mgl64.Vec3{0, 0, -2})
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	s := NewSession(textMenu("main", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{}), deco("b", mgl64.Vec3{1, 0, 0})), o, env.Env)
	s.Open()
	if env.reg.Len() == 0 {
		t.Fatalf("expected spawned entities")
	}
	s.Close()
	s.Close()
	if env.reg.Len() != 0 {
		t.Fatalf("got %d entities after close want 0", env.reg.Len())
	}
	for _, c := range s.Components() {
		if c.IsOpen() {
			t.Fatalf("component %s still open", c.ID())
		}
		c.Tick()
	}
}

func TestSession_SkipsUnknownComponentKinds(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	d := textMenu("main", mgl64.Vec3{}, deco("a", mgl64.Vec3{}), def.Component{ID: "ghost"})
	s := NewSession(d, o, env.Env)
	if len(s.Components()) != 1 {
		t.Fatalf("got %d components want 1", len(s.Components()))
	}
}
