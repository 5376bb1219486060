package voxel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/geom"
)

func solidAt(ps ...geom.BlockPos) func(geom.BlockPos) bool {
	set := map[geom.BlockPos]bool{}
	for _, p := range ps {
		set[p] = true
	}
	return func(p geom.BlockPos) bool { return set[p] }
}

func TestRaycast_HitsFirstSolid(t *testing.T) {
	solid := solidAt(geom.BlockPos{X: 0, Y: 0, Z: 3}, geom.BlockPos{X: 0, Y: 0, Z: 5})
	r := Raycast(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 0, 1}, 10, solid)
	if !r.Hit {
		t.Fatalf("expected hit")
	}
	if r.Block != (geom.BlockPos{X: 0, Y: 0, Z: 3}) {
		t.Fatalf("block: got %+v want (0,0,3)", r.Block)
	}
	if r.Adjacent != (geom.BlockPos{X: 0, Y: 0, Z: 2}) {
		t.Fatalf("adjacent: got %+v want (0,0,2)", r.Adjacent)
	}
	if r.Distance < 2.49 || r.Distance > 2.51 {
		t.Fatalf("distance: got %v want 2.5", r.Distance)
	}
}

func TestRaycast_StopsBeforeMaxDistance(t *testing.T) {
	solid := solidAt(geom.BlockPos{X: 0, Y: 0, Z: 3})
	if r := Raycast(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 0, 1}, 2.5, solid); r.Hit {
		t.Fatalf("hit at exactly max distance should be ignored: %+v", r)
	}
	if r := Raycast(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 0, 1}, 2.6, solid); !r.Hit {
		t.Fatalf("expected hit within 2.6")
	}
}

func TestRaycast_NegativeAndDiagonal(t *testing.T) {
	solid := solidAt(geom.BlockPos{X: -3, Y: 0, Z: -3})
	r := Raycast(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{-1, 0, -1}, 10, solid)
	if !r.Hit || r.Block != (geom.BlockPos{X: -3, Y: 0, Z: -3}) {
		t.Fatalf("got %+v want hit at (-3,0,-3)", r)
	}
}

func TestRaycast_ZeroDirection(t *testing.T) {
	if r := Raycast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{}, 10, func(geom.BlockPos) bool { return true }); r.Hit {
		t.Fatalf("zero direction must not hit")
	}
}

func TestGrid_PassableAndContainers(t *testing.T) {
	c := catalogs.Defaults()
	g := NewGrid(&c.Blocks)
	p := geom.BlockPos{X: 10, Y: 64, Z: 10}

	if !g.Passable("w", p) {
		t.Fatalf("air should be passable")
	}
	g.SetBlock("w", p, "CHEST")
	if g.Passable("w", p) {
		t.Fatalf("chest should not be passable")
	}
	if g.Passable("other", p) == false {
		t.Fatalf("worlds must be independent")
	}

	ct, ok := g.ContainerAt("w", p)
	if !ok || ct.Kind != "CHEST" || len(ct.Slots) != 0 {
		t.Fatalf("got %+v ok=%v want empty CHEST", ct, ok)
	}
	g.SetContainer("w", p, Container{Slots: []ItemStack{{Item: "DIAMOND", Count: 3}}})
	ct, _ = g.ContainerAt("w", p)
	if ct.Slot(0).Count != 3 || !ct.Slot(5).Empty() {
		t.Fatalf("unexpected slots: %+v", ct.Slots)
	}

	g.SetBlock("w", p, "TORCH")
	if _, ok := g.ContainerAt("w", p); ok {
		t.Fatalf("container should be gone after block change")
	}
	g.SetBlock("w", p, catalogs.Air)
	if g.BlockAt("w", p) != catalogs.Air {
		t.Fatalf("expected air")
	}
}

func TestGrid_RayTraceIgnoresPassable(t *testing.T) {
	c := catalogs.Defaults()
	g := NewGrid(&c.Blocks)
	g.SetBlock("w", geom.BlockPos{X: 0, Y: 0, Z: 2}, "TORCH")
	g.SetBlock("w", geom.BlockPos{X: 0, Y: 0, Z: 4}, "STONE")
	r := g.RayTrace("w", mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 0, 1}, 10)
	if !r.Hit || r.Block.Z != 4 {
		t.Fatalf("got %+v want stone at z=4", r)
	}
}

func TestItemStack_SameItem(t *testing.T) {
	a := ItemStack{Item: "DIAMOND", Count: 1}
	b := ItemStack{Item: "DIAMOND", Count: 5}
	if !a.SameItem(b) {
		t.Fatalf("count must not affect identity")
	}
	if a.SameItem(ItemStack{Item: "COAL", Count: 1}) || a.SameItem(ItemStack{}) {
		t.Fatalf("different items reported same")
	}
	if !(ItemStack{}).SameItem(ItemStack{Item: "AIR", Count: 1}) {
		t.Fatalf("empties should match")
	}
}
