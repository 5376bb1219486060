// Package voxel is the block world the menu engine queries for passability,
// line of sight and container contents. The host bridge keeps it current.
package voxel

import (
	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/geom"
)

// World is the read side of the block world.
type World interface {
	BlockAt(world string, p geom.BlockPos) string
	Passable(world string, p geom.BlockPos) bool
	// RayTrace reports the first non-passable block along dir within maxDist.
	RayTrace(world string, origin, dir mgl64.Vec3, maxDist float64) RaycastResult
	ContainerAt(world string, p geom.BlockPos) (Container, bool)
}

type RaycastResult struct {
	Block    geom.BlockPos
	Adjacent geom.BlockPos
	Distance float64
	Hit      bool
}

type ItemStack struct {
	Item      string `json:"item"`
	Count     int    `json:"count"`
	ModelData int    `json:"model_data,omitempty"`
}

func (s ItemStack) Empty() bool { return s.Item == "" || s.Item == "AIR" || s.Count <= 0 }

// SameItem compares identity, ignoring the count.
func (s ItemStack) SameItem(o ItemStack) bool {
	if s.Empty() || o.Empty() {
		return s.Empty() == o.Empty()
	}
	return s.Item == o.Item && s.ModelData == o.ModelData
}

type Container struct {
	Kind  string
	Slots []ItemStack
	// CookProgress is in [0,1] for furnace-like containers.
	CookProgress float64
}

func (c Container) Slot(i int) ItemStack {
	if i < 0 || i >= len(c.Slots) {
		return ItemStack{}
	}
	return c.Slots[i]
}
