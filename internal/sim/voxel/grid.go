package voxel

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/geom"
)

type worldKey struct {
	world string
	pos   geom.BlockPos
}

// Grid is a sparse, concurrency-safe World. Unset positions are air.
type Grid struct {
	blocks *catalogs.BlockCatalog

	mu         sync.RWMutex
	cells      map[worldKey]string
	containers map[worldKey]Container
}

func NewGrid(blocks *catalogs.BlockCatalog) *Grid {
	return &Grid{
		blocks:     blocks,
		cells:      map[worldKey]string{},
		containers: map[worldKey]Container{},
	}
}

func (g *Grid) SetBlock(world string, p geom.BlockPos, block string) {
	k := worldKey{world, p}
	g.mu.Lock()
	defer g.mu.Unlock()
	if block == "" || block == catalogs.Air {
		delete(g.cells, k)
		delete(g.containers, k)
		return
	}
	g.cells[k] = block
	if g.blocks.ContainerKind(block) == "" {
		delete(g.containers, k)
	}
}

// SetContainer stores inventory contents for a container block. Kind defaults
// to the catalog's container kind for the block at p.
func (g *Grid) SetContainer(world string, p geom.BlockPos, c Container) {
	k := worldKey{world, p}
	g.mu.Lock()
	defer g.mu.Unlock()
	if c.Kind == "" {
		c.Kind = g.blocks.ContainerKind(g.cells[k])
	}
	c.Slots = append([]ItemStack(nil), c.Slots...)
	g.containers[k] = c
}

func (g *Grid) BlockAt(world string, p geom.BlockPos) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if b, ok := g.cells[worldKey{world, p}]; ok {
		return b
	}
	return catalogs.Air
}

func (g *Grid) Passable(world string, p geom.BlockPos) bool {
	return !g.blocks.Solid(g.BlockAt(world, p))
}

func (g *Grid) RayTrace(world string, origin, dir mgl64.Vec3, maxDist float64) RaycastResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Raycast(origin, dir, maxDist, func(p geom.BlockPos) bool {
		b, ok := g.cells[worldKey{world, p}]
		return ok && g.blocks.Solid(b)
	})
}

func (g *Grid) ContainerAt(world string, p geom.BlockPos) (Container, bool) {
	k := worldKey{world, p}
	g.mu.RLock()
	defer g.mu.RUnlock()
	kind := g.blocks.ContainerKind(g.cells[k])
	if kind == "" {
		return Container{}, false
	}
	c, ok := g.containers[k]
	if !ok {
		return Container{Kind: kind}, true
	}
	c.Slots = append([]ItemStack(nil), c.Slots...)
	return c, true
}
