package menu

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

// Container kinds understood by the preview layouts.
const (
	ContainerChest     = "CHEST"
	ContainerHopper    = "HOPPER"
	ContainerDispenser = "DISPENSER"
	ContainerFurnace   = "FURNACE"
)

const (
	gridStep      = .44
	chestHeaderY  = 1.0
	chestTopY     = .52
	chestColumns  = 9
	chestRows     = 3
	hopperHeaderY = .66
	hopperRowY    = .14
	hopperSlots   = 5
	cookSegments  = 40
)

var previewOffset = mgl64.Vec3{0, .5, -1}

// NewPreview builds the container preview for the block at pos, or reports
// false when the block is not a previewable container.
func NewPreview(env *Env, o Observer, world string, pos geom.BlockPos, blockID string) (*BlockSession, bool) {
	if env.World == nil || env.Blocks == nil {
		return nil, false
	}
	kind := env.Blocks.ContainerKind(blockID)
	if kind == "" {
		return nil, false
	}
	ct, ok := env.World.ContainerAt(world, pos)
	if !ok {
		return nil, false
	}

	offset := previewOffset
	if env.settings().Preview.FollowObserver {
		offset = mgl64.Vec3{}
	}
	d := &def.Menu{
		ID:          "preview:" + strings.ToLower(blockID),
		Offset:      offset,
		MaxDistance: def.DefaultMaxDistance,
	}
	b := NewBlockSession(d, o, env, world, pos, blockID)
	header := previewHeader(env, blockID)
	switch kind {
	case ContainerChest:
		b.layoutChest(ct, header)
	case ContainerHopper:
		b.layoutHopper(ct, header)
	case ContainerDispenser:
		b.layoutDispenser()
	case ContainerFurnace:
		b.layoutFurnace()
	default:
		return nil, false
	}
	return b, true
}

func previewHeader(env *Env, blockID string) string {
	bd := env.Blocks.Defs[blockID]
	name := bd.Header
	if name == "" {
		name = titleCase(blockID)
	}
	color := "&6"
	if bd.Trim != "" {
		color = "<" + bd.Trim + ">"
	}
	return fmt.Sprintf("%s[ %s ]", color, name)
}

func titleCase(id string) string {
	parts := strings.Split(strings.ToLower(id), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// visibleSlots lists the slot indexes worth drawing, capped at capacity.
func (b *BlockSession) visibleSlots(ct voxel.Container, capacity int) []int {
	limit := min(capacity, len(ct.Slots))
	showEmpty := b.env.settings().Preview.ShowEmptySlots
	var out []int
	for i := 0; i < limit; i++ {
		if showEmpty || !ct.Slot(i).Empty() {
			out = append(out, i)
		}
	}
	return out
}

func (b *BlockSession) layoutChest(ct voxel.Container, header string) {
	b.AddDecoration("header", 0, chestHeaderY, 0, header)
	slots := b.visibleSlots(ct, chestColumns*chestRows)
	if len(slots) == 0 {
		b.AddDecoration("empty", 0, chestTopY, 0, "&8[ Empty ]")
		return
	}
	rows := chestRows
	if !b.env.settings().Preview.ShowEmptySlots {
		rows = max(1, int(math.Ceil(float64(len(slots))/chestColumns)))
	}
	rowShift := float64(chestRows-rows) * gridStep / 2
	xStart := -float64(chestColumns-1) * gridStep / 2
	shown := min(len(slots), rows*chestColumns)
	for i := 0; i < shown; i++ {
		row, col := i/chestColumns, i%chestColumns
		x := xStart + float64(col)*gridStep
		y := chestTopY + rowShift - float64(row)*gridStep
		b.AddSlot(fmt.Sprintf("slot_c%d", i), x, y, 0, slots[i])
	}
}

func (b *BlockSession) layoutHopper(ct voxel.Container, header string) {
	b.AddDecoration("header", 0, hopperHeaderY, 0, header)
	slots := b.visibleSlots(ct, hopperSlots)
	if len(slots) == 0 {
		b.AddDecoration("empty", 0, hopperRowY, 0, "&8[ Empty ]")
		return
	}
	xStart := -float64(len(slots)-1) * gridStep / 2
	for i, s := range slots {
		b.AddSlot(fmt.Sprintf("slot_h%d", i), xStart+float64(i)*gridStep, hopperRowY, 0, s)
	}
}

func (b *BlockSession) layoutDispenser() {
	rows := [...]float64{.75, .25, -.25}
	for r, y := range rows {
		for c := 0; c < 3; c++ {
			i := r*3 + c
			b.AddSlot(fmt.Sprintf("slot%d", i), -.5+float64(c)*.5, y, 0, i)
		}
	}
}

func (b *BlockSession) layoutFurnace() {
	b.AddProgress("cookProgress", 0, .65, 0, cookSegments)
	b.AddSlot("input", -.8, .25, 0, 0)
	b.AddSlot("fuel", -.3, .25, 0, 1)
	b.AddDecoration("progressArrow", .25, .25, 0, "--->")
	b.AddSlot("output", .9, .25, 0, 2)
}
