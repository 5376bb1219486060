// Package menu is the spatial session engine: it turns menu definitions into
// positioned, rotatable and clickable display entities anchored to an
// observer or to a block, and keeps them in sync every tick.
package menu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/tuning"
	"holoui.ai/internal/sim/voxel"
)

var (
	ErrObserverOffline = errors.New("observer offline")
	ErrUnknownMenu     = errors.New("unknown menu")
)

// Observer is the live view of a connected player.
type Observer interface {
	ID() string
	Name() string
	Online() bool
	Location() geom.Position
	EyeLocation() geom.Position
	HasPermission(node string) bool
	// Variable returns a host-supplied placeholder value.
	Variable(key string) (string, bool)
}

// Renderer drives remote display entities. render.Registry implements it.
type Renderer interface {
	Add(e render.Entity) render.Handle
	Spawn(h render.Handle, observerID string)
	Move(h render.Handle, delta mgl64.Vec3)
	GoTo(h render.Handle, pos geom.Position)
	Rotate(h render.Handle, yaw float32)
	SetText(h render.Handle, text string)
	SetItem(h render.Handle, item voxel.ItemStack)
	Despawn(h render.Handle)
	Delete(h render.Handle)
	Particle(observerID, world string, at mgl64.Vec3, color string)
}

// ActionRunner performs click actions on the host.
type ActionRunner interface {
	RunAction(observerID, observerName string, a def.Action)
}

// Env bundles the collaborators shared by every session.
type Env struct {
	Renderer     Renderer
	Actions      ActionRunner
	Placeholders Placeholders
	Items        *catalogs.ItemCatalog
	Blocks       *catalogs.BlockCatalog
	World        voxel.World
	Settings     tuning.Source
	Log          zerolog.Logger
}

func (e *Env) settings() tuning.Settings {
	if e.Settings == nil {
		return tuning.Defaults()
	}
	return e.Settings.Current()
}

func (e *Env) runActions(o Observer, actions []def.Action) {
	if e.Actions == nil {
		return
	}
	for _, a := range actions {
		e.Actions.RunAction(o.ID(), o.Name(), a)
	}
}

func (e *Env) resolve(o Observer, s string) string {
	if e.Placeholders == nil {
		return s
	}
	return e.Placeholders.Resolve(o, s)
}
