// Package def holds menu definitions: the immutable description a session is
// built from. Definitions are decoded from YAML, validated against an
// embedded JSON schema and may be reloaded while sessions are open.
package def

import (
	"errors"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownKind       = errors.New("unknown kind")
	ErrInvalidDefinition = errors.New("invalid menu definition")
)

const (
	DefaultMaxDistance  = 5.0
	DefaultHighlightMod = 0.1
)

type Menu struct {
	ID string
	// Digest is the sha256 of the source document; reloads compare it to find
	// changed menus.
	Digest string
	Offset mgl64.Vec3
	// LockPosition freezes the observer in place while the menu is open.
	LockPosition    bool
	FollowObserver  bool
	CloseOnDeath    bool
	CloseOnTeleport bool
	MaxDistance     float64
	Components      []Component
}

type Component struct {
	ID     string
	Offset mgl64.Vec3
	Data   ComponentData
}

// ComponentData is one of Decoration, Button or Toggle.
type ComponentData interface{ isComponentData() }

type Decoration struct {
	Icon Icon
}

type Button struct {
	Icon         Icon
	HighlightMod float64
	Actions      []Action
}

type Toggle struct {
	// Condition is resolved against the observer's placeholders and compared
	// case-insensitively with Expected.
	Condition    string
	Expected     string
	HighlightMod float64
	TrueIcon     Icon
	FalseIcon    Icon
	TrueActions  []Action
	FalseActions []Action
}

func (Decoration) isComponentData() {}
func (Button) isComponentData()     {}
func (Toggle) isComponentData()     {}

// Icon is one of ItemIcon, TextIcon, ImageIcon or AnimatedIcon.
type Icon interface{ isIcon() }

type ItemIcon struct {
	Item      string
	Count     int
	ModelData int
}

type TextIcon struct {
	Text string
}

// ImageIcon renders a picture as colored text lines. Err is set when the
// image could not be loaded; the icon falls back to a placeholder.
type ImageIcon struct {
	Path  string
	Image *Image
	Err   error
}

type AnimatedIcon struct {
	Sources []string
	Frames  []*Image
	// Speed is the number of ticks each frame is shown.
	Speed int
	Err   error
}

func (ItemIcon) isIcon()     {}
func (TextIcon) isIcon()     {}
func (ImageIcon) isIcon()    {}
func (AnimatedIcon) isIcon() {}

// Action is one of CommandAction, SoundAction or MessageAction.
type Action interface{ isAction() }

type CommandSource string

const (
	SourceObserver CommandSource = "observer"
	SourceConsole  CommandSource = "console"
)

type CommandAction struct {
	Command string
	Source  CommandSource
}

type SoundAction struct {
	Sound  string
	Source string
	Volume float32
	Pitch  float32
}

// MessageAction shows Text to the observer, in the action bar when
// ActionBar is set and in chat otherwise.
type MessageAction struct {
	Text      string
	ActionBar bool
}

func (CommandAction) isAction() {}
func (SoundAction) isAction()   {}
func (MessageAction) isAction() {}

// Set is a loaded collection of menus keyed by lower-cased id.
type Set map[string]*Menu

func (s Set) Get(id string) (*Menu, bool) {
	m, ok := s[strings.ToLower(id)]
	return m, ok
}

func (s Set) IDs() []string {
	out := make([]string, 0, len(s))
	for _, m := range s {
		out = append(out, m.ID)
	}
	return out
}
