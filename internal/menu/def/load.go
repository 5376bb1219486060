package def

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

type rawMenu struct {
	Offset          []float64      `yaml:"offset"`
	LockPosition    bool           `yaml:"lock_position"`
	FollowObserver  bool           `yaml:"follow_observer"`
	CloseOnDeath    bool           `yaml:"close_on_death"`
	CloseOnTeleport bool           `yaml:"close_on_teleport"`
	MaxDistance     float64        `yaml:"max_distance"`
	Components      []rawComponent `yaml:"components"`
}

type rawComponent struct {
	ID           string      `yaml:"id"`
	Type         string      `yaml:"type"`
	Offset       []float64   `yaml:"offset"`
	Icon         *rawIcon    `yaml:"icon"`
	HighlightMod *float64    `yaml:"highlight_mod"`
	Actions      []rawAction `yaml:"actions"`
	Condition    string      `yaml:"condition"`
	Expected     string      `yaml:"expected"`
	TrueIcon     *rawIcon    `yaml:"true_icon"`
	FalseIcon    *rawIcon    `yaml:"false_icon"`
	TrueActions  []rawAction `yaml:"true_actions"`
	FalseActions []rawAction `yaml:"false_actions"`
}

type rawIcon struct {
	Type      string   `yaml:"type"`
	Item      string   `yaml:"item"`
	Count     int      `yaml:"count"`
	ModelData int      `yaml:"model_data"`
	Text      string   `yaml:"text"`
	Path      string   `yaml:"path"`
	Frames    []string `yaml:"frames"`
	Speed     int      `yaml:"speed"`
}

type rawAction struct {
	Type      string   `yaml:"type"`
	Command   string   `yaml:"command"`
	Source    string   `yaml:"source"`
	Sound     string   `yaml:"sound"`
	Volume    *float64 `yaml:"volume"`
	Pitch     *float64 `yaml:"pitch"`
	Text      string   `yaml:"text"`
	ActionBar bool     `yaml:"action_bar"`
}

// Parse decodes and validates one menu document. Image icons are resolved
// through imgs; a missing picture is recorded on the icon, not returned.
func Parse(id string, raw []byte, imgs *Images) (*Menu, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("menu %s: %w", id, err)
	}
	if err := validate(doc); err != nil {
		return nil, fmt.Errorf("menu %s: %w", id, err)
	}
	var rm rawMenu
	if err := yaml.Unmarshal(raw, &rm); err != nil {
		return nil, fmt.Errorf("menu %s: %w", id, err)
	}

	sum := sha256.Sum256(raw)
	m := &Menu{
		ID:              id,
		Digest:          hex.EncodeToString(sum[:]),
		Offset:          vec(rm.Offset),
		LockPosition:    rm.LockPosition,
		FollowObserver:  rm.FollowObserver,
		CloseOnDeath:    rm.CloseOnDeath,
		CloseOnTeleport: rm.CloseOnTeleport,
		MaxDistance:     rm.MaxDistance,
	}
	if m.MaxDistance <= 0 {
		m.MaxDistance = DefaultMaxDistance
	}
	seen := map[string]bool{}
	for i, rc := range rm.Components {
		if seen[rc.ID] {
			return nil, fmt.Errorf("menu %s: component %q: %w: duplicate id", id, rc.ID, ErrInvalidDefinition)
		}
		seen[rc.ID] = true
		c, err := parseComponent(rc, imgs)
		if err != nil {
			return nil, fmt.Errorf("menu %s: components[%d]: %w", id, i, err)
		}
		m.Components = append(m.Components, c)
	}
	return m, nil
}

func parseComponent(rc rawComponent, imgs *Images) (Component, error) {
	c := Component{ID: rc.ID, Offset: vec(rc.Offset)}
	highlight := DefaultHighlightMod
	if rc.HighlightMod != nil {
		highlight = *rc.HighlightMod
	}
	switch rc.Type {
	case "decoration":
		icon, err := parseIcon(rc.Icon, imgs)
		if err != nil {
			return c, err
		}
		c.Data = Decoration{Icon: icon}
	case "button":
		icon, err := parseIcon(rc.Icon, imgs)
		if err != nil {
			return c, err
		}
		actions, err := parseActions(rc.Actions)
		if err != nil {
			return c, err
		}
		c.Data = Button{Icon: icon, HighlightMod: highlight, Actions: actions}
	case "toggle":
		t := Toggle{Condition: rc.Condition, Expected: rc.Expected, HighlightMod: highlight}
		var err error
		if t.TrueIcon, err = parseIcon(rc.TrueIcon, imgs); err != nil {
			return c, err
		}
		if t.FalseIcon, err = parseIcon(rc.FalseIcon, imgs); err != nil {
			return c, err
		}
		if t.TrueActions, err = parseActions(rc.TrueActions); err != nil {
			return c, err
		}
		if t.FalseActions, err = parseActions(rc.FalseActions); err != nil {
			return c, err
		}
		c.Data = t
	default:
		return c, fmt.Errorf("component type %q: %w", rc.Type, ErrUnknownKind)
	}
	return c, nil
}

func parseIcon(ri *rawIcon, imgs *Images) (Icon, error) {
	if ri == nil {
		return nil, fmt.Errorf("%w: missing icon", ErrInvalidDefinition)
	}
	switch ri.Type {
	case "item":
		return ItemIcon{Item: strings.ToUpper(ri.Item), Count: ri.Count, ModelData: ri.ModelData}, nil
	case "text":
		return TextIcon{Text: ri.Text}, nil
	case "image":
		ic := ImageIcon{Path: ri.Path}
		if imgs == nil {
			ic.Err = errors.New("no image directory")
		} else {
			ic.Image, ic.Err = imgs.Load(ri.Path)
		}
		return ic, nil
	case "animated":
		speed := ri.Speed
		if speed <= 0 {
			speed = 1
		}
		ic := AnimatedIcon{Speed: speed}
		if imgs == nil {
			ic.Err = errors.New("no image directory")
			return ic, nil
		}
		if len(ri.Frames) > 0 {
			ic.Sources = ri.Frames
			for _, src := range ri.Frames {
				img, err := imgs.Load(src)
				if err != nil {
					ic.Frames, ic.Err = nil, err
					break
				}
				ic.Frames = append(ic.Frames, img)
			}
		} else {
			ic.Sources = []string{ri.Path}
			ic.Frames, ic.Err = imgs.LoadFrames(ri.Path)
		}
		return ic, nil
	default:
		return nil, fmt.Errorf("icon type %q: %w", ri.Type, ErrUnknownKind)
	}
}

func parseActions(ras []rawAction) ([]Action, error) {
	out := make([]Action, 0, len(ras))
	for _, ra := range ras {
		switch ra.Type {
		case "command":
			src := CommandSource(strings.ToLower(ra.Source))
			switch src {
			case "":
				src = SourceObserver
			case SourceObserver, SourceConsole:
			default:
				return nil, fmt.Errorf("command source %q: %w", ra.Source, ErrUnknownKind)
			}
			out = append(out, CommandAction{Command: ra.Command, Source: src})
		case "sound":
			a := SoundAction{Sound: ra.Sound, Source: strings.ToLower(ra.Source), Volume: 1, Pitch: 1}
			if a.Source == "" {
				a.Source = "master"
			}
			if ra.Volume != nil {
				a.Volume = float32(*ra.Volume)
			}
			if ra.Pitch != nil {
				a.Pitch = float32(*ra.Pitch)
			}
			out = append(out, a)
		case "message":
			out = append(out, MessageAction{Text: ra.Text, ActionBar: ra.ActionBar})
		default:
			return nil, fmt.Errorf("action type %q: %w", ra.Type, ErrUnknownKind)
		}
	}
	return out, nil
}

func vec(v []float64) mgl64.Vec3 {
	var out mgl64.Vec3
	copy(out[:], v)
	return out
}

// LoadError reports a menu file that could not be loaded.
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string { return e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// FailedIDs lists the lower-cased ids of every LoadError joined into err.
func FailedIDs(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	if le, ok := err.(*LoadError); ok {
		out = append(out, strings.ToLower(le.ID))
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			out = append(out, FailedIDs(e)...)
		}
	}
	return out
}

// LoadDir loads every *.yaml / *.yml file in dir; the id is the file stem.
// Pictures are resolved relative to dir/images. Invalid files are skipped
// and reported in the joined error; the valid ones are still returned.
func LoadDir(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	imgs := NewImages(filepath.Join(dir, "images"))
	set := Set{}
	var errs []error
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		id := strings.TrimSuffix(name, filepath.Ext(name))
		key := strings.ToLower(id)
		if _, dup := set[key]; dup {
			errs = append(errs, &LoadError{ID: id, Err: fmt.Errorf("menu %s: %w: duplicate id", id, ErrInvalidDefinition)})
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, &LoadError{ID: id, Err: err})
			continue
		}
		m, err := Parse(id, raw, imgs)
		if err != nil {
			errs = append(errs, &LoadError{ID: id, Err: err})
			continue
		}
		set[key] = m
	}
	return set, errors.Join(errs...)
}
