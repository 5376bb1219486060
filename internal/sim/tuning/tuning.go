package tuning

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Settings struct {
	TickRateHz int     `mapstructure:"tick_rate_hz"`
	UIScale    float64 `mapstructure:"ui_scale"`

	Preview Preview `mapstructure:"preview"`
	Debug   Debug   `mapstructure:"debug"`
}

type Preview struct {
	Enabled        bool    `mapstructure:"enabled"`
	ByPermission   bool    `mapstructure:"by_permission"`
	FollowObserver bool    `mapstructure:"follow_observer"`
	AnchorHeight   float64 `mapstructure:"anchor_height"`
	AnchorPush     float64 `mapstructure:"anchor_push"`
	IconScale      float64 `mapstructure:"icon_scale"`
	TextScale      float64 `mapstructure:"text_scale"`
	LookDistance   float64 `mapstructure:"look_distance"`
	ShowEmptySlots bool    `mapstructure:"show_empty_slots"`
	EmptySlotItem  string  `mapstructure:"empty_slot_item"`
}

type Debug struct {
	Hitbox   bool `mapstructure:"hitbox"`
	Position bool `mapstructure:"position"`
}

// Defaults mirror settings.yaml as shipped in configs/.
func Defaults() Settings {
	return Settings{
		TickRateHz: 20,
		UIScale:    1,
		Preview: Preview{
			Enabled:        true,
			AnchorHeight:   0.45,
			AnchorPush:     0.85,
			IconScale:      0.75,
			TextScale:      0.75,
			LookDistance:   6,
			ShowEmptySlots: true,
			EmptySlotItem:  "GLASS_PANE",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("tick_rate_hz", d.TickRateHz)
	v.SetDefault("ui_scale", d.UIScale)
	v.SetDefault("preview.enabled", d.Preview.Enabled)
	v.SetDefault("preview.by_permission", d.Preview.ByPermission)
	v.SetDefault("preview.follow_observer", d.Preview.FollowObserver)
	v.SetDefault("preview.anchor_height", d.Preview.AnchorHeight)
	v.SetDefault("preview.anchor_push", d.Preview.AnchorPush)
	v.SetDefault("preview.icon_scale", d.Preview.IconScale)
	v.SetDefault("preview.text_scale", d.Preview.TextScale)
	v.SetDefault("preview.look_distance", d.Preview.LookDistance)
	v.SetDefault("preview.show_empty_slots", d.Preview.ShowEmptySlots)
	v.SetDefault("preview.empty_slot_item", d.Preview.EmptySlotItem)
	v.SetDefault("debug.hitbox", d.Debug.Hitbox)
	v.SetDefault("debug.position", d.Debug.Position)
}

func (s *Settings) Normalize() {
	d := Defaults()
	if s.TickRateHz <= 0 {
		s.TickRateHz = d.TickRateHz
	}
	if s.UIScale <= 0 {
		s.UIScale = d.UIScale
	}
	if s.Preview.IconScale <= 0 {
		s.Preview.IconScale = d.Preview.IconScale
	}
	if s.Preview.TextScale <= 0 {
		s.Preview.TextScale = d.Preview.TextScale
	}
	if s.Preview.LookDistance <= 0 {
		s.Preview.LookDistance = d.Preview.LookDistance
	}
}

func (s Settings) Validate() error {
	if s.TickRateHz > 200 {
		return fmt.Errorf("tick_rate_hz out of range: %d", s.TickRateHz)
	}
	if s.Preview.AnchorPush < 0 {
		return fmt.Errorf("preview.anchor_push must be >= 0")
	}
	return nil
}

// Source hands out the settings snapshot in effect for the current tick.
type Source interface {
	Current() Settings
}

type Static Settings

func (s Static) Current() Settings { return Settings(s) }

// Store is a viper-backed Source that reloads when settings.yaml changes.
type Store struct {
	v   *viper.Viper
	cur atomic.Pointer[Settings]

	mu        sync.Mutex
	listeners []func(Settings)
}

// Load reads path (if it exists) over the built-in defaults.
func Load(path string) (*Store, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("settings.yaml: %w", err)
			}
		}
	}
	s := &Store{v: v}
	st, err := s.decode()
	if err != nil {
		return nil, err
	}
	s.cur.Store(&st)
	return s, nil
}

func (s *Store) decode() (Settings, error) {
	var st Settings
	if err := s.v.Unmarshal(&st); err != nil {
		return st, fmt.Errorf("settings.yaml: %w", err)
	}
	st.Normalize()
	if err := st.Validate(); err != nil {
		return st, fmt.Errorf("settings.yaml: %w", err)
	}
	return st, nil
}

func (s *Store) Current() Settings { return *s.cur.Load() }

// OnChange registers fn to run after every successful reload.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Watch enables hot reload. Invalid edits keep the previous settings and are
// reported through onErr.
func (s *Store) Watch(onErr func(error)) {
	s.v.OnConfigChange(func(fsnotify.Event) {
		st, err := s.decode()
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		s.cur.Store(&st)
		s.mu.Lock()
		ls := append([]func(Settings){}, s.listeners...)
		s.mu.Unlock()
		for _, fn := range ls {
			fn(st)
		}
	})
	s.v.WatchConfig()
}
