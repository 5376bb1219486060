package menu

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/protocol"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/tuning"
)

type particleLog struct {
	mu     sync.Mutex
	colors map[string]int
}

func (p *particleLog) Send(_ string, v any) {
	m, ok := v.(protocol.RenderMsg)
	if !ok || m.Op != protocol.OpParticle {
		return
	}
	p.mu.Lock()
	p.colors[m.Particle]++
	p.mu.Unlock()
}

func TestDebugOverlays_EveryOtherTick(t *testing.T) {
	env := newTestEnv(t)
	particles := &particleLog{colors: map[string]int{}}
	env.Renderer = render.NewRegistry(particles, zerolog.Nop())
	env.withSettings(func(s *tuning.Settings) {
		s.Debug.Hitbox = true
		s.Debug.Position = true
	})
	d := clickMenu(def.Component{ID: "btn", Data: def.Button{Icon: def.ItemIcon{Item: "DIAMOND", Count: 1}}})
	m, _, _ := newTestManager(t, env, d)
	openFor(t, m, newObserver("o1", 0, 0, 0), "clicky")

	m.Tick()
	if n := len(particles.colors); n != 0 {
		t.Fatalf("odd tick drew overlays: %v", particles.colors)
	}
	m.Tick()
	if got, want := particles.colors[particleHitbox], 4*hitboxSteps; got != want {
		t.Fatalf("hitbox particles: got %d want %d", got, want)
	}
	if particles.colors[particleNormal] != 1 || particles.colors[particleCenter] != 1 || particles.colors[particleAnchor] != 1 {
		t.Fatalf("markers: %v", particles.colors)
	}
}

func TestDebugOverlays_Disabled(t *testing.T) {
	env := newTestEnv(t)
	particles := &particleLog{colors: map[string]int{}}
	env.Renderer = render.NewRegistry(particles, zerolog.Nop())
	d := clickMenu(def.Component{ID: "btn", Data: def.Button{Icon: def.ItemIcon{Item: "DIAMOND", Count: 1}}})
	m, _, _ := newTestManager(t, env, d)
	openFor(t, m, newObserver("o1", 0, 0, 0), "clicky")
	m.Tick()
	m.Tick()
	if len(particles.colors) != 0 {
		t.Fatalf("overlays drawn with debug off: %v", particles.colors)
	}
}
