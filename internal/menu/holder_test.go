package menu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

func TestHolder_ReplacementClosesOldFirst(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	var events []SessionEvent
	h := newHolder(o, env.Env, func(ev SessionEvent) { events = append(events, ev) })

	if !h.OpenSession(textMenu("first", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{}), deco("b", mgl64.Vec3{1, 0, 0}))) {
		t.Fatalf("open failed")
	}
	var first *Session
	h.OnSession(func(s *Session) bool { first = s; return false })

	h.OpenSession(textMenu("second", mgl64.Vec3{0, 1, 2}, deco("c", mgl64.Vec3{})))
	for _, c := range first.Components() {
		if c.IsOpen() {
			t.Fatalf("old component %s still open", c.ID())
		}
	}
	if got := h.LastSession(); got != "first" {
		t.Fatalf("last: got %q want first", got)
	}
	kinds := []EventKind{}
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventOpen, EventClose, EventOpen}
	if len(kinds) != len(want) {
		t.Fatalf("got events %v want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got events %v want %v", kinds, want)
		}
	}
	if len(env.reg.Owned("o1")) != 1 {
		t.Fatalf("got %d spawned entities want 1", len(env.reg.Owned("o1")))
	}
}

func TestHolder_OfflineTickReleasesEverything(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 10.5, 63, 14)
	h := newHolder(o, env.Env, nil)
	h.OpenSession(textMenu("m", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{})))

	pos := geom.BlockPos{X: 10, Y: 64, Z: 10}
	chestAt(t, env, pos, []voxel.ItemStack{{Item: "DIAMOND", Count: 3}})
	b, ok := NewPreview(env.Env, o, testWorld, pos, "CHEST")
	if !ok {
		t.Fatalf("expected preview")
	}
	h.OpenPreview(b)
	if h.Tick() {
		t.Fatalf("online holder reported finished")
	}
	if env.reg.Len() == 0 {
		t.Fatalf("expected entities while open")
	}

	o.setOnline(false)
	if !h.Tick() {
		t.Fatalf("offline holder should report finished")
	}
	if env.reg.Len() != 0 {
		t.Fatalf("got %d entities after disconnect want 0", env.reg.Len())
	}
	if h.OpenSession(textMenu("m", mgl64.Vec3{}, deco("a", mgl64.Vec3{}))) {
		t.Fatalf("opening for an offline observer should be refused")
	}
}

func TestHolder_CloseHistoryAndOpenLast(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	h := newHolder(o, env.Env, nil)
	d := textMenu("shop", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{}))
	lookup := func(id string) (*def.Menu, bool) {
		if id == "shop" {
			return d, true
		}
		return nil, false
	}

	if h.OpenLast(lookup, nil) {
		t.Fatalf("nothing to reopen yet")
	}
	h.OpenSession(d)
	if !h.CloseSession(true) {
		t.Fatalf("close failed")
	}
	if h.CloseSession(true) {
		t.Fatalf("second close should report nothing closed")
	}
	if !h.OpenLast(lookup, nil) {
		t.Fatalf("expected reopen")
	}
	h.CloseSession(false)
	if h.LastSession() != "" {
		t.Fatalf("close without history should forget the last session")
	}
	if !h.OpenLast(lookup, func() (string, bool) { return "shop", true }) {
		t.Fatalf("expected reopen from fallback")
	}
}

// panicRenderer fails every relative move, which preview ticks rely on.
type panicRenderer struct {
	*render.Registry
}

func (panicRenderer) Move(render.Handle, mgl64.Vec3) { panic("transport gone") }

func TestHolder_PreviewPanicClosesPreviewOnly(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 10.5, 63, 14)
	var events []EventKind
	h := newHolder(o, env.Env, func(ev SessionEvent) { events = append(events, ev.Kind) })
	h.OpenSession(textMenu("m", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{})))

	pos := geom.BlockPos{X: 10, Y: 64, Z: 10}
	chestAt(t, env, pos, []voxel.ItemStack{{Item: "DIAMOND", Count: 1}})
	broken := *env.Env
	broken.Renderer = panicRenderer{env.reg}
	b, ok := NewPreview(&broken, o, testWorld, pos, "CHEST")
	if !ok {
		t.Fatalf("expected preview")
	}
	h.OpenPreview(b)

	h.Tick()
	closed := true
	h.OnPreview(func(p *BlockSession) bool { closed = p == nil; return false })
	if !closed {
		t.Fatalf("preview should be closed after a failed tick")
	}
	open := false
	h.OnSession(func(s *Session) bool { open = s != nil; return false })
	if !open {
		t.Fatalf("primary session should survive a preview failure")
	}
	if events[len(events)-2] != EventPreviewFailed || events[len(events)-1] != EventPreviewClose {
		t.Fatalf("got events %v", events)
	}
}

func TestHolder_RefreshVisualsRespawns(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	h := newHolder(o, env.Env, nil)
	h.OpenSession(textMenu("m", mgl64.Vec3{0, 1, 2}, deco("a", mgl64.Vec3{})))
	before := env.reg.Owned("o1")

	h.RefreshVisuals()
	after := env.reg.Owned("o1")
	if len(after) != len(before) {
		t.Fatalf("got %d entities want %d", len(after), len(before))
	}
	if after[0] == before[0] {
		t.Fatalf("expected fresh handles after refresh")
	}
}
