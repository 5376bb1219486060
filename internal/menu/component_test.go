package menu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

// clickMenu puts a single component two blocks in front of an observer at
// the origin looking toward +Z.
func clickMenu(c def.Component) *def.Menu {
	return textMenu("clicky", mgl64.Vec3{0, testEyeHeight, 2}, c)
}

func TestButton_SelectHighlightAndClick(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	click := def.CommandAction{Command: "say hi", Source: def.SourceObserver}
	s := NewSession(clickMenu(def.Component{ID: "btn", Data: def.Button{
		Icon:         def.ItemIcon{Item: "DIAMOND", Count: 1},
		HighlightMod: .1,
		Actions:      []def.Action{click},
	}}), o, env.Env)
	s.Open()
	c := s.Components()[0]

	if c.Click() {
		t.Fatalf("click before selection should do nothing")
	}
	c.Tick()
	if !c.Selected() {
		t.Fatalf("expected selection while looking at the button")
	}
	if moved := c.Icon().Position().Vec.Sub(c.Location().Vec).Len(); moved < .099 || moved > .101 {
		t.Fatalf("highlight offset: got %v want .1", moved)
	}
	if !s.Click() {
		t.Fatalf("expected click to land")
	}
	if env.actions.count() != 1 {
		t.Fatalf("got %d actions want 1", env.actions.count())
	}

	o.look(90, 0)
	c.Tick()
	if c.Selected() {
		t.Fatalf("expected deselection after looking away")
	}
	assertVec(t, c.Icon().Position().Vec, c.Location().Vec)
	if s.Click() {
		t.Fatalf("click while not selected should not land")
	}
}

func TestButton_HighlightDoesNotMoveLocation(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	s := NewSession(clickMenu(def.Component{ID: "btn", Data: def.Button{
		Icon:         def.TextIcon{Text: "Press"},
		HighlightMod: .2,
	}}), o, env.Env)
	s.Open()
	c := s.Components()[0]
	before := c.Location()
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if !c.Selected() {
		t.Fatalf("expected selection")
	}
	assertVec(t, c.Location().Vec, before.Vec)
}

func TestToggle_ClickSwapsIconAndFiresOppositeActions(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	o.vars["flag"] = "yes"
	onTrue := def.CommandAction{Command: "enable"}
	onFalse := def.CommandAction{Command: "disable"}
	s := NewSession(clickMenu(def.Component{ID: "tgl", Data: def.Toggle{
		Condition:    "%flag%",
		Expected:     "yes",
		HighlightMod: .1,
		TrueIcon:     def.ItemIcon{Item: "DIAMOND", Count: 1},
		FalseIcon:    def.ItemIcon{Item: "COAL", Count: 1},
		TrueActions:  []def.Action{onTrue},
		FalseActions: []def.Action{onFalse},
	}}), o, env.Env)
	s.Open()
	c := s.Components()[0]
	tg := c.variant.(*toggle)

	if !c.State() || c.Icon() != tg.trueIcon {
		t.Fatalf("expected initial true state with true icon")
	}
	c.Tick()
	if !c.Click() {
		t.Fatalf("expected click")
	}
	if c.State() || c.Icon() != tg.falseIcon {
		t.Fatalf("expected false state with false icon after click")
	}
	if tg.trueIcon.Spawned() {
		t.Fatalf("old icon still spawned")
	}
	if env.actions.count() != 1 || env.actions.calls[0].action != def.Action(onFalse) {
		t.Fatalf("got actions %+v want one disable", env.actions.calls)
	}

	c.Tick()
	c.Click()
	if !c.State() || env.actions.count() != 2 || env.actions.calls[1].action != def.Action(onTrue) {
		t.Fatalf("second click: state %v actions %+v", c.State(), env.actions.calls)
	}
	s.Close()
	if env.reg.Len() != 0 {
		t.Fatalf("got %d entities after close want 0", env.reg.Len())
	}
}

func TestToggle_ConditionMismatchStartsFalse(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 0, 0, 0)
	s := NewSession(clickMenu(def.Component{ID: "tgl", Data: def.Toggle{
		Condition: "%flag%",
		Expected:  "yes",
		TrueIcon:  def.TextIcon{Text: "on"},
		FalseIcon: def.TextIcon{Text: "off"},
	}}), o, env.Env)
	if s.Components()[0].State() {
		t.Fatalf("unresolved condition should start false")
	}
}

func chestAt(t *testing.T, env *testEnv, pos geom.BlockPos, slots []voxel.ItemStack) {
	t.Helper()
	env.grid.SetBlock(testWorld, pos, "CHEST")
	env.grid.SetContainer(testWorld, pos, voxel.Container{Kind: ContainerChest, Slots: slots})
}

func TestSlot_CountChangeUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 10.5, 63, 14)
	pos := geom.BlockPos{X: 10, Y: 64, Z: 10}
	slots := make([]voxel.ItemStack, 27)
	slots[0] = voxel.ItemStack{Item: "DIAMOND", Count: 1}
	chestAt(t, env, pos, slots)

	b, ok := NewPreview(env.Env, o, testWorld, pos, "CHEST")
	if !ok {
		t.Fatalf("expected chest preview")
	}
	b.Open()
	var slot0 *Component
	for _, c := range b.Components() {
		if c.ID() == "slot_c0" {
			slot0 = c
		}
	}
	if slot0 == nil {
		t.Fatalf("slot_c0 missing")
	}
	icon := slot0.Icon()
	if len(icon.Handles()) != 1 {
		t.Fatalf("got %d handles want 1", len(icon.Handles()))
	}

	slots[0].Count = 5
	env.grid.SetContainer(testWorld, pos, voxel.Container{Kind: ContainerChest, Slots: slots})
	slot0.Tick()
	if slot0.Icon() != icon {
		t.Fatalf("count change replaced the icon")
	}
	if len(icon.Handles()) != 2 {
		t.Fatalf("expected count label, got %d handles", len(icon.Handles()))
	}

	slots[0] = voxel.ItemStack{Item: "BREAD", Count: 5}
	env.grid.SetContainer(testWorld, pos, voxel.Container{Kind: ContainerChest, Slots: slots})
	slot0.Tick()
	if slot0.Icon() == icon {
		t.Fatalf("item change should replace the icon")
	}
	if icon.Spawned() {
		t.Fatalf("replaced icon still spawned")
	}
}

func TestSlot_EmptyPlaceholderIsStable(t *testing.T) {
	env := newTestEnv(t)
	o := newObserver("o1", 10.5, 63, 14)
	pos := geom.BlockPos{X: 10, Y: 64, Z: 10}
	chestAt(t, env, pos, make([]voxel.ItemStack, 27))

	b, ok := NewPreview(env.Env, o, testWorld, pos, "CHEST")
	if !ok {
		t.Fatalf("expected chest preview")
	}
	b.Open()
	c := b.Components()[1]
	icon := c.Icon()
	if icon.item.Item != "GLASS_PANE" {
		t.Fatalf("got placeholder %q want GLASS_PANE", icon.item.Item)
	}
	for i := 0; i < 3; i++ {
		c.Tick()
	}
	if c.Icon() != icon {
		t.Fatalf("placeholder recreated while slot stayed empty")
	}
}

func TestProgress_RerendersOnlyOnChange(t *testing.T) {
	env := newTestEnv(t)
	value := 0.0
	o := newObserver("o1", 0, 0, 0)
	s := NewSession(textMenu("p", mgl64.Vec3{0, 1, 2}), o, env.Env)
	c := newProgressComponent(s, "bar", mgl64.Vec3{}, func() float64 { return value }, 10)
	s.components = append(s.components, c)
	s.Open()

	if got := c.Icon().lines[0]; got != progressBar(0, 10) {
		t.Fatalf("got %q want empty bar", got)
	}
	value = .55
	c.Tick()
	if got := c.Icon().lines[0]; got != progressBar(5, 10) {
		t.Fatalf("got %q want half bar", got)
	}
	value = .58
	c.Tick()
	if got := c.variant.(*progress).filled; got != 5 {
		t.Fatalf("got %d segments want 5", got)
	}
}
