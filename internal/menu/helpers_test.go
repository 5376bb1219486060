package menu

import (
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/render"
	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/tuning"
	"holoui.ai/internal/sim/voxel"
)

const testWorld = "world"

type fakeObserver struct {
	mu     sync.Mutex
	id     string
	name   string
	online bool
	loc    geom.Position
	perms  map[string]bool
	vars   map[string]string
}

func newObserver(id string, x, y, z float64) *fakeObserver {
	return &fakeObserver{
		id:     id,
		name:   "name-" + id,
		online: true,
		loc:    geom.At(testWorld, x, y, z),
		perms:  map[string]bool{},
		vars:   map[string]string{},
	}
}

const testEyeHeight = 1.62

func (o *fakeObserver) ID() string   { return o.id }
func (o *fakeObserver) Name() string { return o.name }

func (o *fakeObserver) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

func (o *fakeObserver) Location() geom.Position {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loc
}

func (o *fakeObserver) EyeLocation() geom.Position {
	return o.Location().Add(mgl64.Vec3{0, testEyeHeight, 0})
}

func (o *fakeObserver) HasPermission(node string) bool { return o.perms[node] }

func (o *fakeObserver) Variable(key string) (string, bool) {
	v, ok := o.vars[key]
	return v, ok
}

func (o *fakeObserver) setOnline(v bool) {
	o.mu.Lock()
	o.online = v
	o.mu.Unlock()
}

func (o *fakeObserver) look(yaw, pitch float32) {
	o.mu.Lock()
	o.loc.Yaw, o.loc.Pitch = yaw, pitch
	o.mu.Unlock()
}

// placeEye moves the observer so its eye sits at (x, y, z).
func (o *fakeObserver) placeEye(x, y, z float64) {
	o.mu.Lock()
	o.loc.Vec = mgl64.Vec3{x, y - testEyeHeight, z}
	o.mu.Unlock()
}

type actionCall struct {
	observer string
	action   def.Action
}

type recordActions struct {
	mu    sync.Mutex
	calls []actionCall
}

func (r *recordActions) RunAction(observerID, _ string, a def.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, actionCall{observer: observerID, action: a})
}

func (r *recordActions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type testEnv struct {
	*Env
	reg     *render.Registry
	actions *recordActions
	grid    *voxel.Grid
	cats    *catalogs.Catalogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cats := catalogs.Defaults()
	reg := render.NewRegistry(nil, zerolog.Nop())
	actions := &recordActions{}
	grid := voxel.NewGrid(&cats.Blocks)
	return &testEnv{
		Env: &Env{
			Renderer:     reg,
			Actions:      actions,
			Placeholders: HostPlaceholders{},
			Items:        &cats.Items,
			Blocks:       &cats.Blocks,
			World:        grid,
			Settings:     tuning.Static(tuning.Defaults()),
			Log:          zerolog.Nop(),
		},
		reg:     reg,
		actions: actions,
		grid:    grid,
		cats:    cats,
	}
}

func (e *testEnv) withSettings(fn func(*tuning.Settings)) {
	st := tuning.Defaults()
	fn(&st)
	e.Settings = tuning.Static(st)
}

func textMenu(id string, offset mgl64.Vec3, components ...def.Component) *def.Menu {
	return &def.Menu{
		ID:          id,
		Digest:      id + "-v1",
		Offset:      offset,
		MaxDistance: def.DefaultMaxDistance,
		Components:  components,
	}
}

func deco(id string, offset mgl64.Vec3) def.Component {
	return def.Component{ID: id, Offset: offset, Data: def.Decoration{Icon: def.TextIcon{Text: id}}}
}

func assertVec(t *testing.T, got, want mgl64.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
