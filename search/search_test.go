package search_test

import (
	"testing"

	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/assert"
	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/component"
	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/search"
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

type Position struct {
	X, Y float64
}

func (Position) Name() string { return "position" }

type Velocity struct {
	DX, DY float64
}

func (Velocity) Name() string { return "velocity" }

// testContext drives searches directly against a state, with a controllable
// last-run tick so the change-detection window can be pinned per test.
type testContext struct {
	state   *gamestate.State
	manager *component.Manager
	lastRun types.Tick
	logger  zerolog.Logger
	queue   *command.Queue
}

func (c *testContext) Logger() *zerolog.Logger         { return &c.logger }
func (c *testContext) SetLogger(logger zerolog.Logger) { c.logger = logger }
func (c *testContext) CurrentTick() types.Tick         { return c.state.CurrentTick() }
func (c *testContext) LastRunTick() types.Tick         { return c.lastRun }
func (c *testContext) Commands() *command.Queue        { return c.queue }
func (c *testContext) IsExclusive() bool               { return true }
func (c *testContext) StoreReader() gamestate.Reader   { return c.state }
func (c *testContext) StoreManager() *gamestate.State  { return c.state }

func (c *testContext) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return c.manager.GetComponentByName(name)
}

func (c *testContext) GetResourceByName(name string) (types.ComponentMetadata, error) {
	return c.manager.GetResourceByName(name)
}

var _ engine.Context = (*testContext)(nil)

type searchFixture struct {
	ctx *testContext
	pos types.ComponentMetadata
	vel types.ComponentMetadata
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	manager := component.NewManager()

	pos, err := component.NewComponentMetadata[Position]()
	assert.NilError(t, err)
	pos, err = manager.RegisterComponent(pos)
	assert.NilError(t, err)

	vel, err := component.NewComponentMetadata[Velocity]()
	assert.NilError(t, err)
	vel, err = manager.RegisterComponent(vel)
	assert.NilError(t, err)

	state := gamestate.NewState()
	assert.NilError(t, state.RegisterComponents(manager.GetComponents()))
	state.AdvanceTick()

	ctx := &testContext{
		state:   state,
		manager: manager,
		logger:  zerolog.Nop(),
		queue:   command.NewQueue(),
	}
	return &searchFixture{ctx: ctx, pos: pos, vel: vel}
}

func TestContainsMatchesAcrossArchetypes(t *testing.T) {
	fx := newSearchFixture(t)
	_, err := fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)
	both, err := fx.ctx.state.CreateEntity(fx.pos, fx.vel)
	assert.NilError(t, err)
	_, err = fx.ctx.state.CreateEntity(fx.vel)
	assert.NilError(t, err)

	posOnly, err := search.New(fx.ctx, filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)
	count, err := posOnly.Count()
	assert.NilError(t, err)
	assert.Equal(t, 2, count)

	posAndVel, err := search.New(fx.ctx, filter.Contains(
		filter.Component[Position](), filter.Component[Velocity](),
	))
	assert.NilError(t, err)
	count, err = posAndVel.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	exact, err := search.New(fx.ctx, filter.Exact(filter.Component[Position]()))
	assert.NilError(t, err)
	count, err = exact.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	// Re-running the same searches after a despawn reflects the new world.
	assert.NilError(t, fx.ctx.state.DestroyEntity(both))
	count, err = posOnly.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
	count, err = posAndVel.Count()
	assert.NilError(t, err)
	assert.Equal(t, 0, count)
}

func TestCardinalityHelpers(t *testing.T) {
	fx := newSearchFixture(t)

	s, err := search.New(fx.ctx, filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)

	_, err = s.First()
	assert.ErrorIs(t, err, search.ErrNoEntities)
	_, err = s.One()
	assert.ErrorIs(t, err, search.ErrNoEntities)

	e1, err := fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)

	got, err := s.One()
	assert.NilError(t, err)
	assert.Equal(t, e1, got)
	assert.Equal(t, e1, s.MustFirst())

	_, err = fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)

	_, err = s.One()
	assert.ErrorIs(t, err, search.ErrMultipleEntities)
}

func TestEachStopsWhenTheCallbackReturnsFalse(t *testing.T) {
	fx := newSearchFixture(t)
	for i := 0; i < 5; i++ {
		_, err := fx.ctx.state.CreateEntity(fx.pos)
		assert.NilError(t, err)
	}

	s, err := search.New(fx.ctx, filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)

	visited := 0
	assert.NilError(t, s.Each(func(types.Entity) bool {
		visited++
		return visited < 3
	}))
	assert.Equal(t, 3, visited)
}

func TestMatchCacheExtendsToNewArchetypes(t *testing.T) {
	fx := newSearchFixture(t)
	_, err := fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)

	s, err := search.New(fx.ctx, filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)
	count, err := s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	// A new archetype appearing after the first evaluation must still be
	// picked up by the same search value.
	_, err = fx.ctx.state.CreateEntity(fx.pos, fx.vel)
	assert.NilError(t, err)

	count, err = s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 2, count)
}

func TestChangedFilterTracksTheRunWindow(t *testing.T) {
	fx := newSearchFixture(t)
	e, err := fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)

	s, err := search.New(fx.ctx,
		filter.Contains(filter.Component[Position]()),
		search.Changed[Position](),
	)
	assert.NilError(t, err)

	// The insert stamped the slot at the current tick, which is inside the
	// (lastRun, current] window.
	count, err := s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	// Once the system has observed that tick, an untouched slot no longer
	// matches.
	fx.ctx.lastRun = fx.ctx.state.CurrentTick()
	fx.ctx.state.AdvanceTick()
	count, err = s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 0, count)

	// A write inside the new window makes the row match again.
	assert.NilError(t, fx.ctx.state.SetComponentForEntity(fx.pos, e, Position{X: 1}))
	count, err = s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddedFilterIgnoresPlainWrites(t *testing.T) {
	fx := newSearchFixture(t)
	e, err := fx.ctx.state.CreateEntity(fx.pos)
	assert.NilError(t, err)

	added, err := search.New(fx.ctx,
		filter.Contains(filter.Component[Position]()),
		search.Added[Position](),
	)
	assert.NilError(t, err)

	count, err := added.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	// Overwriting the value bumps the changed stamp only, so the row falls
	// out of the added window once the insert tick has been observed.
	fx.ctx.lastRun = fx.ctx.state.CurrentTick()
	fx.ctx.state.AdvanceTick()
	assert.NilError(t, fx.ctx.state.SetComponentForEntity(fx.pos, e, Position{X: 2}))

	count, err = added.Count()
	assert.NilError(t, err)
	assert.Equal(t, 0, count)
}

func TestConflictingAccessIsRejectedAtConstruction(t *testing.T) {
	fx := newSearchFixture(t)

	_, err := search.New(fx.ctx,
		filter.Contains(filter.Component[Position]()),
		search.Reads[Position](),
		search.Writes[Position](),
	)
	assert.ErrorIs(t, err, search.ErrConflictingAccess)
}
