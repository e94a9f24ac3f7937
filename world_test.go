package atlas_test

import (
	"testing"
	"time"

	"pkg.world.dev/atlas"
	"pkg.world.dev/atlas/assert"
	"pkg.world.dev/atlas/command"
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

type GameSpeed struct {
	Multiplier float64
}

func (GameSpeed) Name() string { return "game_speed" }

// worldFixture drives a world tick by tick from the test via a manual tick
// channel.
type worldFixture struct {
	world     *atlas.World
	tickStart chan time.Time
	tickDone  chan uint64
}

func newWorldFixture(t *testing.T, opts ...atlas.WorldOption) *worldFixture {
	t.Helper()
	t.Setenv("ATLAS_LOG_LEVEL", "error")

	tickStart := make(chan time.Time)
	tickDone := make(chan uint64)
	opts = append(opts,
		atlas.WithTickChannel(tickStart),
		atlas.WithTickDoneChannel(tickDone),
	)
	world, err := atlas.NewWorld(opts...)
	assert.NilError(t, err)
	return &worldFixture{world: world, tickStart: tickStart, tickDone: tickDone}
}

// start launches the game loop and arranges for it to be shut down when the
// test ends.
func (fx *worldFixture) start(t *testing.T) {
	t.Helper()
	go func() {
		_ = fx.world.StartLoop()
	}()
	t.Cleanup(func() {
		_ = fx.world.Shutdown()
	})
}

// doTick runs exactly one tick and waits for it to complete.
func (fx *worldFixture) doTick(t *testing.T) {
	t.Helper()
	fx.tickStart <- time.Now()
	<-fx.tickDone
}

func TestSystemsMoveEntitiesAcrossTicks(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))
	assert.NilError(t, atlas.RegisterComponent[Velocity](fx.world))

	assert.NilError(t, atlas.RegisterInitSystems(fx.world, func(wCtx engine.Context) error {
		_, err := atlas.Create(wCtx, Position{}, Velocity{DX: 1, DY: 2})
		return err
	}))

	moveSystem := func(wCtx engine.Context) error {
		s, err := atlas.NewSearch(wCtx, filter.Contains(filter.Component[Velocity]()))
		if err != nil {
			return err
		}
		return s.Each(func(e types.Entity) bool {
			vel, err := atlas.GetComponent[Velocity](wCtx, e)
			if err != nil {
				return false
			}
			err = atlas.UpdateComponent[Position](wCtx, e, func(pos *Position) *Position {
				pos.X += vel.DX
				pos.Y += vel.DY
				return pos
			})
			return err == nil
		})
	}
	assert.NilError(t, atlas.RegisterSystem(fx.world, moveSystem,
		atlas.WithReads(Velocity{}),
		atlas.WithWrites(Position{}),
	))

	fx.start(t)
	fx.doTick(t)
	fx.doTick(t)
	fx.doTick(t)
	assert.Equal(t, uint64(3), fx.world.CurrentTick())

	s, err := fx.world.Search(filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)
	e, err := s.One()
	assert.NilError(t, err)

	pos, err := atlas.GetComponent[Position](atlas.NewReadOnlyWorldContext(fx.world), e)
	assert.NilError(t, err)
	assert.Equal(t, Position{X: 3, Y: 6}, *pos)
}

func TestRegistrationIsSealedOnceTheLoopStarts(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))
	fx.start(t)
	fx.doTick(t)

	err := atlas.RegisterComponent[Velocity](fx.world)
	assert.ErrorContains(t, err, "engine state is")
	err = atlas.RegisterSystems(fx.world, func(_ engine.Context) error { return nil })
	assert.ErrorContains(t, err, "engine state is")
}

func TestNonExclusiveSystemMustDeferStructuralChanges(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))

	var createErr error
	readerSystem := func(wCtx engine.Context) error {
		_, createErr = atlas.Create(wCtx, Position{})
		return nil
	}
	assert.NilError(t, atlas.RegisterSystem(fx.world, readerSystem,
		atlas.WithReads(Position{}),
	))

	fx.start(t)
	fx.doTick(t)
	assert.ErrorIs(t, createErr, atlas.ErrNotExclusive)
}

func TestCommandsLandAtTheSyncPoint(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))

	spawned := false
	var seenDuringRun int
	spawnerSystem := func(wCtx engine.Context) error {
		s, err := atlas.NewSearch(wCtx, filter.Contains(filter.Component[Position]()))
		if err != nil {
			return err
		}
		seenDuringRun, err = s.Count()
		if err != nil {
			return err
		}
		if !spawned {
			spawned = true
			pos, err := wCtx.GetComponentByName("position")
			if err != nil {
				return err
			}
			wCtx.Commands().Spawn(command.Pair{Metadata: pos, Value: Position{X: 7}})
		}
		return nil
	}
	assert.NilError(t, atlas.RegisterSystem(fx.world, spawnerSystem,
		atlas.WithReads(Position{}),
	))

	fx.start(t)
	fx.doTick(t)
	// The spawn was queued during the first tick, so the system saw an
	// empty world, but the entity exists once the tick completed.
	assert.Equal(t, 0, seenDuringRun)

	s, err := fx.world.Search(filter.Contains(filter.Component[Position]()))
	assert.NilError(t, err)
	count, err := s.Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)

	fx.doTick(t)
	assert.Equal(t, 1, seenDuringRun)
}

func TestChangedFilterOnlyFiresForFreshWrites(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))

	assert.NilError(t, atlas.RegisterInitSystems(fx.world, func(wCtx engine.Context) error {
		_, err := atlas.Create(wCtx, Position{})
		return err
	}))

	writes := 0
	writerSystem := func(wCtx engine.Context) error {
		// Only write on the first tick.
		if writes > 0 {
			return nil
		}
		writes++
		s, err := atlas.NewSearch(wCtx, filter.Contains(filter.Component[Position]()))
		if err != nil {
			return err
		}
		return s.Each(func(e types.Entity) bool {
			return atlas.SetComponent(wCtx, e, &Position{X: 1}) == nil
		})
	}

	var changedCounts []int
	watcherSystem := func(wCtx engine.Context) error {
		s, err := atlas.NewSearch(wCtx,
			filter.Contains(filter.Component[Position]()),
			search.Changed[Position](),
		)
		if err != nil {
			return err
		}
		count, err := s.Count()
		if err != nil {
			return err
		}
		changedCounts = append(changedCounts, count)
		return nil
	}

	assert.NilError(t, atlas.RegisterSystem(fx.world, writerSystem,
		atlas.WithWrites(Position{}),
	))
	assert.NilError(t, atlas.RegisterSystem(fx.world, watcherSystem,
		atlas.WithReads(Position{}),
		atlas.After(writerSystem),
	))

	fx.start(t)
	fx.doTick(t)
	fx.doTick(t)
	fx.doTick(t)

	// Tick 1 observes both the initial spawn and the write; afterwards the
	// position is untouched, so the filter goes quiet.
	assert.DeepEqual(t, []int{1, 0, 0}, changedCounts)
}

func TestResourcesAreWorldSingletons(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))
	assert.NilError(t, atlas.RegisterResource[GameSpeed](fx.world))

	assert.NilError(t, atlas.RegisterInitSystems(fx.world, func(wCtx engine.Context) error {
		return atlas.SetResource(wCtx, &GameSpeed{Multiplier: 1})
	}))

	speedUpSystem := func(wCtx engine.Context) error {
		return atlas.UpdateResource(wCtx, func(s *GameSpeed) *GameSpeed {
			s.Multiplier *= 2
			return s
		})
	}
	assert.NilError(t, atlas.RegisterSystem(fx.world, speedUpSystem,
		atlas.WithWritesResources(GameSpeed{}),
	))

	fx.start(t)
	fx.doTick(t)
	fx.doTick(t)

	speed, err := atlas.GetResource[GameSpeed](atlas.NewWorldContext(fx.world))
	assert.NilError(t, err)
	assert.Equal(t, float64(4), speed.Multiplier)
}

func TestWaitForNextTick(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))
	fx.start(t)
	fx.doTick(t)

	waited := make(chan bool)
	go func() {
		waited <- fx.world.WaitForNextTick()
	}()

	// Keep ticking until the waiter observes a completed tick; the waiter
	// may register with the loop before or after any given tick.
	for {
		select {
		case ok := <-waited:
			assert.True(t, ok)
			return
		case fx.tickStart <- time.Now():
			<-fx.tickDone
		}
	}
}

func TestDebugStateSnapshotsEveryEntity(t *testing.T) {
	fx := newWorldFixture(t)
	assert.NilError(t, atlas.RegisterComponent[Position](fx.world))
	assert.NilError(t, atlas.RegisterComponent[Velocity](fx.world))

	assert.NilError(t, atlas.RegisterInitSystems(fx.world, func(wCtx engine.Context) error {
		if _, err := atlas.Create(wCtx, Position{X: 1}); err != nil {
			return err
		}
		_, err := atlas.Create(wCtx, Position{X: 2}, Velocity{DX: 3})
		return err
	}))

	fx.start(t)
	fx.doTick(t)

	state, err := fx.world.DebugState()
	assert.NilError(t, err)
	assert.Len(t, state, 2)

	byX := map[float64]types.EntityStateElement{}
	for _, el := range state {
		pos, ok := el.Components["position"].(Position)
		assert.True(t, ok)
		byX[pos.X] = el
	}
	assert.Len(t, byX[1].Components, 1)
	assert.Len(t, byX[2].Components, 2)
	assert.Equal(t, Velocity{DX: 3}, byX[2].Components["velocity"])
}

func TestDeclaringAnUnregisteredComponentFails(t *testing.T) {
	fx := newWorldFixture(t)

	err := atlas.RegisterSystem(fx.world,
		func(_ engine.Context) error { return nil },
		atlas.WithReads(Position{}),
	)
	assert.ErrorContains(t, err, "must be registered before it is declared")
}
