package command_test

import (
	"testing"

	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/assert"
	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/component"
	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types"
)

type Health struct {
	HP int
}

func (Health) Name() string { return "health" }

type Poison struct {
	Stacks int
}

func (Poison) Name() string { return "poison" }

type Clock struct {
	Elapsed int
}

func (Clock) Name() string { return "clock" }

type queueFixture struct {
	state  *gamestate.State
	health types.ComponentMetadata
	poison types.ComponentMetadata
	clock  types.ComponentMetadata
	logger zerolog.Logger
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	manager := component.NewManager()

	health, err := component.NewComponentMetadata[Health](
		component.WithDefault(Health{HP: 100}),
	)
	assert.NilError(t, err)
	health, err = manager.RegisterComponent(health)
	assert.NilError(t, err)

	poison, err := component.NewComponentMetadata[Poison]()
	assert.NilError(t, err)
	poison, err = manager.RegisterComponent(poison)
	assert.NilError(t, err)

	clock, err := component.NewComponentMetadata[Clock]()
	assert.NilError(t, err)
	clock, err = manager.RegisterResource(clock)
	assert.NilError(t, err)

	state := gamestate.NewState()
	assert.NilError(t, state.RegisterComponents(manager.GetComponents()))
	return &queueFixture{
		state:  state,
		health: health,
		poison: poison,
		clock:  clock,
		logger: zerolog.Nop(),
	}
}

func (fx *queueFixture) allEntities(t *testing.T) []types.Entity {
	t.Helper()
	var entities []types.Entity
	it := fx.state.SearchFrom(filter.All(), 0)
	for it.HasNext() {
		archEntities, err := fx.state.GetEntitiesForArchID(it.Next())
		assert.NilError(t, err)
		entities = append(entities, archEntities...)
	}
	return entities
}

func TestSpawnIsDeferredUntilApply(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	queue.Spawn(
		command.Pair{Metadata: fx.health, Value: Health{HP: 10}},
		command.Pair{Metadata: fx.poison, Value: nil},
	)
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 0, fx.state.ArchetypeCount())

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 0, queue.Len())

	entities := fx.allEntities(t)
	assert.Equal(t, 1, len(entities))

	got, err := fx.state.GetComponentForEntity(fx.health, entities[0])
	assert.NilError(t, err)
	assert.Equal(t, Health{HP: 10}, got)

	// A nil pair value spawns the component's default.
	got, err = fx.state.GetComponentForEntity(fx.poison, entities[0])
	assert.NilError(t, err)
	assert.Equal(t, Poison{}, got)
}

func TestCommandsApplyInFIFOOrder(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	e, err := fx.state.CreateEntity(fx.health)
	assert.NilError(t, err)

	queue.Insert(e, fx.poison, Poison{Stacks: 3})
	queue.Remove(e, fx.poison)

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 0, skipped)

	_, err = fx.state.GetComponentForEntity(fx.poison, e)
	assert.ErrorIs(t, err, gamestate.ErrComponentNotOnEntity)
}

func TestCommandAgainstDespawnedEntityIsSkipped(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	e, err := fx.state.CreateEntity(fx.health)
	assert.NilError(t, err)

	queue.Despawn(e)
	queue.Insert(e, fx.poison, Poison{Stacks: 1})
	queue.Despawn(e)

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 2, skipped)
	assert.False(t, fx.state.IsAlive(e))
}

func TestFailedCommandDoesNotStopTheDrain(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	e, err := fx.state.CreateEntity(fx.health)
	assert.NilError(t, err)

	// Removing a component the entity never had fails, but the spawn queued
	// after it must still apply.
	queue.Remove(e, fx.poison)
	queue.Spawn(command.Pair{Metadata: fx.health, Value: nil})

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, len(fx.allEntities(t)))
}

func TestResourceCommands(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	queue.InsertResource(fx.clock, Clock{Elapsed: 5})
	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, skipped)

	got, err := fx.state.GetResource(fx.clock)
	assert.NilError(t, err)
	assert.Equal(t, Clock{Elapsed: 5}, got)

	queue.RemoveResource(fx.clock)
	applied, skipped = queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, skipped)

	_, err = fx.state.GetResource(fx.clock)
	assert.ErrorIs(t, err, gamestate.ErrResourceDoesNotExist)
}

func TestCustomCommandRunsAgainstTheStore(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	var created types.Entity
	queue.Custom(func(state *gamestate.State) error {
		e, err := state.CreateEntity(fx.health, fx.poison)
		if err != nil {
			return err
		}
		created = e
		return state.SetComponentForEntity(fx.poison, e, Poison{Stacks: 9})
	})

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, skipped)
	assert.True(t, fx.state.IsAlive(created))

	got, err := fx.state.GetComponentForEntity(fx.poison, created)
	assert.NilError(t, err)
	assert.Equal(t, Poison{Stacks: 9}, got)
}

func TestApplyAllOnEmptyQueueIsANoOp(t *testing.T) {
	fx := newQueueFixture(t)
	queue := command.NewQueue()

	applied, skipped := queue.ApplyAll(fx.state, &fx.logger)
	assert.Equal(t, 0, applied)
	assert.Equal(t, 0, skipped)
}
