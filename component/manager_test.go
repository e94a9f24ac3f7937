package component_test

import (
	"testing"

	"pkg.world.dev/atlas/assert"
	"pkg.world.dev/atlas/component"
	"pkg.world.dev/atlas/types"
)

type Stamina struct {
	Value int
}

func (Stamina) Name() string { return "stamina" }

type Mana struct {
	Value int
}

func (Mana) Name() string { return "mana" }

// ImposterStamina collides with Stamina on name but not on shape.
type ImposterStamina struct {
	Label string
}

func (ImposterStamina) Name() string { return "stamina" }

type GameClock struct {
	Elapsed int64
}

func (GameClock) Name() string { return "game_clock" }

func TestIDsAreAssignedSequentiallyAcrossKinds(t *testing.T) {
	manager := component.NewManager()

	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	stamina, err = manager.RegisterComponent(stamina)
	assert.NilError(t, err)

	clock, err := component.NewComponentMetadata[GameClock]()
	assert.NilError(t, err)
	clock, err = manager.RegisterResource(clock)
	assert.NilError(t, err)

	mana, err := component.NewComponentMetadata[Mana]()
	assert.NilError(t, err)
	mana, err = manager.RegisterComponent(mana)
	assert.NilError(t, err)

	// Components and resources draw from one id space.
	assert.Equal(t, types.ComponentID(1), stamina.ID())
	assert.Equal(t, types.ComponentID(2), clock.ID())
	assert.Equal(t, types.ComponentID(3), mana.ID())
}

func TestReRegisteringTheSameTypeIsIdempotent(t *testing.T) {
	manager := component.NewManager()

	first, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	first, err = manager.RegisterComponent(first)
	assert.NilError(t, err)

	second, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	second, err = manager.RegisterComponent(second)
	assert.NilError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Len(t, manager.GetComponents(), 1)
}

func TestNameCollisionWithDifferentSchemaIsRejected(t *testing.T) {
	manager := component.NewManager()

	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	_, err = manager.RegisterComponent(stamina)
	assert.NilError(t, err)

	imposter, err := component.NewComponentMetadata[ImposterStamina]()
	assert.NilError(t, err)
	_, err = manager.RegisterComponent(imposter)
	assert.ErrorIs(t, err, types.ErrComponentSchemaMismatch)
}

func TestResourceMayNotShadowAComponentName(t *testing.T) {
	manager := component.NewManager()

	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	_, err = manager.RegisterComponent(stamina)
	assert.NilError(t, err)

	asResource, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	_, err = manager.RegisterResource(asResource)
	assert.ErrorContains(t, err, "already registered as a component")
}

func TestComponentMayNotShadowAResourceName(t *testing.T) {
	manager := component.NewManager()

	clock, err := component.NewComponentMetadata[GameClock]()
	assert.NilError(t, err)
	_, err = manager.RegisterResource(clock)
	assert.NilError(t, err)

	asComponent, err := component.NewComponentMetadata[GameClock]()
	assert.NilError(t, err)
	_, err = manager.RegisterComponent(asComponent)
	assert.ErrorContains(t, err, "already registered as a resource")
}

func TestLookupByName(t *testing.T) {
	manager := component.NewManager()

	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	stamina, err = manager.RegisterComponent(stamina)
	assert.NilError(t, err)

	got, err := manager.GetComponentByName("stamina")
	assert.NilError(t, err)
	assert.Equal(t, stamina.ID(), got.ID())

	_, err = manager.GetComponentByName("missing")
	assert.ErrorIs(t, err, component.ErrComponentNotRegistered)

	_, err = manager.GetResourceByName("stamina")
	assert.ErrorIs(t, err, component.ErrResourceNotRegistered)
}

func TestMetadataNewReturnsTheDefault(t *testing.T) {
	plain, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	v, err := plain.New()
	assert.NilError(t, err)
	assert.Equal(t, Stamina{}, v)

	withDefault, err := component.NewComponentMetadata[Stamina](
		component.WithDefault(Stamina{Value: 50}),
	)
	assert.NilError(t, err)
	v, err = withDefault.New()
	assert.NilError(t, err)
	assert.Equal(t, Stamina{Value: 50}, v)
}

func TestIDCannotBeReassigned(t *testing.T) {
	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	assert.NilError(t, stamina.SetID(7))
	assert.ErrorContains(t, stamina.SetID(8), "already set")
}

func TestStorageKindDefaultsToTable(t *testing.T) {
	stamina, err := component.NewComponentMetadata[Stamina]()
	assert.NilError(t, err)
	assert.Equal(t, types.StorageTable, stamina.StorageKind())

	sparse, err := component.NewComponentMetadata[Mana](
		component.WithStorageKind[Mana](types.StorageSparseSet),
	)
	assert.NilError(t, err)
	assert.Equal(t, types.StorageSparseSet, sparse.StorageKind())
}
