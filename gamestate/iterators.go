package gamestate

import (
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types"
)

// Reader is the read-only view of a State that searches iterate against.
// During a wave, systems may hold a Reader concurrently; none of its methods
// mutate the store.
type Reader interface {
	GetComponentForEntity(cType types.ComponentMetadata, e types.Entity) (any, error)
	GetComponentForEntityInRawJSON(cType types.ComponentMetadata, e types.Entity) ([]byte, error)
	GetChangeTicksForEntity(cType types.ComponentMetadata, e types.Entity) (types.TickPair, error)
	GetComponentTypesForEntity(e types.Entity) ([]types.ComponentMetadata, error)
	GetComponentTypesForArchID(archID types.ArchetypeID) []types.ComponentMetadata
	GetEntitiesForArchID(archID types.ArchetypeID) ([]types.Entity, error)
	SearchFrom(f filter.ComponentFilter, start int) *ArchetypeIterator
	ArchetypeCount() int
	IsAlive(e types.Entity) bool
	CurrentTick() types.Tick
}

var _ Reader = (*State)(nil)

// ArchetypeIterator walks the archetype ids produced by one SearchFrom pass.
type ArchetypeIterator struct {
	current int
	values  []types.ArchetypeID
}

func (it *ArchetypeIterator) HasNext() bool {
	return it.current < len(it.values)
}

func (it *ArchetypeIterator) Next() types.ArchetypeID {
	val := it.values[it.current]
	it.current++
	return val
}

// EntityIterator iterates through the entity lists of a fixed set of
// archetypes.
type EntityIterator struct {
	// current is the index of the archetype id being iterated over.
	current     int
	archIDs     []types.ArchetypeID
	stateReader Reader
}

// NewEntityIterator returns an iterator over the entities of the given
// archetypes.
func NewEntityIterator(stateReader Reader, archIDs []types.ArchetypeID) EntityIterator {
	return EntityIterator{
		current:     0,
		archIDs:     archIDs,
		stateReader: stateReader,
	}
}

// HasNext evaluates to true while there are still archetypes to visit.
func (it *EntityIterator) HasNext() bool {
	return it.current < len(it.archIDs)
}

// Next returns the entity list of the next archetype.
func (it *EntityIterator) Next() ([]types.Entity, error) {
	archID := it.archIDs[it.current]
	it.current++
	return it.stateReader.GetEntitiesForArchID(archID)
}
