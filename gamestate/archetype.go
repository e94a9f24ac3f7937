package gamestate

import (
	"pkg.world.dev/atlas/types"
)

// doesNotExistArchetypeID marks an edge destination that has not been
// computed yet.
const doesNotExistArchetypeID = types.ArchetypeID(-1)

// archetypeEdge caches, for one component id, which archetype an entity lands
// in when that component is added to or removed from this archetype. Edges
// are filled in lazily on first use and stay valid forever because archetypes
// are never destroyed.
type archetypeEdge struct {
	add    types.ArchetypeID
	remove types.ArchetypeID
}

// Archetype groups the entities sharing one exact component set. It owns the
// dense table for its table-kind components; sparse-kind components count
// toward the archetype's identity but their data lives in the per-component
// sparse sets.
type Archetype struct {
	id types.ArchetypeID

	// comps is sorted by component id and includes sparse-kind components.
	comps []types.ComponentMetadata
	mask  Mask

	table *Table
	edges map[types.ComponentID]*archetypeEdge
}

func newArchetype(id types.ArchetypeID, comps []types.ComponentMetadata, mask Mask, table *Table) *Archetype {
	return &Archetype{
		id:    id,
		comps: comps,
		mask:  mask,
		table: table,
		edges: make(map[types.ComponentID]*archetypeEdge),
	}
}

func (a *Archetype) ID() types.ArchetypeID {
	return a.id
}

// Components returns the archetype's component set, sorted by component id.
// Callers must not mutate the returned slice.
func (a *Archetype) Components() []types.ComponentMetadata {
	return a.comps
}

// HasComponent reports whether the archetype's component set contains the
// given component id.
func (a *Archetype) HasComponent(cID types.ComponentID) bool {
	return a.mask.Contains(int(cID))
}

// Len returns the number of entities currently in the archetype.
func (a *Archetype) Len() int {
	return a.table.Len()
}

func (a *Archetype) edge(cID types.ComponentID) *archetypeEdge {
	e, ok := a.edges[cID]
	if !ok {
		e = &archetypeEdge{add: doesNotExistArchetypeID, remove: doesNotExistArchetypeID}
		a.edges[cID] = e
	}
	return e
}
