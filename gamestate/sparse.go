package gamestate

import (
	"pkg.world.dev/atlas/types"
)

// SparseSet is entity-indexed storage for one sparse-kind component. Insert
// and remove never move the entity between tables; iteration walks the dense
// slice. Use it for components that are added and removed far more often
// than they are iterated.
type SparseSet struct {
	meta types.ComponentMetadata

	// dense is the packed value array; entities and the tick slices are
	// indexed in parallel with it.
	dense    []any
	entities []types.Entity
	added    []types.Tick
	changed  []types.Tick

	// sparse maps an entity index to its position in dense.
	sparse map[uint32]int
}

func newSparseSet(meta types.ComponentMetadata) *SparseSet {
	return &SparseSet{
		meta:   meta,
		sparse: make(map[uint32]int),
	}
}

func (s *SparseSet) Len() int {
	return len(s.dense)
}

func (s *SparseSet) Has(e types.Entity) bool {
	_, ok := s.sparse[e.Index]
	return ok
}

// Insert adds or overwrites the component value for the entity. A new slot
// stamps both ticks; an overwrite stamps only the changed tick.
func (s *SparseSet) Insert(e types.Entity, value any, tick types.Tick) {
	if i, ok := s.sparse[e.Index]; ok {
		s.dense[i] = value
		s.changed[i] = tick
		return
	}
	s.sparse[e.Index] = len(s.dense)
	s.dense = append(s.dense, value)
	s.entities = append(s.entities, e)
	s.added = append(s.added, tick)
	s.changed = append(s.changed, tick)
}

// Set overwrites an existing value, stamping the changed tick only.
func (s *SparseSet) Set(e types.Entity, value any, tick types.Tick) bool {
	i, ok := s.sparse[e.Index]
	if !ok {
		return false
	}
	s.dense[i] = value
	s.changed[i] = tick
	return true
}

func (s *SparseSet) Get(e types.Entity) (any, types.TickPair, bool) {
	i, ok := s.sparse[e.Index]
	if !ok {
		return nil, types.TickPair{}, false
	}
	return s.dense[i], types.TickPair{Added: s.added[i], Changed: s.changed[i]}, true
}

// Remove deletes the entity's slot with a swap-remove on the dense arrays.
func (s *SparseSet) Remove(e types.Entity) bool {
	i, ok := s.sparse[e.Index]
	if !ok {
		return false
	}
	last := len(s.dense) - 1
	if i != last {
		s.dense[i] = s.dense[last]
		s.entities[i] = s.entities[last]
		s.added[i] = s.added[last]
		s.changed[i] = s.changed[last]
		s.sparse[s.entities[i].Index] = i
	}
	s.dense[last] = nil
	s.dense = s.dense[:last]
	s.entities = s.entities[:last]
	s.added = s.added[:last]
	s.changed = s.changed[:last]
	delete(s.sparse, e.Index)
	return true
}
