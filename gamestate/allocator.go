package gamestate

import (
	"math"

	"pkg.world.dev/atlas/types"
)

// EntityAllocator issues entity handles with reuse-safe generation counters.
// When an entity is freed its index goes onto a free list, but only after its
// generation has been bumped, so a stale handle can never alias a recycled
// one. Allocation is confined to sync points (entity creation is a deferred
// command), so the allocator needs no locking.
type EntityAllocator struct {
	// generations[i] is the generation currently or most recently associated
	// with index i. Generation 0 is reserved for the nil handle.
	generations []uint32
	freeList    []uint32
}

func NewEntityAllocator() *EntityAllocator {
	return &EntityAllocator{
		generations: make([]uint32, 0, 256),
		freeList:    nil,
	}
}

// Alloc returns a fresh or recycled entity handle. Exhausting the uint32
// index space means the world holds ~4 billion live entities at once; that is
// a core capacity failure and panics rather than returning an error.
func (a *EntityAllocator) Alloc() types.Entity {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		return types.Entity{Index: idx, Generation: a.generations[idx]}
	}
	if len(a.generations) > math.MaxUint32 {
		panic(ErrEntityIndexExhausted)
	}
	idx := uint32(len(a.generations))
	a.generations = append(a.generations, 1)
	return types.Entity{Index: idx, Generation: 1}
}

// Free returns the entity's index to the free list. The generation is bumped
// before the index becomes available again.
func (a *EntityAllocator) Free(e types.Entity) error {
	if !a.IsAlive(e) {
		return ErrEntityDoesNotExist
	}
	a.generations[e.Index]++
	a.freeList = append(a.freeList, e.Index)
	return nil
}

// IsAlive reports whether the handle's generation matches the generation
// currently stored for its index.
func (a *EntityAllocator) IsAlive(e types.Entity) bool {
	if e.Generation == 0 || uint64(e.Index) >= uint64(len(a.generations)) {
		return false
	}
	return a.generations[e.Index] == e.Generation
}

// Live returns the number of live entities.
func (a *EntityAllocator) Live() int {
	return len(a.generations) - len(a.freeList)
}
