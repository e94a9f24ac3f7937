package system

import (
	"pkg.world.dev/atlas/types"
)

// Access is the read/write component and resource footprint a system
// declares. It is computed once when the schedule is built and treated as
// immutable per run: the scheduler proves from Access sets alone which
// systems may share a wave, so no runtime locking is needed.
//
// A system registered without an explicit Access is treated as exclusive,
// which is always safe.
type Access struct {
	ComponentReads  []types.ComponentID
	ComponentWrites []types.ComponentID
	ResourceReads   []types.ComponentID
	ResourceWrites  []types.ComponentID

	// Exclusive requests full world access. An exclusive system conflicts
	// with everything and forces a full barrier.
	Exclusive bool
}

// ConflictsWith reports whether two systems may not run concurrently: one's
// writes intersect the other's reads or writes, for components or resources,
// or either is exclusive.
func (a *Access) ConflictsWith(other *Access) bool {
	if a.Exclusive || other.Exclusive {
		return true
	}
	if writesOverlapReadsOrWrites(a.ComponentWrites, other.ComponentReads, other.ComponentWrites) {
		return true
	}
	if writesOverlapReadsOrWrites(other.ComponentWrites, a.ComponentReads, a.ComponentWrites) {
		return true
	}
	if writesOverlapReadsOrWrites(a.ResourceWrites, other.ResourceReads, other.ResourceWrites) {
		return true
	}
	if writesOverlapReadsOrWrites(other.ResourceWrites, a.ResourceReads, a.ResourceWrites) {
		return true
	}
	return false
}

func writesOverlapReadsOrWrites(writes, reads, otherWrites []types.ComponentID) bool {
	if len(writes) == 0 {
		return false
	}
	set := make(map[types.ComponentID]struct{}, len(reads)+len(otherWrites))
	for _, id := range reads {
		set[id] = struct{}{}
	}
	for _, id := range otherWrites {
		set[id] = struct{}{}
	}
	for _, id := range writes {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
