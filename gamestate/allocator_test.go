package gamestate

import (
	"testing"

	"pkg.world.dev/atlas/assert"
	"pkg.world.dev/atlas/types"
)

func TestAllocatorIssuesSequentialIndices(t *testing.T) {
	a := NewEntityAllocator()

	e0 := a.Alloc()
	e1 := a.Alloc()
	assert.Equal(t, uint32(0), e0.Index)
	assert.Equal(t, uint32(1), e1.Index)
	assert.Equal(t, uint32(1), e0.Generation)
	assert.True(t, a.IsAlive(e0))
	assert.True(t, a.IsAlive(e1))
	assert.Equal(t, 2, a.Live())
}

func TestAllocatorRecyclesIndexWithNewGeneration(t *testing.T) {
	a := NewEntityAllocator()

	e0 := a.Alloc()
	assert.NilError(t, a.Free(e0))
	assert.False(t, a.IsAlive(e0))
	assert.Equal(t, 0, a.Live())

	e0again := a.Alloc()
	assert.Equal(t, e0.Index, e0again.Index)
	assert.Equal(t, e0.Generation+1, e0again.Generation)

	// The stale handle must not alias the recycled one.
	assert.False(t, a.IsAlive(e0))
	assert.True(t, a.IsAlive(e0again))
}

func TestAllocatorDoubleFree(t *testing.T) {
	a := NewEntityAllocator()

	e := a.Alloc()
	assert.NilError(t, a.Free(e))
	assert.ErrorIs(t, a.Free(e), ErrEntityDoesNotExist)
}

func TestAllocatorNilHandleIsNeverAlive(t *testing.T) {
	a := NewEntityAllocator()
	a.Alloc()

	assert.False(t, a.IsAlive(types.Nil))
	assert.False(t, a.IsAlive(types.Entity{Index: 0, Generation: 0}))
	assert.False(t, a.IsAlive(types.Entity{Index: 99, Generation: 1}))
}
