package types

import "fmt"

// Entity is a handle to an entity stored in the world. The Index is reused
// after the entity is destroyed, and the Generation is bumped on every reuse,
// so handles held across a despawn can be detected as stale.
type Entity struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// Nil is the zero Entity. It never refers to a live entity because the
// allocator hands out generations starting at 1.
var Nil = Entity{}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index, e.Generation)
}

// IsNil reports whether this handle is the zero value.
func (e Entity) IsNil() bool {
	return e.Generation == 0
}

// EntityStateElement is a debug-friendly snapshot of a single entity,
// produced via the query API. It is a read-side convenience only; the store
// itself is never serialized.
type EntityStateElement struct {
	Entity     Entity         `json:"entity"`
	Components map[string]any `json:"components"`
}
