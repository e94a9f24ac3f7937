package types

// ArchetypeID identifies an archetype: the set of entities sharing an exact
// component-type set. Archetypes are created lazily and never destroyed, so
// an ArchetypeID stays valid for the process lifetime.
type ArchetypeID int

// TableID identifies the dense struct-of-arrays table owned by an archetype.
type TableID int
