package gamestate

import (
	"sort"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types"
)

// State is the single authoritative store for all entity, component, and
// resource data in a world. It owns the archetype arena, the per-archetype
// tables, the sparse sets, and the global tick.
//
// Structural mutations (create, destroy, add/remove component) may only
// happen at sync points, where the scheduler guarantees no system is
// running. Component value reads and writes may happen concurrently from
// systems whose declared access sets have been proven conflict-free, so the
// hot path takes no locks; the only synchronized field is the tick counter.
type State struct {
	typeToComponent map[types.ComponentID]types.ComponentMetadata

	allocator *EntityAllocator

	// archetypes is an arena indexed by ArchetypeID. Archetypes are created
	// lazily and never removed, which keeps edge ids stable for the process
	// lifetime.
	archetypes []*Archetype
	archByMask map[Mask]types.ArchetypeID
	tables     []*Table

	// locations[i] is the current (archetype, row) of the entity with index
	// i, or archetype -1 if that index is dead.
	locations []entityLocation

	// sparseSets holds the storage for every sparse-kind component,
	// world-wide (not per archetype).
	sparseSets map[types.ComponentID]*SparseSet

	resources map[types.ComponentID]*resourceSlot

	tick atomic.Uint32
}

type entityLocation struct {
	arch types.ArchetypeID
	row  int
}

type resourceSlot struct {
	value any
	ticks types.TickPair
}

// NewState creates an empty state. Components must be registered via
// RegisterComponents before any entity can be created.
func NewState() *State {
	return &State{
		typeToComponent: make(map[types.ComponentID]types.ComponentMetadata),
		allocator:       NewEntityAllocator(),
		archByMask:      make(map[Mask]types.ArchetypeID),
		sparseSets:      make(map[types.ComponentID]*SparseSet),
		resources:       make(map[types.ComponentID]*resourceSlot),
	}
}

// RegisterComponents makes the given component types known to the state and
// allocates sparse sets for the sparse-kind ones.
func (s *State) RegisterComponents(comps []types.ComponentMetadata) error {
	for _, comp := range comps {
		if comp.ID() == 0 {
			return eris.Wrapf(ErrComponentNotRegistered, "component %q has no id", comp.Name())
		}
		s.typeToComponent[comp.ID()] = comp
		if comp.StorageKind() == types.StorageSparseSet {
			if _, ok := s.sparseSets[comp.ID()]; !ok {
				s.sparseSets[comp.ID()] = newSparseSet(comp)
			}
		}
	}
	return nil
}

// CurrentTick returns the global tick.
func (s *State) CurrentTick() types.Tick {
	return types.Tick(s.tick.Load())
}

// AdvanceTick moves the global tick forward by one and returns the new tick.
func (s *State) AdvanceTick() types.Tick {
	return types.Tick(s.tick.Add(1))
}

// IsAlive reports whether the given handle refers to a live entity.
func (s *State) IsAlive(e types.Entity) bool {
	return s.allocator.IsAlive(e)
}

// CreateEntity creates a single entity with the given components, initialized
// to their default values.
func (s *State) CreateEntity(comps ...types.ComponentMetadata) (types.Entity, error) {
	entities, err := s.CreateManyEntities(1, comps...)
	if err != nil {
		return types.Nil, err
	}
	return entities[0], nil
}

// CreateManyEntities creates num entities sharing the given component set.
func (s *State) CreateManyEntities(num int, comps ...types.ComponentMetadata) ([]types.Entity, error) {
	if len(comps) == 0 {
		return nil, ErrEntityMustHaveAtLeastOneComponent
	}
	for _, comp := range comps {
		if _, ok := s.typeToComponent[comp.ID()]; !ok {
			return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q", comp.Name())
		}
	}

	arch, err := s.getOrMakeArchetype(comps)
	if err != nil {
		return nil, err
	}

	tick := s.CurrentTick()
	entities := make([]types.Entity, num)
	for i := range entities {
		e := s.allocator.Alloc()
		row, err := arch.table.addRow(e, tick)
		if err != nil {
			return nil, err
		}
		for _, comp := range arch.comps {
			if comp.StorageKind() != types.StorageSparseSet {
				continue
			}
			val, err := comp.New()
			if err != nil {
				return nil, err
			}
			s.sparseSets[comp.ID()].Insert(e, val, tick)
		}
		s.setLocation(e, entityLocation{arch: arch.id, row: row})
		entities[i] = e
	}
	return entities, nil
}

// DestroyEntity removes the entity and all its component data. The vacated
// table row is back-filled with the archetype's last row so tables stay
// dense.
func (s *State) DestroyEntity(e types.Entity) error {
	loc, err := s.locationOf(e)
	if err != nil {
		return err
	}
	arch := s.archetypes[loc.arch]

	for _, comp := range arch.comps {
		if comp.StorageKind() == types.StorageSparseSet {
			s.sparseSets[comp.ID()].Remove(e)
		}
	}

	moved, wasMoved := arch.table.swapRemove(loc.row)
	if wasMoved {
		s.locations[moved.Index].row = loc.row
	}

	s.locations[e.Index] = entityLocation{arch: doesNotExistArchetypeID}
	return s.allocator.Free(e)
}

// GetComponentForEntity returns the entity's current value for the given
// component type.
func (s *State) GetComponentForEntity(cType types.ComponentMetadata, e types.Entity) (any, error) {
	loc, err := s.locationOf(e)
	if err != nil {
		return nil, err
	}
	if cType.StorageKind() == types.StorageSparseSet {
		set, err := s.sparseSetFor(cType)
		if err != nil {
			return nil, err
		}
		val, _, ok := set.Get(e)
		if !ok {
			return nil, eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
		}
		return val, nil
	}
	val, _, ok := s.archetypes[loc.arch].table.get(cType.ID(), loc.row)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
	}
	return val, nil
}

// GetComponentForEntityInRawJSON returns the entity's current value for the
// given component type, serialized with the component's codec.
func (s *State) GetComponentForEntityInRawJSON(cType types.ComponentMetadata, e types.Entity) ([]byte, error) {
	value, err := s.GetComponentForEntity(cType, e)
	if err != nil {
		return nil, err
	}
	return cType.Encode(value)
}

// GetChangeTicksForEntity returns the added/changed tick pair recorded for
// the entity's slot of the given component type.
func (s *State) GetChangeTicksForEntity(cType types.ComponentMetadata, e types.Entity) (types.TickPair, error) {
	loc, err := s.locationOf(e)
	if err != nil {
		return types.TickPair{}, err
	}
	if cType.StorageKind() == types.StorageSparseSet {
		set, err := s.sparseSetFor(cType)
		if err != nil {
			return types.TickPair{}, err
		}
		_, ticks, ok := set.Get(e)
		if !ok {
			return types.TickPair{}, eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
		}
		return ticks, nil
	}
	_, ticks, ok := s.archetypes[loc.arch].table.get(cType.ID(), loc.row)
	if !ok {
		return types.TickPair{}, eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
	}
	return ticks, nil
}

// SetComponentForEntity overwrites the entity's value for a component it
// already has, stamping the slot's changed tick with the current tick. This
// is a value write, not a structural mutation: it is safe from any system
// whose access set declares a write on the component.
func (s *State) SetComponentForEntity(cType types.ComponentMetadata, e types.Entity, value any) error {
	loc, err := s.locationOf(e)
	if err != nil {
		return err
	}
	tick := s.CurrentTick()
	if cType.StorageKind() == types.StorageSparseSet {
		set, err := s.sparseSetFor(cType)
		if err != nil {
			return err
		}
		if !set.Set(e, value, tick) {
			return eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
		}
		return nil
	}
	if !s.archetypes[loc.arch].table.set(cType.ID(), loc.row, value, tick) {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
	}
	return nil
}

// AddComponentToEntity adds a component to the entity, moving it to the
// archetype reached by the "add" edge. Adding a component the entity already
// has overwrites the value in place (no structural move). A nil value adds
// the component's default value.
func (s *State) AddComponentToEntity(cType types.ComponentMetadata, e types.Entity, value any) error {
	loc, err := s.locationOf(e)
	if err != nil {
		return err
	}
	if _, ok := s.typeToComponent[cType.ID()]; !ok {
		return eris.Wrapf(ErrComponentNotRegistered, "component %q", cType.Name())
	}
	if value == nil {
		value, err = cType.New()
		if err != nil {
			return err
		}
	}

	src := s.archetypes[loc.arch]
	if src.HasComponent(cType.ID()) {
		return s.SetComponentForEntity(cType, e, value)
	}

	dst, err := s.archetypeAfterAdd(src, cType)
	if err != nil {
		return err
	}
	dstRow := s.moveEntity(e, loc, dst)

	tick := s.CurrentTick()
	if cType.StorageKind() == types.StorageSparseSet {
		s.sparseSets[cType.ID()].Insert(e, value, tick)
	} else if !dst.table.setInserted(cType.ID(), dstRow, value, tick) {
		panic("destination archetype is missing the column for the added component")
	}
	return nil
}

// RemoveComponentFromEntity removes a component from the entity, moving it to
// the archetype reached by the "remove" edge. Removing a component the entity
// does not have is reported as an error so logic bugs surface instead of
// silently passing.
func (s *State) RemoveComponentFromEntity(cType types.ComponentMetadata, e types.Entity) error {
	loc, err := s.locationOf(e)
	if err != nil {
		return err
	}
	src := s.archetypes[loc.arch]
	if !src.HasComponent(cType.ID()) {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q on entity %s", cType.Name(), e)
	}
	if len(src.comps) == 1 {
		return ErrEntityMustHaveAtLeastOneComponent
	}

	dst, err := s.archetypeAfterRemove(src, cType)
	if err != nil {
		return err
	}
	s.moveEntity(e, loc, dst)

	if cType.StorageKind() == types.StorageSparseSet {
		s.sparseSets[cType.ID()].Remove(e)
	}
	return nil
}

// GetComponentTypesForEntity returns the component set of the entity's
// current archetype.
func (s *State) GetComponentTypesForEntity(e types.Entity) ([]types.ComponentMetadata, error) {
	loc, err := s.locationOf(e)
	if err != nil {
		return nil, err
	}
	return s.archetypes[loc.arch].Components(), nil
}

// GetComponentTypesForArchID returns the component set of the given
// archetype.
func (s *State) GetComponentTypesForArchID(archID types.ArchetypeID) []types.ComponentMetadata {
	return s.archetypes[archID].Components()
}

// GetEntitiesForArchID returns the entities currently stored in the given
// archetype. The returned slice is the live row order; callers must not
// mutate it.
func (s *State) GetEntitiesForArchID(archID types.ArchetypeID) ([]types.Entity, error) {
	if int(archID) < 0 || int(archID) >= len(s.archetypes) {
		return nil, eris.Errorf("archetype id %d does not exist", archID)
	}
	return s.archetypes[archID].table.entities, nil
}

// GetArchIDForEntity returns the id of the entity's current archetype.
func (s *State) GetArchIDForEntity(e types.Entity) (types.ArchetypeID, error) {
	loc, err := s.locationOf(e)
	if err != nil {
		return doesNotExistArchetypeID, err
	}
	return loc.arch, nil
}

// ArchetypeCount returns the number of archetypes created so far. Search
// caches use this as a watermark to extend their match lists incrementally.
func (s *State) ArchetypeCount() int {
	return len(s.archetypes)
}

// SearchFrom returns an iterator over the archetypes with index >= start
// whose component sets match the given filter.
func (s *State) SearchFrom(f filter.ComponentFilter, start int) *ArchetypeIterator {
	itr := &ArchetypeIterator{}
	for i := start; i < len(s.archetypes); i++ {
		arch := s.archetypes[i]
		if f.MatchesComponents(types.ConvertComponentMetadatasToComponents(arch.comps)) {
			itr.values = append(itr.values, arch.id)
		}
	}
	return itr
}

// SetResource inserts or overwrites the world's single value for the given
// resource type.
func (s *State) SetResource(rType types.ComponentMetadata, value any) error {
	tick := s.CurrentTick()
	if slot, ok := s.resources[rType.ID()]; ok {
		slot.value = value
		slot.ticks.Changed = tick
		return nil
	}
	s.resources[rType.ID()] = &resourceSlot{
		value: value,
		ticks: types.TickPair{Added: tick, Changed: tick},
	}
	return nil
}

// GetResource returns the world's value for the given resource type.
func (s *State) GetResource(rType types.ComponentMetadata) (any, error) {
	slot, ok := s.resources[rType.ID()]
	if !ok {
		return nil, eris.Wrapf(ErrResourceDoesNotExist, "resource %q", rType.Name())
	}
	return slot.value, nil
}

// GetResourceChangeTicks returns the added/changed tick pair for the given
// resource type.
func (s *State) GetResourceChangeTicks(rType types.ComponentMetadata) (types.TickPair, error) {
	slot, ok := s.resources[rType.ID()]
	if !ok {
		return types.TickPair{}, eris.Wrapf(ErrResourceDoesNotExist, "resource %q", rType.Name())
	}
	return slot.ticks, nil
}

// RemoveResource deletes the world's value for the given resource type.
// Removing an absent resource is reported as an error.
func (s *State) RemoveResource(rType types.ComponentMetadata) error {
	if _, ok := s.resources[rType.ID()]; !ok {
		return eris.Wrapf(ErrResourceDoesNotExist, "resource %q", rType.Name())
	}
	delete(s.resources, rType.ID())
	return nil
}

// moveEntity transfers the entity from its current location to the given
// destination archetype: append a row to the destination table, copy the
// shared column values and their tick pairs, update the location map, and
// swap-remove the source row (fixing up the location of whichever entity was
// back-filled into it). The location map is consistent after every step, so
// no reader at the next sync point can observe a half-moved entity.
func (s *State) moveEntity(e types.Entity, loc entityLocation, dst *Archetype) int {
	src := s.archetypes[loc.arch]

	dstRow := dst.table.addRowNoFill(e)
	src.table.copyRowTo(loc.row, dst.table, dstRow)
	s.locations[e.Index] = entityLocation{arch: dst.id, row: dstRow}

	moved, wasMoved := src.table.swapRemove(loc.row)
	if wasMoved {
		s.locations[moved.Index].row = loc.row
	}
	return dstRow
}

// archetypeAfterAdd resolves (and caches) the archetype an entity of src
// lands in when the given component is added.
func (s *State) archetypeAfterAdd(src *Archetype, cType types.ComponentMetadata) (*Archetype, error) {
	edge := src.edge(cType.ID())
	if edge.add != doesNotExistArchetypeID {
		return s.archetypes[edge.add], nil
	}

	comps := make([]types.ComponentMetadata, 0, len(src.comps)+1)
	comps = append(comps, src.comps...)
	comps = append(comps, cType)
	dst, err := s.getOrMakeArchetype(comps)
	if err != nil {
		return nil, err
	}

	edge.add = dst.id
	dst.edge(cType.ID()).remove = src.id
	return dst, nil
}

// archetypeAfterRemove resolves (and caches) the archetype an entity of src
// lands in when the given component is removed.
func (s *State) archetypeAfterRemove(src *Archetype, cType types.ComponentMetadata) (*Archetype, error) {
	edge := src.edge(cType.ID())
	if edge.remove != doesNotExistArchetypeID {
		return s.archetypes[edge.remove], nil
	}

	comps := make([]types.ComponentMetadata, 0, len(src.comps)-1)
	for _, comp := range src.comps {
		if comp.ID() != cType.ID() {
			comps = append(comps, comp)
		}
	}
	dst, err := s.getOrMakeArchetype(comps)
	if err != nil {
		return nil, err
	}

	edge.remove = dst.id
	dst.edge(cType.ID()).add = src.id
	return dst, nil
}

// getOrMakeArchetype returns the archetype for the exact given component
// set, creating it (and its table) on first use. Archetypes are deduplicated
// by component-set identity: equal sets always yield the same archetype id.
func (s *State) getOrMakeArchetype(comps []types.ComponentMetadata) (*Archetype, error) {
	sorted := make([]types.ComponentMetadata, len(comps))
	copy(sorted, comps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})

	var mask Mask
	for i, comp := range sorted {
		if i > 0 && sorted[i-1].ID() == comp.ID() {
			return nil, eris.Errorf("duplicate component %q in component set", comp.Name())
		}
		mask.Set(int(comp.ID()))
	}

	if archID, ok := s.archByMask[mask]; ok {
		return s.archetypes[archID], nil
	}

	tableComps := make([]types.ComponentMetadata, 0, len(sorted))
	for _, comp := range sorted {
		if comp.StorageKind() == types.StorageTable {
			tableComps = append(tableComps, comp)
		}
	}

	table := newTable(types.TableID(len(s.tables)), tableComps)
	s.tables = append(s.tables, table)

	arch := newArchetype(types.ArchetypeID(len(s.archetypes)), sorted, mask, table)
	s.archetypes = append(s.archetypes, arch)
	s.archByMask[mask] = arch.id
	return arch, nil
}

// sparseSetFor returns the storage for a sparse-kind component, or
// ErrComponentNotRegistered for metadata that never passed through
// RegisterComponents.
func (s *State) sparseSetFor(cType types.ComponentMetadata) (*SparseSet, error) {
	set, ok := s.sparseSets[cType.ID()]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q", cType.Name())
	}
	return set, nil
}

func (s *State) locationOf(e types.Entity) (entityLocation, error) {
	if !s.allocator.IsAlive(e) {
		return entityLocation{}, eris.Wrapf(ErrEntityDoesNotExist, "entity %s", e)
	}
	loc := s.locations[e.Index]
	if loc.arch == doesNotExistArchetypeID {
		return entityLocation{}, eris.Wrapf(ErrEntityDoesNotExist, "entity %s", e)
	}
	return loc, nil
}

func (s *State) setLocation(e types.Entity, loc entityLocation) {
	for uint64(len(s.locations)) <= uint64(e.Index) {
		s.locations = append(s.locations, entityLocation{arch: doesNotExistArchetypeID})
	}
	s.locations[e.Index] = loc
}
