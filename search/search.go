// Package search implements the query engine: archetype matching with an
// incrementally extended cache, row iteration, and per-row change-detection
// filters.
package search

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

var (
	ErrNoEntities       = eris.New("no entities match the search")
	ErrMultipleEntities = eris.New("multiple entities match the search")
)

type CallbackFn func(types.Entity) bool

// cache holds the archetype ids known to match the search's filter. Because
// archetypes are never destroyed, the cache is only ever extended: seen
// records how many archetypes existed the last time the filter was
// evaluated, and only archetypes created since then are tested.
type cache struct {
	archetypes []types.ArchetypeID
	seen       int
}

// Search represents a search for entities matching a component signature.
// The archetype match list is computed once and extended incrementally, so
// reuse a Search across runs instead of rebuilding it each time.
type Search struct {
	archMatches cache
	filter      filter.ComponentFilter
	rowFilters  []rowFilter
	reader      gamestate.Reader
	wCtx        engine.Context
}

// New creates a search from an archetype filter plus optional per-row access
// declarations and tick filters. It returns an error if the declared access
// is self-conflicting (the same component requested both read-only and
// mutable), which is a caller bug caught at construction time rather than at
// iteration time.
func New(wCtx engine.Context, f filter.ComponentFilter, opts ...Option) (*Search, error) {
	s := &Search{
		filter: f,
		reader: wCtx.StoreReader(),
		wCtx:   wCtx,
	}
	cfg := searchConfig{}
	for _, opt := range opts {
		if err := opt(wCtx, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s.rowFilters = cfg.rowFilters
	return s, nil
}

// Each iterates over all entities that match the search, in archetype row
// order. Return false from the callback to stop the iteration early.
func (s *Search) Each(callback CallbackFn) error {
	result := s.evaluateSearch()
	iter := gamestate.NewEntityIterator(s.reader, result)
	for iter.HasNext() {
		entities, err := iter.Next()
		if err != nil {
			return err
		}
		for _, e := range entities {
			ok, err := s.matchesRow(e)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if cont := callback(e); !cont {
				return nil
			}
		}
	}
	return nil
}

// Count returns the number of entities that match the search.
func (s *Search) Count() (int, error) {
	count := 0
	err := s.Each(func(types.Entity) bool {
		count++
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Collect returns all matching entities as a slice.
func (s *Search) Collect() ([]types.Entity, error) {
	var entities []types.Entity
	err := s.Each(func(e types.Entity) bool {
		entities = append(entities, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// First returns the first entity that matches the search, or ErrNoEntities
// if nothing matches.
func (s *Search) First() (types.Entity, error) {
	found := types.Nil
	err := s.Each(func(e types.Entity) bool {
		found = e
		return false
	})
	if err != nil {
		return types.Nil, err
	}
	if found.IsNil() {
		return types.Nil, ErrNoEntities
	}
	return found, nil
}

// MustFirst returns the first entity that matches the search and panics if
// there is none.
func (s *Search) MustFirst() types.Entity {
	e, err := s.First()
	if err != nil {
		panic("no entity matches the search")
	}
	return e
}

// One returns the single entity matching the search. It returns
// ErrNoEntities if nothing matches and ErrMultipleEntities if the
// cardinality is greater than one.
func (s *Search) One() (types.Entity, error) {
	found := types.Nil
	count := 0
	err := s.Each(func(e types.Entity) bool {
		found = e
		count++
		return count < 2
	})
	if err != nil {
		return types.Nil, err
	}
	switch count {
	case 0:
		return types.Nil, ErrNoEntities
	case 1:
		return found, nil
	default:
		return types.Nil, ErrMultipleEntities
	}
}

// matchesRow applies the search's tick filters to one entity.
func (s *Search) matchesRow(e types.Entity) (bool, error) {
	for _, rf := range s.rowFilters {
		ok, err := rf.matches(s.wCtx, e)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evaluateSearch returns the cached archetype match list, extended with any
// archetypes created since the last evaluation.
func (s *Search) evaluateSearch() []types.ArchetypeID {
	for it := s.reader.SearchFrom(s.filter, s.archMatches.seen); it.HasNext(); {
		s.archMatches.archetypes = append(s.archMatches.archetypes, it.Next())
	}
	s.archMatches.seen = s.reader.ArchetypeCount()
	return s.archMatches.archetypes
}
