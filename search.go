package atlas

import (
	"pkg.world.dev/atlas/search"
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/types/engine"
)

// NewSearch builds a cached search over the entities matched by the given
// archetype filter. Search options declare component access and row-level
// change filters; see the search package for details.
func NewSearch(wCtx engine.Context, f filter.ComponentFilter, opts ...search.Option) (*search.Search, error) {
	return search.New(wCtx, f, opts...)
}
