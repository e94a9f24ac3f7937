package filter

import (
	"pkg.world.dev/atlas/types"
)

type not struct {
	filter ComponentFilter
}

func Not(filter ComponentFilter) ComponentFilter {
	return &not{filter: filter}
}

func (f *not) MatchesComponents(components []types.Component) bool {
	return !f.filter.MatchesComponents(components)
}
