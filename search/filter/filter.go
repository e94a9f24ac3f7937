// Package filter provides the archetype-level predicates a search is built
// from. A filter is matched once against an archetype's component set; the
// result is cached by the search, so filters must be pure.
package filter

import (
	"pkg.world.dev/atlas/types"
)

// ComponentFilter is a filter that matches archetypes based on their
// component sets.
type ComponentFilter interface {
	// MatchesComponents returns true if an archetype with the given
	// component set matches the filter.
	MatchesComponents(components []types.Component) bool
}

// ComponentWrapper wraps a Component type for filtering purposes.
type ComponentWrapper struct {
	Component types.Component
}

// Component returns a ComponentWrapper for the given component type T.
func Component[T types.Component]() ComponentWrapper {
	var x T
	return ComponentWrapper{
		Component: x,
	}
}

func unwrap(components []ComponentWrapper) []types.Component {
	acc := make([]types.Component, 0, len(components))
	for _, wrapper := range components {
		acc = append(acc, wrapper.Component)
	}
	return acc
}
