package filter

import (
	"pkg.world.dev/atlas/types"
)

// MatchComponent returns true if the given slice of components contains the
// given component. Components are the same if they have the same Name.
func MatchComponent(components []types.Component, cType types.Component) bool {
	for _, c := range components {
		if cType.Name() == c.Name() {
			return true
		}
	}
	return false
}

// CreateComponentMatcher creates a function given a slice of components. The
// returned function takes a single component and returns true if it is in the
// original slice, false otherwise.
func CreateComponentMatcher(components []types.Component) func(types.Component) bool {
	mapStringToComponent := make(map[string]types.Component, len(components))
	for _, component := range components {
		mapStringToComponent[component.Name()] = component
	}
	return func(cType types.Component) bool {
		_, ok := mapStringToComponent[cType.Name()]
		return ok
	}
}
