package filter

import (
	"pkg.world.dev/atlas/types"
)

type without struct {
	components []types.Component
}

// Without matches archetypes that contain none of the components specified.
// A search combining Contains and Without that matches no archetype yields an
// empty iteration, not an error.
func Without(components ...ComponentWrapper) ComponentFilter {
	return &without{components: unwrap(components)}
}

func (f *without) MatchesComponents(components []types.Component) bool {
	for _, componentType := range f.components {
		if MatchComponent(components, componentType) {
			return false
		}
	}
	return true
}
