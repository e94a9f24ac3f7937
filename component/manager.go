package component

import (
	"fmt"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/types"
)

var (
	ErrComponentNotRegistered = eris.New("component not registered")
	ErrResourceNotRegistered  = eris.New("resource not registered")
)

// Manager assigns dense ids to component and resource types. Components and
// resources share one id space so a system's access set can name either kind.
type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	registeredResources  map[string]types.ComponentMetadata
	nextComponentID      types.ComponentID
}

// NewManager creates a new component manager.
func NewManager() *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		registeredResources:  make(map[string]types.ComponentMetadata),
		nextComponentID:      1,
	}
}

// RegisterComponent registers a component type with the manager. Registration
// is idempotent per type: registering the same type twice returns the
// already-assigned metadata. Two distinct types that collide on a name are a
// configuration bug and are rejected with the schema diff attached.
func (m *Manager) RegisterComponent(compMetadata types.ComponentMetadata) (types.ComponentMetadata, error) {
	if existing, ok := m.registeredComponents[compMetadata.Name()]; ok {
		same, err := types.IsSchemaValid(existing.GetSchema(), compMetadata.GetSchema())
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, eris.Wrap(types.ErrComponentSchemaMismatch,
				fmt.Sprintf("a different component type is already registered under the name %q", compMetadata.Name()),
			)
		}
		// Same type registered again; hand back the canonical metadata so
		// the caller observes the same id.
		return existing, nil
	}
	if _, ok := m.registeredResources[compMetadata.Name()]; ok {
		return nil, eris.Errorf("%q is already registered as a resource", compMetadata.Name())
	}

	if err := compMetadata.SetID(m.nextComponentID); err != nil {
		return nil, err
	}
	m.registeredComponents[compMetadata.Name()] = compMetadata
	m.nextComponentID++

	return compMetadata, nil
}

// RegisterResource registers a resource type. Resources live outside of any
// archetype (one value per world) but draw ids from the same space as
// components so access conflict analysis can treat them uniformly.
func (m *Manager) RegisterResource(resMetadata types.ComponentMetadata) (types.ComponentMetadata, error) {
	if existing, ok := m.registeredResources[resMetadata.Name()]; ok {
		same, err := types.IsSchemaValid(existing.GetSchema(), resMetadata.GetSchema())
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, eris.Wrap(types.ErrComponentSchemaMismatch,
				fmt.Sprintf("a different resource type is already registered under the name %q", resMetadata.Name()),
			)
		}
		return existing, nil
	}
	if _, ok := m.registeredComponents[resMetadata.Name()]; ok {
		return nil, eris.Errorf("%q is already registered as a component", resMetadata.Name())
	}

	if err := resMetadata.SetID(m.nextComponentID); err != nil {
		return nil, err
	}
	m.registeredResources[resMetadata.Name()] = resMetadata
	m.nextComponentID++

	return resMetadata, nil
}

// GetComponents returns a list of all registered components.
// Note: The order of the components in the list is not deterministic.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	registeredComponents := make([]types.ComponentMetadata, 0, len(m.registeredComponents))
	for _, comp := range m.registeredComponents {
		registeredComponents = append(registeredComponents, comp)
	}
	return registeredComponents
}

// GetResources returns a list of all registered resources.
func (m *Manager) GetResources() []types.ComponentMetadata {
	registeredResources := make([]types.ComponentMetadata, 0, len(m.registeredResources))
	for _, res := range m.registeredResources {
		registeredResources = append(registeredResources, res)
	}
	return registeredResources
}

// GetComponentByName returns the component metadata for the given component name.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	c, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component %q is not registered", name))
	}
	return c, nil
}

// GetResourceByName returns the resource metadata for the given resource name.
func (m *Manager) GetResourceByName(name string) (types.ComponentMetadata, error) {
	r, ok := m.registeredResources[name]
	if !ok {
		return nil, eris.Wrap(ErrResourceNotRegistered, fmt.Sprintf("resource %q is not registered", name))
	}
	return r, nil
}
