package types

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// ComponentID is a dense integer identifying a registered component or
// resource type. IDs are assigned once per process lifetime at first
// registration and are never reused.
type ComponentID int

// StorageKind selects the backing storage for a component type.
type StorageKind int

const (
	// StorageTable stores component data in dense struct-of-arrays tables,
	// one column per component per archetype. This is the default and is
	// optimized for iteration.
	StorageTable StorageKind = iota

	// StorageSparseSet stores component data in an entity-indexed sparse
	// set. Insert and remove are cheap and do not move the entity between
	// tables; iteration is slower. Opt in for high-churn marker components.
	StorageSparseSet
)

func (k StorageKind) String() string {
	switch k {
	case StorageTable:
		return "table"
	case StorageSparseSet:
		return "sparse_set"
	default:
		return "unknown"
	}
}

// Component is the interface that the user needs to implement to create a new
// component or resource type.
type Component interface {
	// Name returns the name of the component. It must be unique across all
	// registered component types.
	Name() string
}

// ComponentMetadata wraps a user-defined Component struct and carries the
// bookkeeping the engine needs: the dense id, the storage kind, the reflected
// schema, and codec functions. Metadata is immutable after registration.
type ComponentMetadata interface { //revive:disable-line:exported
	// SetID sets the ComponentID of this component. It may only be set once.
	SetID(ComponentID) error
	// ID returns the ComponentID of the component.
	ID() ComponentID
	// StorageKind returns the backing storage selected for this component.
	StorageKind() StorageKind
	// GetSchema returns the reflected JSON schema of the component struct.
	GetSchema() []byte
	// New returns the default value for the component struct.
	New() (any, error)
	Encode(any) ([]byte, error)
	Decode([]byte) (any, error)

	Component
}

var ErrComponentSchemaMismatch = eris.New("component schema does not match target schema")

// SerializeComponentSchema reflects the JSON schema for a component struct.
// Two distinct Go types with the same name are told apart by their schemas.
func SerializeComponentSchema(component Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(component)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsSchemaValid reports whether two reflected schemas are identical.
func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// ConvertComponentMetadatasToComponents casts a slice of ComponentMetadata
// into a slice of Component.
func ConvertComponentMetadatasToComponents(comps []ComponentMetadata) []Component {
	ret := make([]Component, len(comps))
	for i, comp := range comps {
		ret[i] = comp
	}
	return ret
}
