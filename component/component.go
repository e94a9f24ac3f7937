package component

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"pkg.world.dev/atlas/codec"
	"pkg.world.dev/atlas/types"
)

// Interface guard
var _ types.ComponentMetadata = (*componentMetadata[types.Component])(nil)

// Option is a type that can be passed to NewComponentMetadata to augment the
// creation of the component type.
type Option[T types.Component] func(c *componentMetadata[T])

// componentMetadata represents a type of component. It is used to identify
// a component when getting or setting the component of an entity.
type componentMetadata[T types.Component] struct {
	isIDSet     bool
	id          types.ComponentID
	compType    reflect.Type
	name        string
	storageKind types.StorageKind
	schema      []byte
	defaultVal  types.Component
}

// NewComponentMetadata creates the metadata wrapper for a component type.
// Components default to table storage; pass WithStorageKind to opt a
// high-churn component into sparse-set storage.
func NewComponentMetadata[T types.Component](opts ...Option[T]) (
	types.ComponentMetadata, error,
) {
	var t T
	compType := reflect.TypeOf(t)

	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}

	compMetadata := &componentMetadata[T]{
		compType:    compType,
		name:        t.Name(),
		storageKind: types.StorageTable,
		schema:      schema,
	}
	for _, opt := range opts {
		opt(compMetadata)
	}

	return compMetadata, nil
}

func (c *componentMetadata[T]) GetSchema() []byte {
	return c.schema
}

// SetID sets this component's ID. It must be unique across the world object.
func (c *componentMetadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Components are only initialized one time in a running world. In
		// tests it is useful to reuse the same component across multiple
		// worlds, so re-initialization is allowed as long as the ID is
		// unchanged.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

// String returns the component type name.
func (c *componentMetadata[T]) String() string {
	return c.name
}

// Name returns the component type name.
func (c *componentMetadata[T]) Name() string {
	return c.name
}

// ID returns the component type id.
func (c *componentMetadata[T]) ID() types.ComponentID {
	return c.id
}

// StorageKind returns the backing storage selected for this component.
func (c *componentMetadata[T]) StorageKind() types.StorageKind {
	return c.storageKind
}

// New returns the default value for this component type.
func (c *componentMetadata[T]) New() (any, error) {
	if c.defaultVal != nil {
		return c.defaultVal, nil
	}
	var t T
	return t, nil
}

func (c *componentMetadata[T]) Encode(v any) ([]byte, error) {
	return codec.Encode(v)
}

func (c *componentMetadata[T]) Decode(bz []byte) (any, error) {
	return codec.Decode[T](bz)
}

func (c *componentMetadata[T]) validateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(c.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}

	if diff.String() != "" {
		return eris.Wrap(types.ErrComponentSchemaMismatch, diff.String())
	}

	return nil
}

func (c *componentMetadata[T]) validateDefaultVal() {
	if !reflect.TypeOf(c.defaultVal).AssignableTo(c.compType) {
		panic(fmt.Sprintf("default value is not assignable to component type: %s", c.name))
	}
}

// WithDefault updates the created componentMetadata with a default value.
func WithDefault[T types.Component](defaultVal T) Option[T] {
	return func(c *componentMetadata[T]) {
		c.defaultVal = defaultVal
		c.validateDefaultVal()
	}
}

// WithStorageKind selects the backing storage for the component type.
func WithStorageKind[T types.Component](kind types.StorageKind) Option[T] {
	return func(c *componentMetadata[T]) {
		c.storageKind = kind
	}
}
