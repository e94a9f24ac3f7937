package atlas

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

var (
	// ErrNotExclusive is returned when a structural change is attempted from
	// inside a non-exclusive system. Non-exclusive systems must defer
	// structural changes through wCtx.Commands().
	ErrNotExclusive = eris.New("structural changes require an exclusive context; use Commands() instead")

	ErrEntityDoesNotExist                = gamestate.ErrEntityDoesNotExist
	ErrEntityMustHaveAtLeastOneComponent = gamestate.ErrEntityMustHaveAtLeastOneComponent
	ErrComponentNotOnEntity              = gamestate.ErrComponentNotOnEntity
	ErrComponentNotRegistered            = gamestate.ErrComponentNotRegistered
	ErrResourceDoesNotExist              = gamestate.ErrResourceDoesNotExist
)

// CreateMany creates multiple entities, each carrying the given component
// values. It is a structural change and requires an exclusive context.
func CreateMany(wCtx engine.Context, num int, components ...types.Component) ([]types.Entity, error) {
	if !wCtx.IsExclusive() {
		return nil, ErrNotExclusive
	}
	acc := make([]types.ComponentMetadata, 0, len(components))
	for _, comp := range components {
		c, err := wCtx.GetComponentByName(comp.Name())
		if err != nil {
			return nil, eris.Wrap(err, "must register component before creating an entity")
		}
		acc = append(acc, c)
	}
	entities, err := wCtx.StoreManager().CreateManyEntities(num, acc...)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		for i, comp := range components {
			if err := wCtx.StoreManager().SetComponentForEntity(acc[i], e, comp); err != nil {
				return nil, err
			}
		}
	}
	return entities, nil
}

// Create creates a single entity carrying the given component values.
func Create(wCtx engine.Context, components ...types.Component) (types.Entity, error) {
	entities, err := CreateMany(wCtx, 1, components...)
	if err != nil {
		return types.Nil, err
	}
	return entities[0], nil
}

// Destroy removes the given entity from the world. It is a structural change
// and requires an exclusive context.
func Destroy(wCtx engine.Context, e types.Entity) error {
	if !wCtx.IsExclusive() {
		return ErrNotExclusive
	}
	return wCtx.StoreManager().DestroyEntity(e)
}

// AddComponentTo adds the default value of component T to the entity. Adding
// a component the entity already has overwrites its value.
func AddComponentTo[T types.Component](wCtx engine.Context, e types.Entity) error {
	if !wCtx.IsExclusive() {
		return ErrNotExclusive
	}
	c, err := metadataFor[T](wCtx)
	if err != nil {
		return err
	}
	return wCtx.StoreManager().AddComponentToEntity(c, e, nil)
}

// RemoveComponentFrom removes component T from the entity.
func RemoveComponentFrom[T types.Component](wCtx engine.Context, e types.Entity) error {
	if !wCtx.IsExclusive() {
		return ErrNotExclusive
	}
	c, err := metadataFor[T](wCtx)
	if err != nil {
		return err
	}
	return wCtx.StoreManager().RemoveComponentFromEntity(c, e)
}

// GetComponent returns component data from the entity.
func GetComponent[T types.Component](wCtx engine.Context, e types.Entity) (comp *T, err error) {
	c, err := metadataFor[T](wCtx)
	if err != nil {
		return nil, err
	}
	value, err := wCtx.StoreReader().GetComponentForEntity(c, e)
	if err != nil {
		return nil, err
	}
	t, ok := value.(T)
	if !ok {
		comp, ok = value.(*T)
		if !ok {
			return nil, fmt.Errorf("type assertion for component failed: %v to %v", value, c)
		}
	} else {
		comp = &t
	}

	return comp, nil
}

// SetComponent sets component data on the entity. This is a value write, not
// a structural change: it is legal from any system that declared a write on
// T.
func SetComponent[T types.Component](wCtx engine.Context, e types.Entity, component *T) error {
	c, err := metadataFor[T](wCtx)
	if err != nil {
		return err
	}
	err = wCtx.StoreManager().SetComponentForEntity(c, e, *component)
	if err != nil {
		return err
	}
	wCtx.Logger().Debug().
		Str("entity_id", strconv.FormatUint(uint64(e.Index), 10)).
		Str("component_name", c.Name()).
		Int("component_id", int(c.ID())).
		Msg("entity updated")
	return nil
}

// UpdateComponent reads component T from the entity, applies fn, and writes
// the result back.
func UpdateComponent[T types.Component](wCtx engine.Context, e types.Entity, fn func(*T) *T) error {
	val, err := GetComponent[T](wCtx, e)
	if err != nil {
		return err
	}
	updatedVal := fn(val)
	return SetComponent[T](wCtx, e, updatedVal)
}

// GetChangeTicks returns the tick component T was added to the entity and
// the tick its value last changed.
func GetChangeTicks[T types.Component](wCtx engine.Context, e types.Entity) (types.TickPair, error) {
	c, err := metadataFor[T](wCtx)
	if err != nil {
		return types.TickPair{}, err
	}
	return wCtx.StoreReader().GetChangeTicksForEntity(c, e)
}

func metadataFor[T types.Component](wCtx engine.Context) (types.ComponentMetadata, error) {
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return nil, eris.Wrapf(err, "component %q is not registered", t.Name())
	}
	return c, nil
}
