package atlas

import (
	"fmt"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

// GetResource returns the world's value for resource T.
func GetResource[T types.Component](wCtx engine.Context) (*T, error) {
	r, err := resourceMetadataFor[T](wCtx)
	if err != nil {
		return nil, err
	}
	value, err := wCtx.StoreManager().GetResource(r)
	if err != nil {
		return nil, err
	}
	t, ok := value.(T)
	if !ok {
		res, ok := value.(*T)
		if !ok {
			return nil, fmt.Errorf("type assertion for resource failed: %v to %v", value, r)
		}
		return res, nil
	}
	return &t, nil
}

// SetResource overwrites the world's value for resource T. Overwriting an
// existing value is a value write; inserting the first value is structural
// and requires an exclusive context.
func SetResource[T types.Component](wCtx engine.Context, value *T) error {
	r, err := resourceMetadataFor[T](wCtx)
	if err != nil {
		return err
	}
	if _, err := wCtx.StoreManager().GetResource(r); err != nil {
		if !wCtx.IsExclusive() {
			return ErrNotExclusive
		}
	}
	return wCtx.StoreManager().SetResource(r, *value)
}

// UpdateResource reads resource T, applies fn, and writes the result back.
func UpdateResource[T types.Component](wCtx engine.Context, fn func(*T) *T) error {
	val, err := GetResource[T](wCtx)
	if err != nil {
		return err
	}
	return SetResource[T](wCtx, fn(val))
}

// RemoveResource deletes the world's value for resource T. It is a
// structural change and requires an exclusive context.
func RemoveResource[T types.Component](wCtx engine.Context) error {
	if !wCtx.IsExclusive() {
		return ErrNotExclusive
	}
	r, err := resourceMetadataFor[T](wCtx)
	if err != nil {
		return err
	}
	return wCtx.StoreManager().RemoveResource(r)
}

// GetResourceChangeTicks returns the tick resource T was inserted and the
// tick its value last changed.
func GetResourceChangeTicks[T types.Component](wCtx engine.Context) (types.TickPair, error) {
	r, err := resourceMetadataFor[T](wCtx)
	if err != nil {
		return types.TickPair{}, err
	}
	return wCtx.StoreManager().GetResourceChangeTicks(r)
}

func resourceMetadataFor[T types.Component](wCtx engine.Context) (types.ComponentMetadata, error) {
	var t T
	r, err := wCtx.GetResourceByName(t.Name())
	if err != nil {
		return nil, eris.Wrapf(err, "resource %q is not registered", t.Name())
	}
	return r, nil
}
