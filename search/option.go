package search

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

var ErrConflictingAccess = eris.New("search declares conflicting access for a component")

// Option configures a search at construction time.
type Option func(wCtx engine.Context, cfg *searchConfig) error

type searchConfig struct {
	reads      []types.ComponentMetadata
	writes     []types.ComponentMetadata
	rowFilters []rowFilter
}

// Reads declares the components this search reads per row. Declarations are
// validated against Writes at construction time.
func Reads[T types.Component]() Option {
	return func(wCtx engine.Context, cfg *searchConfig) error {
		var t T
		comp, err := wCtx.GetComponentByName(t.Name())
		if err != nil {
			return err
		}
		cfg.reads = append(cfg.reads, comp)
		return nil
	}
}

// Writes declares the components this search mutates per row.
func Writes[T types.Component]() Option {
	return func(wCtx engine.Context, cfg *searchConfig) error {
		var t T
		comp, err := wCtx.GetComponentByName(t.Name())
		if err != nil {
			return err
		}
		cfg.writes = append(cfg.writes, comp)
		return nil
	}
}

// validate rejects a signature that requests both read-only and mutable
// access to the same component within one search.
func (cfg *searchConfig) validate() error {
	writeSet := make(map[types.ComponentID]struct{}, len(cfg.writes))
	for _, w := range cfg.writes {
		if _, ok := writeSet[w.ID()]; ok {
			return eris.Wrapf(ErrConflictingAccess, "component %q declared mutable twice", w.Name())
		}
		writeSet[w.ID()] = struct{}{}
	}
	for _, r := range cfg.reads {
		if _, ok := writeSet[r.ID()]; ok {
			return eris.Wrapf(ErrConflictingAccess,
				"component %q requested both read-only and mutable", r.Name())
		}
	}
	return nil
}
