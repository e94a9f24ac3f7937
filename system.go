package atlas

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/system"
	"pkg.world.dev/atlas/types"
)

// SystemOption configures how a system is scheduled. Component and resource
// footprints are declared with zero-value component instances the same way
// filters are, and resolved to registered metadata at registration time.
type SystemOption struct {
	apply func(w *World, cfg *systemConfig) error
}

type systemConfig struct {
	access    system.Access
	hasAccess bool
	opts      []system.Option
}

// WithReads declares the component types the system reads.
func WithReads(components ...types.Component) SystemOption {
	return SystemOption{apply: func(w *World, cfg *systemConfig) error {
		ids, err := componentIDs(w, components)
		if err != nil {
			return err
		}
		cfg.access.ComponentReads = append(cfg.access.ComponentReads, ids...)
		cfg.hasAccess = true
		return nil
	}}
}

// WithWrites declares the component types the system writes.
func WithWrites(components ...types.Component) SystemOption {
	return SystemOption{apply: func(w *World, cfg *systemConfig) error {
		ids, err := componentIDs(w, components)
		if err != nil {
			return err
		}
		cfg.access.ComponentWrites = append(cfg.access.ComponentWrites, ids...)
		cfg.hasAccess = true
		return nil
	}}
}

// WithReadsResources declares the resource types the system reads.
func WithReadsResources(resources ...types.Component) SystemOption {
	return SystemOption{apply: func(w *World, cfg *systemConfig) error {
		ids, err := resourceIDs(w, resources)
		if err != nil {
			return err
		}
		cfg.access.ResourceReads = append(cfg.access.ResourceReads, ids...)
		cfg.hasAccess = true
		return nil
	}}
}

// WithWritesResources declares the resource types the system writes.
func WithWritesResources(resources ...types.Component) SystemOption {
	return SystemOption{apply: func(w *World, cfg *systemConfig) error {
		ids, err := resourceIDs(w, resources)
		if err != nil {
			return err
		}
		cfg.access.ResourceWrites = append(cfg.access.ResourceWrites, ids...)
		cfg.hasAccess = true
		return nil
	}}
}

// WithExclusive forces the system into its own wave with full world access.
func WithExclusive() SystemOption {
	return SystemOption{apply: func(_ *World, cfg *systemConfig) error {
		cfg.opts = append(cfg.opts, system.WithExclusive())
		return nil
	}}
}

// Before orders the system before the given systems in every tick.
func Before(systems ...System) SystemOption {
	return SystemOption{apply: func(_ *World, cfg *systemConfig) error {
		cfg.opts = append(cfg.opts, system.WithBefore(systems...))
		return nil
	}}
}

// After orders the system after the given systems in every tick.
func After(systems ...System) SystemOption {
	return SystemOption{apply: func(_ *World, cfg *systemConfig) error {
		cfg.opts = append(cfg.opts, system.WithAfter(systems...))
		return nil
	}}
}

func resolveSystemOptions(w *World, opts []SystemOption) ([]system.Option, error) {
	cfg := systemConfig{}
	for _, opt := range opts {
		if err := opt.apply(w, &cfg); err != nil {
			return nil, err
		}
	}
	resolved := cfg.opts
	if cfg.hasAccess {
		resolved = append(resolved, system.WithAccess(cfg.access))
	}
	return resolved, nil
}

func componentIDs(w *World, components []types.Component) ([]types.ComponentID, error) {
	ids := make([]types.ComponentID, 0, len(components))
	for _, comp := range components {
		c, err := w.componentManager.GetComponentByName(comp.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "component %q must be registered before it is declared", comp.Name())
		}
		ids = append(ids, c.ID())
	}
	return ids, nil
}

func resourceIDs(w *World, resources []types.Component) ([]types.ComponentID, error) {
	ids := make([]types.ComponentID, 0, len(resources))
	for _, res := range resources {
		r, err := w.componentManager.GetResourceByName(res.Name())
		if err != nil {
			return nil, eris.Wrapf(err, "resource %q must be registered before it is declared", res.Name())
		}
		ids = append(ids, r.ID())
	}
	return ids, nil
}
