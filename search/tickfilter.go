package search

import (
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

// rowFilter is a per-row predicate applied during iteration, after the
// archetype-level filter has matched. The only row filters are the
// change-detection ones, which compare a slot's tick stamps against the
// context's last-run/current tick pair.
type rowFilter struct {
	comp types.ComponentMetadata
	// useAdded selects the added stamp instead of the changed stamp.
	useAdded bool
}

func (rf rowFilter) matches(wCtx engine.Context, e types.Entity) (bool, error) {
	ticks, err := wCtx.StoreReader().GetChangeTicksForEntity(rf.comp, e)
	if err != nil {
		return false, err
	}
	stamp := ticks.Changed
	if rf.useAdded {
		stamp = ticks.Added
	}
	return stamp.NewerThan(wCtx.LastRunTick(), wCtx.CurrentTick()), nil
}

// Changed keeps only rows whose value for T was written since this
// context's system last ran.
func Changed[T types.Component]() Option {
	return func(wCtx engine.Context, cfg *searchConfig) error {
		var t T
		comp, err := wCtx.GetComponentByName(t.Name())
		if err != nil {
			return err
		}
		cfg.rowFilters = append(cfg.rowFilters, rowFilter{comp: comp})
		return nil
	}
}

// Added keeps only rows whose value for T was inserted since this context's
// system last ran.
func Added[T types.Component]() Option {
	return func(wCtx engine.Context, cfg *searchConfig) error {
		var t T
		comp, err := wCtx.GetComponentByName(t.Name())
		if err != nil {
			return err
		}
		cfg.rowFilters = append(cfg.rowFilters, rowFilter{comp: comp, useAdded: true})
		return nil
	}
}
