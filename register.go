package atlas

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/component"
	"pkg.world.dev/atlas/system"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/worldstage"
)

// System is a function that runs once per tick against the world.
type System = system.System

// RegisterComponent registers the component type T with the world. All
// component types must be registered before the world is started.
func RegisterComponent[T types.Component](w *World, opts ...component.Option[T]) error {
	if w.worldStage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register component",
			w.worldStage.Current(),
			worldstage.Init,
		)
	}

	compMetadata, err := component.NewComponentMetadata[T](opts...)
	if err != nil {
		return err
	}

	_, err = w.componentManager.RegisterComponent(compMetadata)
	if err != nil {
		return err
	}

	return nil
}

// RegisterResource registers the resource type T with the world. A resource
// is a world-wide singleton value; it shares the component metadata
// machinery but never lives on an entity.
func RegisterResource[T types.Component](w *World, opts ...component.Option[T]) error {
	if w.worldStage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register resource",
			w.worldStage.Current(),
			worldstage.Init,
		)
	}

	resMetadata, err := component.NewComponentMetadata[T](opts...)
	if err != nil {
		return err
	}

	_, err = w.componentManager.RegisterResource(resMetadata)
	if err != nil {
		return err
	}

	return nil
}

// RegisterSystems registers one or more systems with the world, each with no
// declared access and therefore exclusive. Systems that should run
// concurrently must be registered individually via RegisterSystem with
// declared reads and writes.
func RegisterSystems(w *World, systems ...System) error {
	for _, sys := range systems {
		if err := RegisterSystem(w, sys); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSystem registers a single system along with its scheduling options.
func RegisterSystem(w *World, sys System, opts ...SystemOption) error {
	if w.worldStage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register systems",
			w.worldStage.Current(),
			worldstage.Init,
		)
	}
	resolved, err := resolveSystemOptions(w, opts)
	if err != nil {
		return eris.Wrapf(err, "cannot register system %s", system.NameOf(sys))
	}
	return w.systemManager.Register(sys, resolved...)
}

// RegisterInitSystems registers systems that run exactly once, before the
// first tick, in registration order and with exclusive access.
func RegisterInitSystems(w *World, systems ...System) error {
	if w.worldStage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register init systems",
			w.worldStage.Current(),
			worldstage.Init,
		)
	}
	for _, sys := range systems {
		w.systemManager.RegisterInit(sys)
	}
	return nil
}
