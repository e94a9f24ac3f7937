package atlas

import (
	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/system"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

var _ engine.Context = (*worldContext)(nil)

type worldContext struct {
	world  *World
	logger *zerolog.Logger

	// sys is the registration record of the system this context was built
	// for. It is nil for contexts created outside of a schedule run.
	sys *system.Registered

	readOnly bool
}

// newWorldContextForSystem builds the context a system runs with during a
// tick. The scheduler creates one per system per run.
func newWorldContextForSystem(world *World, sys *system.Registered) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		sys:      sys,
		readOnly: false,
	}
}

// NewWorldContext returns a context with full store access. Structural
// changes through it are applied immediately, so it must not be used while a
// schedule is running.
func NewWorldContext(world *World) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		readOnly: false,
	}
}

// NewReadOnlyWorldContext returns a context that can only inspect the store.
func NewReadOnlyWorldContext(world *World) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		readOnly: true,
	}
}

func (w *worldContext) Logger() *zerolog.Logger {
	return w.logger
}

func (w *worldContext) SetLogger(logger zerolog.Logger) {
	w.logger = &logger
}

func (w *worldContext) CurrentTick() types.Tick {
	return w.world.state.CurrentTick()
}

func (w *worldContext) LastRunTick() types.Tick {
	if w.sys == nil {
		return 0
	}
	return w.sys.LastRunTick()
}

func (w *worldContext) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.world.componentManager.GetComponentByName(name)
}

func (w *worldContext) GetResourceByName(name string) (types.ComponentMetadata, error) {
	return w.world.componentManager.GetResourceByName(name)
}

func (w *worldContext) Commands() *command.Queue {
	if w.sys != nil {
		return w.sys.Queue()
	}
	return w.world.worldQueue
}

func (w *worldContext) IsExclusive() bool {
	if w.sys == nil {
		// Outside of a schedule run nothing else touches the store.
		return !w.readOnly
	}
	return w.sys.IsExclusive()
}

func (w *worldContext) StoreReader() gamestate.Reader {
	return w.world.state
}

func (w *worldContext) StoreManager() *gamestate.State {
	return w.world.state
}
