// Package atlas is an archetype-based entity component system. Entities
// carry typed components stored in dense struct-of-arrays tables (or
// opt-in sparse sets), systems declare their component and resource access
// up front, and a static scheduler runs provably conflict-free systems
// concurrently, applying deferred structural commands at the sync points
// between waves.
package atlas

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/component"
	"pkg.world.dev/atlas/gamestate"
	ecslog "pkg.world.dev/atlas/log"
	"pkg.world.dev/atlas/schedule"
	"pkg.world.dev/atlas/search"
	"pkg.world.dev/atlas/search/filter"
	"pkg.world.dev/atlas/system"
	"pkg.world.dev/atlas/telemetry"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
	"pkg.world.dev/atlas/worldstage"
)

type World struct {
	instanceID string
	namespace  string
	logger     zerolog.Logger

	// Storage
	state *gamestate.State

	// Core modules
	worldStage       *worldstage.Manager
	systemManager    *system.Manager
	componentManager *component.Manager

	// schedule is built once, when the world starts.
	schedule *schedule.Schedule
	workers  int

	// worldQueue buffers commands issued outside of any system. It is
	// drained at the start of every tick.
	worldQueue *command.Queue

	telemetry *telemetry.Manager

	// Tick
	tickCount       *atomic.Uint64
	timestamp       *atomic.Uint64
	tickChannel     <-chan time.Time
	tickDoneChannel chan<- uint64
	// addChannelWaitingForNextTick accepts a channel which will be closed after a tick has been completed.
	addChannelWaitingForNextTick chan chan struct{}
}

// NewWorld creates a new World object.
func NewWorld(opts ...WorldOption) (*World, error) {
	// Load config. Fallback value is used if it's not set.
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "Failed to load config to start world")
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Logger.Level(level)
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	instanceID := uuid.New().String()
	logger = logger.With().
		Str("namespace", cfg.Namespace).
		Str("instance", instanceID).
		Logger()

	logger.Info().Msgf("Creating a new world in namespace %q", cfg.Namespace)

	tickInterval := time.Duration(float64(time.Second) / cfg.TickRate)

	world := &World{
		instanceID: instanceID,
		namespace:  cfg.Namespace,
		logger:     logger,

		// Storage
		state: gamestate.NewState(),

		// Core modules
		worldStage:       worldstage.NewManager(),
		systemManager:    system.NewManager(),
		componentManager: component.NewManager(),

		schedule: nil, // Will be built in StartLoop
		workers:  cfg.workerCount(),

		worldQueue: command.NewQueue(),

		// Tick
		tickCount:                    new(atomic.Uint64),
		timestamp:                    new(atomic.Uint64),
		tickChannel:                  time.Tick(tickInterval), //nolint:staticcheck // its ok.
		tickDoneChannel:              nil,                     // Will be injected via options
		addChannelWaitingForNextTick: make(chan chan struct{}),
	}

	// Apply options
	for _, opt := range opts {
		if opt.worldOption != nil {
			opt.worldOption(world)
		}
	}

	metricTags := []string{"namespace:" + cfg.Namespace, "instance:" + instanceID}
	if cfg.StatsdAddress != "" {
		if err = telemetry.Init(cfg.StatsdAddress, metricTags); err != nil {
			return nil, eris.Wrap(err, "unable to init statsd")
		}
	} else {
		logger.Warn().Msg("statsd is disabled")
	}

	world.telemetry, err = telemetry.New(cfg.TraceEnabled, cfg.ProfilerEnabled)
	if err != nil {
		return nil, eris.Wrap(err, "unable to init telemetry")
	}

	return world, nil
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() uint64 {
	return w.tickCount.Load()
}

func (w *World) Namespace() string {
	return w.namespace
}

func (w *World) InstanceID() string {
	return w.instanceID
}

// doTick performs one game tick: drains the world-level command queue, then
// runs every schedule wave against the store.
func (w *World) doTick(ctx context.Context, timestamp uint64) (err error) {
	startTime := time.Now()

	// The world can only perform a tick if:
	// - The world is currently running
	// - The world is shutting down (this will be the last or penultimate tick)
	if w.worldStage.Current() != worldstage.Running &&
		w.worldStage.Current() != worldstage.ShuttingDown {
		return eris.Errorf("invalid world state to tick: %s", w.worldStage.Current())
	}

	// This defer is here to catch any panics that occur during the tick. It will log the current tick and the
	// current system that is running.
	defer w.handleTickPanic()

	var span tracer.Span
	span, _ = tracer.StartSpanFromContext(ctx, "atlas.span.tick")
	defer func() {
		span.Finish()
	}()

	w.logger.Info().Uint64("tick", w.CurrentTick()).Msg("Tick started")

	// Store the timestamp for this tick
	w.timestamp.Store(timestamp)

	// Commands issued between ticks land before any system runs.
	w.worldQueue.ApplyAll(w.state, &w.logger)

	err = w.schedule.RunTick(
		w.state,
		func(r *system.Registered) engine.Context { return newWorldContextForSystem(w, r) },
		w.systemManager.RunSystem,
		&w.logger,
	)
	if err != nil {
		return err
	}

	w.tickCount.Add(1)

	telemetry.EmitTickStat(startTime, "full_tick")

	return nil
}

// Tick performs one tick immediately. It is exported for tests and for
// callers that drive the loop themselves via WithTickChannel.
func (w *World) Tick(ctx context.Context) error {
	return w.doTick(ctx, uint64(time.Now().Unix()))
}

// StartLoop starts running the world game loop. Each time a message arrives on the tickChannel, a world tick is
// attempted. After StartLoop is called, RegisterComponent, RegisterResource, and RegisterSystems may not be
// called. If StartLoop doesn't encounter any errors, it will block forever, ticking the game in the background.
func (w *World) StartLoop() error {
	// Game stage: Init -> Starting
	ok := w.worldStage.CompareAndSwap(worldstage.Init, worldstage.Starting)
	if !ok {
		return errors.New("game has already been started")
	}

	if err := w.loadGameState(); err != nil {
		return err
	}

	w.worldStage.Store(worldstage.Ready)

	// Warn when no components or systems are registered
	if len(w.componentManager.GetComponents()) == 0 {
		w.logger.Warn().Msg("No components registered")
	}
	if !w.systemManager.IsSystemsRegistered() {
		w.logger.Warn().Msg("No systems registered")
	}

	// Log world info
	ecslog.World(&w.logger, w, zerolog.InfoLevel)
	ecslog.Waves(&w.logger, w.schedule.WaveNames(), zerolog.InfoLevel)

	// Game stage: Ready -> Running
	w.worldStage.Store(worldstage.Running)

	// Start the game loop
	w.startGameLoop(context.Background(), w.tickChannel, w.tickDoneChannel)

	// handle shutdown via a signal
	w.handleShutdown()
	<-w.worldStage.NotifyOnStage(worldstage.ShutDown)
	return nil
}

// loadGameState seals registration: component metadata is loaded into the
// store, the schedule is built, and init systems run once.
func (w *World) loadGameState() error {
	if err := w.state.RegisterComponents(w.componentManager.GetComponents()); err != nil {
		return err
	}

	var err error
	w.schedule, err = schedule.Build(w.systemManager.GetRegisteredSystems(), w.workers)
	if err != nil {
		return eris.Wrap(err, "failed to build system schedule")
	}

	// Tick 0 is reserved as "before anything": a stamp of 0 can never
	// satisfy a Changed or Added filter.
	w.state.AdvanceTick()

	if err := w.systemManager.RunInitSystems(func(r *system.Registered) engine.Context {
		return newWorldContextForSystem(w, r)
	}); err != nil {
		return err
	}
	for _, r := range w.systemManager.GetInitSystems() {
		r.Queue().ApplyAll(w.state, &w.logger)
	}
	w.state.AdvanceTick()

	return nil
}

func (w *World) startGameLoop(ctx context.Context, tickStart <-chan time.Time, tickDone chan<- uint64) {
	w.logger.Info().Msg("Game loop started")
	go func() {
		var waitingChs []chan struct{}
	loop:
		for {
			select {
			case _, ok := <-tickStart:
				if !ok {
					panic("tickStart channel has been closed; tick rate is now unbounded.")
				}
				w.tickTheEngine(ctx, tickDone)
				closeAllChannels(waitingChs)
				waitingChs = waitingChs[:0]
			case <-w.worldStage.NotifyOnStage(worldstage.ShuttingDown):
				w.drainChannelsWaitingForNextTick()
				closeAllChannels(waitingChs)
				if w.worldQueue.Len() > 0 {
					// immediately tick if the queue is not empty so pending commands are applied before shutdown.
					w.tickTheEngine(ctx, tickDone)
				}
				if tickDone != nil {
					close(tickDone)
				}
				break loop
			case ch := <-w.addChannelWaitingForNextTick:
				waitingChs = append(waitingChs, ch)
			}
		}
		w.worldStage.Store(worldstage.ShutDown)
	}()
}

func (w *World) tickTheEngine(ctx context.Context, tickDone chan<- uint64) {
	currTick := w.CurrentTick()
	// this is the final point where errors bubble up and hit a panic. There are other places where this occurs
	// but this is the highest terminal point.
	// the panic may point you to here, (or the tick function) but the real stack trace is in the error message.
	err := w.doTick(ctx, uint64(time.Now().Unix()))
	if err != nil {
		bytes, errMarshal := json.Marshal(eris.ToJSON(err, true))
		if errMarshal != nil {
			panic(errMarshal)
		}
		panic(string(bytes))
	}
	if tickDone != nil {
		tickDone <- currTick
	}
}

func (w *World) IsGameRunning() bool {
	return w.worldStage.Current() == worldstage.Running
}

func (w *World) Shutdown() error {
	w.logger.Info().Msg("Shutting down game loop.")
	ok := w.worldStage.CompareAndSwap(worldstage.Running, worldstage.ShuttingDown)
	if !ok {
		select {
		case <-w.worldStage.NotifyOnStage(worldstage.ShuttingDown):
			// Some other goroutine has already started the shutdown process. Wait until the world is
			// actually shut down.
			<-w.worldStage.NotifyOnStage(worldstage.ShutDown)
			return nil
		default:
		}
		return errors.New("shutdown attempted before the world was started")
	}

	// Block until the world has stopped ticking
	<-w.worldStage.NotifyOnStage(worldstage.ShutDown)

	if err := w.telemetry.Shutdown(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to shut down telemetry.")
	}

	w.logger.Info().Msg("Successfully shut down game loop.")
	return nil
}

func (w *World) handleShutdown() {
	signalChannel := make(chan os.Signal, 1)
	go func() {
		signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
		for sig := range signalChannel {
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				err := w.Shutdown()
				if err != nil {
					w.logger.Err(err).Msgf("There was an error during shutdown.")
				}
				return
			}
		}
	}()
}

func (w *World) handleTickPanic() {
	if r := recover(); r != nil {
		w.logger.Error().Msgf(
			"Tick: %d, Current running system: %s",
			w.CurrentTick(),
			w.systemManager.GetCurrentSystem(),
		)
		panic(r)
	}
}

func closeAllChannels(chs []chan struct{}) {
	for _, ch := range chs {
		close(ch)
	}
}

// drainChannelsWaitingForNextTick continually closes any channels that are added to the
// addChannelWaitingForNextTick channel. This is used when the engine is shut down; it ensures
// any calls to WaitForNextTick that happen after a shutdown will not block.
func (w *World) drainChannelsWaitingForNextTick() {
	go func() {
		for ch := range w.addChannelWaitingForNextTick {
			close(ch)
		}
	}()
}

// WaitForNextTick blocks until at least one game tick has completed. It returns true if it successfully waited for a
// tick. False may be returned if the engine was shut down while waiting for the next tick to complete.
func (w *World) WaitForNextTick() (success bool) {
	startTick := w.CurrentTick()
	ch := make(chan struct{})
	w.addChannelWaitingForNextTick <- ch
	<-ch
	return w.CurrentTick() > startTick
}

// Search returns a search over the world's entities that can be used outside
// of any system.
func (w *World) Search(f filter.ComponentFilter, opts ...search.Option) (*search.Search, error) {
	return search.New(NewReadOnlyWorldContext(w), f, opts...)
}

// DebugState returns a snapshot of every entity and its component values.
// It is a read-side debugging convenience; the store itself is never
// serialized.
func (w *World) DebugState() ([]types.EntityStateElement, error) {
	var state []types.EntityStateElement
	s, err := w.Search(filter.All())
	if err != nil {
		return nil, err
	}
	var eachErr error
	err = s.Each(func(e types.Entity) bool {
		comps, err := w.state.GetComponentTypesForEntity(e)
		if err != nil {
			eachErr = err
			return false
		}
		values := make(map[string]any, len(comps))
		for _, c := range comps {
			value, err := w.state.GetComponentForEntity(c, e)
			if err != nil {
				eachErr = err
				return false
			}
			values[c.Name()] = value
		}
		state = append(state, types.EntityStateElement{Entity: e, Components: values})
		return true
	})
	if err != nil {
		return nil, err
	}
	if eachErr != nil {
		return nil, eachErr
	}
	return state, nil
}

func (w *World) State() *gamestate.State {
	return w.state
}

func (w *World) StoreReader() gamestate.Reader {
	return w.state
}

func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.componentManager.GetComponents()
}

func (w *World) GetRegisteredSystems() []string {
	return w.systemManager.GetSystemNames()
}

func (w *World) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.componentManager.GetComponentByName(name)
}

func (w *World) GetResourceByName(name string) (types.ComponentMetadata, error) {
	return w.componentManager.GetResourceByName(name)
}
