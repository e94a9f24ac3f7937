package system

import (
	"path/filepath"
	"reflect"
	"runtime"

	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/types"
	"pkg.world.dev/atlas/types/engine"
)

// System is the function signature all game logic must implement. The context
// carries everything a system may touch: the store, its command queue, its
// logger, and the tick counters used for change detection.
type System func(wCtx engine.Context) error

// Registered is a system after registration: the function plus the metadata
// the scheduler needs to place and run it.
type Registered struct {
	name   string
	fn     System
	access *Access

	// before and after are system names this system must be ordered against.
	before []string
	after  []string

	// lastRun is the tick at the end of this system's previous run. Changed
	// and Added filters compare stamps against the (lastRun, current] window.
	lastRun types.Tick

	// queue collects this system's deferred structural commands. It is
	// drained at the wave's sync point.
	queue *command.Queue
}

func (r *Registered) Name() string                { return r.name }
func (r *Registered) Access() *Access             { return r.access }
func (r *Registered) Before() []string            { return r.before }
func (r *Registered) After() []string             { return r.after }
func (r *Registered) Queue() *command.Queue       { return r.queue }
func (r *Registered) LastRunTick() types.Tick     { return r.lastRun }
func (r *Registered) SetLastRunTick(t types.Tick) { r.lastRun = t }

// IsExclusive reports whether this system requires a full barrier.
func (r *Registered) IsExclusive() bool { return r.access.Exclusive }

// Run executes the system function.
func (r *Registered) Run(wCtx engine.Context) error {
	return r.fn(wCtx)
}

// Option configures a system at registration time.
type Option func(*Registered)

// WithAccess declares the system's component and resource footprint. Systems
// registered without it are exclusive.
func WithAccess(access Access) Option {
	return func(r *Registered) {
		a := access
		r.access = &a
	}
}

// WithExclusive forces the system into its own wave with full world access.
// Exclusive systems may perform structural changes directly instead of
// through the command queue.
func WithExclusive() Option {
	return func(r *Registered) {
		r.access = &Access{Exclusive: true}
	}
}

// WithBefore orders this system before the given systems in every schedule
// that contains both.
func WithBefore(systems ...System) Option {
	return func(r *Registered) {
		for _, s := range systems {
			r.before = append(r.before, NameOf(s))
		}
	}
}

// WithAfter orders this system after the given systems.
func WithAfter(systems ...System) Option {
	return func(r *Registered) {
		for _, s := range systems {
			r.after = append(r.after, NameOf(s))
		}
	}
}

// NameOf derives a system's registered name from its function name.
func NameOf(s System) string {
	return filepath.Base(runtime.FuncForPC(reflect.ValueOf(s).Pointer()).Name())
}
