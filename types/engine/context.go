// Package engine declares the context handed to systems and searches. It
// lives under types/ so that the storage, search, and scheduling packages can
// all depend on it without depending on the world facade.
package engine

import (
	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/types"
)

// Context is the view of the world a system (or a search built inside one)
// operates through. The scheduler builds one context per system per run; the
// tick pair it carries is what change-detection filters compare against.
type Context interface {
	// Logger returns the logger for this execution context. Inside a system
	// it is pre-tagged with the system's name.
	Logger() *zerolog.Logger
	// SetLogger injects a new logger configuration into a context that is
	// already created.
	SetLogger(logger zerolog.Logger)

	// CurrentTick returns the tick active during this run.
	CurrentTick() types.Tick
	// LastRunTick returns the tick this context's system last ran at. For
	// contexts outside of any system it is zero, so "changed" filters see
	// every change.
	LastRunTick() types.Tick

	GetComponentByName(name string) (types.ComponentMetadata, error)
	GetResourceByName(name string) (types.ComponentMetadata, error)

	// Commands returns the deferred command queue of this execution
	// context. Commands are applied at the next sync point.
	Commands() *command.Queue

	// IsExclusive reports whether this context belongs to an exclusive
	// system, which runs alone and may mutate the store directly.
	IsExclusive() bool

	// For internal use.

	// StoreReader returns the read-only view of the store.
	StoreReader() gamestate.Reader
	// StoreManager returns the mutable store. Structural mutations through
	// it are only legal from exclusive contexts or outside of a running
	// schedule; value writes are legal wherever the system's access set
	// declares them.
	StoreManager() *gamestate.State
}
