package command

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/types"
)

// Queue buffers deferred commands for one execution context. Pushing is safe
// from any system; a queue is only ever applied at a sync point, by one
// goroutine, in FIFO order.
type Queue struct {
	mu      sync.Mutex
	pending []command
}

func NewQueue() *Queue {
	return &Queue{}
}

// Spawn queues the creation of a new entity carrying the given component
// values. A Pair with a nil Value spawns the component's default value.
func (q *Queue) Spawn(pairs ...Pair) {
	q.push(command{kind: kindSpawn, pairs: pairs})
}

// Despawn queues the destruction of the given entity.
func (q *Queue) Despawn(e types.Entity) {
	q.push(command{kind: kindDespawn, entity: e})
}

// Insert queues adding a component value to the given entity. A nil value
// inserts the component's default value.
func (q *Queue) Insert(e types.Entity, cType types.ComponentMetadata, value any) {
	q.push(command{kind: kindInsert, entity: e, comp: cType, value: value})
}

// Remove queues removing a component from the given entity.
func (q *Queue) Remove(e types.Entity, cType types.ComponentMetadata) {
	q.push(command{kind: kindRemove, entity: e, comp: cType})
}

// InsertResource queues inserting or overwriting the world's value for the
// given resource type.
func (q *Queue) InsertResource(rType types.ComponentMetadata, value any) {
	q.push(command{kind: kindInsertResource, comp: rType, value: value})
}

// RemoveResource queues deleting the world's value for the given resource
// type.
func (q *Queue) RemoveResource(rType types.ComponentMetadata) {
	q.push(command{kind: kindRemoveResource, comp: rType})
}

// Custom queues an arbitrary closure to run against the store at the next
// sync point. Use it for multi-step structural edits that need to happen
// atomically with respect to other commands.
func (q *Queue) Custom(fn func(*gamestate.State) error) {
	q.push(command{kind: kindCustom, fn: fn})
}

func (q *Queue) push(c command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// Len returns the number of buffered commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ApplyAll drains the queue in FIFO order against the store and clears it.
// A command that references an entity despawned by an earlier command (or an
// earlier tick) is an expected race; it is logged and skipped, never fatal.
// Every remaining command is still applied after a failure. The returned
// counts report how many commands were applied and how many were skipped.
func (q *Queue) ApplyAll(state *gamestate.State, logger *zerolog.Logger) (applied, skipped int) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for i := range pending {
		cmd := &pending[i]
		err := cmd.apply(state)
		if err == nil {
			applied++
			continue
		}
		skipped++
		if eris.Is(eris.Cause(err), gamestate.ErrEntityDoesNotExist) {
			logger.Debug().
				Str("command", cmd.kind.String()).
				Str("entity", cmd.entity.String()).
				Msg("dropped command for despawned entity")
			continue
		}
		logger.Warn().
			Err(err).
			Str("command", cmd.kind.String()).
			Msg("failed to apply command")
	}
	return applied, skipped
}
