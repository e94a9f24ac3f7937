package atlas

import (
	"time"
)

// WorldOption represents an option that can be used to augment how the World will be run.
type WorldOption struct {
	worldOption func(*World)
}

// WithTickChannel sets the channel that will be used to decide when world.Tick is executed. If unset, a loop interval
// matching the configured tick rate will be set. To set some other time, use: WithTickChannel(time.Tick(<duration>)).
// Tests can pass in a channel controlled by the test for fine-grained control over when ticks are executed.
func WithTickChannel(ch <-chan time.Time) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.tickChannel = ch
		},
	}
}

// WithTickDoneChannel sets a channel that will be notified each time a tick completes. The completed tick will be
// pushed to the channel. This option is useful in tests when assertions need to be performed at the end of a tick.
func WithTickDoneChannel(ch chan<- uint64) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.tickDoneChannel = ch
		},
	}
}

// WithWorkers caps how many systems of a wave run concurrently, overriding
// the ATLAS_WORKERS environment variable.
func WithWorkers(workers int) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			if workers > 0 {
				world.workers = workers
			}
		},
	}
}
