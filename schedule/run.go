package schedule

import (
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/system"
	"pkg.world.dev/atlas/telemetry"
	"pkg.world.dev/atlas/types/engine"
)

// RunTick executes every wave once against the given state. ctxFor builds
// the per-system context a system runs with.
//
// Within a wave systems run concurrently, capped at the schedule's worker
// count. After a wave completes, its command queues are drained into the
// state in wave order, each system's last-run tick is updated, and the
// global tick advances. That sync point is the only place structural
// changes happen, so systems never observe a world mutating under them.
func (s *Schedule) RunTick(
	state *gamestate.State,
	ctxFor func(*system.Registered) engine.Context,
	runner func(*system.Registered, engine.Context) error,
	logger *zerolog.Logger,
) error {
	allStart := time.Now()

	for _, wave := range s.waves {
		tickAtRun := state.CurrentTick()

		if err := s.runWave(wave, ctxFor, runner, logger); err != nil {
			return err
		}

		// Sync point: structural commands land in wave order, so two
		// systems of the same wave never interleave their effects.
		for _, r := range wave {
			wCtx := ctxFor(r)
			applied, skipped := r.Queue().ApplyAll(state, wCtx.Logger())
			if applied > 0 || skipped > 0 {
				logger.Debug().
					Str("system", r.Name()).
					Int("applied", applied).
					Int("skipped", skipped).
					Msg("drained command queue")
			}
			r.SetLastRunTick(tickAtRun)
		}
		state.AdvanceTick()
	}

	telemetry.EmitTickStat(allStart, "all_systems")
	return nil
}

func (s *Schedule) runWave(
	wave []*system.Registered,
	ctxFor func(*system.Registered) engine.Context,
	runner func(*system.Registered, engine.Context) error,
	logger *zerolog.Logger,
) error {
	telemetry.EmitWaveStat(len(wave))

	if len(wave) == 1 {
		return s.runOne(wave[0], ctxFor, runner, logger)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	// sem caps concurrency at the configured worker count.
	sem := make(chan struct{}, s.workers)

	for _, r := range wave {
		r := r
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.runOne(r, ctxFor, runner, logger); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// runOne executes a single system, converting a panic into an error so one
// bad system cannot take down the whole process.
func (s *Schedule) runOne(
	r *system.Registered,
	ctxFor func(*system.Registered) engine.Context,
	runner func(*system.Registered, engine.Context) error,
	logger *zerolog.Logger,
) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Str("system", r.Name()).
				Bytes("stack", debug.Stack()).
				Msgf("system panicked: %v", rec)
			err = eris.Errorf("system %s panicked: %v", r.Name(), rec)
		}
	}()
	return runner(r, ctxFor(r))
}
