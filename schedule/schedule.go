// Package schedule turns the registered systems into waves of systems that
// are provably safe to run concurrently, then executes those waves.
//
// A wave is a set of systems whose declared access footprints are pairwise
// conflict-free. The partition is computed once when the schedule is built;
// running a tick is then just dispatching each wave to the worker pool and
// draining command queues at the sync point between waves.
package schedule

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/system"
)

var (
	ErrCyclicOrdering = eris.New("system ordering constraints form a cycle")
	ErrUnknownSystem  = eris.New("ordering constraint references an unregistered system")
)

// Schedule is an immutable execution plan over a set of registered systems.
type Schedule struct {
	waves [][]*system.Registered

	// workers caps how many systems of a wave run concurrently.
	workers int
}

// Build computes the execution plan for the given systems. Systems are first
// ordered to satisfy every before/after constraint, then greedily packed into
// waves: a system joins the earliest wave that respects its ordering
// predecessors and contains no conflicting system. Exclusive systems get a
// wave of their own and act as a barrier for everything registered after
// them.
func Build(systems []*system.Registered, workers int) (*Schedule, error) {
	if workers < 1 {
		workers = 1
	}

	ordered, preds, err := orderSystems(systems)
	if err != nil {
		return nil, err
	}

	var waves [][]*system.Registered
	waveOf := make(map[string]int, len(ordered))

	// Index of the first wave new systems may be placed in. Bumped past
	// every exclusive wave.
	floor := 0

	for _, r := range ordered {
		earliest := floor
		for _, p := range preds[r.Name()] {
			if w, ok := waveOf[p]; ok && w+1 > earliest {
				earliest = w + 1
			}
		}

		if r.IsExclusive() {
			// Exclusive systems run alone, after everything already placed.
			waves = append(waves, []*system.Registered{r})
			waveOf[r.Name()] = len(waves) - 1
			floor = len(waves)
			continue
		}

		placed := false
		for w := earliest; w < len(waves); w++ {
			if fitsWave(r, waves[w]) {
				waves[w] = append(waves[w], r)
				waveOf[r.Name()] = w
				placed = true
				break
			}
		}
		if !placed {
			waves = append(waves, []*system.Registered{r})
			waveOf[r.Name()] = len(waves) - 1
		}
	}

	return &Schedule{waves: waves, workers: workers}, nil
}

// fitsWave reports whether r conflicts with no member of the wave.
func fitsWave(r *system.Registered, wave []*system.Registered) bool {
	for _, other := range wave {
		if r.Access().ConflictsWith(other.Access()) {
			return false
		}
	}
	return true
}

// Waves exposes the computed partition, mostly for logging and tests.
func (s *Schedule) Waves() [][]*system.Registered {
	return s.waves
}

// WaveNames returns the partition as system names, wave by wave.
func (s *Schedule) WaveNames() [][]string {
	out := make([][]string, len(s.waves))
	for i, wave := range s.waves {
		names := make([]string, len(wave))
		for j, r := range wave {
			names[j] = r.Name()
		}
		out[i] = names
	}
	return out
}

// orderSystems produces a total order over the systems that satisfies all
// before/after constraints, breaking ties by registration order so the
// result is deterministic. It also returns the predecessor lists the wave
// packer needs. Registration order itself is not an ordering constraint;
// only explicit before/after edges are.
func orderSystems(
	systems []*system.Registered,
) ([]*system.Registered, map[string][]string, error) {
	byName := make(map[string]*system.Registered, len(systems))
	regIndex := make(map[string]int, len(systems))
	for i, r := range systems {
		byName[r.Name()] = r
		regIndex[r.Name()] = i
	}

	// preds[x] holds every system that must run before x.
	preds := make(map[string][]string, len(systems))
	succs := make(map[string][]string, len(systems))
	indegree := make(map[string]int, len(systems))

	addEdge := func(from, to string) error {
		if _, ok := byName[from]; !ok {
			return eris.Wrapf(ErrUnknownSystem, "%q", from)
		}
		if _, ok := byName[to]; !ok {
			return eris.Wrapf(ErrUnknownSystem, "%q", to)
		}
		preds[to] = append(preds[to], from)
		succs[from] = append(succs[from], to)
		indegree[to]++
		return nil
	}

	for _, r := range systems {
		for _, target := range r.Before() {
			if err := addEdge(r.Name(), target); err != nil {
				return nil, nil, err
			}
		}
		for _, target := range r.After() {
			if err := addEdge(target, r.Name()); err != nil {
				return nil, nil, err
			}
		}
	}

	// Kahn's algorithm. The ready set is kept sorted by registration index
	// so ties resolve to registration order.
	ready := make([]string, 0, len(systems))
	for _, r := range systems {
		if indegree[r.Name()] == 0 {
			ready = append(ready, r.Name())
		}
	}

	ordered := make([]*system.Registered, 0, len(systems))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return regIndex[ready[i]] < regIndex[ready[j]]
		})
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])

		for _, next := range succs[name] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(ordered) != len(systems) {
		stuck := make([]string, 0)
		for _, r := range systems {
			if indegree[r.Name()] > 0 {
				stuck = append(stuck, r.Name())
			}
		}
		sort.Strings(stuck)
		return nil, nil, eris.Wrapf(ErrCyclicOrdering, "involving %s", strings.Join(stuck, ", "))
	}

	return ordered, preds, nil
}
