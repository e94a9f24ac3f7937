package system

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"pkg.world.dev/atlas/command"
	"pkg.world.dev/atlas/telemetry"
	"pkg.world.dev/atlas/types/engine"
)

// Manager owns the registered systems in registration order.
type Manager struct {
	// registeredSystems is a list of all the registered system names in the
	// order that they were registered. Maps in Go are unordered, so the order
	// lives here.
	registeredSystems []string

	// systems is a map of system names to their registration records.
	systems map[string]*Registered

	// currentSystem is the name of a system that is currently running.
	// Systems of the same wave run concurrently on the shared manager, so
	// the slot is atomic and each run only clears its own entry.
	currentSystem atomic.Pointer[string]

	// initSystems run exactly once, before the first tick, in registration
	// order and with exclusive access.
	initSystems    []*Registered
	initSystemsRan bool
}

// NewManager creates a new system manager.
func NewManager() *Manager {
	return &Manager{
		registeredSystems: make([]string, 0),
		systems:           make(map[string]*Registered),
	}
}

// Register registers a system with the manager. There can only be one system
// with a given name, which is derived from the function name.
func (m *Manager) Register(sys System, opts ...Option) error {
	name := NameOf(sys)
	if _, ok := m.systems[name]; ok {
		return eris.Errorf("system %q is already registered", name)
	}

	r := &Registered{
		name:  name,
		fn:    sys,
		queue: command.NewQueue(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.access == nil {
		// No declared footprint means the scheduler cannot prove anything
		// about this system. Run it alone.
		r.access = &Access{Exclusive: true}
	}
	if slices.Contains(r.before, name) || slices.Contains(r.after, name) {
		return eris.Errorf("system %q is ordered against itself", name)
	}

	m.registeredSystems = append(m.registeredSystems, name)
	m.systems[name] = r
	return nil
}

// RegisterInit registers a system that runs once before the first tick.
func (m *Manager) RegisterInit(sys System) {
	m.initSystems = append(m.initSystems, &Registered{
		name:   NameOf(sys),
		fn:     sys,
		access: &Access{Exclusive: true},
		queue:  command.NewQueue(),
	})
}

// RunSystem executes a single registered system with telemetry and the
// system name injected into the context logger.
func (m *Manager) RunSystem(r *Registered, wCtx engine.Context) error {
	sysName := r.name
	m.currentSystem.Store(&sysName)
	// Only clear our own entry. A sibling system of the same wave may have
	// replaced it, and its attribution must survive until it finishes.
	defer m.currentSystem.CompareAndSwap(&sysName, nil)

	wCtx.SetLogger(wCtx.Logger().With().Str("system", r.name).Logger())

	startTime := time.Now()
	if err := r.Run(wCtx); err != nil {
		return eris.Wrapf(err, "system %s generated an error", r.name)
	}
	telemetry.EmitTickStat(startTime, r.name)
	return nil
}

// RunInitSystems runs the registered init systems in order. They can only be
// run once per manager.
func (m *Manager) RunInitSystems(ctxFor func(*Registered) engine.Context) error {
	if m.initSystemsRan {
		return eris.New("init systems already ran")
	}
	m.initSystemsRan = true

	for _, r := range m.initSystems {
		wCtx := ctxFor(r)
		if err := m.RunSystem(r, wCtx); err != nil {
			return err
		}
	}
	return nil
}

// GetInitSystems returns the registered init systems in registration order.
func (m *Manager) GetInitSystems() []*Registered {
	return m.initSystems
}

// Get returns the registration record for a system name.
func (m *Manager) Get(name string) (*Registered, bool) {
	r, ok := m.systems[name]
	return r, ok
}

// GetRegisteredSystems returns all registered systems in registration order.
func (m *Manager) GetRegisteredSystems() []*Registered {
	out := make([]*Registered, 0, len(m.registeredSystems))
	for _, name := range m.registeredSystems {
		out = append(out, m.systems[name])
	}
	return out
}

func (m *Manager) IsSystemsRegistered() bool {
	return len(m.registeredSystems) > 0
}

func (m *Manager) GetSystemNames() []string {
	return m.registeredSystems
}

// GetCurrentSystem returns the name of the running system, for panic and
// error attribution.
func (m *Manager) GetCurrentSystem() string {
	name := m.currentSystem.Load()
	if name == nil {
		return "no_system"
	}
	return *name
}
