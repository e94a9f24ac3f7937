package worldstage

import (
	"sync"
	"sync/atomic"
)

type Stage string

const (
	Init         Stage = "Init"         // The default stage of world
	Starting     Stage = "Starting"     // World is moved to this stage after StartLoop() is called
	Ready        Stage = "Ready"        // World is moved to this stage when it's ready to start ticking
	Running      Stage = "Running"      // World is moved to this stage when Tick() is first called
	ShuttingDown Stage = "ShuttingDown" // World is moved to this stage when it received a shutdown signal
	ShutDown     Stage = "ShutDown"     // World is moved to this stage when it has successfully shutdown
)

type Manager struct {
	current *atomic.Value

	// mu guards notifyChs. Each channel is closed the first time its stage
	// becomes current.
	mu        sync.Mutex
	notifyChs map[Stage]chan struct{}
}

func NewManager() *Manager {
	m := &Manager{
		current:   &atomic.Value{},
		notifyChs: make(map[Stage]chan struct{}),
	}
	m.Store(Init)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	swapped = m.current.CompareAndSwap(oldStage, newStage)
	if swapped {
		m.signal(newStage)
	}
	return swapped
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
	m.signal(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	oldStage = m.current.Swap(newStage).(Stage)
	m.signal(newStage)
	return oldStage
}

// NotifyOnStage returns a channel that is closed once the given stage is (or
// already was) reached. Stages are not required to be visited in order, so a
// channel for a stage the world skips may never be closed.
func (m *Manager) NotifyOnStage(stage Stage) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.notifyChs[stage]
	if !ok {
		ch = make(chan struct{})
		m.notifyChs[stage] = ch
		if m.Current() == stage {
			close(ch)
		}
	}
	return ch
}

func (m *Manager) signal(stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.notifyChs[stage]
	if !ok {
		ch = make(chan struct{})
		m.notifyChs[stage] = ch
	}
	select {
	case <-ch:
		// already closed
	default:
		close(ch)
	}
}
