package tracking

import (
	"log"
	"sync"
	"time"

	"fuel-dispatch-server/utils"
)

// Registry maps workers to their active delivery monitor. A worker holds at
// most one active request at a time, so the key is the worker ID.
type Registry struct {
	mu       sync.RWMutex
	monitors map[uint]*Monitor
}

func NewRegistry() *Registry {
	return &Registry{monitors: make(map[uint]*Monitor)}
}

// Track starts monitoring a freshly assigned request. An existing monitor
// for the same worker is stopped first.
func (r *Registry) Track(m *Monitor) {
	r.mu.Lock()
	if prev, ok := r.monitors[m.workerID]; ok {
		prev.Stop()
		log.Printf("⚠️ [TRACKING] Replacing stale monitor for worker %d", m.workerID)
	}
	r.monitors[m.workerID] = m
	r.mu.Unlock()
	m.Start()
}

// Untrack stops and removes the worker's monitor, if any.
func (r *Registry) Untrack(workerID uint) {
	r.mu.Lock()
	m, ok := r.monitors[workerID]
	if ok {
		delete(r.monitors, workerID)
	}
	r.mu.Unlock()
	if ok {
		m.Stop()
	}
}

// ReportPosition forwards a worker position ping to their monitor. A ping
// from a worker with no active delivery is ignored.
func (r *Registry) ReportPosition(workerID uint, pos utils.Location, at time.Time) {
	r.mu.RLock()
	m, ok := r.monitors[workerID]
	r.mu.RUnlock()
	if ok {
		m.Report(Update{Pos: pos, At: at})
	}
}

// ActiveCount returns how many deliveries are being monitored.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.monitors)
}

// StopAll halts every monitor, used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.monitors {
		m.Stop()
		delete(r.monitors, id)
	}
}
