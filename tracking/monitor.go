package tracking

import (
	"log"
	"sync"
	"time"

	"fuel-dispatch-server/utils"
)

// MonitorState is the lifecycle phase of one tracked assignment.
type MonitorState int

const (
	StateIdle MonitorState = iota
	StateTracking
	StateReassigning
)

func (s MonitorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateReassigning:
		return "reassigning"
	default:
		return "unknown"
	}
}

// SelectorFunc re-runs station selection for the monitored request at the
// worker's current position. It returns the chosen station ID, or ok=false
// when no station qualifies.
type SelectorFunc func(pos utils.Location) (stationID uint, ok bool, err error)

// ReassignFunc is invoked after the monitor switches the assignment to a
// new station. Trigger is "moved" or "elapsed" depending on which
// threshold fired. It runs on the monitor's goroutine; keep it quick.
type ReassignFunc func(requestID, oldStationID, newStationID uint, pos utils.Location, trigger string)

// Config holds the movement and elapsed-time thresholds that trigger a
// re-selection, and the cooldown between consecutive reassignments.
type Config struct {
	DistanceThresholdKm float64
	TimeThreshold       time.Duration
	ReassignCooldown    time.Duration
}

// Update is one worker position report fed into a monitor.
type Update struct {
	Pos utils.Location
	At  time.Time
}

// Monitor watches one worker's movement during an active fuel delivery and
// reassigns the source station when the worker has drifted far enough, or
// enough time has passed, that the original choice may no longer be the
// nearest viable one. Selection failures keep the current assignment.
type Monitor struct {
	requestID uint
	workerID  uint

	cfg      Config
	selector SelectorFunc
	onChange ReassignFunc

	mu             sync.Mutex
	state          MonitorState
	stationID      uint
	anchor         utils.Location
	anchorAt       time.Time
	lastReassignAt time.Time

	updates chan Update
	done    chan struct{}
	stopped sync.Once
}

// NewMonitor creates a monitor anchored at the worker's position when the
// request was assigned. The cooldown clock starts at the anchor time so an
// assignment is never second-guessed immediately.
func NewMonitor(requestID, workerID, stationID uint, anchor utils.Location, anchorAt time.Time, cfg Config, selector SelectorFunc, onChange ReassignFunc) *Monitor {
	return &Monitor{
		requestID:      requestID,
		workerID:       workerID,
		cfg:            cfg,
		selector:       selector,
		onChange:       onChange,
		state:          StateTracking,
		stationID:      stationID,
		anchor:         anchor,
		anchorAt:       anchorAt,
		lastReassignAt: anchorAt,
		updates:        make(chan Update, 16),
		done:           make(chan struct{}),
	}
}

// Start runs the monitor loop until Stop is called.
func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) loop() {
	for {
		select {
		case u := <-m.updates:
			m.handleUpdate(u)
		case <-m.done:
			return
		}
	}
}

// Report feeds a position update. Drops the update if the monitor's buffer
// is full or it has stopped; position pings are frequent and lossy.
func (m *Monitor) Report(u Update) {
	select {
	case m.updates <- u:
	case <-m.done:
	default:
	}
}

// Stop halts the loop. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopped.Do(func() {
		close(m.done)
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
	})
}

// StationID returns the currently assigned station.
func (m *Monitor) StationID() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stationID
}

// State returns the monitor's current phase.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// handleUpdate is the synchronous core of the monitor, also exercised
// directly by tests. It decides whether the new position warrants a
// re-selection and applies the outcome.
func (m *Monitor) handleUpdate(u Update) {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}

	movedKm := utils.DistanceKm(m.anchor, u.Pos)
	elapsed := u.At.Sub(m.anchorAt)
	trigger := ""
	if movedKm >= m.cfg.DistanceThresholdKm {
		trigger = "moved"
	} else if elapsed >= m.cfg.TimeThreshold {
		trigger = "elapsed"
	}
	triggered := trigger != ""
	cooled := u.At.Sub(m.lastReassignAt) >= m.cfg.ReassignCooldown

	if !triggered || !cooled {
		m.mu.Unlock()
		return
	}

	m.state = StateReassigning
	current := m.stationID
	m.mu.Unlock()

	newID, ok, err := m.selector(u.Pos)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return
	}
	m.state = StateTracking

	if err != nil || !ok {
		// keep serving from the current station until selection works
		// again. The anchor stays put so the next position update past
		// the cooldown retries without needing fresh drift.
		if err != nil {
			log.Printf("⚠️ [MONITOR] Re-selection failed for request %d: %v", m.requestID, err)
		}
		m.lastReassignAt = u.At
		return
	}

	m.anchor = u.Pos
	m.anchorAt = u.At
	m.lastReassignAt = u.At

	if newID == current {
		return
	}

	m.stationID = newID
	log.Printf("🔄 [MONITOR] Request %d reassigned station %d -> %d (moved %.2fkm, elapsed %s)",
		m.requestID, current, newID, movedKm, elapsed.Round(time.Second))
	if m.onChange != nil {
		m.onChange(m.requestID, current, newID, u.Pos, trigger)
	}
}
