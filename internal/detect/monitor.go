package detect

import (
	"time"

	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/machine"
	"github.com/formgrid/interact/internal/object"
)

// DefaultCooldown suppresses repeat flags of the same anomaly kind for
// the same object.
const DefaultCooldown = time.Second

// Monitor owns the per-object sample histories and runs the position
// detectors over them, publishing whatever they flag. It never blocks
// or alters a gesture.
type Monitor struct {
	bus *event.Bus
	log machine.Logger

	jump  *JumpDetector
	sling *SlingshotDetector

	histories map[object.ID]*History
	size      int

	cooldown time.Duration
	lastFlag map[object.ID]map[string]time.Time
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithHistorySize bounds each object's sample ring.
func WithHistorySize(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.size = n
		}
	}
}

// WithCooldown sets the per-kind repeat suppression window.
func WithCooldown(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.cooldown = d
		}
	}
}

// WithJumpConfig overrides the sudden-position-change thresholds.
func WithJumpConfig(cfg JumpConfig) MonitorOption {
	return func(m *Monitor) { m.jump = NewJumpDetector(cfg) }
}

// WithSlingshotConfig overrides the runaway-motion thresholds.
func WithSlingshotConfig(cfg SlingshotConfig) MonitorOption {
	return func(m *Monitor) { m.sling = NewSlingshotDetector(cfg) }
}

// Retune replaces the detector thresholds in place. Sample histories
// and overshoot targets survive; a config reload does not blind the
// detectors to motion already under way.
func (m *Monitor) Retune(jump JumpConfig, sling SlingshotConfig) {
	m.jump = NewJumpDetector(jump)

	next := NewSlingshotDetector(sling)
	next.targets = m.sling.targets
	next.minDist = m.sling.minDist
	m.sling = next
}

// NewMonitor builds a monitor publishing to bus. A nil log discards
// diagnostics.
func NewMonitor(bus *event.Bus, log machine.Logger, opts ...MonitorOption) *Monitor {
	if log == nil {
		log = machine.NopLogger{}
	}
	m := &Monitor{
		bus:       bus,
		log:       log,
		jump:      NewJumpDetector(JumpConfig{}),
		sling:     NewSlingshotDetector(SlingshotConfig{}),
		histories: make(map[object.ID]*History),
		size:      DefaultHistorySize,
		cooldown:  DefaultCooldown,
		lastFlag:  make(map[object.ID]map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record appends a position sample for the object and runs the
// detectors over its updated history. The engine calls this on its
// sampling tick for every tracked object.
func (m *Monitor) Record(obj *object.TrackedObject, now time.Time) {
	h := m.histories[obj.ID]
	if h == nil {
		h = NewHistory(m.size)
		m.histories[obj.ID] = h
	}

	pos := obj.Bounds.Origin()
	velocity := 0.0
	if h.Len() > 0 {
		last := h.Last()
		if dt := now.Sub(last.Timestamp).Seconds(); dt > 0 {
			velocity = pos.DistanceTo(last.Position) / dt
		}
	}
	source := SourceExternal
	switch obj.State.Kind {
	case object.StateMoving, object.StateResizing, object.StateDragging:
		source = SourceGesture
	}
	h.Push(Sample{Position: pos, Timestamp: now, Velocity: velocity, State: obj.State.Kind, Source: source})

	for _, a := range m.jump.Check(h) {
		m.flag(obj.ID, a, now)
	}
	for _, a := range m.sling.Check(obj.ID, h) {
		m.flag(obj.ID, a, now)
	}
}

// flag logs and publishes one anomaly, suppressing repeats of the same
// kind inside the cooldown window.
func (m *Monitor) flag(id object.ID, a Anomaly, now time.Time) {
	kinds := m.lastFlag[id]
	if kinds == nil {
		kinds = make(map[string]time.Time)
		m.lastFlag[id] = kinds
	}
	if last, ok := kinds[a.Kind]; ok && now.Sub(last) < m.cooldown {
		return
	}
	kinds[a.Kind] = now

	m.log.Warn("anomaly %s on %s: %s", a.Kind, id, a.Detail)
	m.bus.Publish(event.NewChange(event.TopicAnomalyFlagged, id, event.AnomalyPayload{
		Kind:   a.Kind,
		Detail: a.Detail,
	}))
}

// SetTarget declares an expected landing point for overshoot tracking.
func (m *Monitor) SetTarget(id object.ID, p geometry.Point) {
	m.sling.SetTarget(id, p)
}

// ClearTarget stops overshoot tracking for the object.
func (m *Monitor) ClearTarget(id object.ID) {
	m.sling.ClearTarget(id)
}

// History returns the object's sample ring, or nil.
func (m *Monitor) History(id object.ID) *History {
	return m.histories[id]
}

// Forget purges all tracking for a destroyed object.
func (m *Monitor) Forget(id object.ID) {
	delete(m.histories, id)
	delete(m.lastFlag, id)
	m.sling.Forget(id)
}
