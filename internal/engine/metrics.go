package engine

import "sync"

// Metrics collects interaction statistics.
type Metrics struct {
	mu sync.RWMutex

	gestures map[string]uint64

	locksGranted   uint64
	locksDenied    uint64
	locksPreempted uint64
	locksTimedOut  uint64

	dropsAccepted uint64
	dropsRejected uint64

	anomalies  uint64
	recoveries uint64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	// Gestures counts classified gestures by kind name.
	Gestures map[string]uint64

	LocksGranted   uint64
	LocksDenied    uint64
	LocksPreempted uint64
	LocksTimedOut  uint64

	DropsAccepted uint64
	DropsRejected uint64

	AnomaliesFlagged uint64
	ForcedRecoveries uint64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		gestures: make(map[string]uint64),
	}
}

// RecordGesture counts a classified gesture by its kind name.
func (m *Metrics) RecordGesture(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gestures[kind]++
}

// RecordLockGranted counts a granted lock.
func (m *Metrics) RecordLockGranted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locksGranted++
}

// RecordLockDenied counts a rejected lock request.
func (m *Metrics) RecordLockDenied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locksDenied++
}

// RecordLockPreempted counts a revoked-by-priority lock.
func (m *Metrics) RecordLockPreempted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locksPreempted++
}

// RecordLockTimeouts counts locks expired by the sweep.
func (m *Metrics) RecordLockTimeouts(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locksTimedOut += uint64(n)
}

// RecordDrop counts a resolved drop.
func (m *Metrics) RecordDrop(accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accepted {
		m.dropsAccepted++
	} else {
		m.dropsRejected++
	}
}

// RecordAnomaly counts a flagged anomaly.
func (m *Metrics) RecordAnomaly() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies++
}

// RecordRecoveries counts forced stuck-state recoveries.
func (m *Metrics) RecordRecoveries(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recoveries += uint64(n)
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gestures := make(map[string]uint64, len(m.gestures))
	for k, v := range m.gestures {
		gestures[k] = v
	}
	return MetricsSnapshot{
		Gestures:         gestures,
		LocksGranted:     m.locksGranted,
		LocksDenied:      m.locksDenied,
		LocksPreempted:   m.locksPreempted,
		LocksTimedOut:    m.locksTimedOut,
		DropsAccepted:    m.dropsAccepted,
		DropsRejected:    m.dropsRejected,
		AnomaliesFlagged: m.anomalies,
		ForcedRecoveries: m.recoveries,
	}
}

// Reset zeroes every counter.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gestures = make(map[string]uint64)
	m.locksGranted = 0
	m.locksDenied = 0
	m.locksPreempted = 0
	m.locksTimedOut = 0
	m.dropsAccepted = 0
	m.dropsRejected = 0
	m.anomalies = 0
	m.recoveries = 0
}
