// Package detect implements the anomaly detectors: passive observers
// over the per-object position stream that flag jumps, oscillations,
// rubber-banding, and stuck interaction states. Detectors are advisory;
// only the stuck detector ever intervenes, and only past its hard
// ceiling.
package detect

import (
	"time"

	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// DefaultHistorySize bounds each object's sample ring.
const DefaultHistorySize = 32

// Sample is one observed position for one object. Samples are immutable
// once recorded.
type Sample struct {
	Position  geometry.Point
	Timestamp time.Time

	// Velocity is px/s relative to the previous sample, zero for the
	// first.
	Velocity float64

	// State is the object's interaction state at sampling time.
	State object.StateKind

	// Source names the writer believed responsible for the position:
	// SourceGesture when a state machine held the object, SourceExternal
	// otherwise. An external jump on an idle object is the strongest
	// competing-writer signal the detectors have.
	Source string
}

// Sample sources.
const (
	SourceGesture  = "gesture"
	SourceExternal = "external"
)

// History is a bounded ring of samples for one object, oldest first.
type History struct {
	samples []Sample
	head    int
	count   int
}

// NewHistory creates a ring holding up to size samples. A non-positive
// size gets the default.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{samples: make([]Sample, size)}
}

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(s Sample) {
	if h.count < len(h.samples) {
		h.samples[(h.head+h.count)%len(h.samples)] = s
		h.count++
		return
	}
	h.samples[h.head] = s
	h.head = (h.head + 1) % len(h.samples)
}

// Len returns the number of stored samples.
func (h *History) Len() int { return h.count }

// At returns the i-th stored sample, oldest first.
func (h *History) At(i int) Sample {
	return h.samples[(h.head+i)%len(h.samples)]
}

// Last returns the most recent sample. Callers must check Len first.
func (h *History) Last() Sample {
	return h.At(h.count - 1)
}

// Tail returns up to n most recent samples, oldest first.
func (h *History) Tail(n int) []Sample {
	if n > h.count {
		n = h.count
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = h.At(h.count - n + i)
	}
	return out
}

// Reset discards all samples.
func (h *History) Reset() {
	h.head, h.count = 0, 0
}
