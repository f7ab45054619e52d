package input

import (
	"time"

	"github.com/formgrid/interact/internal/geometry"
)

// ClickTracker detects multi-clicks by time and distance proximity.
type ClickTracker struct {
	// maxInterval is the longest gap between clicks in a sequence.
	maxInterval time.Duration

	// maxDistance is the furthest apart two clicks in a sequence may be.
	maxDistance float64

	lastPos  geometry.Point
	lastTime time.Time
	count    int
}

// NewClickTracker creates a tracker with the given proximity window.
func NewClickTracker(maxInterval time.Duration, maxDistance float64) *ClickTracker {
	return &ClickTracker{
		maxInterval: maxInterval,
		maxDistance: maxDistance,
	}
}

// RecordClick registers a click and returns the click count within the
// current sequence (1 = single, 2 = double, 3 = triple). Counts wrap
// back to 1 after a triple click.
func (t *ClickTracker) RecordClick(pos geometry.Point, at time.Time) int {
	inSequence := t.count > 0 &&
		at.Sub(t.lastTime) <= t.maxInterval &&
		pos.DistanceTo(t.lastPos) <= t.maxDistance

	if inSequence {
		t.count++
		if t.count > 3 {
			t.count = 1
		}
	} else {
		t.count = 1
	}

	t.lastPos = pos
	t.lastTime = at
	return t.count
}

// Reset clears the sequence.
func (t *ClickTracker) Reset() {
	t.count = 0
	t.lastPos = geometry.Point{}
	t.lastTime = time.Time{}
}
