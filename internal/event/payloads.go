package event

import (
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// RejectedPayload describes a declined gesture. This is a normal negative
// result, not an error: no state transition occurred.
type RejectedPayload struct {
	// Gesture names the gesture that was declined (move, resize, drag).
	Gesture string

	// Reason is a stable machine-readable cause, e.g. "wrong_mode",
	// "capability_disabled", "lock_unavailable".
	Reason string
}

// MovedPayload accompanies object.moved and move.live.
type MovedPayload struct {
	From geometry.Rect
	To   geometry.Rect

	// Clamped reports that the committed position differs from the raw
	// requested position after snapping or boundary clamping.
	Clamped bool
}

// CancelledPayload accompanies move.cancelled, resize.cancelled and
// drag.cancelled.
type CancelledPayload struct {
	// Reason is the cancellation cause: "escape", "blur", "preempted",
	// "timeout", "destroyed".
	Reason string

	// Restored is the bounds the object was returned to.
	Restored geometry.Rect
}

// ResizedPayload accompanies object.resized and resize.live.
type ResizedPayload struct {
	Handle string
	From   geometry.Rect
	To     geometry.Rect

	// Constrained reports that the result differs from the raw requested
	// dimensions after the constraint pipeline ran.
	Constrained bool
}

// HoverPayload accompanies drag.hover.changed. Emitted only when the
// hovered target actually changes, never per move sample.
type HoverPayload struct {
	Previous object.ID
	Current  object.ID
}

// DropPayload accompanies drag.dropped and drag.drop.rejected.
type DropPayload struct {
	Target object.ID
	Reason string
}

// ReturnedPayload accompanies drag.returned.
type ReturnedPayload struct {
	Source object.ID
	Origin geometry.Rect

	// Reason is empty for a plain failed drop; cancellations carry the
	// cancellation cause.
	Reason string
}

// AnomalyPayload accompanies anomaly.flagged.
type AnomalyPayload struct {
	// Kind is the anomaly name, e.g. "sudden_jump", "rubber_band".
	Kind string

	// Detail is a human-readable description with the triggering values.
	Detail string
}

// RecoveryPayload accompanies interaction.recovered, the forced-cleanup
// backstop for gestures that failed to reach a terminal state.
type RecoveryPayload struct {
	// StuckIn is the interaction state the object was wedged in.
	StuckIn string

	// HeldFor is how long the object sat in that state, in seconds.
	HeldFor float64
}

// ModePayload accompanies mode.changed.
type ModePayload struct {
	From string
	To   string
}

// AuthPayload accompanies auth.completed. UserData holds only fields
// that passed the allow-list filter; token fields never appear here.
type AuthPayload struct {
	Provider string
	Success  bool
	UserData []byte
}
