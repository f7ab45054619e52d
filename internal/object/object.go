// Package object defines the tracked-object data model: the containers
// participating in interaction, their capabilities, and the tagged
// interaction-state union maintained by the gesture state machines.
package object

import (
	"time"

	"github.com/formgrid/interact/internal/geometry"
)

// ID is a stable object identifier, unique within the running session.
type ID string

// Capability is a bitmask of interactions an object supports.
type Capability uint8

const (
	// Selectable allows the object to be selected by click.
	Selectable Capability = 1 << iota
	// Movable allows the object to be moved by drag.
	Movable
	// Resizable allows the object to be resized via handles.
	Resizable
	// Nestable allows the object to act as a drop-zone parent.
	Nestable
)

// Has returns true if all capabilities in want are present.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// String returns a compact listing of the set capabilities.
func (c Capability) String() string {
	names := ""
	add := func(s string) {
		if names != "" {
			names += "|"
		}
		names += s
	}
	if c.Has(Selectable) {
		add("selectable")
	}
	if c.Has(Movable) {
		add("movable")
	}
	if c.Has(Resizable) {
		add("resizable")
	}
	if c.Has(Nestable) {
		add("nestable")
	}
	if names == "" {
		return "none"
	}
	return names
}

// StateKind identifies which arm of the interaction-state union is active.
type StateKind uint8

const (
	// StateIdle means no gesture is in progress.
	StateIdle StateKind = iota
	// StateSelecting means a pointer is down but no gesture has been
	// classified yet (potential selection).
	StateSelecting
	// StateMoving means a move gesture is in progress.
	StateMoving
	// StateResizing means a resize gesture is in progress.
	StateResizing
	// StateDragging means a drag-and-drop gesture is in progress.
	StateDragging
)

// String returns the state kind name.
func (k StateKind) String() string {
	switch k {
	case StateSelecting:
		return "selecting"
	case StateMoving:
		return "moving"
	case StateResizing:
		return "resizing"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// MoveState holds the live bookkeeping for an in-progress move gesture.
type MoveState struct {
	// PointerStart is where the pointer went down.
	PointerStart geometry.Point

	// ElementStart is the object's top-left corner at gesture start.
	ElementStart geometry.Point

	// HandleOffset is the pointer's offset from the element origin,
	// preserved so the element does not jump under the cursor.
	HandleOffset geometry.Delta

	// CurrentDelta is the latest constrained pointer displacement.
	CurrentDelta geometry.Delta

	// ThresholdCrossed records that the gesture passed the movement
	// threshold. Once set it never clears for the rest of the gesture.
	ThresholdCrossed bool
}

// ResizeState holds the live bookkeeping for an in-progress resize gesture.
type ResizeState struct {
	// Handle is the compass handle the gesture grabbed.
	Handle Handle

	// StartBounds is the object's bounds at gesture start, restored on
	// cancellation.
	StartBounds geometry.Rect

	// Constraints are the active sizing constraints.
	Constraints Constraints

	// Live is the current preview bounds. It is never written back to
	// the object until the gesture completes.
	Live geometry.Rect

	// Constrained records that the last move sample was altered by the
	// constraint pipeline (reported as metadata, not an error).
	Constrained bool
}

// DragState holds the live bookkeeping for an in-progress drag-and-drop.
type DragState struct {
	// SourceZone is the container the item was dragged out of.
	SourceZone ID

	// Origin is the item's bounds at gesture start.
	Origin geometry.Rect

	// Hovered is the drop zone currently under the pointer, or empty.
	Hovered ID

	// ValidTargets is the set of drop zones this item may land in.
	ValidTargets []ID

	// LockID identifies the arbitration lock held for this drag.
	LockID string
}

// InteractionState is the tagged union describing what, if anything, is
// happening to an object. Exactly one of Move/Resize/Drag is non-nil,
// matching Kind.
type InteractionState struct {
	Kind   StateKind
	Move   *MoveState
	Resize *ResizeState
	Drag   *DragState

	// Since is when the current kind was entered; the stuck detector
	// keys off this.
	Since time.Time
}

// Idle returns true if no gesture is in progress.
func (s InteractionState) Idle() bool {
	return s.Kind == StateIdle
}

// TrackedObject is a container participating in interaction.
type TrackedObject struct {
	// ID is stable for the object's lifetime.
	ID ID

	// Bounds is the committed position and size. It is mutated only by
	// the state machine holding the object's lock, or by forced
	// recovery after the lock has been cleared.
	Bounds geometry.Rect

	// Capabilities controls which gestures are legal.
	Capabilities Capability

	// Z orders overlapping objects; higher is closer to the viewer.
	Z int

	// State is the current interaction state.
	State InteractionState
}

// SetState replaces the interaction state, stamping Since.
func (o *TrackedObject) SetState(kind StateKind, now time.Time) {
	o.State = InteractionState{Kind: kind, Since: now}
}

// CanMove returns true if the object may be moved.
func (o *TrackedObject) CanMove() bool {
	return o.Capabilities.Has(Movable)
}

// CanResize returns true if the object may be resized.
func (o *TrackedObject) CanResize() bool {
	return o.Capabilities.Has(Resizable)
}

// CanSelect returns true if the object may be selected.
func (o *TrackedObject) CanSelect() bool {
	return o.Capabilities.Has(Selectable)
}
