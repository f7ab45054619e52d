// Package gesture implements the classifier that turns a raw
// pointer-down/move/up sequence on one object into a selection, move,
// or resize decision.
//
// Classification is ambiguous until either the pointer travels past the
// movement threshold (move) or comes back up without doing so
// (selection). A pointer-down inside a resize-handle hit-region decides
// immediately and takes precedence over move. Once the threshold is
// crossed the classification is irrevocable: the gesture stays a move
// even if the pointer returns to its origin.
package gesture

import (
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/input"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/session"
)

// DefaultThreshold is the cumulative pointer travel, in pixels, that
// separates a selection from a move.
const DefaultThreshold = 8.0

// Kind is the classification of a gesture.
type Kind uint8

const (
	// KindNone means no gesture: the pointer-down was rejected.
	KindNone Kind = iota
	// KindPending means the gesture is still ambiguous (potential
	// selection).
	KindPending
	// KindSelection means the pointer came up without crossing the
	// threshold.
	KindSelection
	// KindMove means the pointer crossed the threshold on a movable
	// object.
	KindMove
	// KindResize means the pointer went down inside a resize handle.
	KindResize
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindSelection:
		return "selection"
	case KindMove:
		return "move"
	case KindResize:
		return "resize"
	default:
		return "none"
	}
}

// Rejection reasons reported when a gesture cannot start.
const (
	ReasonWrongMode          = "wrong_mode"
	ReasonCapabilityDisabled = "capability_disabled"
	ReasonLockUnavailable    = "lock_unavailable"
)

// Outcome is the classifier's decision, with a rejection reason when
// Kind is KindNone.
type Outcome struct {
	Kind   Kind
	Handle object.Handle
	Reason string
}

// Classifier tracks one pointer-down/up cycle on one object. It is not
// reusable across objects; the engine creates one per gesture.
type Classifier struct {
	threshold float64
	axis      input.Axis

	active  bool
	origin  geometry.Point
	crossed bool
	movable bool
	handle  object.Handle
	kind    Kind
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThreshold overrides the movement threshold.
func WithThreshold(px float64) Option {
	return func(c *Classifier) {
		if px > 0 {
			c.threshold = px
		}
	}
}

// WithAxis constrains which delta components count toward the threshold.
// The constraint applies before the distance check, so a vertical-only
// object ignores horizontal travel entirely.
func WithAxis(a input.Axis) Option {
	return func(c *Classifier) { c.axis = a }
}

// New creates a classifier with the default threshold and no axis
// constraint.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		threshold: DefaultThreshold,
		axis:      input.AxisBoth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin starts classification at pointer-down. The handle argument is
// the resize handle under the pointer, or HandleNone. Outside design
// mode every gesture is rejected; a handle press on a resizable object
// classifies as resize immediately.
func (c *Classifier) Begin(obj *object.TrackedObject, pos geometry.Point, handle object.Handle, mode session.Mode) Outcome {
	if mode != session.ModeDesign {
		return Outcome{Kind: KindNone, Reason: ReasonWrongMode}
	}

	if handle != object.HandleNone && obj.CanResize() {
		c.active = true
		c.kind = KindResize
		c.handle = handle
		return Outcome{Kind: KindResize, Handle: handle}
	}

	if !obj.CanSelect() && !obj.CanMove() {
		return Outcome{Kind: KindNone, Reason: ReasonCapabilityDisabled}
	}

	c.active = true
	c.kind = KindPending
	c.origin = pos
	c.crossed = false
	c.movable = obj.CanMove()
	return Outcome{Kind: KindPending}
}

// Move feeds a pointer-move sample and returns the current
// classification. The first sample whose constrained distance from the
// origin reaches the threshold turns a pending gesture into a move;
// afterwards the classification never reverts, even if a later sample
// comes back inside the threshold.
func (c *Classifier) Move(pos geometry.Point) Kind {
	if !c.active {
		return KindNone
	}
	if c.kind == KindResize {
		return KindResize
	}
	if c.crossed {
		return KindMove
	}

	d := c.axis.Apply(pos.Sub(c.origin))
	if d.Length() >= c.threshold && c.movable {
		c.crossed = true
		c.kind = KindMove
		return KindMove
	}
	return KindPending
}

// End resolves the gesture at pointer-up. A pending gesture resolves to
// selection; a crossed gesture stays a move regardless of the final
// position.
func (c *Classifier) End() Outcome {
	if !c.active {
		return Outcome{Kind: KindNone}
	}
	defer c.reset()

	switch c.kind {
	case KindResize:
		return Outcome{Kind: KindResize, Handle: c.handle}
	case KindMove:
		return Outcome{Kind: KindMove}
	default:
		return Outcome{Kind: KindSelection}
	}
}

// Crossed reports whether the movement threshold has been passed.
func (c *Classifier) Crossed() bool {
	return c.crossed
}

// Active reports whether a pointer-down cycle is in progress.
func (c *Classifier) Active() bool {
	return c.active
}

// Cancel abandons the in-progress classification.
func (c *Classifier) Cancel() {
	c.reset()
}

func (c *Classifier) reset() {
	c.active = false
	c.crossed = false
	c.movable = false
	c.kind = KindNone
	c.handle = object.HandleNone
	c.origin = geometry.Point{}
}
