// Package input defines the normalized pointer and keyboard events the
// interaction core consumes from the IO layer, plus the small trackers
// (click proximity, axis constraints) shared by gesture classification.
package input

import (
	"time"

	"github.com/formgrid/interact/internal/geometry"
)

// EventType is the kind of normalized input event.
type EventType uint8

const (
	// EventNone indicates no event.
	EventNone EventType = iota
	// EventDown is a pointer-down on the primary contact point.
	EventDown
	// EventMove is a pointer movement.
	EventMove
	// EventUp is a pointer-up.
	EventUp
	// EventKey is a keyboard event.
	EventKey
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventDown:
		return "down"
	case EventMove:
		return "move"
	case EventUp:
		return "up"
	case EventKey:
		return "key"
	default:
		return "none"
	}
}

// Modifier is a bitmask of keyboard modifiers held during an event.
type Modifier uint8

const (
	// ModShift is the Shift key.
	ModShift Modifier = 1 << iota
	// ModCtrl is the Control key.
	ModCtrl
	// ModAlt is the Alt/Option key.
	ModAlt
	// ModMeta is the Meta/Command key.
	ModMeta
)

// HasShift returns true if Shift is held.
func (m Modifier) HasShift() bool { return m&ModShift != 0 }

// HasCtrl returns true if Control is held.
func (m Modifier) HasCtrl() bool { return m&ModCtrl != 0 }

// HasAlt returns true if Alt is held.
func (m Modifier) HasAlt() bool { return m&ModAlt != 0 }

// HasMeta returns true if Meta is held.
func (m Modifier) HasMeta() bool { return m&ModMeta != 0 }

// Key identifies the non-pointer keys the core reacts to.
type Key uint8

const (
	// KeyNone indicates no key.
	KeyNone Key = iota
	// KeyEscape cancels the in-progress gesture.
	KeyEscape
	// KeyShift toggles aspect-lock during a resize.
	KeyShift
	// KeyAlt toggles center-anchor during a resize.
	KeyAlt
)

// Event is a normalized input event from the IO layer. Only the primary
// contact point is reported; secondary multi-touch contacts never reach
// the core.
type Event struct {
	Type      EventType
	Position  geometry.Point
	Key       Key
	Modifiers Modifier
	Timestamp time.Time
}

// Axis constrains which components of a pointer delta count toward
// movement.
type Axis uint8

const (
	// AxisBoth allows movement on both axes.
	AxisBoth Axis = iota
	// AxisHorizontal allows movement on the x axis only.
	AxisHorizontal
	// AxisVertical allows movement on the y axis only.
	AxisVertical
	// AxisNone suppresses movement entirely.
	AxisNone
)

// ParseAxis maps a config string to an Axis. Unknown values fall back to
// AxisBoth.
func ParseAxis(s string) Axis {
	switch s {
	case "horizontal":
		return AxisHorizontal
	case "vertical":
		return AxisVertical
	case "none":
		return AxisNone
	default:
		return AxisBoth
	}
}

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	case AxisNone:
		return "none"
	default:
		return "both"
	}
}

// Apply zeroes the suppressed components of the delta. The constrained
// delta feeds both the movement threshold and the live position, so a
// vertical-only object never classifies as moving from horizontal travel.
func (a Axis) Apply(d geometry.Delta) geometry.Delta {
	switch a {
	case AxisHorizontal:
		d.DY = 0
	case AxisVertical:
		d.DX = 0
	case AxisNone:
		d.DX, d.DY = 0, 0
	}
	return d
}
