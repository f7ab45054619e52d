package object

import "github.com/formgrid/interact/internal/geometry"

// Handle identifies one of the eight compass resize handles.
type Handle uint8

const (
	// HandleNone means the pointer is not on a handle.
	HandleNone Handle = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

// String returns the compass name of the handle.
func (h Handle) String() string {
	switch h {
	case HandleN:
		return "n"
	case HandleNE:
		return "ne"
	case HandleE:
		return "e"
	case HandleSE:
		return "se"
	case HandleS:
		return "s"
	case HandleSW:
		return "sw"
	case HandleW:
		return "w"
	case HandleNW:
		return "nw"
	default:
		return "none"
	}
}

// Cursor returns the CSS-style cursor name for the handle, used in
// visual-update descriptions.
func (h Handle) Cursor() string {
	switch h {
	case HandleN, HandleS:
		return "ns-resize"
	case HandleE, HandleW:
		return "ew-resize"
	case HandleNE, HandleSW:
		return "nesw-resize"
	case HandleNW, HandleSE:
		return "nwse-resize"
	default:
		return ""
	}
}

// AffectsLeft returns true if dragging the handle moves the left edge.
func (h Handle) AffectsLeft() bool {
	return h == HandleW || h == HandleNW || h == HandleSW
}

// AffectsRight returns true if dragging the handle moves the right edge.
func (h Handle) AffectsRight() bool {
	return h == HandleE || h == HandleNE || h == HandleSE
}

// AffectsTop returns true if dragging the handle moves the top edge.
func (h Handle) AffectsTop() bool {
	return h == HandleN || h == HandleNE || h == HandleNW
}

// AffectsBottom returns true if dragging the handle moves the bottom edge.
func (h Handle) AffectsBottom() bool {
	return h == HandleS || h == HandleSE || h == HandleSW
}

// Apply computes the raw resized rect for a pointer displacement, before
// any constraints. Each handle maps to a fixed width/height/x/y transform:
// east and south edges grow with the delta, west and north edges shrink
// and shift the origin.
func (h Handle) Apply(start geometry.Rect, d geometry.Delta) geometry.Rect {
	r := start
	switch {
	case h.AffectsRight():
		r.Width += d.DX
	case h.AffectsLeft():
		r.Width -= d.DX
		r.X += d.DX
	}
	switch {
	case h.AffectsBottom():
		r.Height += d.DY
	case h.AffectsTop():
		r.Height -= d.DY
		r.Y += d.DY
	}
	return r
}

// HandleAt hit-tests the pointer against the eight handle regions of a
// rect. A handle region is a square of hitSize pixels centered on the
// corresponding corner or edge midpoint. Corners are tested before edges
// so diagonal handles win where the regions overlap. Returns HandleNone
// if the pointer is outside every region.
func HandleAt(bounds geometry.Rect, p geometry.Point, hitSize float64) Handle {
	if hitSize <= 0 {
		return HandleNone
	}
	half := hitSize / 2
	within := func(cx, cy float64) bool {
		return p.X >= cx-half && p.X <= cx+half && p.Y >= cy-half && p.Y <= cy+half
	}

	left, right := bounds.X, bounds.X+bounds.Width
	top, bottom := bounds.Y, bounds.Y+bounds.Height
	midX, midY := bounds.X+bounds.Width/2, bounds.Y+bounds.Height/2

	switch {
	case within(left, top):
		return HandleNW
	case within(right, top):
		return HandleNE
	case within(right, bottom):
		return HandleSE
	case within(left, bottom):
		return HandleSW
	case within(midX, top):
		return HandleN
	case within(right, midY):
		return HandleE
	case within(midX, bottom):
		return HandleS
	case within(left, midY):
		return HandleW
	}
	return HandleNone
}

// Constraints bounds the result of a resize gesture.
type Constraints struct {
	// MinWidth and MinHeight are hard lower bounds.
	MinWidth  float64
	MinHeight float64

	// MaxWidth and MaxHeight are upper bounds; zero means unbounded.
	MaxWidth  float64
	MaxHeight float64

	// AspectRatio, when non-zero, locks width/height to this ratio.
	AspectRatio float64

	// GridSize, when non-zero, snaps position and dimensions to this grid.
	GridSize float64

	// CenterAnchored keeps the object's center fixed while resizing.
	CenterAnchored bool
}
