package resize

import (
	"math"

	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// Constrain runs the sizing pipeline for one pointer sample. Stages run
// in a fixed order: dimension clamp, aspect ratio, grid snap, anchoring,
// then origin snap. Later stages therefore win when they disagree with
// earlier ones. The second return value reports whether any stage altered the
// raw handle-applied rect.
func Constrain(start geometry.Rect, h object.Handle, d geometry.Delta, c object.Constraints) (geometry.Rect, bool) {
	raw := h.Apply(start, d)
	w, ht := raw.Width, raw.Height

	// Crossing the opposite edge collapses to zero rather than flipping.
	w = math.Max(w, 0)
	ht = math.Max(ht, 0)
	w = geometry.Clamp(w, c.MinWidth, c.MaxWidth)
	ht = geometry.Clamp(ht, c.MinHeight, c.MaxHeight)

	// Aspect lock: the dimension the pointer changed more drives, the
	// other follows.
	if c.AspectRatio > 0 {
		if math.Abs(w-start.Width) >= math.Abs(ht-start.Height) {
			ht = w / c.AspectRatio
		} else {
			w = ht * c.AspectRatio
		}
	}

	w = geometry.Snap(w, c.GridSize)
	ht = geometry.Snap(ht, c.GridSize)

	out := geometry.Rect{Width: w, Height: ht}
	if c.CenterAnchored {
		out.X = start.X + start.Width/2 - w/2
		out.Y = start.Y + start.Height/2 - ht/2
	} else {
		out.X, out.Y = start.X, start.Y
		// Keep the opposite edge fixed when a west or north handle
		// changed the size.
		if h.AffectsLeft() {
			out.X = start.X + start.Width - w
		}
		if h.AffectsTop() {
			out.Y = start.Y + start.Height - ht
		}
	}
	// A west or north anchor can derive an off-grid origin from a
	// snapped size, so the origin snaps too.
	out.X = geometry.Snap(out.X, c.GridSize)
	out.Y = geometry.Snap(out.Y, c.GridSize)
	return out, !out.Equal(raw)
}
