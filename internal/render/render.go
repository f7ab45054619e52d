// Package render defines the visual-update contract between the
// interaction core and the rendering layer. The core never touches
// rendering primitives; it emits Update descriptions and the sink on
// the other side applies them.
package render

import (
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// UpdateKind distinguishes live gesture feedback from committed state.
type UpdateKind uint8

const (
	// Preview is an uncommitted, display-only update shown during a
	// gesture. Layout ancestors should not reflow on previews.
	Preview UpdateKind = iota
	// Commit reflects a finalized bounds change.
	Commit
)

// String returns the update kind name.
func (k UpdateKind) String() string {
	if k == Commit {
		return "commit"
	}
	return "preview"
}

// Update describes one visual change for the render layer to apply.
type Update struct {
	ObjectID object.ID
	Kind     UpdateKind

	// Bounds, when non-nil, is the rect to display.
	Bounds *geometry.Rect

	// ClassesAdded and ClassesRemoved adjust styling markers, e.g.
	// "dragging" or "drop-target".
	ClassesAdded   []string
	ClassesRemoved []string

	// Cursor, when non-empty, is the cursor to show ("ns-resize" etc.).
	Cursor string
}

// Sink receives visual updates.
type Sink interface {
	Apply(Update)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Update)

// Apply calls the function.
func (f SinkFunc) Apply(u Update) { f(u) }

// Discard is a sink that drops every update, for tests and headless use.
var Discard Sink = SinkFunc(func(Update) {})
