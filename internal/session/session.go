// Package session provides the explicit context threaded through every
// gesture-classification and state-machine call: the current editor
// mode, the object registry, the lock arbiter, and the selection set.
// Nothing in the core reaches through ambient globals; collaborators
// receive a *Context and query it.
package session

import (
	"sort"
	"sync"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/object"
)

// Mode is the process-wide editing mode. Gestures are permitted only in
// ModeDesign.
type Mode uint8

const (
	// ModeDesign allows selection, move, resize, and drag gestures.
	ModeDesign Mode = iota
	// ModePreview renders the form interactively but locks the layout.
	ModePreview
	// ModeRuntime is the end-user facing mode; no design gestures.
	ModeRuntime
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModePreview:
		return "preview"
	case ModeRuntime:
		return "runtime"
	default:
		return "design"
	}
}

// ParseMode maps a string to a Mode. Unknown values fall back to design.
func ParseMode(s string) Mode {
	switch s {
	case "preview":
		return ModePreview
	case "runtime":
		return ModeRuntime
	default:
		return ModeDesign
	}
}

// Context carries the session-wide state every interaction decision
// consults.
type Context struct {
	mu       sync.RWMutex
	mode     Mode
	selected map[object.ID]struct{}

	registry *object.Registry
	locks    *arbiter.Arbiter
	bus      *event.Bus
}

// New creates a session context in design mode.
func New(registry *object.Registry, locks *arbiter.Arbiter, bus *event.Bus) *Context {
	return &Context{
		mode:     ModeDesign,
		selected: make(map[object.ID]struct{}),
		registry: registry,
		locks:    locks,
		bus:      bus,
	}
}

// Registry returns the session's object registry.
func (c *Context) Registry() *object.Registry { return c.registry }

// Locks returns the session's lock arbiter.
func (c *Context) Locks() *arbiter.Arbiter { return c.locks }

// Bus returns the session's change bus.
func (c *Context) Bus() *event.Bus { return c.bus }

// Mode returns the current session mode.
func (c *Context) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode switches the session mode and publishes mode.changed. A no-op
// when the mode is unchanged.
func (c *Context) SetMode(m Mode) {
	c.mu.Lock()
	if c.mode == m {
		c.mu.Unlock()
		return
	}
	from := c.mode
	c.mode = m
	c.mu.Unlock()

	c.bus.Publish(event.NewChange(event.TopicModeChanged, "", event.ModePayload{
		From: from.String(),
		To:   m.String(),
	}))
}

// Select adds an object to the selection. When additive is false the
// previous selection is cleared first, each removal publishing
// object.deselected. Selecting an already-selected object is a no-op.
func (c *Context) Select(id object.ID, additive bool) {
	c.mu.Lock()
	if _, ok := c.selected[id]; ok && additive {
		c.mu.Unlock()
		return
	}

	var dropped []object.ID
	if !additive {
		for prev := range c.selected {
			if prev != id {
				dropped = append(dropped, prev)
				delete(c.selected, prev)
			}
		}
	}
	_, already := c.selected[id]
	c.selected[id] = struct{}{}
	c.mu.Unlock()

	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	for _, prev := range dropped {
		c.bus.Publish(event.NewChange(event.TopicObjectDeselected, prev, nil))
	}
	if !already {
		c.bus.Publish(event.NewChange(event.TopicObjectSelected, id, nil))
	}
}

// Deselect removes an object from the selection. A no-op when the object
// is not selected.
func (c *Context) Deselect(id object.ID) {
	c.mu.Lock()
	if _, ok := c.selected[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.selected, id)
	c.mu.Unlock()

	c.bus.Publish(event.NewChange(event.TopicObjectDeselected, id, nil))
}

// ClearSelection deselects everything.
func (c *Context) ClearSelection() {
	c.mu.Lock()
	ids := make([]object.ID, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	c.selected = make(map[object.ID]struct{})
	c.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c.bus.Publish(event.NewChange(event.TopicObjectDeselected, id, nil))
	}
}

// IsSelected reports whether an object is in the selection.
func (c *Context) IsSelected(id object.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected object IDs in sorted order.
func (c *Context) Selected() []object.ID {
	c.mu.RLock()
	ids := make([]object.ID, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
