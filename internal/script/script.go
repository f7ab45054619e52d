// Package script hosts user-supplied Lua predicates that refine drag
// and drop permissions beyond the static capability flags. The runtime
// is sandboxed: no file system, no os, no process access, and the
// chunk loaders are removed so rules cannot pull in code from outside
// the source they were given.
package script

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/formgrid/interact/internal/machine/dragdrop"
	"github.com/formgrid/interact/internal/object"
)

// Well-known predicate names the engine looks up in the rule chunk.
const (
	dragPredicate = "can_drag"
	dropPredicate = "can_drop"
)

// Engine evaluates drag/drop predicates in a sandboxed Lua state. A
// predicate the rules never define means "allow", so an empty engine
// permits everything.
//
// The underlying Lua state is single-threaded; the engine serializes
// calls with a mutex.
type Engine struct {
	mu     sync.Mutex
	l      *lua.LState
	closed bool
}

// NewEngine creates a sandboxed engine with no rules loaded.
func NewEngine() *Engine {
	l := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Base plus the pure libraries only. io, os, debug, and package
	// stay closed.
	lua.OpenBase(l)
	lua.OpenTable(l)
	lua.OpenString(l)
	lua.OpenMath(l)

	// Base brings the chunk loaders along; remove them.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		l.SetGlobal(name, lua.LNil)
	}

	return &Engine{l: l}
}

// Close releases the Lua state. The engine must not be used after.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		e.l.Close()
	}
}

// LoadRules executes a rule chunk. The chunk defines any of the
// predicate functions:
//
//	function can_drag(item) ... end
//	function can_drop(item, zone) ... end
//
// Loading new rules replaces the previous definitions.
func (e *Engine) LoadRules(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("script: engine closed")
	}
	if err := e.l.DoString(src); err != nil {
		return fmt.Errorf("script: loading rules: %w", err)
	}
	return nil
}

// CanDrag asks the rules whether the item may be dragged. Undefined
// predicate or a rule error both allow; the rules narrow behavior,
// they never brick it.
func (e *Engine) CanDrag(item object.ID) bool {
	return e.call(dragPredicate, lua.LString(item))
}

// CanDrop asks the rules whether the zone takes the item.
func (e *Engine) CanDrop(item, zone object.ID) bool {
	return e.call(dropPredicate, lua.LString(item), lua.LString(zone))
}

func (e *Engine) call(name string, args ...lua.LValue) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return true
	}
	fn := e.l.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return true
	}
	if err := e.l.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return true
	}
	ret := e.l.Get(-1)
	e.l.Pop(1)
	return lua.LVAsBool(ret)
}

// DropFilter adapts the engine to the drag machine's CanDrop hook.
func (e *Engine) DropFilter() func(object.ID, *dragdrop.Zone) bool {
	return func(item object.ID, zone *dragdrop.Zone) bool {
		if zone == nil {
			return false
		}
		return e.CanDrop(item, zone.ID)
	}
}

// ZoneAccept adapts the engine to a zone registration's accept filter.
func (e *Engine) ZoneAccept(zone object.ID) dragdrop.AcceptFunc {
	return func(item object.ID) bool {
		return e.CanDrop(item, zone)
	}
}
