package object

import (
	"sort"
	"sync"

	"github.com/formgrid/interact/internal/geometry"
)

// Registry holds all tracked objects in a session. Objects are added on
// component mount and removed on unmount.
type Registry struct {
	mu      sync.RWMutex
	objects map[ID]*TrackedObject
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[ID]*TrackedObject),
	}
}

// Add registers an object. An existing object with the same ID is replaced.
func (r *Registry) Add(obj *TrackedObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[obj.ID] = obj
}

// Remove unregisters an object and reports whether it existed. Lock
// release and history purging are the caller's responsibility.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[id]; !ok {
		return false
	}
	delete(r.objects, id)
	return true
}

// Get returns the object with the given ID, or nil.
func (r *Registry) Get(id ID) *TrackedObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[id]
}

// List returns all objects, ordered by descending Z then by ID for
// determinism.
func (r *Registry) List() []*TrackedObject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TrackedObject, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z > out[j].Z
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of registered objects.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// HitTest returns the topmost object whose bounds contain the point, or
// nil. Ties on Z break toward the lexically smaller ID, matching List
// ordering.
func (r *Registry) HitTest(p geometry.Point) *TrackedObject {
	for _, obj := range r.List() {
		if obj.Bounds.Contains(p) {
			return obj
		}
	}
	return nil
}

// Active returns all objects currently reporting a non-idle interaction
// state. Used by the stuck-state detector's periodic scan.
func (r *Registry) Active() []*TrackedObject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*TrackedObject
	for _, obj := range r.objects {
		if !obj.State.Idle() {
			out = append(out, obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
