package dragdrop

import (
	"sort"
	"sync"

	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// AcceptFunc decides whether a zone takes a particular item. The
// decision is consulted when a drag starts, to compute the valid target
// set, and is not re-evaluated mid-gesture.
type AcceptFunc func(item object.ID) bool

// Zone is a registered drop target.
type Zone struct {
	ID     object.ID
	Bounds geometry.Rect

	// Z orders overlapping zones; the highest wins hit-testing.
	Z int

	// Accept, when non-nil, filters items. Nil accepts everything.
	Accept AcceptFunc

	seq uint64
}

// Accepts reports whether the zone takes the item.
func (z *Zone) Accepts(item object.ID) bool {
	return z.Accept == nil || z.Accept(item)
}

// Zones tracks the registered drop targets for a session.
type Zones struct {
	mu   sync.RWMutex
	byID map[object.ID]*Zone
	seq  uint64
}

// NewZones returns an empty zone registry.
func NewZones() *Zones {
	return &Zones{byID: make(map[object.ID]*Zone)}
}

// Register adds or replaces a zone. Re-registering refreshes the zone's
// recency, which breaks hit-test ties in its favor.
func (zs *Zones) Register(z Zone) {
	zs.mu.Lock()
	defer zs.mu.Unlock()
	zs.seq++
	z.seq = zs.seq
	zs.byID[z.ID] = &z
}

// Unregister removes a zone. Removing an unknown zone is a no-op.
func (zs *Zones) Unregister(id object.ID) {
	zs.mu.Lock()
	defer zs.mu.Unlock()
	delete(zs.byID, id)
}

// Get returns the zone, or nil.
func (zs *Zones) Get(id object.ID) *Zone {
	zs.mu.RLock()
	defer zs.mu.RUnlock()
	return zs.byID[id]
}

// At returns the zone under the point. When zones overlap the highest Z
// wins; at equal Z the most recently registered wins.
func (zs *Zones) At(p geometry.Point) *Zone {
	zs.mu.RLock()
	defer zs.mu.RUnlock()

	var best *Zone
	for _, z := range zs.byID {
		if !z.Bounds.Contains(p) {
			continue
		}
		if best == nil || z.Z > best.Z || (z.Z == best.Z && z.seq > best.seq) {
			best = z
		}
	}
	return best
}

// TargetsFor returns the IDs of every zone that accepts the item,
// sorted for determinism.
func (zs *Zones) TargetsFor(item object.ID) []object.ID {
	zs.mu.RLock()
	defer zs.mu.RUnlock()

	var ids []object.ID
	for _, z := range zs.byID {
		if z.Accepts(item) {
			ids = append(ids, z.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
