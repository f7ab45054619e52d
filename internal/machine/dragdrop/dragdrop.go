// Package dragdrop implements the drag-and-drop state machine. A drag
// lifts an item out of its source zone, previews it under the pointer,
// and on release hands it to the hovered zone's drop handler. The
// handler may resolve asynchronously; until it does the gesture parks
// in a pending phase. Rejected and targetless drops animate the item
// back to its origin.
//
// Concurrent drops into the same zone are serialized through the lock
// arbiter: the zone is claimed with a queued request, so the second
// drop waits its turn instead of failing.
package dragdrop

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/machine"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
	"github.com/formgrid/interact/internal/session"
)

// Phase is the lifecycle position of a drag machine.
type Phase uint8

const (
	PhaseIdle Phase = iota
	// PhaseReady means the pointer is down but has not travelled past
	// the gesture threshold.
	PhaseReady
	PhaseDragging
	// PhasePending means the item was released over a zone and the
	// gesture is waiting, either for the zone claim to be granted or
	// for the drop handler to resolve.
	PhasePending
	// PhaseReturning means the item is animating back to its origin
	// after a failed or cancelled drop.
	PhaseReturning
	PhaseCompleted
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseDragging:
		return "dragging"
	case PhasePending:
		return "pending"
	case PhaseReturning:
		return "returning"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// DefaultReturnDuration is the return-flight animation length.
const DefaultReturnDuration = 200 * time.Millisecond

// Options configures a drag machine.
type Options struct {
	// Threshold is the travel distance, in pixels, before the drag
	// activates. Zero means the classifier default.
	Threshold float64

	// SourceZone is the container the item is dragged out of.
	SourceZone object.ID

	// Zones is the drop-target registry consulted for hover tracking
	// and the valid-target set.
	Zones *Zones

	// CanDrop, when non-nil, is an additional per-item gate layered on
	// top of each zone's own accept filter.
	CanDrop func(item object.ID, zone *Zone) bool

	// ReturnDuration overrides the return-flight length when positive.
	ReturnDuration time.Duration
}

// Machine runs one drag-and-drop gesture for one item.
type Machine struct {
	ses  *session.Context
	obj  *object.TrackedObject
	sink render.Sink
	log  machine.Logger
	opts Options

	phase Phase
	state object.DragState
	start geometry.Point
	live  geometry.Rect
	lock  *arbiter.Lock

	// pendingZone is the zone a released drop is waiting on.
	pendingZone *Zone
	zoneClaimed bool

	tweenX       *gween.Tween
	tweenY       *gween.Tween
	returnReason string

	lockDenied bool
}

// New builds an idle drag machine for obj. The sink receives ghost
// preview updates; a nil log discards diagnostics.
func New(ses *session.Context, obj *object.TrackedObject, sink render.Sink, log machine.Logger, opts Options) *Machine {
	if log == nil {
		log = machine.NopLogger{}
	}
	if sink == nil {
		sink = render.Discard
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 8
	}
	if opts.ReturnDuration <= 0 {
		opts.ReturnDuration = DefaultReturnDuration
	}
	if opts.Zones == nil {
		opts.Zones = NewZones()
	}
	return &Machine{ses: ses, obj: obj, sink: sink, log: log, opts: opts}
}

// Phase returns the machine's lifecycle position.
func (m *Machine) Phase() Phase { return m.phase }

// State returns a copy of the live gesture bookkeeping.
func (m *Machine) State() object.DragState { return m.state }

// PointerDown arms the gesture.
func (m *Machine) PointerDown(p geometry.Point, now time.Time) error {
	if m.phase != PhaseIdle {
		return machine.ErrWrongPhase
	}
	if m.obj == nil {
		return machine.ErrNoObject
	}
	m.phase = PhaseReady
	m.start = p
	m.state = object.DragState{
		SourceZone: m.opts.SourceZone,
		Origin:     m.obj.Bounds,
	}
	m.live = m.obj.Bounds
	m.obj.SetState(object.StateSelecting, now)
	return nil
}

// PointerMove feeds a pointer sample. Crossing the threshold acquires
// the drag lock, computes the valid target set, and lifts the item;
// afterwards the ghost follows the pointer and hover changes are
// reported as they happen.
func (m *Machine) PointerMove(p geometry.Point, now time.Time) error {
	switch m.phase {
	case PhaseReady:
		if p.Sub(m.start).Length() < m.opts.Threshold {
			return nil
		}
		if !m.acquireLock() {
			return nil
		}
		m.state.ValidTargets = m.targets()
		m.phase = PhaseDragging
		m.obj.State = object.InteractionState{Kind: object.StateDragging, Drag: &m.state, Since: now}
		m.ses.Bus().Publish(event.NewChange(event.TopicDragStarted, m.obj.ID, nil))
		m.sink.Apply(render.Update{
			ObjectID:     m.obj.ID,
			Kind:         render.Preview,
			ClassesAdded: []string{"dragging"},
			Cursor:       "grabbing",
		})
		m.updateGhost(p)
		return nil

	case PhaseDragging:
		m.updateGhost(p)
		return nil

	default:
		return machine.ErrWrongPhase
	}
}

func (m *Machine) acquireLock() bool {
	grant := m.ses.Locks().Acquire(arbiter.Request{
		ObjectID: m.obj.ID,
		Type:     arbiter.TypeDrag,
		OnRevoke: func(r arbiter.ReleaseReason) { m.forceCancel(machine.FromRelease(r)) },
	})
	if grant.Decision != arbiter.Granted {
		if !m.lockDenied {
			m.lockDenied = true
			m.log.Debug("drag lock denied for %s", m.obj.ID)
			m.ses.Bus().Publish(event.NewChange(event.TopicGestureRejected, m.obj.ID, event.RejectedPayload{
				Gesture: "drag",
				Reason:  "lock_unavailable",
			}))
		}
		return false
	}
	m.lock = grant.Lock
	m.state.LockID = grant.Lock.ID
	return true
}

// targets computes the zones that will take this item, fixed for the
// rest of the gesture.
func (m *Machine) targets() []object.ID {
	var ids []object.ID
	for _, id := range m.opts.Zones.TargetsFor(m.obj.ID) {
		if m.opts.CanDrop != nil && !m.opts.CanDrop(m.obj.ID, m.opts.Zones.Get(id)) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (m *Machine) validTarget(id object.ID) bool {
	for _, t := range m.state.ValidTargets {
		if t == id {
			return true
		}
	}
	return false
}

// updateGhost moves the preview under the pointer and tracks which
// valid zone, if any, is hovered. A hover event fires only when the
// hovered zone changes.
func (m *Machine) updateGhost(p geometry.Point) {
	d := p.Sub(m.start)
	m.live = m.state.Origin.Translated(d)
	m.sink.Apply(render.Update{
		ObjectID: m.obj.ID,
		Kind:     render.Preview,
		Bounds:   &m.live,
	})

	var hovered object.ID
	if z := m.opts.Zones.At(p); z != nil && m.validTarget(z.ID) {
		hovered = z.ID
	}
	if hovered != m.state.Hovered {
		prev := m.state.Hovered
		m.state.Hovered = hovered
		m.ses.Bus().Publish(event.NewChange(event.TopicDragHover, m.obj.ID, event.HoverPayload{
			Previous: prev,
			Current:  hovered,
		}))
	}
}

// PointerUp releases the item. Over a valid zone the zone is claimed
// and the drop handed to its handler; anywhere else the item flies
// back to its origin.
func (m *Machine) PointerUp(p geometry.Point, now time.Time) error {
	switch m.phase {
	case PhaseReady:
		m.phase = PhaseCompleted
		m.obj.SetState(object.StateIdle, now)
		return nil

	case PhaseDragging:
		m.updateGhost(p)
		if m.state.Hovered == "" {
			m.ses.Bus().Publish(event.NewChange(event.TopicDragRejected, m.obj.ID, event.DropPayload{
				Reason: "no_target",
			}))
			m.startReturn("no_target")
			return nil
		}
		m.claimZone(m.opts.Zones.Get(m.state.Hovered))
		return nil

	default:
		return machine.ErrWrongPhase
	}
}

// claimZone serializes the drop through the arbiter. A busy zone queues
// the claim; the drop proceeds when the claim is granted.
func (m *Machine) claimZone(z *Zone) {
	m.phase = PhasePending
	m.pendingZone = z

	grant := m.ses.Locks().Acquire(arbiter.Request{
		ObjectID:    z.ID,
		Type:        arbiter.TypeDrag,
		QueueOnBusy: true,
		OnGrant: func(*arbiter.Lock) {
			if m.phase != PhasePending {
				// Cancelled while queued; hand the claim straight back.
				m.ses.Locks().Release(z.ID, arbiter.ReasonCancelled)
				return
			}
			m.zoneClaimed = true
			m.announceDrop()
		},
	})
	switch grant.Decision {
	case arbiter.Granted:
		m.zoneClaimed = true
		m.announceDrop()
	case arbiter.Queued:
		m.log.Debug("drop on %s queued behind another drag", z.ID)
	}
}

// announceDrop hands the pending drop to the zone's handler by
// publishing it. The host resolves it with ResolveDrop.
func (m *Machine) announceDrop() {
	m.ses.Bus().Publish(event.NewChange(event.TopicDragDropped, m.obj.ID, event.DropPayload{
		Target: m.pendingZone.ID,
	}))
}

// ResolveDrop completes a pending drop. Accepted drops commit the item
// at its release position; rejected drops animate it back to its
// origin. Calling this in any other phase returns ErrWrongPhase.
func (m *Machine) ResolveDrop(accepted bool, reason string, now time.Time) error {
	if m.phase != PhasePending || !m.zoneClaimed {
		return machine.ErrWrongPhase
	}
	m.releaseZone()

	if !accepted {
		if reason == "" {
			reason = "handler_rejected"
		}
		m.ses.Bus().Publish(event.NewChange(event.TopicDragRejected, m.obj.ID, event.DropPayload{
			Target: m.pendingZone.ID,
			Reason: reason,
		}))
		m.startReturn(reason)
		return nil
	}

	m.obj.Bounds = m.live
	m.obj.SetState(object.StateIdle, now)
	m.phase = PhaseCompleted
	m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCompleted)
	m.lock = nil

	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"dragging"},
	})
	return nil
}

func (m *Machine) releaseZone() {
	if m.zoneClaimed {
		m.ses.Locks().Release(m.pendingZone.ID, arbiter.ReasonCompleted)
		m.zoneClaimed = false
	}
}

// startReturn begins the flight back to the origin. The drag lock stays
// held for the duration so nothing grabs the item mid-flight.
func (m *Machine) startReturn(reason string) {
	m.phase = PhaseReturning
	m.returnReason = reason
	dur := float32(m.opts.ReturnDuration.Seconds())
	m.tweenX = gween.New(float32(m.live.X), float32(m.state.Origin.X), dur, ease.OutQuad)
	m.tweenY = gween.New(float32(m.live.Y), float32(m.state.Origin.Y), dur, ease.OutQuad)
}

// Update advances the return animation by dt seconds. It returns true
// while the machine still needs ticks. The engine calls this from its
// frame loop.
func (m *Machine) Update(dt float32, now time.Time) bool {
	if m.phase != PhaseReturning {
		return false
	}
	x, doneX := m.tweenX.Update(dt)
	y, doneY := m.tweenY.Update(dt)
	m.live.X, m.live.Y = float64(x), float64(y)
	m.sink.Apply(render.Update{
		ObjectID: m.obj.ID,
		Kind:     render.Preview,
		Bounds:   &m.live,
	})
	if !doneX || !doneY {
		return true
	}
	m.finishReturn(now)
	return false
}

// finishReturn lands the item back on its committed origin bounds and
// ends the gesture.
func (m *Machine) finishReturn(now time.Time) {
	m.phase = PhaseCompleted
	m.obj.SetState(object.StateIdle, now)
	m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCompleted)
	m.lock = nil

	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"dragging"},
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicDragReturned, m.obj.ID, event.ReturnedPayload{
		Source: m.state.SourceZone,
		Origin: m.state.Origin,
		Reason: m.returnReason,
	}))
}

// Cancel aborts the gesture, snapping the item straight back to its
// origin with no animation. Cancelling an idle or terminal machine is
// a no-op.
func (m *Machine) Cancel(reason machine.CancelReason, now time.Time) {
	switch m.phase {
	case PhaseReady:
		m.phase = PhaseCancelled
		m.obj.SetState(object.StateIdle, now)
	case PhaseDragging, PhasePending, PhaseReturning:
		m.releaseZone()
		m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCancelled)
		m.lock = nil
		m.finishCancel(reason, now)
	}
}

// forceCancel runs on lock revocation. The drag lock is already gone,
// so it must not be released again; a held zone claim still is.
func (m *Machine) forceCancel(reason machine.CancelReason) {
	switch m.phase {
	case PhaseDragging, PhasePending, PhaseReturning:
		m.releaseZone()
		m.lock = nil
		m.finishCancel(reason, time.Now())
	}
}

func (m *Machine) finishCancel(reason machine.CancelReason, now time.Time) {
	m.phase = PhaseCancelled
	m.obj.SetState(object.StateIdle, now)
	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"dragging"},
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicDragCancelled, m.obj.ID, event.CancelledPayload{
		Reason:   string(reason),
		Restored: m.state.Origin,
	}))
	m.log.Debug("drag cancelled for %s: %s", m.obj.ID, reason)
}
