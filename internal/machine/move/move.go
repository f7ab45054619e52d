// Package move implements the per-object movement state machine:
// Idle → Ready → Moving → Completed or Cancelled.
//
// Ready is entered on pointer-down with no lock held; the arbitration
// lock is requested only when the movement threshold crosses. A denied
// lock leaves the machine in Ready, and pointer-up in Ready resolves to
// a selection: small, threshold-failing, or lock-denied drags become
// clicks.
package move

import (
	"time"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/input"
	"github.com/formgrid/interact/internal/machine"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
	"github.com/formgrid/interact/internal/session"
)

// Phase is the machine's current state.
type Phase uint8

const (
	// PhaseIdle means no gesture.
	PhaseIdle Phase = iota
	// PhaseReady means pointer-down happened but the threshold has not
	// crossed; no lock is held.
	PhaseReady
	// PhaseMoving means the threshold crossed and the lock is held.
	PhaseMoving
	// PhaseCompleted is the successful terminal state.
	PhaseCompleted
	// PhaseCancelled is the cancelled terminal state.
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseMoving:
		return "moving"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Outcome is the result of a pointer-up.
type Outcome uint8

const (
	// OutcomeNone means the pointer-up was ignored (wrong phase).
	OutcomeNone Outcome = iota
	// OutcomeSelection means the gesture never became a move and the
	// caller should treat it as a click.
	OutcomeSelection
	// OutcomeMoved means the move committed.
	OutcomeMoved
)

// Options tunes a move gesture.
type Options struct {
	// Threshold is the travel distance that confirms the move; zero
	// uses the classifier default.
	Threshold float64

	// Axis constrains movement, applied before the threshold check and
	// before snapping.
	Axis input.Axis

	// GridSize snaps the target position when non-zero.
	GridSize float64

	// Region clamps the object inside a containing rect when non-nil.
	// Clamping runs after snapping, so a snap can be undone at an edge.
	Region *geometry.Rect
}

// Machine runs one move gesture on one object.
type Machine struct {
	ses  *session.Context
	obj  *object.TrackedObject
	sink render.Sink
	log  machine.Logger
	opts Options

	phase       Phase
	state       object.MoveState
	startBounds geometry.Rect
	lock        *arbiter.Lock
	lockDenied  bool
	lastClamped bool
}

// New creates an idle move machine for the object.
func New(ses *session.Context, obj *object.TrackedObject, sink render.Sink, log machine.Logger, opts Options) *Machine {
	if opts.Threshold <= 0 {
		opts.Threshold = 8
	}
	if sink == nil {
		sink = render.Discard
	}
	if log == nil {
		log = machine.NopLogger{}
	}
	return &Machine{
		ses:  ses,
		obj:  obj,
		sink: sink,
		log:  log,
		opts: opts,
	}
}

// Phase returns the machine's current phase.
func (m *Machine) Phase() Phase { return m.phase }

// State returns a copy of the live move bookkeeping.
func (m *Machine) State() object.MoveState { return m.state }

// PointerDown enters Ready, recording the pointer and element offsets.
// No lock is acquired: the move is only confirmed once the threshold
// crosses.
func (m *Machine) PointerDown(p geometry.Point, now time.Time) error {
	if m.obj == nil {
		return machine.ErrNoObject
	}
	if m.phase != PhaseIdle {
		return machine.ErrWrongPhase
	}

	origin := m.obj.Bounds.Origin()
	m.state = object.MoveState{
		PointerStart: p,
		ElementStart: origin,
		HandleOffset: p.Sub(origin),
	}
	m.startBounds = m.obj.Bounds
	m.phase = PhaseReady
	m.obj.SetState(object.StateSelecting, now)
	return nil
}

// PointerMove feeds a move sample. In Ready it checks the threshold and
// requests the lock; in Moving it recomputes the live position and
// emits a preview update per sample.
func (m *Machine) PointerMove(p geometry.Point, now time.Time) error {
	switch m.phase {
	case PhaseReady:
		d := m.opts.Axis.Apply(p.Sub(m.state.PointerStart))
		if d.Length() < m.opts.Threshold {
			return nil
		}
		if !m.acquireLock() {
			return nil
		}
		m.state.ThresholdCrossed = true
		m.phase = PhaseMoving
		m.obj.State = object.InteractionState{Kind: object.StateMoving, Move: &m.state, Since: now}
		m.ses.Bus().Publish(event.NewChange(event.TopicMoveStarted, m.obj.ID, nil))
		m.sink.Apply(render.Update{
			ObjectID:     m.obj.ID,
			Kind:         render.Preview,
			ClassesAdded: []string{"moving"},
			Cursor:       "grabbing",
		})
		m.updateLive(p)
		return nil

	case PhaseMoving:
		m.updateLive(p)
		return nil

	default:
		return machine.ErrWrongPhase
	}
}

// acquireLock requests the move lock, wiring revocation to the forced
// cancel path. A denial leaves the machine in Ready and reports the
// rejected gesture once.
func (m *Machine) acquireLock() bool {
	grant := m.ses.Locks().Acquire(arbiter.Request{
		ObjectID: m.obj.ID,
		Type:     arbiter.TypeMove,
		OnRevoke: func(r arbiter.ReleaseReason) { m.forceCancel(machine.FromRelease(r)) },
	})
	if grant.Decision != arbiter.Granted {
		if !m.lockDenied {
			m.lockDenied = true
			m.log.Debug("move lock denied for %s", m.obj.ID)
			m.ses.Bus().Publish(event.NewChange(event.TopicGestureRejected, m.obj.ID, event.RejectedPayload{
				Gesture: "move",
				Reason:  "lock_unavailable",
			}))
		}
		return false
	}
	m.lock = grant.Lock
	return true
}

// updateLive recomputes the target position for the latest sample:
// axis constraint, then grid snap, then boundary clamp.
func (m *Machine) updateLive(p geometry.Point) {
	d := m.opts.Axis.Apply(p.Sub(m.state.PointerStart))
	m.state.CurrentDelta = d

	target, clamped := m.target(d)
	m.lastClamped = clamped
	live := m.obj.Bounds
	live.X, live.Y = target.X, target.Y

	m.sink.Apply(render.Update{
		ObjectID: m.obj.ID,
		Kind:     render.Preview,
		Bounds:   &live,
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicMoveLive, m.obj.ID, event.MovedPayload{
		From:    m.startBounds,
		To:      live,
		Clamped: clamped,
	}))
}

// target applies snap and clamp to the raw position and reports whether
// either altered it.
func (m *Machine) target(d geometry.Delta) (geometry.Point, bool) {
	raw := m.state.ElementStart.Add(d)
	p := raw
	p.X = geometry.Snap(p.X, m.opts.GridSize)
	p.Y = geometry.Snap(p.Y, m.opts.GridSize)
	if r := m.opts.Region; r != nil {
		// The upper bound can legitimately reach zero or below when the
		// object fills the region, so the clamp must stay unconditional.
		p.X = geometry.ClampRange(p.X, r.X, r.X+r.Width-m.obj.Bounds.Width)
		p.Y = geometry.ClampRange(p.Y, r.Y, r.Y+r.Height-m.obj.Bounds.Height)
	}
	return p, !p.Equal(raw)
}

// PointerUp resolves the gesture. In Ready the result is a selection;
// in Moving the final position is snapped once more, committed, and the
// lock released.
func (m *Machine) PointerUp(p geometry.Point, now time.Time) Outcome {
	switch m.phase {
	case PhaseReady:
		m.phase = PhaseCompleted
		m.obj.SetState(object.StateIdle, now)
		return OutcomeSelection

	case PhaseMoving:
		d := m.opts.Axis.Apply(p.Sub(m.state.PointerStart))
		target, clamped := m.target(d)

		from := m.startBounds
		m.obj.Bounds.X, m.obj.Bounds.Y = target.X, target.Y
		m.obj.SetState(object.StateIdle, now)
		m.phase = PhaseCompleted

		m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCompleted)
		m.lock = nil

		m.sink.Apply(render.Update{
			ObjectID:       m.obj.ID,
			Kind:           render.Commit,
			Bounds:         &m.obj.Bounds,
			ClassesRemoved: []string{"moving"},
		})
		m.ses.Bus().Publish(event.NewChange(event.TopicObjectMoved, m.obj.ID, event.MovedPayload{
			From:    from,
			To:      m.obj.Bounds,
			Clamped: clamped,
		}))
		return OutcomeMoved

	default:
		return OutcomeNone
	}
}

// Cancel aborts the gesture, restoring the pre-gesture bounds if they
// were previewed. Cancelling an idle or terminal machine is a no-op.
func (m *Machine) Cancel(reason machine.CancelReason, now time.Time) {
	switch m.phase {
	case PhaseReady:
		m.phase = PhaseCancelled
		m.obj.SetState(object.StateIdle, now)

	case PhaseMoving:
		m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCancelled)
		m.lock = nil
		m.finishCancel(reason, now)
	}
}

// forceCancel is the revocation path: the arbiter has already removed
// the lock, so only the visual and state rollback runs.
func (m *Machine) forceCancel(reason machine.CancelReason) {
	if m.phase != PhaseMoving {
		return
	}
	m.lock = nil
	m.finishCancel(reason, time.Now())
}

func (m *Machine) finishCancel(reason machine.CancelReason, now time.Time) {
	m.obj.Bounds = m.startBounds
	m.obj.SetState(object.StateIdle, now)
	m.phase = PhaseCancelled

	m.log.Debug("move cancelled for %s: %s", m.obj.ID, reason)
	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"moving"},
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicMoveCancelled, m.obj.ID, event.CancelledPayload{
		Reason:   string(reason),
		Restored: m.startBounds,
	}))
}
