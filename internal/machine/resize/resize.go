// Package resize implements the resize gesture state machine. A handle
// press is a resize from the first event: PointerDown takes the resize
// lock and activates the gesture with no travel threshold, preempting a
// lower-priority move in progress on the same object. The machine
// previews constrained bounds while the pointer moves and commits them
// on release. The committed rect never changes mid-gesture, so a cancel
// restores state by simply discarding the preview.
package resize

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

// Phase is the lifecycle position of a resize machine.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseResizing
	PhaseCompleted
	PhaseCancelled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseResizing:
		return "resizing"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Outcome is the terminal result reported by PointerUp.
type Outcome uint8

const (
	// OutcomeNone means the pointer released without the constrained
	// bounds ever leaving the start bounds. Nothing was committed.
	OutcomeNone Outcome = iota
	OutcomeResized
)

// Options configures a resize machine.
type Options struct {
	// Constraints are the object's sizing constraints. Shift and Alt
	// layer aspect lock and center anchoring on top per sample.
	Constraints object.Constraints
}

// Machine runs one resize gesture for one object.
type Machine struct {
	ses  *session.Context
	obj  *object.TrackedObject
	sink render.Sink
	log  machine.Logger
	opts Options

	phase Phase
	state object.ResizeState
	start geometry.Point
	lock  *arbiter.Lock
}

// New builds an idle resize machine for obj. The sink receives live
// preview updates; a nil log discards diagnostics.
func New(ses *session.Context, obj *object.TrackedObject, sink render.Sink, log machine.Logger, opts Options) *Machine {
	if log == nil {
		log = machine.NopLogger{}
	}
	if sink == nil {
		sink = render.Discard
	}
	return &Machine{ses: ses, obj: obj, sink: sink, log: log, opts: opts}
}

// Phase returns the machine's lifecycle position.
func (m *Machine) Phase() Phase { return m.phase }

// State returns a copy of the live gesture bookkeeping.
func (m *Machine) State() object.ResizeState { return m.state }

// PointerDown acquires the resize lock and starts the gesture on the
// given handle. The acquisition may revoke a lower-priority holder on
// the same object. A denial publishes a gesture.rejected change,
// terminates the machine, and returns ErrLockUnavailable.
func (m *Machine) PointerDown(p geometry.Point, h object.Handle, now time.Time) error {
	if m.phase != PhaseIdle {
		return machine.ErrWrongPhase
	}
	if m.obj == nil {
		return machine.ErrNoObject
	}
	if h == object.HandleNone {
		return machine.ErrUnknownHandle
	}
	m.start = p
	m.state = object.ResizeState{
		Handle:      h,
		StartBounds: m.obj.Bounds,
		Constraints: m.opts.Constraints,
		Live:        m.obj.Bounds,
	}
	if !m.acquireLock() {
		m.phase = PhaseCancelled
		return machine.ErrLockUnavailable
	}
	m.phase = PhaseResizing
	m.obj.State = object.InteractionState{Kind: object.StateResizing, Resize: &m.state, Since: now}
	m.ses.Bus().Publish(event.NewChange(event.TopicResizeStarted, m.obj.ID, nil))
	m.sink.Apply(render.Update{
		ObjectID:     m.obj.ID,
		Kind:         render.Preview,
		ClassesAdded: []string{"resizing"},
		Cursor:       m.state.Handle.Cursor(),
	})
	return nil
}

// PointerMove feeds a pointer sample. Every sample reruns the
// constraint pipeline and previews the result. Shift locks the aspect
// ratio and Alt anchors the center for as long as they are held,
// including mid-gesture.
func (m *Machine) PointerMove(p geometry.Point, mods input.Modifier, now time.Time) error {
	if m.phase != PhaseResizing {
		return machine.ErrWrongPhase
	}
	m.updateLive(p, mods)
	return nil
}

func (m *Machine) acquireLock() bool {
	grant := m.ses.Locks().Acquire(arbiter.Request{
		ObjectID: m.obj.ID,
		Type:     arbiter.TypeResize,
		OnRevoke: func(r arbiter.ReleaseReason) { m.forceCancel(machine.FromRelease(r)) },
	})
	if grant.Decision != arbiter.Granted {
		m.log.Debug("resize lock denied for %s", m.obj.ID)
		m.ses.Bus().Publish(event.NewChange(event.TopicGestureRejected, m.obj.ID, event.RejectedPayload{
			Gesture: "resize",
			Reason:  "lock_unavailable",
		}))
		return false
	}
	m.lock = grant.Lock
	return true
}

// effective layers held modifiers over the configured constraints.
func (m *Machine) effective(mods input.Modifier) object.Constraints {
	c := m.opts.Constraints
	if mods.HasShift() && c.AspectRatio == 0 && m.state.StartBounds.Height > 0 {
		c.AspectRatio = m.state.StartBounds.Width / m.state.StartBounds.Height
	}
	if mods.HasAlt() {
		c.CenterAnchored = true
	}
	return c
}

func (m *Machine) updateLive(p geometry.Point, mods input.Modifier) {
	c := m.effective(mods)
	live, constrained := Constrain(m.state.StartBounds, m.state.Handle, p.Sub(m.start), c)
	m.state.Live = live
	m.state.Constrained = constrained
	m.state.Constraints = c

	m.sink.Apply(render.Update{
		ObjectID: m.obj.ID,
		Kind:     render.Preview,
		Bounds:   &live,
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicResizeLive, m.obj.ID, event.ResizedPayload{
		Handle:      m.state.Handle.String(),
		From:        m.state.StartBounds,
		To:          live,
		Constrained: constrained,
	}))
}

// PointerUp resolves the gesture and releases the lock. A release whose
// constrained bounds never left the start bounds, a handle click with
// no travel for instance, commits nothing and reports OutcomeNone.
func (m *Machine) PointerUp(p geometry.Point, mods input.Modifier, now time.Time) Outcome {
	if m.phase != PhaseResizing {
		return OutcomeNone
	}
	final, constrained := Constrain(m.state.StartBounds, m.state.Handle, p.Sub(m.start), m.effective(mods))
	from := m.state.StartBounds
	resized := !final.Equal(from)
	if resized {
		m.obj.Bounds = final
	}
	m.obj.SetState(object.StateIdle, now)
	m.phase = PhaseCompleted

	m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCompleted)
	m.lock = nil

	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"resizing"},
	})
	if !resized {
		return OutcomeNone
	}
	m.ses.Bus().Publish(event.NewChange(event.TopicObjectResized, m.obj.ID, event.ResizedPayload{
		Handle:      m.state.Handle.String(),
		From:        from,
		To:          final,
		Constrained: constrained,
	}))
	return OutcomeResized
}

// Cancel aborts the gesture and drops the preview. The committed bounds
// were never touched, so no restore write is needed. Cancelling an idle
// or terminal machine is a no-op.
func (m *Machine) Cancel(reason machine.CancelReason, now time.Time) {
	if m.phase != PhaseResizing {
		return
	}
	m.ses.Locks().Release(m.obj.ID, arbiter.ReasonCancelled)
	m.lock = nil
	m.finishCancel(reason, now)
}

// forceCancel runs on lock revocation. The lock is already gone, so it
// must not be released again.
func (m *Machine) forceCancel(reason machine.CancelReason) {
	if m.phase != PhaseResizing {
		return
	}
	m.lock = nil
	m.finishCancel(reason, time.Now())
}

func (m *Machine) finishCancel(reason machine.CancelReason, now time.Time) {
	m.phase = PhaseCancelled
	m.obj.SetState(object.StateIdle, now)
	m.sink.Apply(render.Update{
		ObjectID:       m.obj.ID,
		Kind:           render.Commit,
		Bounds:         &m.obj.Bounds,
		ClassesRemoved: []string{"resizing"},
	})
	m.ses.Bus().Publish(event.NewChange(event.TopicResizeCancelled, m.obj.ID, event.CancelledPayload{
		Reason:   string(reason),
		Restored: m.state.StartBounds,
	}))
	m.log.Debug("resize cancelled for %s: %s", m.obj.ID, reason)
}
