package detect

import (
	"time"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/machine"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
)

// Stuck-state thresholds.
const (
	// DefaultWarnAfter is how long an object may sit in one non-idle
	// state before it is logged.
	DefaultWarnAfter = 3 * time.Second

	// DefaultRecoverAfter is the hard ceiling past which the detector
	// forces the object back to idle.
	DefaultRecoverAfter = 5 * time.Second
)

// StuckConfig holds the stuck-state thresholds.
type StuckConfig struct {
	WarnAfter    time.Duration
	RecoverAfter time.Duration
}

// StuckDetector scans for gestures that failed to reach a terminal
// state. It is the self-healing backstop: past the hard ceiling it
// clears the object's lock, resets its interaction state, and strips
// transient visual markers.
type StuckDetector struct {
	reg   *object.Registry
	locks *arbiter.Arbiter
	bus   *event.Bus
	sink  render.Sink
	log   machine.Logger
	cfg   StuckConfig

	warned map[object.ID]bool
}

// NewStuckDetector builds the detector. Zero-valued config fields get
// defaults; a nil sink or log discards output.
func NewStuckDetector(reg *object.Registry, locks *arbiter.Arbiter, bus *event.Bus, sink render.Sink, log machine.Logger, cfg StuckConfig) *StuckDetector {
	if cfg.WarnAfter <= 0 {
		cfg.WarnAfter = DefaultWarnAfter
	}
	if cfg.RecoverAfter <= 0 {
		cfg.RecoverAfter = DefaultRecoverAfter
	}
	if sink == nil {
		sink = render.Discard
	}
	if log == nil {
		log = machine.NopLogger{}
	}
	return &StuckDetector{
		reg:    reg,
		locks:  locks,
		bus:    bus,
		sink:   sink,
		log:    log,
		cfg:    cfg,
		warned: make(map[object.ID]bool),
	}
}

// Scan examines every non-idle object and returns how many it forcibly
// recovered. The engine calls this on its timer tick. Recovering an
// object that has already gone idle is a no-op.
func (d *StuckDetector) Scan(now time.Time) int {
	recovered := 0
	active := make(map[object.ID]bool)
	for _, obj := range d.reg.Active() {
		active[obj.ID] = true
		held := now.Sub(obj.State.Since)
		switch {
		case held >= d.cfg.RecoverAfter:
			d.recover(obj, held, now)
			recovered++
		case held >= d.cfg.WarnAfter && !d.warned[obj.ID]:
			d.warned[obj.ID] = true
			d.log.Warn("object %s stuck in %s for %.1fs", obj.ID, obj.State.Kind, held.Seconds())
		}
	}
	for id := range d.warned {
		if !active[id] {
			delete(d.warned, id)
		}
	}
	return recovered
}

// recover forces one wedged object back to idle. Revoking the lock
// first gives the owning state machine its normal forced-cancel path;
// the explicit reset after it is the backstop for a machine that never
// registered a lock or mishandled the revocation.
func (d *StuckDetector) recover(obj *object.TrackedObject, held time.Duration, now time.Time) {
	stuckIn := obj.State.Kind.String()
	d.log.Warn("forcing recovery of %s after %.1fs in %s", obj.ID, held.Seconds(), stuckIn)

	d.locks.ForceRelease(obj.ID, arbiter.ReasonRecovered)
	if !obj.State.Idle() {
		obj.SetState(object.StateIdle, now)
	}
	delete(d.warned, obj.ID)

	d.sink.Apply(render.Update{
		ObjectID:       obj.ID,
		Kind:           render.Commit,
		Bounds:         &obj.Bounds,
		ClassesRemoved: []string{"moving", "resizing", "dragging"},
	})
	d.bus.Publish(event.NewChange(event.TopicForcedRecovery, obj.ID, event.RecoveryPayload{
		StuckIn: stuckIn,
		HeldFor: held.Seconds(),
	}))
}
