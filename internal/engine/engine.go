// Package engine wires the interaction core together: it owns the
// registry, the lock arbiter, the change bus and the anomaly detectors,
// classifies normalized input events into gestures, and routes the
// pointer stream to the state machine driving the current gesture.
//
// The engine is single-pointer: one gesture at a time. A drag whose
// drop is awaiting an embedder decision, or whose rejected item is
// flying back to its source, outlives the pointer-up and is ticked by
// Tick until it settles.
package engine

import (
	"time"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/auth"
	"github.com/formgrid/interact/internal/config"
	"github.com/formgrid/interact/internal/detect"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/gesture"
	"github.com/formgrid/interact/internal/input"
	"github.com/formgrid/interact/internal/machine"
	"github.com/formgrid/interact/internal/machine/dragdrop"
	"github.com/formgrid/interact/internal/machine/move"
	"github.com/formgrid/interact/internal/machine/resize"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
	"github.com/formgrid/interact/internal/session"
)

// DropFilter gates drops per item and zone, layered on top of each
// zone's own accept filter.
type DropFilter func(item object.ID, zone *dragdrop.Zone) bool

// Engine coordinates gesture classification, state machines, lock
// arbitration and anomaly detection for one form canvas.
type Engine struct {
	cfg config.Config

	log     *Logger
	metrics *Metrics
	sink    render.Sink

	bus      *event.Bus
	registry *object.Registry
	locks    *arbiter.Arbiter
	ses      *session.Context
	zones    *dragdrop.Zones
	monitor  *detect.Monitor
	stuck    *detect.StuckDetector
	clicks   *input.ClickTracker
	auth     *auth.Aspect

	dropFilter DropFilter
	dragFilter func(object.ID) bool

	// clock overrides the arbiter time source when non-nil.
	clock func() time.Time

	// region clamps move targets when non-nil (the canvas bounds).
	region *geometry.Rect

	classifier *gesture.Classifier
	pressObj   *object.TrackedObject
	pressAdd   bool
	mv         *move.Machine
	rs         *resize.Machine
	dd         *dragdrop.Machine

	// flights holds drag machines that outlived their pointer-up:
	// pending drops and return animations.
	flights map[object.ID]*dragdrop.Machine

	lastSample time.Time
	lastTick   time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSink sets the visual-update sink.
func WithSink(sink render.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithDropFilter installs an embedder drop predicate consulted for
// every candidate zone during a drag.
func WithDropFilter(fn DropFilter) Option {
	return func(e *Engine) { e.dropFilter = fn }
}

// WithDragFilter installs an embedder predicate consulted before a
// zone press starts a drag. An item the filter rejects never leaves its
// container; the press can still resolve as a selection click.
func WithDragFilter(fn func(object.ID) bool) Option {
	return func(e *Engine) { e.dragFilter = fn }
}

// WithRegion clamps move gestures inside the given canvas bounds.
func WithRegion(r geometry.Rect) Option {
	return func(e *Engine) { e.region = &r }
}

// WithClock overrides the arbiter's time source. Tests use this to
// expire locks without sleeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// New builds an engine from the configuration. The zero-value config
// is not usable; call config.Default or config.Load first.
func New(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     NewLogger(LoggerConfig{Level: ParseLogLevel(cfg.Logging.Level), Prefix: "interact"}),
		metrics: NewMetrics(),
		sink:    render.Discard,
		flights: make(map[object.ID]*dragdrop.Machine),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.bus = event.NewBus()
	e.registry = object.NewRegistry()

	arbOpts := []arbiter.Option{arbiter.WithTimeout(cfg.LockTimeout())}
	if e.clock != nil {
		arbOpts = append(arbOpts, arbiter.WithClock(e.clock))
	}
	e.locks = arbiter.New(arbOpts...)

	e.ses = session.New(e.registry, e.locks, e.bus)
	e.zones = dragdrop.NewZones()
	e.clicks = input.NewClickTracker(cfg.ClickInterval(), cfg.Gesture.ClickDistance)

	e.monitor = detect.NewMonitor(e.bus, e.log.WithComponent("detect"),
		detect.WithHistorySize(cfg.Detect.HistorySize),
		detect.WithJumpConfig(detect.JumpConfig{
			JumpDistance:  cfg.Detect.JumpDistance,
			MaxVelocity:   cfg.Detect.MaxVelocity,
			AccumDistance: cfg.Detect.AccumDistance,
			DriftDistance: cfg.Detect.DriftDistance,
		}),
		detect.WithSlingshotConfig(detect.SlingshotConfig{
			RubberBandDistance: cfg.Detect.RubberBandDistance,
			LaunchVelocity:     cfg.Detect.LaunchVelocity,
			MaxAcceleration:    cfg.Detect.MaxAcceleration,
		}))
	e.stuck = detect.NewStuckDetector(e.registry, e.locks, e.bus, e.sink,
		e.log.WithComponent("stuck"), detect.StuckConfig{
			WarnAfter:    time.Duration(cfg.Detect.StuckWarnSeconds) * time.Second,
			RecoverAfter: time.Duration(cfg.Detect.StuckRecoverSeconds) * time.Second,
		})

	e.auth = auth.New(e.bus, e.log.WithComponent("auth"))

	e.observe()
	return e
}

// observe subscribes the metrics collector to the change stream.
func (e *Engine) observe() {
	e.bus.Subscribe(event.TopicGestureRejected, func(c event.Change) {
		if p, ok := c.Payload.(event.RejectedPayload); ok && p.Reason == gesture.ReasonLockUnavailable {
			e.metrics.RecordLockDenied()
		}
	})
	e.bus.Subscribe(event.TopicAnomalyFlagged, func(event.Change) {
		e.metrics.RecordAnomaly()
	})
	e.bus.Subscribe(event.TopicForcedRecovery, func(event.Change) {
		e.metrics.RecordRecoveries(1)
	})
	preempted := func(c event.Change) {
		if p, ok := c.Payload.(event.CancelledPayload); ok && p.Reason == string(machine.CancelPreempted) {
			e.metrics.RecordLockPreempted()
		}
	}
	e.bus.Subscribe(event.TopicMoveCancelled, preempted)
	e.bus.Subscribe(event.TopicResizeCancelled, preempted)
	e.bus.Subscribe(event.TopicDragCancelled, preempted)

	granted := func(event.Change) { e.metrics.RecordLockGranted() }
	e.bus.Subscribe(event.TopicMoveStarted, granted)
	e.bus.Subscribe(event.TopicResizeStarted, granted)
	e.bus.Subscribe(event.TopicDragStarted, granted)
}

// Bus returns the change bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// Registry returns the tracked-object registry.
func (e *Engine) Registry() *object.Registry { return e.registry }

// Locks returns the conflict arbiter.
func (e *Engine) Locks() *arbiter.Arbiter { return e.locks }

// Session returns the session context.
func (e *Engine) Session() *session.Context { return e.ses }

// Zones returns the drop-zone registry.
func (e *Engine) Zones() *dragdrop.Zones { return e.zones }

// Auth returns the authentication aspect. Embedders feed provider
// results through it; filtered outcomes land on the bus as
// auth.completed changes.
func (e *Engine) Auth() *auth.Aspect { return e.auth }

// Monitor returns the anomaly monitor.
func (e *Engine) Monitor() *detect.Monitor { return e.monitor }

// Metrics returns the metrics collector.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Logger returns the engine logger.
func (e *Engine) Logger() *Logger { return e.log }

// HandleEvent feeds one normalized input event through classification
// and the active state machine.
func (e *Engine) HandleEvent(ev input.Event) {
	switch ev.Type {
	case input.EventDown:
		e.pointerDown(ev)
	case input.EventMove:
		e.pointerMove(ev)
	case input.EventUp:
		e.pointerUp(ev)
	case input.EventKey:
		e.key(ev)
	}
}

// handleUnder finds a resize handle under the pointer. Handles belong
// to selected objects only, and straddle the bounds edge, so they are
// checked before the plain hit test.
func (e *Engine) handleUnder(p geometry.Point) (*object.TrackedObject, object.Handle) {
	hit := e.cfg.Resize.HandleHitSize
	for _, id := range e.ses.Selected() {
		obj := e.registry.Get(id)
		if obj == nil || !obj.CanResize() {
			continue
		}
		if h := object.HandleAt(obj.Bounds, p, hit); h != object.HandleNone {
			return obj, h
		}
	}
	return nil, object.HandleNone
}

func (e *Engine) pointerDown(ev input.Event) {
	if e.classifier != nil && e.classifier.Active() {
		// A second contact while a gesture is live. Only the primary
		// pointer drives the core.
		return
	}

	obj, handle := e.handleUnder(ev.Position)
	if obj == nil {
		obj = e.registry.HitTest(ev.Position)
	}
	if obj == nil {
		if !ev.Modifiers.HasShift() {
			e.ses.ClearSelection()
		}
		e.clicks.Reset()
		return
	}

	e.classifier = gesture.New(
		gesture.WithThreshold(e.cfg.Gesture.Threshold),
		gesture.WithAxis(input.ParseAxis(e.cfg.Move.Axis)),
	)
	out := e.classifier.Begin(obj, ev.Position, handle, e.ses.Mode())
	if out.Kind == gesture.KindNone {
		e.metrics.RecordGesture(out.Kind.String())
		e.bus.Publish(event.NewChange(event.TopicGestureRejected, obj.ID, event.RejectedPayload{
			Gesture: "press",
			Reason:  out.Reason,
		}))
		e.classifier = nil
		return
	}

	e.pressObj = obj
	e.pressAdd = ev.Modifiers.HasShift()

	switch out.Kind {
	case gesture.KindResize:
		e.rs = resize.New(e.ses, obj, e.sink, e.log.WithComponent("resize"), resize.Options{
			Constraints: e.constraintsFor(),
		})
		if err := e.rs.PointerDown(ev.Position, out.Handle, ev.Timestamp); err != nil {
			if err != machine.ErrLockUnavailable {
				// Lock denials already published their rejection.
				e.log.Warn("resize down rejected for %s: %v", obj.ID, err)
			}
			e.resetGesture()
			return
		}
	default:
		if src := e.zones.At(ev.Position); src != nil && src.ID != obj.ID && obj.CanMove() {
			if e.dragFilter != nil && !e.dragFilter(obj.ID) {
				e.bus.Publish(event.NewChange(event.TopicGestureRejected, obj.ID, event.RejectedPayload{
					Gesture: "drag",
					Reason:  "filtered",
				}))
				return
			}
			// Pressing an item inside a registered container starts a
			// drag out of it rather than a free move.
			e.dd = dragdrop.New(e.ses, obj, e.sink, e.log.WithComponent("drag"), dragdrop.Options{
				Threshold:      e.cfg.Gesture.Threshold,
				SourceZone:     src.ID,
				Zones:          e.zones,
				CanDrop:        e.dropFilter,
				ReturnDuration: e.cfg.ReturnDuration(),
			})
			if err := e.dd.PointerDown(ev.Position, ev.Timestamp); err != nil {
				e.log.Warn("drag down rejected for %s: %v", obj.ID, err)
				e.resetGesture()
			}
			return
		}
		e.mv = move.New(e.ses, obj, e.sink, e.log.WithComponent("move"), move.Options{
			Threshold: e.cfg.Gesture.Threshold,
			Axis:      input.ParseAxis(e.cfg.Move.Axis),
			GridSize:  e.cfg.Move.GridSize,
			Region:    e.region,
		})
		if err := e.mv.PointerDown(ev.Position, ev.Timestamp); err != nil {
			e.log.Warn("move down rejected for %s: %v", obj.ID, err)
			e.resetGesture()
		}
	}
}

func (e *Engine) pointerMove(ev input.Event) {
	if e.classifier == nil || !e.classifier.Active() {
		return
	}
	e.classifier.Move(ev.Position)

	switch {
	case e.mv != nil:
		e.mv.PointerMove(ev.Position, ev.Timestamp)
	case e.rs != nil:
		e.rs.PointerMove(ev.Position, ev.Modifiers, ev.Timestamp)
	case e.dd != nil:
		e.dd.PointerMove(ev.Position, ev.Timestamp)
	}

	e.sample(ev.Timestamp)
}

func (e *Engine) pointerUp(ev input.Event) {
	if e.classifier == nil || !e.classifier.Active() {
		return
	}
	out := e.classifier.End()

	switch {
	case e.mv != nil:
		switch e.mv.PointerUp(ev.Position, ev.Timestamp) {
		case move.OutcomeSelection:
			e.resolveClick(ev)
		case move.OutcomeMoved:
			e.metrics.RecordGesture(gesture.KindMove.String())
		}
	case e.rs != nil:
		if e.rs.PointerUp(ev.Position, ev.Modifiers, ev.Timestamp) == resize.OutcomeResized {
			e.metrics.RecordGesture(gesture.KindResize.String())
		}
	case e.dd != nil:
		e.dd.PointerUp(ev.Position, ev.Timestamp)
		switch e.dd.Phase() {
		case dragdrop.PhaseCompleted, dragdrop.PhaseCancelled:
			if !e.classifierCrossed() {
				e.resolveClick(ev)
			}
		default:
			// Pending drop or return flight. The machine lives on
			// under Tick until the embedder or the tween settles it.
			e.metrics.RecordGesture("drag")
			e.flights[e.pressObj.ID] = e.dd
		}
	default:
		// A press with no machine behind it, a drag-filtered item for
		// instance. It can still resolve as a click.
		if out.Kind == gesture.KindSelection {
			e.resolveClick(ev)
		}
	}

	e.resetGesture()
}

// classifierCrossed reports whether the finished gesture ever crossed
// the movement threshold. The classifier resets at End, so the drag
// machine's phase is consulted instead.
func (e *Engine) classifierCrossed() bool {
	return e.dd != nil && e.dd.State().ValidTargets != nil
}

func (e *Engine) key(ev input.Event) {
	if ev.Key != input.KeyEscape {
		return
	}
	e.CancelActive(machine.CancelEscape, ev.Timestamp)
}

// resolveClick handles a press that never became a move: selection,
// and activation on double-click.
func (e *Engine) resolveClick(ev input.Event) {
	e.metrics.RecordGesture(gesture.KindSelection.String())
	obj := e.pressObj
	if obj == nil || !obj.CanSelect() {
		return
	}

	if e.pressAdd && e.ses.IsSelected(obj.ID) {
		e.ses.Deselect(obj.ID)
		e.clicks.Reset()
		return
	}
	e.ses.Select(obj.ID, e.pressAdd)

	if e.clicks.RecordClick(ev.Position, ev.Timestamp) >= 2 {
		e.bus.Publish(event.NewChange(event.TopicObjectActivated, obj.ID, nil))
		e.clicks.Reset()
	}
}

// CancelActive aborts the in-progress gesture, if any. Pending drops
// and return flights are cancelled too and snap to their end state.
func (e *Engine) CancelActive(reason machine.CancelReason, now time.Time) {
	switch {
	case e.mv != nil:
		e.mv.Cancel(reason, now)
	case e.rs != nil:
		e.rs.Cancel(reason, now)
	case e.dd != nil:
		e.dd.Cancel(reason, now)
	}
	if e.classifier != nil {
		e.classifier.Cancel()
	}
	for id, m := range e.flights {
		m.Cancel(reason, now)
		delete(e.flights, id)
	}
	e.resetGesture()
}

// Blur cancels the active gesture when the canvas loses focus.
func (e *Engine) Blur(now time.Time) {
	e.CancelActive(machine.CancelBlur, now)
}

// ResolveDrop completes an awaiting drop for the given item. The
// embedder calls this after its (possibly asynchronous) accept logic
// finishes.
func (e *Engine) ResolveDrop(item object.ID, accepted bool, reason string, now time.Time) error {
	m, ok := e.flights[item]
	if !ok {
		return machine.ErrWrongPhase
	}
	if err := m.ResolveDrop(accepted, reason, now); err != nil {
		return err
	}
	e.metrics.RecordDrop(accepted)
	if m.Phase() == dragdrop.PhaseCompleted {
		delete(e.flights, item)
	}
	return nil
}

// Tick advances time-driven work: lock expiry, stuck-state recovery,
// position sampling, return-flight animation and queued bus delivery.
// Call it on every frame, passing the frame time.
func (e *Engine) Tick(now time.Time) {
	e.metrics.RecordLockTimeouts(e.locks.Sweep(now))
	e.stuck.Scan(now)

	var dt float32
	if !e.lastTick.IsZero() {
		dt = float32(now.Sub(e.lastTick).Seconds())
	}
	e.lastTick = now

	for id, m := range e.flights {
		m.Update(dt, now)
		switch m.Phase() {
		case dragdrop.PhaseCompleted, dragdrop.PhaseCancelled:
			delete(e.flights, id)
		}
	}

	e.sample(now)
	e.bus.Drain()
}

// sample records positions of every registered object at the
// configured interval, feeding the anomaly detectors. Idle objects are
// sampled too: a jump or drift on an object nobody is dragging is
// exactly the kind of write the detectors exist to catch.
func (e *Engine) sample(now time.Time) {
	if now.Sub(e.lastSample) < e.cfg.SampleInterval() {
		return
	}
	e.lastSample = now
	for _, obj := range e.registry.List() {
		e.monitor.Record(obj, now)
	}
}

// DestroyObject removes an object mid-interaction: any lock is force
// released (cancelling the gesture via revocation), selection and
// detector history are dropped, and a zone registered under the same
// ID is unregistered.
func (e *Engine) DestroyObject(id object.ID, now time.Time) {
	e.locks.ForceRelease(id, arbiter.ReasonDestroyed)
	if e.pressObj != nil && e.pressObj.ID == id {
		if e.classifier != nil {
			e.classifier.Cancel()
		}
		e.resetGesture()
	}
	delete(e.flights, id)
	e.ses.Deselect(id)
	e.zones.Unregister(id)
	e.monitor.Forget(id)
	e.registry.Remove(id)
}

// ApplyConfig swaps in a reloaded configuration. Gestures already in
// flight keep the options they started with; detector thresholds and
// the log level take effect immediately.
func (e *Engine) ApplyConfig(cfg config.Config) {
	e.cfg = cfg
	e.log.SetLevel(ParseLogLevel(cfg.Logging.Level))
	e.monitor.Retune(detect.JumpConfig{
		JumpDistance:  cfg.Detect.JumpDistance,
		MaxVelocity:   cfg.Detect.MaxVelocity,
		AccumDistance: cfg.Detect.AccumDistance,
		DriftDistance: cfg.Detect.DriftDistance,
	}, detect.SlingshotConfig{
		RubberBandDistance: cfg.Detect.RubberBandDistance,
		LaunchVelocity:     cfg.Detect.LaunchVelocity,
		MaxAcceleration:    cfg.Detect.MaxAcceleration,
	})
	e.log.Info("configuration reloaded")
}

// Config returns the engine's current configuration.
func (e *Engine) Config() config.Config { return e.cfg }

func (e *Engine) resetGesture() {
	e.classifier = nil
	e.pressObj = nil
	e.pressAdd = false
	e.mv = nil
	e.rs = nil
	e.dd = nil
}

func (e *Engine) constraintsFor() object.Constraints {
	return object.Constraints{
		MinWidth:  e.cfg.Resize.MinWidth,
		MinHeight: e.cfg.Resize.MinHeight,
		MaxWidth:  e.cfg.Resize.MaxWidth,
		MaxHeight: e.cfg.Resize.MaxHeight,
		GridSize:  e.cfg.Move.GridSize,
	}
}
