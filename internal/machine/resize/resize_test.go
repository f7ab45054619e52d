package resize

import (
	"math"
	"testing"
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

func TestConstrain(t *testing.T) {
	start := geometry.Rect{X: 100, Y: 100, Width: 97, Height: 53}

	tests := []struct {
		name   string
		handle object.Handle
		delta  geometry.Delta
		c      object.Constraints
		want   geometry.Rect
	}{
		{
			name:   "se grows both dimensions",
			handle: object.HandleSE,
			delta:  geometry.Delta{DX: 50, DY: 30},
			want:   geometry.Rect{X: 100, Y: 100, Width: 147, Height: 83},
		},
		{
			name:   "nw shrinks and shifts origin",
			handle: object.HandleNW,
			delta:  geometry.Delta{DX: 10, DY: 5},
			want:   geometry.Rect{X: 110, Y: 105, Width: 87, Height: 48},
		},
		{
			name:   "east edge leaves height alone",
			handle: object.HandleE,
			delta:  geometry.Delta{DX: 20, DY: 40},
			want:   geometry.Rect{X: 100, Y: 100, Width: 117, Height: 53},
		},
		{
			name:   "min clamp keeps the anchored edge fixed",
			handle: object.HandleW,
			delta:  geometry.Delta{DX: 200, DY: 0},
			c:      object.Constraints{MinWidth: 40},
			// Right edge stays at 197 while the width floors at 40.
			want: geometry.Rect{X: 157, Y: 100, Width: 40, Height: 53},
		},
		{
			name:   "max clamp",
			handle: object.HandleSE,
			delta:  geometry.Delta{DX: 500, DY: 500},
			c:      object.Constraints{MaxWidth: 120, MaxHeight: 60},
			want:   geometry.Rect{X: 100, Y: 100, Width: 120, Height: 60},
		},
		{
			name:   "grid snaps dimensions half away from zero",
			handle: object.HandleSE,
			delta:  geometry.Delta{DX: 13, DY: 8},
			c:      object.Constraints{GridSize: 10},
			// Raw 110x61 snaps to 110x60.
			want: geometry.Rect{X: 100, Y: 100, Width: 110, Height: 60},
		},
		{
			name:   "grid snaps the derived origin on a west handle",
			handle: object.HandleW,
			delta:  geometry.Delta{DX: 13, DY: 0},
			c:      object.Constraints{GridSize: 10},
			// 84x53 snaps to 80x50; the anchored origin 117 snaps to 120.
			want: geometry.Rect{X: 120, Y: 100, Width: 80, Height: 50},
		},
		{
			name:   "aspect ratio follows the larger change",
			handle: object.HandleSE,
			delta:  geometry.Delta{DX: 103, DY: 7},
			c:      object.Constraints{AspectRatio: 2},
			// Width change dominates: 200 wide forces 100 tall.
			want: geometry.Rect{X: 100, Y: 100, Width: 200, Height: 100},
		},
		{
			name:   "center anchor splits growth both ways",
			handle: object.HandleE,
			delta:  geometry.Delta{DX: 20, DY: 0},
			c:      object.Constraints{CenterAnchored: true},
			want:   geometry.Rect{X: 90, Y: 100, Width: 117, Height: 53},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Constrain(start, tt.handle, tt.delta, tt.c)
			if !got.Equal(tt.want) {
				t.Errorf("Constrain() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConstrainOrderClampBeforeSnap(t *testing.T) {
	start := geometry.Rect{X: 0, Y: 0, Width: 50, Height: 50}
	c := object.Constraints{MaxWidth: 73, GridSize: 10}

	// Clamp to 73 first, then snap to 70; snap is the last word on size.
	got, changed := Constrain(start, object.HandleE, geometry.Delta{DX: 100}, c)
	if got.Width != 70 {
		t.Errorf("width = %v, want 70 (clamp then snap)", got.Width)
	}
	if !changed {
		t.Error("pipeline altered the raw rect, Constrained should be true")
	}
}

func TestConstrainCollapseAtZero(t *testing.T) {
	start := geometry.Rect{X: 100, Y: 100, Width: 40, Height: 40}

	// Dragging the east handle far past the west edge collapses to zero
	// width instead of flipping the rect.
	got, _ := Constrain(start, object.HandleE, geometry.Delta{DX: -200}, object.Constraints{})
	if got.Width != 0 {
		t.Errorf("width = %v, want 0", got.Width)
	}
}

type fixture struct {
	ses    *session.Context
	obj    *object.TrackedObject
	topics []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		obj: &object.TrackedObject{
			ID:           "panel",
			Bounds:       geometry.Rect{X: 100, Y: 100, Width: 80, Height: 60},
			Capabilities: object.Selectable | object.Resizable,
		},
	}
	reg := object.NewRegistry()
	reg.Add(f.obj)
	bus := event.NewBus()
	bus.Subscribe("**", func(c event.Change) { f.topics = append(f.topics, c.Topic.String()) })
	f.ses = session.New(reg, arbiter.New(), bus)
	return f
}

func (f *fixture) sawTopic(topic string) bool {
	for _, got := range f.topics {
		if got == topic {
			return true
		}
	}
	return false
}

func TestResizeCommitOnRelease(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	now := time.Now()

	if err := m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, now); err != nil {
		t.Fatalf("PointerDown() failed: %v", err)
	}
	m.PointerMove(geometry.Point{X: 230, Y: 190}, 0, now)
	if m.Phase() != PhaseResizing {
		t.Fatalf("Phase = %v, want resizing", m.Phase())
	}

	// Committed bounds are untouched while previewing.
	if f.obj.Bounds.Width != 80 {
		t.Errorf("width = %v mid-gesture, want 80", f.obj.Bounds.Width)
	}
	if m.State().Live.Width != 130 {
		t.Errorf("live width = %v, want 130", m.State().Live.Width)
	}

	out := m.PointerUp(geometry.Point{X: 230, Y: 190}, 0, now)
	if out != OutcomeResized {
		t.Fatalf("PointerUp() = %v, want resized", out)
	}
	want := geometry.Rect{X: 100, Y: 100, Width: 130, Height: 90}
	if !f.obj.Bounds.Equal(want) {
		t.Errorf("bounds = %+v, want %+v", f.obj.Bounds, want)
	}
	if f.ses.Locks().Holder("panel") != nil {
		t.Error("lock should be released after commit")
	}
	if !f.sawTopic("object.resized") {
		t.Errorf("topics = %v, want object.resized", f.topics)
	}
}

func TestResizeLocksAtPointerDown(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})

	if err := m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, time.Now()); err != nil {
		t.Fatalf("PointerDown() failed: %v", err)
	}
	if m.Phase() != PhaseResizing {
		t.Fatalf("Phase = %v after down, want resizing", m.Phase())
	}
	holder := f.ses.Locks().Holder("panel")
	if holder == nil || holder.Type != arbiter.TypeResize {
		t.Errorf("holder = %+v after down, want the resize lock", holder)
	}
	if !f.sawTopic("resize.started") {
		t.Errorf("topics = %v, want resize.started at down", f.topics)
	}
}

func TestResizeNoTravelCommitsNothing(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	now := time.Now()
	before := f.obj.Bounds

	m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, now)
	m.PointerMove(geometry.Point{X: 180, Y: 160}, 0, now)

	if out := m.PointerUp(geometry.Point{X: 180, Y: 160}, 0, now); out != OutcomeNone {
		t.Fatalf("PointerUp() = %v, want none", out)
	}
	if !f.obj.Bounds.Equal(before) {
		t.Errorf("bounds = %+v, want unchanged %+v", f.obj.Bounds, before)
	}
	if f.ses.Locks().Holder("panel") != nil {
		t.Error("lock should be released after a no-travel release")
	}
	if f.sawTopic("object.resized") {
		t.Errorf("topics = %v, object.resized should not be published", f.topics)
	}
}

func TestResizeLockDeniedAtPress(t *testing.T) {
	f := newFixture(t)
	// A drag outranks a resize, so the handle press is refused.
	f.ses.Locks().Acquire(arbiter.Request{ObjectID: "panel", Type: arbiter.TypeDrag})

	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	if err := m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, time.Now()); err != machine.ErrLockUnavailable {
		t.Fatalf("PointerDown() = %v, want ErrLockUnavailable", err)
	}
	if m.Phase() != PhaseCancelled {
		t.Errorf("Phase = %v, want cancelled", m.Phase())
	}
	if !f.sawTopic("gesture.rejected") {
		t.Errorf("topics = %v, want gesture.rejected", f.topics)
	}
}

func TestResizeRequiresHandle(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})

	if err := m.PointerDown(geometry.Point{}, object.HandleNone, time.Now()); err != machine.ErrUnknownHandle {
		t.Errorf("PointerDown(HandleNone) = %v, want ErrUnknownHandle", err)
	}
}

func TestShiftLocksAspectMidGesture(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	now := time.Now()

	m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, now)
	m.PointerMove(geometry.Point{X: 220, Y: 160}, 0, now)
	if m.State().Live.Height != 60 {
		t.Fatalf("height = %v without shift, want 60", m.State().Live.Height)
	}

	// Shift snapshots the start ratio (80:60), so a 40px width change
	// pulls height to 90.
	m.PointerMove(geometry.Point{X: 220, Y: 160}, input.ModShift, now)
	live := m.State().Live
	if live.Width != 120 || math.Abs(live.Height-90) > 1e-9 {
		t.Errorf("live = %+v with shift, want 120x90", live)
	}

	// Releasing shift drops the lock on the next sample.
	m.PointerMove(geometry.Point{X: 220, Y: 160}, 0, now)
	if m.State().Live.Height != 60 {
		t.Errorf("height = %v after shift released, want 60", m.State().Live.Height)
	}
}

func TestAltAnchorsCenter(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	now := time.Now()

	m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleE, now)
	m.PointerMove(geometry.Point{X: 220, Y: 160}, input.ModAlt, now)

	live := m.State().Live
	if live.Width != 120 {
		t.Fatalf("width = %v, want 120", live.Width)
	}
	// Center stays at (140, 130).
	if cx := live.X + live.Width/2; cx != 140 {
		t.Errorf("center x = %v, want 140", cx)
	}
}

func TestResizeCancelDropsPreview(t *testing.T) {
	f := newFixture(t)
	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	now := time.Now()
	before := f.obj.Bounds

	m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, now)
	m.PointerMove(geometry.Point{X: 260, Y: 220}, 0, now)
	m.Cancel(machine.CancelEscape, now)

	if m.Phase() != PhaseCancelled {
		t.Fatalf("Phase = %v, want cancelled", m.Phase())
	}
	if !f.obj.Bounds.Equal(before) {
		t.Errorf("bounds = %+v, want untouched %+v", f.obj.Bounds, before)
	}
	if f.ses.Locks().Holder("panel") != nil {
		t.Error("lock should be released on cancel")
	}
	if !f.sawTopic("resize.cancelled") {
		t.Errorf("topics = %v, want resize.cancelled", f.topics)
	}

	// Idempotent.
	published := len(f.topics)
	m.Cancel(machine.CancelEscape, now)
	if len(f.topics) != published {
		t.Error("second cancel should publish nothing")
	}
}

func TestResizePreemptsMove(t *testing.T) {
	f := newFixture(t)
	// A move gesture holds the lock; the resize request outranks it.
	revoked := false
	f.ses.Locks().Acquire(arbiter.Request{
		ObjectID: "panel",
		Type:     arbiter.TypeMove,
		OnRevoke: func(arbiter.ReleaseReason) { revoked = true },
	})

	m := New(f.ses, f.obj, render.Discard, nil, Options{})
	if err := m.PointerDown(geometry.Point{X: 180, Y: 160}, object.HandleSE, time.Now()); err != nil {
		t.Fatalf("PointerDown() failed: %v", err)
	}

	if m.Phase() != PhaseResizing {
		t.Fatalf("Phase = %v, want resizing after preemption", m.Phase())
	}
	if !revoked {
		t.Error("move lock should have been revoked")
	}
	holder := f.ses.Locks().Holder("panel")
	if holder == nil || holder.Type != arbiter.TypeResize {
		t.Errorf("holder = %+v, want the resize lock", holder)
	}
}
