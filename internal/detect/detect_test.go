package detect

import (
	"testing"
	"time"

	"github.com/formgrid/interact/internal/arbiter"
	"github.com/formgrid/interact/internal/event"
	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
	"github.com/formgrid/interact/internal/render"
)

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		h.Push(Sample{Position: geometry.Point{X: float64(i)}, Timestamp: base})
	}
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	// Oldest two evicted.
	if h.At(0).Position.X != 2 || h.Last().Position.X != 4 {
		t.Errorf("ring holds %v..%v, want 2..4", h.At(0).Position.X, h.Last().Position.X)
	}
	tail := h.Tail(2)
	if len(tail) != 2 || tail[0].Position.X != 3 {
		t.Errorf("Tail(2) = %v, want samples 3 and 4", tail)
	}
}

func pushAt(h *History, x, y float64, at time.Time, v float64, state object.StateKind) {
	h.Push(Sample{Position: geometry.Point{X: x, Y: y}, Timestamp: at, Velocity: v, State: state})
}

func TestJumpDetector(t *testing.T) {
	base := time.Now()

	t.Run("sudden jump while idle", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		pushAt(h, 0, 0, base, 0, object.StateIdle)
		pushAt(h, 500, 0, base.Add(100*time.Millisecond), 0, object.StateIdle)
		if got := kinds(d.Check(h)); !contains(got, KindSuddenJump) {
			t.Errorf("anomalies = %v, want sudden_jump", got)
		}
	})

	t.Run("large travel during a drag is normal", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		pushAt(h, 0, 0, base, 0, object.StateDragging)
		pushAt(h, 500, 0, base.Add(time.Second), 500, object.StateDragging)
		if got := kinds(d.Check(h)); contains(got, KindSuddenJump) {
			t.Errorf("anomalies = %v, drag travel should not flag", got)
		}
	})

	t.Run("velocity overflow", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		pushAt(h, 0, 0, base, 0, object.StateMoving)
		pushAt(h, 60, 0, base.Add(20*time.Millisecond), 3000, object.StateMoving)
		if got := kinds(d.Check(h)); !contains(got, KindVelocityOverflow) {
			t.Errorf("anomalies = %v, want velocity_overflow", got)
		}
	})

	t.Run("offset accumulation", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		// Five samples marching 60px right each step: 240px monotone.
		for i := 0; i < 5; i++ {
			pushAt(h, float64(i*60), 0, base.Add(time.Duration(i)*100*time.Millisecond), 0, object.StateIdle)
		}
		if got := kinds(d.Check(h)); !contains(got, KindOffsetAccum) {
			t.Errorf("anomalies = %v, want offset_accumulation", got)
		}
	})

	t.Run("direction change defeats accumulation", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		xs := []float64{0, 60, 120, 60, 120}
		for i, x := range xs {
			pushAt(h, x, 0, base.Add(time.Duration(i)*100*time.Millisecond), 0, object.StateIdle)
		}
		if got := kinds(d.Check(h)); contains(got, KindOffsetAccum) {
			t.Errorf("anomalies = %v, reversing movement should not flag", got)
		}
	})

	t.Run("position drift", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		// 250px over 50 seconds: 5px/s, slow but large, no gesture.
		for i := 0; i <= 5; i++ {
			pushAt(h, float64(i)*50, 0, base.Add(time.Duration(i)*10*time.Second), 5, object.StateIdle)
		}
		if got := kinds(d.Check(h)); !contains(got, KindPositionDrift) {
			t.Errorf("anomalies = %v, want position_drift", got)
		}
	})

	t.Run("layout thrash", func(t *testing.T) {
		d := NewJumpDetector(JumpConfig{})
		h := NewHistory(0)
		// Five samples 20ms apart, each jumping 20px.
		xs := []float64{0, 20, 0, 20, 0}
		for i, x := range xs {
			pushAt(h, x, 0, base.Add(time.Duration(i)*20*time.Millisecond), 0, object.StateIdle)
		}
		if got := kinds(d.Check(h)); !contains(got, KindLayoutThrash) {
			t.Errorf("anomalies = %v, want layout_thrash", got)
		}
	})
}

func TestSlingshotDetector(t *testing.T) {
	base := time.Now()

	t.Run("launch", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		h := NewHistory(0)
		pushAt(h, 0, 0, base, 0, object.StateMoving)
		pushAt(h, 100, 0, base.Add(20*time.Millisecond), 3500, object.StateMoving)
		if got := kinds(d.Check("a", h)); !contains(got, KindLaunch) {
			t.Errorf("anomalies = %v, want launch", got)
		}
	})

	t.Run("momentum error", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		h := NewHistory(0)
		// Velocity steps 100 -> 1500 px/s in 100ms: 14000 px/s^2.
		pushAt(h, 0, 0, base, 100, object.StateMoving)
		pushAt(h, 150, 0, base.Add(100*time.Millisecond), 1500, object.StateMoving)
		if got := kinds(d.Check("a", h)); !contains(got, KindMomentumError) {
			t.Errorf("anomalies = %v, want momentum_error", got)
		}
	})

	t.Run("oscillation", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		h := NewHistory(0)
		// Four direction flips within the window.
		xs := []float64{0, 50, 0, 50, 0, 50}
		for i, x := range xs {
			pushAt(h, x, 0, base.Add(time.Duration(i)*100*time.Millisecond), 0, object.StateMoving)
		}
		if got := kinds(d.Check("a", h)); !contains(got, KindOscillation) {
			t.Errorf("anomalies = %v, want oscillation", got)
		}
	})

	t.Run("rubber band", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		h := NewHistory(0)
		// Out 200px during a drag, then snapped back to 20px within
		// 200ms.
		pushAt(h, 0, 0, base, 0, object.StateDragging)
		pushAt(h, 200, 0, base.Add(300*time.Millisecond), 0, object.StateDragging)
		pushAt(h, 20, 0, base.Add(500*time.Millisecond), 0, object.StateDragging)
		if got := kinds(d.Check("a", h)); !contains(got, KindRubberBand) {
			t.Errorf("anomalies = %v, want rubber_band", got)
		}
	})

	t.Run("slow return is not rubber band", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		h := NewHistory(0)
		pushAt(h, 0, 0, base, 0, object.StateDragging)
		pushAt(h, 200, 0, base.Add(300*time.Millisecond), 0, object.StateDragging)
		pushAt(h, 20, 0, base.Add(2*time.Second), 0, object.StateDragging)
		if got := kinds(d.Check("a", h)); contains(got, KindRubberBand) {
			t.Errorf("anomalies = %v, slow return should not flag", got)
		}
	})

	t.Run("overshoot", func(t *testing.T) {
		d := NewSlingshotDetector(SlingshotConfig{})
		d.SetTarget("a", geometry.Point{X: 100})
		h := NewHistory(0)
		positions := []float64{0, 60, 95, 140}
		var got []string
		for i, x := range positions {
			pushAt(h, x, 0, base.Add(time.Duration(i)*100*time.Millisecond), 0, object.StateMoving)
			got = append(got, kinds(d.Check("a", h))...)
		}
		if !contains(got, KindOvershoot) {
			t.Errorf("anomalies = %v, want overshoot", got)
		}
	})
}

func TestMonitorPublishesWithCooldown(t *testing.T) {
	bus := event.NewBus()
	var flagged []event.AnomalyPayload
	bus.Subscribe(event.TopicAnomalyFlagged, func(c event.Change) {
		flagged = append(flagged, c.Payload.(event.AnomalyPayload))
	})

	m := NewMonitor(bus, nil, WithCooldown(time.Minute))
	obj := &object.TrackedObject{ID: "box"}
	base := time.Now()

	m.Record(obj, base)
	obj.Bounds.X = 500 // teleport with no gesture
	m.Record(obj, base.Add(100*time.Millisecond))
	obj.Bounds.X = 1100
	m.Record(obj, base.Add(200*time.Millisecond))

	jumps := 0
	for _, p := range flagged {
		if p.Kind == KindSuddenJump {
			jumps++
		}
	}
	if jumps != 1 {
		t.Errorf("sudden_jump published %d times, want 1 inside cooldown", jumps)
	}
}

func TestRecordTagsWriterSource(t *testing.T) {
	m := NewMonitor(event.NewBus(), nil)
	obj := &object.TrackedObject{ID: "box"}
	base := time.Now()

	m.Record(obj, base)
	obj.State = object.InteractionState{Kind: object.StateMoving, Since: base}
	m.Record(obj, base.Add(100*time.Millisecond))

	h := m.History("box")
	if got := h.At(0).Source; got != SourceExternal {
		t.Errorf("idle sample source = %q, want %q", got, SourceExternal)
	}
	if got := h.At(1).Source; got != SourceGesture {
		t.Errorf("moving sample source = %q, want %q", got, SourceGesture)
	}
}

func TestMonitorForget(t *testing.T) {
	m := NewMonitor(event.NewBus(), nil)
	obj := &object.TrackedObject{ID: "box"}
	m.Record(obj, time.Now())
	if m.History("box") == nil {
		t.Fatal("expected a history for recorded object")
	}
	m.Forget("box")
	if m.History("box") != nil {
		t.Error("history should be purged after Forget")
	}
}

func TestStuckDetector(t *testing.T) {
	reg := object.NewRegistry()
	locks := arbiter.New()
	bus := event.NewBus()
	var recoveries []event.RecoveryPayload
	bus.Subscribe(event.TopicForcedRecovery, func(c event.Change) {
		recoveries = append(recoveries, c.Payload.(event.RecoveryPayload))
	})

	base := time.Now()
	obj := &object.TrackedObject{ID: "box", Capabilities: object.Movable}
	reg.Add(obj)
	obj.SetState(object.StateMoving, base)

	revoked := false
	locks.Acquire(arbiter.Request{
		ObjectID: "box",
		Type:     arbiter.TypeMove,
		OnRevoke: func(arbiter.ReleaseReason) { revoked = true },
	})

	d := NewStuckDetector(reg, locks, bus, render.Discard, nil, StuckConfig{})

	// Inside the warn threshold: nothing happens.
	if n := d.Scan(base.Add(2 * time.Second)); n != 0 {
		t.Fatalf("Scan(2s) recovered %d, want 0", n)
	}
	// Past warn, under the ceiling: still no intervention.
	if n := d.Scan(base.Add(4 * time.Second)); n != 0 {
		t.Fatalf("Scan(4s) recovered %d, want 0", n)
	}
	if len(recoveries) != 0 {
		t.Fatal("no recovery event expected before the hard ceiling")
	}

	// Past the ceiling: forced recovery.
	if n := d.Scan(base.Add(6 * time.Second)); n != 1 {
		t.Fatalf("Scan(6s) recovered %d, want 1", n)
	}
	if !revoked {
		t.Error("lock should have been revoked")
	}
	if !obj.State.Idle() {
		t.Error("object should be idle after recovery")
	}
	if locks.Holder("box") != nil {
		t.Error("lock should be cleared")
	}
	if len(recoveries) != 1 || recoveries[0].StuckIn != "moving" {
		t.Errorf("recoveries = %+v, want one flag for the moving state", recoveries)
	}

	// Idempotent: the object is idle now, a rescan does nothing.
	if n := d.Scan(base.Add(12 * time.Second)); n != 0 {
		t.Errorf("rescan recovered %d, want 0", n)
	}
	if len(recoveries) != 1 {
		t.Errorf("recovery events = %d after rescan, want still 1", len(recoveries))
	}
}

func kinds(anomalies []Anomaly) []string {
	out := make([]string, len(anomalies))
	for i, a := range anomalies {
		out[i] = a.Kind
	}
	return out
}

func contains(list []string, want string) bool {
	for _, got := range list {
		if got == want {
			return true
		}
	}
	return false
}
