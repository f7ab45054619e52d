package arbiter

import (
	"testing"
	"time"
)

func TestAcquireUnlocked(t *testing.T) {
	a := New()

	grant := a.Acquire(Request{ObjectID: "box", Type: TypeMove})
	if grant.Decision != Granted {
		t.Fatalf("Decision = %v, want Granted", grant.Decision)
	}
	if grant.Lock == nil || grant.Lock.ObjectID != "box" {
		t.Fatalf("Lock = %+v, want lock on box", grant.Lock)
	}
	if grant.Lock.ID == "" {
		t.Error("lock ID should be populated")
	}
	if a.Holder("box") == nil {
		t.Error("Holder() should report the lock")
	}
}

func TestMutualExclusion(t *testing.T) {
	a := New()

	first := a.Acquire(Request{ObjectID: "box", Type: TypeMove})
	if first.Decision != Granted {
		t.Fatalf("first acquire: %v", first.Decision)
	}

	// Equal priority without queueing: rejected, never double-granted.
	second := a.Acquire(Request{ObjectID: "box", Type: TypeMove})
	if second.Decision != Rejected {
		t.Fatalf("second acquire: %v, want Rejected", second.Decision)
	}
	if second.Reason != "lock_unavailable" {
		t.Errorf("Reason = %q, want lock_unavailable", second.Reason)
	}
	if holder := a.Holder("box"); holder == nil || holder.ID != first.Lock.ID {
		t.Error("original holder must survive a rejected request")
	}
}

func TestPriorityPreemption(t *testing.T) {
	a := New()

	var revoked ReleaseReason
	move := a.Acquire(Request{
		ObjectID: "box",
		Type:     TypeMove,
		OnRevoke: func(r ReleaseReason) { revoked = r },
	})
	if move.Decision != Granted {
		t.Fatalf("move acquire: %v", move.Decision)
	}

	resize := a.Acquire(Request{ObjectID: "box", Type: TypeResize})
	if resize.Decision != Granted {
		t.Fatalf("resize acquire: %v, want Granted via preemption", resize.Decision)
	}
	if revoked != ReasonPreempted {
		t.Errorf("move revoked with %q, want %q", revoked, ReasonPreempted)
	}
	if holder := a.Holder("box"); holder == nil || holder.Type != TypeResize {
		t.Errorf("holder = %+v, want resize lock", holder)
	}

	stats := a.Stats()
	if stats.Preempted != 1 {
		t.Errorf("Preempted = %d, want 1", stats.Preempted)
	}
}

func TestLowerPriorityCannotPreempt(t *testing.T) {
	a := New()

	a.Acquire(Request{ObjectID: "box", Type: TypeResize})
	grant := a.Acquire(Request{ObjectID: "box", Type: TypeDrag})
	if grant.Decision != Rejected {
		t.Errorf("drag against resize: %v, want Rejected", grant.Decision)
	}
}

func TestQueueFIFO(t *testing.T) {
	a := New()

	a.Acquire(Request{ObjectID: "zone", Type: TypeDrag})

	var grantsInOrder []string
	for _, name := range []string{"first", "second"} {
		name := name
		grant := a.Acquire(Request{
			ObjectID:    "zone",
			Type:        TypeDrag,
			QueueOnBusy: true,
			OnGrant:     func(*Lock) { grantsInOrder = append(grantsInOrder, name) },
		})
		if grant.Decision != Queued {
			t.Fatalf("queueing %s: %v, want Queued", name, grant.Decision)
		}
	}

	a.Release("zone", ReasonCompleted)
	if len(grantsInOrder) != 1 || grantsInOrder[0] != "first" {
		t.Fatalf("after first release, grants = %v", grantsInOrder)
	}

	a.Release("zone", ReasonCompleted)
	if len(grantsInOrder) != 2 || grantsInOrder[1] != "second" {
		t.Fatalf("after second release, grants = %v", grantsInOrder)
	}
}

func TestReleaseDoesNotRevoke(t *testing.T) {
	a := New()

	revoked := false
	a.Acquire(Request{
		ObjectID: "box",
		Type:     TypeMove,
		OnRevoke: func(ReleaseReason) { revoked = true },
	})

	if !a.Release("box", ReasonCompleted) {
		t.Fatal("Release should report a held lock")
	}
	if revoked {
		t.Error("holder-initiated release must not invoke OnRevoke")
	}
	if a.Release("box", ReasonCompleted) {
		t.Error("second release should report no lock")
	}
}

func TestForceRelease(t *testing.T) {
	a := New()

	var reason ReleaseReason
	a.Acquire(Request{
		ObjectID: "box",
		Type:     TypeMove,
		OnRevoke: func(r ReleaseReason) { reason = r },
	})

	if !a.ForceRelease("box", ReasonRecovered) {
		t.Fatal("ForceRelease should report a held lock")
	}
	if reason != ReasonRecovered {
		t.Errorf("revoke reason = %q, want %q", reason, ReasonRecovered)
	}
	if a.ForceRelease("box", ReasonRecovered) {
		t.Error("force release on unlocked object should be a no-op")
	}
}

func TestSweepExpiresLocks(t *testing.T) {
	now := time.Now()
	a := New(WithClock(func() time.Time { return now }), WithTimeout(30*time.Second))

	var reason ReleaseReason
	a.Acquire(Request{
		ObjectID: "box",
		Type:     TypeMove,
		OnRevoke: func(r ReleaseReason) { reason = r },
	})

	// Before expiry: nothing happens.
	if n := a.Sweep(now.Add(29 * time.Second)); n != 0 {
		t.Errorf("early Sweep() = %d, want 0", n)
	}

	// After expiry: lock revoked with timeout.
	if n := a.Sweep(now.Add(31 * time.Second)); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if reason != ReasonTimeout {
		t.Errorf("revoke reason = %q, want %q", reason, ReasonTimeout)
	}
	if a.Holder("box") != nil {
		t.Error("expired lock should be gone")
	}
	if a.Stats().TimedOut != 1 {
		t.Errorf("TimedOut = %d, want 1", a.Stats().TimedOut)
	}
}

func TestRequestTimeoutOverride(t *testing.T) {
	now := time.Now()
	a := New(WithClock(func() time.Time { return now }))

	grant := a.Acquire(Request{ObjectID: "box", Type: TypeDrag, Timeout: time.Second})
	want := now.Add(time.Second)
	if !grant.Lock.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", grant.Lock.ExpiresAt, want)
	}
}

func TestPreemptedWaiterPromotion(t *testing.T) {
	a := New()

	a.Acquire(Request{ObjectID: "zone", Type: TypeDrag})

	granted := false
	a.Acquire(Request{
		ObjectID:    "zone",
		Type:        TypeDrag,
		QueueOnBusy: true,
		OnGrant:     func(*Lock) { granted = true },
	})

	// Forced release promotes the waiter too.
	a.ForceRelease("zone", ReasonDestroyed)
	if !granted {
		t.Error("waiter should be promoted after forced release")
	}
}
