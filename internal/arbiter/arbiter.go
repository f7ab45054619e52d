// Package arbiter implements the behavior conflict arbiter: a lock
// manager granting at most one active manipulation per tracked object,
// with fixed priority ordering (resize > move > drag), FIFO queueing,
// and wall-clock lock expiry.
//
// Selection needs no lock; only manipulations that mutate bounds pass
// through here. The arbiter is the sole authority over who may write an
// object's bounds: preemption and expiry revoke the holder through its
// revocation callback, which forces the owning state machine onto its
// cancellation path.
package arbiter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formgrid/interact/internal/object"
)

// Type is the kind of manipulation a lock protects.
type Type uint8

const (
	// TypeDrag is a container-to-container drag.
	TypeDrag Type = iota
	// TypeMove is an in-place move.
	TypeMove
	// TypeResize is a handle resize.
	TypeResize
)

// Priority returns the fixed precedence of the lock type. Higher wins:
// resize > move > drag.
func (t Type) Priority() int {
	switch t {
	case TypeResize:
		return 3
	case TypeMove:
		return 2
	default:
		return 1
	}
}

// String returns the lock type name.
func (t Type) String() string {
	switch t {
	case TypeResize:
		return "resize"
	case TypeMove:
		return "move"
	default:
		return "drag"
	}
}

// ReleaseReason records why a lock ended.
type ReleaseReason string

const (
	// ReasonCompleted means the gesture finished normally.
	ReasonCompleted ReleaseReason = "completed"
	// ReasonCancelled means the holder cancelled the gesture.
	ReasonCancelled ReleaseReason = "cancelled"
	// ReasonPreempted means a higher-priority request took the lock.
	ReasonPreempted ReleaseReason = "preempted"
	// ReasonTimeout means the lock passed its expiry with no release.
	ReasonTimeout ReleaseReason = "timeout"
	// ReasonDestroyed means the object was destroyed while locked.
	ReasonDestroyed ReleaseReason = "destroyed"
	// ReasonRecovered means the stuck-state detector cleared the lock.
	ReasonRecovered ReleaseReason = "recovered"
)

// Decision is the arbiter's answer to an acquire request.
type Decision uint8

const (
	// Rejected means the request was declined; no lock state changed.
	Rejected Decision = iota
	// Queued means the request waits for the current holder to release.
	Queued
	// Granted means the request now holds the lock.
	Granted
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Queued:
		return "queued"
	default:
		return "rejected"
	}
}

// Lock is an exclusive claim on one object's interaction state.
type Lock struct {
	// ID uniquely identifies this lock instance.
	ID string

	// ObjectID is the locked object.
	ObjectID object.ID

	// Type is the manipulation kind holding the lock.
	Type Type

	// AcquiredAt is when the lock was granted.
	AcquiredAt time.Time

	// ExpiresAt is when the lock times out if never released.
	ExpiresAt time.Time

	// onRevoke is invoked when the arbiter takes the lock away
	// (preemption, timeout, forced release). Never invoked for a
	// holder-initiated Release.
	onRevoke func(ReleaseReason)
}

// Request asks for a lock on an object.
type Request struct {
	// ObjectID is the object (or drop zone) to lock.
	ObjectID object.ID

	// Type determines priority.
	Type Type

	// OnRevoke is called when the lock is taken away from the holder.
	// The owning state machine uses this to run its forced-cancel path.
	OnRevoke func(ReleaseReason)

	// QueueOnBusy queues the request FIFO behind an equal-or-higher
	// priority holder instead of rejecting it. Used to serialize
	// concurrent drags claiming the same drop zone.
	QueueOnBusy bool

	// OnGrant is called when a queued request is eventually granted.
	// Required when QueueOnBusy is set.
	OnGrant func(*Lock)

	// Timeout overrides the arbiter's default lock expiry when positive.
	Timeout time.Duration
}

// Grant is the result of an acquire request.
type Grant struct {
	Decision Decision

	// Lock is non-nil only when Decision is Granted.
	Lock *Lock

	// Reason explains a rejection, e.g. "lock_unavailable".
	Reason string
}

// Stats reports arbiter counters.
type Stats struct {
	Granted   uint64
	Rejected  uint64
	Queuing   uint64
	Preempted uint64
	TimedOut  uint64
}

// DefaultTimeout is the lock expiry applied when a request does not
// override it.
const DefaultTimeout = 30 * time.Second

// Arbiter grants, queues, rejects, and expires locks.
type Arbiter struct {
	mu      sync.Mutex
	locks   map[object.ID]*Lock
	waiting map[object.ID][]Request

	timeout time.Duration
	now     func() time.Time

	stats Stats
}

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithTimeout sets the default lock expiry.
func WithTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an arbiter with no outstanding locks.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{
		locks:   make(map[object.ID]*Lock),
		waiting: make(map[object.ID][]Request),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire requests a lock. An unlocked object is always granted. A
// higher-priority request preempts the current holder, revoking it; an
// equal-or-lower priority request is queued when the request allows it,
// otherwise rejected. A request is never silently dropped.
func (a *Arbiter) Acquire(req Request) Grant {
	a.mu.Lock()

	existing := a.locks[req.ObjectID]
	if existing == nil {
		lock := a.grantLocked(req)
		a.mu.Unlock()
		return Grant{Decision: Granted, Lock: lock}
	}

	if req.Type.Priority() > existing.Type.Priority() {
		// Preempt: revoke outside the mutex so the holder's cancel
		// path can re-enter the arbiter.
		revoke := existing.onRevoke
		delete(a.locks, req.ObjectID)
		a.stats.Preempted++
		lock := a.grantLocked(req)
		a.mu.Unlock()

		if revoke != nil {
			revoke(ReasonPreempted)
		}
		return Grant{Decision: Granted, Lock: lock}
	}

	if req.QueueOnBusy {
		a.waiting[req.ObjectID] = append(a.waiting[req.ObjectID], req)
		a.stats.Queuing++
		a.mu.Unlock()
		return Grant{Decision: Queued}
	}

	a.stats.Rejected++
	a.mu.Unlock()
	return Grant{Decision: Rejected, Reason: "lock_unavailable"}
}

// grantLocked creates and records a lock. Caller holds the mutex.
func (a *Arbiter) grantLocked(req Request) *Lock {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}
	now := a.now()
	lock := &Lock{
		ID:         uuid.NewString(),
		ObjectID:   req.ObjectID,
		Type:       req.Type,
		AcquiredAt: now,
		ExpiresAt:  now.Add(timeout),
		onRevoke:   req.OnRevoke,
	}
	a.locks[req.ObjectID] = lock
	a.stats.Granted++
	return lock
}

// Release ends the holder's claim. The holder's revocation callback is
// not invoked; this is the holder-initiated path for completion and
// cancellation. Returns false if no lock was held. The head of the wait
// queue, if any, is granted before Release returns.
func (a *Arbiter) Release(id object.ID, _ ReleaseReason) bool {
	a.mu.Lock()
	lock := a.locks[id]
	if lock == nil {
		a.mu.Unlock()
		return false
	}
	delete(a.locks, id)
	next, grantNext := a.popWaiterLocked(id)
	a.mu.Unlock()

	if grantNext != nil {
		grantNext(next)
	}
	return true
}

// ForceRelease takes the lock away from its holder, invoking the
// revocation callback. Used by the stuck-state detector and by object
// destruction. A no-op when the object is not locked.
func (a *Arbiter) ForceRelease(id object.ID, reason ReleaseReason) bool {
	a.mu.Lock()
	lock := a.locks[id]
	if lock == nil {
		a.mu.Unlock()
		return false
	}
	revoke := lock.onRevoke
	delete(a.locks, id)
	next, grantNext := a.popWaiterLocked(id)
	a.mu.Unlock()

	if revoke != nil {
		revoke(reason)
	}
	if grantNext != nil {
		grantNext(next)
	}
	return true
}

// popWaiterLocked dequeues and grants the next waiting request for the
// object, returning the lock and the waiter's grant callback to invoke
// after the mutex is dropped. Caller holds the mutex.
func (a *Arbiter) popWaiterLocked(id object.ID) (*Lock, func(*Lock)) {
	queue := a.waiting[id]
	if len(queue) == 0 {
		return nil, nil
	}
	req := queue[0]
	if len(queue) == 1 {
		delete(a.waiting, id)
	} else {
		a.waiting[id] = queue[1:]
	}
	lock := a.grantLocked(req)
	if req.OnGrant == nil {
		return lock, nil
	}
	return lock, func(l *Lock) { req.OnGrant(l) }
}

// Holder returns the current lock on an object, or nil.
func (a *Arbiter) Holder(id object.ID) *Lock {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locks[id]
}

// Sweep expires every lock past its deadline, revoking holders with
// ReasonTimeout, and returns the number expired. The engine calls this
// on its timer tick.
func (a *Arbiter) Sweep(now time.Time) int {
	a.mu.Lock()
	type expiry struct {
		id     object.ID
		revoke func(ReleaseReason)
	}
	var expired []expiry
	for id, lock := range a.locks {
		if now.After(lock.ExpiresAt) {
			expired = append(expired, expiry{id: id, revoke: lock.onRevoke})
			delete(a.locks, id)
			a.stats.TimedOut++
		}
	}
	type deferred struct {
		lock  *Lock
		grant func(*Lock)
	}
	var grants []deferred
	for _, e := range expired {
		if lock, fn := a.popWaiterLocked(e.id); fn != nil {
			grants = append(grants, deferred{lock: lock, grant: fn})
		}
	}
	a.mu.Unlock()

	for _, e := range expired {
		if e.revoke != nil {
			e.revoke(ReasonTimeout)
		}
	}
	for _, g := range grants {
		g.grant(g.lock)
	}
	return len(expired)
}

// Stats returns a snapshot of the arbiter counters.
func (a *Arbiter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
