package event

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/formgrid/interact/internal/event/topic"
)

// Handler consumes a change notification. Handlers must treat the change
// as immutable.
type Handler func(Change)

// DeliveryMode selects when a subscriber's handler runs.
type DeliveryMode uint8

const (
	// DeliverSync runs the handler inside the Publish call, preserving
	// per-object ordering by construction.
	DeliverSync DeliveryMode = iota

	// DeliverQueued buffers the change; handlers run when the engine
	// drains the queue at the end of the current input frame.
	DeliverQueued
)

// Subscription is a live registration on the bus.
type Subscription struct {
	id      string
	pattern topic.Topic
	handler Handler
	mode    DeliveryMode
	once    bool
	filter  func(Change) bool

	cancelled atomic.Bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the topic pattern the subscription matches.
func (s *Subscription) Pattern() topic.Topic { return s.pattern }

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithQueued buffers deliveries until the engine drains the queue.
func WithQueued() SubscribeOption {
	return func(s *Subscription) { s.mode = DeliverQueued }
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscribeOption {
	return func(s *Subscription) { s.once = true }
}

// WithFilter drops changes the predicate rejects before delivery.
func WithFilter(fn func(Change) bool) SubscribeOption {
	return func(s *Subscription) { s.filter = fn }
}

// Stats reports bus counters.
type Stats struct {
	Published   uint64
	Delivered   uint64
	Dropped     uint64
	Subscribers int
	QueueDepth  int
}

// Bus routes change notifications to pattern subscriptions. It is safe
// for concurrent use, though the core publishes from a single event loop.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription

	queueMu sync.Mutex
	queue   []delivery

	maxQueue int

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

type delivery struct {
	sub    *Subscription
	change Change
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithQueueCapacity bounds the queued-delivery buffer. Zero or negative
// leaves the default in place.
func WithQueueCapacity(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.maxQueue = n
		}
	}
}

// defaultQueueCapacity bounds queued deliveries between drains.
const defaultQueueCapacity = 1024

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{maxQueue: defaultQueueCapacity}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for every change whose topic matches the
// pattern. Patterns may use "*" and "**" wildcards.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscribeOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if pattern == "" {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		pattern: pattern,
		handler: handler,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	sub.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish routes a change to all matching subscriptions. Sync handlers
// run before Publish returns, in subscription order; queued handlers run
// on the next Drain. Changes published for the same object are therefore
// delivered to each subscriber in causal order.
func (b *Bus) Publish(change Change) {
	b.published.Add(1)

	b.mu.RLock()
	matched := make([]*Subscription, 0, 4)
	for _, sub := range b.subs {
		if sub.cancelled.Load() {
			continue
		}
		if !change.Topic.Match(sub.pattern) {
			continue
		}
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		matched = append(matched, sub)
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		switch sub.mode {
		case DeliverQueued:
			if err := b.enqueue(sub, change); err != nil {
				b.dropped.Add(1)
				continue
			}
		default:
			b.deliver(sub, change)
		}
	}
}

func (b *Bus) enqueue(sub *Subscription, change Change) error {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	if len(b.queue) >= b.maxQueue {
		return ErrQueueFull
	}
	b.queue = append(b.queue, delivery{sub: sub, change: change})
	return nil
}

// Drain delivers all queued changes accumulated since the last drain and
// returns how many were delivered. The engine calls this once per input
// frame; deliveries enqueued by handlers during the drain run in the same
// pass.
func (b *Bus) Drain() int {
	n := 0
	for {
		b.queueMu.Lock()
		if len(b.queue) == 0 {
			b.queueMu.Unlock()
			return n
		}
		pending := b.queue
		b.queue = nil
		b.queueMu.Unlock()

		for _, d := range pending {
			if d.sub.cancelled.Load() {
				continue
			}
			b.deliver(d.sub, d.change)
			n++
		}
	}
}

func (b *Bus) deliver(sub *Subscription, change Change) {
	sub.handler(change)
	b.delivered.Add(1)

	if sub.once {
		_ = b.Unsubscribe(sub)
	}
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	subs := len(b.subs)
	b.mu.RUnlock()

	b.queueMu.Lock()
	depth := len(b.queue)
	b.queueMu.Unlock()

	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: subs,
		QueueDepth:  depth,
	}
}
