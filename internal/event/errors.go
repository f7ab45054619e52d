package event

import "errors"

// Sentinel errors for the change bus.
var (
	// ErrInvalidTopic is returned when a subscription pattern is empty
	// or malformed.
	ErrInvalidTopic = errors.New("invalid topic pattern")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriptionNotFound is returned when cancelling a subscription
	// the bus does not hold.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrQueueFull is returned when the queued-delivery buffer cannot
	// accept another change.
	ErrQueueFull = errors.New("change queue is full")
)
