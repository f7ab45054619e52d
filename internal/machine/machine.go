// Package machine holds the plumbing shared by the move, resize, and
// drag-and-drop state machines: cancellation reasons, the logging
// contract, and common errors.
package machine

import (
	"errors"

	"github.com/formgrid/interact/internal/arbiter"
)

// Logger is the minimal logging surface the state machines need. The
// engine's leveled logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

// Debug discards the message.
func (NopLogger) Debug(string, ...any) {}

// Info discards the message.
func (NopLogger) Info(string, ...any) {}

// Warn discards the message.
func (NopLogger) Warn(string, ...any) {}

// Error discards the message.
func (NopLogger) Error(string, ...any) {}

// CancelReason records why a gesture was cancelled.
type CancelReason string

const (
	// CancelEscape is the Escape key.
	CancelEscape CancelReason = "escape"
	// CancelBlur is focus loss.
	CancelBlur CancelReason = "blur"
	// CancelPreempted is a higher-priority gesture taking the lock.
	CancelPreempted CancelReason = "preempted"
	// CancelTimeout is lock expiry.
	CancelTimeout CancelReason = "timeout"
	// CancelDestroyed is component destruction mid-gesture.
	CancelDestroyed CancelReason = "destroyed"
	// CancelRecovered is the stuck-state detector's forced cleanup.
	CancelRecovered CancelReason = "recovered"
)

// FromRelease maps an arbiter revocation reason onto a cancel reason.
func FromRelease(r arbiter.ReleaseReason) CancelReason {
	switch r {
	case arbiter.ReasonTimeout:
		return CancelTimeout
	case arbiter.ReasonPreempted:
		return CancelPreempted
	case arbiter.ReasonDestroyed:
		return CancelDestroyed
	case arbiter.ReasonRecovered:
		return CancelRecovered
	default:
		return CancelReason(r)
	}
}

// Shared state-machine errors. Invalid parameters leave the machine in
// its prior state.
var (
	// ErrWrongPhase is returned when an entry point is called in a
	// phase that does not accept it.
	ErrWrongPhase = errors.New("operation not valid in current phase")

	// ErrNoObject is returned when a machine is built without a target.
	ErrNoObject = errors.New("no target object")

	// ErrUnknownHandle is returned when a resize starts on HandleNone.
	ErrUnknownHandle = errors.New("unknown resize handle")

	// ErrLockUnavailable is returned when a gesture that locks at
	// pointer-down cannot get its lock. The machine has already
	// published the rejection and is terminal.
	ErrLockUnavailable = errors.New("interaction lock unavailable")
)
