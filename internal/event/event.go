// Package event implements the change-notification bus: a topic-addressed
// publish/subscribe channel carrying state-change events between the
// interaction state machines, the anomaly detectors, and external
// collaborators such as the render layer.
//
// The bus replaces the polling changelog the original design used for
// cross-module notification. Delivery is synchronous by default; queued
// delivery is available for subscribers that must not run inside the
// publishing call, with the queue drained explicitly by the engine's
// event loop.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/formgrid/interact/internal/event/topic"
	"github.com/formgrid/interact/internal/object"
)

// Well-known topics published by the interaction core.
const (
	TopicObjectSelected   topic.Topic = "object.selected"
	TopicObjectDeselected topic.Topic = "object.deselected"
	TopicObjectActivated  topic.Topic = "object.activated"
	TopicGestureRejected  topic.Topic = "gesture.rejected"

	TopicMoveStarted   topic.Topic = "move.started"
	TopicMoveLive      topic.Topic = "move.live"
	TopicObjectMoved   topic.Topic = "object.moved"
	TopicMoveCancelled topic.Topic = "move.cancelled"

	TopicResizeStarted   topic.Topic = "resize.started"
	TopicResizeLive      topic.Topic = "resize.live"
	TopicObjectResized   topic.Topic = "object.resized"
	TopicResizeCancelled topic.Topic = "resize.cancelled"

	TopicDragStarted   topic.Topic = "drag.started"
	TopicDragHover     topic.Topic = "drag.hover.changed"
	TopicDragDropped   topic.Topic = "drag.dropped"
	TopicDragRejected  topic.Topic = "drag.drop.rejected"
	TopicDragReturned  topic.Topic = "drag.returned"
	TopicDragCancelled topic.Topic = "drag.cancelled"

	TopicAnomalyFlagged topic.Topic = "anomaly.flagged"
	TopicForcedRecovery topic.Topic = "interaction.recovered"

	TopicModeChanged    topic.Topic = "mode.changed"
	TopicConfigReloaded topic.Topic = "config.reloaded"
	TopicAuthCompleted  topic.Topic = "auth.completed"
)

// Change is a single state-change notification. Changes are immutable
// once created; consumers must never mutate the payload.
type Change struct {
	// Topic is the hierarchical change type.
	Topic topic.Topic

	// ObjectID is the object the change concerns; empty for
	// session-level changes such as mode switches.
	ObjectID object.ID

	// Payload carries the change-specific data.
	Payload any

	// ID uniquely identifies this change instance.
	ID string

	// Timestamp is when the change was created.
	Timestamp time.Time
}

// NewChange creates a change stamped with a fresh ID and the current time.
func NewChange(t topic.Topic, id object.ID, payload any) Change {
	return Change{
		Topic:     t,
		ObjectID:  id,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// EventTopic returns the change's topic, satisfying the bus's routing
// contract.
func (c Change) EventTopic() topic.Topic {
	return c.Topic
}
