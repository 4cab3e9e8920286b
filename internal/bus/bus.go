// Package bus carries stage-completion events between pipeline stages.
//
// The redis implementation uses pub/sub, which is at-most-once: an event
// published while no worker is subscribed is dropped, and the record stays
// PENDING until the analyze trigger endpoint replays it. Duplicates are
// still possible (manual replay, overlapping workers), so every consumer
// must be idempotent; the record store enforces this for status updates.
package bus

import "context"

// Topics used by the pipeline.
const (
	// TopicAnalyze carries analyze requests produced by Ingest.
	TopicAnalyze = "audit.analyze"
	// TopicCompleted carries completion events produced by Analyze.
	TopicCompleted = "audit.completed"
	// TopicNotifications carries rendered messages handed to the external
	// delivery channel.
	TopicNotifications = "audit.notifications"
)

// Publisher is the fire-and-forget outbound side of the bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Handler consumes one event payload. Returning an error signals the
// delivery should be surfaced (and possibly redelivered by the trigger
// source); it must not panic.
type Handler func(ctx context.Context, payload []byte) error
