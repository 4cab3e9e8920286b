package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"data-sentinel/internal/bus"
	"data-sentinel/internal/notification"
	"data-sentinel/internal/record"
)

// Notifier runs the Notify stage: resolve the summary, render the message,
// hand it to the delivery channel.
//
// Delivery retry is the channel's responsibility; the stage publishes once
// and propagates any publish failure to its trigger source.
type Notifier struct {
	records record.Store
	pub     bus.Publisher
	clock   func() time.Time
	log     *slog.Logger
}

func NewNotifier(records record.Store, pub bus.Publisher, log *slog.Logger) (*Notifier, error) {
	if records == nil || pub == nil {
		return nil, errors.New("pipeline: notifier requires record store and publisher")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{records: records, pub: pub, clock: time.Now, log: log}, nil
}

// Notify processes one completion trigger.
//
// The trigger must identify both the record and the requester. When it
// carries no inline summary the record is loaded by exact key (the key read
// is immediately consistent, unlike the requester index).
func (n *Notifier) Notify(ctx context.Context, evt CompletionEvent) error {
	if evt.AuditID == "" || evt.RequesterEmail == "" {
		return fmt.Errorf("%w: audit_id and requester_email are required", ErrIncompleteNotification)
	}

	summary := evt.Summary
	ts := evt.Timestamp
	if summary == nil {
		rec, err := n.records.Get(ctx, evt.AuditID)
		if err != nil {
			return fmt.Errorf("pipeline: load record for notification: %w", err)
		}
		summary = rec.Summary
		if ts.IsZero() {
			ts = rec.UpdatedAt
		}
	}
	if summary == nil {
		// FAILED records carry no summary; notify with a zero result rather
		// than dropping the message.
		summary = &record.Summary{MaskedSample: []map[string]string{}}
	}
	if ts.IsZero() {
		ts = n.clock().UTC()
	}

	msg := notification.Format(evt.AuditID, evt.RequesterEmail, *summary, ts)
	payload, err := json.Marshal(Delivery{
		To:      evt.RequesterEmail,
		Subject: msg.Subject,
		Body:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("pipeline: encode delivery: %w", err)
	}
	if err := n.pub.Publish(ctx, bus.TopicNotifications, payload); err != nil {
		return fmt.Errorf("pipeline: hand off delivery: %w", err)
	}

	n.log.Info("notification handed off", "audit_id", evt.AuditID, "to", evt.RequesterEmail)
	return nil
}

// HandleMessage adapts a bus payload into a Notify invocation.
func (n *Notifier) HandleMessage(ctx context.Context, payload []byte) error {
	var evt CompletionEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteNotification, err)
	}
	return n.Notify(ctx, evt)
}
