package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"data-sentinel/internal/bus"
	"data-sentinel/internal/record"
)

func newTestNotifier(t *testing.T, records *record.MemoryStore, b *bus.MemoryBus) *Notifier {
	t.Helper()
	n, err := NewNotifier(records, b, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	n.clock = func() time.Time { return time.Unix(1700000200, 0).UTC() }
	return n
}

func TestNotify_WithInlineSummary(t *testing.T) {
	b := bus.NewMemoryBus()
	n := newTestNotifier(t, record.NewMemoryStore(), b)

	evt := CompletionEvent{
		AuditID:        "a1",
		RequesterEmail: "ana@x.com",
		Status:         record.StatusCompleted,
		Summary:        &record.Summary{SensitiveDataCount: 4, MaskedSample: []map[string]string{{"cpf": "*****"}}},
		Timestamp:      time.Unix(1700000100, 0).UTC(),
	}
	if err := n.Notify(context.Background(), evt); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	msgs := b.Messages(bus.TopicNotifications)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(msgs))
	}
	var d Delivery
	if err := json.Unmarshal(msgs[0], &d); err != nil {
		t.Fatalf("bad delivery payload: %v", err)
	}
	if d.To != "ana@x.com" {
		t.Fatalf("unexpected recipient: %s", d.To)
	}
	if !strings.Contains(d.Subject, "a1") {
		t.Fatalf("subject missing audit id: %q", d.Subject)
	}
	if !strings.Contains(d.Body, "Exposed sensitive cells found: 4") {
		t.Fatalf("body missing count:\n%s", d.Body)
	}
}

func TestNotify_LoadsRecordWhenSummaryAbsent(t *testing.T) {
	records := record.NewMemoryStore()
	b := bus.NewMemoryBus()
	n := newTestNotifier(t, records, b)

	now := time.Unix(1700000000, 0).UTC()
	rec := record.AuditRecord{
		AuditID:        "a1",
		RequesterEmail: "ana@x.com",
		FileName:       "clientes.csv",
		StoragePath:    "uploads/a1/clientes.csv",
		Status:         record.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := records.Create(context.Background(), rec); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sum := &record.Summary{SensitiveDataCount: 2, MaskedSample: []map[string]string{{"email": "*****"}}}
	if err := records.UpdateStatus(context.Background(), "a1", record.StatusCompleted, sum, now.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evt := CompletionEvent{AuditID: "a1", RequesterEmail: "ana@x.com"}
	if err := n.Notify(context.Background(), evt); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var d Delivery
	if err := json.Unmarshal(b.Messages(bus.TopicNotifications)[0], &d); err != nil {
		t.Fatalf("bad delivery payload: %v", err)
	}
	if !strings.Contains(d.Body, "Exposed sensitive cells found: 2") {
		t.Fatalf("summary not loaded from store:\n%s", d.Body)
	}
}

func TestNotify_IncompleteTrigger(t *testing.T) {
	cases := []CompletionEvent{
		{},
		{AuditID: "a1"},
		{RequesterEmail: "ana@x.com"},
	}
	for _, evt := range cases {
		n := newTestNotifier(t, record.NewMemoryStore(), bus.NewMemoryBus())
		if err := n.Notify(context.Background(), evt); !errors.Is(err, ErrIncompleteNotification) {
			t.Fatalf("event %+v: expected ErrIncompleteNotification, got %v", evt, err)
		}
	}
}

func TestNotify_UnknownRecord(t *testing.T) {
	n := newTestNotifier(t, record.NewMemoryStore(), bus.NewMemoryBus())
	evt := CompletionEvent{AuditID: "ghost", RequesterEmail: "ana@x.com"}
	if err := n.Notify(context.Background(), evt); !errors.Is(err, record.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotify_DeliveryFailurePropagates(t *testing.T) {
	b := bus.NewMemoryBus()
	b.FailPublish = errors.New("channel down")
	n := newTestNotifier(t, record.NewMemoryStore(), b)

	evt := CompletionEvent{
		AuditID:        "a1",
		RequesterEmail: "ana@x.com",
		Summary:        &record.Summary{},
	}
	if err := n.Notify(context.Background(), evt); err == nil {
		t.Fatalf("expected delivery error")
	}
}
