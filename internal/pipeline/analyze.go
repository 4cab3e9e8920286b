package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"data-sentinel/internal/bus"
	"data-sentinel/internal/masking"
	"data-sentinel/internal/record"
	"data-sentinel/internal/storage"

	"github.com/google/uuid"
)

// Analyzer runs the Analyze stage: load content, run the masking engine,
// move the record to a terminal state, announce completion.
//
// Delivery is at-least-once, so Analyze must tolerate duplicates: a record
// already in a terminal state is left untouched and the duplicate trigger
// succeeds without effect.
type Analyzer struct {
	blobs   storage.BlobStore
	records record.Store
	engine  *masking.Engine
	catalog masking.Catalog
	pub     bus.Publisher
	clock   func() time.Time
	log     *slog.Logger
}

func NewAnalyzer(blobs storage.BlobStore, records record.Store, engine *masking.Engine, catalog masking.Catalog, pub bus.Publisher, log *slog.Logger) (*Analyzer, error) {
	if blobs == nil || records == nil || engine == nil || pub == nil {
		return nil, errors.New("pipeline: analyzer requires blob store, record store, engine and publisher")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		blobs:   blobs,
		records: records,
		engine:  engine,
		catalog: catalog,
		pub:     pub,
		clock:   time.Now,
		log:     log,
	}, nil
}

// Analyze processes one trigger end-to-end.
//
// Malformed events fail with ErrInvalidEvent and mutate nothing. Content
// failures (missing blob, undecodable text) move the record to FAILED and
// return ErrContent; the trigger must not be redelivered for those.
func (a *Analyzer) Analyze(ctx context.Context, evt AnalyzeEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	rec, err := a.records.Get(ctx, evt.AuditID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return fmt.Errorf("%w: audit record %s does not exist", ErrInvalidEvent, evt.AuditID)
		}
		return fmt.Errorf("pipeline: load record: %w", err)
	}
	if rec.Status.Terminal() {
		a.log.Info("duplicate analyze trigger ignored", "audit_id", rec.AuditID, "status", rec.Status)
		return nil
	}

	text, err := a.loadText(ctx, rec, evt.FileRef)
	if err != nil {
		return a.fail(ctx, rec, err)
	}

	res := a.engine.Analyze(text, a.catalog)
	now := a.clock().UTC()
	summary := &record.Summary{
		SensitiveDataCount: res.ExposedCount,
		MaskedSample:       res.Sample,
	}
	if err := a.records.UpdateStatus(ctx, rec.AuditID, record.StatusCompleted, summary, now); err != nil {
		if errors.Is(err, record.ErrTerminalState) {
			// Lost a race with another invocation; its result stands.
			a.log.Warn("late analyze result discarded", "audit_id", rec.AuditID)
			return nil
		}
		return fmt.Errorf("pipeline: complete record: %w", err)
	}

	a.log.Info("analysis completed", "audit_id", rec.AuditID, "exposed", res.ExposedCount, "sample_rows", len(res.Sample))
	return a.announce(ctx, CompletionEvent{
		EventID:        uuid.NewString(),
		AuditID:        rec.AuditID,
		RequesterEmail: rec.RequesterEmail,
		Status:         record.StatusCompleted,
		Summary:        summary,
		Timestamp:      now,
	})
}

// HandleMessage adapts a bus payload into an Analyze invocation.
func (a *Analyzer) HandleMessage(ctx context.Context, payload []byte) error {
	var evt AnalyzeEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return a.Analyze(ctx, evt)
}

// loadText prefers the raw text stored on the record and falls back to
// re-downloading the blob.
func (a *Analyzer) loadText(ctx context.Context, rec record.AuditRecord, fileRef string) (string, error) {
	if rec.RawText != "" {
		if !utf8.ValidString(rec.RawText) {
			return "", fmt.Errorf("%w: stored text is not valid UTF-8", ErrContent)
		}
		return rec.RawText, nil
	}

	ref := fileRef
	if ref == "" {
		ref = rec.StoragePath
	}
	data, err := a.blobs.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: blob %s is gone", ErrContent, ref)
		}
		return "", fmt.Errorf("pipeline: download blob: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: blob %s is not valid UTF-8", ErrContent, ref)
	}
	return string(data), nil
}

// fail moves the record to FAILED with no summary, so it never sits PENDING
// forever, and returns the original cause.
func (a *Analyzer) fail(ctx context.Context, rec record.AuditRecord, cause error) error {
	now := a.clock().UTC()
	if err := a.records.UpdateStatus(ctx, rec.AuditID, record.StatusFailed, nil, now); err != nil && !errors.Is(err, record.ErrTerminalState) {
		a.log.Error("failed to mark record FAILED", "audit_id", rec.AuditID, "err", err)
	}
	a.log.Error("analysis failed", "audit_id", rec.AuditID, "err", cause)
	return cause
}

func (a *Analyzer) announce(ctx context.Context, evt CompletionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("pipeline: encode completion event: %w", err)
	}
	if err := a.pub.Publish(ctx, bus.TopicCompleted, payload); err != nil {
		// The record is already terminal; the error surfaces to the trigger
		// source, and Notify can also be invoked directly against the record.
		return fmt.Errorf("pipeline: announce completion: %w", err)
	}
	return nil
}
