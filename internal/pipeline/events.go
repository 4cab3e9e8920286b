package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"data-sentinel/internal/record"
)

var (
	// ErrValidation marks bad input shape, size or format. Not retryable;
	// surfaced to the caller before any side effect.
	ErrValidation = errors.New("pipeline: validation failed")
	// ErrInvalidEvent marks a malformed stage trigger. Not retryable.
	ErrInvalidEvent = errors.New("pipeline: invalid event")
	// ErrIncompleteNotification marks a notify trigger missing its
	// identifying fields.
	ErrIncompleteNotification = errors.New("pipeline: incomplete notification")
	// ErrContent marks an unparseable or undecodable payload during
	// analysis. Terminal: the record moves to FAILED and is not retried.
	ErrContent = errors.New("pipeline: content error")
)

// requiredExtension is the only upload type the pipeline accepts.
const requiredExtension = ".csv"

// AnalyzeEvent triggers the Analyze stage for one record.
//
// AuditID locates the PENDING record created by Ingest; FileRef points at
// the stored blob for re-download when the record's raw text is absent.
type AnalyzeEvent struct {
	EventID        string `json:"event_id,omitempty"`
	AuditID        string `json:"audit_id"`
	FileRef        string `json:"file_ref"`
	RequesterEmail string `json:"requester_email"`
}

// Validate checks the event payload shape. Failures are non-retryable.
func (e AnalyzeEvent) Validate() error {
	if e.AuditID == "" {
		return fmt.Errorf("%w: audit_id is required", ErrInvalidEvent)
	}
	if e.FileRef == "" {
		return fmt.Errorf("%w: file_ref is required", ErrInvalidEvent)
	}
	if !strings.HasSuffix(strings.ToLower(e.FileRef), requiredExtension) {
		return fmt.Errorf("%w: file_ref must reference a %s file", ErrInvalidEvent, requiredExtension)
	}
	if e.RequesterEmail == "" {
		return fmt.Errorf("%w: requester_email is required", ErrInvalidEvent)
	}
	if !strings.Contains(e.RequesterEmail, "@") {
		return fmt.Errorf("%w: requester_email is malformed", ErrInvalidEvent)
	}
	return nil
}

// CompletionEvent announces that Analyze reached a terminal state. It doubles
// as the Notify trigger: when Summary is absent the consumer loads the record
// by key instead.
type CompletionEvent struct {
	EventID        string          `json:"event_id,omitempty"`
	AuditID        string          `json:"audit_id"`
	RequesterEmail string          `json:"requester_email"`
	Status         record.Status   `json:"status"`
	Summary        *record.Summary `json:"summary,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Delivery is the envelope handed to the external delivery channel.
type Delivery struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
