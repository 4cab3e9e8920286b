package record

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("record: not found")
	ErrDuplicateKey    = errors.New("record: duplicate audit_id")
	ErrTerminalState   = errors.New("record: status is terminal")
	ErrInvalidArgument = errors.New("record: invalid argument")
)

// Store is the persistence contract for audit records.
//
// Semantics every implementation must honor:
// - Create fails with ErrDuplicateKey when the audit_id already exists.
// - Get returns ErrNotFound for an absent key, never a crash.
// - UpdateStatus is atomic (status and summary become visible together) and
//   idempotent: re-applying the same (id, status, summary) is a no-op success.
//   A transition out of a terminal state, or into PENDING, is rejected with
//   ErrTerminalState / ErrInvalidArgument.
// - ListByRequester orders by created_at descending, ties broken by audit_id,
//   and returns an empty slice for an unknown requester. The requester index
//   may be eventually consistent; callers needing read-after-write must Get
//   by exact key.
// - Delete is a hard delete and idempotent; deleting an absent key is not an
//   error.
// - Clear removes every record (administrative full clear).
type Store interface {
	Create(ctx context.Context, rec AuditRecord) error
	Get(ctx context.Context, auditID string) (AuditRecord, error)
	UpdateStatus(ctx context.Context, auditID string, status Status, summary *Summary, now time.Time) error
	ListByRequester(ctx context.Context, email string, limit int) ([]AuditRecord, error)
	Delete(ctx context.Context, auditID string) error
	Clear(ctx context.Context) error
}

// checkTransition validates an UpdateStatus request against the current
// status. It returns (apply, error): apply=false with nil error means the
// request is an idempotent replay and the store should succeed without
// changing anything beyond re-writing identical data.
func checkTransition(current, requested Status) (bool, error) {
	if requested != StatusCompleted && requested != StatusFailed {
		return false, ErrInvalidArgument
	}
	if current.Terminal() {
		if current == requested {
			return false, nil
		}
		return false, ErrTerminalState
	}
	return true, nil
}
