package record

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultQueryLimit applies when the caller does not bound a listing.
	DefaultQueryLimit = 10
	// MaxQueryLimit caps a single listing regardless of what the caller asks for.
	MaxQueryLimit = 100

	// eraseBatchLimit bounds each enumeration pass during a bulk erase.
	eraseBatchLimit = 250
)

// Service exposes the requester-facing query surface over a Store:
// bounded listing and bulk erasure, both keyed by requester email.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns a single record by exact key. Key reads are immediately
// consistent even when the requester index is not.
func (s *Service) Get(ctx context.Context, auditID string) (AuditRecord, error) {
	if s.store == nil {
		return AuditRecord{}, errors.New("record: store not configured")
	}
	if auditID == "" {
		return AuditRecord{}, ErrInvalidArgument
	}
	return s.store.Get(ctx, auditID)
}

// ListByRequester returns up to limit records for the requester, most recent
// first. A non-positive limit falls back to DefaultQueryLimit.
func (s *Service) ListByRequester(ctx context.Context, email string, limit int) ([]AuditRecord, error) {
	if s.store == nil {
		return nil, errors.New("record: store not configured")
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	return s.store.ListByRequester(ctx, normalized, limit)
}

// EraseByRequester hard-deletes every record belonging to the requester and
// returns how many were removed.
//
// The enumeration and the per-key deletes are not atomic as a set: a record
// created concurrently may or may not be included. Callers should not issue
// creates and erases for the same requester at the same time.
func (s *Service) EraseByRequester(ctx context.Context, email string) (int, error) {
	if s.store == nil {
		return 0, errors.New("record: store not configured")
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for {
		batch, err := s.store.ListByRequester(ctx, normalized, eraseBatchLimit)
		if err != nil {
			return deleted, fmt.Errorf("record: erase enumerate: %w", err)
		}
		if len(batch) == 0 {
			return deleted, nil
		}
		for _, rec := range batch {
			if err := s.store.Delete(ctx, rec.AuditID); err != nil {
				return deleted, fmt.Errorf("record: erase delete %s: %w", rec.AuditID, err)
			}
			deleted++
		}
		// The requester index is eventually consistent; a short batch means
		// the index has nothing more to offer right now.
		if len(batch) < eraseBatchLimit {
			return deleted, nil
		}
	}
}

// ClearAll removes every record in the store. Administrative use only.
func (s *Service) ClearAll(ctx context.Context) error {
	if s.store == nil {
		return errors.New("record: store not configured")
	}
	return s.store.Clear(ctx)
}
