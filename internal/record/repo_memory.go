package record

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
// Unlike the production backends it is immediately consistent, which makes
// it strictly stronger than the contract requires.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]AuditRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]AuditRecord)}
}

func (s *MemoryStore) Create(ctx context.Context, rec AuditRecord) error {
	if rec.AuditID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.AuditID]; ok {
		return ErrDuplicateKey
	}
	s.records[rec.AuditID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, auditID string) (AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[auditID]
	if !ok {
		return AuditRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, auditID string, status Status, summary *Summary, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[auditID]
	if !ok {
		return ErrNotFound
	}
	apply, err := checkTransition(rec.Status, status)
	if err != nil {
		return err
	}
	if !apply {
		return nil
	}
	rec.Status = status
	rec.Summary = cloneSummary(summary)
	rec.UpdatedAt = now.UTC()
	s.records[auditID] = rec
	return nil
}

func (s *MemoryStore) ListByRequester(ctx context.Context, email string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		return []AuditRecord{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AuditRecord, 0)
	for _, rec := range s.records {
		if rec.RequesterEmail == email {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].AuditID > out[j].AuditID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, auditID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, auditID)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]AuditRecord)
	return nil
}

// Len reports the number of stored records. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func cloneRecord(rec AuditRecord) AuditRecord {
	out := rec
	out.Summary = cloneSummary(rec.Summary)
	return out
}

func cloneSummary(sum *Summary) *Summary {
	if sum == nil {
		return nil
	}
	out := Summary{SensitiveDataCount: sum.SensitiveDataCount}
	out.MaskedSample = make([]map[string]string, len(sum.MaskedSample))
	for i, row := range sum.MaskedSample {
		cp := make(map[string]string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.MaskedSample[i] = cp
	}
	return &out
}
