package record

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newRecord(id, email string, created time.Time) AuditRecord {
	return AuditRecord{
		AuditID:        id,
		RequesterEmail: email,
		FileName:       "clientes.csv",
		StoragePath:    "uploads/" + id + "/clientes.csv",
		RawText:        "nome;cpf\nAna;123",
		Status:         StatusPending,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	rec := newRecord("a1", "ana@x.com", now)
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Status != StatusPending || got.Summary != nil {
		t.Fatalf("fresh record should be PENDING without summary: %+v", got)
	}

	if err := s.Create(ctx, rec); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_UpdateStatusIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	if err := s.Create(ctx, newRecord("a1", "ana@x.com", now)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	sum := &Summary{SensitiveDataCount: 4, MaskedSample: []map[string]string{{"nome": "Ana", "cpf": "*****"}}}
	if err := s.UpdateStatus(ctx, "a1", StatusCompleted, sum, now.Add(time.Second)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	first, _ := s.Get(ctx, "a1")

	// Same transition again: a retry after redelivery must be a no-op success.
	if err := s.UpdateStatus(ctx, "a1", StatusCompleted, sum, now.Add(time.Minute)); err != nil {
		t.Fatalf("idempotent replay failed: %v", err)
	}
	second, _ := s.Get(ctx, "a1")

	if second.Status != first.Status || second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("replay changed the record: %+v vs %+v", first, second)
	}
	if second.Summary == nil || second.Summary.SensitiveDataCount != 4 {
		t.Fatalf("summary lost on replay: %+v", second.Summary)
	}
}

func TestMemoryStore_TerminalStateIsSticky(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	if err := s.Create(ctx, newRecord("a1", "ana@x.com", now)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := s.UpdateStatus(ctx, "a1", StatusFailed, nil, now); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := s.UpdateStatus(ctx, "a1", StatusCompleted, &Summary{}, now); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
	if err := s.UpdateStatus(ctx, "a1", StatusPending, nil, now); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for PENDING, got %v", err)
	}

	got, _ := s.Get(ctx, "a1")
	if got.Status != StatusFailed {
		t.Fatalf("terminal state reverted: %s", got.Status)
	}
}

func TestMemoryStore_UpdateStatusMissingKey(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateStatus(context.Background(), "missing", StatusCompleted, nil, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListByRequesterOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	for i := 0; i < 5; i++ {
		rec := newRecord(fmt.Sprintf("a%d", i), "ana@x.com", base.Add(time.Duration(i)*time.Minute))
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if err := s.Create(ctx, newRecord("b1", "beto@x.com", base)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	out, err := s.ListByRequester(ctx, "ana@x.com", 3)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].CreatedAt.After(out[i-1].CreatedAt) {
			t.Fatalf("ordering violated at %d: %v after %v", i, out[i].CreatedAt, out[i-1].CreatedAt)
		}
	}
	if out[0].AuditID != "a4" {
		t.Fatalf("expected most recent first, got %s", out[0].AuditID)
	}

	empty, err := s.ListByRequester(ctx, "nobody@x.com", 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %v (%v)", empty, err)
	}
}

func TestMemoryStore_ListByRequesterTieBreak(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	for _, id := range []string{"a2", "a1", "a3"} {
		if err := s.Create(ctx, newRecord(id, "ana@x.com", now)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	out, err := s.ListByRequester(ctx, "ana@x.com", 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out[0].AuditID != "a3" || out[1].AuditID != "a2" || out[2].AuditID != "a1" {
		t.Fatalf("tie-break ordering unstable: %s %s %s", out[0].AuditID, out[1].AuditID, out[2].AuditID)
	}
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	if err := s.Create(ctx, newRecord("a1", "ana@x.com", now)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := s.Delete(ctx, "a1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := s.Get(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Absent key is not an error.
	if err := s.Delete(ctx, "a1"); err != nil {
		t.Fatalf("delete of absent key failed: %v", err)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	if err := s.Create(ctx, newRecord("a1", "ana@x.com", now)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sum := &Summary{SensitiveDataCount: 1, MaskedSample: []map[string]string{{"cpf": "*****"}}}
	if err := s.UpdateStatus(ctx, "a1", StatusCompleted, sum, now); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got, _ := s.Get(ctx, "a1")
	got.Summary.MaskedSample[0]["cpf"] = "tampered"

	again, _ := s.Get(ctx, "a1")
	if again.Summary.MaskedSample[0]["cpf"] != "*****" {
		t.Fatalf("store leaked internal state")
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Ana@X.com", "ana@x.com", false},
		{"  beto@x.com ", "beto@x.com", false},
		{"", "", true},
		{"not-an-email", "", true},
		{"a b@x.com", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeEmail(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got (%q, %v), want %q", tc.in, got, err, tc.want)
		}
	}
}
