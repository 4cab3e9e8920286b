package record

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestService_ListNormalizesAndBounds(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 15; i++ {
		rec := newRecord(fmt.Sprintf("a%02d", i), "ana@x.com", base.Add(time.Duration(i)*time.Second))
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	svc := NewService(store)

	// Mixed-case email resolves to the stored requester; zero limit defaults.
	out, err := svc.ListByRequester(ctx, "ANA@x.com", 0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != DefaultQueryLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultQueryLimit, len(out))
	}

	out, err = svc.ListByRequester(ctx, "ana@x.com", MaxQueryLimit+50)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 15 {
		t.Fatalf("expected all 15 records, got %d", len(out))
	}

	if _, err := svc.ListByRequester(ctx, "not-an-email", 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestService_EraseByRequester(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 7; i++ {
		if err := store.Create(ctx, newRecord(fmt.Sprintf("a%d", i), "ana@x.com", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if err := store.Create(ctx, newRecord("b1", "beto@x.com", base)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	svc := NewService(store)
	deleted, err := svc.EraseByRequester(ctx, "Ana@x.com")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("expected 7 deleted, got %d", deleted)
	}
	left, _ := store.ListByRequester(ctx, "ana@x.com", 10)
	if len(left) != 0 {
		t.Fatalf("records survived erase: %v", left)
	}
	if _, err := store.Get(ctx, "b1"); err != nil {
		t.Fatalf("erase touched another requester: %v", err)
	}

	// Erasing an empty requester is not an error.
	deleted, err = svc.EraseByRequester(ctx, "ana@x.com")
	if err != nil || deleted != 0 {
		t.Fatalf("expected clean empty erase, got (%d, %v)", deleted, err)
	}
}

func TestService_ClearAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	_ = store.Create(ctx, newRecord("a1", "ana@x.com", now))
	_ = store.Create(ctx, newRecord("b1", "beto@x.com", now))

	svc := NewService(store)
	if err := svc.ClearAll(ctx); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Len())
	}
}
