package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory BlobStore for tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailPut, when set, makes every Put return this error. Lets tests
	// exercise the infrastructure-failure paths.
	FailPut error
	// FailGet does the same for Get.
	FailGet error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if s.FailPut != nil {
		return "", s.FailPut
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return key, nil
}

func (s *MemoryStore) Get(ctx context.Context, locator string) ([]byte, error) {
	if s.FailGet != nil {
		return nil, s.FailGet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[locator]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, locator)
	return nil
}

// Len reports how many blobs are stored. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
