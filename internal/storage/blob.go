package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("storage: blob not found")
	ErrInvalidKey = errors.New("storage: invalid blob key")
)

// BlobStore is the capability contract for raw file storage. The pipeline
// depends only on this set, never on a specific provider.
//
// Keys are slash-separated relative paths (e.g. uploads/<audit_id>/<name>).
// Put returns the locator callers pass back to Get and Delete; for the
// implementations here the locator is the key itself.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, locator string) ([]byte, error)
	Delete(ctx context.Context, locator string) error
}
