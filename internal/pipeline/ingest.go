package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"data-sentinel/internal/bus"
	"data-sentinel/internal/record"
	"data-sentinel/internal/storage"

	"github.com/google/uuid"
)

// DefaultMaxUploadBytes caps accepted files at 5 MiB.
const DefaultMaxUploadBytes = 5 << 20

// IngestRequest is the inbound trigger for the Ingest stage.
type IngestRequest struct {
	FileName       string
	Content        []byte
	RequesterEmail string
}

// Ingestor validates an upload, stores the blob, creates the PENDING audit
// record, and requests analysis.
//
// The blob write and the record create are not transactional: if the record
// create fails after the blob write, the orphaned blob is accepted garbage.
type Ingestor struct {
	blobs    storage.BlobStore
	records  record.Store
	pub      bus.Publisher
	maxBytes int64
	newID    func() string
	clock    func() time.Time
	log      *slog.Logger
}

func NewIngestor(blobs storage.BlobStore, records record.Store, pub bus.Publisher, maxBytes int64, log *slog.Logger) (*Ingestor, error) {
	if blobs == nil || records == nil || pub == nil {
		return nil, errors.New("pipeline: ingestor requires blob store, record store and publisher")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Ingestor{
		blobs:    blobs,
		records:  records,
		pub:      pub,
		maxBytes: maxBytes,
		newID:    uuid.NewString,
		clock:    time.Now,
		log:      log,
	}, nil
}

// Ingest runs the full stage and returns the new audit_id.
//
// Every validation failure happens before any side effect: no blob is
// written and no record is created for a rejected request.
func (g *Ingestor) Ingest(ctx context.Context, req IngestRequest) (string, error) {
	fileName := path.Base(strings.TrimSpace(req.FileName))
	if fileName == "." || fileName == "/" || fileName == "" {
		return "", fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if !strings.HasSuffix(strings.ToLower(fileName), requiredExtension) {
		return "", fmt.Errorf("%w: only %s files are accepted", ErrValidation, requiredExtension)
	}
	if int64(len(req.Content)) > g.maxBytes {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, g.maxBytes)
	}
	email, err := record.NormalizeEmail(req.RequesterEmail)
	if err != nil {
		return "", fmt.Errorf("%w: requester email is malformed", ErrValidation)
	}

	auditID := g.newID()
	now := g.clock().UTC()
	key := path.Join("uploads", auditID, fileName)

	locator, err := g.blobs.Put(ctx, key, req.Content)
	if err != nil {
		return "", fmt.Errorf("pipeline: store blob: %w", err)
	}

	rec := record.AuditRecord{
		AuditID:        auditID,
		RequesterEmail: email,
		FileName:       fileName,
		StoragePath:    locator,
		RawText:        string(req.Content),
		Status:         record.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := g.records.Create(ctx, rec); err != nil {
		// Orphaned blob stays behind; see the type comment.
		return "", fmt.Errorf("pipeline: create record: %w", err)
	}

	evt := AnalyzeEvent{
		EventID:        uuid.NewString(),
		AuditID:        auditID,
		FileRef:        locator,
		RequesterEmail: email,
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("pipeline: encode analyze event: %w", err)
	}
	if err := g.pub.Publish(ctx, bus.TopicAnalyze, payload); err != nil {
		// The record stays PENDING; the caller may retry, and analysis can
		// also be triggered directly against the stored record.
		return "", fmt.Errorf("pipeline: request analysis: %w", err)
	}

	g.log.Info("upload ingested", "audit_id", auditID, "file", fileName, "bytes", len(req.Content))
	return auditID, nil
}
