package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"data-sentinel/internal/pipeline"
	"data-sentinel/internal/record"
	"data-sentinel/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal modules, return JSON.
type Handlers struct {
	Ingestor *pipeline.Ingestor
	Analyzer *pipeline.Analyzer
	Notifier *pipeline.Notifier
	Records  *record.Service

	// MaxUploadBytes bounds how much of the request body is read before the
	// pipeline's own size check runs.
	MaxUploadBytes int64
}

// Upload accepts a multipart form with a "file" part and an "email" field,
// runs the Ingest stage, and returns the new audit_id.
func (h Handlers) Upload(c *gin.Context) {
	if h.Ingestor == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingest not configured"})
		return
	}
	log := logger.FromGin(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file part is required"})
		return
	}
	email := c.PostForm("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable file part"})
		return
	}
	defer f.Close()

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = pipeline.DefaultMaxUploadBytes
	}
	// Read one byte past the cap so the pipeline's size check can reject
	// without this handler buffering an arbitrarily large body.
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	auditID, err := h.Ingestor.Ingest(c.Request.Context(), pipeline.IngestRequest{
		FileName:       fileHeader.Filename,
		Content:        content,
		RequesterEmail: email,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	log.Info("upload accepted", "audit_id", auditID)
	c.JSON(http.StatusAccepted, gin.H{
		"audit_id": auditID,
		"filename": fileHeader.Filename,
		"message":  "file accepted for audit",
	})
}

// ListAudits returns the most recent records for a requester.
func (h Handlers) ListAudits(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	out, err := h.Records.ListByRequester(c.Request.Context(), email, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": out})
}

// GetAudit returns a single record by key. Unlike the requester listing this
// read is immediately consistent.
func (h Handlers) GetAudit(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	rec, err := h.Records.Get(c.Request.Context(), c.Param("audit_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// EraseAudits bulk-deletes every record for a requester.
func (h Handlers) EraseAudits(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	email := c.Query("email")
	if email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}
	deleted, err := h.Records.EraseByRequester(c.Request.Context(), email)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// AdminClear purges every record. Administrative use only.
func (h Handlers) AdminClear(c *gin.Context) {
	if h.Records == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "records not configured"})
		return
	}
	if err := h.Records.ClearAll(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "audit records cleared"})
}

// TriggerAnalyze invokes the Analyze stage directly with the same payload
// the bus delivers. Intended for testing and manual replay.
func (h Handlers) TriggerAnalyze(c *gin.Context) {
	if h.Analyzer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analyzer not configured"})
		return
	}
	var evt pipeline.AnalyzeEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Analyzer.Analyze(c.Request.Context(), evt); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_id": evt.AuditID, "message": "analysis completed"})
}

// TriggerNotify invokes the Notify stage directly with the same payload the
// bus delivers.
func (h Handlers) TriggerNotify(c *gin.Context) {
	if h.Notifier == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "notifier not configured"})
		return
	}
	var evt pipeline.CompletionEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Notifier.Notify(c.Request.Context(), evt); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_id": evt.AuditID, "message": "notification handed off"})
}

// abortWithError maps pipeline and store errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrValidation),
		errors.Is(err, pipeline.ErrInvalidEvent),
		errors.Is(err, pipeline.ErrIncompleteNotification),
		errors.Is(err, record.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, record.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, pipeline.ErrContent):
		// The record is already FAILED; the content itself is the problem.
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, record.ErrDuplicateKey):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate audit id"})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
