package main

import (
	"data-sentinel/internal/httpapi"
	"data-sentinel/internal/pipeline"
	"data-sentinel/internal/record"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	ingestor       *pipeline.Ingestor
	analyzer       *pipeline.Analyzer
	notifier       *pipeline.Notifier
	records        *record.Service
	maxUploadBytes int64
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := httpapi.Handlers{
		Ingestor:       deps.ingestor,
		Analyzer:       deps.analyzer,
		Notifier:       deps.notifier,
		Records:        deps.records,
		MaxUploadBytes: deps.maxUploadBytes,
	}

	v1 := r.Group("/v1")
	{
		v1.POST("/upload", h.Upload)

		audits := v1.Group("/audits")
		{
			audits.GET("", h.ListAudits)
			audits.GET("/:audit_id", h.GetAudit)
			audits.DELETE("", h.EraseAudits)
		}

		// Direct stage invocation, mirroring the bus payloads. Useful for
		// testing and manual replay of dropped events.
		triggers := v1.Group("/triggers")
		{
			triggers.POST("/analyze", h.TriggerAnalyze)
			triggers.POST("/notify", h.TriggerNotify)
		}

		// ADMIN routes
		// NOTE: caller authentication is out of scope for this service; the
		// admin group is expected to be fenced off at the network layer.
		admin := v1.Group("/admin")
		{
			admin.DELETE("/audits", h.AdminClear)
		}
	}
}
