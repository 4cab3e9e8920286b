package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"data-sentinel/internal/bus"
	"data-sentinel/internal/config"
	"data-sentinel/internal/masking"
	"data-sentinel/internal/pipeline"
	"data-sentinel/internal/record"
	"data-sentinel/internal/storage"
	"data-sentinel/pkg/logger"
	"data-sentinel/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	blobs, err := storage.NewFSStore(cfg.Storage.Dir)
	if err != nil {
		log.Error("blob store init failed", "err", err)
		os.Exit(1)
	}

	eventBus, err := bus.NewRedisBus(rdb, log)
	if err != nil {
		log.Error("bus init failed", "err", err)
		os.Exit(1)
	}

	records := record.NewPostgresStore(db)

	fields := cfg.Audit.SensitiveFields
	if len(fields) == 0 {
		fields = masking.DefaultFields
	}
	catalog := masking.NewCatalog(fields)
	engine, err := masking.NewEngine(cfg.Audit.Delimiter, cfg.Audit.SampleLimit)
	if err != nil {
		log.Error("masking engine init failed", "err", err)
		os.Exit(1)
	}

	ingestor, err := pipeline.NewIngestor(blobs, records, eventBus, cfg.Audit.MaxUploadBytes, log)
	if err != nil {
		log.Error("ingestor init failed", "err", err)
		os.Exit(1)
	}
	analyzer, err := pipeline.NewAnalyzer(blobs, records, engine, catalog, eventBus, log)
	if err != nil {
		log.Error("analyzer init failed", "err", err)
		os.Exit(1)
	}
	notifier, err := pipeline.NewNotifier(records, eventBus, log)
	if err != nil {
		log.Error("notifier init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		ingestor:       ingestor,
		analyzer:       analyzer,
		notifier:       notifier,
		records:        record.NewService(records),
		maxUploadBytes: cfg.Audit.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
