package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
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

	_ "github.com/jackc/pgx/v5/stdlib"
)

// The worker runs the Analyze and Notify stages off the event bus. It shares
// the same stores as the API process; either side may drive a stage directly.
func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

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

	dedup := bus.NewDeduper(rdb, time.Hour)

	var wg sync.WaitGroup
	consume := func(topic string, handler bus.Handler) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eventBus.Consume(rootCtx, topic, bus.Dedup(dedup, handler, log)); err != nil && rootCtx.Err() == nil {
				log.Error("consumer exited", "topic", topic, "err", err)
				stop()
			}
		}()
	}

	consume(bus.TopicAnalyze, analyzer.HandleMessage)
	consume(bus.TopicCompleted, notifier.HandleMessage)

	log.Info("worker running", "env", cfg.App.Env,
		"topics", []string{bus.TopicAnalyze, bus.TopicCompleted})

	<-rootCtx.Done()
	log.Info("shutdown initiated")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
