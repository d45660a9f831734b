package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/config"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"
	"github.com/aleks2005vk/cheap-gasoline/internal/infra"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"
	"github.com/aleks2005vk/cheap-gasoline/internal/router"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"
	"github.com/aleks2005vk/cheap-gasoline/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Cheap Gasoline API
// @version 1.0
// @description Crowdsourced fuel prices per station.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	stores, err := infra.OpenStores(cfg.DatabaseURL, cfg.LedgerDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()
	log.Info().Bool("separate_ledger", stores.Separate()).Msg("stores ready")

	// Redis is optional: without it the resolver runs uncached, audit
	// entries are only logged and the scheduler skips DLQ replay.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = infra.NewRedis(cfg.RedisURL); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and job queue")
			rdb = nil
		}
	}

	fuels, err := fuelconfig.Load(cfg.FuelTemplatesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load fuel templates")
	}

	uploads, err := infra.NewLocalUploads(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare upload dir")
	}

	in := router.Infra{
		Stores:  stores,
		Redis:   rdb,
		Fuels:   fuels,
		Uploads: uploads,
	}
	if cfg.OCRServiceURL != "" {
		breaker := infra.NewCircuitBreaker(infra.BreakerConfig{})
		in.OCR = infra.NewOCRClient(cfg.OCRServiceURL, time.Duration(cfg.OCRTimeoutSeconds)*time.Second, breaker)
	}
	if cfg.MQTTBrokerURL != "" {
		pub, err := infra.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTTopicPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, price events disabled")
		} else {
			defer pub.Close()
			in.Notifier = pub
		}
	}
	if rdb != nil {
		in.Audit = worker.NewAuditDispatcher(rdb)
	} else {
		in.Audit = service.LogAuditSink{}
	}

	svc := router.NewServices(cfg, in)

	// Stations saved under an older template table pick up the current one.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if n, err := svc.Catalog.ResyncAll(ctx); err != nil {
		log.Warn().Err(err).Msg("startup fuel config resync failed")
	} else {
		log.Info().Int("updated", n).Str("templates", fuels.Version).Msg("startup fuel config resync")
	}

	// Background workers and cron jobs, wired here so they share the
	// composition root's dependencies.
	var pool *worker.Pool
	if rdb != nil {
		pool = worker.NewPool(rdb)
		pool.Handle(worker.QueueAudit, worker.NewAuditWorker(repository.NewAuditRepository(stores.Catalog)).Process)
		pool.Start(ctx, cfg.WorkerPoolSize)
	}
	sched, err := worker.StartScheduler(ctx, worker.SchedulerConfig{
		ResyncSpec: cfg.FuelResyncCron,
		ReplaySpec: cfg.DLQReplayCron,
		Catalog:    svc.Catalog,
		RDB:        rdb,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(cfg, in, svc),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("cheap-gasoline backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	<-sched.Stop().Done()
	if pool != nil {
		pool.Wait()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets a pretty console writer, production plain JSON.
func setupLogger(cfg *config.Config) {
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
