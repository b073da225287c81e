package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/internal/app"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/handler/health"
	promhandler "github.com/jwalitptl/dental-api/internal/handler/prometheus"
	sweepworker "github.com/jwalitptl/dental-api/internal/worker"
	"github.com/jwalitptl/dental-api/pkg/logger"
	"github.com/jwalitptl/dental-api/pkg/messaging/redis"
	"github.com/jwalitptl/dental-api/pkg/worker"
)

func setupHealthCheck(port int, ping health.Pinger, registry *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(ping).RegisterRoutes(engine.Group(""))
	engine.GET("/metrics", promhandler.New(registry).Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	}).WithFields(map[string]interface{}{"component": "worker"})
	log.Logger = *l.Zerolog()

	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("Memory storage is private to this process; the worker will only see its own data")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	services, err := app.NewServices(app.Deps{
		Config:   cfg,
		Store:    store,
		Mailer:   app.NewMailer(cfg.SMTP, log.Logger),
		Registry: registry,
		Logger:   log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	processor, err := worker.NewOutboxProcessor(
		store.Outbox,
		broker,
		worker.OutboxProcessorConfig{
			Channel:       cfg.Redis.Channel,
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			ClaimLease:    cfg.Outbox.ClaimLease,
		},
		l,
		services.Metrics,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid outbox configuration")
	}

	sweeper, err := sweepworker.NewOverdueSweepWorker(
		services.Appointments,
		cfg.Clinic.SweepSchedule,
		cfg.Clinic.SweepBatchSize,
		log.Logger,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid sweep configuration")
	}

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Worker.HealthPort, store.Ping, registry)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	wg.Wait()

	services.Notifier.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = healthSrv.Shutdown(shutdownCtx)
	log.Info().Msg("Worker exited")
}
