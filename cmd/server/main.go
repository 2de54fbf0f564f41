package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/repository"
	"shareit/internal/service"
	"shareit/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const readinessInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	logger := logging.Component(baseLogger, "server-main")

	db, err := database.NewDB(cfg.Database.Path, logging.Component(baseLogger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	events.NewOutboxRecorder(db).Attach(eventBus, events.AllTypes...)

	svc := api.Services{
		Users:    service.NewUserService(db, logging.Component(baseLogger, "users")),
		Items:    service.NewItemService(db, eventBus, logging.Component(baseLogger, "items")),
		Bookings: service.NewBookingService(db, eventBus, cfg.Booking.PreventOverlap, logging.Component(baseLogger, "bookings")),
		Requests: service.NewRequestService(db, eventBus, logging.Component(baseLogger, "requests")),
	}

	httpServer := api.NewHTTPServer(cfg.API, svc, initQuota(redisClient, baseLogger), db.PingContext, logging.Component(baseLogger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, db.PingContext, baseLogger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	var wg sync.WaitGroup
	startBackground(ctx, &wg, cfg, db, redisClient, baseLogger)
	startMetrics(ctx, &wg, cfg, logger)

	err = serve(ctx, httpServer, grpcServer, cfg, logger)
	wg.Wait()
	return err
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis not reachable at startup, quota falls back to memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initQuota(redisClient *redis.Client, baseLogger *zerolog.Logger) domain.RateLimitRepository {
	memory := repository.NewMemoryLimitRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverLimitRepository(
		repository.NewRedisLimitRepository(redisClient),
		memory,
		logging.Component(baseLogger, "quota"),
	)
}

func startBackground(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	baseLogger *zerolog.Logger,
) {
	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db.Path(), cfg.Backup, logging.Component(baseLogger, "backup"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			backup.Start(ctx)
		}()
	}

	if failed, err := db.GetFailedOutboxEvents(ctx); err != nil {
		baseLogger.Warn().Err(err).Msg("failed to inspect outbox")
	} else if len(failed) > 0 {
		baseLogger.Warn().Int("count", len(failed)).Msg("outbox has events that exhausted their retries")
	}

	if !cfg.Broker.Enabled {
		baseLogger.Info().Msg("broker disabled, events stay in the outbox")
		return
	}

	broker, err := worker.NewAMQPBroker(cfg.Broker.URL, cfg.Broker.Queue)
	if err != nil {
		baseLogger.Warn().Err(err).Msg("broker unreachable at startup, outbox worker will keep retrying")
		if broker, err = worker.NewLazyAMQPBroker(cfg.Broker.URL, cfg.Broker.Queue); err != nil {
			baseLogger.Error().Err(err).Msg("invalid broker config, outbox worker not started")
			return
		}
	}

	retry := worker.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Broker.MaxRetries
	outbox := worker.NewOutboxWorker(db, broker, redisClient, retry, cfg.Broker.PollInterval, cfg.Broker.BatchSize,
		logging.Component(baseLogger, "outbox"))

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer broker.Close()
		outbox.Start(ctx)
	}()
}

func startMetrics(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

func serve(
	ctx context.Context,
	httpServer *api.HTTPServer,
	grpcServer *api.GRPCServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	if grpcServer != nil {
		go grpcServer.WatchReadiness(ctx, readinessInterval)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("shareit server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("shareit server stopped")
	return serveErr
}
