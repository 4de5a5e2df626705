package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/application/assess"
	"checkout-fraud-engine/internal/application/collect"
	"checkout-fraud-engine/internal/application/completion"
	"checkout-fraud-engine/internal/application/review"
	"checkout-fraud-engine/internal/domain/device"
	"checkout-fraud-engine/internal/domain/fraud"
	"checkout-fraud-engine/internal/domain/order"
	"checkout-fraud-engine/internal/domain/session"
	"checkout-fraud-engine/internal/domain/trust"
	"checkout-fraud-engine/internal/infrastructure/cache/redis"
	"checkout-fraud-engine/internal/infrastructure/database/memory"
	"checkout-fraud-engine/internal/infrastructure/database/postgres"
	"checkout-fraud-engine/internal/infrastructure/http/router"
	"checkout-fraud-engine/internal/infrastructure/messaging/kafka"
	"checkout-fraud-engine/internal/infrastructure/ml"
	"checkout-fraud-engine/internal/infrastructure/rules"
	"checkout-fraud-engine/internal/interfaces/http/handler"
	"checkout-fraud-engine/internal/pkg/config"
	"checkout-fraud-engine/internal/pkg/logger"
)

const version = "1.0.0"

// stores are the repositories the services run on
type stores struct {
	signals  fraud.SignalRepository
	rules    fraud.RuleRepository
	trust    trust.Repository
	devices  device.Repository
	sessions session.Repository
	orders   order.Repository
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting checkout fraud engine",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handler.HealthChecker)

	// Database connection, falling back to in-memory stores
	st := memoryStores()
	if cfg.Database.Enabled {
		dbClient, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = dbClient.Close() }()
		st = postgresStores(dbClient)
		checks["database"] = dbClient
	} else {
		log.Warn("database disabled, running on in-memory stores")
	}

	// Velocity window in Redis behind a circuit breaker
	var velocity fraud.VelocityTracker
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		checks["redis"] = redisClient

		velocity = redis.NewBreakerTracker(redis.NewVelocityCache(redisClient), redis.BreakerSettings{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			ConsecutiveFails: cfg.Breaker.ConsecutiveFails,
		}, log)
	} else {
		log.Warn("redis disabled, velocity window is process-local")
		velocity = memory.NewVelocityTracker()
	}

	// Signal alerts
	var publisher fraud.AlertPublisher = kafka.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		alerts := kafka.NewAlertPublisher(kafka.NewWriter(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.AlertsTopic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}), log)
		defer func() {
			if err := alerts.Close(); err != nil {
				log.Warn("failed to close alert publisher", zap.Error(err))
			}
		}()
		publisher = alerts
		log.Info("publishing signal alerts",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.AlertsTopic))
	}

	thresholds := fraud.Thresholds{
		Review: cfg.Fraud.ReviewThreshold,
		Block:  cfg.Fraud.BlockThreshold,
	}

	// Domain services
	orderService := order.NewService(st.orders)
	orderService.SetMaxOrderAmount(cfg.Fraud.GetMaxOrderAmount())
	ledger := trust.NewLedger(st.trust, st.signals)
	registry := device.NewRegistry(st.devices)

	// Scoring
	ruleEngine := rules.NewEngine(st.rules, cfg.Fraud.RuleCacheTTL, log)
	scorer := rules.NewScorer(ruleEngine, velocity, orderService, ledger, thresholds, log)

	// Use cases
	collector := collect.NewCollector(st.sessions, registry, ml.NewFeatureExtractor(), cfg.Fraud.SessionTTL, log)
	auditWriter := assess.NewAuditWriter(cfg.Fraud.AuditConcurrency, cfg.Fraud.AuditTimeout, log)
	gate := assess.NewGate(collector, scorer, st.signals, velocity, publisher, auditWriter, thresholds, cfg.Fraud.ScoringTimeout, log)
	workbench := review.NewWorkbench(st.signals, ledger, registry, orderService, publisher, log)
	completeOrder := completion.NewCompleteOrderUseCase(orderService, ledger, registry, collector, log)

	// HTTP
	auth := router.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, log)
	if !auth.Enabled() {
		log.Warn("auth.jwt_secret not set, reviewer endpoints will reject every request")
	}

	handlers := router.Handlers{
		Fraud:   handler.NewFraudHandler(gate, log),
		Session: handler.NewSessionHandler(collector, log),
		Order:   handler.NewOrderHandler(completeOrder, log),
		Review:  handler.NewReviewHandler(workbench, ruleEngine, log),
		Health:  handler.NewHealthHandler(checks, version),
	}
	if cfg.Metrics.Enabled {
		handlers.Metrics = handler.MetricsHandler()
	}
	r := router.NewRouter(handlers, auth, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background session expiry
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go collector.RunSweeper(sweepCtx, cfg.Fraud.SweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	stopSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}
	if err := auditWriter.Close(shutdownCtx); err != nil {
		log.Error("audit writes did not drain", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*postgres.Client, error) {
	client, err := postgres.NewClient(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := client.Migrate(migrateCtx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		if err := postgres.NewRuleRepository(client).Seed(migrateCtx, fraud.DefaultRules()); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to seed rules: %w", err)
		}
	}

	log.Info("connected to postgres",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port))
	return client, nil
}

func postgresStores(client *postgres.Client) stores {
	return stores{
		signals:  postgres.NewSignalRepository(client),
		rules:    postgres.NewRuleRepository(client),
		trust:    postgres.NewTrustRepository(client),
		devices:  postgres.NewDeviceRepository(client),
		sessions: postgres.NewSessionRepository(client),
		orders:   postgres.NewOrderRepository(client),
	}
}

func memoryStores() stores {
	return stores{
		signals:  memory.NewSignalRepository(),
		rules:    memory.NewRuleRepository(),
		trust:    memory.NewTrustRepository(),
		devices:  memory.NewDeviceRepository(),
		sessions: memory.NewSessionRepository(),
		orders:   memory.NewOrderRepository(),
	}
}
