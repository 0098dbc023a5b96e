package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osa911/portfolio/internal/config"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/mail"
	"github.com/osa911/portfolio/internal/ratelimit"
	"github.com/osa911/portfolio/internal/server"
	"github.com/osa911/portfolio/internal/service"
	"github.com/osa911/portfolio/internal/telemetry"
	"github.com/osa911/portfolio/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Missing credentials or origins stop the process before it listens
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Configure(&logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	})
	logger := logging.GetLogger()
	defer logger.Close()

	logger.Info("Starting relay %s in %s mode", version.Info(), cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.Environment.String(), version.Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	transport, err := mail.NewTransport(cfg, logger)
	if err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	if cfg.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	relay := service.NewContactRelayService(transport, cfg.MailFrom, cfg.MailTo, logger, metrics)

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.SMTPTimeout)
	err = relay.Verify(verifyCtx)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("Mail transport %s verified", transport.Name())

	store, closeStore, err := newLimiterStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv, err := server.NewServer(cfg, server.Dependencies{
		Relay:         relay,
		TransportName: transport.Name(),
		Limiter:       ratelimit.New(store, cfg.RateLimitMax, cfg.RateLimitWindow),
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newLimiterStore returns the per-client counter store. The memory store is
// per process; redis shares counters between replicas.
func newLimiterStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (ratelimit.Store, func(), error) {
	switch cfg.RateLimitStore {
	case config.StoreRedis:
		client, err := ratelimit.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Rate limiter using shared redis store")
		return ratelimit.NewRedisStore(client, "relay:ratelimit"), func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client: %v", err)
			}
		}, nil
	case config.StoreMemory:
		store := ratelimit.NewMemoryStore()
		store.StartJanitor(cfg.RateLimitWindow)
		logger.Info("Rate limiter using in-process memory store")
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, errors.New("unknown rate limit store " + cfg.RateLimitStore)
	}
}
