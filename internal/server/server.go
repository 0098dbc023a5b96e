package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/osa911/portfolio/internal/api/constants"
	"github.com/osa911/portfolio/internal/api/handlers"
	"github.com/osa911/portfolio/internal/api/middleware"
	"github.com/osa911/portfolio/internal/config"
	"github.com/osa911/portfolio/internal/logging"
	"github.com/osa911/portfolio/internal/ratelimit"
	"github.com/osa911/portfolio/internal/server/routes"
	"github.com/osa911/portfolio/internal/telemetry"

	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds how long in-flight sends may finish on shutdown
const ShutdownTimeout = 10 * time.Second

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Relay         handlers.Relayer
	TransportName string
	Limiter       *ratelimit.Limiter
	Metrics       *telemetry.Metrics
	// Now is the limiter clock, time.Now when nil
	Now func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	logger *logging.Logger
}

// NewServer creates a new server instance with every route mounted
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	logger := logging.GetLogger()

	// Create a new engine without default middleware
	router := gin.New()
	router.HandleMethodNotAllowed = false

	// X-Forwarded-For is only honoured from these peers
	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	routes.SetupGlobalMiddleware(router, cfg, logger, deps.Metrics)

	h := &routes.Handlers{
		Mail:   handlers.NewMailHandler(deps.Relay, deps.Metrics),
		Health: handlers.NewHealthHandler(deps.TransportName),
	}
	m := &routes.Middleware{
		Validation: middleware.NewValidationMiddleware(deps.Metrics),
		ClientRateLimit: middleware.ClientRateLimit(middleware.ClientRateLimitConfig{
			Limiter: deps.Limiter,
			Logger:  logger,
			Metrics: deps.Metrics,
			Now:     deps.Now,
		}),
		MaxBodyBytes: constants.MaxBodyBytes,
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled && deps.Metrics != nil {
		metricsHandler = deps.Metrics.Handler()
	}
	routes.Setup(router, cfg, h, m, metricsHandler)

	return &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// up to ShutdownTimeout
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A send may take up to the transport timeout before we answer
		WriteTimeout: s.cfg.SMTPTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}
