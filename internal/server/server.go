// Package server provides HTTP server infrastructure for the UE profile
// API. It includes Gin-based routing, middleware setup, and graceful
// shutdown handling.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
	"github.com/jaydenhoang5291/ue-profile/internal/config"
	"github.com/jaydenhoang5291/ue-profile/internal/events"
	"github.com/jaydenhoang5291/ue-profile/internal/handlers"
	"github.com/jaydenhoang5291/ue-profile/internal/middleware"
	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/observability"
	"github.com/jaydenhoang5291/ue-profile/internal/storage"
)

// Version is reported by the health and root endpoints.
var Version = "dev"

// Server represents the HTTP server of the UE profile repository.
// It encapsulates the Gin router, configuration, logger, and server state.
//
// The server provides:
//   - UE profile endpoints (/ue_profiles)
//   - Health check endpoints (/health, /ready, /live)
//   - Prometheus metrics endpoint (/metrics)
//   - OpenAPI description and documentation (/openapi.yaml, /docs/)
//
// Example:
//
//	cfg, err := config.Load("config/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := server.New(cfg, logger, store, operator,
//	    server.WithMetrics(metrics),
//	    server.WithAuth(authMw),
//	)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
type Server struct {
	config           *config.Config
	logger           *zap.Logger
	router           *gin.Engine
	httpServer       *http.Server
	metrics          *observability.Metrics
	store            storage.Store
	generator        handlers.Generator
	healthCheck      *observability.HealthChecker
	openAPIValidator *middleware.OpenAPIValidator
	authMw           AuthMiddleware
	rateLimiter      *middleware.RateLimiter
	events           events.Publisher
	profiles         *handlers.ProfileHandler

	mu           sync.Mutex
	shutdownOnce sync.Once // Ensures shutdown logic runs only once
}

// AuthMiddleware defines the interface for authentication middleware.
// It must set the request ID and, for authenticated requests, the
// principal.
type AuthMiddleware interface {
	AuthenticationMiddleware() gin.HandlerFunc
}

// Option configures optional server components.
type Option func(*Server)

// WithMetrics records HTTP and profile metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAuth enables bearer token authentication.
func WithAuth(mw AuthMiddleware) Option {
	return func(s *Server) { s.authMw = mw }
}

// WithRateLimiter installs rl after authentication.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(s *Server) { s.rateLimiter = rl }
}

// WithEvents publishes profile change events on p.
func WithEvents(p events.Publisher) Option {
	return func(s *Server) { s.events = p }
}

// WithHealthChecker replaces the default health checker, which only
// pings the profile store.
func WithHealthChecker(hc *observability.HealthChecker) Option {
	return func(s *Server) { s.healthCheck = hc }
}

// New creates a new Server instance with the given configuration, logger,
// profile store and generator. It initializes the Gin router, sets up
// middleware, and configures routes.
//
// The function will panic if essential dependencies are missing.
func New(cfg *config.Config, logger *zap.Logger, store storage.Store, gen handlers.Generator, opts ...Option) *Server {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if gen == nil {
		panic("generator cannot be nil")
	}

	gin.SetMode(cfg.Server.GinMode)

	srv := &Server{
		config:    cfg,
		logger:    logger,
		router:    gin.New(),
		store:     store,
		generator: gen,
	}
	for _, opt := range opts {
		opt(srv)
	}

	if srv.healthCheck == nil {
		srv.healthCheck = initHealthChecker(store)
	}

	validator, err := initOpenAPIValidator(cfg, logger)
	if err != nil {
		logger.Warn("failed to initialize OpenAPI validator, validation disabled",
			zap.Error(err),
		)
	}
	srv.openAPIValidator = validator

	handlerOpts := []handlers.ProfileHandlerOption{handlers.WithMaxUEs(cfg.Generator.MaxUEs)}
	if srv.metrics != nil {
		handlerOpts = append(handlerOpts, handlers.WithMetrics(srv.metrics))
	}
	if srv.events != nil {
		handlerOpts = append(handlerOpts, handlers.WithEvents(srv.events))
	}
	srv.profiles = handlers.NewProfileHandler(store, gen, logger, handlerOpts...)

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

// initHealthChecker registers the profile store as health and readiness
// check.
func initHealthChecker(store storage.Store) *observability.HealthChecker {
	checker := observability.NewHealthChecker(Version)
	checker.RegisterHealthCheck("storage", observability.StoreHealthCheck("profile", store))
	checker.RegisterReadinessCheck("storage", observability.StoreHealthCheck("profile", store))
	return checker
}

// initOpenAPIValidator loads the embedded description or the configured
// spec file. The validator also serves /openapi.yaml, so it is built even
// when request validation is disabled.
func initOpenAPIValidator(cfg *config.Config, logger *zap.Logger) (*middleware.OpenAPIValidator, error) {
	validationCfg := middleware.DefaultValidationConfig()
	validationCfg.Logger = logger
	validationCfg.ValidateRequest = cfg.Validation.Enabled
	if cfg.Server.MaxBodyBytes > 0 {
		validationCfg.MaxBodySize = cfg.Server.MaxBodyBytes
	}
	validationCfg.ExcludePaths = append(validationCfg.ExcludePaths, "/docs")

	validator, err := middleware.NewOpenAPIValidator(validationCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAPI validator: %w", err)
	}

	if cfg.Validation.SpecPath != "" {
		if err := validator.LoadSpecFromFile(cfg.Validation.SpecPath); err != nil {
			return nil, err
		}
		return validator, nil
	}

	if err := validator.LoadEmbeddedSpec(); err != nil {
		return nil, err
	}
	return validator, nil
}

// setupMiddleware configures middleware for the Gin router.
// Middleware is executed in the order they are added.
func (s *Server) setupMiddleware() {
	// Recovery middleware - must be first to catch panics
	s.router.Use(s.recoveryMiddleware())

	// Request logging middleware
	s.router.Use(s.loggingMiddleware())

	if s.metrics != nil && s.config.Observability.Metrics.Enabled {
		s.router.Use(s.metricsMiddleware())
	}

	s.router.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()))

	if s.config.Security.EnableCORS {
		s.router.Use(s.corsMiddleware())
	}

	if s.authMw != nil {
		s.router.Use(s.authMw.AuthenticationMiddleware())
	} else {
		s.router.Use(requestIDMiddleware())
	}

	// Rate limits are keyed by user, so they follow authentication.
	if s.rateLimiter != nil {
		s.router.Use(s.rateLimiter.Middleware())
	}

	if s.openAPIValidator != nil && s.config.Validation.Enabled {
		s.router.Use(s.openAPIValidator.Middleware())
		s.logger.Info("OpenAPI request validation enabled")
	}
}

// Start starts the HTTP server and blocks until the server is shut down.
// It supports graceful shutdown on SIGINT and SIGTERM signals.
//
// Returns an error if the server fails to start or encounters an error during shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	httpServer := &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server",
			zap.String("address", addr),
			zap.String("mode", s.config.Server.GinMode),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received",
			zap.String("signal", sig.String()),
		)
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the HTTP server.
// It waits for active requests to complete or until the shutdown timeout expires.
// This method is safe to call multiple times - only the first call will execute.
func (s *Server) Shutdown() error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		httpServer := s.httpServer
		s.mu.Unlock()

		if httpServer == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown",
			zap.Duration("timeout", s.config.Server.ShutdownTimeout),
		)

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("error during shutdown", zap.Error(err))
			shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
			return
		}

		s.logger.Info("server shutdown complete")
	})

	return shutdownErr
}

// Router returns the underlying Gin router.
// This is useful for testing and adding custom routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// HealthChecker returns the health checker, e.g. to register more checks.
func (s *Server) HealthChecker() *observability.HealthChecker {
	return s.healthCheck
}

// recoveryMiddleware recovers from panics and logs the error.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:   models.ErrorInternal,
					Message: "Internal server error",
					Code:    http.StatusInternalServerError,
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests and responses.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	base := observability.NewLogger(s.logger)
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log := base.WithContext(c.Request.Context())
		log.LogRequest(c.Request.Method, path, c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000,
			zap.String("query", query),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		for _, e := range c.Errors {
			log.WithError(e.Err).Error("request error")
		}
	}
}

// metricsMiddleware collects Prometheus metrics for HTTP requests.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		s.metrics.HTTPInFlightInc()
		defer s.metrics.HTTPInFlightDec()

		c.Next()

		// Unmatched paths share one label to bound cardinality.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.Writer.Size())
	}
}

// corsMiddleware adds CORS headers for the web console.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := len(s.config.Security.AllowedOrigins) == 0
		for _, allowedOrigin := range s.config.Security.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Authorization", "Content-Type", "X-Request-ID"}, ", "))
			h.Set("Access-Control-Allow-Methods", strings.Join([]string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
			}, ", "))
			h.Set("Access-Control-Expose-Headers", "X-Total-Count, X-Request-ID, Content-Disposition")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags requests when no authentication middleware is
// installed.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(auth.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
