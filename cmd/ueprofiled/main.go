// Package main is the entry point of the UE profile repository server.
//
// The application performs the following initialization sequence:
//  1. Load configuration from config file and environment variables
//  2. Initialize structured logging with zap
//  3. Connect to Redis, shared by the profile store, the token store and
//     the rate limiter
//  4. Provision the configured API tokens
//  5. Build the profile generator from the operator keys
//  6. Configure the HTTP server with routes and middleware
//  7. Start the HTTP server with graceful shutdown support
//
// Graceful shutdown is triggered by SIGINT (Ctrl+C) or SIGTERM signals.
//
// Example usage:
//
//	# Start with default config
//	./ueprofiled
//
//	# Start with custom config file
//	./ueprofiled --config=/etc/ueprofile/config.yaml
//
//	# Start with environment variable overrides
//	export UEPROFILE_SERVER_PORT=9090
//	export UEPROFILE_REDIS_ADDRESSES=redis.example.com:6379
//	./ueprofiled
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
	"github.com/jaydenhoang5291/ue-profile/internal/config"
	"github.com/jaydenhoang5291/ue-profile/internal/events"
	"github.com/jaydenhoang5291/ue-profile/internal/generator"
	"github.com/jaydenhoang5291/ue-profile/internal/middleware"
	"github.com/jaydenhoang5291/ue-profile/internal/observability"
	"github.com/jaydenhoang5291/ue-profile/internal/server"
	"github.com/jaydenhoang5291/ue-profile/internal/storage"
)

const (
	// ServiceName is the name of this service.
	ServiceName = "ueprofiled"

	// connectivityTimeout bounds the startup checks against Redis.
	connectivityTimeout = 5 * time.Second
)

var (
	// Command-line flags.
	configPath  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		if _, err := fmt.Fprintf(os.Stdout, "%s version %s\n", ServiceName, server.Version); err != nil {
			panic(err)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
// It returns an error if any critical initialization or runtime error occurs.
func run() error {
	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		// Syncing stderr fails on some platforms; nothing to do about it.
		_ = logger.Sync()
	}()

	logger.Info("UE profile repository starting",
		zap.String("version", server.Version),
		zap.String("service", ServiceName),
		zap.String("environment", cfg.Observability.Logging.Environment),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(logger); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	// Start blocks until SIGINT or SIGTERM and shuts the server down.
	if err := components.server.Start(); err != nil {
		logger.Error("server error", zap.Error(err))
		return err
	}
	return nil
}

// applicationComponents holds all initialized application components.
type applicationComponents struct {
	redis  redis.UniversalClient
	store  *storage.RedisStore
	tokens *auth.RedisStore
	events *events.RedisQueue
	server *server.Server
}

// Close releases the shared Redis connection. The profile and token
// stores wrap the same client, so it is closed once.
func (c *applicationComponents) Close(logger *zap.Logger) error {
	if c == nil || c.redis == nil {
		return nil
	}
	if err := c.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		logger.Warn("failed to close Redis connection", zap.Error(err))
		return fmt.Errorf("failed to close redis: %w", err)
	}
	return nil
}

// loadConfiguration loads and validates the application configuration.
func loadConfiguration(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupLogger initializes the global logger from the logging section.
func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.InitLoggerWithLevel(
		cfg.Observability.Logging.Environment,
		cfg.Observability.Logging.Level,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Logger, nil
}

// initializeComponents connects to Redis and builds the server.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*applicationComponents, error) {
	client, err := initializeRedis(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize Redis", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	var metrics *observability.Metrics
	storeOpts := []storage.Option{storage.WithLogger(logger)}
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(cfg.Observability.Metrics.Namespace)
		storeOpts = append(storeOpts, storage.WithMetrics(metrics))
	}

	components := &applicationComponents{
		redis:  client,
		store:  storage.NewRedisStoreWithClient(client, storeOpts...),
		tokens: auth.NewRedisStoreWithClient(client),
	}
	if cfg.Events.Enabled {
		components.events = events.NewRedisQueue(client, logger,
			events.WithStream(cfg.Events.Stream),
			events.WithMaxLen(cfg.Events.MaxLen),
		)
	}

	authMw, err := initializeAuth(ctx, cfg, components.tokens, logger)
	if err != nil {
		_ = components.Close(logger)
		return nil, err
	}

	gen, err := generator.NewOperator(cfg.OperatorConfig())
	if err != nil {
		_ = components.Close(logger)
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	logger.Info("generator initialized",
		zap.Int("keys", len(cfg.Generator.Keys)),
		zap.Int("max_ues", cfg.Generator.MaxUEs),
	)

	opts := []server.Option{
		server.WithAuth(authMw),
		server.WithHealthChecker(initializeHealthChecker(components, logger)),
	}

	if metrics != nil {
		opts = append(opts, server.WithMetrics(metrics))
	}

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimitMiddlewareConfig(client), logger)
		if err != nil {
			_ = components.Close(logger)
			return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		opts = append(opts, server.WithRateLimiter(limiter))
		logger.Info("rate limiting enabled",
			zap.Int("requests_per_second", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	if components.events != nil {
		opts = append(opts, server.WithEvents(components.events))
		logger.Info("profile events enabled",
			zap.String("stream", cfg.Events.Stream),
			zap.Int64("max_len", cfg.Events.MaxLen),
		)
	}

	components.server = server.New(cfg, logger, components.store, gen, opts...)
	logger.Info("HTTP server created",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.GinMode),
	)

	return components, nil
}

// initializeRedis creates the shared client and verifies connectivity.
func initializeRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, error) {
	if cfg.Redis.Password != "" {
		logger.Warn("Redis password is stored in plaintext configuration, prefer UEPROFILE_REDIS_PASSWORD")
	}

	client := storage.NewRedisClient(cfg.StorageConfig())

	pingCtx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connectivity check failed: %w", err)
	}

	logger.Info("Redis connectivity verified",
		zap.String("mode", cfg.Redis.Mode),
		zap.Strings("addresses", cfg.Redis.Addresses),
	)
	return client, nil
}

// initializeAuth provisions the configured tokens and builds the
// authentication middleware.
func initializeAuth(ctx context.Context, cfg *config.Config, store auth.Store, logger *zap.Logger) (*auth.Middleware, error) {
	if !cfg.Auth.Enabled {
		logger.Warn("authentication is disabled, all requests run without a user")
	}

	n, err := auth.Bootstrap(ctx, store, cfg.StaticTokens())
	if err != nil {
		return nil, fmt.Errorf("failed to provision API tokens: %w", err)
	}
	logger.Info("API tokens provisioned",
		zap.Int("configured", len(cfg.Auth.Tokens)),
		zap.Int("created", n),
	)

	return auth.NewMiddleware(store, cfg.AuthMiddlewareConfig(), logger), nil
}

// initializeHealthChecker registers the profile and token stores.
func initializeHealthChecker(c *applicationComponents, logger *zap.Logger) *observability.HealthChecker {
	checker := observability.NewHealthChecker(server.Version)
	checker.SetTimeout(connectivityTimeout)

	checker.RegisterHealthCheck("redis", observability.StoreHealthCheck("profile", c.store))
	checker.RegisterReadinessCheck("redis", observability.StoreHealthCheck("profile", c.store))
	checker.RegisterReadinessCheck("tokens", observability.StoreHealthCheck("token", c.tokens))
	if c.events != nil {
		checker.RegisterHealthCheck("events", observability.StoreHealthCheck("event", c.events), observability.Optional())
	}

	logger.Info("health checks registered",
		zap.Bool("events", c.events != nil),
	)
	return checker
}
