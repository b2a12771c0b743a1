// Package observability provides logging, metrics and health checks for the
// UE profile service. It includes structured logging with zap, Prometheus
// metrics, and health/readiness checks.
//
// # Logging
//
// Initialize the logger once at application startup:
//
//	logger, err := observability.InitLogger("production")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Request-scoped loggers pick up the request ID and authenticated user:
//
//	logger.WithContext(ctx).Info("profile created",
//	    zap.String("supi", ue.Supi),
//	)
//
// # Metrics
//
// Initialize metrics once at application startup:
//
//	metrics := observability.InitMetrics("ueprofile")
//
// Record profile operations:
//
//	start := time.Now()
//	err := store.Create(ctx, ue)
//	metrics.RecordProfileOperation("create", time.Since(start), err)
//
// Tests build an isolated set with NewMetrics and a private registry.
//
// # Health Checks
//
//	healthChecker := observability.NewHealthChecker("v1.0.0")
//	healthChecker.RegisterReadinessCheck("redis", observability.StoreHealthCheck("profile", store))
//
//	router.GET("/health", healthChecker.HealthHandler())
//	router.GET("/ready", healthChecker.ReadinessHandler())
package observability
