package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy HealthStatus = "healthy"
	// StatusUnhealthy indicates a required component failed.
	StatusUnhealthy HealthStatus = "unhealthy"
	// StatusDegraded indicates an optional component failed.
	StatusDegraded HealthStatus = "degraded"
)

// HealthCheck checks one component. detail is reported as the component
// message when the check succeeds.
type HealthCheck func(ctx context.Context) (detail string, err error)

// CheckOption configures a registered check.
type CheckOption func(*registeredCheck)

// Optional marks a check whose failure degrades health without making
// the service unready, such as the event stream.
func Optional() CheckOption {
	return func(c *registeredCheck) { c.optional = true }
}

type registeredCheck struct {
	check    HealthCheck
	optional bool
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status   HealthStatus `json:"status"`
	Optional bool         `json:"optional,omitempty"`
	Message  string       `json:"message,omitempty"`
	Error    string       `json:"error,omitempty"`
	Latency  string       `json:"latency,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// ReadinessResponse is the body of /ready.
type ReadinessResponse struct {
	Ready      bool                       `json:"ready"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs the health and readiness checks of the service.
type HealthChecker struct {
	mu        sync.RWMutex
	health    map[string]registeredCheck
	readiness map[string]registeredCheck
	version   string
	timeout   time.Duration
	started   time.Time
}

// NewHealthChecker creates a health checker reporting version.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		health:    make(map[string]registeredCheck),
		readiness: make(map[string]registeredCheck),
		version:   version,
		timeout:   5 * time.Second,
		started:   time.Now(),
	}
}

// RegisterHealthCheck adds a check to /health.
func (hc *HealthChecker) RegisterHealthCheck(name string, check HealthCheck, opts ...CheckOption) {
	hc.register(hc.health, name, check, opts)
}

// RegisterReadinessCheck adds a check to /ready.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check HealthCheck, opts ...CheckOption) {
	hc.register(hc.readiness, name, check, opts)
}

func (hc *HealthChecker) register(into map[string]registeredCheck, name string, check HealthCheck, opts []CheckOption) {
	rc := registeredCheck{check: check}
	for _, opt := range opts {
		opt(&rc)
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()
	into[name] = rc
}

// SetTimeout bounds every check run.
func (hc *HealthChecker) SetTimeout(timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.timeout = timeout
}

// CheckHealth runs the health checks. A failed required check makes the
// service unhealthy, a failed optional one degraded.
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthResponse {
	components := hc.run(ctx, hc.health)

	status := StatusHealthy
	for _, c := range components {
		switch {
		case c.Status == StatusHealthy:
		case c.Optional:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		default:
			status = StatusUnhealthy
		}
	}

	return &HealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    hc.version,
		Uptime:     time.Since(hc.started).Round(time.Second).String(),
		Components: components,
	}
}

// CheckReadiness runs the readiness checks. The service is ready when
// every required check passes.
func (hc *HealthChecker) CheckReadiness(ctx context.Context) *ReadinessResponse {
	components := hc.run(ctx, hc.readiness)

	ready := true
	for _, c := range components {
		if c.Status != StatusHealthy && !c.Optional {
			ready = false
		}
	}

	return &ReadinessResponse{
		Ready:      ready,
		Timestamp:  time.Now(),
		Components: components,
	}
}

// run executes checks concurrently under the configured timeout.
func (hc *HealthChecker) run(ctx context.Context, from map[string]registeredCheck) map[string]ComponentHealth {
	hc.mu.RLock()
	checks := make(map[string]registeredCheck, len(from))
	for name, c := range from {
		checks[name] = c
	}
	timeout := hc.timeout
	hc.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make(map[string]ComponentHealth, len(checks))
	)
	for name, rc := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			health := runCheck(ctx, rc)

			mu.Lock()
			components[name] = health
			mu.Unlock()
		}()
	}
	wg.Wait()

	return components
}

func runCheck(ctx context.Context, rc registeredCheck) ComponentHealth {
	start := time.Now()
	detail, err := rc.check(ctx)

	health := ComponentHealth{
		Status:   StatusHealthy,
		Optional: rc.optional,
		Message:  detail,
		Latency:  time.Since(start).String(),
	}
	if err != nil {
		health.Status = StatusUnhealthy
		if rc.optional {
			health.Status = StatusDegraded
		}
		health.Message = ""
		health.Error = err.Error()
		if ctx.Err() != nil {
			health.Error = "check timed out"
		}
	}
	return health
}

// HealthHandler serves /health. Only an unhealthy service answers 503.
func (hc *HealthChecker) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := hc.CheckHealth(c.Request.Context())

		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, health)
	}
}

// ReadinessHandler serves /ready.
func (hc *HealthChecker) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		readiness := hc.CheckReadiness(c.Request.Context())

		code := http.StatusOK
		if !readiness.Ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, readiness)
	}
}

// LivenessHandler serves /live. It only reports that the process runs.
func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"alive":     true,
			"timestamp": time.Now(),
		})
	}
}

// Pinger is a backend that can report its availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthCheck pings a profile, token or event store. Stores that
// can count their entries report the count as detail.
func StoreHealthCheck(name string, store Pinger) HealthCheck {
	return func(ctx context.Context) (string, error) {
		if store == nil {
			return "", fmt.Errorf("%s store not configured", name)
		}
		if err := store.Ping(ctx); err != nil {
			return "", fmt.Errorf("%s store: %w", name, err)
		}

		counter, ok := store.(interface {
			Count(ctx context.Context) (int64, error)
		})
		if !ok {
			return "", nil
		}
		n, err := counter.Count(ctx)
		if err != nil {
			return "", fmt.Errorf("%s store: %w", name, err)
		}
		return fmt.Sprintf("%d entries", n), nil
	}
}
