package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "ratelimit:"

// tokenBucket refills rate tokens per elapsed second up to burst and takes
// one. It returns {allowed, remaining, burst}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local burst = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local tokens_key = key .. ":tokens"
	local timestamp_key = key .. ":ts"

	local tokens = tonumber(redis.call('GET', tokens_key) or burst)
	local last_update = tonumber(redis.call('GET', timestamp_key) or now)

	local elapsed = now - last_update
	if elapsed < 0 then
		elapsed = 0
	end
	tokens = math.min(burst, tokens + elapsed * rate)

	if tokens >= 1 then
		tokens = tokens - 1
		redis.call('SET', tokens_key, tokens, 'EX', ttl)
		redis.call('SET', timestamp_key, now, 'EX', ttl)
		return {1, tokens, burst}
	end
	return {0, 0, burst}
`)

var rateLimitRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ueprofile",
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Requests rejected by the rate limiter",
	},
	[]string{"scope"},
)

// RateLimiter provides distributed rate limiting using Redis.
// Each caller gets a token bucket; selected routes get a tighter one.
type RateLimiter struct {
	client redis.UniversalClient
	logger *zap.Logger
	config *RateLimitConfig
	now    func() time.Time
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active
	Enabled bool

	// PerUser limits all requests of one caller
	PerUser LimitConfig

	// Routes adds limits for specific routes, such as generation
	Routes []RouteLimitConfig

	// RedisClient is the Redis client for distributed limiting
	RedisClient redis.UniversalClient
}

// LimitConfig is a token bucket size and refill rate.
type LimitConfig struct {
	RequestsPerSecond int
	BurstSize         int
}

// RouteLimitConfig configures the limit of one route. Path is the Gin
// route pattern, e.g. "/ue_profiles/generate".
type RouteLimitConfig struct {
	Method string
	Path   string
	LimitConfig
}

// burst returns BurstSize, defaulting to twice the rate.
func (l LimitConfig) burst() int {
	if l.BurstSize > 0 {
		return l.BurstSize
	}
	return l.RequestsPerSecond * 2
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config *RateLimitConfig, logger *zap.Logger) (*RateLimiter, error) {
	if config == nil {
		return nil, fmt.Errorf("rate limit config cannot be nil")
	}
	if config.RedisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := config.RedisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RateLimiter{
		client: config.RedisClient,
		logger: logger,
		config: config,
		now:    time.Now,
	}, nil
}

// Middleware returns a Gin middleware function for rate limiting. It must
// run after authentication so callers are identified by user.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.config.Enabled {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		caller := callerID(c)

		if limit := rl.routeLimit(c.Request.Method, c.FullPath()); limit != nil {
			key := fmt.Sprintf("route:%s:%s:%s", caller, c.Request.Method, c.FullPath())
			if !rl.allow(ctx, c, "route", key, *limit) {
				return
			}
		}

		if rl.config.PerUser.RequestsPerSecond > 0 {
			if !rl.allow(ctx, c, "user", "user:"+caller, rl.config.PerUser) {
				return
			}
		}

		c.Next()
	}
}

// allow takes a token from the bucket at key. It fails open when Redis is
// unreachable.
func (rl *RateLimiter) allow(ctx context.Context, c *gin.Context, scope, key string, limit LimitConfig) bool {
	now := rl.now().Unix()
	const window = 1

	res, err := tokenBucket.Run(ctx, rl.client, []string{rateLimitKeyPrefix + key},
		now, limit.RequestsPerSecond, limit.burst(), window*2).Int64Slice()
	if err != nil || len(res) < 3 {
		rl.logger.Error("rate limit check failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}

	allowed, remaining, burst := res[0] == 1, res[1], res[2]

	c.Header("X-RateLimit-Limit", strconv.FormatInt(burst, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(now+window, 10))

	if allowed {
		return true
	}

	rateLimitRejections.WithLabelValues(scope).Inc()
	rl.logger.Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("client_ip", c.ClientIP()),
	)

	c.Header("Retry-After", strconv.Itoa(window))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":   "TooManyRequests",
		"message": "rate limit exceeded",
		"code":    http.StatusTooManyRequests,
	})
	return false
}

func (rl *RateLimiter) routeLimit(method, path string) *LimitConfig {
	for i := range rl.config.Routes {
		r := &rl.config.Routes[i]
		if r.Method == method && r.Path == path {
			return &r.LimitConfig
		}
	}
	return nil
}

// callerID identifies the caller by the authenticated user, falling back
// to the client IP.
func callerID(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return userID
	}
	return c.ClientIP()
}
