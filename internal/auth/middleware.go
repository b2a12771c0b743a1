package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// bearerPrefix is the Authorization scheme accepted by the middleware.
const bearerPrefix = "Bearer "

// MiddlewareConfig holds configuration for authentication middleware.
type MiddlewareConfig struct {
	// Enabled determines if authentication is enforced.
	Enabled bool

	// SkipPaths is a list of paths that should skip authentication.
	// A trailing * matches any suffix, any other * matches one segment.
	SkipPaths []string
}

// DefaultMiddlewareConfig returns a MiddlewareConfig with sensible defaults.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/readyz",
			"/metrics",
			"/",
		},
	}
}

// Middleware provides bearer token authentication for Gin.
type Middleware struct {
	store            Store
	config           *MiddlewareConfig
	logger           *zap.Logger
	compiledPatterns []*regexp.Regexp
}

// NewMiddleware creates a new authentication middleware.
// Pre-compiles regex patterns for skip paths during initialization.
func NewMiddleware(store Store, config *MiddlewareConfig, logger *zap.Logger) *Middleware {
	if config == nil {
		config = DefaultMiddlewareConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	compiledPatterns := make([]*regexp.Regexp, 0, len(config.SkipPaths))
	for _, pattern := range config.SkipPaths {
		if !strings.Contains(pattern, "*") {
			continue
		}
		if compiled, err := regexp.Compile(globToRegex(pattern)); err == nil {
			compiledPatterns = append(compiledPatterns, compiled)
		}
	}

	return &Middleware{
		store:            store,
		config:           config,
		logger:           logger,
		compiledPatterns: compiledPatterns,
	}
}

// AuthenticationMiddleware resolves the bearer token of the request into a
// Principal and stores it in the request context.
func (m *Middleware) AuthenticationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Generate request ID.
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		ctx := ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		if m.shouldSkipAuth(c.Request.URL.Path) || !m.config.Enabled {
			c.Next()
			return
		}

		authStart := time.Now()

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.logger.Warn("missing bearer token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.String("request_id", requestID),
			)
			m.reject(c, authStart, "missing_token", "Bearer token required")
			return
		}

		tok, err := m.store.LookupToken(ctx, raw)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenNotFound):
				m.logger.Warn("unknown bearer token",
					zap.String("client_ip", c.ClientIP()),
					zap.String("request_id", requestID),
				)
				m.reject(c, authStart, "unknown_token", "Authentication failed")
			case errors.Is(err, ErrTokenExpired):
				m.logger.Warn("expired bearer token",
					zap.String("client_ip", c.ClientIP()),
					zap.String("request_id", requestID),
				)
				m.reject(c, authStart, "expired_token", "Token expired")
			default:
				m.logger.Error("failed to lookup token",
					zap.Error(err),
					zap.String("request_id", requestID),
				)
				RecordAuthenticationDuration("error", time.Since(authStart).Seconds())
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error":   "ServiceUnavailable",
					"message": "Authentication service temporarily unavailable",
					"code":    http.StatusServiceUnavailable,
				})
			}
			return
		}

		principal := PrincipalFor(tok)
		c.Set("principal", principal)
		c.Set("user_id", principal.UserID)
		c.Request = c.Request.WithContext(ContextWithPrincipal(ctx, principal))

		m.logger.Debug("request authenticated",
			zap.String("user_id", sanitizeForLogging(principal.UserID, 100)),
			zap.String("token_id", principal.TokenID),
			zap.String("request_id", requestID),
		)

		RecordAuthenticationAttempt("success", "")
		RecordAuthenticationDuration("success", time.Since(authStart).Seconds())
		c.Next()
	}
}

func (m *Middleware) reject(c *gin.Context, start time.Time, reason, message string) {
	RecordAuthenticationAttempt("failed", reason)
	RecordAuthenticationDuration("failed", time.Since(start).Seconds())
	c.Header("WWW-Authenticate", `Bearer realm="ue_profiles"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	return tok, tok != ""
}

func (m *Middleware) shouldSkipAuth(path string) bool {
	// First check exact matches (no wildcard patterns)
	for _, skipPath := range m.config.SkipPaths {
		if !strings.Contains(skipPath, "*") && path == skipPath {
			return true
		}
	}

	for _, pattern := range m.compiledPatterns {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}

// globToRegex converts a skip path pattern into an anchored regex.
// Non-trailing wildcards match a single path segment, a trailing wildcard
// matches everything.
func globToRegex(pattern string) string {
	parts := strings.Split(regexp.QuoteMeta(pattern), "\\*")
	for i := 0; i < len(parts)-1; i++ {
		if i == len(parts)-2 && parts[i+1] == "" {
			parts[i] += ".*"
		} else {
			parts[i] += "[^/]+"
		}
	}
	return "^" + strings.Join(parts, "") + "$"
}

// sanitizeForLogging strips control characters and truncates s.
func sanitizeForLogging(s string, maxLen int) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != ' ' && r != '\t' {
			return -1
		}
		return r
	}, s)

	if len(clean) > maxLen {
		return clean[:maxLen] + "..."
	}
	return clean
}
