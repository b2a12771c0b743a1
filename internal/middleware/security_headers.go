package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeadersConfig contains configuration for security headers middleware.
type SecurityHeadersConfig struct {
	// Enabled controls whether security headers are added
	Enabled bool

	// TLSEnabled adds Strict-Transport-Security
	TLSEnabled bool

	// HSTSMaxAge is the max-age of Strict-Transport-Security in seconds
	HSTSMaxAge int

	// HSTSIncludeSubDomains includes subdomains in HSTS
	HSTSIncludeSubDomains bool

	// ContentSecurityPolicy is the Content-Security-Policy header value
	ContentSecurityPolicy string

	// NoStorePrefixes lists path prefixes whose responses must not be
	// cached. Profiles carry subscriber keys.
	NoStorePrefixes []string
}

// DefaultSecurityHeadersConfig returns the default security headers configuration.
func DefaultSecurityHeadersConfig() *SecurityHeadersConfig {
	return &SecurityHeadersConfig{
		Enabled:               true,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubDomains: true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		NoStorePrefixes:       []string{"/ue_profiles"},
	}
}

// SecurityHeaders returns a Gin middleware that adds security headers to
// responses. Profile responses are additionally marked no-store.
func SecurityHeaders(config *SecurityHeadersConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultSecurityHeadersConfig()
	}
	hsts := BuildHSTSValue(config)

	return func(c *gin.Context) {
		if !config.Enabled {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", config.ContentSecurityPolicy)
		h.Set("Referrer-Policy", "no-referrer")
		if config.TLSEnabled && hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}

		path := c.Request.URL.Path
		for _, prefix := range config.NoStorePrefixes {
			if strings.HasPrefix(path, prefix) {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
				break
			}
		}

		c.Next()
	}
}

// BuildHSTSValue constructs the Strict-Transport-Security header value.
// It returns an empty string when HSTSMaxAge is not positive.
func BuildHSTSValue(config *SecurityHeadersConfig) string {
	if config.HSTSMaxAge <= 0 {
		return ""
	}
	value := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
	if config.HSTSIncludeSubDomains {
		value += "; includeSubDomains"
	}
	return value
}
