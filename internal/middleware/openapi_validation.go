// Package middleware provides HTTP middleware for the UE profile API:
// OpenAPI request validation, security headers and Redis backed rate
// limiting.
package middleware

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpenAPISpecs embeds the OpenAPI specification files.
//
//go:embed specs/*.yaml
var OpenAPISpecs embed.FS

// EmbeddedSpecPath is the embedded UE profile API description.
const EmbeddedSpecPath = "specs/ue-profiles.yaml"

// DefaultMaxBodySize bounds the request body read for validation.
const DefaultMaxBodySize = 8 << 20

// ValidationConfig holds configuration for the OpenAPI validation middleware.
type ValidationConfig struct {
	// ValidateRequest enables request validation against the OpenAPI spec.
	ValidateRequest bool

	// ValidateResponse enables response validation against the OpenAPI spec.
	// Failures are only logged. Meant for development and tests.
	ValidateResponse bool

	// MaxBodySize is the largest request body accepted for validation.
	MaxBodySize int64

	// ExcludePaths is a list of path prefixes to exclude from validation.
	ExcludePaths []string

	// Logger is the logger for validation errors.
	Logger *zap.Logger
}

// DefaultValidationConfig returns the default validation configuration.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		ValidateRequest:  true,
		ValidateResponse: false,
		MaxBodySize:      DefaultMaxBodySize,
		ExcludePaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/openapi.yaml",
		},
	}
}

// OpenAPIValidator validates requests against the UE profile API
// description.
type OpenAPIValidator struct {
	config *ValidationConfig
	logger *zap.Logger

	mu     sync.RWMutex
	router routers.Router
	spec   *openapi3.T
	raw    []byte
}

// NewOpenAPIValidator creates a new OpenAPI validator with the given configuration.
// No spec is loaded; call LoadEmbeddedSpec, LoadSpec or LoadSpecFromFile.
func NewOpenAPIValidator(cfg *ValidationConfig) (*OpenAPIValidator, error) {
	if cfg == nil {
		cfg = DefaultValidationConfig()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAPIValidator{
		config: cfg,
		logger: logger,
	}, nil
}

// LoadEmbeddedSpec loads the UE profile API description shipped with the
// binary.
func (v *OpenAPIValidator) LoadEmbeddedSpec() error {
	data, err := OpenAPISpecs.ReadFile(EmbeddedSpecPath)
	if err != nil {
		return fmt.Errorf("failed to read embedded OpenAPI spec: %w", err)
	}
	return v.LoadSpec(data)
}

// LoadSpec loads the OpenAPI specification from the given content.
func (v *OpenAPIValidator) LoadSpec(specContent []byte) error {
	spec, err := openapi3.NewLoader().LoadFromData(specContent)
	if err != nil {
		return fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if err := v.install(spec, specContent); err != nil {
		return err
	}

	v.logger.Info("OpenAPI spec loaded",
		zap.String("title", spec.Info.Title),
		zap.String("version", spec.Info.Version),
	)
	return nil
}

// LoadSpecFromFile loads the OpenAPI specification from a file path.
func (v *OpenAPIValidator) LoadSpecFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI spec file: %w", err)
	}
	spec, err := openapi3.NewLoader().LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI spec from file: %w", err)
	}
	if err := v.install(spec, raw); err != nil {
		return err
	}

	v.logger.Info("OpenAPI spec loaded from file",
		zap.String("path", path),
		zap.String("title", spec.Info.Title),
	)
	return nil
}

func (v *OpenAPIValidator) install(spec *openapi3.T, raw []byte) error {
	if err := spec.Validate(context.Background()); err != nil {
		return fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		return fmt.Errorf("failed to create OpenAPI router: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.spec = spec
	v.router = router
	v.raw = raw
	return nil
}

// Spec returns the loaded OpenAPI specification.
func (v *OpenAPIValidator) Spec() *openapi3.T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.spec
}

// SpecHandler serves the loaded description as YAML.
func (v *OpenAPIValidator) SpecHandler(c *gin.Context) {
	v.mu.RLock()
	raw := v.raw
	v.mu.RUnlock()

	if raw == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "NotFound",
			"message": "OpenAPI spec not available",
			"code":    http.StatusNotFound,
		})
		return
	}
	c.Data(http.StatusOK, "application/yaml", raw)
}

// isExcludedPath checks if the given path should be excluded from validation.
func (v *OpenAPIValidator) isExcludedPath(path string) bool {
	for _, excluded := range v.config.ExcludePaths {
		if strings.HasPrefix(path, excluded) {
			return true
		}
	}
	return false
}

// Middleware returns a Gin middleware function for OpenAPI validation.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v.mu.RLock()
		router := v.router
		v.mu.RUnlock()

		if router == nil || v.isExcludedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		if v.config.ValidateRequest && !v.validateRequest(c, router) {
			return
		}

		if v.config.ValidateResponse {
			v.validateResponse(c, router)
			return
		}

		c.Next()
	}
}

// validateRequest reports whether the request may proceed. Requests for
// routes the description does not know are passed through.
func (v *OpenAPIValidator) validateRequest(c *gin.Context, router routers.Router) bool {
	route, pathParams, err := router.FindRoute(c.Request)
	if err != nil {
		v.logger.Debug("route not found in OpenAPI spec",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		return true
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    c.Request,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}

	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, v.config.MaxBodySize+1))
		if err != nil {
			v.logger.Error("failed to read request body", zap.Error(err))
			abort(c, http.StatusBadRequest, "BadRequest", "Failed to read request body")
			return false
		}
		if int64(len(body)) > v.config.MaxBodySize {
			abort(c, http.StatusRequestEntityTooLarge, "PayloadTooLarge",
				fmt.Sprintf("Request body exceeds %d bytes", v.config.MaxBodySize))
			return false
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		defer func() { c.Request.Body = io.NopCloser(bytes.NewReader(body)) }()
	}

	if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
		v.logger.Info("request validation failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		abort(c, http.StatusBadRequest, "ValidationError", formatValidationError(err))
		return false
	}

	return true
}

// responseRecorder captures the response for validation.
type responseRecorder struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

// Write captures the response body.
func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// WriteHeader captures the status code.
func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (v *OpenAPIValidator) validateResponse(c *gin.Context, router routers.Router) {
	recorder := &responseRecorder{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
	}
	c.Writer = recorder

	c.Next()

	route, pathParams, err := router.FindRoute(c.Request)
	if err != nil {
		return
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
		},
		Status: recorder.statusCode,
		Header: recorder.Header(),
		Body:   io.NopCloser(bytes.NewReader(recorder.body.Bytes())),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	}

	if err := openapi3filter.ValidateResponse(c.Request.Context(), input); err != nil {
		v.logger.Warn("response validation failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", recorder.statusCode),
			zap.Error(err),
		)
	}
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   kind,
		"message": message,
		"code":    status,
	})
}

// formatValidationError formats validation errors for the API response.
func formatValidationError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	if strings.Contains(errStr, "request body has an error") {
		if strings.Contains(errStr, "doesn't match schema") || strings.Contains(errStr, "Error at") {
			return "Request body validation failed: " + extractSchemaError(errStr)
		}
		return "Invalid request body format"
	}

	if strings.Contains(errStr, "parameter") {
		return "Invalid request parameters: " + errStr
	}

	return "Request validation failed: " + errStr
}

// extractSchemaError pulls the offending field out of a kin-openapi
// schema error, falling back to a generic message.
func extractSchemaError(errStr string) string {
	if _, after, ok := strings.Cut(errStr, `property "`); ok {
		if name, _, ok := strings.Cut(after, `"`); ok {
			return "invalid property " + name
		}
	}
	if _, after, ok := strings.Cut(errStr, `Error at "`); ok {
		if pointer, _, ok := strings.Cut(after, `"`); ok {
			return "invalid value at " + pointer
		}
	}

	switch {
	case strings.Contains(errStr, "missing"):
		return "missing required field"
	case strings.Contains(errStr, "type"):
		return "invalid field type"
	default:
		return "schema validation failed"
	}
}
