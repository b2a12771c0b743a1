// Package config provides configuration management for the UE profile
// service and its console client. It loads configuration from YAML files
// and environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/jaydenhoang5291/ue-profile/internal/auth"
	"github.com/jaydenhoang5291/ue-profile/internal/generator"
	"github.com/jaydenhoang5291/ue-profile/internal/middleware"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
	"github.com/jaydenhoang5291/ue-profile/internal/storage"
	"github.com/jaydenhoang5291/ue-profile/internal/suci"
)

// Redis deployment modes.
const (
	redisModeStandalone = "standalone"
	redisModeSentinel   = "sentinel"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "UEPROFILE"

// Config represents the complete configuration for the UE profile service.
//
// Configuration can be loaded from:
//   - YAML file (config/config.yaml)
//   - Environment variables (prefixed with UEPROFILE_)
//
// Example:
//
//	cfg, err := config.Load("config/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Security      SecurityConfig      `mapstructure:"security"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Generator     GeneratorConfig     `mapstructure:"generator"`
	Events        EventsConfig        `mapstructure:"events"`
	Client        ClientConfig        `mapstructure:"client"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the network interface to bind to (e.g., "0.0.0.0", "localhost")
	Host string `mapstructure:"host"`

	// Port is the HTTP server port (default: 8080)
	Port int `mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum duration to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxHeaderBytes is the maximum size of request headers
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`

	// MaxBodyBytes caps request bodies; generated batches can be large.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// GinMode sets the Gin framework mode ("debug", "release", "test")
	GinMode string `mapstructure:"gin_mode"`
}

// RedisConfig contains Redis client configuration.
type RedisConfig struct {
	// Mode specifies Redis deployment mode: "standalone" or "sentinel"
	Mode string `mapstructure:"mode"`

	// Addresses contains Redis server addresses
	// For standalone: ["localhost:6379"]
	// For sentinel: ["sentinel1:26379", "sentinel2:26379"]
	Addresses []string `mapstructure:"addresses"`

	// MasterName is required for Sentinel mode (e.g., "mymaster")
	MasterName string `mapstructure:"master_name"`

	// Password for Redis authentication (optional)
	Password string `mapstructure:"password"`

	// DB is the Redis database number (0-15)
	DB int `mapstructure:"db"`

	// PoolSize is the maximum number of socket connections
	PoolSize int `mapstructure:"pool_size"`

	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int `mapstructure:"max_retries"`

	// DialTimeout is the timeout for establishing new connections
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// ReadTimeout is the timeout for socket reads
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the timeout for socket writes
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig contains bearer token authentication configuration.
type AuthConfig struct {
	// Enabled enforces bearer tokens on the API routes
	Enabled bool `mapstructure:"enabled"`

	// SkipPaths lists paths served without authentication
	SkipPaths []string `mapstructure:"skip_paths"`

	// Tokens are registered in the token store at startup
	Tokens []StaticTokenConfig `mapstructure:"tokens"`
}

// StaticTokenConfig is a bootstrap API token.
type StaticTokenConfig struct {
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user_id"`
	Name   string `mapstructure:"name"`
}

// ObservabilityConfig contains logging and metrics configuration.
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level sets the log level ("debug", "info", "warn", "error", "fatal")
	Level string `mapstructure:"level"`

	// Environment selects the zap preset ("development", "production", ...)
	Environment string `mapstructure:"environment"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled enables Prometheus metrics collection
	Enabled bool `mapstructure:"enabled"`

	// Path is the HTTP path for metrics endpoint (default: "/metrics")
	Path string `mapstructure:"path"`

	// Namespace is the Prometheus metrics namespace
	Namespace string `mapstructure:"namespace"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// EnableCORS enables CORS support for the web console
	EnableCORS bool `mapstructure:"enable_cors"`

	// AllowedOrigins is a list of allowed CORS origins
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig contains per-user request limits.
type RateLimitConfig struct {
	// Enabled enables Redis backed rate limiting
	Enabled bool `mapstructure:"enabled"`

	// RequestsPerSecond and Burst bound all requests of one user
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	Burst             int `mapstructure:"burst"`

	// GenerateRequestsPerSecond and GenerateBurst bound generation requests
	GenerateRequestsPerSecond int `mapstructure:"generate_requests_per_second"`
	GenerateBurst             int `mapstructure:"generate_burst"`
}

// ValidationConfig contains OpenAPI request validation configuration.
type ValidationConfig struct {
	// Enabled enables OpenAPI request validation
	Enabled bool `mapstructure:"enabled"`

	// SpecPath is the path to a custom OpenAPI specification file
	// If empty, the embedded spec will be used
	SpecPath string `mapstructure:"spec_path"`
}

// GeneratorConfig holds the operator defaults applied to generated profiles.
type GeneratorConfig struct {
	// Amf is the authentication management field of generated profiles
	Amf string `mapstructure:"amf"`

	// RoutingIndicator is embedded in every SUCI (default "0000")
	RoutingIndicator string `mapstructure:"routing_indicator"`

	// MaxUEs caps num_ues of a single generate request
	MaxUEs int `mapstructure:"max_ues"`

	// Keys are the home network key profiles used for SUCI concealment
	Keys []HomeNetworkKeyConfig `mapstructure:"keys"`

	// GnbSearchList is copied into every generated profile
	GnbSearchList []string `mapstructure:"gnb_search_list"`

	// Sessions are copied into every generated profile
	Sessions []SessionConfig `mapstructure:"sessions"`
}

// HomeNetworkKeyConfig describes one ECIES key profile.
type HomeNetworkKeyConfig struct {
	// Scheme is 1 (profile A, X25519) or 2 (profile B, P-256)
	Scheme int `mapstructure:"scheme"`

	KeyID      int    `mapstructure:"key_id"`
	PrivateKey string `mapstructure:"private_key"`
	PublicKey  string `mapstructure:"public_key"`
}

// SessionConfig is a default PDU session of generated profiles.
type SessionConfig struct {
	Type string `mapstructure:"type"`
	Apn  string `mapstructure:"apn"`
	Sst  int    `mapstructure:"sst"`
	Sd   string `mapstructure:"sd"`
}

// EventsConfig controls the profile change event stream.
type EventsConfig struct {
	// Enabled publishes an event for every profile change
	Enabled bool `mapstructure:"enabled"`

	// Stream is the Redis stream key
	Stream string `mapstructure:"stream"`

	// MaxLen approximately caps the stream length (0 keeps every event)
	MaxLen int64 `mapstructure:"max_len"`
}

// ClientConfig configures the console client.
type ClientConfig struct {
	// BaseURL is the root of the UE profile API
	BaseURL string `mapstructure:"base_url"`

	// Token is sent as the bearer token
	Token string `mapstructure:"token"`

	// Timeout bounds each request
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from the specified file path and environment variables.
// Environment variables override file values and should be prefixed with UEPROFILE_
// (e.g., UEPROFILE_SERVER_PORT=8080).
//
// Returns an error if the configuration file cannot be read or parsed.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default configuration file locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ueprofile")
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional if all values come from env vars
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1048576) // 1MB
	v.SetDefault("server.max_body_bytes", 8388608)   // 8MB
	v.SetDefault("server.gin_mode", "release")

	// Redis defaults
	v.SetDefault("redis.mode", redisModeStandalone)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Auth defaults
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.skip_paths", []string{"/", "/health", "/ready", "/live", "/metrics", "/openapi.yaml", "/docs*"})

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.environment", "production")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("observability.metrics.namespace", "ueprofile")

	// Security defaults
	v.SetDefault("security.enable_cors", false)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.generate_requests_per_second", 1)
	v.SetDefault("rate_limit.generate_burst", 5)

	// Validation defaults
	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.spec_path", "")

	// Generator defaults
	v.SetDefault("generator.amf", "8000")
	v.SetDefault("generator.routing_indicator", "0000")
	v.SetDefault("generator.max_ues", 1000)
	v.SetDefault("generator.gnb_search_list", []string{"127.0.0.1"})

	// Client defaults
	// Event stream defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.stream", "events:ue_profiles")
	v.SetDefault("events.max_len", 10000)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", "30s")
}

// Validate validates the server configuration and returns an error if any
// values are invalid. This should be called after Load().
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateRedis(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if err := c.validateObservability(); err != nil {
		return err
	}

	if err := c.validateRateLimit(); err != nil {
		return err
	}

	if err := c.validateGenerator(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	return nil
}

// validateServer validates the server configuration.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.GinMode != "debug" && c.Server.GinMode != "release" && c.Server.GinMode != "test" {
		return fmt.Errorf("invalid gin_mode: %s (must be debug, release, or test)", c.Server.GinMode)
	}

	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid max_body_bytes: %d", c.Server.MaxBodyBytes)
	}

	return nil
}

// validateRedis validates the Redis configuration.
func (c *Config) validateRedis() error {
	if c.Redis.Mode != redisModeStandalone && c.Redis.Mode != redisModeSentinel {
		return fmt.Errorf("invalid redis mode: %s (must be standalone or sentinel)", c.Redis.Mode)
	}

	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("redis addresses cannot be empty")
	}

	if c.Redis.Mode == redisModeSentinel && c.Redis.MasterName == "" {
		return fmt.Errorf("redis master_name is required for sentinel mode")
	}

	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		return fmt.Errorf("invalid redis db: %d (must be 0-15)", c.Redis.DB)
	}

	return nil
}

// validateAuth validates the bootstrap tokens.
func (c *Config) validateAuth() error {
	for i, tok := range c.Auth.Tokens {
		if tok.Token == "" {
			return fmt.Errorf("auth token %d: token cannot be empty", i)
		}
		if tok.UserID == "" {
			return fmt.Errorf("auth token %d: user_id cannot be empty", i)
		}
	}
	return nil
}

// validateObservability validates the observability configuration.
func (c *Config) validateObservability() error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Observability.Logging.Level)
	}

	validEnvs := map[string]bool{
		"development": true, "test": true, "staging": true, "production": true,
	}
	if !validEnvs[c.Observability.Logging.Environment] {
		return fmt.Errorf("invalid logging environment: %s", c.Observability.Logging.Environment)
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		return fmt.Errorf("metrics path cannot be empty when metrics are enabled")
	}

	return nil
}

// validateRateLimit validates the rate limit configuration.
func (c *Config) validateRateLimit() error {
	if !c.RateLimit.Enabled {
		return nil
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.GenerateRequestsPerSecond < 0 {
		return fmt.Errorf("rate limits cannot be negative")
	}
	if c.RateLimit.Burst < 0 || c.RateLimit.GenerateBurst < 0 {
		return fmt.Errorf("rate limit bursts cannot be negative")
	}
	return nil
}

// validateGenerator validates the operator defaults and key profiles.
func (c *Config) validateGenerator() error {
	if c.Generator.MaxUEs < 1 {
		return fmt.Errorf("invalid generator max_ues: %d (must be > 0)", c.Generator.MaxUEs)
	}

	if len(c.Generator.Keys) == 0 {
		return fmt.Errorf("generator keys cannot be empty")
	}

	for i, k := range c.Generator.Keys {
		key := k.toKey()
		if key.Scheme != suci.ProfileA && key.Scheme != suci.ProfileB {
			return fmt.Errorf("generator key %d: invalid scheme %d (must be 1 or 2)", i, k.Scheme)
		}
		if _, err := key.PublicKeyBytes(); err != nil {
			return fmt.Errorf("generator key %d: %w", i, err)
		}
	}

	return nil
}

// validateEvents validates the event stream settings.
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Stream == "" {
		return fmt.Errorf("events stream cannot be empty when events are enabled")
	}
	if c.Events.MaxLen < 0 {
		return fmt.Errorf("invalid events max_len: %d (must be >= 0)", c.Events.MaxLen)
	}
	return nil
}

// ValidateClient checks the settings used by the console client.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid client base_url: %q", c.Client.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid client base_url scheme: %s", u.Scheme)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("invalid client timeout: %s", c.Client.Timeout)
	}
	return nil
}

// StorageConfig converts the Redis section for the storage package.
func (c *Config) StorageConfig() *storage.RedisConfig {
	cfg := &storage.RedisConfig{
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		MaxRetries:   c.Redis.MaxRetries,
		DialTimeout:  c.Redis.DialTimeout,
		ReadTimeout:  c.Redis.ReadTimeout,
		WriteTimeout: c.Redis.WriteTimeout,
		PoolSize:     c.Redis.PoolSize,
	}
	if c.Redis.Mode == redisModeSentinel {
		cfg.UseSentinel = true
		cfg.SentinelAddrs = c.Redis.Addresses
		cfg.MasterName = c.Redis.MasterName
	} else if len(c.Redis.Addresses) > 0 {
		cfg.Addr = c.Redis.Addresses[0]
	}
	return cfg
}

// AuthMiddlewareConfig converts the auth section for the middleware.
func (c *Config) AuthMiddlewareConfig() *auth.MiddlewareConfig {
	return &auth.MiddlewareConfig{
		Enabled:   c.Auth.Enabled,
		SkipPaths: c.Auth.SkipPaths,
	}
}

// StaticTokens returns the bootstrap tokens.
func (c *Config) StaticTokens() []auth.StaticToken {
	out := make([]auth.StaticToken, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		out[i] = auth.StaticToken{Token: t.Token, UserID: t.UserID, Name: t.Name}
	}
	return out
}

// RateLimitMiddlewareConfig converts the rate limit section for the
// middleware. Limits are stored next to the profiles in client.
func (c *Config) RateLimitMiddlewareConfig(client redis.UniversalClient) *middleware.RateLimitConfig {
	cfg := &middleware.RateLimitConfig{
		Enabled: c.RateLimit.Enabled,
		PerUser: middleware.LimitConfig{
			RequestsPerSecond: c.RateLimit.RequestsPerSecond,
			BurstSize:         c.RateLimit.Burst,
		},
		RedisClient: client,
	}
	if c.RateLimit.GenerateRequestsPerSecond > 0 {
		cfg.Routes = append(cfg.Routes, middleware.RouteLimitConfig{
			Method: "POST",
			Path:   "/ue_profiles/generate",
			LimitConfig: middleware.LimitConfig{
				RequestsPerSecond: c.RateLimit.GenerateRequestsPerSecond,
				BurstSize:         c.RateLimit.GenerateBurst,
			},
		})
	}
	return cfg
}

// OperatorConfig converts the generator section for the generator package.
func (c *Config) OperatorConfig() generator.Config {
	keys := make([]suci.HomeNetworkKey, len(c.Generator.Keys))
	for i, k := range c.Generator.Keys {
		keys[i] = k.toKey()
	}

	sessions := make([]profile.Session, len(c.Generator.Sessions))
	for i, s := range c.Generator.Sessions {
		sessions[i] = profile.Session{
			Type:  s.Type,
			Apn:   s.Apn,
			Slice: profile.Snssai{Sst: s.Sst, Sd: s.Sd},
		}
	}

	return generator.Config{
		Amf:              c.Generator.Amf,
		RoutingIndicator: c.Generator.RoutingIndicator,
		Keys:             keys,
		GnbSearchList:    c.Generator.GnbSearchList,
		Sessions:         sessions,
	}
}

func (k HomeNetworkKeyConfig) toKey() suci.HomeNetworkKey {
	return suci.HomeNetworkKey{
		Scheme:     suci.Scheme(k.Scheme),
		KeyID:      k.KeyID,
		PrivateKey: k.PrivateKey,
		PublicKey:  k.PublicKey,
	}
}
