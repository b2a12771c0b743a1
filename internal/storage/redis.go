package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jaydenhoang5291/ue-profile/internal/observability"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

const (
	// Redis key prefixes
	profileKeyPrefix       = "ueprofile:"
	profileIndexKey        = "ueprofiles:index"
	profileUserIndexPrefix = "ueprofiles:user:"
	profileEventChannel    = "ueprofiles:events"

	// Default TTL for profile keys (0 = no expiration)
	profileTTL = 0

	// listBatchSize bounds the number of keys fetched per MGET.
	listBatchSize = 200
)

// RedisConfig holds configuration for Redis connection.
type RedisConfig struct {
	// Addr is the Redis server address (host:port) for standalone mode.
	// Ignored if UseSentinel is true.
	Addr string

	// Password for Redis authentication.
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// UseSentinel enables Redis Sentinel mode for high availability.
	UseSentinel bool

	// SentinelAddrs is the list of Sentinel server addresses.
	// Required if UseSentinel is true.
	SentinelAddrs []string

	// MasterName is the name of the Redis master in Sentinel mode.
	// Required if UseSentinel is true.
	MasterName string

	// MaxRetries is the maximum number of retries for failed commands.
	MaxRetries int

	// DialTimeout is the timeout for establishing connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// PoolSize is the maximum number of socket connections.
	PoolSize int
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// NewRedisClient builds a standalone or Sentinel client from cfg.
func NewRedisClient(cfg *RedisConfig) redis.UniversalClient {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	if cfg.UseSentinel {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.MasterName,
			SentinelAddrs: cfg.SentinelAddrs,
			Password:      cfg.Password,
			DB:            cfg.DB,
			MaxRetries:    cfg.MaxRetries,
			DialTimeout:   cfg.DialTimeout,
			ReadTimeout:   cfg.ReadTimeout,
			WriteTimeout:  cfg.WriteTimeout,
			PoolSize:      cfg.PoolSize,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
}

// RedisStore implements the Store interface using Redis as the backend.
// It supports both standalone Redis and Redis Sentinel for high availability.
//
// Data Model:
//   - ueprofile:<supi> (string) - profile JSON
//   - ueprofiles:index (sorted set) - SUPIs scored by creation time
//   - ueprofiles:user:<userId> (set) - SUPIs created by a user
//   - ueprofiles:events (channel) - change notifications
type RedisStore struct {
	client  redis.UniversalClient
	now     func() time.Time
	metrics *observability.Metrics
	log     *observability.Logger
}

// Option configures a RedisStore.
type Option func(*RedisStore)

// WithMetrics records every store operation on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *RedisStore) { r.metrics = m }
}

// WithLogger logs store operations on logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *RedisStore) { r.log = observability.NewLogger(logger).WithComponent("storage") }
}

// NewRedisStore creates a new RedisStore instance.
// It automatically configures Redis Sentinel if enabled in the config.
func NewRedisStore(cfg *RedisConfig, opts ...Option) *RedisStore {
	return NewRedisStoreWithClient(NewRedisClient(cfg), opts...)
}

// NewRedisStoreWithClient creates a RedisStore on an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, opts ...Option) *RedisStore {
	r := &RedisStore{
		client: client,
		now:    time.Now,
		log:    observability.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Client returns the underlying Redis client.
func (r *RedisStore) Client() redis.UniversalClient {
	return r.client
}

// Create stores a new profile in Redis.
func (r *RedisStore) Create(ctx context.Context, ue *profile.UeProfile) (err error) {
	start := time.Now()
	defer func() { r.observe("create", profileKey(ue), start, err) }()

	if err := r.prepare(ue); err != nil {
		return err
	}

	data, err := json.Marshal(ue)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	created, err := r.client.SetNX(ctx, profileKeyPrefix+ue.Supi, data, profileTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if !created {
		return ErrProfileExists
	}

	pipe := r.client.TxPipeline()
	r.index(ctx, pipe, ue)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index profile: %w", err)
	}
	return nil
}

// CreateMany stores a batch atomically with MSETNX.
func (r *RedisStore) CreateMany(ctx context.Context, ues []*profile.UeProfile) (err error) {
	start := time.Now()
	defer func() { r.observe("create_many", profileIndexKey, start, err) }()

	if len(ues) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(ues))
	pairs := make([]any, 0, 2*len(ues))
	for _, ue := range ues {
		if err := r.prepare(ue); err != nil {
			return err
		}
		if _, dup := seen[ue.Supi]; dup {
			return fmt.Errorf("%w: %s repeated in batch", ErrProfileExists, ue.Supi)
		}
		seen[ue.Supi] = struct{}{}

		data, err := json.Marshal(ue)
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		pairs = append(pairs, profileKeyPrefix+ue.Supi, data)
	}

	created, err := r.client.MSetNX(ctx, pairs...).Result()
	if err != nil {
		return fmt.Errorf("failed to create profiles: %w", err)
	}
	if !created {
		return ErrProfileExists
	}

	pipe := r.client.TxPipeline()
	for _, ue := range ues {
		r.index(ctx, pipe, ue)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index profiles: %w", err)
	}
	return nil
}

// Get retrieves a profile by SUPI.
func (r *RedisStore) Get(ctx context.Context, supi string) (_ *profile.UeProfile, err error) {
	start := time.Now()
	defer func() { r.observe("get", profileKeyPrefix+supi, start, err) }()

	if supi == "" {
		return nil, ErrInvalidSUPI
	}

	data, err := r.client.Get(ctx, profileKeyPrefix+supi).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var ue profile.UeProfile
	if err := json.Unmarshal(data, &ue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &ue, nil
}

// Update replaces the profile stored under supi.
func (r *RedisStore) Update(ctx context.Context, supi string, ue *profile.UeProfile) (err error) {
	start := time.Now()
	defer func() { r.observe("update", profileKeyPrefix+supi, start, err) }()

	if supi == "" {
		return ErrInvalidSUPI
	}

	existing, err := r.Get(ctx, supi)
	if err != nil {
		return err
	}

	ue.Supi = supi
	ue.ID = existing.ID
	ue.UserID = existing.UserID
	ue.CreatedAt = existing.CreatedAt
	if ue.Suci == "" {
		ue.Suci = existing.Suci
	}
	if err := profile.Validate(ue); err != nil {
		return err
	}

	data, err := json.Marshal(ue)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	pipe := r.client.TxPipeline()
	set := pipe.SetXX(ctx, profileKeyPrefix+supi, data, profileTTL)
	pipe.Publish(ctx, profileEventChannel, r.event(EventUpdated, ue))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if !set.Val() {
		return ErrProfileNotFound
	}
	return nil
}

// Delete deletes a profile by SUPI.
func (r *RedisStore) Delete(ctx context.Context, supi string) (err error) {
	start := time.Now()
	defer func() { r.observe("delete", profileKeyPrefix+supi, start, err) }()

	existing, err := r.Get(ctx, supi)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, profileKeyPrefix+supi)
	pipe.ZRem(ctx, profileIndexKey, supi)
	if existing.UserID != "" {
		pipe.SRem(ctx, profileUserIndexPrefix+existing.UserID, supi)
	}
	pipe.Publish(ctx, profileEventChannel, r.event(EventDeleted, existing))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// List retrieves profiles matching filter, ordered by creation time.
func (r *RedisStore) List(ctx context.Context, filter ListFilter) (_ []*profile.UeProfile, err error) {
	start := time.Now()
	defer func() { r.observe("list", profileIndexKey, start, err) }()

	var supis []string
	if filter.UserID != "" {
		supis, err = r.client.SMembers(ctx, profileUserIndexPrefix+filter.UserID).Result()
		if err == nil && len(supis) > 0 {
			supis, err = r.ordered(ctx, supis)
		}
	} else {
		supis, err = r.client.ZRange(ctx, profileIndexKey, 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list profile SUPIs: %w", err)
	}

	ues := make([]*profile.UeProfile, 0, len(supis))
	for start := 0; start < len(supis); start += listBatchSize {
		end := min(start+listBatchSize, len(supis))

		keys := make([]string, 0, end-start)
		for _, supi := range supis[start:end] {
			keys = append(keys, profileKeyPrefix+supi)
		}
		vals, err := r.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}

		for _, v := range vals {
			raw, ok := v.(string)
			if !ok {
				// Deleted between the index read and the fetch.
				continue
			}
			var ue profile.UeProfile
			if err := json.Unmarshal([]byte(raw), &ue); err != nil {
				// Skip profiles that failed to load (e.g., corrupted data)
				continue
			}
			if filter.Matches(&ue) {
				ues = append(ues, &ue)
			}
		}
	}
	return ues, nil
}

// Count returns the number of stored profiles.
func (r *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := r.client.ZCard(ctx, profileIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection and releases resources.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping checks if Redis is available.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// observe records the outcome of one store operation. Domain outcomes such
// as a missing profile are not counted as Redis errors.
func (r *RedisStore) observe(op, key string, start time.Time, err error) {
	if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrProfileExists) ||
		errors.Is(err, ErrInvalidSUPI) || errors.Is(err, profile.ErrInvalidProfile) {
		err = nil
	}
	if r.metrics != nil {
		r.metrics.RecordRedisOperation(op, time.Since(start), err)
	}
	r.log.LogRedisOperation(op, key, err)
}

func profileKey(ue *profile.UeProfile) string {
	if ue == nil {
		return ""
	}
	return profileKeyPrefix + ue.Supi
}

// prepare validates ue and fills server-assigned fields.
func (r *RedisStore) prepare(ue *profile.UeProfile) error {
	if ue == nil {
		return fmt.Errorf("%w: nil profile", profile.ErrInvalidProfile)
	}
	if err := profile.Validate(ue); err != nil {
		return err
	}
	if ue.ID == "" {
		ue.ID = uuid.New().String()
	}
	if ue.CreatedAt.IsZero() {
		ue.CreatedAt = r.now().UTC()
	}
	return nil
}

func (r *RedisStore) index(ctx context.Context, pipe redis.Pipeliner, ue *profile.UeProfile) {
	pipe.ZAdd(ctx, profileIndexKey, redis.Z{
		Score:  float64(ue.CreatedAt.UnixMilli()),
		Member: ue.Supi,
	})
	if ue.UserID != "" {
		pipe.SAdd(ctx, profileUserIndexPrefix+ue.UserID, ue.Supi)
	}
	pipe.Publish(ctx, profileEventChannel, r.event(EventCreated, ue))
}

// ordered sorts supis by their creation score in the main index.
func (r *RedisStore) ordered(ctx context.Context, supis []string) ([]string, error) {
	scores, err := r.client.ZMScore(ctx, profileIndexKey, supis...).Result()
	if err != nil {
		return nil, err
	}
	type scored struct {
		supi  string
		score float64
	}
	items := make([]scored, len(supis))
	for i, s := range supis {
		items[i] = scored{supi: s, score: scores[i]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score < items[j].score
		}
		return items[i].supi < items[j].supi
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.supi
	}
	return out, nil
}

func (r *RedisStore) event(kind string, ue *profile.UeProfile) *Event {
	return &Event{
		Event:     kind,
		Supi:      ue.Supi,
		UserID:    ue.UserID,
		Timestamp: r.now().UTC(),
	}
}
