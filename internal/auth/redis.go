package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Redis key prefixes for auth data.
	tokenKeyPrefix   = "token:"
	tokenUserIndex   = "tokens:user:"
	tokenHashByIDKey = "tokens:id:"
)

// RedisStore implements the Store interface using Redis as the backend.
//
// Data Model:
//   - token:<sha256(raw)> (string) - token JSON, expiring with the token
//   - tokens:user:<userId> (set) - token hashes owned by a user
//   - tokens:id:<id> (string) - token hash for a token ID
type RedisStore struct {
	client redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStoreWithClient creates a new RedisStore with an existing Redis client.
// The profile store and the token store share one client in the daemon.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		logger: zap.L().Named("token-store"),
		now:    time.Now,
	}
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}

// Ping checks if Redis is available.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// CreateToken stores a token keyed by the hash of raw.
// Uses SetNX for atomic creation to prevent race conditions.
func (r *RedisStore) CreateToken(ctx context.Context, raw string, tok *Token) error {
	if raw == "" {
		return ErrInvalidToken
	}
	if err := tok.Validate(); err != nil {
		return err
	}

	now := r.now().UTC()
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = now
	}
	var ttl time.Duration
	if !tok.ExpiresAt.IsZero() {
		ttl = tok.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return ErrTokenExpired
		}
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	hash := HashToken(raw)
	created, err := r.client.SetNX(ctx, tokenKeyPrefix+hash, data, ttl).Result()
	if err != nil {
		RecordStorageOperation("create", "error")
		return fmt.Errorf("failed to create token: %w", err)
	}
	if !created {
		return ErrTokenExists
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, tokenUserIndex+tok.UserID, hash)
	pipe.Set(ctx, tokenHashByIDKey+tok.ID, hash, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		RecordStorageOperation("create", "error")
		return fmt.Errorf("failed to index token: %w", err)
	}

	RecordStorageOperation("create", "success")
	return nil
}

// LookupToken resolves a raw bearer value.
func (r *RedisStore) LookupToken(ctx context.Context, raw string) (*Token, error) {
	if raw == "" {
		return nil, ErrTokenNotFound
	}

	data, err := r.client.Get(ctx, tokenKeyPrefix+HashToken(raw)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if tok.IsExpired(r.now()) {
		return nil, ErrTokenExpired
	}
	return &tok, nil
}

// RevokeToken deletes the token registered under raw.
func (r *RedisStore) RevokeToken(ctx context.Context, raw string) error {
	tok, err := r.LookupToken(ctx, raw)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return err
	}

	hash := HashToken(raw)
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, tokenKeyPrefix+hash)
	if tok != nil {
		pipe.SRem(ctx, tokenUserIndex+tok.UserID, hash)
		pipe.Del(ctx, tokenHashByIDKey+tok.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		RecordStorageOperation("revoke", "error")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if del.Val() == 0 {
		return ErrTokenNotFound
	}

	RecordStorageOperation("revoke", "success")
	return nil
}

// ListTokens returns the live tokens owned by userID.
func (r *RedisStore) ListTokens(ctx context.Context, userID string) ([]*Token, error) {
	hashes, err := r.client.SMembers(ctx, tokenUserIndex+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list token hashes: %w", err)
	}
	if len(hashes) == 0 {
		return []*Token{}, nil
	}

	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = tokenKeyPrefix + h
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to batch get tokens: %w", err)
	}

	now := r.now()
	tokens := make([]*Token, 0, len(results))
	var stale []any
	for i, result := range results {
		data, ok := result.(string)
		if !ok {
			// Expired keys leave their hash in the user index.
			stale = append(stale, hashes[i])
			continue
		}
		var tok Token
		if err := json.Unmarshal([]byte(data), &tok); err != nil {
			r.logger.Warn("failed to unmarshal token during list operation",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if tok.IsExpired(now) {
			continue
		}
		tokens = append(tokens, &tok)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, tokenUserIndex+userID, stale...).Err(); err != nil {
			r.logger.Warn("failed to prune expired token hashes", zap.Error(err))
		}
	}
	return tokens, nil
}
