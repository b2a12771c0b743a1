package auth

import (
	"context"
	"errors"
	"fmt"
)

// Common sentinel errors for auth storage operations.
var (
	// ErrTokenNotFound is returned when no token matches a raw value.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExists is returned when attempting to store a duplicate token.
	ErrTokenExists = errors.New("token already exists")

	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidToken is returned when a token is empty or malformed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrStorageUnavailable is returned when the storage backend is unavailable.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// Store defines the interface for API token storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateToken stores tok under the hash of raw.
	// Returns ErrTokenExists if raw is already registered.
	CreateToken(ctx context.Context, raw string, tok *Token) error

	// LookupToken resolves a raw bearer value.
	// Returns ErrTokenNotFound for unknown tokens and ErrTokenExpired for
	// expired ones.
	LookupToken(ctx context.Context, raw string) (*Token, error)

	// RevokeToken removes the token registered under raw.
	// Returns ErrTokenNotFound if the token does not exist.
	RevokeToken(ctx context.Context, raw string) error

	// ListTokens returns the tokens owned by userID.
	// Returns an empty slice if the user has none.
	ListTokens(ctx context.Context, userID string) ([]*Token, error)

	// Close closes the storage connection.
	Close() error

	// Ping checks if the storage backend is available.
	Ping(ctx context.Context) error
}

// StaticToken is a token provisioned from configuration at startup.
type StaticToken struct {
	Token  string
	UserID string
	Name   string
}

// Bootstrap registers static tokens. Tokens that are already stored are
// left untouched so restarts are idempotent.
func Bootstrap(ctx context.Context, store Store, tokens []StaticToken) (int, error) {
	created := 0
	for i, st := range tokens {
		if st.Token == "" {
			return created, ErrInvalidToken
		}
		tok := &Token{
			ID:     "static-" + HashToken(st.Token)[:12],
			UserID: st.UserID,
			Name:   st.Name,
		}
		err := store.CreateToken(ctx, st.Token, tok)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrTokenExists):
		default:
			return created, fmt.Errorf("failed to bootstrap token %d (%s): %w", i, tok.ID, err)
		}
	}
	return created, nil
}
