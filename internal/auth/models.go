// Package auth provides bearer token authentication for the UE profile API.
// It includes the token model, a Redis-backed token store and the Gin
// middleware that resolves a request's principal.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Token is a stored API token. The raw token value is never persisted;
// tokens are looked up by the SHA-256 of the raw value.
//
// Example:
//
//	tok := &Token{
//	    ID:     "tok-123",
//	    UserID: "alice",
//	    Name:   "ci pipeline",
//	}
type Token struct {
	// ID uniquely identifies the token.
	ID string `json:"id"`

	// UserID is the owner of the token. Profiles created with it are
	// stamped with this ID.
	UserID string `json:"userId"`

	// Name is a human-readable label.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the token was issued.
	CreatedAt time.Time `json:"createdAt"`

	// ExpiresAt is when the token stops being accepted. Zero means never.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Validate checks the token has the fields the store requires.
func (t *Token) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: token ID is required", ErrInvalidToken)
	}
	if t.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidToken)
	}
	return nil
}

// IsExpired reports whether the token is no longer valid at now.
func (t *Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis storage.
func (t *Token) MarshalBinary() ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis storage.
func (t *Token) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

// Principal is the identity attached to an authenticated request.
type Principal struct {
	UserID  string `json:"userId"`
	TokenID string `json:"tokenId"`
	Name    string `json:"name,omitempty"`
}

// PrincipalFor builds the principal for a token.
func PrincipalFor(t *Token) *Principal {
	return &Principal{UserID: t.UserID, TokenID: t.ID, Name: t.Name}
}

// HashToken returns the hex SHA-256 of a raw token. Hashing gives a
// fixed-length key without special characters and keeps raw tokens out
// of Redis.
func HashToken(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
