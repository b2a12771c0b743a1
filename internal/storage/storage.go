package storage

import (
	"context"
	"errors"

	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// Common sentinel errors for storage operations.
var (
	// ErrProfileNotFound is returned when no profile matches a SUPI.
	ErrProfileNotFound = errors.New("UE profile not found")

	// ErrProfileExists is returned when creating a profile whose SUPI is
	// already stored.
	ErrProfileExists = errors.New("UE profile already exists")

	// ErrInvalidSUPI is returned when a SUPI argument is empty.
	ErrInvalidSUPI = errors.New("invalid SUPI")

	// ErrStorageUnavailable is returned when the storage backend is unavailable.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)

// Store defines the interface for UE profile storage operations.
// Implementations must be safe for concurrent use.
//
// Example usage:
//
//	store := NewRedisStore(cfg)
//	defer store.Close()
//
//	err := store.Create(ctx, ue)
//	if errors.Is(err, ErrProfileExists) {
//	    // SUPI already taken
//	}
type Store interface {
	// Create stores a new profile. It assigns ID and CreatedAt when unset.
	// Returns ErrProfileExists if the SUPI is already stored and
	// profile.ErrInvalidProfile if validation fails.
	Create(ctx context.Context, ue *profile.UeProfile) error

	// CreateMany stores a batch of profiles. Either all of them are stored
	// or none is. Returns ErrProfileExists if any SUPI is already stored or
	// repeated within the batch.
	CreateMany(ctx context.Context, ues []*profile.UeProfile) error

	// Get retrieves a profile by SUPI.
	// Returns ErrProfileNotFound if the profile does not exist.
	Get(ctx context.Context, supi string) (*profile.UeProfile, error)

	// Update replaces the profile stored under supi. The SUPI, ID, owner
	// and creation time of the stored profile are kept.
	// Returns ErrProfileNotFound if the profile does not exist.
	Update(ctx context.Context, supi string, ue *profile.UeProfile) error

	// Delete deletes a profile by SUPI.
	// Returns ErrProfileNotFound if the profile does not exist.
	Delete(ctx context.Context, supi string) error

	// List retrieves profiles matching filter, oldest first.
	// Returns an empty slice if nothing matches.
	List(ctx context.Context, filter ListFilter) ([]*profile.UeProfile, error)

	// Close closes the storage connection and releases resources.
	Close() error

	// Ping checks if the storage backend is available.
	// Returns ErrStorageUnavailable if the backend cannot be reached.
	Ping(ctx context.Context) error
}
