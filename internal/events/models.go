// Package events publishes UE profile change events on a Redis stream.
// Other services consume them through consumer groups.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// Event is a change of one stored UE profile.
type Event struct {
	// ID is the unique event identifier (UUID v4)
	ID string `json:"id"`

	// Type is the change (created, updated, deleted)
	Type Type `json:"type"`

	// Supi identifies the profile that changed
	Supi string `json:"supi"`

	// UserID is the owner of the profile
	UserID string `json:"userId,omitempty"`

	// Profile is the stored profile; it is nil for deletions
	Profile *profile.UeProfile `json:"profile,omitempty"`

	// Timestamp is when the change was made
	Timestamp time.Time `json:"timestamp"`

	// StreamID is the stream entry the event was read from. It is only set
	// on consumed events and is what Acknowledge expects.
	StreamID string `json:"-"`
}

// Type identifies the kind of change.
type Type string

const (
	// ProfileCreated is published for every created or generated profile.
	ProfileCreated Type = "ProfileCreated"

	// ProfileUpdated is published when a profile is replaced.
	ProfileUpdated Type = "ProfileUpdated"

	// ProfileDeleted is published when a profile is removed.
	ProfileDeleted Type = "ProfileDeleted"
)

// String returns the string representation of the Type.
func (t Type) String() string {
	return string(t)
}

// NewEvent builds an event for ue. The owner is taken from the profile.
func NewEvent(t Type, ue *profile.UeProfile) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		Type:      t,
		Supi:      ue.Supi,
		UserID:    ue.UserID,
		Timestamp: time.Now().UTC(),
	}
	if t != ProfileDeleted {
		e.Profile = ue
	}
	return e
}
