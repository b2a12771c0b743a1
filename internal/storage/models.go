// Package storage persists UE profiles in Redis.
package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// Event types published on the profile event channel.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event is published whenever a stored profile changes.
type Event struct {
	Event     string    `json:"event"`
	Supi      string    `json:"supi"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis publishing.
func (e *Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *Event) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// ListFilter narrows List results. Empty fields match everything.
type ListFilter struct {
	// SupiContains matches SUPIs containing the value, ignoring case.
	SupiContains string

	// UserID matches profiles created by one user.
	UserID string
}

// Matches reports whether ue passes the filter.
func (f ListFilter) Matches(ue *profile.UeProfile) bool {
	if f.UserID != "" && ue.UserID != f.UserID {
		return false
	}
	if f.SupiContains != "" && !strings.Contains(strings.ToLower(ue.Supi), strings.ToLower(f.SupiContains)) {
		return false
	}
	return true
}
