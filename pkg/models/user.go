package models

import (
	"encoding/json"
	"strings"
	"time"
)

// User field constraints.
const (
	MaxUserIDLength   = 128
	MaxUserNameLength = 256
)

// User represents a chat user as reported by the backend.
type User struct {
	// ID is the unique user identifier. Matches the token's user_id claim.
	ID string `json:"id"`

	// Name is the display name. Optional.
	Name string `json:"name,omitempty"`

	// ImageURL is the avatar URL. Optional.
	ImageURL string `json:"image_url,omitempty"`

	// Role is the backend-assigned role (e.g. "user", "admin").
	Role string `json:"role,omitempty"`

	// Anonymous is true for guest users.
	Anonymous bool `json:"anonymous,omitempty"`

	// Online is the presence flag from the last server response.
	Online bool `json:"online,omitempty"`

	// CreatedAt is the account creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at,omitempty"`

	// LastActive is the last activity timestamp (Unix milliseconds).
	LastActive int64 `json:"last_active,omitempty"`

	// Extra carries custom fields the backend attaches to the user.
	Extra map[string]any `json:"extra,omitempty"`
}

// Validate checks the user fields against constraints.
func (u *User) Validate() error {
	var violations []string
	if u.ID == "" {
		violations = append(violations, "id is required")
	}
	if len(u.ID) > MaxUserIDLength {
		violations = append(violations, "id exceeds 128 characters")
	}
	if len(u.Name) > MaxUserNameLength {
		violations = append(violations, "name exceeds 256 characters")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// CreatedAtTime returns CreatedAt as time.Time.
func (u *User) CreatedAtTime() time.Time {
	if u.CreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(u.CreatedAt)
}

// Clone creates a deep copy of the user.
func (u *User) Clone() *User {
	clone := *u
	if u.Extra != nil {
		clone.Extra = make(map[string]any, len(u.Extra))
		for k, v := range u.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

// MarshalUser serializes a user for the token store cache.
func MarshalUser(u *User) ([]byte, error) {
	return json.Marshal(u)
}

// UnmarshalUser deserializes a user from the token store cache.
func UnmarshalUser(data []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ValidationError reports one or more model constraint violations.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}
