package models

// Channel represents a chat channel.
type Channel struct {
	// CID is the full channel identifier in "type:id" form.
	CID string `json:"cid"`

	// ID is the channel identifier without the type prefix.
	ID string `json:"id"`

	// Type is the channel type (e.g. "messaging", "team").
	Type string `json:"type"`

	// Name is the display name. Optional.
	Name string `json:"name,omitempty"`

	// CreatedByID is the user who created the channel.
	CreatedByID string `json:"created_by_id,omitempty"`

	// MemberCount is the number of members.
	MemberCount int `json:"member_count,omitempty"`

	// LastMessageAt is the timestamp of the newest message (Unix milliseconds).
	LastMessageAt int64 `json:"last_message_at,omitempty"`

	// CreatedAt is the channel creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at,omitempty"`

	// Frozen channels reject new messages.
	Frozen bool `json:"frozen,omitempty"`

	// Extra carries custom fields the backend attaches to the channel.
	Extra map[string]any `json:"extra,omitempty"`
}
