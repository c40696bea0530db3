package models

// Message constraints.
const (
	MaxMessageTextLength = 5000
	MaxAttachmentsPerMsg = 10
)

// Message represents a chat message.
type Message struct {
	// ID is the unique message identifier. Client-generated IDs are
	// accepted by the backend and make sends idempotent.
	ID string `json:"id"`

	// CID is the channel the message belongs to.
	CID string `json:"cid"`

	// UserID is the author.
	UserID string `json:"user_id"`

	// Text is the message body.
	Text string `json:"text"`

	// Attachments are optional file/media attachments.
	Attachments []Attachment `json:"attachments,omitempty"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at,omitempty"`

	// UpdatedAt is the last edit timestamp (Unix milliseconds).
	UpdatedAt int64 `json:"updated_at,omitempty"`

	// Deleted is true for tombstoned messages.
	Deleted bool `json:"deleted,omitempty"`

	// Extra carries custom fields attached to the message.
	Extra map[string]any `json:"extra,omitempty"`
}

// Validate checks the message fields against constraints.
func (m *Message) Validate() error {
	var violations []string
	if m.Text == "" && len(m.Attachments) == 0 {
		violations = append(violations, "text or attachments required")
	}
	if len(m.Text) > MaxMessageTextLength {
		violations = append(violations, "text exceeds 5000 characters")
	}
	if len(m.Attachments) > MaxAttachmentsPerMsg {
		violations = append(violations, "too many attachments (max 10)")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Attachment is a file or media item attached to a message.
type Attachment struct {
	// Type is the attachment type (e.g. "image", "file").
	Type string `json:"type"`

	// AssetURL points at the uploaded asset.
	AssetURL string `json:"asset_url,omitempty"`

	// Title is a display title. Optional.
	Title string `json:"title,omitempty"`

	// MimeType is the content type of the asset.
	MimeType string `json:"mime_type,omitempty"`

	// FileSize is the asset size in bytes.
	FileSize int64 `json:"file_size,omitempty"`
}
