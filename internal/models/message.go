package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message inside a pairwise conversation.
// Messages are append-only; the only mutation ever applied is flipping Read
// from false to true on the receiver's side.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content,omitempty"`
	ImageURI   string `json:"imageUri,omitempty"`
	Timestamp  string `json:"timestamp"` // ISO-8601
	Read       bool   `json:"read"`
}

// NewMessageID generates a message id unique within a conversation under
// concurrent composition. Time-based prefix keeps ids roughly sortable; the
// random suffix disambiguates messages composed in the same millisecond.
// No cross-device coordination exists or is required.
func NewMessageID(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("msg_%d_%s", now.UnixMilli(), suffix)
}

// SentAt parses the message timestamp. Unparseable timestamps sort to the
// zero time rather than failing, matching the store's fail-soft policy.
func (m Message) SentAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
