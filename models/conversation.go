package models

import (
	"time"
)

// Conversation is the durable container for a pair of users' direct
// messages. The pair is stored normalized (UserA < UserB) so the
// composite unique index guarantees at most one conversation per pair —
// concurrent find-or-create races collapse onto the same row at the
// storage layer.
type Conversation struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserA               string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair" json:"user_a"`
	UserB               string    `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair" json:"user_b"`
	LastMessageText     string    `gorm:"type:text" json:"last_message_text"`
	LastMessageSenderID string    `gorm:"size:64" json:"last_message_sender_id"`
	LastMessageAt       time.Time `json:"last_message_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `gorm:"index" json:"updated_at"`
}

// NormalizePair orders an unordered user ID pair into storage order.
func NormalizePair(x, y string) (string, string) {
	if x > y {
		return y, x
	}
	return x, y
}

// HasParticipant reports whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

// OtherParticipant returns the member that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}
