package models

import (
	"time"
)

// Message is one direct message inside a conversation. Append-only.
// The auto-increment ID is the tie-break for messages whose timestamps
// collide, so retrieval order (created_at, id) is stable under
// concurrent inserts.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       string    `gorm:"size:64;not null" json:"sender_id"`
	ReceiverID     string    `gorm:"size:64;not null" json:"receiver_id"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}
