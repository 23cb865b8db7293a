package models

import (
	"time"
)

const (
	RoomTypeVoice = "voice"
	RoomTypeVideo = "video"

	RoomStatusActive = "active"
	RoomStatusEnded  = "ended"
)

// Room is one huddle. Status only ever moves active -> ended; rooms are
// never deleted, they are retained for the audit trail.
type Room struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	RoomCode       string            `gorm:"size:8;not null;uniqueIndex" json:"room_code"`
	CreatorID      string            `gorm:"size:64;not null;index" json:"creator_id"`
	Type           string            `gorm:"size:10;not null" json:"type"` // voice, video
	Status         string            `gorm:"size:10;not null;default:'active'" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `gorm:"index" json:"last_activity_at"`
	Participants   []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

func (r *Room) Active() bool {
	return r.Status == RoomStatusActive
}

// RoomParticipant records that a user has joined a room at some point.
// This is the historical membership set, not live presence — live
// presence is connection-keyed and lives in the websocket hub only.
type RoomParticipant struct {
	RoomID   uint      `gorm:"primaryKey" json:"room_id"`
	UserID   string    `gorm:"primaryKey;size:64" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
