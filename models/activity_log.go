package models

import (
	"time"
)

const (
	ActionCreate = "create"
	ActionJoin   = "join"
	ActionLeave  = "leave"
	ActionEnd    = "end"
)

// ActivityLog is an append-only audit record of room lifecycle events.
// UserID is empty for system-initiated actions (reaper sweeps).
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomCode  string    `gorm:"size:8;not null;index" json:"room_code"`
	UserID    string    `gorm:"size:64" json:"user_id"`
	Action    string    `gorm:"size:10;not null" json:"action"` // create, join, leave, end
	CreatedAt time.Time `json:"created_at"`
}
