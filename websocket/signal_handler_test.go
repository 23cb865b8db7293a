package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Room{}, &models.RoomParticipant{},
		&models.ActivityLog{}, &models.Conversation{}, &models.Message{}))

	database.DB = db
}

func createTestRoom(t *testing.T, code, creator, status string) models.Room {
	t.Helper()
	room := models.Room{
		RoomCode:       code,
		CreatorID:      creator,
		Type:           models.RoomTypeVideo,
		Status:         status,
		LastActivityAt: time.Now(),
	}
	require.NoError(t, database.DB.Create(&room).Error)
	return room
}

func decodeEvent(t *testing.T, raw []byte) (string, map[string]interface{}) {
	t.Helper()
	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	payload := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return event.Type, payload
}

func TestJoinRoomAnnouncesToExistingMembersOnly(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)

	handleJoinRoom(a, "ROOM1234")
	assert.Empty(t, drain(a), "first member has no one to hear about")

	handleJoinRoom(b, "ROOM1234")

	// The existing peer learns about the newcomer and initiates the offer
	events := drain(a)
	require.Len(t, events, 1)
	eventType, payload := decodeEvent(t, events[0])
	assert.Equal(t, "user-joined", eventType)
	assert.Equal(t, "bob", payload["userId"])
	assert.Equal(t, "conn-b", payload["connectionId"])

	// The newcomer never hears about itself
	assert.Empty(t, drain(b))

	// Both joins recorded durably
	var participants []models.RoomParticipant
	database.DB.Find(&participants)
	assert.Len(t, participants, 2)

	var joins int64
	database.DB.Model(&models.ActivityLog{}).
		Where("room_code = ? AND action = ?", "ROOM1234", models.ActionJoin).
		Count(&joins)
	assert.EqualValues(t, 2, joins)
}

func TestJoinRoomRejectsEndedRoom(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusEnded)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	h.register(a)

	handleJoinRoom(a, "ROOM1234")

	events := drain(a)
	require.Len(t, events, 1)
	eventType, _ := decodeEvent(t, events[0])
	assert.Equal(t, "error", eventType)
	assert.Empty(t, a.currentRoom())
}

func TestJoinRoomUnknownCode(t *testing.T) {
	setupTestDB(t)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	h.register(a)

	handleJoinRoom(a, "NOSUCHRM")

	events := drain(a)
	require.Len(t, events, 1)
	eventType, _ := decodeEvent(t, events[0])
	assert.Equal(t, "error", eventType)
}

func TestOfferRelayedVerbatim(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)
	handleJoinRoom(a, "ROOM1234")
	handleJoinRoom(b, "ROOM1234")
	drain(a)
	drain(b)

	sdp := `{"type":"offer","sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1\r\n"}`
	HandleIncomingEvent(b, []byte(`{"type":"offer","payload":{"to":"conn-a","sdp":`+sdp+`}}`))

	events := drain(a)
	require.Len(t, events, 1)

	var event Event
	require.NoError(t, json.Unmarshal(events[0], &event))
	assert.Equal(t, "offer", event.Type)

	var forwarded struct {
		From string          `json:"from"`
		SDP  json.RawMessage `json:"sdp"`
	}
	require.NoError(t, json.Unmarshal(event.Payload, &forwarded))
	assert.Equal(t, "conn-b", forwarded.From)
	assert.JSONEq(t, sdp, string(forwarded.SDP))

	// Exactly one copy, and the sender got nothing back
	assert.Empty(t, drain(a))
	assert.Empty(t, drain(b))
}

func TestRelayToGoneTargetIsSilentlyDropped(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	h.register(a)
	handleJoinRoom(a, "ROOM1234")
	drain(a)

	HandleIncomingEvent(a, []byte(`{"type":"offer","payload":{"to":"conn-gone","sdp":{}}}`))
	HandleIncomingEvent(a, []byte(`{"type":"ice-candidate","payload":{"to":"conn-gone","candidate":{}}}`))

	// No error surfaced to the sender; teardown races are expected
	assert.Empty(t, drain(a))
}

func TestSignalingRefreshesRoomActivity(t *testing.T) {
	setupTestDB(t)
	room := createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)
	handleJoinRoom(a, "ROOM1234")
	handleJoinRoom(b, "ROOM1234")

	// Backdate after the joins so only the signaling event can refresh it
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, database.DB.Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("last_activity_at", stale).Error)

	HandleIncomingEvent(b, []byte(`{"type":"offer","payload":{"to":"conn-a","sdp":{}}}`))

	var refreshed models.Room
	require.NoError(t, database.DB.First(&refreshed, room.ID).Error)
	assert.True(t, refreshed.LastActivityAt.After(stale))
}

func TestLeaveRoomBroadcastsUserLeft(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)
	handleJoinRoom(a, "ROOM1234")
	handleJoinRoom(b, "ROOM1234")
	drain(a)
	drain(b)

	HandleIncomingEvent(b, []byte(`{"type":"leave-room","payload":{"roomCode":"ROOM1234"}}`))

	events := drain(a)
	require.Len(t, events, 1)
	eventType, payload := decodeEvent(t, events[0])
	assert.Equal(t, "user-left", eventType)
	assert.Equal(t, "conn-b", payload["connectionId"])
	assert.Empty(t, b.currentRoom())

	var leaves int64
	database.DB.Model(&models.ActivityLog{}).
		Where("room_code = ? AND action = ?", "ROOM1234", models.ActionLeave).
		Count(&leaves)
	assert.EqualValues(t, 1, leaves)
}

func TestDisconnectCleansUpPresenceButNotParticipants(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOM1234", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)
	handleJoinRoom(a, "ROOM1234")
	handleJoinRoom(b, "ROOM1234")
	drain(a)
	drain(b)

	HandleDisconnect(b)

	// Live presence no longer includes the dropped connection
	assert.Empty(t, b.currentRoom())
	require.Len(t, h.membersOf("ROOM1234", nil), 1)

	// The historical participants set is untouched
	var participants []models.RoomParticipant
	database.DB.Find(&participants)
	assert.Len(t, participants, 2)

	events := drain(a)
	require.Len(t, events, 1)
	eventType, _ := decodeEvent(t, events[0])
	assert.Equal(t, "user-left", eventType)
}

func TestJoinSecondRoomAnnouncesLeavingFirst(t *testing.T) {
	setupTestDB(t)
	createTestRoom(t, "ROOMAAAA", "alice", models.RoomStatusActive)
	createTestRoom(t, "ROOMBBBB", "alice", models.RoomStatusActive)

	h := NewHub()
	a := newTestClient(h, "conn-a", "alice")
	b := newTestClient(h, "conn-b", "bob")
	h.register(a)
	h.register(b)
	handleJoinRoom(a, "ROOMAAAA")
	handleJoinRoom(b, "ROOMAAAA")
	drain(a)
	drain(b)

	handleJoinRoom(b, "ROOMBBBB")

	events := drain(a)
	require.Len(t, events, 1)
	eventType, _ := decodeEvent(t, events[0])
	assert.Equal(t, "user-left", eventType)
	assert.Equal(t, "ROOMBBBB", b.currentRoom())
}
