package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
	"github.com/founderhq/huddle_backend/utils"
	"gorm.io/gorm/clause"
)

// JoinRoomPayload carries the room code for join-room and leave-room
type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// OfferPayload addresses an SDP offer or answer to a peer connection.
// The SDP body is opaque to the relay: it is forwarded untouched.
type OfferPayload struct {
	To  string          `json:"to"`
	SDP json.RawMessage `json:"sdp"`
}

// CandidatePayload addresses a discovered ICE candidate to a peer.
type CandidatePayload struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

// PeerPayload announces a peer joining or leaving a room.
type PeerPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// HandleIncomingEvent processes one event from a client's read loop.
// Events from a single connection are handled serially, which is what
// preserves per-sender delivery order through the relay.
func HandleIncomingEvent(client *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Printf("error unmarshaling event from %s: %v", client.connID, err)
		return
	}

	switch event.Type {
	case "join-room":
		var payload JoinRoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("error unmarshaling join-room payload: %v", err)
			return
		}
		handleJoinRoom(client, utils.NormalizeRoomCode(payload.RoomCode))
	case "leave-room":
		var payload JoinRoomPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("error unmarshaling leave-room payload: %v", err)
			return
		}
		handleLeaveRoom(client, utils.NormalizeRoomCode(payload.RoomCode))
	case "offer", "answer":
		var payload OfferPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("error unmarshaling %s payload: %v", event.Type, err)
			return
		}
		relayDescription(client, event.Type, payload)
	case "ice-candidate":
		var payload CandidatePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("error unmarshaling ice-candidate payload: %v", err)
			return
		}
		relayCandidate(client, payload)
	case "send-message":
		var payload SendMessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("error unmarshaling send-message payload: %v", err)
			return
		}
		HandleSendMessage(client, payload)
	default:
		log.Printf("unknown event type %q from conn %s", event.Type, client.connID)
	}
}

// handleJoinRoom validates the room, registers live presence, records
// the join durably, and announces the newcomer to the existing members.
// Existing peers initiate the offer toward the newcomer, never the other
// way around.
func handleJoinRoom(client *Client, roomCode string) {
	var room models.Room
	if err := database.DB.Where("room_code = ?", roomCode).First(&room).Error; err != nil {
		sendError(client, "Room not found")
		return
	}
	if !room.Active() {
		sendError(client, "Room has ended")
		return
	}

	previous := client.hub.joinRoom(client, roomCode)
	if previous != "" {
		// Single-membership policy: joining a new room leaves the old one
		announceLeave(client, previous)
	}

	participant := models.RoomParticipant{
		RoomID:   room.ID,
		UserID:   client.userID,
		JoinedAt: time.Now(),
	}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
		log.Printf("error recording participant %s in room %s: %v", client.userID, roomCode, err)
	}
	touchRoomActivity(roomCode)
	logActivity(roomCode, client.userID, models.ActionJoin)

	event, err := encodeEvent("user-joined", PeerPayload{
		UserID:       client.userID,
		ConnectionID: client.connID,
	})
	if err != nil {
		log.Printf("error encoding user-joined: %v", err)
		return
	}
	client.hub.broadcastToRoom(roomCode, client, event)

	log.Printf("user %s joined room %s (conn %s)", client.userID, roomCode, client.connID)
}

func handleLeaveRoom(client *Client, roomCode string) {
	if !client.hub.leaveRoom(client, roomCode) {
		return
	}
	announceLeave(client, roomCode)
}

// HandleDisconnect tears down a dropped connection. The hub entry is
// removed synchronously; the audit write and departure broadcast follow
// best-effort.
func HandleDisconnect(client *Client) {
	roomCode := client.hub.unregister(client)
	if roomCode != "" {
		announceLeave(client, roomCode)
	}
	log.Printf("user %s disconnected (conn %s)", client.userID, client.connID)
}

// announceLeave records the departure and tells the remaining members.
// The room's historical participants set is left untouched: membership
// is an audit trail, live presence is the hub's concern.
func announceLeave(client *Client, roomCode string) {
	logActivity(roomCode, client.userID, models.ActionLeave)

	event, err := encodeEvent("user-left", PeerPayload{
		UserID:       client.userID,
		ConnectionID: client.connID,
	})
	if err != nil {
		log.Printf("error encoding user-left: %v", err)
		return
	}
	for _, member := range client.hub.membersOf(roomCode, client) {
		member.forgetPeer(client.connID)
		member.enqueue(event)
	}
}

// relayDescription forwards an offer or answer verbatim to the target
// connection, rewriting only the addressing. A target that has gone away
// is an expected teardown race: the event is dropped and logged, never
// surfaced to the sender.
func relayDescription(client *Client, eventType string, payload OfferPayload) {
	target, ok := client.hub.client(payload.To)
	if !ok {
		log.Printf("dropping %s from %s: target %s no longer connected", eventType, client.connID, payload.To)
		return
	}

	event, err := encodeEvent(eventType, struct {
		From string          `json:"from"`
		SDP  json.RawMessage `json:"sdp"`
	}{From: client.connID, SDP: payload.SDP})
	if err != nil {
		log.Printf("error encoding %s: %v", eventType, err)
		return
	}

	target.deliverDescription(client.connID, event)
	touchRoomActivity(client.currentRoom())
}

// relayCandidate forwards an ICE candidate, or lets the target buffer it
// until a description from this sender has gone out.
func relayCandidate(client *Client, payload CandidatePayload) {
	target, ok := client.hub.client(payload.To)
	if !ok {
		log.Printf("dropping ice-candidate from %s: target %s no longer connected", client.connID, payload.To)
		return
	}

	event, err := encodeEvent("ice-candidate", struct {
		From      string          `json:"from"`
		Candidate json.RawMessage `json:"candidate"`
	}{From: client.connID, Candidate: payload.Candidate})
	if err != nil {
		log.Printf("error encoding ice-candidate: %v", err)
		return
	}

	target.deliverCandidate(client.connID, event)
	touchRoomActivity(client.currentRoom())
}

// touchRoomActivity refreshes last_activity_at so the reaper sees the
// room as live. Guarded on status: signaling into an ended room never
// reactivates it.
func touchRoomActivity(roomCode string) {
	if roomCode == "" {
		return
	}
	err := database.DB.Model(&models.Room{}).
		Where("room_code = ? AND status = ?", roomCode, models.RoomStatusActive).
		Update("last_activity_at", time.Now()).Error
	if err != nil {
		log.Printf("error touching activity for room %s: %v", roomCode, err)
	}
}

// logActivity appends an audit entry, best-effort.
func logActivity(roomCode, userID, action string) {
	entry := models.ActivityLog{
		RoomCode: roomCode,
		UserID:   userID,
		Action:   action,
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("Error writing activity log (%s %s %s): %v", action, roomCode, userID, err)
	}
}

func sendError(client *Client, message string) {
	event, err := encodeEvent("error", map[string]string{"message": message})
	if err != nil {
		return
	}
	client.enqueue(event)
}
