package websocket

import (
	"log"
	"sync"
)

// Hub is the authoritative in-memory registry of live connections. It is
// keyed by connection identity, not user identity: one user with several
// tabs holds several entries. Nothing here is durable — after a restart
// presence is empty by construction.
//
// The lock is only ever held for map bookkeeping. Database writes and
// fan-out happen after release so a slow store can't stall unrelated
// rooms.
type Hub struct {
	mu sync.RWMutex

	// Live connections by connection ID
	conns map[string]*Client

	// Room membership (roomCode -> clients)
	rooms map[string]map[*Client]bool

	// Secondary index for direct-message fan-out (userID -> clients)
	users map[string]map[*Client]bool
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Client),
		rooms: make(map[string]map[*Client]bool),
		users: make(map[string]map[*Client]bool),
	}
}

// register adds a newly-upgraded connection. Re-registering an existing
// connection ID is an upsert, matching reconnect races.
func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.conns[client.connID]; ok && prev != client {
		h.removeLocked(prev)
	}
	h.conns[client.connID] = client
	if _, ok := h.users[client.userID]; !ok {
		h.users[client.userID] = make(map[*Client]bool)
	}
	h.users[client.userID][client] = true
}

// unregister removes the connection from every map and reports the room
// it occupied, so the caller can announce the departure. It runs
// synchronously in the connection's read loop before the goroutines
// exit: by the time a reconnect with the same identity is served, the
// old entry is already gone.
func (h *Hub) unregister(client *Client) (roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) (roomCode string) {
	if h.conns[client.connID] == client {
		delete(h.conns, client.connID)
	}
	if clients, ok := h.users[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.users, client.userID)
		}
	}
	roomCode = client.roomCode
	client.roomCode = ""
	if roomCode != "" {
		h.dropFromRoomLocked(client, roomCode)
	}
	return roomCode
}

// joinRoom moves the connection into a room. A connection holds at most
// one room membership: joining while already in a room leaves the
// previous room first, and the previous code is returned so the caller
// can announce that departure.
func (h *Hub) joinRoom(client *Client, roomCode string) (previous string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	previous = client.roomCode
	if previous == roomCode {
		return ""
	}
	if previous != "" {
		h.dropFromRoomLocked(client, previous)
	}

	client.roomCode = roomCode
	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[*Client]bool)
	}
	h.rooms[roomCode][client] = true
	return previous
}

// leaveRoom removes the connection from its room, if it matches.
func (h *Hub) leaveRoom(client *Client, roomCode string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.roomCode != roomCode {
		return false
	}
	client.roomCode = ""
	h.dropFromRoomLocked(client, roomCode)
	return true
}

func (h *Hub) dropFromRoomLocked(client *Client, roomCode string) {
	if clients, ok := h.rooms[roomCode]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

// membersOf returns a snapshot of the room's live connections, excluding
// the given connection. The relay uses it to compute fan-out targets.
func (h *Hub) membersOf(roomCode string, except *Client) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.rooms[roomCode]
	members := make([]*Client, 0, len(clients))
	for client := range clients {
		if client != except {
			members = append(members, client)
		}
	}
	return members
}

// currentRoom returns the connection's room membership, if any.
func (c *Client) currentRoom() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.roomCode
}

// client looks up a live connection by its connection ID.
func (h *Hub) client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connID]
	return c, ok
}

// connsOfUser returns every live connection a user currently holds, so
// direct messages reach all of their open tabs.
func (h *Hub) connsOfUser(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.users[userID]
	conns := make([]*Client, 0, len(clients))
	for client := range clients {
		conns = append(conns, client)
	}
	return conns
}

// broadcastToRoom sends an already-encoded event to every member of a
// room except the sender.
func (h *Hub) broadcastToRoom(roomCode string, except *Client, event []byte) {
	for _, member := range h.membersOf(roomCode, except) {
		member.enqueue(event)
	}
}

// Global hub instance
var hub *Hub

// InitHub initializes the global hub
func InitHub() {
	hub = NewHub()
	log.Println("WebSocket hub initialized")
}
