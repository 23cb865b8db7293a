package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP payloads run a few KB;
	// this leaves ample headroom.
	maxMessageSize = 65536
)

// Client represents one live authenticated websocket connection. connID
// is connection identity, not user identity: the same user may hold
// several clients at once from different tabs or devices.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	connID string
	userID string

	// Current room membership. Guarded by hub.mu.
	roomCode string

	// ICE candidates relayed to this client before an offer/answer from
	// the same sender has been forwarded are queued here and flushed
	// once the description goes out, instead of being dropped.
	iceMu      sync.Mutex
	haveDesc   map[string]bool     // sender connID -> description forwarded
	pendingICE map[string][][]byte // sender connID -> queued candidate events
}

// Event is the envelope for every message on the realtime channel. The
// payload stays raw so relayed SDP and ICE bodies are forwarded
// byte-for-byte, never re-encoded.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// encodeEvent builds a wire-ready event from a payload value.
func encodeEvent(eventType string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, Payload: payloadBytes})
}

// readPump pumps messages from the websocket connection to the relay
func (c *Client) readPump() {
	defer func() {
		// In-memory cleanup is synchronous: it completes before this
		// goroutine exits, so a reconnect with the same identity never
		// observes the stale entry.
		HandleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error (conn %s): %v", c.connID, err)
			}
			break
		}

		HandleIncomingEvent(c, message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands an event to the connection's writer. The buffered
// channel preserves per-sender ordering; a consumer too slow to drain
// its buffer loses the event rather than stalling the relay.
func (c *Client) enqueue(event []byte) {
	select {
	case c.send <- event:
	default:
		log.Printf("dropping event for slow consumer %s (user %s)", c.connID, c.userID)
	}
}

// deliverDescription forwards an offer/answer event from the given
// sender, then flushes any ICE candidates from that sender that arrived
// ahead of it, in their original order.
func (c *Client) deliverDescription(fromConnID string, event []byte) {
	c.iceMu.Lock()
	c.haveDesc[fromConnID] = true
	pending := c.pendingICE[fromConnID]
	delete(c.pendingICE, fromConnID)
	c.iceMu.Unlock()

	c.enqueue(event)
	for _, candidate := range pending {
		c.enqueue(candidate)
	}
}

// deliverCandidate forwards an ICE candidate event, or queues it when no
// description from that sender has been forwarded yet.
func (c *Client) deliverCandidate(fromConnID string, event []byte) {
	c.iceMu.Lock()
	if c.haveDesc[fromConnID] {
		c.iceMu.Unlock()
		c.enqueue(event)
		return
	}
	c.pendingICE[fromConnID] = append(c.pendingICE[fromConnID], event)
	c.iceMu.Unlock()
}

// forgetPeer clears negotiation state for a departed peer so its queued
// candidates are not replayed into a later session.
func (c *Client) forgetPeer(connID string) {
	c.iceMu.Lock()
	delete(c.haveDesc, connID)
	delete(c.pendingICE, connID)
	c.iceMu.Unlock()
}
