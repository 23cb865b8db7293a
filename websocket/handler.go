package websocket

import (
	"log"
	"net/http"
	"strings"

	"github.com/founderhq/huddle_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Initialize the hub
func init() {
	InitHub()
}

// HandleConnection authenticates and upgrades a realtime connection.
// The bearer token must be valid before any event is processed: an
// unauthenticated request is refused without upgrading.
func HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	userID, err := utils.ParseToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("error upgrading connection: %v", err)
		return
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, 256),
		connID:     uuid.NewString(),
		userID:     userID,
		haveDesc:   make(map[string]bool),
		pendingICE: make(map[string][][]byte),
	}

	client.hub.register(client)
	log.Printf("user %s connected (conn %s)", userID, client.connID)

	// Tell the client its connection identity; peers address signaling
	// events by it.
	if event, err := encodeEvent("connected", PeerPayload{
		UserID:       userID,
		ConnectionID: client.connID,
	}); err == nil {
		client.enqueue(event)
	}

	go client.readPump()
	go client.writePump()
}
