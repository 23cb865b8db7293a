package websocket

import (
	"log"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
	"gorm.io/gorm"
)

// SendMessagePayload is a direct message sent over the realtime channel.
type SendMessagePayload struct {
	ConversationID uint   `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
}

// HandleSendMessage persists a direct message and relays it to the
// receiver's live connections. An offline receiver is not an error: the
// message is durable and shows up on their next conversation fetch.
func HandleSendMessage(client *Client, payload SendMessagePayload) {
	if payload.Text == "" {
		sendError(client, "Message text is required")
		return
	}

	var conversation models.Conversation
	if err := database.DB.First(&conversation, payload.ConversationID).Error; err != nil {
		sendError(client, "Conversation not found")
		return
	}
	if !conversation.HasParticipant(client.userID) ||
		conversation.OtherParticipant(client.userID) != payload.ReceiverID {
		sendError(client, "Conversation not found")
		return
	}

	message, err := saveMessage(&conversation, client.userID, payload)
	if err != nil {
		log.Printf("error saving message in conversation %d: %v", payload.ConversationID, err)
		sendError(client, "Failed to send message")
		return
	}

	event, err := encodeEvent("receive-message", message)
	if err != nil {
		log.Printf("error encoding receive-message: %v", err)
		return
	}
	// All of the receiver's open tabs get the message
	for _, conn := range client.hub.connsOfUser(payload.ReceiverID) {
		conn.enqueue(event)
	}

	if echo, err := encodeEvent("message-sent", message); err == nil {
		client.enqueue(echo)
	}
}

// saveMessage appends the message and refreshes the conversation's
// lastMessage cache in one transaction, so the preview can never point
// at a message that was not persisted.
func saveMessage(conversation *models.Conversation, senderID string, payload SendMessagePayload) (*models.Message, error) {
	message := models.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		ReceiverID:     payload.ReceiverID,
		Text:           payload.Text,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversation.ID).
			Updates(map[string]interface{}{
				"last_message_text":      payload.Text,
				"last_message_sender_id": senderID,
				"last_message_at":        message.CreatedAt,
				"updated_at":             time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}
