package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/identity"
	"github.com/founderhq/huddle_backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

type CreateConversationInput struct {
	ParticipantID string `json:"participantId" binding:"required" example:"user-42"`
}

// ConversationResponse is a conversation hydrated with the other
// participant's public profile. The profile is nil when the identity
// service is unavailable — hydration failures never fail the request.
type ConversationResponse struct {
	models.Conversation
	OtherParticipant *identity.PublicProfile `json:"otherParticipant,omitempty"`
}

var identityClient = identity.NewClient()

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// GetConversations godoc
// @Summary List the authenticated user's conversations
// @Description Returns all 1:1 conversations for the current user, most recently updated first
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {array} ConversationResponse "List of conversations"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /messages/conversations [get]
func GetConversations(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	var conversations []models.Conversation
	if err := database.DB.
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	token := bearerToken(c)
	response := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		hydrated := ConversationResponse{Conversation: conv}
		profile, err := identityClient.GetProfile(conv.OtherParticipant(userID), token)
		if err == nil {
			hydrated.OtherParticipant = profile
		}
		response = append(response, hydrated)
	}

	c.JSON(http.StatusOK, response)
}

// GetConversationMessages godoc
// @Summary Get all messages in a conversation
// @Description Returns the conversation's messages in timestamp order
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {array} models.Message "Ordered messages"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Conversation not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /messages/conversations/{id}/messages [get]
func GetConversationMessages(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	conversationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	var conversation models.Conversation
	if err := database.DB.First(&conversation, conversationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if !conversation.HasParticipant(userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	// The id tie-break keeps ordering stable when timestamps collide
	var messages []models.Message
	if err := database.DB.
		Where("conversation_id = ?", conversation.ID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// CreateConversation godoc
// @Summary Start or fetch a conversation with another user
// @Description Finds the existing 1:1 conversation with the given user or creates one. Returns 201 either way
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param conversation body CreateConversationInput true "Other participant"
// @Success 201 {object} ConversationResponse "Conversation"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /messages/conversations [post]
func CreateConversation(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	var input CreateConversationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participantId is required"})
		return
	}
	if input.ParticipantID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot start a conversation with yourself"})
		return
	}

	conversation, err := FindOrCreateConversation(userID, input.ParticipantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	response := ConversationResponse{Conversation: *conversation}
	if profile, err := identityClient.GetProfile(input.ParticipantID, bearerToken(c)); err == nil {
		response.OtherParticipant = profile
	}

	c.JSON(http.StatusCreated, response)
}

// FindOrCreateConversation returns the single conversation for an
// unordered user pair, creating it if absent. The insert relies on the
// pair's unique index rather than a check-then-insert, so two
// concurrent calls for the same pair converge on one row.
func FindOrCreateConversation(x, y string) (*models.Conversation, error) {
	userA, userB := models.NormalizePair(x, y)

	conversation := models.Conversation{UserA: userA, UserB: userB}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&conversation).Error; err != nil {
		return nil, err
	}

	// Re-select: on conflict the insert returns no row
	if err := database.DB.Where("user_a = ? AND user_b = ?", userA, userB).First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}
