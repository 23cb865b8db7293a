package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
	"github.com/founderhq/huddle_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateRoomInput struct {
	Type string `json:"type" binding:"required,oneof=voice video" example:"video"`
}

// Collisions over the 8-character code space are expected, not
// exceptional; give random generation a few tries before giving up.
const maxCodeAttempts = 5

// CreateRoom godoc
// @Summary Create a new huddle room
// @Description Creates a voice or video huddle with a unique 8-character room code
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Room Creation"
// @Success 201 {object} models.Room "Room created successfully"
// @Failure 400 {object} map[string]string "Invalid room type"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Server error"
// @Router /rooms/create [post]
func CreateRoom(c *gin.Context) {
	userID := c.MustGet("userID").(string)

	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be voice or video"})
		return
	}

	var room models.Room
	for attempt := 0; ; attempt++ {
		room = models.Room{
			RoomCode:       utils.GenerateRoomCode(),
			CreatorID:      userID,
			Type:           input.Type,
			Status:         models.RoomStatusActive,
			LastActivityAt: time.Now(),
		}

		err := database.DB.Create(&room).Error
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxCodeAttempts {
			continue
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	// Creator goes into the historical participants set right away
	participant := models.RoomParticipant{
		RoomID:   room.ID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
		log.Printf("Error adding creator to room %s: %v", room.RoomCode, err)
	}
	room.Participants = []models.RoomParticipant{participant}

	logActivity(room.RoomCode, userID, models.ActionCreate)

	c.JSON(http.StatusCreated, room)
}

// GetRoom godoc
// @Summary Get details of a room by code
// @Description Returns a huddle room's metadata and historical participants
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code path string true "Room Code"
// @Success 200 {object} models.Room "Room details"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Room not found"
// @Router /rooms/{code} [get]
func GetRoom(c *gin.Context) {
	code := utils.NormalizeRoomCode(c.Param("code"))

	var room models.Room
	if err := database.DB.Preload("Participants").Where("room_code = ?", code).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// JoinRoom godoc
// @Summary Join a room by code
// @Description Adds the authenticated user to the room's participants set and refreshes its activity timestamp
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code path string true "Room Code"
// @Success 200 {object} models.Room "Room details"
// @Failure 400 {object} map[string]string "Room has ended"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /rooms/{code}/join [post]
func JoinRoom(c *gin.Context) {
	userID := c.MustGet("userID").(string)
	code := utils.NormalizeRoomCode(c.Param("code"))

	var room models.Room
	if err := database.DB.Where("room_code = ?", code).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if !room.Active() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room has ended"})
		return
	}

	participant := models.RoomParticipant{
		RoomID:   room.ID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}

	// Single-statement refresh guarded on status, so a join racing the
	// room's end never resurrects activity on an ended room.
	res := database.DB.Model(&models.Room{}).
		Where("id = ? AND status = ?", room.ID, models.RoomStatusActive).
		Update("last_activity_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room has ended"})
		return
	}

	logActivity(code, userID, models.ActionJoin)

	database.DB.Preload("Participants").First(&room, room.ID)
	c.JSON(http.StatusOK, room)
}

// EndRoom godoc
// @Summary End a room
// @Description Transitions a room to ended. Only the creator may end a room; ending an already-ended room is a no-op
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code path string true "Room Code"
// @Success 200 {object} map[string]string "Room ended"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Only the creator can end the room"
// @Failure 404 {object} map[string]string "Room not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /rooms/{code}/end [post]
func EndRoom(c *gin.Context) {
	userID := c.MustGet("userID").(string)
	code := utils.NormalizeRoomCode(c.Param("code"))

	var room models.Room
	if err := database.DB.Where("room_code = ?", code).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	if room.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can end the room"})
		return
	}

	// Compare-and-set on status keeps the transition monotonic and the
	// call idempotent: a second end simply matches zero rows.
	res := database.DB.Model(&models.Room{}).
		Where("id = ? AND status = ?", room.ID, models.RoomStatusActive).
		Update("status", models.RoomStatusEnded)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end room"})
		return
	}
	if res.RowsAffected > 0 {
		logActivity(code, userID, models.ActionEnd)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room ended"})
}

// logActivity appends an audit entry. Audit writes are best-effort and
// never fail the request that triggered them.
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
