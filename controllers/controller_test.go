package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/middleware"
	"github.com/founderhq/huddle_backend/models"
	"github.com/founderhq/huddle_backend/utils"
	"github.com/gin-gonic/gin"
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

	// A single connection keeps concurrent test writes serialized on
	// the in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Room{}, &models.RoomParticipant{},
		&models.ActivityLog{}, &models.Conversation{}, &models.Message{}))

	database.DB = db
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rooms := r.Group("/rooms")
	rooms.Use(middleware.JWTAuth())
	{
		rooms.POST("/create", CreateRoom)
		rooms.GET("/:code", GetRoom)
		rooms.POST("/:code/join", JoinRoom)
		rooms.POST("/:code/end", EndRoom)
	}

	messages := r.Group("/messages")
	messages.Use(middleware.JWTAuth())
	{
		messages.GET("/conversations", GetConversations)
		messages.POST("/conversations", CreateConversation)
		messages.GET("/conversations/:id/messages", GetConversationMessages)
	}

	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	token, err := utils.GenerateToken(userID)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeRoom(t *testing.T, w *httptest.ResponseRecorder) models.Room {
	t.Helper()
	var room models.Room
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	return room
}
