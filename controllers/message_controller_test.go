package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateConversationIsIdempotent(t *testing.T) {
	setupTestDB(t)

	first, err := FindOrCreateConversation("alice", "bob")
	require.NoError(t, err)
	second, err := FindOrCreateConversation("bob", "alice") // reversed pair
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	database.DB.Model(&models.Conversation{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestFindOrCreateConversationConcurrent(t *testing.T) {
	setupTestDB(t)

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := FindOrCreateConversation("alice", "bob")
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	var count int64
	database.DB.Model(&models.Conversation{}).Count(&count)
	require.EqualValues(t, 1, count)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCreateConversationEndpoint(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	w := doRequest(t, r, http.MethodPost, "/messages/conversations", "alice",
		map[string]string{"participantId": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	var first ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	// Same pair from the other side: 201 with the same conversation
	w = doRequest(t, r, http.MethodPost, "/messages/conversations", "bob",
		map[string]string{"participantId": "alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	var second ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)

	// Hydration failure (no identity service in tests) is tolerated
	assert.Nil(t, second.OtherParticipant)
}

func TestCreateConversationRejectsSelf(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	w := doRequest(t, r, http.MethodPost, "/messages/conversations", "alice",
		map[string]string{"participantId": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversationsListsOnlyOwn(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	_, err := FindOrCreateConversation("alice", "bob")
	require.NoError(t, err)
	_, err = FindOrCreateConversation("carol", "dave")
	require.NoError(t, err)

	w := doRequest(t, r, http.MethodGet, "/messages/conversations", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var conversations []ConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversations))
	require.Len(t, conversations, 1)
	assert.True(t, conversations[0].HasParticipant("alice"))
}

func TestGetMessagesOrderedByTimestamp(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	conv, err := FindOrCreateConversation("alice", "bob")
	require.NoError(t, err)

	// Insert out of call order, as network jitter would
	base := time.Now().Add(-time.Hour)
	for _, offset := range []time.Duration{3 * time.Second, time.Second, 2 * time.Second} {
		msg := models.Message{
			ConversationID: conv.ID,
			SenderID:       "alice",
			ReceiverID:     "bob",
			Text:           fmt.Sprintf("at +%s", offset),
			CreatedAt:      base.Add(offset),
		}
		require.NoError(t, database.DB.Create(&msg).Error)
	}

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/messages/conversations/%d/messages", conv.ID), "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 3)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"messages must come back in non-decreasing timestamp order")
	}
}

func TestGetMessagesHiddenFromOutsiders(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	conv, err := FindOrCreateConversation("alice", "bob")
	require.NoError(t, err)

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/messages/conversations/%d/messages", conv.ID), "mallory", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
