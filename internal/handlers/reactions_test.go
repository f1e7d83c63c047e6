package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

func toggleReaction(userID, messageID, emoji string) (*httptest.ResponseRecorder, string) {
	c, w := testContext(userID, "POST", "/api/messages/"+messageID+"/reactions", `{"emoji":"`+emoji+`"}`)
	c.Params = gin.Params{{Key: "id", Value: messageID}}
	ToggleReaction(c)
	var resp struct {
		Action string `json:"action"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp.Action
}

func TestToggleReaction_AddThenRemove(t *testing.T) {
	SetupTestDB()
	createTestUser("a", "alice")
	createTestMessage("m1", "a", "hello", time.Now())

	w, action := toggleReaction("a", "m1", "👍")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "added", action)

	var count int64
	database.DB.Model(&models.Reaction{}).Where("message_id = ?", "m1").Count(&count)
	assert.Equal(t, int64(1), count)

	w, action = toggleReaction("a", "m1", "👍")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "removed", action)

	database.DB.Model(&models.Reaction{}).Where("message_id = ?", "m1").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestToggleReaction_PerEmojiIndependent(t *testing.T) {
	SetupTestDB()
	createTestUser("a", "alice")
	createTestMessage("m1", "a", "hello", time.Now())

	_, action := toggleReaction("a", "m1", "👍")
	assert.Equal(t, "added", action)
	_, action = toggleReaction("a", "m1", "❤️")
	assert.Equal(t, "added", action)

	// Removing one emoji leaves the other in place
	_, action = toggleReaction("a", "m1", "👍")
	assert.Equal(t, "removed", action)

	var remaining []models.Reaction
	database.DB.Where("message_id = ?", "m1").Find(&remaining)
	assert.Len(t, remaining, 1)
	assert.Equal(t, "❤️", remaining[0].Emoji)
}

func TestToggleReaction_MessageNotFound(t *testing.T) {
	SetupTestDB()
	createTestUser("a", "alice")

	c, w := testContext("a", "POST", "/api/messages/nope/reactions", `{"emoji":"👍"}`)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	ToggleReaction(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleReaction_EmojiRequired(t *testing.T) {
	SetupTestDB()
	createTestUser("a", "alice")
	createTestMessage("m1", "a", "hello", time.Now())

	c, w := testContext("a", "POST", "/api/messages/m1/reactions", `{}`)
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	ToggleReaction(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
