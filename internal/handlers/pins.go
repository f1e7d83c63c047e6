package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

type PinInput struct {
	// "pin" or "unpin". Optional: when absent the current state is
	// inverted. Clients should always send it; the explicit form is what
	// keeps two interleaved pin requests from flapping.
	Action string `json:"action"`
}

// TogglePin handles POST /api/messages/:id/pin. Any authenticated user
// may pin or unpin.
func TogglePin(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var input PinInput
	// Body is optional for the legacy toggle form
	_ = c.ShouldBindJSON(&input)

	if input.Action != "" && input.Action != "pin" && input.Action != "unpin" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action must be \"pin\" or \"unpin\""})
		return
	}

	var msg models.Message
	if err := database.DB.First(&msg, "id = ?", messageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	wantPinned := msg.PinnedAt == nil
	if input.Action == "pin" {
		wantPinned = true
	} else if input.Action == "unpin" {
		wantPinned = false
	}

	// No-op when the requested state already holds; return it without a write
	if wantPinned == (msg.PinnedAt != nil) {
		action := "unpinned"
		if wantPinned {
			action = "pinned"
		}
		c.JSON(http.StatusOK, gin.H{"action": action})
		return
	}

	updates := map[string]interface{}{
		"pinned_at":    nil,
		"pinned_by_id": nil,
	}
	action := "unpinned"
	if wantPinned {
		updates["pinned_at"] = time.Now()
		updates["pinned_by_id"] = userID
		action = "pinned"
	}

	if err := database.DB.Model(&msg).Updates(updates).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to toggle pin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle pin"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": action})
}

// GetPinnedMessages handles GET /api/messages/pinned
func GetPinnedMessages(c *gin.Context) {
	var pinned []models.Message
	if err := database.DB.Preload("User").
		Where("pinned_at IS NOT NULL AND deleted_at IS NULL").
		Order("pinned_at DESC").
		Find(&pinned).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pinned messages"})
		return
	}

	out := make([]gin.H, 0, len(pinned))
	for _, m := range pinned {
		entry := gin.H{
			"id":          m.ID,
			"content":     m.Content,
			"createdAt":   m.CreatedAt,
			"userId":      m.UserID,
			"displayName": m.User.DisplayName,
			"pinnedAt":    m.PinnedAt,
		}
		if m.PinnedByID != nil {
			entry["pinnedByName"] = lookupDisplayName(database.DB, *m.PinnedByID)
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"pinned": out})
}
