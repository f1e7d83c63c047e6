package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

type ReactionInput struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ToggleReaction handles POST /api/messages/:id/reactions.
//
// Lookup-then-act without a transaction: a racing double click produces
// at most one extra toggle, which self-corrects on the next click. Not
// worth serializing.
func ToggleReaction(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var input ReactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Emoji required"})
		return
	}

	var msg models.Message
	if err := database.DB.Select("id").First(&msg, "id = ?", messageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	var existing models.Reaction
	err := database.DB.Where(
		"message_id = ? AND user_id = ? AND emoji = ?",
		messageID, userID, input.Emoji,
	).First(&existing).Error

	if err == nil {
		if err := database.DB.Delete(&existing).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to remove reaction")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle reaction"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"action": "removed"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.Error().Err(err).Msg("Failed to look up reaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle reaction"})
		return
	}

	reaction := models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     input.Emoji,
	}
	if err := database.DB.Create(&reaction).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to add reaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle reaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"action": "added"})
}
