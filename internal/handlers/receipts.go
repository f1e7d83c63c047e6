package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

type ReadReceiptInput struct {
	LastReadMessageID string `json:"lastReadMessageId" binding:"required"`
}

// UpsertReadReceipt handles POST /api/read-receipts.
// One watermark row per user, insert-or-replace, so redundant calls from
// the client are harmless.
func UpsertReadReceipt(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var input ReadReceiptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lastReadMessageId required"})
		return
	}

	var msg models.Message
	if err := database.DB.Select("id").First(&msg, "id = ?", input.LastReadMessageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	receipt := models.ReadReceipt{
		UserID:            userID,
		LastReadMessageID: input.LastReadMessageID,
		UpdatedAt:         time.Now(),
	}
	if err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_message_id", "updated_at"}),
	}).Create(&receipt).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to upsert read receipt")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update read receipt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TypingPing handles POST /api/typing. An unconditional timestamp write;
// the client throttles its own pings.
func TypingPing(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	if err := database.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("typing_at", time.Now()).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to record typing ping")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record typing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
