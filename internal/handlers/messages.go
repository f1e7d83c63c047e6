package handlers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/internal/services"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/utils"
)

type SendMessageInput struct {
	Content   string  `json:"content"`
	FileName  string  `json:"fileName"`
	FileType  string  `json:"fileType"`
	FileSize  int64   `json:"fileSize"`
	FilePath  string  `json:"filePath"`
	ReplyToID *string `json:"replyToId"`
}

// SendMessage handles POST /api/messages.
// Responds with the fully-enriched message so the client can splice it
// into its local array without waiting for the next poll.
func SendMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}
	if utf8.RuneCountInString(content) > models.MaxContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message exceeds maximum length"})
		return
	}

	if input.ReplyToID != nil {
		var ref models.Message
		if err := database.DB.Select("id").First(&ref, "id = ?", *input.ReplyToID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message being replied to no longer exists"})
			return
		}
	}

	// Best-effort correction pass; falls back to the typed text on any
	// error or timeout. A corrected body that no longer fits the length
	// cap is discarded the same way.
	if content != "" {
		corrected := services.CorrectOrOriginal(c.Request.Context(), content)
		if utf8.RuneCountInString(corrected) <= models.MaxContentLength {
			content = corrected
		}
	}

	msg := models.Message{
		UserID:         userID,
		Content:        content,
		AttachmentName: input.FileName,
		AttachmentType: input.FileType,
		AttachmentSize: input.FileSize,
		AttachmentPath: input.FilePath,
		ReplyToID:      input.ReplyToID,
		CreatedAt:      time.Now(),
	}

	if err := database.DB.Create(&msg).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to create message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	// Sending counts as having stopped typing
	database.DB.Model(&models.User{}).Where("id = ?", userID).Update("typing_at", nil)

	// Link previews off the critical path; the response never waits on
	// remote fetches
	if content != "" {
		go services.FetchAndStorePreviews(msg.ID, content)
	}

	enriched, err := enrichOne(database.DB, msg.ID, userID)
	if err != nil {
		logger.Error().Err(err).Str("messageId", msg.ID).Msg("Failed to enrich sent message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, enriched)
}

type EditMessageInput struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage handles PATCH /api/messages/:id.
// Author-only, not after deletion, and only within the edit window.
func EditMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var input EditMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}
	if utf8.RuneCountInString(content) > models.MaxContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message exceeds maximum length"})
		return
	}

	var msg models.Message
	if err := database.DB.First(&msg, "id = ?", messageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	if msg.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own messages"})
		return
	}
	if msg.DeletedAt != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot edit a deleted message"})
		return
	}
	if time.Since(msg.CreatedAt) > models.EditWindow {
		c.JSON(http.StatusForbidden, gin.H{"error": "Edit window has expired"})
		return
	}

	now := time.Now()
	if err := database.DB.Model(&msg).Updates(map[string]interface{}{
		"content":   content,
		"edited_at": now,
	}).Error; err != nil {
		logger.Error().Err(err).Msg("Failed to edit message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to edit message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": msg.ID, "content": content, "editedAt": now})
}

// DeleteMessage handles DELETE /api/messages/:id.
// A soft delete: row and metadata persist for referential integrity
// (replies, reactions); only the content is hidden.
func DeleteMessage(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	messageID := c.Param("id")

	var msg models.Message
	if err := database.DB.First(&msg, "id = ?", messageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}

	if msg.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own messages"})
		return
	}

	if msg.DeletedAt == nil {
		if err := database.DB.Model(&msg).Update("deleted_at", time.Now()).Error; err != nil {
			logger.Error().Err(err).Msg("Failed to delete message")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SearchMessages handles GET /api/messages/search?q=...
func SearchMessages(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	// LOWER + explicit ESCAPE keeps the match case-insensitive and the
	// escaped wildcards literal on both postgres and sqlite
	var matches []models.Message
	if err := database.DB.Preload("User").
		Where(`deleted_at IS NULL AND LOWER(content) LIKE LOWER(?) ESCAPE '\'`, utils.SanitizeSearchQuery(query)).
		Order("created_at DESC, id DESC").
		Limit(FeedLimit).
		Find(&matches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	results := make([]gin.H, 0, len(matches))
	for _, m := range matches {
		results = append(results, gin.H{
			"id":          m.ID,
			"content":     m.Content,
			"createdAt":   m.CreatedAt,
			"userId":      m.UserID,
			"displayName": m.User.DisplayName,
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// enrichOne runs the feed enrichment for a single message id
func enrichOne(db *gorm.DB, messageID, userID string) (*models.FeedMessage, error) {
	resp, err := AssembleFeed(db, userID, time.Now())
	if err != nil {
		return nil, err
	}
	for i := range resp.Messages {
		if resp.Messages[i].ID == messageID {
			return &resp.Messages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
