package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
)

const (
	minPollOptions = 2
	maxPollOptions = 6
)

type CreatePollInput struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required"`
}

// CreatePoll handles POST /api/polls. The poll, its options and its
// sentinel message are created in one transaction so a poll can never
// exist without a message or vice versa.
func CreatePoll(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var input CreatePollInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question and options required"})
		return
	}

	question := strings.TrimSpace(input.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Question cannot be empty"})
		return
	}

	options := make([]string, 0, len(input.Options))
	for _, o := range input.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	if len(options) < minPollOptions || len(options) > maxPollOptions {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Polls need between 2 and 6 options"})
		return
	}

	var poll models.Poll
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		msg := models.Message{UserID: userID, CreatedAt: time.Now()}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		poll = models.Poll{MessageID: msg.ID, Question: question}
		if err := tx.Create(&poll).Error; err != nil {
			return err
		}

		for i, text := range options {
			opt := models.PollOption{PollID: poll.ID, Position: i, Text: text}
			if err := tx.Create(&opt).Error; err != nil {
				return err
			}
		}

		return tx.Model(&msg).Update("content", models.EncodePollRef(poll.ID)).Error
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create poll")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create poll"})
		return
	}

	enriched, err := enrichOne(database.DB, poll.MessageID, userID)
	if err != nil {
		logger.Error().Err(err).Str("pollId", poll.ID).Msg("Failed to enrich poll message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create poll"})
		return
	}
	c.JSON(http.StatusCreated, enriched)
}

type VoteInput struct {
	OptionID string `json:"optionId" binding:"required"`
}

// VotePoll handles POST /api/polls/:id/vote.
//
// The whole retract-then-insert runs inside one transaction, which is
// what enforces the invariant of at most one active vote per user per
// poll even when two votes race each other.
func VotePoll(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	pollID := c.Param("id")

	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Option required"})
		return
	}

	var option models.PollOption
	if err := database.DB.First(&option, "id = ? AND poll_id = ?", input.OptionID, pollID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll or option not found"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.PollVote
		err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).First(&existing).Error

		switch {
		case err == nil && existing.OptionID == input.OptionID:
			// Same option again: retract (toggle off)
			return tx.Delete(&existing).Error
		case err == nil:
			// Switching options: retract the old vote first
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case err != gorm.ErrRecordNotFound:
			return err
		}

		vote := models.PollVote{PollID: pollID, UserID: userID, OptionID: input.OptionID}
		return tx.Create(&vote).Error
	})
	if err != nil {
		logger.Error().Err(err).Str("pollId", pollID).Msg("Failed to record vote")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
