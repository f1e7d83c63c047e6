package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aidanmarr1/dt-chat-sub000/internal/database"
	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/logger"
	"github.com/aidanmarr1/dt-chat-sub000/pkg/utils"
)

const (
	// FeedLimit caps the page; the feed is a suffix of the total order,
	// not the whole history
	FeedLimit = 50

	replySnippetLength = 100
)

// GetFeed handles GET /api/messages, the poll endpoint.
// Every call doubles as a presence signal for the caller.
func GetFeed(c *gin.Context) {
	userID := c.MustGet("userId").(string)
	now := time.Now()

	// Presence bump + lazy expiry of stale typing markers
	database.DB.Model(&models.User{}).Where("id = ?", userID).Update("last_active_at", now)
	database.DB.Model(&models.User{}).
		Where("typing_at IS NOT NULL AND typing_at < ?", now.Add(-models.TypingWindow)).
		Update("typing_at", nil)

	resp, err := AssembleFeed(database.DB, userID, now)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble feed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// orderKey is a message's position in the total feed order
type orderKey struct {
	createdAt time.Time
	id        string
}

func (k orderKey) atOrAfter(other orderKey) bool {
	if !k.createdAt.Equal(other.createdAt) {
		return k.createdAt.After(other.createdAt)
	}
	return k.id >= other.id
}

// AssembleFeed reconstructs the fully-enriched snapshot of the latest
// FeedLimit messages for one requesting user.
//
// Auxiliary enrichment (reply quotes, previews, polls) is best-effort:
// a failure drops that enrichment for that message, never the whole feed.
func AssembleFeed(db *gorm.DB, userID string, now time.Time) (*models.FeedResponse, error) {
	var page []models.Message
	if err := db.Preload("User").
		Order("created_at DESC, id DESC").
		Limit(FeedLimit).
		Find(&page).Error; err != nil {
		return nil, err
	}

	// Newest-first for the LIMIT, re-reversed to chronological
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}

	ids := make([]string, len(page))
	for i, m := range page {
		ids[i] = m.ID
	}

	reactions := loadReactions(db, ids)
	previews := loadPreviews(db, ids)
	replies := loadReplyTargets(db, page)
	watermarks, readers := loadWatermarks(db)

	resp := &models.FeedResponse{Messages: make([]models.FeedMessage, 0, len(page))}

	for _, m := range page {
		fm := models.FeedMessage{
			ID:             m.ID,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
			UserID:         m.UserID,
			DisplayName:    m.User.DisplayName,
			AvatarID:       m.User.AvatarID,
			AttachmentName: m.AttachmentName,
			AttachmentType: m.AttachmentType,
			AttachmentSize: m.AttachmentSize,
			AttachmentPath: m.AttachmentPath,
			ReplyToID:      m.ReplyToID,
			EditedAt:       m.EditedAt,
			Reactions:      groupReactions(reactions[m.ID], userID),
			ReadBy:         []models.ReadByUser{},
			LinkPreviews:   previews[m.ID],
		}

		if m.DeletedAt != nil {
			fm.IsDeleted = true
			fm.Content = ""
		}

		if m.PinnedAt != nil {
			fm.IsPinned = true
			if m.PinnedByID != nil {
				fm.PinnedByName = lookupDisplayName(db, *m.PinnedByID)
			}
		}

		if m.ReplyToID != nil {
			if ref, ok := replies[*m.ReplyToID]; ok {
				fm.ReplyDisplayName = ref.User.DisplayName
				if ref.DeletedAt == nil {
					fm.ReplyContent = utils.TruncateString(ref.Content, replySnippetLength)
				}
			}
		}

		// Read-by: every other user whose watermark is at or after this
		// message in the FULL order, not just within the page. Sorted by
		// reader id so identical polls serialize identically.
		msgKey := orderKey{createdAt: m.CreatedAt, id: m.ID}
		for readerID, wk := range watermarks {
			if readerID == userID {
				continue
			}
			if wk.atOrAfter(msgKey) {
				fm.ReadBy = append(fm.ReadBy, readers[readerID])
			}
		}
		sort.Slice(fm.ReadBy, func(i, j int) bool {
			return fm.ReadBy[i].UserID < fm.ReadBy[j].UserID
		})

		if pollID, ok := models.ParsePollRef(m.Content); ok && m.DeletedAt == nil {
			poll, err := assemblePoll(db, pollID, userID)
			if err != nil {
				logger.Warn().Err(err).Str("pollId", pollID).Msg("Poll enrichment skipped")
			} else {
				fm.Poll = poll
				fm.Content = ""
			}
		}

		resp.Messages = append(resp.Messages, fm)
	}

	fillPresence(db, resp, userID, now)
	return resp, nil
}

// loadReactions returns each message's reactions in creation order so
// grouping preserves first-seen emoji order
func loadReactions(db *gorm.DB, ids []string) map[string][]models.Reaction {
	out := make(map[string][]models.Reaction)
	if len(ids) == 0 {
		return out
	}
	var rows []models.Reaction
	if err := db.Where("message_id IN ?", ids).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		logger.Warn().Err(err).Msg("Reaction enrichment skipped")
		return out
	}
	for _, r := range rows {
		out[r.MessageID] = append(out[r.MessageID], r)
	}
	return out
}

func groupReactions(rows []models.Reaction, userID string) []models.ReactionGroup {
	groups := []models.ReactionGroup{}
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, models.ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		if r.UserID == userID {
			groups[i].Reacted = true
		}
	}
	return groups
}

func loadPreviews(db *gorm.DB, ids []string) map[string][]models.LinkPreview {
	out := make(map[string][]models.LinkPreview)
	if len(ids) == 0 {
		return out
	}
	var rows []models.LinkPreview
	if err := db.Where("message_id IN ?", ids).Order("created_at ASC").Find(&rows).Error; err != nil {
		logger.Warn().Err(err).Msg("Link preview enrichment skipped")
		return out
	}
	for _, p := range rows {
		out[p.MessageID] = append(out[p.MessageID], p)
	}
	return out
}

// loadReplyTargets resolves referenced messages (which may fall outside
// the current page) with their authors
func loadReplyTargets(db *gorm.DB, page []models.Message) map[string]models.Message {
	out := make(map[string]models.Message)
	var refIDs []string
	for _, m := range page {
		if m.ReplyToID != nil {
			refIDs = append(refIDs, *m.ReplyToID)
		}
	}
	if len(refIDs) == 0 {
		return out
	}
	var refs []models.Message
	if err := db.Preload("User").Where("id IN ?", refIDs).Find(&refs).Error; err != nil {
		logger.Warn().Err(err).Msg("Reply enrichment skipped")
		return out
	}
	for _, r := range refs {
		out[r.ID] = r
	}
	return out
}

// loadWatermarks maps every user's read receipt to that message's feed
// position, plus the reader info needed for the read-by lists
func loadWatermarks(db *gorm.DB) (map[string]orderKey, map[string]models.ReadByUser) {
	keys := make(map[string]orderKey)
	readers := make(map[string]models.ReadByUser)

	var receipts []models.ReadReceipt
	if err := db.Find(&receipts).Error; err != nil {
		logger.Warn().Err(err).Msg("Read receipt enrichment skipped")
		return keys, readers
	}
	if len(receipts) == 0 {
		return keys, readers
	}

	msgIDs := make([]string, 0, len(receipts))
	userIDs := make([]string, 0, len(receipts))
	for _, r := range receipts {
		msgIDs = append(msgIDs, r.LastReadMessageID)
		userIDs = append(userIDs, r.UserID)
	}

	var marks []models.Message
	if err := db.Select("id", "created_at").Where("id IN ?", msgIDs).Find(&marks).Error; err != nil {
		logger.Warn().Err(err).Msg("Read receipt enrichment skipped")
		return keys, readers
	}
	markByID := make(map[string]orderKey, len(marks))
	for _, m := range marks {
		markByID[m.ID] = orderKey{createdAt: m.CreatedAt, id: m.ID}
	}

	var users []models.User
	if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		logger.Warn().Err(err).Msg("Read receipt enrichment skipped")
		return keys, readers
	}
	userByID := make(map[string]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	for _, r := range receipts {
		mark, ok := markByID[r.LastReadMessageID]
		if !ok {
			// Stale watermark pointing at a purged message
			continue
		}
		u, ok := userByID[r.UserID]
		if !ok {
			continue
		}
		keys[r.UserID] = mark
		readers[r.UserID] = models.ReadByUser{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			AvatarID:    u.AvatarID,
		}
	}
	return keys, readers
}

// assemblePoll builds the enriched poll block for a sentinel message
func assemblePoll(db *gorm.DB, pollID, userID string) (*models.PollView, error) {
	var poll models.Poll
	if err := db.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&poll, "id = ?", pollID).Error; err != nil {
		return nil, err
	}

	var votes []models.PollVote
	if err := db.Where("poll_id = ?", pollID).Order("created_at ASC").Find(&votes).Error; err != nil {
		return nil, err
	}

	voterIDs := make([]string, 0, len(votes))
	for _, v := range votes {
		voterIDs = append(voterIDs, v.UserID)
	}
	names := make(map[string]string, len(voterIDs))
	if len(voterIDs) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", voterIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.DisplayName
		}
	}

	view := &models.PollView{
		ID:       poll.ID,
		Question: poll.Question,
		Options:  make([]models.PollOptionView, 0, len(poll.Options)),
	}

	byOption := make(map[string][]models.PollVote)
	for _, v := range votes {
		byOption[v.OptionID] = append(byOption[v.OptionID], v)
		if v.UserID == userID {
			view.MyOptionID = v.OptionID
		}
	}

	for _, opt := range poll.Options {
		ov := models.PollOptionView{ID: opt.ID, Text: opt.Text}
		for _, v := range byOption[opt.ID] {
			ov.Votes++
			if name, ok := names[v.UserID]; ok {
				ov.Voters = append(ov.Voters, name)
			}
		}
		view.TotalVotes += ov.Votes
		view.Options = append(view.Options, ov)
	}
	return view, nil
}

// fillPresence computes the online and typing sets. The typing set never
// includes the caller.
func fillPresence(db *gorm.DB, resp *models.FeedResponse, userID string, now time.Time) {
	resp.OnlineUsers = []string{}
	resp.TypingUsers = []string{}

	var users []models.User
	if err := db.Where("last_active_at > ?", now.Add(-models.OnlineWindow)).Find(&users).Error; err != nil {
		logger.Warn().Err(err).Msg("Presence enrichment skipped")
		return
	}
	for _, u := range users {
		resp.OnlineUsers = append(resp.OnlineUsers, u.DisplayName)
		if u.ID != userID && u.IsTyping(now) {
			resp.TypingUsers = append(resp.TypingUsers, u.DisplayName)
		}
	}
	resp.OnlineCount = len(resp.OnlineUsers)
}

func lookupDisplayName(db *gorm.DB, userID string) string {
	var u models.User
	if err := db.Select("display_name").First(&u, "id = ?", userID).Error; err != nil {
		return ""
	}
	return u.DisplayName
}
