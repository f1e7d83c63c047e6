package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// MaxContentLength caps message bodies (in runes, not bytes)
	MaxContentLength = 2000

	// EditWindow is how long an author may edit a message after sending it
	EditWindow = 15 * time.Minute
)

// Message is a row in the single shared room.
//
// DeletedAt is an explicit column, NOT gorm.DeletedAt: soft-deleted
// messages must stay visible in the feed (content blanked) so replies and
// reactions pointing at them keep resolving. Deletion is a display flag,
// not row removal.
type Message struct {
	ID      string `gorm:"primaryKey;type:text" json:"id"`
	UserID  string `gorm:"index;type:text;not null" json:"userId"`
	Content string `gorm:"type:text" json:"content"`

	// Attachment descriptor only; blob storage lives elsewhere
	AttachmentName string `json:"fileName,omitempty"`
	AttachmentType string `json:"fileType,omitempty"`
	AttachmentSize int64  `json:"fileSize,omitempty"`
	AttachmentPath string `json:"filePath,omitempty"`

	ReplyToID *string `gorm:"type:text;index" json:"replyToId,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
	DeletedAt *time.Time `json:"-"`

	// Pin state lives on the message itself; any authenticated user may toggle it
	PinnedAt   *time.Time `json:"-"`
	PinnedByID *string    `gorm:"type:text" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// HasAttachment reports whether the message carries an attachment descriptor
func (m *Message) HasAttachment() bool {
	return m.AttachmentPath != ""
}

// Before reports whether m sorts before other in feed order.
// Ordering key is (createdAt, id); the id comparison breaks creation-time
// ties deterministically.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// Reaction stores one emoji reaction on a message.
// UNIQUE(message_id, user_id, emoji): presence is binary per triple, toggled.
type Reaction struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	MessageID string    `gorm:"index:idx_unique_reaction,unique;type:text;not null" json:"messageId"`
	UserID    string    `gorm:"index:idx_unique_reaction,unique;type:text;not null" json:"userId"`
	Emoji     string    `gorm:"index:idx_unique_reaction,unique;type:text;not null" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`

	Message Message `gorm:"foreignKey:MessageID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// ReadReceipt is a single watermark per user, not a per-message set.
// The feed derives "read by" lists by comparing every user's watermark
// position against each message's position in feed order.
type ReadReceipt struct {
	UserID            string    `gorm:"primaryKey;type:text" json:"userId"`
	LastReadMessageID string    `gorm:"type:text;not null" json:"lastReadMessageId"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// LinkPreview holds fetched metadata for a URL found in a message body
type LinkPreview struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	MessageID   string    `gorm:"index;type:text;not null" json:"-"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	SiteName    string    `json:"siteName"`
	CreatedAt   time.Time `json:"-"`
}

func (p *LinkPreview) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// Poll sentinel encoding. A poll message's body is a marker referencing
// the poll row rather than literal display text.
const pollSentinelPrefix = "[poll:"

// EncodePollRef builds the sentinel body for a poll message
func EncodePollRef(pollID string) string {
	return fmt.Sprintf("%s%s]", pollSentinelPrefix, pollID)
}

// ParsePollRef extracts the poll id from a sentinel body, if it is one
func ParsePollRef(content string) (string, bool) {
	if !strings.HasPrefix(content, pollSentinelPrefix) || !strings.HasSuffix(content, "]") {
		return "", false
	}
	id := content[len(pollSentinelPrefix) : len(content)-1]
	if id == "" {
		return "", false
	}
	return id, true
}
