package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Presence windows. Both are derived lazily from timestamps on the user
// row rather than stored as first-class state, so a crashed client simply
// ages out of the online set.
const (
	OnlineWindow = 30 * time.Second
	TypingWindow = 3 * time.Second
)

type User struct {
	ID          string `gorm:"primaryKey;type:text" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `json:"displayName"`
	AvatarID    int    `gorm:"default:1" json:"avatarId"`
	Password    string `json:"-"`

	// Presence signals. LastActiveAt is bumped on every feed poll,
	// TypingAt on typing pings and cleared on send.
	LastActiveAt *time.Time `json:"-"`
	TypingAt     *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return
}

// IsOnline reports whether the user has polled the feed recently
func (u *User) IsOnline(now time.Time) bool {
	return u.LastActiveAt != nil && now.Sub(*u.LastActiveAt) <= OnlineWindow
}

// IsTyping reports whether the user has sent a typing ping recently
func (u *User) IsTyping(now time.Time) bool {
	return u.TypingAt != nil && now.Sub(*u.TypingAt) <= TypingWindow
}
