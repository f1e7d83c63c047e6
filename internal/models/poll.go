package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Poll is the enrichment behind a sentinel message. The question and
// option list are immutable after creation; only votes change.
type Poll struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	MessageID string    `gorm:"uniqueIndex;type:text;not null" json:"messageId"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	CreatedAt time.Time `json:"createdAt"`

	Options []PollOption `gorm:"foreignKey:PollID" json:"options"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

type PollOption struct {
	ID       string `gorm:"primaryKey;type:text" json:"id"`
	PollID   string `gorm:"index;type:text;not null" json:"pollId"`
	Position int    `gorm:"not null" json:"position"`
	Text     string `gorm:"type:text;not null" json:"text"`
}

func (o *PollOption) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return
}

// PollVote holds one active vote. The vote handler retracts any previous
// vote inside the same transaction that inserts the new one; the unique
// index on (poll_id, user_id) backs that up.
type PollVote struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	PollID    string    `gorm:"index:idx_one_vote_per_user,unique;type:text;not null" json:"pollId"`
	UserID    string    `gorm:"index:idx_one_vote_per_user,unique;type:text;not null" json:"userId"`
	OptionID  string    `gorm:"index;type:text;not null" json:"optionId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return
}
