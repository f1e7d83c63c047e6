package models

import "time"

// Wire types for the polled feed. These are shared between the server's
// feed assembler and the polling client, so both sides agree on the
// snapshot shape byte for byte.

type FeedResponse struct {
	Messages    []FeedMessage `json:"messages"`
	OnlineCount int           `json:"onlineCount"`
	OnlineUsers []string      `json:"onlineUsers"`
	TypingUsers []string      `json:"typingUsers"`
}

// LatestID returns the id of the newest message in the snapshot, or ""
// for an empty feed. The client keys its whole reconciliation step off
// this value.
func (f *FeedResponse) LatestID() string {
	if len(f.Messages) == 0 {
		return ""
	}
	return f.Messages[len(f.Messages)-1].ID
}

type FeedMessage struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarID    int       `json:"avatarId"`

	AttachmentName string `json:"fileName,omitempty"`
	AttachmentType string `json:"fileType,omitempty"`
	AttachmentSize int64  `json:"fileSize,omitempty"`
	AttachmentPath string `json:"filePath,omitempty"`

	ReplyToID        *string `json:"replyToId,omitempty"`
	ReplyContent     string  `json:"replyContent,omitempty"`
	ReplyDisplayName string  `json:"replyDisplayName,omitempty"`

	EditedAt  *time.Time `json:"editedAt,omitempty"`
	IsDeleted bool       `json:"isDeleted"`

	IsPinned     bool   `json:"isPinned"`
	PinnedByName string `json:"pinnedByName,omitempty"`

	Reactions    []ReactionGroup `json:"reactions"`
	ReadBy       []ReadByUser    `json:"readBy"`
	LinkPreviews []LinkPreview   `json:"linkPreviews,omitempty"`
	Poll         *PollView       `json:"poll,omitempty"`

	// Pending is client-local: set while an optimistic edit is in flight.
	// Never serialized.
	Pending bool `json:"-"`
}

// ReactionGroup is the aggregated per-emoji view: count plus whether the
// requesting user is among the reactors
type ReactionGroup struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted"`
}

type ReadByUser struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarID    int    `json:"avatarId"`
}

// PollView is the enriched poll block attached to a sentinel message
type PollView struct {
	ID         string           `json:"id"`
	Question   string           `json:"question"`
	Options    []PollOptionView `json:"options"`
	TotalVotes int              `json:"totalVotes"`
	// MyOptionID is the requesting user's active vote, "" if none
	MyOptionID string `json:"myOptionId,omitempty"`
}

type PollOptionView struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Votes  int      `json:"votes"`
	Voters []string `json:"voters,omitempty"`
}
