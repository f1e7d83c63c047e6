package client

import (
	"context"

	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

// Mutator is the slice of the API the optimistic layer needs
type Mutator interface {
	ToggleReaction(ctx context.Context, messageID, emoji string) (string, error)
	TogglePin(ctx context.Context, messageID, action string) (string, error)
	EditMessage(ctx context.Context, messageID, content string) error
	DeleteMessage(ctx context.Context, messageID string) error
	Vote(ctx context.Context, pollID, optionID string) error
}

// Optimistic applies each mutation to local state first, then issues the
// request. Success leaves the optimistic state in place for the next poll
// to confirm; failure restores the exact prior sub-state (snapshotted,
// not recomputed) and surfaces a notice.
//
// Methods block on the network call; callers wanting fire-and-forget run
// them in a goroutine. The local apply happens before the first await
// point either way.
type Optimistic struct {
	api      Mutator
	loop     *SyncLoop
	notifier Notifier
}

func NewOptimistic(api Mutator, loop *SyncLoop, notifier Notifier) *Optimistic {
	return &Optimistic{api: api, loop: loop, notifier: notifier}
}

// updateMessage runs fn against the local copy of one message under the
// loop's lock. Returns false when the id is not in the local array.
func (o *Optimistic) updateMessage(id string, fn func(*models.FeedMessage)) bool {
	o.loop.mu.Lock()
	defer o.loop.mu.Unlock()
	for i := range o.loop.messages {
		if o.loop.messages[i].ID == id {
			fn(&o.loop.messages[i])
			return true
		}
	}
	return false
}

// ToggleReaction flips the caller's reaction locally, then confirms it
func (o *Optimistic) ToggleReaction(ctx context.Context, messageID, emoji string) {
	var snapshot []models.ReactionGroup
	ok := o.updateMessage(messageID, func(m *models.FeedMessage) {
		snapshot = cloneReactions(m.Reactions)
		m.Reactions = toggleReactionLocal(m.Reactions, emoji)
	})
	if !ok {
		return
	}

	if _, err := o.api.ToggleReaction(ctx, messageID, emoji); err != nil {
		o.updateMessage(messageID, func(m *models.FeedMessage) {
			m.Reactions = snapshot
		})
		o.notifier.MutationFailed("reaction", err)
	}
}

func cloneReactions(groups []models.ReactionGroup) []models.ReactionGroup {
	return append([]models.ReactionGroup(nil), groups...)
}

func toggleReactionLocal(groups []models.ReactionGroup, emoji string) []models.ReactionGroup {
	out := cloneReactions(groups)
	for i, g := range out {
		if g.Emoji != emoji {
			continue
		}
		if g.Reacted {
			out[i].Count--
			out[i].Reacted = false
			if out[i].Count <= 0 {
				return append(out[:i], out[i+1:]...)
			}
		} else {
			out[i].Count++
			out[i].Reacted = true
		}
		return out
	}
	return append(out, models.ReactionGroup{Emoji: emoji, Count: 1, Reacted: true})
}

// TogglePin derives an explicit pin/unpin action from local state, so
// the server never has to guess which way a racing toggle meant to go
func (o *Optimistic) TogglePin(ctx context.Context, messageID string) {
	var wasPinned bool
	var prevByName string
	ok := o.updateMessage(messageID, func(m *models.FeedMessage) {
		wasPinned = m.IsPinned
		prevByName = m.PinnedByName
		m.IsPinned = !m.IsPinned
		if !m.IsPinned {
			m.PinnedByName = ""
		}
	})
	if !ok {
		return
	}

	action := "pin"
	if wasPinned {
		action = "unpin"
	}

	if _, err := o.api.TogglePin(ctx, messageID, action); err != nil {
		o.updateMessage(messageID, func(m *models.FeedMessage) {
			m.IsPinned = wasPinned
			m.PinnedByName = prevByName
		})
		o.notifier.MutationFailed("pin", err)
	}
}

// Edit shows the new content immediately, flagged pending until the
// server accepts it
func (o *Optimistic) Edit(ctx context.Context, messageID, content string) {
	var prevContent string
	var prevPending bool
	ok := o.updateMessage(messageID, func(m *models.FeedMessage) {
		prevContent = m.Content
		prevPending = m.Pending
		m.Content = content
		m.Pending = true
	})
	if !ok {
		return
	}

	if err := o.api.EditMessage(ctx, messageID, content); err != nil {
		o.updateMessage(messageID, func(m *models.FeedMessage) {
			m.Content = prevContent
			m.Pending = prevPending
		})
		o.notifier.MutationFailed("edit", err)
		return
	}

	o.updateMessage(messageID, func(m *models.FeedMessage) {
		m.Pending = false
	})
}

// Delete marks the message deleted before the server confirms; a failed
// delete brings it back
func (o *Optimistic) Delete(ctx context.Context, messageID string) {
	var prevContent string
	var prevDeleted bool
	ok := o.updateMessage(messageID, func(m *models.FeedMessage) {
		prevContent = m.Content
		prevDeleted = m.IsDeleted
		m.IsDeleted = true
		m.Content = ""
	})
	if !ok {
		return
	}

	if err := o.api.DeleteMessage(ctx, messageID); err != nil {
		o.updateMessage(messageID, func(m *models.FeedMessage) {
			m.Content = prevContent
			m.IsDeleted = prevDeleted
		})
		o.notifier.MutationFailed("delete", err)
	}
}

// Vote applies the three-way vote delta locally, then confirms it.
// Toggling off shifts the total by -1, a first vote by +1, and moving a
// vote between options by 0. The arithmetic must match the server
// exactly or totals drift until the next poll.
func (o *Optimistic) Vote(ctx context.Context, messageID, pollID, optionID string) {
	var snapshot *models.PollView
	ok := o.updateMessage(messageID, func(m *models.FeedMessage) {
		if m.Poll == nil || m.Poll.ID != pollID {
			return
		}
		snapshot = clonePoll(m.Poll)
		applyVoteDelta(m.Poll, optionID)
	})
	if !ok || snapshot == nil {
		return
	}

	if err := o.api.Vote(ctx, pollID, optionID); err != nil {
		o.updateMessage(messageID, func(m *models.FeedMessage) {
			m.Poll = snapshot
		})
		o.notifier.MutationFailed("vote", err)
	}
}

func clonePoll(p *models.PollView) *models.PollView {
	out := *p
	out.Options = make([]models.PollOptionView, len(p.Options))
	copy(out.Options, p.Options)
	for i := range out.Options {
		out.Options[i].Voters = append([]string(nil), p.Options[i].Voters...)
	}
	return &out
}

// applyVoteDelta mutates a poll view for one click on optionID
func applyVoteDelta(p *models.PollView, optionID string) {
	adjust := func(id string, delta int) {
		for i := range p.Options {
			if p.Options[i].ID == id {
				p.Options[i].Votes += delta
				return
			}
		}
	}

	switch {
	case p.MyOptionID == optionID:
		// Toggle off
		adjust(optionID, -1)
		p.TotalVotes--
		p.MyOptionID = ""
	case p.MyOptionID == "":
		// First vote on this poll
		adjust(optionID, 1)
		p.TotalVotes++
		p.MyOptionID = optionID
	default:
		// Switch: retract old, cast new, net zero
		adjust(p.MyOptionID, -1)
		adjust(optionID, 1)
		p.MyOptionID = optionID
	}
}
