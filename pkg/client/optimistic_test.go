package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

// fakeMutator fails every call listed in failOps
type fakeMutator struct {
	failOps map[string]bool
	calls   []string
}

func (m *fakeMutator) fail(op string) error {
	m.calls = append(m.calls, op)
	if m.failOps[op] {
		return errors.New(op + " rejected")
	}
	return nil
}

func (m *fakeMutator) ToggleReaction(ctx context.Context, messageID, emoji string) (string, error) {
	return "added", m.fail("reaction")
}

func (m *fakeMutator) TogglePin(ctx context.Context, messageID, action string) (string, error) {
	m.calls = append(m.calls, "pin:"+action)
	if m.failOps["pin"] {
		return "", errors.New("pin rejected")
	}
	return action + "ned", nil
}

func (m *fakeMutator) EditMessage(ctx context.Context, messageID, content string) error {
	return m.fail("edit")
}

func (m *fakeMutator) DeleteMessage(ctx context.Context, messageID string) error {
	return m.fail("delete")
}

func (m *fakeMutator) Vote(ctx context.Context, pollID, optionID string) error {
	return m.fail("vote")
}

func newOptimisticFixture(failOps map[string]bool, msgs ...models.FeedMessage) (*Optimistic, *SyncLoop, *fakeNotifier) {
	loop := NewSyncLoop(nil, &fakeNotifier{}, &fakeViewport{}, "self")
	loop.messages = msgs
	n := &fakeNotifier{}
	return NewOptimistic(&fakeMutator{failOps: failOps}, loop, n), loop, n
}

func localMessage(loop *SyncLoop, id string) models.FeedMessage {
	for _, m := range loop.Messages() {
		if m.ID == id {
			return m
		}
	}
	return models.FeedMessage{}
}

func TestOptimisticReaction_AppliesLocally(t *testing.T) {
	o, loop, n := newOptimisticFixture(nil, models.FeedMessage{ID: "m1"})

	o.ToggleReaction(context.Background(), "m1", "👍")
	got := localMessage(loop, "m1")
	assert.Equal(t, []models.ReactionGroup{{Emoji: "👍", Count: 1, Reacted: true}}, got.Reactions)
	assert.Empty(t, n.failedOps)
}

func TestOptimisticReaction_SecondToggleRemoves(t *testing.T) {
	o, loop, _ := newOptimisticFixture(nil, models.FeedMessage{
		ID:        "m1",
		Reactions: []models.ReactionGroup{{Emoji: "👍", Count: 1, Reacted: true}},
	})

	o.ToggleReaction(context.Background(), "m1", "👍")
	assert.Empty(t, localMessage(loop, "m1").Reactions)
}

func TestOptimisticReaction_JoinsExistingGroup(t *testing.T) {
	o, loop, _ := newOptimisticFixture(nil, models.FeedMessage{
		ID:        "m1",
		Reactions: []models.ReactionGroup{{Emoji: "👍", Count: 2, Reacted: false}},
	})

	o.ToggleReaction(context.Background(), "m1", "👍")
	got := localMessage(loop, "m1")
	assert.Equal(t, []models.ReactionGroup{{Emoji: "👍", Count: 3, Reacted: true}}, got.Reactions)
}

func TestOptimisticReaction_RevertOnFailure(t *testing.T) {
	before := []models.ReactionGroup{{Emoji: "❤️", Count: 1, Reacted: false}}
	o, loop, n := newOptimisticFixture(map[string]bool{"reaction": true}, models.FeedMessage{
		ID:        "m1",
		Reactions: append([]models.ReactionGroup(nil), before...),
	})

	o.ToggleReaction(context.Background(), "m1", "👍")
	assert.Equal(t, before, localMessage(loop, "m1").Reactions)
	assert.Equal(t, []string{"reaction"}, n.failedOps)
}

func TestOptimisticPin_DerivesExplicitAction(t *testing.T) {
	o, loop, _ := newOptimisticFixture(nil, models.FeedMessage{ID: "m1", IsPinned: true, PinnedByName: "alice"})

	o.TogglePin(context.Background(), "m1")
	got := localMessage(loop, "m1")
	assert.False(t, got.IsPinned)
	assert.Equal(t, "", got.PinnedByName)

	mut := o.api.(*fakeMutator)
	assert.Equal(t, []string{"pin:unpin"}, mut.calls)
}

func TestOptimisticPin_RevertOnFailure(t *testing.T) {
	o, loop, n := newOptimisticFixture(map[string]bool{"pin": true}, models.FeedMessage{ID: "m1", IsPinned: true, PinnedByName: "alice"})

	o.TogglePin(context.Background(), "m1")
	got := localMessage(loop, "m1")
	assert.True(t, got.IsPinned)
	assert.Equal(t, "alice", got.PinnedByName)
	assert.Equal(t, []string{"pin"}, n.failedOps)
}

func TestOptimisticEdit_PendingUntilConfirmed(t *testing.T) {
	o, loop, _ := newOptimisticFixture(nil, models.FeedMessage{ID: "m1", Content: "typo"})

	o.Edit(context.Background(), "m1", "fixed")
	got := localMessage(loop, "m1")
	assert.Equal(t, "fixed", got.Content)
	assert.False(t, got.Pending)
}

func TestOptimisticEdit_RevertOnFailure(t *testing.T) {
	o, loop, n := newOptimisticFixture(map[string]bool{"edit": true}, models.FeedMessage{ID: "m1", Content: "typo"})

	o.Edit(context.Background(), "m1", "fixed")
	got := localMessage(loop, "m1")
	assert.Equal(t, "typo", got.Content)
	assert.False(t, got.Pending)
	assert.Equal(t, []string{"edit"}, n.failedOps)
}

func TestOptimisticDelete_RevertOnFailure(t *testing.T) {
	o, loop, n := newOptimisticFixture(map[string]bool{"delete": true}, models.FeedMessage{ID: "m1", Content: "keep me"})

	o.Delete(context.Background(), "m1")
	got := localMessage(loop, "m1")
	assert.False(t, got.IsDeleted)
	assert.Equal(t, "keep me", got.Content)
	assert.Equal(t, []string{"delete"}, n.failedOps)
}

func TestOptimisticMutation_UnknownMessageIgnored(t *testing.T) {
	o, _, n := newOptimisticFixture(nil, models.FeedMessage{ID: "m1"})

	o.ToggleReaction(context.Background(), "missing", "👍")
	o.TogglePin(context.Background(), "missing")
	o.Edit(context.Background(), "missing", "x")

	mut := o.api.(*fakeMutator)
	assert.Empty(t, mut.calls)
	assert.Empty(t, n.failedOps)
}

func pollMessage() models.FeedMessage {
	return models.FeedMessage{
		ID: "m1",
		Poll: &models.PollView{
			ID:       "p1",
			Question: "Lunch?",
			Options: []models.PollOptionView{
				{ID: "o1", Text: "Pizza", Votes: 2},
				{ID: "o2", Text: "Sushi", Votes: 1},
			},
			TotalVotes: 3,
		},
	}
}

func TestApplyVoteDelta(t *testing.T) {
	// First vote: +1
	p := pollMessage().Poll
	applyVoteDelta(p, "o1")
	assert.Equal(t, 3, p.Options[0].Votes)
	assert.Equal(t, 4, p.TotalVotes)
	assert.Equal(t, "o1", p.MyOptionID)

	// Toggle off: -1
	applyVoteDelta(p, "o1")
	assert.Equal(t, 2, p.Options[0].Votes)
	assert.Equal(t, 3, p.TotalVotes)
	assert.Equal(t, "", p.MyOptionID)

	// Switch: net zero
	applyVoteDelta(p, "o1")
	applyVoteDelta(p, "o2")
	assert.Equal(t, 2, p.Options[0].Votes)
	assert.Equal(t, 2, p.Options[1].Votes)
	assert.Equal(t, 4, p.TotalVotes)
	assert.Equal(t, "o2", p.MyOptionID)
}

func TestOptimisticVote_RevertOnFailure(t *testing.T) {
	o, loop, n := newOptimisticFixture(map[string]bool{"vote": true}, pollMessage())

	o.Vote(context.Background(), "m1", "p1", "o1")
	got := localMessage(loop, "m1")
	assert.Equal(t, 2, got.Poll.Options[0].Votes)
	assert.Equal(t, 3, got.Poll.TotalVotes)
	assert.Equal(t, "", got.Poll.MyOptionID)
	assert.Equal(t, []string{"vote"}, n.failedOps)
}

func TestOptimisticVote_PollIDMismatchIgnored(t *testing.T) {
	o, loop, _ := newOptimisticFixture(nil, pollMessage())

	o.Vote(context.Background(), "m1", "other-poll", "o1")
	assert.Equal(t, 3, localMessage(loop, "m1").Poll.TotalVotes)

	mut := o.api.(*fakeMutator)
	assert.Empty(t, mut.calls)
}
