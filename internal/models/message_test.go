package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollRefRoundTrip(t *testing.T) {
	ref := EncodePollRef("abc-123")
	assert.Equal(t, "[poll:abc-123]", ref)

	id, ok := ParsePollRef(ref)
	assert.True(t, ok)
	assert.Equal(t, "abc-123", id)
}

func TestParsePollRef_Rejects(t *testing.T) {
	for _, s := range []string{"", "plain message", "[poll:]", "[poll:abc", "poll:abc]", "[pool:abc]"} {
		_, ok := ParsePollRef(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestMessageBefore(t *testing.T) {
	now := time.Now()
	a := Message{ID: "a", CreatedAt: now}
	b := Message{ID: "b", CreatedAt: now.Add(time.Second)}

	assert.True(t, a.Before(&b))
	assert.False(t, b.Before(&a))

	// Equal timestamps fall back to the id
	c := Message{ID: "c", CreatedAt: now}
	assert.True(t, a.Before(&c))
	assert.False(t, c.Before(&a))
}

func TestPresenceWindows(t *testing.T) {
	now := time.Now()

	online := now.Add(-OnlineWindow + time.Second)
	stale := now.Add(-OnlineWindow - time.Second)
	u := User{LastActiveAt: &online}
	assert.True(t, u.IsOnline(now))
	u.LastActiveAt = &stale
	assert.False(t, u.IsOnline(now))
	u.LastActiveAt = nil
	assert.False(t, u.IsOnline(now))

	typing := now.Add(-TypingWindow + time.Second)
	quiet := now.Add(-TypingWindow - time.Second)
	u.TypingAt = &typing
	assert.True(t, u.IsTyping(now))
	u.TypingAt = &quiet
	assert.False(t, u.IsTyping(now))
}
