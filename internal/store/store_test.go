package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

func TestUnreadCounterLifecycle(t *testing.T) {
	s := New(nil)

	assert.Equal(t, 0, s.UnreadCount("c1"))

	s.IncrementUnread("c1")
	s.IncrementUnread("c1")
	assert.Equal(t, 2, s.UnreadCount("c1"))

	s.ResetUnread("c1")
	assert.Equal(t, 0, s.UnreadCount("c1"))

	// idempotent
	s.ResetUnread("c1")
	assert.Equal(t, 0, s.UnreadCount("c1"))

	s.IncrementUnread("c1")
	assert.Equal(t, 1, s.UnreadCount("c1"))
}

func TestSetActiveChatZeroesUnread(t *testing.T) {
	s := New(nil)
	for i := 0; i < 5; i++ {
		s.IncrementUnread("c1")
	}

	s.SetActiveChat("c1")
	assert.Equal(t, "c1", s.ActiveChat())
	assert.Equal(t, 0, s.UnreadCount("c1"))

	s.SetActiveChat("")
	assert.Equal(t, "", s.ActiveChat())
}

func TestMergeChatsPreservesUnreadCounters(t *testing.T) {
	s := New(nil)
	s.MergeChats([]models.Chat{{ID: "c1"}, {ID: "c2"}})
	s.IncrementUnread("c1")
	s.IncrementUnread("c1")
	s.IncrementUnread("c2")

	s.MergeChats([]models.Chat{{ID: "c1"}, {ID: "c3"}})

	assert.Equal(t, 2, s.UnreadCount("c1"), "existing counter preserved")
	assert.Equal(t, 0, s.UnreadCount("c3"), "new chat starts at zero")
	assert.Equal(t, 1, s.UnreadCount("c2"), "counter for dropped chat kept until eviction")
	assert.Len(t, s.Chats(), 2)
}

func TestAppendMessageKeepsArrivalOrder(t *testing.T) {
	s := New(nil)
	now := time.Now()

	// second message carries an earlier timestamp; arrival order wins
	s.AppendMessage("c1", models.Message{ID: "m1", CreatedAt: now})
	s.AppendMessage("c1", models.Message{ID: "m2", CreatedAt: now.Add(-time.Minute)})

	msgs := s.Messages("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
}

func TestPatchMessageStatus(t *testing.T) {
	s := New(nil)
	s.AppendMessage("c1", models.Message{ID: "m1", Status: models.MessageStatusSent})

	s.PatchMessageStatus("c1", "m1", models.MessageStatusDelivered)
	assert.Equal(t, models.MessageStatusDelivered, s.Messages("c1")[0].Status)

	// downgrades are rejected
	s.PatchMessageStatus("c1", "m1", models.MessageStatusSent)
	assert.Equal(t, models.MessageStatusDelivered, s.Messages("c1")[0].Status)

	s.PatchMessageStatus("c1", "m1", models.MessageStatusSeen)
	assert.Equal(t, models.MessageStatusSeen, s.Messages("c1")[0].Status)
}

func TestPatchMessageStatusMissingMessageIsNoop(t *testing.T) {
	s := New(nil)
	s.AppendMessage("c1", models.Message{ID: "m1", Status: models.MessageStatusSent})

	assert.NotPanics(t, func() {
		s.PatchMessageStatus("c1", "missing", models.MessageStatusSeen)
		s.PatchMessageStatus("unknown-chat", "m1", models.MessageStatusSeen)
	})
	assert.Equal(t, models.MessageStatusSent, s.Messages("c1")[0].Status)
}

func TestReactionIdempotence(t *testing.T) {
	s := New(nil)
	s.AppendMessage("c1", models.Message{ID: "m1"})

	s.AddReaction("c1", "m1", "👍", "alice")
	s.AddReaction("c1", "m1", "👍", "alice")
	assert.Equal(t, []string{"alice"}, s.Messages("c1")[0].Reactions["👍"])

	s.RemoveReaction("c1", "m1", "👍", "bob") // absent reactor, no-op
	assert.Equal(t, []string{"alice"}, s.Messages("c1")[0].Reactions["👍"])

	s.RemoveReaction("c1", "m1", "👍", "alice")
	assert.Empty(t, s.Messages("c1")[0].Reactions)

	// missing message is a no-op
	assert.NotPanics(t, func() {
		s.AddReaction("c1", "missing", "👍", "alice")
	})
}

func TestRemoveMessage(t *testing.T) {
	s := New(nil)
	s.SetMessages("c1", []models.Message{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}})
	s.SetPinnedMessages("c1", []models.Message{{ID: "m2"}})

	s.RemoveMessage("c1", "m2")

	msgs := s.Messages("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m3", msgs[1].ID)
	assert.Empty(t, s.PinnedMessages("c1"), "removal also drops the pin")

	// missing message and unknown chat are no-ops
	assert.NotPanics(t, func() {
		s.RemoveMessage("c1", "missing")
		s.RemoveMessage("unknown-chat", "m1")
	})
	assert.Len(t, s.Messages("c1"), 2)
}

func TestPinnedMessagesLifecycle(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.PinnedMessages("c1"))

	s.SetPinnedMessages("c1", []models.Message{{ID: "m1"}, {ID: "m2"}})
	require.Len(t, s.PinnedMessages("c1"), 2)

	s.SetPinnedMessages("c1", []models.Message{{ID: "m2"}})
	pinned := s.PinnedMessages("c1")
	require.Len(t, pinned, 1)
	assert.Equal(t, "m2", pinned[0].ID)

	s.EvictChat("c1")
	assert.Empty(t, s.PinnedMessages("c1"))
}

func TestMergeProfileDropsUncachedUsers(t *testing.T) {
	s := New(nil)
	s.MergeProfile("bob", models.ProfileFieldBio, "hello")

	_, ok := s.Profile("bob")
	assert.False(t, ok, "cache-aside: update for uncached profile is dropped")
}

func TestMergeProfileAvatarPropagation(t *testing.T) {
	s := New(nil)
	s.PutProfile(models.Profile{Username: "bob", Avatar: "old.png"})
	s.MergeChats([]models.Chat{
		{ID: "c1", Name: "bob", Avatar: "old.png"},
		{ID: "c2", Name: "carol"},
	})
	s.AppendMessage("c1", models.Message{ID: "m1", Author: models.AuthorInfo{Username: "bob", Avatar: "old.png"}})
	s.AppendMessage("c2", models.Message{ID: "m2", Author: models.AuthorInfo{Username: "bob", Avatar: "old.png"}})
	s.AppendMessage("c2", models.Message{ID: "m3", Author: models.AuthorInfo{Username: "carol", Avatar: "c.png"}})

	s.MergeProfile("bob", models.ProfileFieldAvatar, "new.png")

	p, ok := s.Profile("bob")
	require.True(t, ok)
	assert.Equal(t, "new.png", p.Avatar)

	chats := s.Chats()
	assert.Equal(t, "new.png", chats[0].Avatar)
	assert.Equal(t, "", chats[1].Avatar, "other chats untouched")

	assert.Equal(t, "new.png", s.Messages("c1")[0].Author.Avatar)
	assert.Equal(t, "new.png", s.Messages("c2")[0].Author.Avatar)
	assert.Equal(t, "c.png", s.Messages("c2")[1].Author.Avatar)
}

func TestEvictChatRemovesEverything(t *testing.T) {
	s := New(nil)
	s.MergeChats([]models.Chat{{ID: "c1"}, {ID: "c2"}})
	s.AppendMessage("c1", models.Message{ID: "m1"})
	s.IncrementUnread("c1")
	s.SetTyping("c1", "bob", true)
	s.SetActiveChat("c1")

	s.EvictChat("c1")

	assert.Len(t, s.Chats(), 1)
	assert.Empty(t, s.Messages("c1"))
	assert.Equal(t, 0, s.UnreadCount("c1"))
	assert.Empty(t, s.TypingUsers("c1"))
	assert.Equal(t, "", s.ActiveChat())
}

func TestTypingSet(t *testing.T) {
	s := New(nil)
	s.SetTyping("c1", "alice", true)
	s.SetTyping("c1", "alice", true)
	assert.Equal(t, []string{"alice"}, s.TypingUsers("c1"))

	s.SetTyping("c1", "alice", false)
	assert.Empty(t, s.TypingUsers("c1"))

	// stop-typing for an unknown chat must not panic
	assert.NotPanics(t, func() {
		s.SetTyping("c9", "alice", false)
	})
}

func TestStatuses(t *testing.T) {
	s := New(nil)
	s.SetStatuses([]models.UserStatus{
		{Username: "alice", Status: models.StatusOnline},
		{Username: "bob", Status: models.StatusOffline},
	})

	st, ok := s.UserStatus("alice")
	require.True(t, ok)
	assert.Equal(t, models.StatusOnline, st.Status)

	_, ok = s.UserStatus("carol")
	assert.False(t, ok)
}

func TestResetClearsDerivedState(t *testing.T) {
	s := New(nil)
	s.SetCurrentUser(models.User{Username: "alice"})
	s.MergeChats([]models.Chat{{ID: "c1"}})
	s.AppendMessage("c1", models.Message{ID: "m1"})
	s.SetPinnedMessages("c1", []models.Message{{ID: "m1"}})
	s.IncrementUnread("c1")
	s.SetActiveChat("c1")

	s.Reset()

	_, ok := s.CurrentUser()
	assert.False(t, ok)
	assert.Empty(t, s.Chats())
	assert.Empty(t, s.Messages("c1"))
	assert.Empty(t, s.PinnedMessages("c1"))
	assert.Equal(t, 0, s.UnreadCount("c1"))
	assert.Equal(t, "", s.ActiveChat())
}
