package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	sysync "sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/store"
)

// newGateway spins up a fake realtime gateway and returns a connected client
// plus the server side of its connection for pushing events.
func newGateway(t *testing.T) (*realtime.Client, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := realtime.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, <-conns
}

func push(t *testing.T, conn *websocket.Conn, channel, event string, payload any) {
	t.Helper()
	env := struct {
		Channel string `json:"channel"`
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{channel, event, payload}
	require.NoError(t, conn.WriteJSON(env))
}

// fakeLoader mimics the actions layer: LoadMessages writes the configured
// history into the store, like the real loader does.
type fakeLoader struct {
	store *store.Store

	mu          sysync.Mutex
	messages    map[string][]models.Message
	chatReloads int
	msgLoads    int
}

func (l *fakeLoader) LoadChats(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chatReloads++
	return nil
}

func (l *fakeLoader) LoadMessages(_ context.Context, chatID string) ([]models.Message, error) {
	l.mu.Lock()
	msgs := l.messages[chatID]
	l.msgLoads++
	l.mu.Unlock()
	l.store.SetMessages(chatID, msgs)
	return msgs, nil
}

func (l *fakeLoader) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chatReloads, l.msgLoads
}

func (l *fakeLoader) setMessages(chatID string, msgs []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages[chatID] = msgs
}

func newFixture(t *testing.T) (*Manager, *store.Store, *fakeLoader, *websocket.Conn) {
	t.Helper()
	client, server := newGateway(t)
	st := store.New(nil)
	st.SetCurrentUser(models.User{Username: "alice"})
	loader := &fakeLoader{store: st, messages: map[string][]models.Message{}}
	m := NewManager(client, st, loader)
	m.Start(context.Background())
	t.Cleanup(m.Close)
	return m, st, loader, server
}

const waitFor = 2 * time.Second

func TestInsertForInactiveChatBumpsUnread(t *testing.T) {
	_, st, loader, server := newFixture(t)

	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m1", ChatID: "c2", Author: models.AuthorInfo{Username: "bob"}, Content: "hi",
	})

	require.Eventually(t, func() bool {
		return st.UnreadCount("c2") == 1
	}, waitFor, 10*time.Millisecond)

	reloads, _ := loader.counts()
	assert.GreaterOrEqual(t, reloads, 1)
	assert.Empty(t, st.Messages("c2"))
}

func TestInsertForActiveChatAppends(t *testing.T) {
	m, st, _, server := newFixture(t)
	require.NoError(t, m.EnterChat(context.Background(), "c1"))

	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m1", ChatID: "c1", Author: models.AuthorInfo{Username: "bob"}, Content: "hi",
	})

	require.Eventually(t, func() bool {
		return len(st.Messages("c1")) == 1
	}, waitFor, 10*time.Millisecond)
	assert.Zero(t, st.UnreadCount("c1"))
}

func TestOwnInsertsAreIgnored(t *testing.T) {
	_, st, _, server := newFixture(t)

	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m1", ChatID: "c1", Author: models.AuthorInfo{Username: "alice"},
	})
	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m2", ChatID: "c2", Author: models.AuthorInfo{Username: "bob"},
	})

	// channel delivery is FIFO: once m2 landed, m1 was already processed
	require.Eventually(t, func() bool {
		return st.UnreadCount("c2") == 1
	}, waitFor, 10*time.Millisecond)
	assert.Zero(t, st.UnreadCount("c1"))
}

func TestProfileUpdatePropagates(t *testing.T) {
	_, st, _, server := newFixture(t)
	st.PutProfile(models.Profile{Username: "bob", Avatar: "old.png"})
	st.MergeChats([]models.Chat{{ID: "c1", Name: "bob", Avatar: "old.png"}})

	push(t, server, realtime.ChannelProfiles, realtime.EventProfileUpdate,
		models.ProfileUpdateEvent{Username: "bob", Field: models.ProfileFieldAvatar, Value: "new.png"})

	require.Eventually(t, func() bool {
		p, _ := st.Profile("bob")
		return p.Avatar == "new.png"
	}, waitFor, 10*time.Millisecond)

	chats := st.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, "new.png", chats[0].Avatar)
}

func TestStatusEventsFilteredByActiveChat(t *testing.T) {
	m, st, loader, server := newFixture(t)
	loader.setMessages("c1", []models.Message{
		{ID: "m1", ChatID: "c1", Status: models.MessageStatusSent},
	})
	require.NoError(t, m.EnterChat(context.Background(), "c1"))

	push(t, server, realtime.ChannelMessageStatus, realtime.EventMessageStatus,
		models.StatusEvent{ChatID: "c9", MessageID: "m1", Status: models.MessageStatusSeen})
	push(t, server, realtime.ChannelMessageStatus, realtime.EventMessageStatus,
		models.StatusEvent{ChatID: "c1", MessageID: "m1", Status: models.MessageStatusSeen})

	require.Eventually(t, func() bool {
		msgs := st.Messages("c1")
		return len(msgs) == 1 && msgs[0].Status == models.MessageStatusSeen
	}, waitFor, 10*time.Millisecond)
}

func TestTypingEvents(t *testing.T) {
	m, st, _, server := newFixture(t)
	require.NoError(t, m.EnterChat(context.Background(), "c1"))

	push(t, server, realtime.ChannelTyping, realtime.EventTypingStatus,
		models.TypingEvent{ChatID: "c1", Username: "bob", IsTyping: true})
	require.Eventually(t, func() bool {
		return len(st.TypingUsers("c1")) == 1
	}, waitFor, 10*time.Millisecond)

	push(t, server, realtime.ChannelTyping, realtime.EventTypingStatus,
		models.TypingEvent{ChatID: "c1", Username: "bob", IsTyping: false})
	require.Eventually(t, func() bool {
		return len(st.TypingUsers("c1")) == 0
	}, waitFor, 10*time.Millisecond)
}

func TestReactionChangeReloadsActiveChat(t *testing.T) {
	m, st, loader, server := newFixture(t)
	loader.setMessages("c1", []models.Message{{ID: "m1", ChatID: "c1"}})
	require.NoError(t, m.EnterChat(context.Background(), "c1"))

	loader.setMessages("c1", []models.Message{{
		ID: "m1", ChatID: "c1",
		Reactions: models.Reactions{"👍": {"bob"}},
	}})

	push(t, server, realtime.ChannelReactions, realtime.EventInsert,
		models.ReactionChangeEvent{MessageID: "m1", Emoji: "👍", Username: "bob"})

	require.Eventually(t, func() bool {
		msgs := st.Messages("c1")
		return len(msgs) == 1 && len(msgs[0].Reactions["👍"]) == 1
	}, waitFor, 10*time.Millisecond)
}

func TestReactionChangeForForeignMessageIgnored(t *testing.T) {
	m, _, loader, server := newFixture(t)
	loader.setMessages("c1", []models.Message{{ID: "m1", ChatID: "c1"}})
	require.NoError(t, m.EnterChat(context.Background(), "c1"))
	_, loadsBefore := loader.counts()

	push(t, server, realtime.ChannelReactions, realtime.EventInsert,
		models.ReactionChangeEvent{MessageID: "other", Emoji: "👍", Username: "bob"})
	// force the feed to drain past the ignored event
	push(t, server, realtime.ChannelTyping, realtime.EventTypingStatus,
		models.TypingEvent{ChatID: "c1", Username: "bob", IsTyping: true})

	st := m.store
	require.Eventually(t, func() bool {
		return len(st.TypingUsers("c1")) == 1
	}, waitFor, 10*time.Millisecond)

	_, loadsAfter := loader.counts()
	assert.Equal(t, loadsBefore, loadsAfter)
}

func TestManagerRestartsAfterClose(t *testing.T) {
	m, st, _, server := newFixture(t)
	m.Close()
	m.Start(context.Background())

	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m1", ChatID: "c2", Author: models.AuthorInfo{Username: "bob"},
	})

	require.Eventually(t, func() bool {
		return st.UnreadCount("c2") == 1
	}, waitFor, 10*time.Millisecond)
}

func TestLeaveChatStopsChatSubscriptions(t *testing.T) {
	m, st, _, server := newFixture(t)
	require.NoError(t, m.EnterChat(context.Background(), "c1"))
	m.LeaveChat()
	assert.Empty(t, st.ActiveChat())

	push(t, server, realtime.ChannelTyping, realtime.EventTypingStatus,
		models.TypingEvent{ChatID: "c1", Username: "bob", IsTyping: true})
	push(t, server, realtime.ChannelMessages, realtime.EventInsert, models.Message{
		ID: "m9", ChatID: "c9", Author: models.AuthorInfo{Username: "bob"},
	})

	require.Eventually(t, func() bool {
		return st.UnreadCount("c9") == 1
	}, waitFor, 10*time.Millisecond)
	assert.Empty(t, st.TypingUsers("c1"))
}
