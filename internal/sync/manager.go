// Package sync wires realtime gateway events into the local store. A
// Manager owns two subscription groups: session-wide subscriptions that live
// for the whole login, and per-chat subscriptions swapped as a unit when the
// user switches chats.
package sync

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/store"
)

// Loader reloads remote state after an event that the store cannot patch
// incrementally.
type Loader interface {
	LoadChats(ctx context.Context) error
	LoadMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// Manager routes gateway events to store patches.
type Manager struct {
	sub    realtime.Subscriber
	store  *store.Store
	loader Loader

	mu       sync.Mutex
	session  []*realtime.Subscription
	chatSubs []*realtime.Subscription
	msgIDs   map[string]struct{}
}

// NewManager constructs a Manager. Start must be called before events flow.
func NewManager(sub realtime.Subscriber, st *store.Store, loader Loader) *Manager {
	return &Manager{sub: sub, store: st, loader: loader, msgIDs: make(map[string]struct{})}
}

// Start registers the session-wide subscriptions: message inserts for unread
// tracking, profile updates, and join notifications. Starting twice is a
// no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.session) > 0 {
		return
	}

	m.session = append(m.session,
		m.sub.Subscribe(realtime.ChannelMessages, realtime.EventInsert, func(payload json.RawMessage) {
			m.onMessageInsert(ctx, payload)
		}),
		m.sub.Subscribe(realtime.ChannelProfiles, realtime.EventProfileUpdate, func(payload json.RawMessage) {
			var ev models.ProfileUpdateEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Printf("sync: bad profile update payload: %v", err)
				return
			}
			m.store.MergeProfile(ev.Username, ev.Field, ev.Value)
		}),
		m.sub.Subscribe(realtime.ChannelChatUpdates, realtime.EventUserJoined, func(payload json.RawMessage) {
			var ev models.JoinEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Printf("sync: bad join payload: %v", err)
				return
			}
			user, ok := m.store.CurrentUser()
			if ok && ev.Username == user.Username {
				return
			}
			m.reloadChats(ctx)
		}),
	)
}

// onMessageInsert handles a row-level insert from the messages feed. The
// sender already appended its own message at send time, so own-author events
// are dropped. Inserts for the chat on screen append to the visible
// sequence; anything else bumps the unread counter.
func (m *Manager) onMessageInsert(ctx context.Context, payload json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("sync: bad message payload: %v", err)
		return
	}
	if user, ok := m.store.CurrentUser(); ok && msg.Author.Username == user.Username {
		return
	}

	if msg.ChatID == m.store.ActiveChat() {
		m.store.AppendMessage(msg.ChatID, msg)
		m.mu.Lock()
		m.msgIDs[msg.ID] = struct{}{}
		m.mu.Unlock()
	} else {
		m.store.IncrementUnread(msg.ChatID)
	}
	m.reloadChats(ctx)
}

// EnterChat makes chatID the active chat: the previous chat's subscriptions
// are torn down as a unit, history is loaded, and status, typing and
// reaction subscriptions are registered for the new chat.
func (m *Manager) EnterChat(ctx context.Context, chatID string) error {
	m.LeaveChat()
	m.store.SetActiveChat(chatID)

	msgs, err := m.loader.LoadMessages(ctx, chatID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.msgIDs = make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		m.msgIDs[msg.ID] = struct{}{}
	}

	m.chatSubs = append(m.chatSubs,
		m.sub.Subscribe(realtime.ChannelMessageStatus, realtime.EventMessageStatus, func(payload json.RawMessage) {
			var ev models.StatusEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Printf("sync: bad status payload: %v", err)
				return
			}
			if ev.ChatID != chatID {
				return
			}
			m.store.PatchMessageStatus(ev.ChatID, ev.MessageID, ev.Status)
		}),
		m.sub.Subscribe(realtime.ChannelTyping, realtime.EventTypingStatus, func(payload json.RawMessage) {
			var ev models.TypingEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				log.Printf("sync: bad typing payload: %v", err)
				return
			}
			if ev.ChatID != chatID {
				return
			}
			if user, ok := m.store.CurrentUser(); ok && ev.Username == user.Username {
				return
			}
			m.store.SetTyping(ev.ChatID, ev.Username, ev.IsTyping)
		}),
		m.sub.Subscribe(realtime.ChannelReactions, realtime.EventAny, func(payload json.RawMessage) {
			m.onReactionChange(ctx, chatID, payload)
		}),
	)
	m.mu.Unlock()
	return nil
}

// onReactionChange reloads the active chat's messages when a reaction row
// changes for one of its messages. The feed carries no chat id, so ownership
// is decided against the set of loaded message ids.
func (m *Manager) onReactionChange(ctx context.Context, chatID string, payload json.RawMessage) {
	var ev models.ReactionChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("sync: bad reaction payload: %v", err)
		return
	}
	m.mu.Lock()
	_, known := m.msgIDs[ev.MessageID]
	m.mu.Unlock()
	if !known {
		return
	}

	msgs, err := m.loader.LoadMessages(ctx, chatID)
	if err != nil {
		log.Printf("sync: reload messages after reaction: %v", err)
		return
	}
	m.mu.Lock()
	m.msgIDs = make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		m.msgIDs[msg.ID] = struct{}{}
	}
	m.mu.Unlock()
}

// LeaveChat tears down the active chat's subscriptions and clears the active
// chat marker. Safe to call with no chat active.
func (m *Manager) LeaveChat() {
	m.mu.Lock()
	subs := m.chatSubs
	m.chatSubs = nil
	m.msgIDs = make(map[string]struct{})
	m.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	m.store.SetActiveChat("")
}

// Close tears down every subscription. Start may be called again
// afterwards, e.g. when a new login follows a logout.
func (m *Manager) Close() {
	m.LeaveChat()
	m.mu.Lock()
	subs := m.session
	m.session = nil
	m.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (m *Manager) reloadChats(ctx context.Context) {
	if err := m.loader.LoadChats(ctx); err != nil {
		log.Printf("sync: reload chats: %v", err)
	}
}
