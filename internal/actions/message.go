package actions

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/store"
)

// ChatLister refreshes the chat list, typically to update last-message
// previews after a send.
type ChatLister interface {
	LoadChats(ctx context.Context) error
}

// Messages bundles message operations: loading, sending, seen receipts,
// reactions and typing broadcasts.
type Messages struct {
	msgs   repositories.MessageRepository
	store  *store.Store
	rt     realtime.Publisher
	lister ChatLister
}

// NewMessages constructs the message actions.
func NewMessages(msgs repositories.MessageRepository, st *store.Store, rt realtime.Publisher, lister ChatLister) *Messages {
	return &Messages{msgs: msgs, store: st, rt: rt, lister: lister}
}

// LoadMessages fetches a chat's full message history and replaces the cached
// sequence.
func (a *Messages) LoadMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs, err := a.msgs.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	a.store.SetMessages(chatID, msgs)
	return msgs, nil
}

// SendMessage stores a new message remotely and appends it to the local
// sequence. The author snapshot is taken from the current user at send time.
func (a *Messages) SendMessage(ctx context.Context, chatID, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, errors.New("message content is required")
	}
	user, ok := a.store.CurrentUser()
	if !ok {
		return models.Message{}, ErrNotLoggedIn
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Author:    models.AuthorInfo{Username: user.Username, Avatar: user.Avatar},
		Content:   content,
		Status:    models.MessageStatusSent,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.msgs.CreateMessage(ctx, msg); err != nil {
		return models.Message{}, err
	}
	a.store.AppendMessage(chatID, msg)

	if err := a.lister.LoadChats(ctx); err != nil {
		log.Printf("refresh chats after send: %v", err)
	}
	return msg, nil
}

// DeleteMessage removes a message remotely and locally. The chat list is
// refreshed afterwards because the deleted message may have been the
// preview.
func (a *Messages) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	if _, ok := a.store.CurrentUser(); !ok {
		return ErrNotLoggedIn
	}
	if err := a.msgs.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	a.store.RemoveMessage(chatID, messageID)

	if err := a.lister.LoadChats(ctx); err != nil {
		log.Printf("refresh chats after delete: %v", err)
	}
	return nil
}

// PinMessage pins a message and refreshes the cached pinned list.
func (a *Messages) PinMessage(ctx context.Context, chatID, messageID string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.msgs.PinMessage(ctx, chatID, messageID, user.Username); err != nil {
		return err
	}
	_, err := a.LoadPinnedMessages(ctx, chatID)
	return err
}

// UnpinMessage unpins a message and refreshes the cached pinned list.
func (a *Messages) UnpinMessage(ctx context.Context, chatID, messageID string) error {
	if _, ok := a.store.CurrentUser(); !ok {
		return ErrNotLoggedIn
	}
	if err := a.msgs.UnpinMessage(ctx, chatID, messageID); err != nil {
		return err
	}
	_, err := a.LoadPinnedMessages(ctx, chatID)
	return err
}

// LoadPinnedMessages fetches a chat's pinned messages and replaces the
// cached list.
func (a *Messages) LoadPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	msgs, err := a.msgs.ListPinnedMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	a.store.SetPinnedMessages(chatID, msgs)
	return msgs, nil
}

// MarkSeen records that the current user saw a message. The local patch is
// applied first; the broadcast and the durable upsert are best effort, so
// the caller never observes a failure.
func (a *Messages) MarkSeen(ctx context.Context, chatID, messageID string) {
	a.store.PatchMessageStatus(chatID, messageID, models.MessageStatusSeen)

	if err := a.rt.Publish(ctx, realtime.ChannelMessageStatus, realtime.EventMessageStatus,
		models.StatusEvent{ChatID: chatID, MessageID: messageID, Status: models.MessageStatusSeen}); err != nil {
		log.Printf("broadcast seen status: %v", err)
	}
	if err := a.msgs.UpsertSeenStatus(ctx, messageID); err != nil {
		log.Printf("persist seen status: %v", err)
	}
}

// AddReaction records an emoji reaction remotely and locally.
func (a *Messages) AddReaction(ctx context.Context, chatID, messageID, emoji string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.msgs.AddReaction(ctx, messageID, emoji, user.Username); err != nil {
		return err
	}
	a.store.AddReaction(chatID, messageID, emoji, user.Username)
	return nil
}

// RemoveReaction removes the current user's emoji reaction remotely and
// locally.
func (a *Messages) RemoveReaction(ctx context.Context, chatID, messageID, emoji string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.msgs.RemoveReaction(ctx, messageID, emoji, user.Username); err != nil {
		return err
	}
	a.store.RemoveReaction(chatID, messageID, emoji, user.Username)
	return nil
}

// SetTyping broadcasts the current user's typing state for a chat. Typing is
// ephemeral; failures are logged and dropped.
func (a *Messages) SetTyping(ctx context.Context, chatID string, isTyping bool) {
	user, ok := a.store.CurrentUser()
	if !ok {
		return
	}
	err := a.rt.Publish(ctx, realtime.ChannelTyping, realtime.EventTypingStatus, models.TypingEvent{
		ChatID:    chatID,
		Username:  user.Username,
		IsTyping:  isTyping,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("broadcast typing: %v", err)
	}
}
