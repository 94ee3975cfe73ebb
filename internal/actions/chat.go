// Package actions implements the client's domain operations. Each action
// reads and writes the remote data service through the repositories, patches
// the in-memory store, and broadcasts over the realtime gateway where peers
// need to hear about the change.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/retry"
	"chat-client/internal/store"
	"chat-client/internal/telemetry"
)

const (
	loadRetries    = 3
	loadRetryDelay = time.Second
)

// Chats bundles chat lifecycle operations: listing, creation, joining,
// friend codes, renames and blocking.
type Chats struct {
	chats repositories.ChatRepository
	codes repositories.FriendCodeRepository
	users repositories.UserRepository
	store *store.Store
	rt    realtime.Publisher
	audit *telemetry.AuditEmitter
}

// NewChats constructs the chat actions.
func NewChats(chats repositories.ChatRepository, codes repositories.FriendCodeRepository,
	users repositories.UserRepository, st *store.Store, rt realtime.Publisher,
	audit *telemetry.AuditEmitter) *Chats {
	return &Chats{chats: chats, codes: codes, users: users, store: st, rt: rt, audit: audit}
}

// LoadChats fetches the user's chats from the remote service, filters out
// blocked ones, derives display name and avatar from the other participant,
// and merges the result into the store. Transient failures are retried.
func (a *Chats) LoadChats(ctx context.Context) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}

	var chats []models.Chat
	err := retry.Do(ctx, loadRetries, loadRetryDelay, func(ctx context.Context) error {
		var err error
		chats, err = a.chats.ListChatsForUser(ctx, user.Username)
		return err
	}, func(attempt int, err error) {
		log.Printf("load chats attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}

	blocked := map[string]bool{}
	if rows, err := a.users.ListBlocked(ctx, user.Username); err != nil {
		log.Printf("load block list: %v", err)
	} else {
		for _, b := range rows {
			blocked[b.ChatID] = true
		}
	}

	visible := make([]models.Chat, 0, len(chats))
	for _, c := range chats {
		if blocked[c.ID] {
			continue
		}
		if other := c.OtherParticipant(user.Username); other != "" {
			c.Name = other
			profile, ok := a.store.Profile(other)
			if !ok {
				fetched, err := a.users.GetProfile(ctx, other)
				if err != nil {
					log.Printf("load profile %s: %v", other, err)
				} else {
					a.store.PutProfile(fetched)
					profile, ok = fetched, true
				}
			}
			if ok {
				c.Avatar = profile.Avatar
			}
		}
		visible = append(visible, c)
	}

	a.store.MergeChats(visible)
	return nil
}

// CreateChat creates a new chat with the current user as sole participant
// and returns the chat id.
func (a *Chats) CreateChat(ctx context.Context) (string, error) {
	user, ok := a.store.CurrentUser()
	if !ok {
		return "", ErrNotLoggedIn
	}

	chat := models.Chat{
		ID:        uuid.NewString(),
		Name:      user.Username,
		CreatedBy: user.Username,
		CreatedAt: time.Now().UTC(),
	}
	err := retry.Do(ctx, loadRetries, loadRetryDelay, func(ctx context.Context) error {
		return a.chats.CreateChat(ctx, chat)
	}, func(attempt int, err error) {
		log.Printf("create chat attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	if err := a.chats.AddParticipant(ctx, chat.ID, user.Username); err != nil {
		return "", fmt.Errorf("add creator to chat: %w", err)
	}

	a.audit.Emit(ctx, "chat_created", user.Username, chat.ID, "")
	if err := a.LoadChats(ctx); err != nil {
		log.Printf("refresh chats after create: %v", err)
	}
	return chat.ID, nil
}

// JoinChat adds username to a chat. Joining a chat the user already belongs
// to succeeds without side effects; a chat at capacity returns ErrChatFull.
// The membership check and insert are separate remote calls, so a concurrent
// joiner can slip past the capacity check; the insert absorbs duplicates but
// not over-capacity, which the next LoadChats surfaces.
func (a *Chats) JoinChat(ctx context.Context, chatID, username string) error {
	chatID = strings.TrimSpace(chatID)
	username = strings.TrimSpace(username)
	if chatID == "" || username == "" {
		return errors.New("chat id and username are required")
	}

	member, err := a.chats.IsParticipant(ctx, chatID, username)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if member {
		return nil
	}

	participants, err := a.chats.Participants(ctx, chatID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	if len(participants) >= models.MaxChatParticipants {
		return ErrChatFull
	}

	if err := a.chats.AddParticipant(ctx, chatID, username); err != nil {
		return fmt.Errorf("join chat: %w", err)
	}

	if err := a.rt.Publish(ctx, realtime.ChannelChatUpdates, realtime.EventUserJoined,
		models.JoinEvent{ChatID: chatID, Username: username}); err != nil {
		log.Printf("broadcast join: %v", err)
	}

	if err := a.users.UpsertStatus(ctx, username, models.StatusOnline); err != nil {
		log.Printf("set status after join: %v", err)
	}
	if statuses, err := a.users.ListStatuses(ctx); err != nil {
		log.Printf("refresh statuses after join: %v", err)
	} else {
		a.store.SetStatuses(statuses)
	}

	a.audit.Emit(ctx, "chat_joined", username, chatID, "")
	return nil
}

// JoinChatByCode resolves a friend code, permanent codes first, then
// unexpired temporary ones, and joins the chat it maps to. Lookup is
// case-insensitive.
func (a *Chats) JoinChatByCode(ctx context.Context, code, username string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrInvalidCode
	}

	chatID, err := a.codes.ChatForPermanentCode(ctx, code)
	if errors.Is(err, repositories.ErrCodeNotFound) {
		chatID, err = a.codes.ChatForTemporaryCode(ctx, code, time.Now().UTC())
		if errors.Is(err, repositories.ErrCodeNotFound) {
			return "", ErrInvalidCode
		}
	}
	if err != nil {
		return "", fmt.Errorf("resolve friend code: %w", err)
	}

	if err := a.JoinChat(ctx, chatID, username); err != nil {
		return "", err
	}
	return chatID, nil
}

// codeInUse reports whether code collides with an existing permanent code
// or a still-valid temporary code. Codes must be unique across both tables
// because lookup resolves permanent codes first and would shadow a live
// temporary one.
func (a *Chats) codeInUse(ctx context.Context, code string) (bool, error) {
	taken, err := a.codes.PermanentCodeExists(ctx, code)
	if err != nil || taken {
		return taken, err
	}
	_, err = a.codes.ChatForTemporaryCode(ctx, code, time.Now().UTC())
	if errors.Is(err, repositories.ErrCodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GenerateFriendCode returns the chat's permanent code, minting one on first
// call. Generation loops until an unused code is found; with a 36^5 space
// collisions are rare enough that the loop effectively runs once.
func (a *Chats) GenerateFriendCode(ctx context.Context, chatID string) (string, error) {
	if strings.TrimSpace(chatID) == "" {
		return "", errors.New("chat id is required")
	}

	code, err := a.codes.PermanentCodeForChat(ctx, chatID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, repositories.ErrCodeNotFound) {
		return "", fmt.Errorf("look up friend code: %w", err)
	}

	createdBy := "anonymous"
	if user, ok := a.store.CurrentUser(); ok {
		createdBy = user.Username
	}

	for {
		code = randomCode()
		taken, err := a.codeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check friend code: %w", err)
		}
		if taken {
			continue
		}
		if err := a.codes.InsertPermanentCode(ctx, code, chatID, createdBy); err != nil {
			return "", fmt.Errorf("store friend code: %w", err)
		}
		a.audit.Emit(ctx, "friend_code_created", createdBy, chatID, code)
		return code, nil
	}
}

// CreateTemporaryCode mints a time-limited friend code for a chat.
func (a *Chats) CreateTemporaryCode(ctx context.Context, chatID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(chatID) == "" {
		return "", errors.New("chat id is required")
	}
	for {
		code := randomCode()
		taken, err := a.codeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check friend code: %w", err)
		}
		if taken {
			continue
		}
		if err := a.codes.InsertTemporaryCode(ctx, code, chatID, time.Now().UTC().Add(ttl)); err != nil {
			return "", fmt.Errorf("store temporary code: %w", err)
		}
		return code, nil
	}
}

// UpdateChatName renames a chat. Only the creator may rename.
func (a *Chats) UpdateChatName(ctx context.Context, chatID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("chat name is required")
	}
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}

	chat, err := a.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.CreatedBy != user.Username {
		return ErrNotCreator
	}

	err = retry.Do(ctx, loadRetries, loadRetryDelay, func(ctx context.Context) error {
		return a.chats.UpdateChatName(ctx, chatID, name)
	}, func(attempt int, err error) {
		log.Printf("rename chat attempt %d failed: %v", attempt, err)
	})
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}

	if err := a.LoadChats(ctx); err != nil {
		log.Printf("refresh chats after rename: %v", err)
	}
	return nil
}

// Block hides a chat from the current user and evicts it locally.
func (a *Chats) Block(ctx context.Context, chatID, username string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.users.Block(ctx, user.Username, username, chatID); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	a.store.EvictChat(chatID)
	a.audit.Emit(ctx, "user_blocked", user.Username, chatID, username)
	return nil
}

// Unblock lifts a block and reloads the chat list so the chat reappears.
func (a *Chats) Unblock(ctx context.Context, chatID string) error {
	user, ok := a.store.CurrentUser()
	if !ok {
		return ErrNotLoggedIn
	}
	if err := a.users.Unblock(ctx, user.Username, chatID); err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	a.audit.Emit(ctx, "user_unblocked", user.Username, chatID, "")
	return a.LoadChats(ctx)
}
