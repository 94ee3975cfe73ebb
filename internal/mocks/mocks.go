// Package mocks provides hand-written testify mocks for the repository and
// messaging interfaces used across handler and action tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/repositories"
)

// ChatRepository is a mock of repositories.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

var _ repositories.ChatRepository = (*ChatRepository)(nil)

func (m *ChatRepository) CreateChat(ctx context.Context, chat models.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *ChatRepository) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(models.Chat), args.Error(1)
}

func (m *ChatRepository) ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *ChatRepository) Participants(ctx context.Context, chatID string) ([]string, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *ChatRepository) IsParticipant(ctx context.Context, chatID, username string) (bool, error) {
	args := m.Called(ctx, chatID, username)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepository) AddParticipant(ctx context.Context, chatID, username string) error {
	args := m.Called(ctx, chatID, username)
	return args.Error(0)
}

func (m *ChatRepository) UpdateChatName(ctx context.Context, chatID, name string) error {
	args := m.Called(ctx, chatID, name)
	return args.Error(0)
}

// MessageRepository is a mock of repositories.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepository)(nil)

func (m *MessageRepository) CreateMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MessageRepository) DeleteMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepository) UpsertSeenStatus(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepository) AddReaction(ctx context.Context, messageID, emoji, username string) error {
	args := m.Called(ctx, messageID, emoji, username)
	return args.Error(0)
}

func (m *MessageRepository) RemoveReaction(ctx context.Context, messageID, emoji, username string) error {
	args := m.Called(ctx, messageID, emoji, username)
	return args.Error(0)
}

func (m *MessageRepository) PinMessage(ctx context.Context, chatID, messageID, pinnedBy string) error {
	args := m.Called(ctx, chatID, messageID, pinnedBy)
	return args.Error(0)
}

func (m *MessageRepository) UnpinMessage(ctx context.Context, chatID, messageID string) error {
	args := m.Called(ctx, chatID, messageID)
	return args.Error(0)
}

func (m *MessageRepository) ListPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// UserRepository is a mock of repositories.UserRepository.
type UserRepository struct {
	mock.Mock
}

var _ repositories.UserRepository = (*UserRepository)(nil)

func (m *UserRepository) CreateUser(ctx context.Context, user models.User, passwordDigest string) error {
	args := m.Called(ctx, user, passwordDigest)
	return args.Error(0)
}

func (m *UserRepository) Credentials(ctx context.Context, username string) (models.User, string, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.User), args.String(1), args.Error(2)
}

func (m *UserRepository) GetProfile(ctx context.Context, username string) (models.Profile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.Profile), args.Error(1)
}

func (m *UserRepository) UpdateProfileField(ctx context.Context, username, field, value string) error {
	args := m.Called(ctx, username, field, value)
	return args.Error(0)
}

func (m *UserRepository) UpsertStatus(ctx context.Context, username, status string) error {
	args := m.Called(ctx, username, status)
	return args.Error(0)
}

func (m *UserRepository) ListStatuses(ctx context.Context) ([]models.UserStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserStatus), args.Error(1)
}

func (m *UserRepository) Block(ctx context.Context, blocker, blocked, chatID string) error {
	args := m.Called(ctx, blocker, blocked, chatID)
	return args.Error(0)
}

func (m *UserRepository) Unblock(ctx context.Context, blocker, chatID string) error {
	args := m.Called(ctx, blocker, chatID)
	return args.Error(0)
}

func (m *UserRepository) ListBlocked(ctx context.Context, blocker string) ([]models.BlockedUser, error) {
	args := m.Called(ctx, blocker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BlockedUser), args.Error(1)
}

// FriendCodeRepository is a mock of repositories.FriendCodeRepository.
type FriendCodeRepository struct {
	mock.Mock
}

var _ repositories.FriendCodeRepository = (*FriendCodeRepository)(nil)

func (m *FriendCodeRepository) PermanentCodeForChat(ctx context.Context, chatID string) (string, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Error(1)
}

func (m *FriendCodeRepository) ChatForPermanentCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *FriendCodeRepository) ChatForTemporaryCode(ctx context.Context, code string, now time.Time) (string, error) {
	args := m.Called(ctx, code, now)
	return args.String(0), args.Error(1)
}

func (m *FriendCodeRepository) PermanentCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *FriendCodeRepository) InsertPermanentCode(ctx context.Context, code, chatID, createdBy string) error {
	args := m.Called(ctx, code, chatID, createdBy)
	return args.Error(0)
}

func (m *FriendCodeRepository) InsertTemporaryCode(ctx context.Context, code, chatID string, expiresAt time.Time) error {
	args := m.Called(ctx, code, chatID, expiresAt)
	return args.Error(0)
}

// RealtimePublisher is a mock of realtime.Publisher.
type RealtimePublisher struct {
	mock.Mock
}

func (m *RealtimePublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	args := m.Called(ctx, channel, event, payload)
	return args.Error(0)
}

// AuditPublisher is a mock of telemetry.Publisher.
type AuditPublisher struct {
	mock.Mock
}

func (m *AuditPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *AuditPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
