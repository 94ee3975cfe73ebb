package actions

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/realtime"
	"chat-client/internal/repositories"
	"chat-client/internal/store"
)

func newChatFixture(t *testing.T) (*Chats, *mocks.ChatRepository, *mocks.FriendCodeRepository, *mocks.UserRepository, *mocks.RealtimePublisher, *store.Store) {
	t.Helper()
	chats := new(mocks.ChatRepository)
	codes := new(mocks.FriendCodeRepository)
	users := new(mocks.UserRepository)
	rt := new(mocks.RealtimePublisher)
	st := store.New(nil)
	return NewChats(chats, codes, users, st, rt, nil), chats, codes, users, rt, st
}

func TestLoadChatsDerivesNameAndFiltersBlocked(t *testing.T) {
	a, chats, _, users, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})

	chats.On("ListChatsForUser", mock.Anything, "alice").Return([]models.Chat{
		{ID: "c1", Name: "alice", Participants: []string{"alice", "bob"}},
		{ID: "c2", Name: "alice", Participants: []string{"alice", "mallory"}},
	}, nil)
	users.On("ListBlocked", mock.Anything, "alice").Return([]models.BlockedUser{
		{BlockerUsername: "alice", BlockedUsername: "mallory", ChatID: "c2"},
	}, nil)
	users.On("GetProfile", mock.Anything, "bob").Return(models.Profile{Username: "bob", Avatar: "b.png"}, nil)

	require.NoError(t, a.LoadChats(context.Background()))

	got := st.Chats()
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Name)
	assert.Equal(t, "b.png", got[0].Avatar)
	users.AssertExpectations(t)
}

func TestLoadChatsRetriesTransientFailures(t *testing.T) {
	a, chats, _, users, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})

	chats.On("ListChatsForUser", mock.Anything, "alice").
		Return(nil, errors.New("connection reset")).Once()
	chats.On("ListChatsForUser", mock.Anything, "alice").
		Return([]models.Chat{{ID: "c1", Participants: []string{"alice"}}}, nil).Once()
	users.On("ListBlocked", mock.Anything, "alice").Return([]models.BlockedUser{}, nil)

	require.NoError(t, a.LoadChats(context.Background()))
	require.Len(t, st.Chats(), 1)
	chats.AssertExpectations(t)
}

func TestLoadChatsRequiresLogin(t *testing.T) {
	a, _, _, _, _, _ := newChatFixture(t)
	assert.ErrorIs(t, a.LoadChats(context.Background()), ErrNotLoggedIn)
}

func TestJoinChatAlreadyMemberIsNoop(t *testing.T) {
	a, chats, _, _, _, _ := newChatFixture(t)
	chats.On("IsParticipant", mock.Anything, "c1", "bob").Return(true, nil)

	require.NoError(t, a.JoinChat(context.Background(), "c1", "bob"))
	chats.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinChatFullRoom(t *testing.T) {
	a, chats, _, _, _, _ := newChatFixture(t)
	chats.On("IsParticipant", mock.Anything, "c1", "carol").Return(false, nil)
	chats.On("Participants", mock.Anything, "c1").Return([]string{"alice", "bob"}, nil)

	assert.ErrorIs(t, a.JoinChat(context.Background(), "c1", "carol"), ErrChatFull)
	chats.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinChatBroadcastsAndRefreshesPresence(t *testing.T) {
	a, chats, _, users, rt, st := newChatFixture(t)
	chats.On("IsParticipant", mock.Anything, "c1", "bob").Return(false, nil)
	chats.On("Participants", mock.Anything, "c1").Return([]string{"alice"}, nil)
	chats.On("AddParticipant", mock.Anything, "c1", "bob").Return(nil)
	rt.On("Publish", mock.Anything, realtime.ChannelChatUpdates, realtime.EventUserJoined,
		models.JoinEvent{ChatID: "c1", Username: "bob"}).Return(nil)
	users.On("UpsertStatus", mock.Anything, "bob", models.StatusOnline).Return(nil)
	users.On("ListStatuses", mock.Anything).Return([]models.UserStatus{
		{Username: "bob", Status: models.StatusOnline},
	}, nil)

	require.NoError(t, a.JoinChat(context.Background(), "c1", "bob"))

	status, ok := st.UserStatus("bob")
	require.True(t, ok)
	assert.Equal(t, models.StatusOnline, status.Status)
	rt.AssertExpectations(t)
}

func TestJoinChatValidatesInput(t *testing.T) {
	a, _, _, _, _, _ := newChatFixture(t)
	assert.Error(t, a.JoinChat(context.Background(), "", "bob"))
	assert.Error(t, a.JoinChat(context.Background(), "c1", "  "))
}

func TestJoinChatByCodePermanentWins(t *testing.T) {
	a, chats, codes, _, _, _ := newChatFixture(t)
	codes.On("ChatForPermanentCode", mock.Anything, "AB12C").Return("c1", nil)
	chats.On("IsParticipant", mock.Anything, "c1", "bob").Return(true, nil)

	chatID, err := a.JoinChatByCode(context.Background(), " ab12c ", "bob")
	require.NoError(t, err)
	assert.Equal(t, "c1", chatID)
	codes.AssertNotCalled(t, "ChatForTemporaryCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinChatByCodeFallsBackToTemporary(t *testing.T) {
	a, chats, codes, _, _, _ := newChatFixture(t)
	codes.On("ChatForPermanentCode", mock.Anything, "ZZ999").Return("", repositories.ErrCodeNotFound)
	codes.On("ChatForTemporaryCode", mock.Anything, "ZZ999", mock.Anything).Return("c7", nil)
	chats.On("IsParticipant", mock.Anything, "c7", "bob").Return(true, nil)

	chatID, err := a.JoinChatByCode(context.Background(), "zz999", "bob")
	require.NoError(t, err)
	assert.Equal(t, "c7", chatID)
}

func TestJoinChatByCodeInvalid(t *testing.T) {
	a, _, codes, _, _, _ := newChatFixture(t)
	codes.On("ChatForPermanentCode", mock.Anything, "XXXXX").Return("", repositories.ErrCodeNotFound)
	codes.On("ChatForTemporaryCode", mock.Anything, "XXXXX", mock.Anything).Return("", repositories.ErrCodeNotFound)

	_, err := a.JoinChatByCode(context.Background(), "xxxxx", "bob")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestGenerateFriendCodeIdempotent(t *testing.T) {
	a, _, codes, _, _, _ := newChatFixture(t)
	codes.On("PermanentCodeForChat", mock.Anything, "c1").Return("AB12C", nil)

	code, err := a.GenerateFriendCode(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "AB12C", code)
	codes.AssertNotCalled(t, "InsertPermanentCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateFriendCodeMintsNewCode(t *testing.T) {
	a, _, codes, _, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})
	codes.On("PermanentCodeForChat", mock.Anything, "c1").Return("", repositories.ErrCodeNotFound)
	codes.On("PermanentCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	codes.On("ChatForTemporaryCode", mock.Anything, mock.Anything, mock.Anything).
		Return("", repositories.ErrCodeNotFound)
	codes.On("InsertPermanentCode", mock.Anything, mock.Anything, "c1", "alice").Return(nil)

	code, err := a.GenerateFriendCode(context.Background(), "c1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{5}$`), code)
	codes.AssertExpectations(t)
}

func TestGenerateFriendCodeAvoidsLiveTemporaryCodes(t *testing.T) {
	a, _, codes, _, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})
	codes.On("PermanentCodeForChat", mock.Anything, "c1").Return("", repositories.ErrCodeNotFound)
	codes.On("PermanentCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	// first candidate collides with a still-valid temporary code
	codes.On("ChatForTemporaryCode", mock.Anything, mock.Anything, mock.Anything).
		Return("c9", nil).Once()
	codes.On("ChatForTemporaryCode", mock.Anything, mock.Anything, mock.Anything).
		Return("", repositories.ErrCodeNotFound).Once()
	codes.On("InsertPermanentCode", mock.Anything, mock.Anything, "c1", "alice").Return(nil)

	code, err := a.GenerateFriendCode(context.Background(), "c1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{5}$`), code)
	codes.AssertNumberOfCalls(t, "ChatForTemporaryCode", 2)
	codes.AssertExpectations(t)
}

func TestCreateChatAddsCreator(t *testing.T) {
	a, chats, _, users, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})

	chats.On("CreateChat", mock.Anything, mock.MatchedBy(func(c models.Chat) bool {
		return c.CreatedBy == "alice" && c.Name == "alice" && c.ID != ""
	})).Return(nil)
	chats.On("AddParticipant", mock.Anything, mock.Anything, "alice").Return(nil)
	chats.On("ListChatsForUser", mock.Anything, "alice").Return([]models.Chat{}, nil)
	users.On("ListBlocked", mock.Anything, "alice").Return([]models.BlockedUser{}, nil)

	chatID, err := a.CreateChat(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, chatID)
	chats.AssertExpectations(t)
}

func TestUpdateChatNameOnlyCreator(t *testing.T) {
	a, chats, _, _, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "bob"})
	chats.On("GetChat", mock.Anything, "c1").Return(models.Chat{ID: "c1", CreatedBy: "alice"}, nil)

	assert.ErrorIs(t, a.UpdateChatName(context.Background(), "c1", "new name"), ErrNotCreator)
	chats.AssertNotCalled(t, "UpdateChatName", mock.Anything, mock.Anything, mock.Anything)
}

func TestBlockEvictsChatLocally(t *testing.T) {
	a, _, _, users, _, st := newChatFixture(t)
	st.SetCurrentUser(models.User{Username: "alice"})
	st.MergeChats([]models.Chat{{ID: "c1", Name: "mallory"}})
	users.On("Block", mock.Anything, "alice", "mallory", "c1").Return(nil)

	require.NoError(t, a.Block(context.Background(), "c1", "mallory"))
	_, ok := st.Chat("c1")
	assert.False(t, ok)
}

func TestCreateTemporaryCodeSetsExpiry(t *testing.T) {
	a, _, codes, _, _, _ := newChatFixture(t)
	codes.On("PermanentCodeExists", mock.Anything, mock.Anything).Return(false, nil)
	codes.On("ChatForTemporaryCode", mock.Anything, mock.Anything, mock.Anything).
		Return("", repositories.ErrCodeNotFound)
	codes.On("InsertTemporaryCode", mock.Anything, mock.Anything, "c1",
		mock.MatchedBy(func(at time.Time) bool { return at.After(time.Now()) })).Return(nil)

	code, err := a.CreateTemporaryCode(context.Background(), "c1", time.Hour)
	require.NoError(t, err)
	assert.Len(t, code, 5)
}
