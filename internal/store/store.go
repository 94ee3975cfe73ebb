// Package store holds the client-side cache of remote chat state. It is the
// single source of truth the UI renders from; realtime events, pollers and
// user actions all mutate it through the small patch operations below, which
// are safe under arbitrary interleaving.
package store

import (
	"log"
	"sync"

	"chat-client/internal/models"
)

// ProfileCache persists the profile side-cache to durable local storage.
// Write failures are logged, never surfaced: the in-memory view wins.
type ProfileCache interface {
	LoadProfiles() (map[string]models.Profile, error)
	SaveProfiles(map[string]models.Profile) error
}

// Store is the in-memory cache. All methods are synchronous and never fail
// from the caller's perspective.
type Store struct {
	mu    sync.RWMutex
	cache ProfileCache

	currentUser *models.User
	activeChat  string
	chats       []models.Chat
	messages    map[string][]models.Message
	pinned      map[string][]models.Message
	unread      map[string]int
	typing      map[string]map[string]struct{}
	profiles    map[string]models.Profile
	statuses    map[string]models.UserStatus
}

// New builds an empty store. cache may be nil, in which case profiles are
// kept in memory only.
func New(cache ProfileCache) *Store {
	return &Store{
		cache:    cache,
		messages: make(map[string][]models.Message),
		pinned:   make(map[string][]models.Message),
		unread:   make(map[string]int),
		typing:   make(map[string]map[string]struct{}),
		profiles: make(map[string]models.Profile),
		statuses: make(map[string]models.UserStatus),
	}
}

// SetCurrentUser records the logged-in user.
func (s *Store) SetCurrentUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = &user
}

// CurrentUser returns the logged-in user, if any.
func (s *Store) CurrentUser() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentUser == nil {
		return models.User{}, false
	}
	return *s.currentUser, true
}

// SetActiveChat marks chatID as the chat currently on screen and zeroes its
// unread counter. An empty id means no chat is active.
func (s *Store) SetActiveChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeChat = chatID
	if chatID != "" {
		s.unread[chatID] = 0
	}
}

// ActiveChat returns the id of the chat on screen, or "".
func (s *Store) ActiveChat() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChat
}

// ResetUnread zeroes the unread counter for a chat. Idempotent.
func (s *Store) ResetUnread(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[chatID] = 0
}

// IncrementUnread bumps the unread counter for a chat. Callers must not
// invoke it for the active chat.
func (s *Store) IncrementUnread(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[chatID]++
}

// UnreadCount returns the unread counter for a chat.
func (s *Store) UnreadCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[chatID]
}

// MergeChats replaces the chat collection wholesale while preserving unread
// counters already known and zero-initializing counters for chats seen for
// the first time. Counter preservation matters because a realtime increment
// may land between the remote read and this merge.
func (s *Store) MergeChats(chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	for _, c := range chats {
		if _, known := s.unread[c.ID]; !known {
			s.unread[c.ID] = 0
		}
	}
}

// Chats returns a copy of the cached chat list.
func (s *Store) Chats() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Chat(nil), s.chats...)
}

// Chat looks up a cached chat by id.
func (s *Store) Chat(chatID string) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return models.Chat{}, false
}

// SetMessages replaces the cached message sequence for a chat, e.g. after a
// full reload.
func (s *Store) SetMessages(chatID string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[chatID] = msgs
}

// AppendMessage adds a message to the end of a chat's sequence. Sequence
// order is arrival order, not timestamp order.
func (s *Store) AppendMessage(chatID string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[chatID] = append(s.messages[chatID], msg)
}

// Messages returns a copy of the cached message sequence for a chat.
func (s *Store) Messages(chatID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages[chatID]...)
}

// RemoveMessage deletes a message from a chat's sequence and from the
// pinned list, if present. Missing messages are a no-op.
func (s *Store) RemoveMessage(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			s.messages[chatID] = append(msgs[:i:i], msgs[i+1:]...)
			break
		}
	}
	pins := s.pinned[chatID]
	for i := range pins {
		if pins[i].ID == messageID {
			s.pinned[chatID] = append(pins[:i:i], pins[i+1:]...)
			return
		}
	}
}

// SetPinnedMessages replaces the cached pinned list for a chat.
func (s *Store) SetPinnedMessages(chatID string, msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned[chatID] = msgs
}

// PinnedMessages returns a copy of the cached pinned list for a chat.
func (s *Store) PinnedMessages(chatID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.pinned[chatID]...)
}

// PatchMessageStatus overwrites the delivery status of a single message.
// Missing messages and status downgrades are silent no-ops.
func (s *Store) PatchMessageStatus(chatID, messageID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			if models.StatusRank(status) > models.StatusRank(msgs[i].Status) {
				msgs[i].Status = status
			}
			return
		}
	}
}

// AddReaction records username reacting with emoji on a message. Idempotent;
// a missing message is a no-op.
func (s *Store) AddReaction(chatID, messageID, emoji, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			if msgs[i].Reactions == nil {
				msgs[i].Reactions = models.Reactions{}
			}
			msgs[i].Reactions.Add(emoji, username)
			return
		}
	}
}

// RemoveReaction removes username's emoji reaction from a message. Removing
// an absent reaction is a no-op.
func (s *Store) RemoveReaction(chatID, messageID, emoji, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Reactions.Remove(emoji, username)
			return
		}
	}
}

// PutProfile caches a profile fetched explicitly from the remote service and
// persists the side-cache.
func (s *Store) PutProfile(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Username] = profile
	s.persistProfilesLocked()
}

// Profile returns the cached profile for a username, if any.
func (s *Store) Profile(username string) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[username]
	return p, ok
}

// MergeProfile applies a single-field profile update. Updates for users not
// yet cached are dropped (profiles enter the cache only on explicit fetch);
// an avatar change additionally propagates into every chat displayed under
// that username and every cached message the user authored, in the same
// pass.
func (s *Store) MergeProfile(username, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[username]; ok {
		switch field {
		case models.ProfileFieldAvatar:
			p.Avatar = value
		case models.ProfileFieldBio:
			p.Bio = value
		default:
			return
		}
		s.profiles[username] = p
		s.persistProfilesLocked()
	}

	if field != models.ProfileFieldAvatar {
		return
	}
	for i := range s.chats {
		if s.chats[i].Name == username {
			s.chats[i].Avatar = value
		}
	}
	for chatID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].Author.Username == username {
				msgs[i].Author.Avatar = value
			}
		}
		s.messages[chatID] = msgs
	}
}

// LoadCachedProfiles seeds the profile cache from durable storage, keeping
// any profile already fetched this session.
func (s *Store) LoadCachedProfiles() {
	if s.cache == nil {
		return
	}
	cached, err := s.cache.LoadProfiles()
	if err != nil {
		log.Printf("load cached profiles: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for username, p := range cached {
		if _, ok := s.profiles[username]; !ok {
			s.profiles[username] = p
		}
	}
}

// EvictChat removes a chat together with its messages and unread counter.
func (s *Store) EvictChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.chats {
		if c.ID == chatID {
			s.chats = append(s.chats[:i:i], s.chats[i+1:]...)
			break
		}
	}
	delete(s.messages, chatID)
	delete(s.pinned, chatID)
	delete(s.unread, chatID)
	delete(s.typing, chatID)
	if s.activeChat == chatID {
		s.activeChat = ""
	}
}

// SetTyping adds or removes username from a chat's typing set.
func (s *Store) SetTyping(chatID, username string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.typing[chatID]
	if isTyping {
		if set == nil {
			set = make(map[string]struct{})
			s.typing[chatID] = set
		}
		set[username] = struct{}{}
		return
	}
	delete(set, username)
}

// TypingUsers returns the usernames currently typing in a chat.
func (s *Store) TypingUsers(chatID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.typing[chatID]))
	for u := range s.typing[chatID] {
		users = append(users, u)
	}
	return users
}

// SetStatuses replaces the cached presence table.
func (s *Store) SetStatuses(statuses []models.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = make(map[string]models.UserStatus, len(statuses))
	for _, st := range statuses {
		s.statuses[st.Username] = st
	}
}

// Statuses returns a copy of the cached presence table.
func (s *Store) Statuses() []models.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	statuses := make([]models.UserStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		statuses = append(statuses, st)
	}
	return statuses
}

// UserStatus returns the cached presence for a username.
func (s *Store) UserStatus(username string) (models.UserStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[username]
	return st, ok
}

// Reset clears all derived state on logout. The durable side-cache is kept:
// profiles survive sessions by design.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = nil
	s.activeChat = ""
	s.chats = nil
	s.messages = make(map[string][]models.Message)
	s.pinned = make(map[string][]models.Message)
	s.unread = make(map[string]int)
	s.typing = make(map[string]map[string]struct{})
	s.profiles = make(map[string]models.Profile)
	s.statuses = make(map[string]models.UserStatus)
}

func (s *Store) persistProfilesLocked() {
	if s.cache == nil {
		return
	}
	snapshot := make(map[string]models.Profile, len(s.profiles))
	for username, p := range s.profiles {
		snapshot[username] = p
	}
	if err := s.cache.SaveProfiles(snapshot); err != nil {
		log.Printf("persist profile cache: %v", err)
	}
}
