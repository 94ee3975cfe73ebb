package models

import "time"

// MaxChatParticipants caps membership of a chat. Joins beyond the cap are
// rejected with a room-full error.
const MaxChatParticipants = 2

// Chat represents a two-party conversation thread. Name and Avatar are
// derived client-side: a chat is displayed under the other participant's
// username and avatar when one exists.
type Chat struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	Participants []string  `json:"participants"`
	Avatar       string    `json:"avatar,omitempty"`
	LastMessage  string    `json:"last_message,omitempty"`
}

// OtherParticipant returns the participant that is not the given user, or
// "" for a chat the user occupies alone.
func (c Chat) OtherParticipant(username string) string {
	for _, p := range c.Participants {
		if p != username {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether username is a member of the chat.
func (c Chat) HasParticipant(username string) bool {
	for _, p := range c.Participants {
		if p == username {
			return true
		}
	}
	return false
}

// FriendCode maps a short join token to a chat. Temporary codes carry an
// expiry; permanent codes never expire.
type FriendCode struct {
	Code      string     `db:"code" json:"code"`
	ChatID    string     `db:"chat_id" json:"chat_id"`
	CreatedBy string     `db:"created_by" json:"created_by,omitempty"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}
