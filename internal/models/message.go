package models

import (
	"strings"
	"time"
)

// Delivery statuses for a message. Transitions are monotonic
// (sent -> delivered -> seen); only "seen" is persisted remotely, the
// others are ephemeral broadcast state.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusSeen      = "seen"
)

// StatusRank orders delivery statuses so that downgrades can be rejected.
// Unknown statuses rank below "sent".
func StatusRank(status string) int {
	switch status {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusSeen:
		return 3
	default:
		return 0
	}
}

// AuthorInfo is the denormalized author snapshot stored on every message
// row so messages render without a profile lookup.
type AuthorInfo struct {
	Username string `db:"author_username" json:"username"`
	Avatar   string `db:"author_avatar" json:"avatar"`
}

// Reactions maps an emoji to the set of usernames reacting with it.
type Reactions map[string][]string

// Add inserts username into the reactor set for emoji. Adding twice is the
// same as adding once.
func (r Reactions) Add(emoji, username string) {
	for _, u := range r[emoji] {
		if u == username {
			return
		}
	}
	r[emoji] = append(r[emoji], username)
}

// Remove deletes username from the reactor set for emoji. Removing an
// absent reactor is a no-op. Empty sets are dropped.
func (r Reactions) Remove(emoji, username string) {
	users := r[emoji]
	for i, u := range users {
		if u == username {
			r[emoji] = append(users[:i:i], users[i+1:]...)
			if len(r[emoji]) == 0 {
				delete(r, emoji)
			}
			return
		}
	}
}

// Clone returns a deep copy so cached messages can be patched without
// sharing reactor slices.
func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, users := range r {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}

// Message is a chat message row plus client-side delivery state.
type Message struct {
	ID        string     `db:"id" json:"id"`
	ChatID    string     `db:"chat_id" json:"chat_id"`
	Author    AuthorInfo `json:"author"`
	Content   string     `db:"content" json:"content"`
	Status    string     `db:"status" json:"status"`
	Reactions Reactions  `json:"reactions,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Content tag prefixes marking non-plain-text payloads.
const (
	TagImage     = "[Image]"
	TagVoiceNote = "[VoiceNote]"
	TagSystem    = "[System]"
	TagPoll      = "[Poll]"
)

const previewLimit = 30

// FormatPreview renders message content for the one-line chat list
// preview. Tagged content maps to a short label, system notices show their
// text, and plain text is truncated past 30 characters. Truncation counts
// runes so multi-byte content never splits mid-character.
func FormatPreview(content string) string {
	switch {
	case content == "":
		return "No messages yet"
	case strings.HasPrefix(content, TagImage):
		return "📷 Image"
	case strings.HasPrefix(content, TagVoiceNote):
		return "🎤 Voice message"
	case strings.HasPrefix(content, TagSystem):
		return strings.TrimPrefix(content, TagSystem+" ")
	case strings.HasPrefix(content, TagPoll):
		return "📊 Poll"
	}
	if runes := []rune(content); len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return content
}
