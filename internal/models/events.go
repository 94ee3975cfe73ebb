package models

import "time"

// Realtime payloads exchanged over the gateway's broadcast channels.

// StatusEvent announces a delivery-status change for a message.
type StatusEvent struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// TypingEvent announces that a user started or stopped typing in a chat.
type TypingEvent struct {
	ChatID    string    `json:"chat_id"`
	Username  string    `json:"username"`
	IsTyping  bool      `json:"is_typing"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileUpdateEvent announces a single-field profile change.
type ProfileUpdateEvent struct {
	Username string `json:"username"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

// JoinEvent announces that a user joined a chat.
type JoinEvent struct {
	ChatID   string `json:"chat_id"`
	Username string `json:"username"`
}

// ReactionChangeEvent is the row-level change feed payload for the
// message_reactions table.
type ReactionChangeEvent struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	Username  string `json:"username"`
}
