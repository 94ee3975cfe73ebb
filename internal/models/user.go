package models

import "time"

// User is the logged-in account as stored in the remote users table.
type User struct {
	Username  string    `db:"username" json:"username"`
	Avatar    string    `db:"avatar" json:"avatar"`
	Bio       string    `db:"bio" json:"bio,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile is the cached public view of another user. Profiles enter the
// cache only on an explicit fetch (cache-aside) and are persisted to the
// durable side-cache to survive restarts.
type Profile struct {
	Username string `db:"username" json:"username"`
	Avatar   string `db:"avatar" json:"avatar"`
	Bio      string `db:"bio" json:"bio,omitempty"`
}

// Profile fields that remote updates may target.
const (
	ProfileFieldAvatar = "avatar"
	ProfileFieldBio    = "bio"
)

// UserStatus is a row of the user_statuses presence table.
type UserStatus struct {
	Username  string    `db:"username" json:"username"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// BlockedUser records that blocker no longer wants to see the given chat.
type BlockedUser struct {
	BlockerUsername string `db:"blocker_username" json:"blocker_username"`
	BlockedUsername string `db:"blocked_username" json:"blocked_username"`
	ChatID          string `db:"chat_id" json:"chat_id"`
}
