package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the remote data service and ensures its tables exist.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            avatar TEXT NOT NULL DEFAULT '',
            bio TEXT NOT NULL DEFAULT '',
            password_digest TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS user_statuses (
            username TEXT PRIMARY KEY REFERENCES users(username),
            status TEXT NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            created_by TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS chat_participants (
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            user_name TEXT NOT NULL,
            PRIMARY KEY(chat_id, user_name)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            author_username TEXT NOT NULL,
            author_avatar TEXT NOT NULL DEFAULT '',
            content TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'sent',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS message_statuses (
            message_id TEXT PRIMARY KEY REFERENCES messages(id) ON DELETE CASCADE,
            status TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            emoji TEXT NOT NULL,
            username TEXT NOT NULL,
            PRIMARY KEY(message_id, emoji, username)
        );`,
		`CREATE TABLE IF NOT EXISTS pinned_messages (
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            pinned_by TEXT NOT NULL,
            pinned_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(chat_id, message_id)
        );`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
            blocker_username TEXT NOT NULL,
            blocked_username TEXT NOT NULL,
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            PRIMARY KEY(blocker_username, chat_id)
        );`,
		`CREATE TABLE IF NOT EXISTS friend_codes (
            code TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            expires_at TIMESTAMPTZ NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS permanent_friend_codes (
            code TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            created_by TEXT NOT NULL
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
