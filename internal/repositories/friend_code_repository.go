package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrCodeNotFound = errors.New("friend code not found")

// FriendCodeRepository defines remote interactions for permanent and
// time-limited friend codes.
type FriendCodeRepository interface {
	PermanentCodeForChat(ctx context.Context, chatID string) (string, error)
	ChatForPermanentCode(ctx context.Context, code string) (string, error)
	ChatForTemporaryCode(ctx context.Context, code string, now time.Time) (string, error)
	PermanentCodeExists(ctx context.Context, code string) (bool, error)
	InsertPermanentCode(ctx context.Context, code, chatID, createdBy string) error
	InsertTemporaryCode(ctx context.Context, code, chatID string, expiresAt time.Time) error
}

// FriendCodeRepo is a sqlx implementation of FriendCodeRepository.
type FriendCodeRepo struct {
	db *sqlx.DB
}

// NewFriendCodeRepo constructs a FriendCodeRepo.
func NewFriendCodeRepo(db *sqlx.DB) *FriendCodeRepo {
	return &FriendCodeRepo{db: db}
}

// PermanentCodeForChat returns the chat's permanent code, if one exists.
func (r *FriendCodeRepo) PermanentCodeForChat(ctx context.Context, chatID string) (string, error) {
	var code string
	err := r.db.GetContext(ctx, &code,
		`SELECT code FROM permanent_friend_codes WHERE chat_id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCodeNotFound
	}
	return code, err
}

// ChatForPermanentCode resolves a permanent code to its chat.
func (r *FriendCodeRepo) ChatForPermanentCode(ctx context.Context, code string) (string, error) {
	var chatID string
	err := r.db.GetContext(ctx, &chatID,
		`SELECT chat_id FROM permanent_friend_codes WHERE code=$1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCodeNotFound
	}
	return chatID, err
}

// ChatForTemporaryCode resolves a time-limited code that has not expired.
func (r *FriendCodeRepo) ChatForTemporaryCode(ctx context.Context, code string, now time.Time) (string, error) {
	var chatID string
	err := r.db.GetContext(ctx, &chatID,
		`SELECT chat_id FROM friend_codes WHERE code=$1 AND expires_at > $2`, code, now)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCodeNotFound
	}
	return chatID, err
}

// PermanentCodeExists checks whether a code value is already in use.
func (r *FriendCodeRepo) PermanentCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM permanent_friend_codes WHERE code=$1)`, code)
	return exists, err
}

// InsertPermanentCode stores a new permanent code.
func (r *FriendCodeRepo) InsertPermanentCode(ctx context.Context, code, chatID, createdBy string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permanent_friend_codes (code, chat_id, created_by) VALUES ($1, $2, $3)`,
		code, chatID, createdBy)
	return err
}

// InsertTemporaryCode stores a time-limited code.
func (r *FriendCodeRepo) InsertTemporaryCode(ctx context.Context, code, chatID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friend_codes (code, chat_id, expires_at) VALUES ($1, $2, $3)`,
		code, chatID, expiresAt)
	return err
}
