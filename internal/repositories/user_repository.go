package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserRepository defines remote interactions for accounts, profiles,
// presence and blocking.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User, passwordDigest string) error
	Credentials(ctx context.Context, username string) (models.User, string, error)
	GetProfile(ctx context.Context, username string) (models.Profile, error)
	UpdateProfileField(ctx context.Context, username, field, value string) error
	UpsertStatus(ctx context.Context, username, status string) error
	ListStatuses(ctx context.Context) ([]models.UserStatus, error)
	Block(ctx context.Context, blocker, blocked, chatID string) error
	Unblock(ctx context.Context, blocker, chatID string) error
	ListBlocked(ctx context.Context, blocker string) ([]models.BlockedUser, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser registers an account. A taken username is reported as
// ErrUsernameTaken.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User, passwordDigest string) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`, user.Username); err != nil {
		return err
	}
	if exists {
		return ErrUsernameTaken
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, avatar, bio, password_digest) VALUES ($1, $2, $3, $4)`,
		user.Username, user.Avatar, user.Bio, passwordDigest)
	return err
}

// Credentials fetches the account row and its password digest.
func (r *UserRepo) Credentials(ctx context.Context, username string) (models.User, string, error) {
	var row struct {
		models.User
		PasswordDigest string `db:"password_digest"`
	}
	err := r.db.GetContext(ctx, &row,
		`SELECT username, avatar, bio, password_digest, created_at FROM users WHERE username=$1`,
		username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", ErrUserNotFound
	}
	if err != nil {
		return models.User{}, "", err
	}
	return row.User, row.PasswordDigest, nil
}

// GetProfile fetches the public profile for a username.
func (r *UserRepo) GetProfile(ctx context.Context, username string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT username, avatar, bio FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrUserNotFound
	}
	return profile, err
}

// profileColumns whitelists the columns a field update may target.
var profileColumns = map[string]string{
	models.ProfileFieldAvatar: "avatar",
	models.ProfileFieldBio:    "bio",
}

// UpdateProfileField overwrites a single profile column.
func (r *UserRepo) UpdateProfileField(ctx context.Context, username, field, value string) error {
	column, ok := profileColumns[field]
	if !ok {
		return fmt.Errorf("unknown profile field %q", field)
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s=$2 WHERE username=$1`, column), username, value)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpsertStatus records the user's presence.
func (r *UserRepo) UpsertStatus(ctx context.Context, username, status string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_statuses (username, status, updated_at) VALUES ($1, $2, NOW())
         ON CONFLICT (username) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`,
		username, status)
	return err
}

// ListStatuses returns presence for every known user.
func (r *UserRepo) ListStatuses(ctx context.Context) ([]models.UserStatus, error) {
	var statuses []models.UserStatus
	err := r.db.SelectContext(ctx, &statuses,
		`SELECT username, status, updated_at FROM user_statuses`)
	return statuses, err
}

// Block hides the given chat from the blocker.
func (r *UserRepo) Block(ctx context.Context, blocker, blocked, chatID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blocked_users (blocker_username, blocked_username, chat_id) VALUES ($1, $2, $3)
         ON CONFLICT (blocker_username, chat_id) DO NOTHING`, blocker, blocked, chatID)
	return err
}

// Unblock removes the block for a chat.
func (r *UserRepo) Unblock(ctx context.Context, blocker, chatID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_users WHERE blocker_username=$1 AND chat_id=$2`, blocker, chatID)
	return err
}

// ListBlocked returns the blocker's block list.
func (r *UserRepo) ListBlocked(ctx context.Context, blocker string) ([]models.BlockedUser, error) {
	var blocked []models.BlockedUser
	err := r.db.SelectContext(ctx, &blocked,
		`SELECT blocker_username, blocked_username, chat_id FROM blocked_users WHERE blocker_username=$1`,
		blocker)
	return blocked, err
}
