package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat and membership persistence in the remote
// data service.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat models.Chat) error
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error)
	Participants(ctx context.Context, chatID string) ([]string, error)
	IsParticipant(ctx context.Context, chatID, username string) (bool, error)
	AddParticipant(ctx context.Context, chatID, username string) error
	UpdateChatName(ctx context.Context, chatID, name string) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateChat inserts the chat row.
func (r *ChatRepo) CreateChat(ctx context.Context, chat models.Chat) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		chat.ID, chat.Name, chat.CreatedBy, chat.CreatedAt)
	return err
}

// GetChat fetches a chat by id, including its participants.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, name, created_by, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}

	participants, err := r.Participants(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	chat.Participants = participants
	return chat, nil
}

// ListChatsForUser returns every chat the user participates in, newest
// first, with participants and the latest message content attached.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, username string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats,
		`SELECT c.id, c.name, c.created_by, c.created_at FROM chats c
         JOIN chat_participants cp ON cp.chat_id = c.id
         WHERE cp.user_name = $1
         ORDER BY c.created_at DESC`, username)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return chats, nil
	}

	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	query, args, err := sqlx.In(
		`SELECT chat_id, user_name FROM chat_participants WHERE chat_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := map[string][]string{}
	for rows.Next() {
		var chatID, userName string
		if err := rows.Scan(&chatID, &userName); err != nil {
			return nil, err
		}
		participants[chatID] = append(participants[chatID], userName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query, args, err = sqlx.In(
		`SELECT DISTINCT ON (chat_id) chat_id, content FROM messages
         WHERE chat_id IN (?) ORDER BY chat_id, created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	lastRows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer lastRows.Close()

	lastMessages := map[string]string{}
	for lastRows.Next() {
		var chatID, content string
		if err := lastRows.Scan(&chatID, &content); err != nil {
			return nil, err
		}
		lastMessages[chatID] = content
	}
	if err := lastRows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		chats[i].Participants = participants[chats[i].ID]
		chats[i].LastMessage = lastMessages[chats[i].ID]
	}
	return chats, nil
}

// Participants lists the usernames currently in the chat.
func (r *ChatRepo) Participants(ctx context.Context, chatID string) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names,
		`SELECT user_name FROM chat_participants WHERE chat_id=$1 ORDER BY user_name`, chatID)
	return names, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_name=$2)`,
		chatID, username)
	return exists, err
}

// AddParticipant inserts a membership row. Duplicate joins are absorbed so
// the caller's existence check cannot race itself into an error.
func (r *ChatRepo) AddParticipant(ctx context.Context, chatID, username string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_participants (chat_id, user_name) VALUES ($1, $2)
         ON CONFLICT (chat_id, user_name) DO NOTHING`, chatID, username)
	return err
}

// UpdateChatName renames the chat.
func (r *ChatRepo) UpdateChatName(ctx context.Context, chatID, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET name=$2 WHERE id=$1`, chatID, name)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}
