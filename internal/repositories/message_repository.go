package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-client/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines remote interactions for messages, delivery
// statuses, reactions and pins.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	UpsertSeenStatus(ctx context.Context, messageID string) error
	AddReaction(ctx context.Context, messageID, emoji, username string) error
	RemoveReaction(ctx context.Context, messageID, emoji, username string) error
	PinMessage(ctx context.Context, chatID, messageID, pinnedBy string) error
	UnpinMessage(ctx context.Context, chatID, messageID string) error
	ListPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message row with its denormalized author snapshot.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, author_username, author_avatar, content, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ChatID, msg.Author.Username, msg.Author.Avatar, msg.Content, msg.Status, msg.CreatedAt)
	return err
}

// ListMessages returns the chat's messages in creation-timestamp order with
// reactions attached and durable seen statuses merged over the row status.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT id, chat_id, author_username, author_avatar, content, status, created_at
         FROM messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	byID := map[string]int{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Author.Username, &m.Author.Avatar,
			&m.Content, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		byID[m.ID] = len(msgs)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	reactionRows, err := r.db.QueryxContext(ctx,
		`SELECT mr.message_id, mr.emoji, mr.username FROM message_reactions mr
         JOIN messages m ON m.id = mr.message_id WHERE m.chat_id=$1`, chatID)
	if err != nil {
		return nil, err
	}
	defer reactionRows.Close()

	for reactionRows.Next() {
		var messageID, emoji, username string
		if err := reactionRows.Scan(&messageID, &emoji, &username); err != nil {
			return nil, err
		}
		if i, ok := byID[messageID]; ok {
			if msgs[i].Reactions == nil {
				msgs[i].Reactions = models.Reactions{}
			}
			msgs[i].Reactions.Add(emoji, username)
		}
	}
	if err := reactionRows.Err(); err != nil {
		return nil, err
	}

	var seenIDs []string
	err = r.db.SelectContext(ctx, &seenIDs,
		`SELECT ms.message_id FROM message_statuses ms
         JOIN messages m ON m.id = ms.message_id
         WHERE m.chat_id=$1 AND ms.status=$2`, chatID, models.MessageStatusSeen)
	if err != nil {
		return nil, err
	}
	for _, id := range seenIDs {
		if i, ok := byID[id]; ok {
			msgs[i].Status = models.MessageStatusSeen
		}
	}
	return msgs, nil
}

// DeleteMessage removes a message row. Reaction, status and pin rows go
// with it via cascade.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UpsertSeenStatus durably records that a message has been seen. Only the
// seen status is persisted; sent/delivered stay ephemeral.
func (r *MessageRepo) UpsertSeenStatus(ctx context.Context, messageID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_statuses (message_id, status) VALUES ($1, $2)
         ON CONFLICT (message_id) DO UPDATE SET status = EXCLUDED.status`,
		messageID, models.MessageStatusSeen)
	return err
}

// AddReaction inserts a reaction row. Re-adding an existing reaction is a
// no-op.
func (r *MessageRepo) AddReaction(ctx context.Context, messageID, emoji, username string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_reactions (message_id, emoji, username) VALUES ($1, $2, $3)
         ON CONFLICT (message_id, emoji, username) DO NOTHING`, messageID, emoji, username)
	return err
}

// RemoveReaction deletes a reaction row. Removing an absent reaction is a
// no-op.
func (r *MessageRepo) RemoveReaction(ctx context.Context, messageID, emoji, username string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id=$1 AND emoji=$2 AND username=$3`,
		messageID, emoji, username)
	return err
}

// PinMessage inserts a pin row. Re-pinning a pinned message is a no-op.
func (r *MessageRepo) PinMessage(ctx context.Context, chatID, messageID, pinnedBy string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pinned_messages (chat_id, message_id, pinned_by) VALUES ($1, $2, $3)
         ON CONFLICT (chat_id, message_id) DO NOTHING`, chatID, messageID, pinnedBy)
	return err
}

// UnpinMessage deletes a pin row. Unpinning an unpinned message is a no-op.
func (r *MessageRepo) UnpinMessage(ctx context.Context, chatID, messageID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pinned_messages WHERE chat_id=$1 AND message_id=$2`, chatID, messageID)
	return err
}

// ListPinnedMessages returns the chat's pinned messages in pin order.
func (r *MessageRepo) ListPinnedMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT m.id, m.chat_id, m.author_username, m.author_avatar, m.content, m.status, m.created_at
         FROM pinned_messages pm
         JOIN messages m ON m.id = pm.message_id
         WHERE pm.chat_id=$1 ORDER BY pm.pinned_at ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Author.Username, &m.Author.Avatar,
			&m.Content, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
