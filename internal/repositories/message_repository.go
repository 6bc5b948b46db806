package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"anonchat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for room and chat messages.
type MessageRepository interface {
	CreateRoomMessage(ctx context.Context, roomID, senderID, senderName, content, msgType string) (models.Message, error)
	CreateChatMessage(ctx context.Context, chatID, senderID, senderName, content, msgType string) (models.Message, error)
	ListForRoom(ctx context.Context, roomID string) ([]models.Message, error)
	ListForChat(ctx context.Context, chatID string) ([]models.Message, error)
	Get(ctx context.Context, messageID string) (models.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	MarkChatRead(ctx context.Context, chatID, readerID string) ([]string, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageCols = `id, chat_room_id, private_chat_id, sender_id, sender_name, content, message_type, is_read, created_at`

// CreateRoomMessage stores a message posted to a public room.
func (r *MessageRepo) CreateRoomMessage(ctx context.Context, roomID, senderID, senderName, content, msgType string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, chat_room_id, sender_id, sender_name, content, message_type)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageCols,
		uuid.NewString(), roomID, senderID, senderName, content, msgType).StructScan(&msg)
	return msg, err
}

// CreateChatMessage stores a message in a private conversation.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, chatID, senderID, senderName, content, msgType string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, private_chat_id, sender_id, sender_name, content, message_type)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageCols,
		uuid.NewString(), chatID, senderID, senderName, content, msgType).StructScan(&msg)
	return msg, err
}

// ListForRoom returns room history ordered by creation time ascending.
func (r *MessageRepo) ListForRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageCols+` FROM messages WHERE chat_room_id=$1 ORDER BY created_at ASC`, roomID)
	return msgs, err
}

// ListForChat returns conversation history ordered by creation time ascending.
func (r *MessageRepo) ListForChat(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageCols+` FROM messages WHERE private_chat_id=$1 ORDER BY created_at ASC`, chatID)
	return msgs, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageCols+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead flips the read flag on one message. Everything else about a
// delivered message is immutable.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrMessageNotFound)
}

// MarkChatRead marks every message in the conversation not authored by
// the reader as read, returning the affected ids for change-feed fan-out.
func (r *MessageRepo) MarkChatRead(ctx context.Context, chatID, readerID string) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx,
		`UPDATE messages SET is_read=TRUE
         WHERE private_chat_id=$1 AND sender_id<>$2 AND is_read=FALSE
         RETURNING id`, chatID, readerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
