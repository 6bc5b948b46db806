package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"anonchat/internal/models"
)

var (
	ErrChatNotFound = errors.New("private chat not found")
	ErrSelfChat     = errors.New("cannot create chat with self")
	ErrNotBlocker   = errors.New("only the blocking user may unblock")
)

// PrivateChatRepository abstracts private conversation persistence.
type PrivateChatRepository interface {
	FindOrCreate(ctx context.Context, userID, otherID string) (models.PrivateChat, error)
	Get(ctx context.Context, chatID string) (models.PrivateChat, error)
	ListForUser(ctx context.Context, userID string) ([]models.ChatView, error)
	Touch(ctx context.Context, chatID string) error
	Block(ctx context.Context, chatID, byUserID string) error
	Unblock(ctx context.Context, chatID, byUserID string) error
}

// PrivateChatRepo is a sqlx implementation of PrivateChatRepository.
type PrivateChatRepo struct {
	db *sqlx.DB
}

// NewPrivateChatRepo constructs a PrivateChatRepo.
func NewPrivateChatRepo(db *sqlx.DB) *PrivateChatRepo {
	return &PrivateChatRepo{db: db}
}

// FindOrCreate returns the unique conversation for the unordered pair,
// creating it if absent. The pair is normalized lower-id-first and the
// table carries a UNIQUE constraint on it, so concurrent callers cannot
// produce duplicates: the losing insert falls through to the select.
func (r *PrivateChatRepo) FindOrCreate(ctx context.Context, userID, otherID string) (models.PrivateChat, error) {
	if userID == otherID {
		return models.PrivateChat{}, ErrSelfChat
	}
	p1, p2 := userID, otherID
	if p2 < p1 {
		p1, p2 = p2, p1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO private_chats (id, participant_1, participant_2)
         VALUES ($1, $2, $3)
         ON CONFLICT (participant_1, participant_2) DO NOTHING`,
		uuid.NewString(), p1, p2)
	if err != nil {
		return models.PrivateChat{}, err
	}

	var chat models.PrivateChat
	err = r.db.GetContext(ctx, &chat,
		`SELECT * FROM private_chats WHERE participant_1=$1 AND participant_2=$2`, p1, p2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PrivateChat{}, ErrChatNotFound
	}
	return chat, err
}

// Get fetches a conversation by id.
func (r *PrivateChatRepo) Get(ctx context.Context, chatID string) (models.PrivateChat, error) {
	var chat models.PrivateChat
	err := r.db.GetContext(ctx, &chat, `SELECT * FROM private_chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PrivateChat{}, ErrChatNotFound
	}
	return chat, err
}

// ListForUser returns the user's conversations ordered by last activity,
// enriched with both participants' profile info and the unread count for
// the requesting user (messages not authored by them and not yet read).
func (r *PrivateChatRepo) ListForUser(ctx context.Context, userID string) ([]models.ChatView, error) {
	query := `SELECT c.id, c.participant_1, c.participant_2, c.blocked_by, c.created_at, c.last_activity,
            p1.username AS participant_1_username, p1.avatar_url AS participant_1_avatar,
            p2.username AS participant_2_username, p2.avatar_url AS participant_2_avatar,
            (SELECT COUNT(*) FROM messages m
                WHERE m.private_chat_id = c.id AND m.sender_id <> $1 AND m.is_read = FALSE) AS unread_count
        FROM private_chats c
        JOIN profiles p1 ON p1.id = c.participant_1
        JOIN profiles p2 ON p2.id = c.participant_2
        WHERE c.participant_1=$1 OR c.participant_2=$1
        ORDER BY c.last_activity DESC`
	var views []models.ChatView
	err := r.db.SelectContext(ctx, &views, query, userID)
	return views, err
}

// Touch bumps the conversation's last-activity timestamp.
func (r *PrivateChatRepo) Touch(ctx context.Context, chatID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE private_chats SET last_activity=NOW() WHERE id=$1`, chatID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrChatNotFound)
}

// Block sets the blocked-by marker to the acting participant.
func (r *PrivateChatRepo) Block(ctx context.Context, chatID, byUserID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE private_chats SET blocked_by=$2
         WHERE id=$1 AND (participant_1=$2 OR participant_2=$2)`, chatID, byUserID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrChatNotFound)
}

// Unblock clears the marker, but only for the participant who set it.
func (r *PrivateChatRepo) Unblock(ctx context.Context, chatID, byUserID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE private_chats SET blocked_by=NULL WHERE id=$1 AND blocked_by=$2`, chatID, byUserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, chatID); getErr != nil {
			return getErr
		}
		return ErrNotBlocker
	}
	return nil
}
