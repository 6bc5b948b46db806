package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"anonchat/internal/models"
)

var ErrRoomNotFound = errors.New("chat room not found")

// RoomRepository abstracts public chat room persistence.
type RoomRepository interface {
	List(ctx context.Context) ([]models.ChatRoom, error)
	Get(ctx context.Context, id string) (models.ChatRoom, error)
	Create(ctx context.Context, name, description, createdBy string) (models.ChatRoom, error)
	Delete(ctx context.Context, id string) error
	SeedDefaults(ctx context.Context) error
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// List returns all rooms, newest first.
func (r *RoomRepo) List(ctx context.Context) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.SelectContext(ctx, &rooms, `SELECT * FROM chat_rooms ORDER BY created_at DESC`)
	return rooms, err
}

// Get fetches a room by id.
func (r *RoomRepo) Get(ctx context.Context, id string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT * FROM chat_rooms WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// Create inserts a new public room.
func (r *RoomRepo) Create(ctx context.Context, name, description, createdBy string) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_rooms (id, name, description, created_by) VALUES ($1, $2, $3, $4)
         RETURNING id, name, description, created_by, created_at`,
		uuid.NewString(), name, description, createdBy).StructScan(&room)
	return room, err
}

// Delete removes a room and its messages.
func (r *RoomRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_rooms WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrRoomNotFound)
}

// SeedDefaults creates the stock rooms when the table is empty.
func (r *RoomRepo) SeedDefaults(ctx context.Context) error {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM chat_rooms`); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []struct {
		name, description string
	}{
		{"General Chat", "Welcome to the general discussion room"},
		{"Random", "Talk about anything and everything"},
		{"Tech Talk", "Discuss technology, programming, and innovation"},
	}
	for _, d := range defaults {
		if _, err := r.Create(ctx, d.name, d.description, "system"); err != nil {
			return err
		}
	}
	return nil
}
