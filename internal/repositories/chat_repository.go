package repositories

import (
	"context"
	"database/sql"
	_ "embed"
	"visitdesk/internal/models"
)

//go:embed migrations/002_create_chats_table_up.sql
var createChatsTableQuery string

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) (*ChatRepository, error) {
	repo := ChatRepository{db: db}
	if _, err := repo.db.Exec(createChatsTableQuery); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetOrCreate inserts the normalized pair and falls back to a select when the
// unique constraint reports the chat already exists. Concurrent callers for
// the same pair converge on one row.
func (r *ChatRepository) GetOrCreate(ctx context.Context, a, b string) (*models.Chat, bool, error) {
	low, high := models.NormalizePair(a, b)

	chat := models.Chat{ParticipantA: low, ParticipantB: high}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO chats (participant_a, participant_b) VALUES ($1, $2)
		 ON CONFLICT (participant_a, participant_b) DO NOTHING
		 RETURNING id, created_at`,
		low, high).Scan(&chat.ID, &chat.CreatedAt)
	if err == nil {
		return &chat, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM chats WHERE participant_a = $1 AND participant_b = $2",
		low, high).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	return &chat, false, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.QueryRowContext(ctx,
		"SELECT id, participant_a, participant_b, created_at FROM chats WHERE id = $1", chatID).
		Scan(&chat.ID, &chat.ParticipantA, &chat.ParticipantB, &chat.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) GetUserChats(ctx context.Context, userID string) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, participant_a, participant_b, created_at
		 FROM chats
		 WHERE participant_a = $1 OR participant_b = $1
		 ORDER BY created_at DESC, id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		if err := rows.Scan(&chat.ID, &chat.ParticipantA, &chat.ParticipantB, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}
