package repositories

import (
	"context"
	"database/sql"
	_ "embed"
	"visitdesk/internal/models"

	"github.com/lib/pq"
)

//go:embed migrations/003_create_messages_table_up.sql
var createMessagesTableQuery string

//go:embed migrations/004_create_message_receivers_up.sql
var createMessageReceiversQuery string

//go:embed migrations/005_create_message_seen_up.sql
var createMessageSeenQuery string

// messageColumns aggregates the receiver and seen relations per row so a
// single query returns complete messages.
const messageColumns = `
	m.id, m.sender_id, m.chat_id, m.message_type, m.content, m.created_at,
	COALESCE(array_agg(DISTINCT r.user_id) FILTER (WHERE r.user_id IS NOT NULL), '{}'),
	COALESCE(array_agg(DISTINCT s.user_id) FILTER (WHERE s.user_id IS NOT NULL), '{}')`

const messageJoins = `
	LEFT JOIN message_receivers r ON r.message_id = m.id
	LEFT JOIN message_seen s ON s.message_id = m.id`

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) (*MessageRepository, error) {
	repo := MessageRepository{db: db}
	for _, query := range []string{createMessagesTableQuery, createMessageReceiversQuery, createMessageSeenQuery} {
		if _, err := repo.db.Exec(query); err != nil {
			return nil, err
		}
	}
	return &repo, nil
}

func (r *MessageRepository) CreateDirect(ctx context.Context, senderID string, chatID int64, receiverID, content string) (*models.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := models.Message{
		SenderID:  senderID,
		ChatID:    &chatID,
		Type:      models.MessageTypeDirect,
		Content:   content,
		Receivers: []string{receiverID},
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (sender_id, chat_id, message_type, content)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		senderID, chatID, models.MessageTypeDirect, content).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO message_receivers (message_id, user_id) VALUES ($1, $2)",
		msg.ID, receiverID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) CreateBroadcast(ctx context.Context, senderID string, receiverIDs []string, content string) (*models.Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := models.Message{
		SenderID:  senderID,
		Type:      models.MessageTypeBroadcast,
		Content:   content,
		Receivers: receiverIDs,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (sender_id, message_type, content)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		senderID, models.MessageTypeBroadcast, content).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return nil, err
	}

	for _, receiverID := range receiverIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO message_receivers (message_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			msg.ID, receiverID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, messageID int64, senderID, content string) (*models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowContext(ctx,
		`UPDATE messages SET content = $1 WHERE id = $2 AND sender_id = $3
		 RETURNING id, sender_id, chat_id, message_type, content, created_at`,
		content, messageID, senderID).
		Scan(&msg.ID, &msg.SenderID, &msg.ChatID, &msg.Type, &msg.Content, &msg.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadRelations(ctx, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) Delete(ctx context.Context, messageID int64, senderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM messages WHERE id = $1 AND sender_id = $2", messageID, senderID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *MessageRepository) GetReceived(ctx context.Context, userID string) ([]models.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m
		 JOIN message_receivers mr ON mr.message_id = m.id AND mr.user_id = $1`+messageJoins+`
		 GROUP BY m.id
		 ORDER BY m.created_at DESC, m.id ASC`,
		userID)
}

func (r *MessageRepository) GetSent(ctx context.Context, userID string) ([]models.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m`+messageJoins+`
		 WHERE m.sender_id = $1
		 GROUP BY m.id
		 ORDER BY m.created_at DESC, m.id ASC`,
		userID)
}

func (r *MessageRepository) GetChatMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	return r.queryMessages(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m`+messageJoins+`
		 WHERE m.chat_id = $1
		 GROUP BY m.id
		 ORDER BY m.created_at DESC, m.id ASC`,
		chatID)
}

func (r *MessageRepository) CountUnseen(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 JOIN message_receivers mr ON mr.message_id = m.id AND mr.user_id = $1
		 WHERE NOT EXISTS (
			SELECT 1 FROM message_seen s WHERE s.message_id = m.id AND s.user_id = $1
		 )`,
		userID).Scan(&count)
	return count, err
}

// MarkChatSeen adds userID to the seen set of every message in the chat.
// The conflict clause makes re-marking a no-op.
func (r *MessageRepository) MarkChatSeen(ctx context.Context, chatID int64, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_seen (message_id, user_id)
		 SELECT m.id, $2 FROM messages m WHERE m.chat_id = $1
		 ON CONFLICT DO NOTHING`,
		chatID, userID)
	return err
}

func (r *MessageRepository) MarkBroadcastSeen(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_seen (message_id, user_id)
		 SELECT m.id, $1 FROM messages m
		 JOIN message_receivers mr ON mr.message_id = m.id AND mr.user_id = $1
		 WHERE m.message_type = $2
		 ON CONFLICT DO NOTHING`,
		userID, models.MessageTypeBroadcast)
	return err
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...interface{}) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var receivers, seenBy pq.StringArray
		err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ChatID, &msg.Type, &msg.Content,
			&msg.Timestamp, &receivers, &seenBy)
		if err != nil {
			return nil, err
		}
		msg.Receivers = receivers
		msg.SeenBy = seenBy
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) loadRelations(ctx context.Context, msg *models.Message) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM message_receivers WHERE message_id = $1", msg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		msg.Receivers = append(msg.Receivers, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	seenRows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM message_seen WHERE message_id = $1", msg.ID)
	if err != nil {
		return err
	}
	defer seenRows.Close()
	for seenRows.Next() {
		var id string
		if err := seenRows.Scan(&id); err != nil {
			return err
		}
		msg.SeenBy = append(msg.SeenBy, id)
	}
	return seenRows.Err()
}
