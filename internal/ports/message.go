package ports

import (
	"context"
	"visitdesk/internal/models"
)

type IMessageRepository interface {
	CreateDirect(ctx context.Context, senderID string, chatID int64, receiverID, content string) (*models.Message, error)
	CreateBroadcast(ctx context.Context, senderID string, receiverIDs []string, content string) (*models.Message, error)

	// UpdateContent mutates content only; it returns nil when no message with
	// that id is owned by senderID.
	UpdateContent(ctx context.Context, messageID int64, senderID, content string) (*models.Message, error)
	// Delete reports whether a row owned by senderID was removed.
	Delete(ctx context.Context, messageID int64, senderID string) (bool, error)

	GetReceived(ctx context.Context, userID string) ([]models.Message, error)
	GetSent(ctx context.Context, userID string) ([]models.Message, error)
	CountUnseen(ctx context.Context, userID string) (int, error)
	GetChatMessages(ctx context.Context, chatID int64) ([]models.Message, error)

	MarkChatSeen(ctx context.Context, chatID int64, userID string) error
	MarkBroadcastSeen(ctx context.Context, userID string) error
}
