package ports

import (
	"context"
	"visitdesk/internal/models"
)

type IChatRepository interface {
	// GetOrCreate returns the chat for the unordered pair {a, b}, creating it
	// if absent. The second result reports whether a row was created.
	GetOrCreate(ctx context.Context, a, b string) (*models.Chat, bool, error)
	GetByID(ctx context.Context, chatID int64) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID string) ([]models.Chat, error)
}
