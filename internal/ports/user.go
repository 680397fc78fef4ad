package ports

import (
	"context"
	"visitdesk/internal/models"
)

// IUserDirectory resolves opaque user IDs to identity records. The messaging
// core treats it as read-only.
type IUserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// FilterExisting drops unknown IDs, preserving input order.
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
}
