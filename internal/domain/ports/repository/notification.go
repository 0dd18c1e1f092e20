package repository

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// NotificationRepository is the port for fire-and-forget user notifications.
type NotificationRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Notification) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, tx Tx, userID string) (int, error)
}
