package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// ListRecent returns the newest notifications for the storefront inbox.
	ListRecent(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	// CountUnread feeds the inbox badge.
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationUC struct {
	notifications repository.NotificationRepository
	log           *zerolog.Logger
}

func NewNotificationUseCase(notifications repository.NotificationRepository, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{notifications: notifications, log: logger}
}

func (n *notificationUC) ListRecent(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	return n.notifications.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (n *notificationUC) CountUnread(ctx context.Context, userID string) (int, error) {
	return n.notifications.CountUnread(ctx, repository.NoTX, userID)
}
