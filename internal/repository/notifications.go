package repository

import (
	"context"

	"notifyd/internal/model"
)

// NotificationRepository archives every record the channel has delivered.
type NotificationRepository interface {
	SaveNotifications(ctx context.Context, notifications []model.Notification) error
	MarkRead(ctx context.Context, id int64) error
	ListNotifications(ctx context.Context, limit int) ([]model.Notification, error)
}
