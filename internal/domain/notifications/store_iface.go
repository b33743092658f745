package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, assignee string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, assignee string) (int, error)
	MarkRead(ctx context.Context, assignee, notificationID string) (bool, error)
}
