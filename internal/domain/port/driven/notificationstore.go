package driven

import (
	"context"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// NotificationStore defines the driven port for the notification history.
type NotificationStore interface {
	Add(ctx context.Context, n model.Notification) error
	// ListRecent returns up to limit notifications, newest first. An empty
	// repoFullName lists all repositories.
	ListRecent(ctx context.Context, repoFullName string, limit int) ([]model.Notification, error)
}
