package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationStore = (*NotificationRepo)(nil)

// NotificationRepo is the SQLite implementation of the NotificationStore port interface.
type NotificationRepo struct {
	db *DB
}

// NewNotificationRepo creates a new NotificationRepo backed by the given DB.
func NewNotificationRepo(db *DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Add appends a notification to the history.
func (r *NotificationRepo) Add(ctx context.Context, n model.Notification) error {
	const query = `
		INSERT INTO notifications (repo_full_name, target, subject, summary, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		n.RepoFullName, string(n.Target), n.Subject, n.Summary, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("add notification for %s %s: %w", n.RepoFullName, n.Subject, err)
	}
	return nil
}

// ListRecent returns up to limit notifications, newest first.
func (r *NotificationRepo) ListRecent(ctx context.Context, repoFullName string, limit int) ([]model.Notification, error) {
	const query = `
		SELECT id, repo_full_name, target, subject, summary, created_at
		FROM notifications
		WHERE (? = '' OR repo_full_name = ?)
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName, repoFullName, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var target, createdAt string
		if err := rows.Scan(&n.ID, &n.RepoFullName, &target, &n.Subject, &n.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Target = model.NotificationTarget(target)
		n.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for notification %d: %w", n.ID, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return result, nil
}
