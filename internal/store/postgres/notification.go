package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
)

type NotificationRepo struct {
	db DBTX
}

func NewNotificationRepo(db DBTX) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, task_id, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.TaskID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("notificationRepo.Create: %w", err)
	}

	return nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, title, message, task_id, read, created_at
		 FROM notifications WHERE user_id = $1 AND (NOT $2 OR NOT read)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID, unreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("notificationRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var list []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.TaskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notificationRepo.ListByUser: scan: %w", err)
		}
		list = append(list, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notificationRepo.ListByUser: rows: %w", err)
	}

	return list, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("notificationRepo.MarkRead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notificationRepo.MarkRead: %w", domain.ErrNotFound)
	}

	return nil
}
