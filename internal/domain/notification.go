package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "TASK_ASSIGNED"
	NotificationTaskUnassigned    NotificationType = "TASK_UNASSIGNED"
	NotificationTaskStatusChanged NotificationType = "TASK_STATUS_CHANGED"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TaskID    *uuid.UUID       `json:"taskId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}
