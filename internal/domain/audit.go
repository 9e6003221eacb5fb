package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Activity actions recorded against tasks.
const (
	ActivityTaskCreated      = "TASK_CREATED"
	ActivityTaskUpdated      = "TASK_UPDATED"
	ActivityTaskDeleted      = "TASK_DELETED"
	ActivityTemplateExpanded = "TASKS_CREATED_FROM_TEMPLATE"
	ActivityTemplateCreated  = "TEMPLATE_CREATED"
	ActivityEntityTask       = "task"
	ActivityEntityTemplate   = "task_template"
)

type ActivityEntry struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   uuid.UUID      `json:"entityId"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type ActivityRepository interface {
	Record(ctx context.Context, entry *ActivityEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]*ActivityEntry, error)
}
