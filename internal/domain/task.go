package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
	TaskStatusOnHold     TaskStatus = "ON_HOLD"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusOnHold:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank orders priorities from LOW (1) to URGENT (4).
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	case TaskPriorityUrgent:
		return 4
	default:
		return 0
	}
}

// Hour bounds shared by estimated and actual effort.
const (
	MaxTaskHours    = 1000
	MaxTitleLength  = 200
	hoursPerWorkday = 8
)

type Task struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     *string        `json:"description,omitempty"`
	Status          TaskStatus     `json:"status"`
	Priority        TaskPriority   `json:"priority"`
	Category        *string        `json:"category,omitempty"`
	Tags            []string       `json:"tags"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	DueDate         *time.Time     `json:"dueDate,omitempty"`
	StartDate       *time.Time     `json:"startDate,omitempty"`
	CompletedDate   *time.Time     `json:"completedDate,omitempty"`
	EstimatedHours  *float64       `json:"estimatedHours,omitempty"`
	ActualHours     *float64       `json:"actualHours,omitempty"`
	ProgressPercent int            `json:"progressPercent"`
	AssignedToID    *uuid.UUID     `json:"assignedToId,omitempty"`
	CreatedByID     uuid.UUID      `json:"createdById"`
	CaseID          *uuid.UUID     `json:"caseId,omitempty"`
	RequestID       *uuid.UUID     `json:"requestId,omitempty"`
	TemplateID      *uuid.UUID     `json:"templateId,omitempty"`
	ParentTaskID    *uuid.UUID     `json:"parentTaskId,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ApplyStatusChange enforces the completion-timestamp rules after t.Status
// was set. prev is the status before the mutation; completedDateSupplied is
// true when the caller set CompletedDate in the same payload.
func (t *Task) ApplyStatusChange(prev TaskStatus, completedDateSupplied bool, now time.Time) {
	switch {
	case t.Status == TaskStatusCompleted && prev != TaskStatusCompleted:
		t.ProgressPercent = 100
		if !completedDateSupplied {
			at := now
			t.CompletedDate = &at
		}
	case t.Status != TaskStatusCompleted && prev == TaskStatusCompleted:
		t.CompletedDate = nil
	}
}

// EstimatedCompletion returns startDate (or now) plus one day per started
// 8-hour block of estimated effort. It is nil for completed tasks and for
// tasks without an estimate.
func (t *Task) EstimatedCompletion(now time.Time) *time.Time {
	if t.Status == TaskStatusCompleted || t.EstimatedHours == nil {
		return nil
	}
	base := now
	if t.StartDate != nil {
		base = *t.StartDate
	}
	days := int(math.Ceil(*t.EstimatedHours / hoursPerWorkday))
	at := base.AddDate(0, 0, days)
	return &at
}

// IsOverdue reports whether the task is past due and still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return false
	}
	return t.DueDate.Before(now)
}

// TaskSortField is a whitelisted list ordering column.
type TaskSortField string

const (
	TaskSortDueDate   TaskSortField = "dueDate"
	TaskSortPriority  TaskSortField = "priority"
	TaskSortStatus    TaskSortField = "status"
	TaskSortCreatedAt TaskSortField = "createdAt"
	TaskSortTitle     TaskSortField = "title"
)

// TaskFilter holds list query options. Zero values mean "no filter".
type TaskFilter struct {
	Status        TaskStatus
	Priority      TaskPriority
	AssignedToID  *uuid.UUID
	CreatedByID   *uuid.UUID
	CaseID        *uuid.UUID
	RequestID     *uuid.UUID
	Category      string
	Tags          []string
	DueBefore     *time.Time
	DueAfter      *time.Time
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	Overdue       bool
	DueThisWeek   bool
	HasSubtasks   bool
	TopLevelOnly  bool
	SortBy        TaskSortField
	SortDesc      bool
	Limit         int
	Offset        int
	// Now anchors the relative filters (overdue, due this week).
	Now time.Time
}

// TaskSummary aggregates counts over the caller's visible tasks.
type TaskSummary struct {
	Overdue           int `json:"overdue"`
	Upcoming          int `json:"upcoming"`
	CompletedThisWeek int `json:"completedThisWeek"`
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Task, error)
	ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*Task, error)
	List(ctx context.Context, scope Scope, filter TaskFilter) ([]*Task, int, error)
	Summary(ctx context.Context, scope Scope, now time.Time) (TaskSummary, error)
	// Update writes every mutable column and bumps Version. When
	// expectedVersion > 0 the write only applies if the stored version
	// matches; otherwise ErrConflict is returned.
	Update(ctx context.Context, t *Task, expectedVersion int) error
	// Delete removes the task with its outgoing dependency edges and
	// detaches its subtasks.
	Delete(ctx context.Context, id uuid.UUID) error
}
