package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// CreateInput is the payload for direct task creation.
type CreateInput struct {
	Title           string              `json:"title" validate:"required,max=200"`
	Description     *string             `json:"description,omitempty"`
	Status          domain.TaskStatus   `json:"status,omitempty" validate:"omitempty,taskStatus"`
	Priority        domain.TaskPriority `json:"priority,omitempty" validate:"omitempty,taskPriority"`
	Category        *string             `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags            []string            `json:"tags,omitempty" validate:"dive,required,max=50"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
	DueDate         *time.Time          `json:"dueDate,omitempty"`
	StartDate       *time.Time          `json:"startDate,omitempty"`
	CompletedDate   *time.Time          `json:"completedDate,omitempty"`
	EstimatedHours  *float64            `json:"estimatedHours,omitempty" validate:"omitempty,gte=0,lte=1000"`
	ActualHours     *float64            `json:"actualHours,omitempty" validate:"omitempty,gte=0,lte=1000"`
	ProgressPercent *int                `json:"progressPercent,omitempty" validate:"omitempty,gte=0,lte=100"`
	AssignedToID    *uuid.UUID          `json:"assignedToId,omitempty"`
	CaseID          *uuid.UUID          `json:"caseId,omitempty"`
	RequestID       *uuid.UUID          `json:"requestId,omitempty"`
	ParentTaskID    *uuid.UUID          `json:"parentTaskId,omitempty"`
	Dependencies    []DependencyInput   `json:"dependencies,omitempty" validate:"dive"`
}

// Create persists a new task created by p together with its dependency
// edges.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*domain.Task, error) {
	fe := s.newFieldErrors()
	fe.structure("", in)
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.checkLinks(ctx, p, in.CaseID, in.RequestID, in.ParentTaskID); err != nil {
		return nil, fmt.Errorf("tasks.Create: %w", err)
	}
	if in.AssignedToID != nil {
		if err := s.requireActiveUser(ctx, "assignedToId", *in.AssignedToID); err != nil {
			return nil, fmt.Errorf("tasks.Create: %w", err)
		}
	}

	now := s.now()
	t := &domain.Task{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		Category:       in.Category,
		Tags:           in.Tags,
		Metadata:       in.Metadata,
		DueDate:        in.DueDate,
		StartDate:      in.StartDate,
		CompletedDate:  in.CompletedDate,
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
		AssignedToID:   in.AssignedToID,
		CreatedByID:    p.UserID,
		CaseID:         in.CaseID,
		RequestID:      in.RequestID,
		ParentTaskID:   in.ParentTaskID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = domain.TaskPriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if in.ProgressPercent != nil {
		t.ProgressPercent = *in.ProgressPercent
	}
	t.ApplyStatusChange(domain.TaskStatusPending, in.CompletedDate != nil, now)

	var edges int
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Tasks().Create(ctx, t); err != nil {
			return err
		}
		for _, d := range in.Dependencies {
			created, err := s.addDependency(ctx, tx, t.ID, d)
			if err != nil {
				return err
			}
			if created != nil {
				edges++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tasks.Create: %w", err)
	}

	var fx effects
	if t.AssignedToID != nil && *t.AssignedToID != p.UserID {
		s.queueNotify(&fx, *t.AssignedToID, domain.NotificationTaskAssigned, t,
			"New task assigned", fmt.Sprintf("You have been assigned %q", t.Title))
	}
	s.queueActivity(&fx, p.UserID, domain.ActivityTaskCreated, domain.ActivityEntityTask, t.ID, map[string]any{
		"title":        t.Title,
		"status":       t.Status,
		"priority":     t.Priority,
		"dependencies": edges,
	})
	if t.ParentTaskID != nil {
		s.queuePropagation(&fx, *t.ParentTaskID)
	}
	fx.flush(ctx)

	return t, nil
}
