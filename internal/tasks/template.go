package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// ExpandInput materializes a template into tasks.
type ExpandInput struct {
	TemplateID     uuid.UUID  `json:"templateId"`
	CaseID         *uuid.UUID `json:"caseId,omitempty"`
	RequestID      *uuid.UUID `json:"requestId,omitempty"`
	AssignToUserID *uuid.UUID `json:"assignToUserId,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	AdjustDueDates bool       `json:"adjustDueDates,omitempty"`
}

type ExpandResult struct {
	Tasks    []*domain.Task       `json:"tasks"`
	Template *domain.TaskTemplate `json:"template"`
}

// ExpandTemplate creates one task per template entry, then the dependency
// edges between them, then bumps the template's usage counters. All writes
// share one transaction.
func (s *Service) ExpandTemplate(ctx context.Context, p access.Principal, in ExpandInput) (*ExpandResult, error) {
	tpl, err := s.store.Templates().GetByID(ctx, in.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("tasks.ExpandTemplate: %w", err)
	}
	if !tpl.VisibleTo(p.UserID, p.Role, p.DepartmentID) {
		return nil, fmt.Errorf("tasks.ExpandTemplate: %w", domain.ErrForbidden)
	}
	if err := s.checkLinks(ctx, p, in.CaseID, in.RequestID, nil); err != nil {
		return nil, fmt.Errorf("tasks.ExpandTemplate: %w", err)
	}
	if in.AssignToUserID != nil {
		if err := s.requireActiveUser(ctx, "assignToUserId", *in.AssignToUserID); err != nil {
			return nil, fmt.Errorf("tasks.ExpandTemplate: %w", err)
		}
	}

	entries := slices.Clone(tpl.Tasks)
	slices.SortStableFunc(entries, func(a, b domain.TemplateTask) int { return a.OrderIndex - b.OrderIndex })

	now := s.now()
	batchStart := now
	if in.StartDate != nil {
		batchStart = *in.StartDate
	}

	created := make([]*domain.Task, 0, len(entries))
	var edges int
	err = s.store.InTx(ctx, func(tx domain.Repositories) error {
		byIndex := make(map[int]uuid.UUID, len(entries))
		roleUsers := make(map[domain.Role]*uuid.UUID)

		var prev *domain.Task
		for i := range entries {
			tt := &entries[i]
			assignee, err := s.resolveAssignee(ctx, tx, p, in, tt, roleUsers)
			if err != nil {
				return err
			}
			t := &domain.Task{
				ID:             uuid.New(),
				Title:          tt.Title,
				Description:    tt.Description,
				Status:         domain.TaskStatusPending,
				Priority:       tt.Priority,
				Category:       tt.Category,
				Tags:           slices.Clone(tt.Tags),
				EstimatedHours: tt.EstimatedHours,
				AssignedToID:   assignee,
				CreatedByID:    p.UserID,
				CaseID:         in.CaseID,
				RequestID:      in.RequestID,
				TemplateID:     &tpl.ID,
				Version:        1,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if t.Priority == "" {
				t.Priority = domain.TaskPriorityMedium
			}
			if t.Tags == nil {
				t.Tags = []string{}
			}
			if in.AdjustDueDates {
				t.DueDate = tt.DueDate(batchStart, prev)
			}
			if err := tx.Tasks().Create(ctx, t); err != nil {
				return err
			}
			byIndex[tt.OrderIndex] = t.ID
			created = append(created, t)
			prev = t
		}

		// Edges only exist once every task of the batch does. The graph is
		// entirely new, so cycles are checked in memory.
		graph := make(map[uuid.UUID][]uuid.UUID, len(entries))
		next := func(id uuid.UUID) ([]uuid.UUID, error) { return graph[id], nil }
		for i := range entries {
			tt := &entries[i]
			dependentID := byIndex[tt.OrderIndex]
			for _, idx := range tt.DependsOn {
				prereqID, ok := byIndex[idx]
				if !ok {
					log.Info().Str("template_id", tpl.ID.String()).Int("order_index", idx).Msg("tasks: skipping unresolved template prerequisite")
					continue
				}
				if cyclic, _ := domain.Reaches(prereqID, dependentID, next); cyclic || slices.Contains(graph[dependentID], prereqID) {
					continue
				}
				d := domain.NewTaskDependency(dependentID, prereqID, domain.DependencyFinishToStart, 0, now)
				if err := tx.Dependencies().Create(ctx, d); err != nil {
					return err
				}
				graph[dependentID] = append(graph[dependentID], prereqID)
				edges++
			}
		}

		return tx.Templates().RecordUse(ctx, tpl.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("tasks.ExpandTemplate: %w", err)
	}
	tpl.UseCount++
	tpl.LastUsed = &now

	var fx effects
	for _, t := range created {
		if t.AssignedToID != nil && *t.AssignedToID != p.UserID {
			s.queueNotify(&fx, *t.AssignedToID, domain.NotificationTaskAssigned, t,
				"New task assigned", fmt.Sprintf("You have been assigned %q from template %q", t.Title, tpl.Name))
		}
	}
	s.queueActivity(&fx, p.UserID, domain.ActivityTemplateExpanded, domain.ActivityEntityTemplate, tpl.ID, map[string]any{
		"templateName": tpl.Name,
		"tasksCreated": len(created),
		"dependencies": edges,
		"caseId":       in.CaseID,
		"requestId":    in.RequestID,
	})
	fx.flush(ctx)

	return &ExpandResult{Tasks: created, Template: tpl}, nil
}

// resolveAssignee applies explicit override > assign to creator > first
// active user with the entry's role > unassigned.
func (s *Service) resolveAssignee(ctx context.Context, tx domain.Repositories, p access.Principal, in ExpandInput, tt *domain.TemplateTask, cache map[domain.Role]*uuid.UUID) (*uuid.UUID, error) {
	switch {
	case in.AssignToUserID != nil:
		id := *in.AssignToUserID
		return &id, nil
	case tt.AssignToCreator:
		id := p.UserID
		return &id, nil
	case tt.AssignToRole != nil:
		role := *tt.AssignToRole
		if id, ok := cache[role]; ok {
			return id, nil
		}
		u, err := tx.Users().FindActiveByRole(ctx, role)
		if errors.Is(err, domain.ErrNotFound) {
			cache[role] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		id := u.ID
		cache[role] = &id
		return &id, nil
	default:
		return nil, nil
	}
}

// TemplateInput is the payload for a new template.
type TemplateInput struct {
	Name         string                    `json:"name" validate:"required,max=200"`
	Description  *string                   `json:"description,omitempty"`
	Category     string                    `json:"category" validate:"required,max=100"`
	Visibility   domain.TemplateVisibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
	DepartmentID *uuid.UUID                `json:"departmentId,omitempty"`
	Tasks        []TemplateTaskInput       `json:"tasks" validate:"required,min=1,dive"`
}

type TemplateTaskInput struct {
	OrderIndex       int                 `json:"orderIndex" validate:"gte=0"`
	Title            string              `json:"title" validate:"required,max=200"`
	Description      *string             `json:"description,omitempty"`
	Priority         domain.TaskPriority `json:"priority,omitempty" validate:"omitempty,taskPriority"`
	Category         *string             `json:"category,omitempty" validate:"omitempty,max=100"`
	EstimatedHours   *float64            `json:"estimatedHours,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Tags             []string            `json:"tags,omitempty" validate:"dive,required,max=50"`
	AssignToCreator  bool                `json:"assignToCreator,omitempty"`
	AssignToRole     *domain.Role        `json:"assignToRole,omitempty" validate:"omitempty,role"`
	DaysFromStart    *int                `json:"daysFromStart,omitempty" validate:"omitempty,gte=0,lte=3650"`
	DaysFromPrevious *int                `json:"daysFromPrevious,omitempty" validate:"omitempty,gte=0,lte=3650"`
	DependsOn        []int               `json:"dependsOn,omitempty"`
}

// CreateTemplate stores a template after checking that its prerequisite
// indices form a DAG.
func (s *Service) CreateTemplate(ctx context.Context, p access.Principal, in TemplateInput) (*domain.TaskTemplate, error) {
	fe := s.newFieldErrors()
	fe.structure("", in)
	if err := fe.err(); err != nil {
		return nil, err
	}

	now := s.now()
	tpl := &domain.TaskTemplate{
		ID:           uuid.New(),
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		Visibility:   in.Visibility,
		DepartmentID: in.DepartmentID,
		CreatedByID:  p.UserID,
		Tasks:        make([]domain.TemplateTask, 0, len(in.Tasks)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if tpl.Visibility == "" {
		tpl.Visibility = domain.TemplateVisibilityPrivate
	}
	if tpl.DepartmentID == nil && tpl.Visibility == domain.TemplateVisibilityDepartment {
		tpl.DepartmentID = p.DepartmentID
	}
	for _, tt := range in.Tasks {
		priority := tt.Priority
		if priority == "" {
			priority = domain.TaskPriorityMedium
		}
		tags := tt.Tags
		if tags == nil {
			tags = []string{}
		}
		dependsOn := tt.DependsOn
		if dependsOn == nil {
			dependsOn = []int{}
		}
		tpl.Tasks = append(tpl.Tasks, domain.TemplateTask{
			OrderIndex:       tt.OrderIndex,
			Title:            tt.Title,
			Description:      tt.Description,
			Priority:         priority,
			Category:         tt.Category,
			EstimatedHours:   tt.EstimatedHours,
			Tags:             tags,
			AssignToCreator:  tt.AssignToCreator,
			AssignToRole:     tt.AssignToRole,
			DaysFromStart:    tt.DaysFromStart,
			DaysFromPrevious: tt.DaysFromPrevious,
			DependsOn:        dependsOn,
		})
	}
	if err := domain.ValidateTemplateTasks(tpl.Tasks); err != nil {
		return nil, err
	}

	if err := s.store.Templates().Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("tasks.CreateTemplate: %w", err)
	}

	var fx effects
	s.queueActivity(&fx, p.UserID, domain.ActivityTemplateCreated, domain.ActivityEntityTemplate, tpl.ID, map[string]any{
		"name":  tpl.Name,
		"tasks": len(tpl.Tasks),
	})
	fx.flush(ctx)

	return tpl, nil
}

// GetTemplate returns a template visible to p.
func (s *Service) GetTemplate(ctx context.Context, p access.Principal, id uuid.UUID) (*domain.TaskTemplate, error) {
	tpl, err := s.store.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.GetTemplate: %w", err)
	}
	if !tpl.VisibleTo(p.UserID, p.Role, p.DepartmentID) {
		return nil, fmt.Errorf("tasks.GetTemplate: %w", domain.ErrForbidden)
	}
	return tpl, nil
}

// ListTemplates returns every template visible to p.
func (s *Service) ListTemplates(ctx context.Context, p access.Principal) ([]*domain.TaskTemplate, error) {
	list, err := s.store.Templates().ListVisible(ctx, p.UserID, p.DepartmentID, p.Role == domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("tasks.ListTemplates: %w", err)
	}
	if list == nil {
		list = []*domain.TaskTemplate{}
	}
	return list, nil
}
