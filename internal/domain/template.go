package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TemplateVisibility string

const (
	TemplateVisibilityPublic     TemplateVisibility = "PUBLIC"
	TemplateVisibilityDepartment TemplateVisibility = "DEPARTMENT"
	TemplateVisibilityPrivate    TemplateVisibility = "PRIVATE"
)

func (v TemplateVisibility) Valid() bool {
	switch v {
	case TemplateVisibilityPublic, TemplateVisibilityDepartment, TemplateVisibilityPrivate:
		return true
	default:
		return false
	}
}

// TemplateTask is one blueprint entry of a TaskTemplate. DependsOn holds
// OrderIndex values of other entries in the same template.
type TemplateTask struct {
	OrderIndex       int          `json:"orderIndex"`
	Title            string       `json:"title"`
	Description      *string      `json:"description,omitempty"`
	Priority         TaskPriority `json:"priority"`
	Category         *string      `json:"category,omitempty"`
	EstimatedHours   *float64     `json:"estimatedHours,omitempty"`
	Tags             []string     `json:"tags"`
	AssignToCreator  bool         `json:"assignToCreator"`
	AssignToRole     *Role        `json:"assignToRole,omitempty"`
	DaysFromStart    *int         `json:"daysFromStart,omitempty"`
	DaysFromPrevious *int         `json:"daysFromPrevious,omitempty"`
	DependsOn        []int        `json:"dependsOn"`
}

// DueDate resolves the relative due date. daysFromStart counts from
// batchStart; daysFromPrevious counts from prev's start date, or its
// creation time when it has none. prev is nil for the first entry, in which
// case batchStart is used.
func (tt *TemplateTask) DueDate(batchStart time.Time, prev *Task) *time.Time {
	switch {
	case tt.DaysFromStart != nil:
		at := batchStart.AddDate(0, 0, *tt.DaysFromStart)
		return &at
	case tt.DaysFromPrevious != nil:
		base := batchStart
		if prev != nil {
			base = prev.CreatedAt
			if prev.StartDate != nil {
				base = *prev.StartDate
			}
		}
		at := base.AddDate(0, 0, *tt.DaysFromPrevious)
		return &at
	default:
		return nil
	}
}

type TaskTemplate struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Description  *string            `json:"description,omitempty"`
	Category     string             `json:"category"`
	Visibility   TemplateVisibility `json:"visibility"`
	DepartmentID *uuid.UUID         `json:"departmentId,omitempty"`
	CreatedByID  uuid.UUID          `json:"createdById"`
	Tasks        []TemplateTask     `json:"tasks"`
	UseCount     int                `json:"useCount"`
	LastUsed     *time.Time         `json:"lastUsed,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// VisibleTo reports whether a caller may read and expand the template.
func (t *TaskTemplate) VisibleTo(userID uuid.UUID, role Role, departmentID *uuid.UUID) bool {
	if t.Visibility == TemplateVisibilityPublic || t.CreatedByID == userID || role == RoleAdmin {
		return true
	}
	return departmentID != nil && t.DepartmentID != nil && *departmentID == *t.DepartmentID
}

// ValidateTemplateTasks checks that order indices are unique, that every
// prerequisite index names another entry at most once, and that the index
// graph is acyclic.
func ValidateTemplateTasks(tasks []TemplateTask) error {
	byIndex := make(map[int]*TemplateTask, len(tasks))
	for i := range tasks {
		tt := &tasks[i]
		if _, dup := byIndex[tt.OrderIndex]; dup {
			return NewValidationError(fmt.Sprintf("tasks[%d].orderIndex", i), "unique", "duplicate order index")
		}
		byIndex[tt.OrderIndex] = tt
	}

	for i := range tasks {
		tt := &tasks[i]
		seen := make(map[int]struct{}, len(tt.DependsOn))
		for _, dep := range tt.DependsOn {
			field := fmt.Sprintf("tasks[%d].dependsOn", i)
			if _, dup := seen[dep]; dup {
				return NewValidationError(field, "unique", fmt.Sprintf("order index %d listed twice", dep))
			}
			seen[dep] = struct{}{}
			if dep == tt.OrderIndex {
				return NewValidationError(field, "self", "a task cannot depend on itself")
			}
			if _, ok := byIndex[dep]; !ok {
				return NewValidationError(field, "unknown", fmt.Sprintf("unknown order index %d", dep))
			}
		}
	}

	next := func(idx int) ([]int, error) {
		return byIndex[idx].DependsOn, nil
	}
	for i := range tasks {
		tt := &tasks[i]
		for _, dep := range tt.DependsOn {
			// An edge tt -> dep closes a cycle if dep already reaches tt.
			cyclic, _ := Reaches(dep, tt.OrderIndex, next)
			if cyclic {
				return NewValidationError(fmt.Sprintf("tasks[%d].dependsOn", i), "acyclic", "prerequisites form a cycle")
			}
		}
	}

	return nil
}

type TemplateRepository interface {
	Create(ctx context.Context, t *TaskTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*TaskTemplate, error)
	// ListVisible returns templates the caller may see; all=true skips the
	// visibility predicate.
	ListVisible(ctx context.Context, userID uuid.UUID, departmentID *uuid.UUID, all bool) ([]*TaskTemplate, error)
	RecordUse(ctx context.Context, id uuid.UUID, at time.Time) error
}
