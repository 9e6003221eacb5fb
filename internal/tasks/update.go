package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/patch"
)

// UpdateInput is a partial update. Absent fields are left alone and explicit
// nulls clear optional fields.
type UpdateInput struct {
	Title           patch.Field[string]              `json:"title,omitempty"`
	Description     patch.Field[string]              `json:"description,omitempty"`
	Status          patch.Field[domain.TaskStatus]   `json:"status,omitempty"`
	Priority        patch.Field[domain.TaskPriority] `json:"priority,omitempty"`
	Category        patch.Field[string]              `json:"category,omitempty"`
	Tags            patch.Field[[]string]            `json:"tags,omitempty"`
	Metadata        patch.Field[map[string]any]      `json:"metadata,omitempty"`
	DueDate         patch.Field[time.Time]           `json:"dueDate,omitempty"`
	StartDate       patch.Field[time.Time]           `json:"startDate,omitempty"`
	CompletedDate   patch.Field[time.Time]           `json:"completedDate,omitempty"`
	EstimatedHours  patch.Field[float64]             `json:"estimatedHours,omitempty"`
	ActualHours     patch.Field[float64]             `json:"actualHours,omitempty"`
	ProgressPercent patch.Field[int]                 `json:"progressPercent,omitempty"`
	AssignedToID    patch.Field[uuid.UUID]           `json:"assignedToId,omitempty"`
	CaseID          patch.Field[uuid.UUID]           `json:"caseId,omitempty"`
	RequestID       patch.Field[uuid.UUID]           `json:"requestId,omitempty"`
	ParentTaskID    patch.Field[uuid.UUID]           `json:"parentTaskId,omitempty"`
	// Version enables compare-and-swap when set.
	Version      *int               `json:"version,omitempty"`
	Dependencies []DependencyChange `json:"dependencies,omitempty"`
}

func (s *Service) validateUpdate(in *UpdateInput) error {
	fe := s.newFieldErrors()

	required := map[string]bool{
		"title":           in.Title.Set && in.Title.Null,
		"status":          in.Status.Set && in.Status.Null,
		"priority":        in.Priority.Set && in.Priority.Null,
		"progressPercent": in.ProgressPercent.Set && in.ProgressPercent.Null,
	}
	for _, name := range []string{"title", "status", "priority", "progressPercent"} {
		if required[name] {
			fe.add(name, "required", "cannot be null")
		}
	}

	if in.Title.HasValue() {
		fe.check("title", in.Title.Value, "required,max=200")
	}
	if in.Status.HasValue() {
		fe.check("status", in.Status.Value, "taskStatus")
	}
	if in.Priority.HasValue() {
		fe.check("priority", in.Priority.Value, "taskPriority")
	}
	if in.Category.HasValue() {
		fe.check("category", in.Category.Value, "max=100")
	}
	if in.Tags.HasValue() {
		fe.check("tags", in.Tags.Value, "dive,required,max=50")
	}
	if in.EstimatedHours.HasValue() {
		fe.check("estimatedHours", in.EstimatedHours.Value, "gte=0,lte=1000")
	}
	if in.ActualHours.HasValue() {
		fe.check("actualHours", in.ActualHours.Value, "gte=0,lte=1000")
	}
	if in.ProgressPercent.HasValue() {
		fe.check("progressPercent", in.ProgressPercent.Value, "gte=0,lte=100")
	}
	if in.Version != nil {
		fe.check("version", *in.Version, "gte=1")
	}
	for i := range in.Dependencies {
		fe.structure(fmt.Sprintf("dependencies[%d]", i), in.Dependencies[i])
	}
	return fe.err()
}

// Update applies a partial update to the task on behalf of p.
func (s *Service) Update(ctx context.Context, p access.Principal, id uuid.UUID, in UpdateInput) (*domain.Task, error) {
	if err := s.validateUpdate(&in); err != nil {
		return nil, err
	}

	t, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.Update: %w", err)
	}
	if !access.CanModifyTask(p, t) {
		return nil, fmt.Errorf("tasks.Update: %w", domain.ErrForbidden)
	}
	if err := s.checkUpdateRefs(ctx, p, t, &in); err != nil {
		return nil, fmt.Errorf("tasks.Update: %w", err)
	}

	before := *t
	now := s.now()
	changed := applyPatch(t, &in)
	t.ApplyStatusChange(before.Status, in.CompletedDate.HasValue(), now)
	t.UpdatedAt = now

	expected := 0
	if in.Version != nil {
		expected = *in.Version
	}
	err = s.store.InTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Tasks().Update(ctx, t, expected); err != nil {
			return err
		}
		return s.applyDependencyChanges(ctx, tx, t.ID, in.Dependencies)
	})
	if err != nil {
		return nil, fmt.Errorf("tasks.Update: %w", err)
	}

	var fx effects
	s.queueUpdateNotifications(&fx, p, &before, t)

	parents := make([]uuid.UUID, 0, 2)
	if before.ParentTaskID != nil {
		parents = append(parents, *before.ParentTaskID)
	}
	if t.ParentTaskID != nil && !slices.Contains(parents, *t.ParentTaskID) {
		parents = append(parents, *t.ParentTaskID)
	}
	for _, parentID := range parents {
		s.queuePropagation(&fx, parentID)
	}

	s.queueActivity(&fx, p.UserID, domain.ActivityTaskUpdated, domain.ActivityEntityTask, t.ID, map[string]any{
		"changedFields":      changed,
		"previousStatus":     before.Status,
		"newStatus":          t.Status,
		"previousAssigneeId": before.AssignedToID,
		"newAssigneeId":      t.AssignedToID,
		"dependencyChanges":  len(in.Dependencies),
	})
	fx.flush(ctx)

	return t, nil
}

// checkUpdateRefs validates references that change: the assignee must be an
// active user, a new case or request must be accessible, and a new parent
// must be accessible and must not sit below the task itself.
func (s *Service) checkUpdateRefs(ctx context.Context, p access.Principal, t *domain.Task, in *UpdateInput) error {
	if in.AssignedToID.HasValue() && !sameID(t.AssignedToID, &in.AssignedToID.Value) {
		if err := s.requireActiveUser(ctx, "assignedToId", in.AssignedToID.Value); err != nil {
			return err
		}
	}

	var caseID, requestID, parentID *uuid.UUID
	if in.CaseID.HasValue() && !sameID(t.CaseID, &in.CaseID.Value) {
		caseID = &in.CaseID.Value
	}
	if in.RequestID.HasValue() && !sameID(t.RequestID, &in.RequestID.Value) {
		requestID = &in.RequestID.Value
	}
	if in.ParentTaskID.HasValue() && !sameID(t.ParentTaskID, &in.ParentTaskID.Value) {
		parentID = &in.ParentTaskID.Value
		if *parentID == t.ID {
			return domain.NewValidationError("parentTaskId", "self", "a task cannot be its own parent")
		}
	}
	if err := s.checkLinks(ctx, p, caseID, requestID, parentID); err != nil {
		return err
	}

	if parentID != nil {
		// Walk up from the new parent; reaching t means t would become its
		// own ancestor.
		cyclic, err := domain.Reaches(*parentID, t.ID, func(id uuid.UUID) ([]uuid.UUID, error) {
			cur, err := s.store.Tasks().GetByID(ctx, id)
			if err != nil || cur.ParentTaskID == nil {
				return nil, err
			}
			return []uuid.UUID{*cur.ParentTaskID}, nil
		})
		if err != nil {
			return err
		}
		if cyclic {
			return domain.NewValidationError("parentTaskId", "acyclic", "a task cannot be moved below its own subtask")
		}
	}
	return nil
}

// applyPatch copies supplied fields onto t and returns the JSON names of the
// fields whose value changed.
func applyPatch(t *domain.Task, in *UpdateInput) []string {
	var changed []string
	mark := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	if in.Title.HasValue() {
		mark("title", t.Title != in.Title.Value)
		t.Title = in.Title.Value
	}
	if in.Description.Set {
		mark("description", !samePtr(t.Description, in.Description.Ptr()))
		patch.Apply(in.Description, &t.Description)
	}
	if in.Status.HasValue() {
		mark("status", t.Status != in.Status.Value)
		t.Status = in.Status.Value
	}
	if in.Priority.HasValue() {
		mark("priority", t.Priority != in.Priority.Value)
		t.Priority = in.Priority.Value
	}
	if in.Category.Set {
		mark("category", !samePtr(t.Category, in.Category.Ptr()))
		patch.Apply(in.Category, &t.Category)
	}
	if in.Tags.Set {
		next := in.Tags.Value
		if next == nil {
			next = []string{}
		}
		mark("tags", !slices.Equal(t.Tags, next))
		t.Tags = next
	}
	if in.Metadata.Set {
		mark("metadata", true)
		t.Metadata = in.Metadata.Value
	}
	if in.DueDate.Set {
		mark("dueDate", !sameTime(t.DueDate, in.DueDate.Ptr()))
		patch.Apply(in.DueDate, &t.DueDate)
	}
	if in.StartDate.Set {
		mark("startDate", !sameTime(t.StartDate, in.StartDate.Ptr()))
		patch.Apply(in.StartDate, &t.StartDate)
	}
	if in.CompletedDate.Set {
		mark("completedDate", !sameTime(t.CompletedDate, in.CompletedDate.Ptr()))
		patch.Apply(in.CompletedDate, &t.CompletedDate)
	}
	if in.EstimatedHours.Set {
		mark("estimatedHours", !samePtr(t.EstimatedHours, in.EstimatedHours.Ptr()))
		patch.Apply(in.EstimatedHours, &t.EstimatedHours)
	}
	if in.ActualHours.Set {
		mark("actualHours", !samePtr(t.ActualHours, in.ActualHours.Ptr()))
		patch.Apply(in.ActualHours, &t.ActualHours)
	}
	if in.ProgressPercent.HasValue() {
		mark("progressPercent", t.ProgressPercent != in.ProgressPercent.Value)
		t.ProgressPercent = in.ProgressPercent.Value
	}
	if in.AssignedToID.Set {
		mark("assignedToId", !sameID(t.AssignedToID, in.AssignedToID.Ptr()))
		patch.Apply(in.AssignedToID, &t.AssignedToID)
	}
	if in.CaseID.Set {
		mark("caseId", !sameID(t.CaseID, in.CaseID.Ptr()))
		patch.Apply(in.CaseID, &t.CaseID)
	}
	if in.RequestID.Set {
		mark("requestId", !sameID(t.RequestID, in.RequestID.Ptr()))
		patch.Apply(in.RequestID, &t.RequestID)
	}
	if in.ParentTaskID.Set {
		mark("parentTaskId", !sameID(t.ParentTaskID, in.ParentTaskID.Ptr()))
		patch.Apply(in.ParentTaskID, &t.ParentTaskID)
	}
	return changed
}

func (s *Service) queueUpdateNotifications(fx *effects, p access.Principal, before, after *domain.Task) {
	if !sameID(before.AssignedToID, after.AssignedToID) {
		if after.AssignedToID != nil && *after.AssignedToID != p.UserID {
			s.queueNotify(fx, *after.AssignedToID, domain.NotificationTaskAssigned, after,
				"Task assigned", fmt.Sprintf("You have been assigned %q", after.Title))
		}
		if before.AssignedToID != nil && *before.AssignedToID != p.UserID {
			s.queueNotify(fx, *before.AssignedToID, domain.NotificationTaskUnassigned, after,
				"Task unassigned", fmt.Sprintf("You are no longer assigned to %q", after.Title))
		}
	}
	if before.Status != after.Status && after.CreatedByID != p.UserID {
		s.queueNotify(fx, after.CreatedByID, domain.NotificationTaskStatusChanged, after,
			"Task status changed", fmt.Sprintf("%q moved from %s to %s", after.Title, before.Status, after.Status))
	}
}

func sameID(a, b *uuid.UUID) bool {
	return samePtr(a, b)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
