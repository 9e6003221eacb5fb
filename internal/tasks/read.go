package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// TaskRef is the short form of a task shown on the other end of an edge.
type TaskRef struct {
	ID       uuid.UUID           `json:"id"`
	Title    string              `json:"title"`
	Status   domain.TaskStatus   `json:"status"`
	Priority domain.TaskPriority `json:"priority"`
	DueDate  *time.Time          `json:"dueDate,omitempty"`
}

func refOf(t *domain.Task) *TaskRef {
	return &TaskRef{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority, DueDate: t.DueDate}
}

// Edge is a dependency together with the task on its far end.
type Edge struct {
	domain.TaskDependency
	Task *TaskRef `json:"task,omitempty"`
}

type Stats struct {
	Subtasks            domain.SubtaskCounts `json:"subtasks"`
	IsBlocked           bool                 `json:"isBlocked"`
	EstimatedCompletion *time.Time           `json:"estimatedCompletion,omitempty"`
}

// Detail is a task with its hierarchy, dependency edges and computed stats.
type Detail struct {
	domain.Task
	Subtasks   []*domain.Task `json:"subtasks"`
	DependsOn  []Edge         `json:"dependsOn"`
	Dependents []Edge         `json:"dependents"`
	Stats      Stats          `json:"stats"`
}

// Get loads the task p may read with its subtasks, edges and stats.
func (s *Service) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*Detail, error) {
	t, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.Get: %w", err)
	}

	subtasks, err := s.store.Tasks().ListSubtasks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.Get: subtasks: %w", err)
	}
	prereqEdges, err := s.store.Dependencies().ListPrerequisites(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.Get: prerequisites: %w", err)
	}
	dependentEdges, err := s.store.Dependencies().ListDependents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tasks.Get: dependents: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(prereqEdges)+len(dependentEdges))
	for _, e := range prereqEdges {
		ids = append(ids, e.PrerequisiteTaskID)
	}
	for _, e := range dependentEdges {
		ids = append(ids, e.DependentTaskID)
	}
	related, err := s.store.Tasks().ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("tasks.Get: related: %w", err)
	}
	byID := make(map[uuid.UUID]*domain.Task, len(related))
	for _, r := range related {
		byID[r.ID] = r
	}

	d := &Detail{
		Task:       *t,
		Subtasks:   subtasks,
		DependsOn:  make([]Edge, 0, len(prereqEdges)),
		Dependents: make([]Edge, 0, len(dependentEdges)),
	}
	prerequisites := make([]*domain.Task, 0, len(prereqEdges))
	for _, e := range prereqEdges {
		edge := Edge{TaskDependency: *e}
		if pt, ok := byID[e.PrerequisiteTaskID]; ok {
			edge.Task = refOf(pt)
			prerequisites = append(prerequisites, pt)
		}
		d.DependsOn = append(d.DependsOn, edge)
	}
	for _, e := range dependentEdges {
		edge := Edge{TaskDependency: *e}
		if dt, ok := byID[e.DependentTaskID]; ok {
			edge.Task = refOf(dt)
		}
		d.Dependents = append(d.Dependents, edge)
	}

	d.Stats = Stats{
		Subtasks:            domain.CountSubtasks(subtasks),
		IsBlocked:           domain.IsBlocked(prerequisites),
		EstimatedCompletion: t.EstimatedCompletion(s.now()),
	}
	return d, nil
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery carries list filters plus the caller-relative shortcuts.
type ListQuery struct {
	domain.TaskFilter
	Page         int
	AssignedToMe bool
	CreatedByMe  bool
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives page counts for total rows.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

type ListResult struct {
	Tasks      []*domain.Task     `json:"tasks"`
	Pagination Pagination         `json:"pagination"`
	Summary    domain.TaskSummary `json:"summary"`
}

// List returns one page of the tasks visible to p with the caller's summary
// counters.
func (s *Service) List(ctx context.Context, p access.Principal, q ListQuery) (*ListResult, error) {
	f := q.TaskFilter
	if q.Page < 1 {
		q.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	f.Offset = (q.Page - 1) * f.Limit
	if f.SortBy == "" {
		f.SortBy = domain.TaskSortCreatedAt
		f.SortDesc = true
	}
	if q.AssignedToMe {
		uid := p.UserID
		f.AssignedToID = &uid
	}
	if q.CreatedByMe {
		uid := p.UserID
		f.CreatedByID = &uid
	}
	f.Now = s.now()

	fe := s.newFieldErrors()
	if f.Status != "" {
		fe.check("status", f.Status, "taskStatus")
	}
	if f.Priority != "" {
		fe.check("priority", f.Priority, "taskPriority")
	}
	fe.check("sortBy", string(f.SortBy), "oneof=dueDate priority status createdAt title")
	if err := fe.err(); err != nil {
		return nil, err
	}

	scope := access.ScopeFor(p)
	tasks, total, err := s.store.Tasks().List(ctx, scope, f)
	if err != nil {
		return nil, fmt.Errorf("tasks.List: %w", err)
	}
	summary, err := s.store.Tasks().Summary(ctx, scope, f.Now)
	if err != nil {
		return nil, fmt.Errorf("tasks.List: summary: %w", err)
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return &ListResult{
		Tasks:      tasks,
		Pagination: NewPagination(q.Page, f.Limit, total),
		Summary:    summary,
	}, nil
}

// Activity returns the most recent activity entries of a task p may read.
func (s *Service) Activity(ctx context.Context, p access.Principal, id uuid.UUID, limit int) ([]*domain.ActivityEntry, error) {
	if _, err := s.loadAccessible(ctx, p, id); err != nil {
		return nil, fmt.Errorf("tasks.Activity: %w", err)
	}
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	entries, err := s.store.Activity().ListByEntity(ctx, domain.ActivityEntityTask, id, limit)
	if err != nil {
		return nil, fmt.Errorf("tasks.Activity: %w", err)
	}
	return entries, nil
}
