package tasks_test

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
)

// ---------------------------------------------------------------------------
// memStore is an in-memory domain.Store with snapshot rollback for InTx.
// ---------------------------------------------------------------------------

type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	cases         map[uuid.UUID]*domain.Case
	requests      map[uuid.UUID]*domain.LegalRequest
	tasks         map[uuid.UUID]*domain.Task
	deps          map[uuid.UUID]*domain.TaskDependency
	templates     map[uuid.UUID]*domain.TaskTemplate
	activity      []*domain.ActivityEntry
	notifications []*domain.Notification

	// Fault injection.
	failDependencyCreate error
	failActivity         error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]*domain.User{},
		cases:     map[uuid.UUID]*domain.Case{},
		requests:  map[uuid.UUID]*domain.LegalRequest{},
		tasks:     map[uuid.UUID]*domain.Task{},
		deps:      map[uuid.UUID]*domain.TaskDependency{},
		templates: map[uuid.UUID]*domain.TaskTemplate{},
	}
}

func (m *memStore) Users() domain.UserRepository                 { return memUsers{m} }
func (m *memStore) Cases() domain.CaseRepository                 { return memCases{m} }
func (m *memStore) Requests() domain.RequestRepository           { return memRequests{m} }
func (m *memStore) Tasks() domain.TaskRepository                 { return memTasks{m} }
func (m *memStore) Dependencies() domain.DependencyRepository    { return memDeps{m} }
func (m *memStore) Templates() domain.TemplateRepository         { return memTemplates{m} }
func (m *memStore) Activity() domain.ActivityRepository          { return memActivity{m} }
func (m *memStore) Notifications() domain.NotificationRepository { return memNotifications{m} }

func (m *memStore) InTx(_ context.Context, fn func(tx domain.Repositories) error) error {
	m.mu.Lock()
	tasks := maps.Clone(m.tasks)
	deps := maps.Clone(m.deps)
	templates := maps.Clone(m.templates)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.tasks, m.deps, m.templates = tasks, deps, templates
		m.mu.Unlock()
		return err
	}
	return nil
}

// Seed helpers.

func (m *memStore) addUser(role domain.Role, dept *uuid.UUID) *domain.User {
	u := &domain.User{ID: uuid.New(), Email: uuid.NewString() + "@city.gov", Role: role, DepartmentID: dept, Active: true}
	m.users[u.ID] = u
	return u
}

func (m *memStore) task(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	return cloneTask(t)
}

func (m *memStore) edges() []*domain.TaskDependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(maps.Values(m.deps))
}

func cloneTask(t *domain.Task) *domain.Task {
	cp := *t
	cp.Tags = slices.Clone(t.Tags)
	cp.Metadata = maps.Clone(t.Metadata)
	return &cp
}

// ---------------------------------------------------------------------------
// Users, cases, requests
// ---------------------------------------------------------------------------

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.users[u.ID] = u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.users[u.ID] = u
	return nil
}

func (r memUsers) List(context.Context) ([]*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return slices.Collect(maps.Values(r.m.users)), nil
}

func (r memUsers) FindActiveByRole(_ context.Context, role domain.Role) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Role == role && u.Active {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memCases struct{ m *memStore }

func (r memCases) Create(_ context.Context, c *domain.Case) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.cases[c.ID] = c
	return nil
}

func (r memCases) GetByID(_ context.Context, id uuid.UUID) (*domain.Case, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if c, ok := r.m.cases[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (r memCases) List(_ context.Context, scope domain.Scope, _, _ int) ([]*domain.Case, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Case
	for _, c := range r.m.cases {
		if scope.MatchesCase(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

type memRequests struct{ m *memStore }

func (r memRequests) Create(_ context.Context, lr *domain.LegalRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.requests[lr.ID] = lr
	return nil
}

func (r memRequests) GetByID(_ context.Context, id uuid.UUID) (*domain.LegalRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if lr, ok := r.m.requests[id]; ok {
		return lr, nil
	}
	return nil, domain.ErrNotFound
}

func (r memRequests) List(_ context.Context, scope domain.Scope, _, _ int) ([]*domain.LegalRequest, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.LegalRequest
	for _, lr := range r.m.requests {
		if scope.MatchesRequest(lr) {
			out = append(out, lr)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

type memTasks struct{ m *memStore }

func (r memTasks) Create(_ context.Context, t *domain.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tasks[t.ID] = cloneTask(t)
	return nil
}

func (r memTasks) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if t, ok := r.m.tasks[id]; ok {
		return cloneTask(t), nil
	}
	return nil, domain.ErrNotFound
}

func (r memTasks) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Task
	for _, id := range ids {
		if t, ok := r.m.tasks[id]; ok {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (r memTasks) ListSubtasks(_ context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Task
	for _, t := range r.m.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parentID {
			out = append(out, cloneTask(t))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r memTasks) visible(scope domain.Scope, t *domain.Task) bool {
	var c *domain.Case
	var lr *domain.LegalRequest
	if t.CaseID != nil {
		c = r.m.cases[*t.CaseID]
	}
	if t.RequestID != nil {
		lr = r.m.requests[*t.RequestID]
	}
	return scope.MatchesTask(t, c, lr)
}

func (r memTasks) List(_ context.Context, scope domain.Scope, f domain.TaskFilter) ([]*domain.Task, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*domain.Task
	for _, t := range r.m.tasks {
		if !r.visible(scope, t) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.AssignedToID != nil && (t.AssignedToID == nil || *t.AssignedToID != *f.AssignedToID) {
			continue
		}
		if f.CreatedByID != nil && t.CreatedByID != *f.CreatedByID {
			continue
		}
		if f.TopLevelOnly && t.ParentTaskID != nil {
			continue
		}
		if f.Overdue && !t.IsOverdue(f.Now) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	slices.SortFunc(out, func(a, b *domain.Task) int {
		c := cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
		if f.SortDesc {
			return -c
		}
		return c
	})

	total := len(out)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return out[start:end], total, nil
}

func (r memTasks) Summary(_ context.Context, scope domain.Scope, now time.Time) (domain.TaskSummary, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var s domain.TaskSummary
	weekAhead := now.AddDate(0, 0, 7)
	weekAgo := now.AddDate(0, 0, -7)
	for _, t := range r.m.tasks {
		if !r.visible(scope, t) {
			continue
		}
		open := t.Status != domain.TaskStatusCompleted && t.Status != domain.TaskStatusCancelled
		switch {
		case t.IsOverdue(now):
			s.Overdue++
		case open && t.DueDate != nil && !t.DueDate.After(weekAhead):
			s.Upcoming++
		}
		if t.CompletedDate != nil && !t.CompletedDate.Before(weekAgo) {
			s.CompletedThisWeek++
		}
	}
	return s, nil
}

func (r memTasks) Update(_ context.Context, t *domain.Task, expectedVersion int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.tasks[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if expectedVersion > 0 && cur.Version != expectedVersion {
		return domain.ErrConflict
	}
	t.Version = cur.Version + 1
	r.m.tasks[t.ID] = cloneTask(t)
	return nil
}

func (r memTasks) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.tasks, id)
	for depID, d := range r.m.deps {
		if d.DependentTaskID == id {
			delete(r.m.deps, depID)
		}
	}
	for childID, t := range r.m.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == id {
			cp := cloneTask(t)
			cp.ParentTaskID = nil
			r.m.tasks[childID] = cp
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type memDeps struct{ m *memStore }

func (r memDeps) Create(_ context.Context, d *domain.TaskDependency) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failDependencyCreate != nil {
		return r.m.failDependencyCreate
	}
	cp := *d
	r.m.deps[d.ID] = &cp
	return nil
}

func (r memDeps) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskDependency, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d, ok := r.m.deps[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r memDeps) Update(_ context.Context, d *domain.TaskDependency) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.deps[d.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *d
	r.m.deps[d.ID] = &cp
	return nil
}

func (r memDeps) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.deps[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.m.deps, id)
	return nil
}

func (r memDeps) filter(match func(*domain.TaskDependency) bool) []*domain.TaskDependency {
	var out []*domain.TaskDependency
	for _, d := range r.m.deps {
		if match(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

func (r memDeps) ListPrerequisites(_ context.Context, taskID uuid.UUID) ([]*domain.TaskDependency, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.filter(func(d *domain.TaskDependency) bool { return d.DependentTaskID == taskID }), nil
}

func (r memDeps) ListDependents(_ context.Context, taskID uuid.UUID) ([]*domain.TaskDependency, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.filter(func(d *domain.TaskDependency) bool { return d.PrerequisiteTaskID == taskID }), nil
}

func (r memDeps) CountDependents(_ context.Context, taskID uuid.UUID) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return len(r.filter(func(d *domain.TaskDependency) bool { return d.PrerequisiteTaskID == taskID })), nil
}

// ---------------------------------------------------------------------------
// Templates, activity, notifications
// ---------------------------------------------------------------------------

type memTemplates struct{ m *memStore }

func (r memTemplates) Create(_ context.Context, t *domain.TaskTemplate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *t
	r.m.templates[t.ID] = &cp
	return nil
}

func (r memTemplates) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskTemplate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if t, ok := r.m.templates[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r memTemplates) ListVisible(_ context.Context, userID uuid.UUID, departmentID *uuid.UUID, all bool) ([]*domain.TaskTemplate, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.TaskTemplate
	for _, t := range r.m.templates {
		if all || t.VisibleTo(userID, domain.RoleParalegal, departmentID) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memTemplates) RecordUse(_ context.Context, id uuid.UUID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.templates[id]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *t
	cp.UseCount++
	cp.LastUsed = &at
	r.m.templates[id] = &cp
	return nil
}

type memActivity struct{ m *memStore }

func (r memActivity) Record(_ context.Context, e *domain.ActivityEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failActivity != nil {
		return r.m.failActivity
	}
	r.m.activity = append(r.m.activity, e)
	return nil
}

func (r memActivity) ListByEntity(_ context.Context, entityType string, entityID uuid.UUID, limit int) ([]*domain.ActivityEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.ActivityEntry
	for _, e := range r.m.activity {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memNotifications struct{ m *memStore }

func (r memNotifications) Create(_ context.Context, n *domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.notifications = append(r.m.notifications, n)
	return nil
}

func (r memNotifications) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, _ int) ([]*domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, n := range r.m.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---------------------------------------------------------------------------
// recordingNotifier
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) to(userID uuid.UUID) []domain.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationType
	for _, msg := range n.sent {
		if msg.UserID == userID {
			out = append(out, msg.Type)
		}
	}
	return out
}
