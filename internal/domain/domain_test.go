package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylaw/docket/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// ---------------------------------------------------------------------------
// 1. Task.ApplyStatusChange: completion timestamp rules.
// ---------------------------------------------------------------------------

func TestTask_ApplyStatusChange(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	explicit := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("into completed sets now and forces progress", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{Status: domain.TaskStatusCompleted, ProgressPercent: 40}
		task.ApplyStatusChange(domain.TaskStatusInProgress, false, now)

		require.NotNil(t, task.CompletedDate)
		assert.Equal(t, now, *task.CompletedDate)
		assert.Equal(t, 100, task.ProgressPercent)
	})

	t.Run("into completed keeps explicitly supplied date", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{Status: domain.TaskStatusCompleted, CompletedDate: ptr(explicit)}
		task.ApplyStatusChange(domain.TaskStatusPending, true, now)

		require.NotNil(t, task.CompletedDate)
		assert.Equal(t, explicit, *task.CompletedDate)
		assert.Equal(t, 100, task.ProgressPercent)
	})

	t.Run("away from completed clears date", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{Status: domain.TaskStatusInProgress, CompletedDate: ptr(explicit), ProgressPercent: 100}
		task.ApplyStatusChange(domain.TaskStatusCompleted, false, now)

		assert.Nil(t, task.CompletedDate)
	})

	t.Run("completed to completed is untouched", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{Status: domain.TaskStatusCompleted, CompletedDate: ptr(explicit), ProgressPercent: 90}
		task.ApplyStatusChange(domain.TaskStatusCompleted, false, now)

		assert.Equal(t, explicit, *task.CompletedDate)
		assert.Equal(t, 90, task.ProgressPercent)
	})

	t.Run("non completed transitions are untouched", func(t *testing.T) {
		t.Parallel()

		task := &domain.Task{Status: domain.TaskStatusOnHold, ProgressPercent: 10}
		task.ApplyStatusChange(domain.TaskStatusPending, false, now)

		assert.Nil(t, task.CompletedDate)
		assert.Equal(t, 10, task.ProgressPercent)
	})
}

// ---------------------------------------------------------------------------
// 2. Task.EstimatedCompletion.
// ---------------------------------------------------------------------------

func TestTask_EstimatedCompletion(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task domain.Task
		want *time.Time
	}{
		{
			name: "16 hours from start date is two days",
			task: domain.Task{Status: domain.TaskStatusPending, StartDate: ptr(start), EstimatedHours: ptr(16.0)},
			want: ptr(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "partial day rounds up",
			task: domain.Task{Status: domain.TaskStatusInProgress, StartDate: ptr(start), EstimatedHours: ptr(9.0)},
			want: ptr(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "falls back to now without start date",
			task: domain.Task{Status: domain.TaskStatusPending, EstimatedHours: ptr(8.0)},
			want: ptr(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "nil without estimate",
			task: domain.Task{Status: domain.TaskStatusPending, StartDate: ptr(start)},
			want: nil,
		},
		{
			name: "nil when completed",
			task: domain.Task{Status: domain.TaskStatusCompleted, EstimatedHours: ptr(16.0)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.task.EstimatedCompletion(now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Subtask progress.
// ---------------------------------------------------------------------------

func TestSubtaskCounts_ProgressPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		completed int
		total     int
		want      int
		wantOK    bool
	}{
		{name: "no subtasks", completed: 0, total: 0, want: 0, wantOK: false},
		{name: "one of three rounds down", completed: 1, total: 3, want: 33, wantOK: true},
		{name: "two of three rounds up", completed: 2, total: 3, want: 67, wantOK: true},
		{name: "half", completed: 1, total: 2, want: 50, wantOK: true},
		{name: "all", completed: 4, total: 4, want: 100, wantOK: true},
		{name: "one of eight rounds half up", completed: 1, total: 8, want: 13, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := domain.SubtaskCounts{Total: tt.total, Completed: tt.completed}.ProgressPercent()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountSubtasks(t *testing.T) {
	t.Parallel()

	subtasks := []*domain.Task{
		{Status: domain.TaskStatusCompleted},
		{Status: domain.TaskStatusCompleted},
		{Status: domain.TaskStatusInProgress},
		{Status: domain.TaskStatusPending},
		{Status: domain.TaskStatusOnHold},
	}

	got := domain.CountSubtasks(subtasks)
	assert.Equal(t, domain.SubtaskCounts{Total: 5, Completed: 2, InProgress: 1, Pending: 1}, got)
}

func TestTask_ApplySubtaskProgress(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("all done auto-completes parent", func(t *testing.T) {
		t.Parallel()

		parent := &domain.Task{Status: domain.TaskStatusInProgress, ProgressPercent: 67}
		changed := parent.ApplySubtaskProgress(domain.SubtaskCounts{Total: 3, Completed: 3}, now)

		assert.True(t, changed)
		assert.Equal(t, 100, parent.ProgressPercent)
		assert.Equal(t, domain.TaskStatusCompleted, parent.Status)
		require.NotNil(t, parent.CompletedDate)
		assert.Equal(t, now, *parent.CompletedDate)
	})

	t.Run("already completed parent keeps its date", func(t *testing.T) {
		t.Parallel()

		earlier := now.Add(-time.Hour)
		parent := &domain.Task{Status: domain.TaskStatusCompleted, ProgressPercent: 100, CompletedDate: &earlier}
		changed := parent.ApplySubtaskProgress(domain.SubtaskCounts{Total: 2, Completed: 2}, now)

		assert.False(t, changed)
		assert.Equal(t, earlier, *parent.CompletedDate)
	})

	t.Run("completed parent is not reverted", func(t *testing.T) {
		t.Parallel()

		parent := &domain.Task{Status: domain.TaskStatusCompleted, ProgressPercent: 100}
		parent.ApplySubtaskProgress(domain.SubtaskCounts{Total: 4, Completed: 3}, now)

		assert.Equal(t, 75, parent.ProgressPercent)
		assert.Equal(t, domain.TaskStatusCompleted, parent.Status)
	})

	t.Run("no subtasks is a no-op", func(t *testing.T) {
		t.Parallel()

		parent := &domain.Task{Status: domain.TaskStatusPending, ProgressPercent: 20}
		assert.False(t, parent.ApplySubtaskProgress(domain.SubtaskCounts{}, now))
		assert.Equal(t, 20, parent.ProgressPercent)
	})
}

// ---------------------------------------------------------------------------
// 4. Dependencies.
// ---------------------------------------------------------------------------

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.IsBlocked(nil))
	assert.False(t, domain.IsBlocked([]*domain.Task{{Status: domain.TaskStatusCompleted}}))
	assert.True(t, domain.IsBlocked([]*domain.Task{{Status: domain.TaskStatusCompleted}, {Status: domain.TaskStatusPending}}))
	assert.True(t, domain.IsBlocked([]*domain.Task{{Status: domain.TaskStatusCancelled}}))
}

func TestReaches(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {},
	}
	next := func(k string) ([]string, error) { return graph[k], nil }

	ok, err := domain.Reaches("a", "c", next)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = domain.Reaches("d", "a", next)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = domain.Reaches("d", "d", next)
	require.NoError(t, err)
	assert.True(t, ok, "a node always reaches itself")

	boom := errors.New("boom")
	_, err = domain.Reaches("a", "z", func(string) ([]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestNewTaskDependency_DefaultsType(t *testing.T) {
	t.Parallel()

	d := domain.NewTaskDependency(uuid.New(), uuid.New(), "", 0, time.Now())
	assert.Equal(t, domain.DependencyFinishToStart, d.DependencyType)
	assert.NotEqual(t, uuid.Nil, d.ID)
}

// ---------------------------------------------------------------------------
// 5. Templates.
// ---------------------------------------------------------------------------

func TestValidateTemplateTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		tasks     []domain.TemplateTask
		wantField string
	}{
		{
			name: "valid chain",
			tasks: []domain.TemplateTask{
				{OrderIndex: 0, Title: "Draft"},
				{OrderIndex: 1, Title: "Review", DependsOn: []int{0}},
				{OrderIndex: 2, Title: "File", DependsOn: []int{0, 1}},
			},
		},
		{
			name:      "duplicate index",
			tasks:     []domain.TemplateTask{{OrderIndex: 0}, {OrderIndex: 0}},
			wantField: "tasks[1].orderIndex",
		},
		{
			name:      "self dependency",
			tasks:     []domain.TemplateTask{{OrderIndex: 0, DependsOn: []int{0}}},
			wantField: "tasks[0].dependsOn",
		},
		{
			name: "repeated prerequisite",
			tasks: []domain.TemplateTask{
				{OrderIndex: 0, Title: "Draft"},
				{OrderIndex: 1, Title: "Review", DependsOn: []int{0, 0}},
			},
			wantField: "tasks[1].dependsOn",
		},
		{
			name:      "unknown index",
			tasks:     []domain.TemplateTask{{OrderIndex: 0, DependsOn: []int{7}}},
			wantField: "tasks[0].dependsOn",
		},
		{
			name: "cycle",
			tasks: []domain.TemplateTask{
				{OrderIndex: 0, DependsOn: []int{1}},
				{OrderIndex: 1, DependsOn: []int{0}},
			},
			wantField: "tasks[0].dependsOn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := domain.ValidateTemplateTasks(tt.tasks)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Fields[0].Field)
		})
	}
}

func TestTemplateTask_DueDate(t *testing.T) {
	t.Parallel()

	batchStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	prevCreated := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	prevStart := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	fromStart := domain.TemplateTask{DaysFromStart: ptr(3)}
	assert.Equal(t, time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), *fromStart.DueDate(batchStart, nil))

	fromPrev := domain.TemplateTask{DaysFromPrevious: ptr(2)}
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), *fromPrev.DueDate(batchStart, nil))
	assert.Equal(t, time.Date(2025, 2, 7, 0, 0, 0, 0, time.UTC), *fromPrev.DueDate(batchStart, &domain.Task{CreatedAt: prevCreated}))
	assert.Equal(t, time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC), *fromPrev.DueDate(batchStart, &domain.Task{CreatedAt: prevCreated, StartDate: &prevStart}))

	none := domain.TemplateTask{}
	assert.Nil(t, none.DueDate(batchStart, nil))
}

func TestTaskTemplate_VisibleTo(t *testing.T) {
	t.Parallel()

	creator := uuid.New()
	dept := uuid.New()
	other := uuid.New()

	private := &domain.TaskTemplate{Visibility: domain.TemplateVisibilityPrivate, CreatedByID: creator, DepartmentID: &dept}

	assert.True(t, private.VisibleTo(creator, domain.RoleParalegal, nil))
	assert.True(t, private.VisibleTo(other, domain.RoleAdmin, nil))
	assert.True(t, private.VisibleTo(other, domain.RoleClientDept, &dept))
	assert.False(t, private.VisibleTo(other, domain.RoleAttorney, nil))

	public := &domain.TaskTemplate{Visibility: domain.TemplateVisibilityPublic, CreatedByID: creator}
	assert.True(t, public.VisibleTo(other, domain.RoleClientDept, nil))
}

// ---------------------------------------------------------------------------
// 6. Scope predicates.
// ---------------------------------------------------------------------------

func TestScope_MatchesTask(t *testing.T) {
	t.Parallel()

	me := uuid.New()
	someone := uuid.New()
	myDept := uuid.New()
	otherDept := uuid.New()

	foreignTask := &domain.Task{CreatedByID: someone}
	myTask := &domain.Task{CreatedByID: me}
	assignedTask := &domain.Task{CreatedByID: someone, AssignedToID: &me}

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		assert.True(t, domain.Scope{Kind: domain.ScopeAll}.MatchesTask(foreignTask, nil, nil))
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		assert.False(t, domain.Scope{Kind: domain.ScopeNone, UserID: me}.MatchesTask(myTask, nil, nil))
	})

	t.Run("department", func(t *testing.T) {
		t.Parallel()

		s := domain.Scope{Kind: domain.ScopeDepartment, UserID: me, DepartmentID: &myDept}
		assert.True(t, s.MatchesTask(myTask, nil, nil))
		assert.True(t, s.MatchesTask(assignedTask, nil, nil))
		assert.True(t, s.MatchesTask(foreignTask, nil, &domain.LegalRequest{DepartmentID: myDept}))
		assert.False(t, s.MatchesTask(foreignTask, nil, &domain.LegalRequest{DepartmentID: otherDept}))
		assert.False(t, s.MatchesTask(foreignTask, &domain.Case{OwnerID: me}, nil), "case ownership does not widen department scope")
	})

	t.Run("case team", func(t *testing.T) {
		t.Parallel()

		s := domain.Scope{Kind: domain.ScopeCaseTeam, UserID: me}
		assert.True(t, s.MatchesTask(foreignTask, &domain.Case{OwnerID: me}, nil))
		assert.True(t, s.MatchesTask(foreignTask, &domain.Case{OwnerID: someone, AssignedParalegalID: &me}, nil))
		assert.False(t, s.MatchesTask(foreignTask, &domain.Case{OwnerID: someone}, nil))
		assert.False(t, s.MatchesTask(foreignTask, nil, &domain.LegalRequest{DepartmentID: myDept}))
	})
}

func TestRole_Valid(t *testing.T) {
	t.Parallel()

	for _, r := range domain.Roles() {
		assert.True(t, r.Valid(), r)
	}
	_, ok := domain.ParseRole("JANITOR")
	assert.False(t, ok)
}
