package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/citylaw/docket/internal/domain"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.category, t.tags, t.metadata,
	t.due_date, t.start_date, t.completed_date, t.estimated_hours, t.actual_hours, t.progress_percent,
	t.assigned_to_id, t.created_by_id, t.case_id, t.request_id, t.template_id, t.parent_task_id,
	t.version, t.created_at, t.updated_at`

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: marshal metadata: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, category, tags, metadata,
		        due_date, start_date, completed_date, estimated_hours, actual_hours, progress_percent,
		        assigned_to_id, created_by_id, case_id, request_id, template_id, parent_task_id,
		        version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Category, t.Tags, metadata,
		t.DueDate, t.StartDate, t.CompletedDate, t.EstimatedHours, t.ActualHours, t.ProgressPercent,
		t.AssignedToID, t.CreatedByID, t.CaseID, t.RequestID, t.TemplateID, t.ParentTaskID,
		t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByIDs: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByIDs")
}

func (r *TaskRepo) ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.parent_task_id = $1 ORDER BY t.created_at, t.id`, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListSubtasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListSubtasks")
}

func (r *TaskRepo) List(ctx context.Context, scope domain.Scope, f domain.TaskFilter) ([]*domain.Task, int, error) {
	var q queryArgs
	where := taskWhere(scope, f, &q)

	var total int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks t WHERE `+where, q.args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("taskRepo.List: count: %w", err)
	}

	limit := q.add(f.Limit)
	offset := q.add(f.Offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE `+where+
			` ORDER BY `+taskOrder(f)+` LIMIT `+limit+` OFFSET `+offset,
		q.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("taskRepo.List: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows, "taskRepo.List")
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *TaskRepo) Summary(ctx context.Context, scope domain.Scope, now time.Time) (domain.TaskSummary, error) {
	var q queryArgs
	where := taskScope(scope, &q)
	n := q.add(now)
	weekAhead := q.add(now.AddDate(0, 0, 7))
	weekAgo := q.add(now.AddDate(0, 0, -7))

	var s domain.TaskSummary
	err := r.db.QueryRow(ctx,
		`SELECT
		   count(*) FILTER (WHERE t.due_date < `+n+` AND t.status NOT IN ('COMPLETED', 'CANCELLED')),
		   count(*) FILTER (WHERE t.due_date >= `+n+` AND t.due_date <= `+weekAhead+` AND t.status NOT IN ('COMPLETED', 'CANCELLED')),
		   count(*) FILTER (WHERE t.completed_date >= `+weekAgo+`)
		 FROM tasks t WHERE `+where,
		q.args...,
	).Scan(&s.Overdue, &s.Upcoming, &s.CompletedThisWeek)
	if err != nil {
		return s, fmt.Errorf("taskRepo.Summary: %w", err)
	}

	return s, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task, expectedVersion int) error {
	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: marshal metadata: %w", err)
	}

	var version int
	err = r.db.QueryRow(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, category = $5,
		        tags = $6, metadata = $7, due_date = $8, start_date = $9, completed_date = $10,
		        estimated_hours = $11, actual_hours = $12, progress_percent = $13, assigned_to_id = $14,
		        case_id = $15, request_id = $16, parent_task_id = $17, updated_at = $18,
		        version = version + 1
		 WHERE id = $19 AND ($20 = 0 OR version = $20)
		 RETURNING version`,
		t.Title, t.Description, t.Status, t.Priority, t.Category,
		t.Tags, metadata, t.DueDate, t.StartDate, t.CompletedDate,
		t.EstimatedHours, t.ActualHours, t.ProgressPercent, t.AssignedToID,
		t.CaseID, t.RequestID, t.ParentTaskID, t.UpdatedAt,
		t.ID, expectedVersion,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or the version moved on.
		var exists bool
		if qErr := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists); qErr != nil {
			return fmt.Errorf("taskRepo.Update: %w", qErr)
		}
		if !exists {
			return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("taskRepo.Update: version %d is stale: %w", expectedVersion, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}

	t.Version = version
	return nil
}

// Delete relies on the foreign keys: edges cascade and subtasks have their
// parent set to NULL.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var metadata []byte

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category, &t.Tags, &metadata,
		&t.DueDate, &t.StartDate, &t.CompletedDate, &t.EstimatedHours, &t.ActualHours, &t.ProgressPercent,
		&t.AssignedToID, &t.CreatedByID, &t.CaseID, &t.RequestID, &t.TemplateID, &t.ParentTaskID,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.Metadata, err = unmarshalJSON(metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}
