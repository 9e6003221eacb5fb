package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/citylaw/docket/internal/domain"
)

type DependencyRepo struct {
	db DBTX
}

func NewDependencyRepo(db DBTX) *DependencyRepo {
	return &DependencyRepo{db: db}
}

const dependencyColumns = `id, dependent_task_id, prerequisite_task_id, dependency_type, delay_days, created_at`

func (r *DependencyRepo) Create(ctx context.Context, d *domain.TaskDependency) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO task_dependencies (`+dependencyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.DependentTaskID, d.PrerequisiteTaskID, d.DependencyType, d.DelayDays, d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("dependencyRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("dependencyRepo.Create: %w", err)
	}

	return nil
}

func (r *DependencyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskDependency, error) {
	var d domain.TaskDependency

	err := r.db.QueryRow(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE id = $1`, id,
	).Scan(&d.ID, &d.DependentTaskID, &d.PrerequisiteTaskID, &d.DependencyType, &d.DelayDays, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("dependencyRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("dependencyRepo.GetByID: %w", err)
	}

	return &d, nil
}

func (r *DependencyRepo) Update(ctx context.Context, d *domain.TaskDependency) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE task_dependencies SET dependency_type = $1, delay_days = $2 WHERE id = $3`,
		d.DependencyType, d.DelayDays, d.ID,
	)
	if err != nil {
		return fmt.Errorf("dependencyRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dependencyRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *DependencyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM task_dependencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("dependencyRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dependencyRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *DependencyRepo) ListPrerequisites(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskDependency, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies
		 WHERE dependent_task_id = $1 ORDER BY created_at, id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("dependencyRepo.ListPrerequisites: %w", err)
	}
	defer rows.Close()

	return scanDependencies(rows, "dependencyRepo.ListPrerequisites")
}

func (r *DependencyRepo) ListDependents(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskDependency, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies
		 WHERE prerequisite_task_id = $1 ORDER BY created_at, id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("dependencyRepo.ListDependents: %w", err)
	}
	defer rows.Close()

	return scanDependencies(rows, "dependencyRepo.ListDependents")
}

func (r *DependencyRepo) CountDependents(ctx context.Context, taskID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM task_dependencies WHERE prerequisite_task_id = $1`, taskID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("dependencyRepo.CountDependents: %w", err)
	}

	return n, nil
}

func scanDependencies(rows pgx.Rows, caller string) ([]*domain.TaskDependency, error) {
	var deps []*domain.TaskDependency
	for rows.Next() {
		var d domain.TaskDependency
		if err := rows.Scan(&d.ID, &d.DependentTaskID, &d.PrerequisiteTaskID, &d.DependencyType, &d.DelayDays, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		deps = append(deps, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return deps, nil
}
