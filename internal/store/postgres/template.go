package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/citylaw/docket/internal/domain"
)

type TemplateRepo struct {
	db DBTX
}

func NewTemplateRepo(db DBTX) *TemplateRepo {
	return &TemplateRepo{db: db}
}

const templateColumns = `id, name, description, category, visibility, department_id, created_by_id,
	tasks, use_count, last_used, created_at, updated_at`

func (r *TemplateRepo) Create(ctx context.Context, t *domain.TaskTemplate) error {
	entries, err := json.Marshal(t.Tasks)
	if err != nil {
		return fmt.Errorf("templateRepo.Create: marshal tasks: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO task_templates (`+templateColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Name, t.Description, t.Category, t.Visibility, t.DepartmentID, t.CreatedByID,
		entries, t.UseCount, t.LastUsed, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("templateRepo.Create: %w", err)
	}

	return nil
}

func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskTemplate, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM task_templates WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("templateRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("templateRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TemplateRepo) ListVisible(ctx context.Context, userID uuid.UUID, departmentID *uuid.UUID, all bool) ([]*domain.TaskTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+templateColumns+` FROM task_templates
		 WHERE $1
		    OR visibility = 'PUBLIC'
		    OR created_by_id = $2
		    OR ($3::uuid IS NOT NULL AND department_id = $3)
		 ORDER BY use_count DESC, name
		 LIMIT 500`,
		all, userID, departmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("templateRepo.ListVisible: %w", err)
	}
	defer rows.Close()

	var templates []*domain.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("templateRepo.ListVisible: scan: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("templateRepo.ListVisible: rows: %w", err)
	}

	return templates, nil
}

func (r *TemplateRepo) RecordUse(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE task_templates SET use_count = use_count + 1, last_used = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("templateRepo.RecordUse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("templateRepo.RecordUse: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTemplate(row pgx.Row) (*domain.TaskTemplate, error) {
	var t domain.TaskTemplate
	var entries []byte

	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.Category, &t.Visibility, &t.DepartmentID, &t.CreatedByID,
		&entries, &t.UseCount, &t.LastUsed, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entries, &t.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}

	return &t, nil
}
