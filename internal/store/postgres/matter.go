package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/citylaw/docket/internal/domain"
)

// --- Cases ---

type CaseRepo struct {
	db DBTX
}

func NewCaseRepo(db DBTX) *CaseRepo {
	return &CaseRepo{db: db}
}

const caseColumns = `c.id, c.case_number, c.title, c.status, c.owner_id, c.assigned_attorney_id,
	c.assigned_paralegal_id, c.client_department_id, c.created_at, c.updated_at`

func (r *CaseRepo) Create(ctx context.Context, c *domain.Case) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO cases (id, case_number, title, status, owner_id, assigned_attorney_id,
		        assigned_paralegal_id, client_department_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.CaseNumber, c.Title, c.Status, c.OwnerID, c.AssignedAttorneyID,
		c.AssignedParalegalID, c.ClientDepartmentID, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("caseRepo.Create: case number taken: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("caseRepo.Create: %w", err)
	}

	return nil
}

func (r *CaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Case, error) {
	var c domain.Case

	err := r.db.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases c WHERE c.id = $1`, id,
	).Scan(
		&c.ID, &c.CaseNumber, &c.Title, &c.Status, &c.OwnerID, &c.AssignedAttorneyID,
		&c.AssignedParalegalID, &c.ClientDepartmentID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("caseRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("caseRepo.GetByID: %w", err)
	}

	return &c, nil
}

func (r *CaseRepo) List(ctx context.Context, scope domain.Scope, limit, offset int) ([]*domain.Case, error) {
	var q queryArgs
	where := caseScope(scope, &q)
	rows, err := r.db.Query(ctx,
		`SELECT `+caseColumns+` FROM cases c WHERE `+where+
			` ORDER BY c.created_at DESC, c.id LIMIT `+q.add(limit)+` OFFSET `+q.add(offset),
		q.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("caseRepo.List: %w", err)
	}
	defer rows.Close()

	var cases []*domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID, &c.CaseNumber, &c.Title, &c.Status, &c.OwnerID, &c.AssignedAttorneyID,
			&c.AssignedParalegalID, &c.ClientDepartmentID, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("caseRepo.List: scan: %w", err)
		}
		cases = append(cases, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("caseRepo.List: rows: %w", err)
	}

	return cases, nil
}

// --- Legal requests ---

type RequestRepo struct {
	db DBTX
}

func NewRequestRepo(db DBTX) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `lr.id, lr.title, lr.type, lr.status, lr.department_id, lr.requester_id,
	lr.assigned_to_id, lr.due_date, lr.created_at, lr.updated_at`

func (r *RequestRepo) Create(ctx context.Context, lr *domain.LegalRequest) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO legal_requests (id, title, type, status, department_id, requester_id,
		        assigned_to_id, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lr.ID, lr.Title, lr.Type, lr.Status, lr.DepartmentID, lr.RequesterID,
		lr.AssignedToID, lr.DueDate, lr.CreatedAt, lr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("requestRepo.Create: %w", err)
	}

	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LegalRequest, error) {
	var lr domain.LegalRequest

	err := r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM legal_requests lr WHERE lr.id = $1`, id,
	).Scan(
		&lr.ID, &lr.Title, &lr.Type, &lr.Status, &lr.DepartmentID, &lr.RequesterID,
		&lr.AssignedToID, &lr.DueDate, &lr.CreatedAt, &lr.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("requestRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("requestRepo.GetByID: %w", err)
	}

	return &lr, nil
}

func (r *RequestRepo) List(ctx context.Context, scope domain.Scope, limit, offset int) ([]*domain.LegalRequest, error) {
	var q queryArgs
	where := requestScope(scope, &q)
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM legal_requests lr WHERE `+where+
			` ORDER BY lr.created_at DESC, lr.id LIMIT `+q.add(limit)+` OFFSET `+q.add(offset),
		q.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("requestRepo.List: %w", err)
	}
	defer rows.Close()

	var requests []*domain.LegalRequest
	for rows.Next() {
		var lr domain.LegalRequest
		if err := rows.Scan(
			&lr.ID, &lr.Title, &lr.Type, &lr.Status, &lr.DepartmentID, &lr.RequesterID,
			&lr.AssignedToID, &lr.DueDate, &lr.CreatedAt, &lr.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("requestRepo.List: scan: %w", err)
		}
		requests = append(requests, &lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requestRepo.List: rows: %w", err)
	}

	return requests, nil
}
