package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Case is a litigation or advisory matter owned by an attorney.
type Case struct {
	ID                  uuid.UUID  `json:"id"`
	CaseNumber          string     `json:"caseNumber"`
	Title               string     `json:"title"`
	Status              string     `json:"status"`
	OwnerID             uuid.UUID  `json:"ownerId"`
	AssignedAttorneyID  *uuid.UUID `json:"assignedAttorneyId,omitempty"`
	AssignedParalegalID *uuid.UUID `json:"assignedParalegalId,omitempty"`
	ClientDepartmentID  *uuid.UUID `json:"clientDepartmentId,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// OnCaseTeam reports whether userID owns the case or is assigned to it.
func (c *Case) OnCaseTeam(userID uuid.UUID) bool {
	if c.OwnerID == userID {
		return true
	}
	if c.AssignedAttorneyID != nil && *c.AssignedAttorneyID == userID {
		return true
	}
	return c.AssignedParalegalID != nil && *c.AssignedParalegalID == userID
}

// RequestType distinguishes general legal service requests from FOIL requests.
type RequestType string

const (
	RequestTypeLegalService RequestType = "LEGAL_SERVICE"
	RequestTypeFOIL         RequestType = "FOIL"
)

// LegalRequest is a matter submitted by a client department.
type LegalRequest struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Type         RequestType `json:"type"`
	Status       string      `json:"status"`
	DepartmentID uuid.UUID   `json:"departmentId"`
	RequesterID  uuid.UUID   `json:"requesterId"`
	AssignedToID *uuid.UUID  `json:"assignedToId,omitempty"`
	DueDate      *time.Time  `json:"dueDate,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	List(ctx context.Context, scope Scope, limit, offset int) ([]*Case, error)
}

type RequestRepository interface {
	Create(ctx context.Context, r *LegalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LegalRequest, error)
	List(ctx context.Context, scope Scope, limit, offset int) ([]*LegalRequest, error)
}
