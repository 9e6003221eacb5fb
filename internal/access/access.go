// Package access decides which tasks, cases and legal requests a caller may
// see and change.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID       uuid.UUID
	Role         domain.Role
	DepartmentID *uuid.UUID
}

// ScopeFor returns the listing predicate for p.
func ScopeFor(p Principal) domain.Scope {
	s := domain.Scope{UserID: p.UserID, DepartmentID: p.DepartmentID}
	switch p.Role {
	case domain.RoleAdmin:
		s.Kind = domain.ScopeAll
	case domain.RoleClientDept:
		s.Kind = domain.ScopeDepartment
	case domain.RoleAttorney, domain.RoleParalegal, domain.RoleSupportStaff:
		s.Kind = domain.ScopeCaseTeam
	default:
		s.Kind = domain.ScopeNone
	}
	return s
}

// CanModifyTask reports whether p may change t. It is narrower than read
// access.
func CanModifyTask(p Principal, t *domain.Task) bool {
	if t.CreatedByID == p.UserID || isAssignee(t, p.UserID) {
		return true
	}
	switch p.Role {
	case domain.RoleAdmin, domain.RoleAttorney:
		return true
	case domain.RoleParalegal, domain.RoleSupportStaff, domain.RoleClientDept:
		return false
	default:
		return false
	}
}

// Checker runs single-entity access checks that need the linked case or
// request.
type Checker struct {
	cases    domain.CaseRepository
	requests domain.RequestRepository
}

func NewChecker(cases domain.CaseRepository, requests domain.RequestRepository) *Checker {
	return &Checker{cases: cases, requests: requests}
}

// VerifyTaskAccess reports whether p may read t. The creator, the assignee
// and ADMIN always pass; anyone else needs access through the task's case
// (case team roles only) or its request.
func (c *Checker) VerifyTaskAccess(ctx context.Context, p Principal, t *domain.Task) (bool, error) {
	if t.CreatedByID == p.UserID || isAssignee(t, p.UserID) || p.Role == domain.RoleAdmin {
		return true, nil
	}

	if t.CaseID != nil && onCaseTeamRole(p.Role) {
		ok, err := c.VerifyCaseAccess(ctx, p, *t.CaseID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	if t.RequestID != nil {
		r, err := c.requests.GetByID(ctx, *t.RequestID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("access.VerifyTaskAccess: %w", err)
		}
		if err == nil && requestGrantsTask(p, r) {
			return true, nil
		}
	}

	return false, nil
}

// VerifyCaseAccess reports whether p may read the case. A missing case is
// returned as domain.ErrNotFound.
func (c *Checker) VerifyCaseAccess(ctx context.Context, p Principal, caseID uuid.UUID) (bool, error) {
	cs, err := c.cases.GetByID(ctx, caseID)
	if err != nil {
		return false, fmt.Errorf("access.VerifyCaseAccess: %w", err)
	}
	return CaseVisible(p, cs), nil
}

// CaseVisible evaluates case access on an already loaded case.
func CaseVisible(p Principal, cs *domain.Case) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAttorney, domain.RoleParalegal, domain.RoleSupportStaff:
		return cs.OnCaseTeam(p.UserID)
	case domain.RoleClientDept:
		return p.DepartmentID != nil && cs.ClientDepartmentID != nil && *cs.ClientDepartmentID == *p.DepartmentID
	default:
		return false
	}
}

// VerifyRequestAccess reports whether p may read the legal request. A missing
// request is returned as domain.ErrNotFound.
func (c *Checker) VerifyRequestAccess(ctx context.Context, p Principal, requestID uuid.UUID) (bool, error) {
	r, err := c.requests.GetByID(ctx, requestID)
	if err != nil {
		return false, fmt.Errorf("access.VerifyRequestAccess: %w", err)
	}
	return RequestVisible(p, r), nil
}

// RequestVisible evaluates request access on an already loaded request. The
// requester always sees their own request.
func RequestVisible(p Principal, r *domain.LegalRequest) bool {
	if r.RequesterID == p.UserID {
		return true
	}
	return requestGrantsTask(p, r)
}

// requestGrantsTask reports whether r opens its tasks to p. Department
// matching is reserved to CLIENT_DEPT and assignee matching to ATTORNEY and
// PARALEGAL. Having filed the request grants nothing, so a user moved to
// another department loses the old department's tasks.
func requestGrantsTask(p Principal, r *domain.LegalRequest) bool {
	switch p.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleClientDept:
		return p.DepartmentID != nil && r.DepartmentID == *p.DepartmentID
	case domain.RoleAttorney, domain.RoleParalegal:
		return r.AssignedToID != nil && *r.AssignedToID == p.UserID
	case domain.RoleSupportStaff:
		return false
	default:
		return false
	}
}

func onCaseTeamRole(r domain.Role) bool {
	switch r {
	case domain.RoleAttorney, domain.RoleParalegal, domain.RoleSupportStaff:
		return true
	case domain.RoleAdmin, domain.RoleClientDept:
		return false
	default:
		return false
	}
}

func isAssignee(t *domain.Task, userID uuid.UUID) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}
