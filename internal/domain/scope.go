package domain

import "github.com/google/uuid"

// ScopeKind selects which visibility predicate a Scope applies.
type ScopeKind int

const (
	// ScopeNone matches nothing.
	ScopeNone ScopeKind = iota
	// ScopeAll is unrestricted.
	ScopeAll
	// ScopeCaseTeam matches rows the user created or is assigned to, plus
	// rows linked to a case the user owns or works on.
	ScopeCaseTeam
	// ScopeDepartment matches rows the user created or is assigned to, plus
	// rows linked to a request filed by the user's department.
	ScopeDepartment
)

// Scope is the per-request visibility predicate produced by the access
// filter. Stores render it as a query condition; Matches* evaluate the same
// predicate in memory.
type Scope struct {
	Kind         ScopeKind
	UserID       uuid.UUID
	DepartmentID *uuid.UUID
}

// MatchesTask reports whether t is visible. c and r are the task's linked
// case and request, nil when absent.
func (s Scope) MatchesTask(t *Task, c *Case, r *LegalRequest) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeCaseTeam:
		if s.ownsTask(t) {
			return true
		}
		return c != nil && c.OnCaseTeam(s.UserID)
	case ScopeDepartment:
		if s.ownsTask(t) {
			return true
		}
		return r != nil && s.DepartmentID != nil && r.DepartmentID == *s.DepartmentID
	case ScopeNone:
		return false
	default:
		return false
	}
}

// MatchesCase reports whether c is visible.
func (s Scope) MatchesCase(c *Case) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeCaseTeam:
		return c.OnCaseTeam(s.UserID)
	case ScopeDepartment:
		return s.DepartmentID != nil && c.ClientDepartmentID != nil && *c.ClientDepartmentID == *s.DepartmentID
	case ScopeNone:
		return false
	default:
		return false
	}
}

// MatchesRequest reports whether r is visible.
func (s Scope) MatchesRequest(r *LegalRequest) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeCaseTeam:
		return r.RequesterID == s.UserID || (r.AssignedToID != nil && *r.AssignedToID == s.UserID)
	case ScopeDepartment:
		return r.RequesterID == s.UserID || (s.DepartmentID != nil && r.DepartmentID == *s.DepartmentID)
	case ScopeNone:
		return false
	default:
		return false
	}
}

func (s Scope) ownsTask(t *Task) bool {
	if t.CreatedByID == s.UserID {
		return true
	}
	return t.AssignedToID != nil && *t.AssignedToID == s.UserID
}
