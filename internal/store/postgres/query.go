package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/citylaw/docket/internal/domain"
)

// queryArgs collects positional arguments while a statement is assembled.
type queryArgs struct {
	args []any
}

// add appends v and returns its placeholder.
func (q *queryArgs) add(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// taskScope renders the access scope as a condition over tasks aliased t.
func taskScope(s domain.Scope, q *queryArgs) string {
	switch s.Kind {
	case domain.ScopeAll:
		return "TRUE"
	case domain.ScopeCaseTeam:
		u := q.add(s.UserID)
		return fmt.Sprintf(`(t.created_by_id = %[1]s OR t.assigned_to_id = %[1]s OR EXISTS (
			SELECT 1 FROM cases c WHERE c.id = t.case_id
			  AND (c.owner_id = %[1]s OR c.assigned_attorney_id = %[1]s OR c.assigned_paralegal_id = %[1]s)))`, u)
	case domain.ScopeDepartment:
		u := q.add(s.UserID)
		if s.DepartmentID == nil {
			return fmt.Sprintf(`(t.created_by_id = %[1]s OR t.assigned_to_id = %[1]s)`, u)
		}
		d := q.add(*s.DepartmentID)
		return fmt.Sprintf(`(t.created_by_id = %[1]s OR t.assigned_to_id = %[1]s OR EXISTS (
			SELECT 1 FROM legal_requests lr WHERE lr.id = t.request_id AND lr.department_id = %[2]s))`, u, d)
	case domain.ScopeNone:
		return "FALSE"
	default:
		return "FALSE"
	}
}

// caseScope renders the access scope over cases aliased c.
func caseScope(s domain.Scope, q *queryArgs) string {
	switch s.Kind {
	case domain.ScopeAll:
		return "TRUE"
	case domain.ScopeCaseTeam:
		u := q.add(s.UserID)
		return fmt.Sprintf(`(c.owner_id = %[1]s OR c.assigned_attorney_id = %[1]s OR c.assigned_paralegal_id = %[1]s)`, u)
	case domain.ScopeDepartment:
		if s.DepartmentID == nil {
			return "FALSE"
		}
		return "c.client_department_id = " + q.add(*s.DepartmentID)
	case domain.ScopeNone:
		return "FALSE"
	default:
		return "FALSE"
	}
}

// requestScope renders the access scope over legal_requests aliased lr.
func requestScope(s domain.Scope, q *queryArgs) string {
	switch s.Kind {
	case domain.ScopeAll:
		return "TRUE"
	case domain.ScopeCaseTeam:
		u := q.add(s.UserID)
		return fmt.Sprintf(`(lr.requester_id = %[1]s OR lr.assigned_to_id = %[1]s)`, u)
	case domain.ScopeDepartment:
		u := q.add(s.UserID)
		if s.DepartmentID == nil {
			return "lr.requester_id = " + u
		}
		return fmt.Sprintf(`(lr.requester_id = %s OR lr.department_id = %s)`, u, q.add(*s.DepartmentID))
	case domain.ScopeNone:
		return "FALSE"
	default:
		return "FALSE"
	}
}

// taskWhere renders scope and filter as one WHERE clause body.
func taskWhere(s domain.Scope, f domain.TaskFilter, q *queryArgs) string {
	conds := []string{taskScope(s, q)}
	add := func(format string, v any) {
		conds = append(conds, fmt.Sprintf(format, q.add(v)))
	}

	if f.Status != "" {
		add("t.status = %s", f.Status)
	}
	if f.Priority != "" {
		add("t.priority = %s", f.Priority)
	}
	if f.AssignedToID != nil {
		add("t.assigned_to_id = %s", *f.AssignedToID)
	}
	if f.CreatedByID != nil {
		add("t.created_by_id = %s", *f.CreatedByID)
	}
	if f.CaseID != nil {
		add("t.case_id = %s", *f.CaseID)
	}
	if f.RequestID != nil {
		add("t.request_id = %s", *f.RequestID)
	}
	if f.Category != "" {
		add("t.category = %s", f.Category)
	}
	if len(f.Tags) > 0 {
		add("t.tags && %s", f.Tags)
	}
	if f.DueBefore != nil {
		add("t.due_date <= %s", *f.DueBefore)
	}
	if f.DueAfter != nil {
		add("t.due_date >= %s", *f.DueAfter)
	}
	if f.CreatedBefore != nil {
		add("t.created_at <= %s", *f.CreatedBefore)
	}
	if f.CreatedAfter != nil {
		add("t.created_at >= %s", *f.CreatedAfter)
	}
	if f.Overdue {
		add("t.due_date < %s AND t.status NOT IN ('COMPLETED', 'CANCELLED')", f.Now)
	}
	if f.DueThisWeek {
		conds = append(conds, fmt.Sprintf("t.due_date >= %s AND t.due_date < %s", q.add(f.Now), q.add(f.Now.AddDate(0, 0, 7))))
	}
	if f.HasSubtasks {
		conds = append(conds, "EXISTS (SELECT 1 FROM tasks s WHERE s.parent_task_id = t.id)")
	}
	if f.TopLevelOnly {
		conds = append(conds, "t.parent_task_id IS NULL")
	}

	return strings.Join(conds, " AND ")
}

// taskOrder renders the ORDER BY body. Unknown fields fall back to creation
// time; the id tiebreak keeps pages stable.
func taskOrder(f domain.TaskFilter) string {
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	var expr string
	switch f.SortBy {
	case domain.TaskSortDueDate:
		expr = "t.due_date " + dir + " NULLS LAST"
	case domain.TaskSortPriority:
		expr = `CASE t.priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 WHEN 'URGENT' THEN 4 END ` + dir
	case domain.TaskSortStatus:
		expr = "t.status " + dir
	case domain.TaskSortTitle:
		expr = "t.title " + dir
	case domain.TaskSortCreatedAt:
		expr = "t.created_at " + dir
	default:
		expr = "t.created_at " + dir
	}
	return expr + ", t.id " + dir
}

// marshalJSON encodes a JSONB column value, keeping nil maps as SQL NULL.
func marshalJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(raw []byte) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
