package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/tasks"
)

type ListTasksInput struct {
	Page          int    `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	Limit         int    `query:"limit" default:"20" minimum:"1" doc:"Page size, capped at 100"`
	Status        string `query:"status" doc:"Filter by status"`
	Priority      string `query:"priority" doc:"Filter by priority"`
	AssignedToID  string `query:"assignedToId" doc:"Filter by assignee"`
	CreatedByID   string `query:"createdById" doc:"Filter by creator"`
	CaseID        string `query:"caseId" doc:"Filter by case"`
	RequestID     string `query:"requestId" doc:"Filter by legal request"`
	Category      string `query:"category" doc:"Filter by category"`
	Tags          string `query:"tags" doc:"Comma-separated tags; any match"`
	DueBefore     string `query:"dueBefore" doc:"RFC 3339 timestamp or YYYY-MM-DD"`
	DueAfter      string `query:"dueAfter" doc:"RFC 3339 timestamp or YYYY-MM-DD"`
	CreatedBefore string `query:"createdBefore" doc:"RFC 3339 timestamp or YYYY-MM-DD"`
	CreatedAfter  string `query:"createdAfter" doc:"RFC 3339 timestamp or YYYY-MM-DD"`
	AssignedToMe  bool   `query:"assignedToMe" doc:"Only tasks assigned to the caller"`
	CreatedByMe   bool   `query:"createdByMe" doc:"Only tasks created by the caller"`
	Overdue       bool   `query:"overdue" doc:"Only open tasks past their due date"`
	DueThisWeek   bool   `query:"dueThisWeek" doc:"Only tasks due in the next seven days"`
	HasSubtasks   bool   `query:"hasSubtasks" doc:"Only tasks with subtasks"`
	IsParentTask  bool   `query:"isParentTask" default:"true" doc:"Only top-level tasks"`
	SortBy        string `query:"sortBy" default:"createdAt" enum:"dueDate,priority,status,createdAt,title" doc:"Sort column"`
	SortOrder     string `query:"sortOrder" default:"desc" enum:"asc,desc" doc:"Sort direction"`
}

type ListTasksOutput struct {
	Body *tasks.ListResult
}

type CreateTaskInput struct {
	RawBody []byte `contentType:"application/json"`
}

type CreateTaskOutput struct {
	Body struct {
		Task     *domain.Task         `json:"task,omitempty"`
		Tasks    []*domain.Task       `json:"tasks,omitempty"`
		Template *domain.TaskTemplate `json:"template,omitempty"`
		Success  bool                 `json:"success"`
	}
}

type TaskIDInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type GetTaskOutput struct {
	Body *tasks.Detail
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body tasks.UpdateInput
}

type TaskOutput struct {
	Body struct {
		Task    *domain.Task `json:"task"`
		Success bool         `json:"success"`
	}
}

type SuccessOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

type TaskActivityInput struct {
	ID    uuid.UUID `path:"id" doc:"Task ID"`
	Limit int       `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum entries"`
}

type TaskActivityOutput struct {
	Body struct {
		Activity []*domain.ActivityEntry `json:"activity"`
	}
}

func RegisterTaskRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List visible tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		q, err := input.query()
		if err != nil {
			return nil, err
		}

		result, err := svc.List(ctx, p, q)
		if err != nil {
			return nil, toHTTPError(err, "task")
		}
		return &ListTasksOutput{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task or expand a template",
		Description:   "A body carrying templateId expands that template; any other body creates a single task.",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*CreateTaskOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		var head struct {
			TemplateID json.RawMessage `json:"templateId"`
		}
		if err := json.Unmarshal(input.RawBody, &head); err != nil {
			return nil, huma.Error400BadRequest("request body must be a JSON object")
		}
		expand, err := isTemplateExpansion(head.TemplateID)
		if err != nil {
			return nil, err
		}

		out := &CreateTaskOutput{}
		if expand {
			var in tasks.ExpandInput
			if err := json.Unmarshal(input.RawBody, &in); err != nil {
				return nil, huma.Error400BadRequest("malformed template expansion payload")
			}
			result, err := svc.ExpandTemplate(ctx, p, in)
			if err != nil {
				return nil, toHTTPError(err, "template")
			}
			out.Body.Tasks = result.Tasks
			out.Body.Template = result.Template
			out.Body.Success = true
			return out, nil
		}

		var in tasks.CreateInput
		if err := json.Unmarshal(input.RawBody, &in); err != nil {
			return nil, huma.Error400BadRequest("malformed task payload")
		}
		task, err := svc.Create(ctx, p, in)
		if err != nil {
			return nil, toHTTPError(err, "task")
		}
		out.Body.Task = task
		out.Body.Success = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task with its subtasks, dependencies and stats",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*GetTaskOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		detail, err := svc.Get(ctx, p, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "task")
		}
		return &GetTaskOutput{Body: detail}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Partially update a task",
		Description: "Absent fields are left unchanged and null clears optional fields. Supplying version enables compare-and-swap.",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		task, err := svc.Update(ctx, p, input.ID, input.Body)
		if err != nil {
			return nil, toHTTPError(err, "task")
		}

		out := &TaskOutput{}
		out.Body.Task = task
		out.Body.Success = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task and its subtask links",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*SuccessOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		if err := svc.Delete(ctx, p, input.ID); err != nil {
			return nil, toHTTPError(err, "task")
		}

		out := &SuccessOutput{}
		out.Body.Success = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "task-activity",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/activity",
		Summary:     "List recent activity for a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskActivityInput) (*TaskActivityOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		entries, err := svc.Activity(ctx, p, input.ID, input.Limit)
		if err != nil {
			return nil, toHTTPError(err, "task")
		}

		out := &TaskActivityOutput{}
		out.Body.Activity = entries
		if out.Body.Activity == nil {
			out.Body.Activity = []*domain.ActivityEntry{}
		}
		return out, nil
	})
}

// query converts raw query parameters into a service query, collecting every
// malformed id or date.
func (in *ListTasksInput) query() (tasks.ListQuery, error) {
	var fields []domain.FieldError
	ids := func(name, raw string) *uuid.UUID {
		if raw == "" {
			return nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: name, Reason: "uuid", Message: "must be a UUID"})
			return nil
		}
		return &id
	}
	dates := func(name, raw string) *time.Time {
		if raw == "" {
			return nil
		}
		ts, ok := parseDate(raw)
		if !ok {
			fields = append(fields, domain.FieldError{Field: name, Reason: "datetime", Message: "must be an RFC 3339 timestamp or YYYY-MM-DD"})
			return nil
		}
		return &ts
	}

	q := tasks.ListQuery{
		TaskFilter: domain.TaskFilter{
			Status:        domain.TaskStatus(in.Status),
			Priority:      domain.TaskPriority(in.Priority),
			AssignedToID:  ids("assignedToId", in.AssignedToID),
			CreatedByID:   ids("createdById", in.CreatedByID),
			CaseID:        ids("caseId", in.CaseID),
			RequestID:     ids("requestId", in.RequestID),
			Category:      strings.TrimSpace(in.Category),
			Tags:          splitList(in.Tags),
			DueBefore:     dates("dueBefore", in.DueBefore),
			DueAfter:      dates("dueAfter", in.DueAfter),
			CreatedBefore: dates("createdBefore", in.CreatedBefore),
			CreatedAfter:  dates("createdAfter", in.CreatedAfter),
			Overdue:       in.Overdue,
			DueThisWeek:   in.DueThisWeek,
			HasSubtasks:   in.HasSubtasks,
			TopLevelOnly:  in.IsParentTask,
			SortBy:        domain.TaskSortField(in.SortBy),
			SortDesc:      in.SortOrder != "asc",
			Limit:         in.Limit,
		},
		Page:         in.Page,
		AssignedToMe: in.AssignedToMe,
		CreatedByMe:  in.CreatedByMe,
	}
	if len(fields) > 0 {
		return tasks.ListQuery{}, validationError(fields)
	}
	return q, nil
}

func parseDate(raw string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse(time.DateOnly, raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// isTemplateExpansion reports whether a POST /tasks body names a template. A
// templateId that is present but not a UUID string is a field error.
func isTemplateExpansion(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, err := uuid.Parse(s); err == nil {
			return true, nil
		}
	}
	return false, validationError([]domain.FieldError{
		{Field: "templateId", Reason: "uuid", Message: "must be a UUID"},
	})
}
