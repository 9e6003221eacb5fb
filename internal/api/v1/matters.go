package v1

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

type PageInput struct {
	Page  int `query:"page" default:"1" minimum:"1" doc:"1-based page number"`
	Limit int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
}

func (in PageInput) offset() int {
	return (in.Page - 1) * in.Limit
}

type MatterIDInput struct {
	ID uuid.UUID `path:"id" doc:"Matter ID"`
}

// --- Cases ---

type ListCasesOutput struct {
	Body struct {
		Cases []*domain.Case `json:"cases"`
	}
}

type CreateCaseInput struct {
	Body struct {
		CaseNumber          string     `json:"caseNumber" minLength:"1" maxLength:"50" doc:"Court or docket number"`
		Title               string     `json:"title" minLength:"1" maxLength:"200" doc:"Case title"`
		Status              string     `json:"status,omitempty" maxLength:"50" doc:"Case status (default OPEN)"`
		AssignedAttorneyID  *uuid.UUID `json:"assignedAttorneyId,omitempty" doc:"Assigned attorney"`
		AssignedParalegalID *uuid.UUID `json:"assignedParalegalId,omitempty" doc:"Assigned paralegal"`
		ClientDepartmentID  *uuid.UUID `json:"clientDepartmentId,omitempty" doc:"Client department"`
	}
}

type CaseOutput struct {
	Body *domain.Case
}

// --- Legal requests ---

type ListRequestsOutput struct {
	Body struct {
		Requests []*domain.LegalRequest `json:"requests"`
	}
}

type CreateRequestInput struct {
	Body struct {
		Title        string             `json:"title" minLength:"1" maxLength:"200" doc:"Request title"`
		Type         domain.RequestType `json:"type" enum:"LEGAL_SERVICE,FOIL" doc:"Request type"`
		DepartmentID *uuid.UUID         `json:"departmentId,omitempty" doc:"Requesting department; fixed to the caller's own for client departments"`
		AssignedToID *uuid.UUID         `json:"assignedToId,omitempty" doc:"Assigned staff member"`
		DueDate      *time.Time         `json:"dueDate,omitempty" doc:"Requested completion date"`
	}
}

type RequestOutput struct {
	Body *domain.LegalRequest
}

func RegisterMatterRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases visible to the caller",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *PageInput) (*ListCasesOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		cases, err := store.Cases().List(ctx, access.ScopeFor(p), input.Limit, input.offset())
		if err != nil {
			return nil, toHTTPError(err, "case")
		}

		out := &ListCasesOutput{}
		out.Body.Cases = cases
		if out.Body.Cases == nil {
			out.Body.Cases = []*domain.Case{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{id}",
		Summary:     "Get a case",
		Tags:        []string{"Cases"},
	}, func(ctx context.Context, input *MatterIDInput) (*CaseOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		cs, err := store.Cases().GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "case")
		}
		if !access.CaseVisible(p, cs) {
			return nil, huma.Error403Forbidden("access denied")
		}
		return &CaseOutput{Body: cs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-case",
		Method:        http.MethodPost,
		Path:          "/cases",
		Summary:       "Open a case",
		Tags:          []string{"Cases"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateCaseInput) (*CaseOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}
		if p.Role != domain.RoleAdmin && p.Role != domain.RoleAttorney {
			return nil, huma.Error403Forbidden("only attorneys and administrators can open cases")
		}

		status := strings.TrimSpace(input.Body.Status)
		if status == "" {
			status = "OPEN"
		}

		now := time.Now()
		cs := &domain.Case{
			ID:                  uuid.New(),
			CaseNumber:          strings.TrimSpace(input.Body.CaseNumber),
			Title:               strings.TrimSpace(input.Body.Title),
			Status:              status,
			OwnerID:             p.UserID,
			AssignedAttorneyID:  input.Body.AssignedAttorneyID,
			AssignedParalegalID: input.Body.AssignedParalegalID,
			ClientDepartmentID:  input.Body.ClientDepartmentID,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := store.Cases().Create(ctx, cs); err != nil {
			return nil, toHTTPError(fmt.Errorf("case number %q: %w", cs.CaseNumber, err), "case")
		}
		return &CaseOutput{Body: cs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "List legal requests visible to the caller",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *PageInput) (*ListRequestsOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		requests, err := store.Requests().List(ctx, access.ScopeFor(p), input.Limit, input.offset())
		if err != nil {
			return nil, toHTTPError(err, "request")
		}

		out := &ListRequestsOutput{}
		out.Body.Requests = requests
		if out.Body.Requests == nil {
			out.Body.Requests = []*domain.LegalRequest{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/requests/{id}",
		Summary:     "Get a legal request",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *MatterIDInput) (*RequestOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		lr, err := store.Requests().GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "request")
		}
		if !access.RequestVisible(p, lr) {
			return nil, huma.Error403Forbidden("access denied")
		}
		return &RequestOutput{Body: lr}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-request",
		Method:        http.MethodPost,
		Path:          "/requests",
		Summary:       "Submit a legal request",
		Tags:          []string{"Requests"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateRequestInput) (*RequestOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		dept := input.Body.DepartmentID
		if p.Role == domain.RoleClientDept {
			// Client departments always file for themselves.
			dept = p.DepartmentID
		}
		if dept == nil {
			return nil, validationError([]domain.FieldError{{
				Field: "departmentId", Reason: "required", Message: "a requesting department is required",
			}})
		}

		now := time.Now()
		lr := &domain.LegalRequest{
			ID:           uuid.New(),
			Title:        strings.TrimSpace(input.Body.Title),
			Type:         input.Body.Type,
			Status:       "SUBMITTED",
			DepartmentID: *dept,
			RequesterID:  p.UserID,
			AssignedToID: input.Body.AssignedToID,
			DueDate:      input.Body.DueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := store.Requests().Create(ctx, lr); err != nil {
			return nil, toHTTPError(err, "request")
		}
		return &RequestOutput{Body: lr}, nil
	})
}
