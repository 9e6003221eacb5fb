package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/tasks"
)

type ListTemplatesOutput struct {
	Body struct {
		Templates []*domain.TaskTemplate `json:"templates"`
	}
}

type TemplateIDInput struct {
	ID uuid.UUID `path:"id" doc:"Template ID"`
}

type CreateTemplateInput struct {
	Body tasks.TemplateInput
}

type TemplateOutput struct {
	Body *domain.TaskTemplate
}

func RegisterTemplateRoutes(api huma.API, svc TaskService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-task-templates",
		Method:      http.MethodGet,
		Path:        "/task-templates",
		Summary:     "List templates visible to the caller",
		Tags:        []string{"Templates"},
	}, func(ctx context.Context, _ *struct{}) (*ListTemplatesOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		templates, err := svc.ListTemplates(ctx, p)
		if err != nil {
			return nil, toHTTPError(err, "template")
		}

		out := &ListTemplatesOutput{}
		out.Body.Templates = templates
		if out.Body.Templates == nil {
			out.Body.Templates = []*domain.TaskTemplate{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task-template",
		Method:      http.MethodGet,
		Path:        "/task-templates/{id}",
		Summary:     "Get a task template",
		Tags:        []string{"Templates"},
	}, func(ctx context.Context, input *TemplateIDInput) (*TemplateOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		tmpl, err := svc.GetTemplate(ctx, p, input.ID)
		if err != nil {
			return nil, toHTTPError(err, "template")
		}
		return &TemplateOutput{Body: tmpl}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task-template",
		Method:        http.MethodPost,
		Path:          "/task-templates",
		Summary:       "Create a task template",
		Tags:          []string{"Templates"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTemplateInput) (*TemplateOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		tmpl, err := svc.CreateTemplate(ctx, p, input.Body)
		if err != nil {
			return nil, toHTTPError(err, "template")
		}
		return &TemplateOutput{Body: tmpl}, nil
	})
}
