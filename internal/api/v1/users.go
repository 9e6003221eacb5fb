package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/auth"
	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/patch"
)

type MeOutput struct {
	Body *domain.User
}

type CreateUserInput struct {
	Body struct {
		Email        string      `json:"email" minLength:"3" maxLength:"255" doc:"Work email"`
		Password     string      `json:"password,omitempty" maxLength:"128" doc:"Initial password; omit for SSO-only accounts"` //nolint:gosec // G117: account provisioning DTO
		Name         string      `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Role         domain.Role `json:"role" enum:"ADMIN,ATTORNEY,PARALEGAL,SUPPORT_STAFF,CLIENT_DEPT" doc:"Staff role"`
		DepartmentID *uuid.UUID  `json:"departmentId,omitempty" doc:"Department, required for client department users"`
		SlackUserID  string      `json:"slackUserId,omitempty" doc:"Slack member ID for direct messages"`
	}
}

type UserOutput struct {
	Body *domain.User
}

type ListUsersOutput struct {
	Body struct {
		Users []*domain.User `json:"users"`
	}
}

type UpdateUserInput struct {
	ID   uuid.UUID `path:"id" doc:"User ID"`
	Body struct {
		Name         patch.Field[string]      `json:"name,omitempty" doc:"Display name"`
		Role         patch.Field[domain.Role] `json:"role,omitempty" doc:"Staff role"`
		DepartmentID patch.Field[uuid.UUID]   `json:"departmentId,omitempty" doc:"Department; null clears it"`
		SlackUserID  patch.Field[string]      `json:"slackUserId,omitempty" doc:"Slack member ID; null clears it"`
		Active       patch.Field[bool]        `json:"active,omitempty" doc:"Deactivated users can no longer sign in"`
		Password     patch.Field[string]      `json:"password,omitempty" doc:"New password"` //nolint:gosec // G117: account provisioning DTO
	}
}

// RegisterProfileRoutes exposes the caller's own account.
func RegisterProfileRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Get the authenticated user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		user, err := store.Users().GetByID(ctx, p.UserID)
		if err != nil {
			return nil, toHTTPError(err, "user")
		}
		return &MeOutput{Body: user}, nil
	})
}

// RegisterAdminRoutes manages staff accounts. The router mounts these behind
// middleware.RequireAdmin.
func RegisterAdminRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "admin-create-user",
		Method:        http.MethodPost,
		Path:          "/admin/users",
		Summary:       "Create a staff account",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
		user, err := authSvc.Register(ctx, auth.NewUser{
			Email:        input.Body.Email,
			Password:     input.Body.Password,
			Name:         input.Body.Name,
			Role:         input.Body.Role,
			DepartmentID: input.Body.DepartmentID,
			SlackUserID:  input.Body.SlackUserID,
		})
		if err != nil {
			return nil, toHTTPError(err, "user")
		}
		return &UserOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-list-users",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List staff accounts",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		users, err := authSvc.ListUsers(ctx)
		if err != nil {
			return nil, toHTTPError(err, "user")
		}

		out := &ListUsersOutput{}
		out.Body.Users = users
		if out.Body.Users == nil {
			out.Body.Users = []*domain.User{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-update-user",
		Method:      http.MethodPatch,
		Path:        "/admin/users/{id}",
		Summary:     "Change a staff account's role, department, Slack ID or status",
		Tags:        []string{"Admin"},
	}, func(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
		user, err := authSvc.UpdateUser(ctx, input.ID, auth.UserUpdate{
			Name:         input.Body.Name,
			Role:         input.Body.Role,
			DepartmentID: input.Body.DepartmentID,
			SlackUserID:  input.Body.SlackUserID,
			Active:       input.Body.Active,
			Password:     input.Body.Password,
		})
		if err != nil {
			return nil, toHTTPError(err, "user")
		}
		return &UserOutput{Body: user}, nil
	})
}
