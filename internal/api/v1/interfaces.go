package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/auth"
	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/tasks"
)

// DataStore abstracts the repository accessors the matter, notification and
// profile handlers read directly. *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Cases() domain.CaseRepository
	Requests() domain.RequestRepository
	Notifications() domain.NotificationRepository
}

// TaskService abstracts the task workflow for handler testing.
// *tasks.Service satisfies this interface.
type TaskService interface {
	Create(ctx context.Context, p access.Principal, in tasks.CreateInput) (*domain.Task, error)
	ExpandTemplate(ctx context.Context, p access.Principal, in tasks.ExpandInput) (*tasks.ExpandResult, error)
	Get(ctx context.Context, p access.Principal, id uuid.UUID) (*tasks.Detail, error)
	List(ctx context.Context, p access.Principal, q tasks.ListQuery) (*tasks.ListResult, error)
	Update(ctx context.Context, p access.Principal, id uuid.UUID, in tasks.UpdateInput) (*domain.Task, error)
	Delete(ctx context.Context, p access.Principal, id uuid.UUID) error
	Activity(ctx context.Context, p access.Principal, id uuid.UUID, limit int) ([]*domain.ActivityEntry, error)
	CreateTemplate(ctx context.Context, p access.Principal, in tasks.TemplateInput) (*domain.TaskTemplate, error)
	GetTemplate(ctx context.Context, p access.Principal, id uuid.UUID) (*domain.TaskTemplate, error)
	ListTemplates(ctx context.Context, p access.Principal) ([]*domain.TaskTemplate, error)
}

// AuthService abstracts account and credential operations for handler
// testing. *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, in auth.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, upd auth.UserUpdate) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// SSOService abstracts the single sign-on flow. *auth.SSO satisfies this
// interface.
type SSOService interface {
	Start(ctx context.Context, provider string) (string, error)
	Complete(ctx context.Context, provider, state, code string) (*auth.TokenPair, error)
}
