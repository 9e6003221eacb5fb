package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/auth"
	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/server/middleware"
)

// APIError is the body of every error response.
type APIError struct {
	Status         int                 `json:"-"`
	Message        string              `json:"error"`
	Details        []domain.FieldError `json:"details,omitempty"`
	DependentTasks *int                `json:"dependentTasks,omitempty"`
}

func (e *APIError) Error() string  { return e.Message }
func (e *APIError) GetStatus() int { return e.Status }

var configureOnce sync.Once

// ConfigureErrors replaces huma's problem+json model with APIError. It must
// run before any operation is registered because huma derives the error
// schema at registration time.
func ConfigureErrors() {
	configureOnce.Do(func() {
		huma.NewError = newError
	})
}

func newError(status int, msg string, errs ...error) huma.StatusError {
	if status >= http.StatusInternalServerError {
		for _, err := range errs {
			log.Error().Err(err).Int("status", status).Msg(msg)
		}
		return &APIError{Status: status, Message: "internal server error"}
	}

	// Schema violations are ordinary bad requests for clients.
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	e := &APIError{Status: status, Message: msg}
	for _, err := range errs {
		var d huma.ErrorDetailer
		if !errors.As(err, &d) {
			continue
		}
		detail := d.ErrorDetail()
		e.Details = append(e.Details, domain.FieldError{
			Field:   strings.TrimPrefix(detail.Location, "body."),
			Reason:  "invalid",
			Message: detail.Message,
		})
	}
	return e
}

// toHTTPError maps service errors onto responses. what names the entity for
// not-found messages.
func toHTTPError(err error, what string) error {
	var verr *domain.ValidationError
	var derr *domain.DependentsError
	switch {
	case errors.As(err, &verr):
		return &APIError{Status: http.StatusBadRequest, Message: "validation failed", Details: verr.Fields}
	case errors.As(err, &derr):
		n := derr.Count
		return &APIError{
			Status:         http.StatusBadRequest,
			Message:        "cannot delete a task that other tasks depend on",
			DependentTasks: &n,
		}
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(what + " not found")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("access denied")
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUserNotFound):
		return huma.Error401Unauthorized("authentication failed")
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return huma.Error409Conflict("a user with this email already exists")
	case errors.Is(err, auth.ErrUnknownProvider):
		return huma.Error404NotFound("sso provider not configured")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(what + " was modified concurrently or already exists")
	default:
		return huma.Error500InternalServerError(fmt.Sprintf("%s request failed", what), err)
	}
}

func validationError(fields []domain.FieldError) error {
	return &APIError{Status: http.StatusBadRequest, Message: "validation failed", Details: fields}
}

// principal returns the authenticated caller or a 401.
func principal(ctx context.Context) (access.Principal, error) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok {
		return access.Principal{}, huma.Error401Unauthorized("authentication required")
	}
	return p, nil
}
