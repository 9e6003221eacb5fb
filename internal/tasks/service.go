// Package tasks implements task creation, partial update, deletion, template
// expansion and subtask progress propagation.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// Notifier delivers a user notification. *notify.Notifier satisfies this
// interface.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// Service orchestrates task mutations. Primary writes run in one store
// transaction; notifications, activity entries and progress propagation run
// after commit and only log their failures.
type Service struct {
	store    domain.Store
	checker  *access.Checker
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store domain.Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		checker:  access.NewChecker(store.Cases(), store.Requests()),
		notifier: notifier,
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checker exposes the single-entity access checks used by the service.
func (s *Service) Checker() *access.Checker {
	return s.checker
}

// loadAccessible returns the task when p may read it.
func (s *Service) loadAccessible(ctx context.Context, p access.Principal, id uuid.UUID) (*domain.Task, error) {
	t, err := s.store.Tasks().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.checker.VerifyTaskAccess(ctx, p, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

// checkLinks verifies access to every supplied case, request and parent task.
func (s *Service) checkLinks(ctx context.Context, p access.Principal, caseID, requestID, parentID *uuid.UUID) error {
	if caseID != nil {
		ok, err := s.checker.VerifyCaseAccess(ctx, p, *caseID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("case %s: %w", caseID, domain.ErrForbidden)
		}
	}
	if requestID != nil {
		ok, err := s.checker.VerifyRequestAccess(ctx, p, *requestID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("request %s: %w", requestID, domain.ErrForbidden)
		}
	}
	if parentID != nil {
		if _, err := s.loadAccessible(ctx, p, *parentID); err != nil {
			return fmt.Errorf("parent task %s: %w", parentID, err)
		}
	}
	return nil
}

// requireActiveUser rejects assignees that do not exist or are deactivated.
func (s *Service) requireActiveUser(ctx context.Context, field string, id uuid.UUID) error {
	u, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !u.Active) {
		return domain.NewValidationError(field, "active", "must reference an active user")
	}
	return err
}
