package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// Delete removes a task that no other task depends on. A task that is still
// a prerequisite yields *domain.DependentsError and nothing is written.
func (s *Service) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	t, err := s.loadAccessible(ctx, p, id)
	if err != nil {
		return fmt.Errorf("tasks.Delete: %w", err)
	}
	if !access.CanModifyTask(p, t) {
		return fmt.Errorf("tasks.Delete: %w", domain.ErrForbidden)
	}

	err = s.store.InTx(ctx, func(tx domain.Repositories) error {
		n, err := tx.Dependencies().CountDependents(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &domain.DependentsError{Count: n}
		}
		return tx.Tasks().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("tasks.Delete: %w", err)
	}

	var fx effects
	s.queueActivity(&fx, p.UserID, domain.ActivityTaskDeleted, domain.ActivityEntityTask, t.ID, map[string]any{
		"title":        t.Title,
		"parentTaskId": t.ParentTaskID,
	})
	if t.ParentTaskID != nil {
		s.queuePropagation(&fx, *t.ParentTaskID)
	}
	fx.flush(ctx)

	return nil
}
