package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
)

// propagateProgress recomputes parentID's progress from its subtasks. When
// the parent auto-completes it is itself a changed subtask, so the walk
// continues with its own parent.
func (s *Service) propagateProgress(ctx context.Context, parentID uuid.UUID) error {
	visited := map[uuid.UUID]struct{}{}
	next := &parentID
	for next != nil {
		id := *next
		if _, seen := visited[id]; seen {
			return nil
		}
		visited[id] = struct{}{}

		var completed bool
		var grandparent *uuid.UUID
		err := s.store.InTx(ctx, func(tx domain.Repositories) error {
			parent, err := tx.Tasks().GetByID(ctx, id)
			if err != nil {
				return err
			}
			subtasks, err := tx.Tasks().ListSubtasks(ctx, id)
			if err != nil {
				return err
			}
			wasCompleted := parent.Status == domain.TaskStatusCompleted
			now := s.now()
			if !parent.ApplySubtaskProgress(domain.CountSubtasks(subtasks), now) {
				return nil
			}
			parent.UpdatedAt = now
			if err := tx.Tasks().Update(ctx, parent, 0); err != nil {
				return err
			}
			completed = !wasCompleted && parent.Status == domain.TaskStatusCompleted
			grandparent = parent.ParentTaskID
			log.Debug().
				Str("task_id", id.String()).
				Int("progress", parent.ProgressPercent).
				Bool("auto_completed", completed).
				Msg("tasks: progress recomputed")
			return nil
		})
		if err != nil {
			return fmt.Errorf("tasks.propagateProgress %s: %w", id, err)
		}

		next = nil
		if completed {
			next = grandparent
		}
	}
	return nil
}
