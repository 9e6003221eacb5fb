package tasks

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
)

// effects queues best-effort work that runs after the primary write has
// committed. A failing job is logged and never reaches the caller.
type effects struct {
	jobs []effectJob
}

type effectJob struct {
	name   string
	taskID uuid.UUID
	run    func(ctx context.Context) error
}

func (e *effects) add(name string, taskID uuid.UUID, run func(ctx context.Context) error) {
	e.jobs = append(e.jobs, effectJob{name: name, taskID: taskID, run: run})
}

// flush runs every queued job in order. The request context may already be
// cancelled by the time a slow job starts, so jobs run detached from it.
func (e *effects) flush(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, j := range e.jobs {
		if err := j.run(ctx); err != nil {
			log.Warn().Err(err).
				Str("effect", j.name).
				Str("task_id", j.taskID.String()).
				Msg("tasks: side effect failed")
		}
	}
	e.jobs = nil
}

func (s *Service) queueNotify(fx *effects, userID uuid.UUID, typ domain.NotificationType, t *domain.Task, title, message string) {
	taskID := t.ID
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		TaskID:    &taskID,
		CreatedAt: s.now(),
	}
	fx.add("notify."+string(typ), t.ID, func(ctx context.Context) error {
		return s.notifier.Notify(ctx, n)
	})
}

func (s *Service) queueActivity(fx *effects, actor uuid.UUID, action, entityType string, entityID uuid.UUID, details map[string]any) {
	entry := &domain.ActivityEntry{
		ID:         uuid.New(),
		UserID:     actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  s.now(),
	}
	fx.add("activity."+action, entityID, func(ctx context.Context) error {
		return s.store.Activity().Record(ctx, entry)
	})
}

func (s *Service) queuePropagation(fx *effects, parentID uuid.UUID) {
	fx.add("progress", parentID, func(ctx context.Context) error {
		return s.propagateProgress(ctx, parentID)
	})
}
