package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
)

// DependencyInput declares a prerequisite for a task being created or, with
// action "add", updated.
type DependencyInput struct {
	PrerequisiteTaskID uuid.UUID             `json:"prerequisiteTaskId" validate:"required"`
	DependencyType     domain.DependencyType `json:"dependencyType,omitempty" validate:"omitempty,dependencyType"`
	DelayDays          int                   `json:"delayDays,omitempty" validate:"gte=0,lte=365"`
}

type DependencyAction string

const (
	DependencyAdd    DependencyAction = "add"
	DependencyUpdate DependencyAction = "update"
	DependencyRemove DependencyAction = "remove"
)

// DependencyChange is one entry of an update payload's dependency list.
// Add needs PrerequisiteTaskID; update and remove address an edge by ID.
type DependencyChange struct {
	Action             DependencyAction      `json:"action" validate:"required,oneof=add update remove"`
	ID                 *uuid.UUID            `json:"id,omitempty" validate:"required_unless=Action add"`
	PrerequisiteTaskID *uuid.UUID            `json:"prerequisiteTaskId,omitempty" validate:"required_if=Action add"`
	DependencyType     domain.DependencyType `json:"dependencyType,omitempty" validate:"omitempty,dependencyType"`
	DelayDays          *int                  `json:"delayDays,omitempty" validate:"omitempty,gte=0,lte=365"`
}

// addDependency creates dependent -> prerequisite inside tx. References that
// are missing, duplicated, self-referencing or that would close a cycle are
// skipped and reported as false; only store failures are returned.
func (s *Service) addDependency(ctx context.Context, tx domain.Repositories, dependentID uuid.UUID, in DependencyInput) (*domain.TaskDependency, error) {
	logger := log.With().
		Str("task_id", dependentID.String()).
		Str("prerequisite_id", in.PrerequisiteTaskID.String()).
		Logger()

	if _, err := tx.Tasks().GetByID(ctx, in.PrerequisiteTaskID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Info().Msg("tasks: skipping dependency on missing task")
			return nil, nil
		}
		return nil, err
	}

	existing, err := tx.Dependencies().ListPrerequisites(ctx, dependentID)
	if err != nil {
		return nil, err
	}
	for _, d := range existing {
		if d.PrerequisiteTaskID == in.PrerequisiteTaskID {
			logger.Info().Msg("tasks: skipping duplicate dependency")
			return nil, nil
		}
	}

	// The new edge closes a cycle when the prerequisite already waits,
	// directly or transitively, on the dependent.
	cyclic, err := domain.Reaches(in.PrerequisiteTaskID, dependentID, func(id uuid.UUID) ([]uuid.UUID, error) {
		return prerequisiteIDs(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	if cyclic {
		logger.Info().Msg("tasks: skipping dependency that would create a cycle")
		return nil, nil
	}

	d := domain.NewTaskDependency(dependentID, in.PrerequisiteTaskID, in.DependencyType, in.DelayDays, s.now())
	if err := tx.Dependencies().Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// applyDependencyChanges reconciles an update payload's dependency list for
// taskID. Edges that do not exist or belong to another task are skipped.
func (s *Service) applyDependencyChanges(ctx context.Context, tx domain.Repositories, taskID uuid.UUID, changes []DependencyChange) error {
	for _, c := range changes {
		switch c.Action {
		case DependencyAdd:
			in := DependencyInput{PrerequisiteTaskID: *c.PrerequisiteTaskID, DependencyType: c.DependencyType}
			if c.DelayDays != nil {
				in.DelayDays = *c.DelayDays
			}
			if _, err := s.addDependency(ctx, tx, taskID, in); err != nil {
				return fmt.Errorf("add: %w", err)
			}
		case DependencyUpdate, DependencyRemove:
			d, err := s.ownedEdge(ctx, tx, taskID, *c.ID)
			if err != nil {
				return err
			}
			if d == nil {
				continue
			}
			if c.Action == DependencyRemove {
				if err := tx.Dependencies().Delete(ctx, d.ID); err != nil {
					return fmt.Errorf("remove: %w", err)
				}
				continue
			}
			if c.DependencyType != "" {
				d.DependencyType = c.DependencyType
			}
			if c.DelayDays != nil {
				d.DelayDays = *c.DelayDays
			}
			if err := tx.Dependencies().Update(ctx, d); err != nil {
				return fmt.Errorf("update: %w", err)
			}
		}
	}
	return nil
}

// ownedEdge loads an edge whose dependent is taskID; nil when it is missing
// or attached to another task.
func (s *Service) ownedEdge(ctx context.Context, tx domain.Repositories, taskID, edgeID uuid.UUID) (*domain.TaskDependency, error) {
	d, err := tx.Dependencies().GetByID(ctx, edgeID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info().Str("task_id", taskID.String()).Str("dependency_id", edgeID.String()).Msg("tasks: skipping unknown dependency")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.DependentTaskID != taskID {
		log.Info().Str("task_id", taskID.String()).Str("dependency_id", edgeID.String()).Msg("tasks: skipping dependency of another task")
		return nil, nil
	}
	return d, nil
}

func prerequisiteIDs(ctx context.Context, repos domain.Repositories, taskID uuid.UUID) ([]uuid.UUID, error) {
	edges, err := repos.Dependencies().ListPrerequisites(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.PrerequisiteTaskID)
	}
	return ids, nil
}
