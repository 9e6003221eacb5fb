package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DependencyType string

const (
	DependencyFinishToStart  DependencyType = "FINISH_TO_START"
	DependencyStartToStart   DependencyType = "START_TO_START"
	DependencyFinishToFinish DependencyType = "FINISH_TO_FINISH"
	DependencyStartToFinish  DependencyType = "START_TO_FINISH"
)

func (d DependencyType) Valid() bool {
	switch d {
	case DependencyFinishToStart, DependencyStartToStart, DependencyFinishToFinish, DependencyStartToFinish:
		return true
	default:
		return false
	}
}

// MaxDelayDays bounds TaskDependency.DelayDays.
const MaxDelayDays = 365

// TaskDependency is a directed edge: DependentTaskID cannot be considered
// unblocked until PrerequisiteTaskID is COMPLETED.
type TaskDependency struct {
	ID                 uuid.UUID      `json:"id"`
	DependentTaskID    uuid.UUID      `json:"dependentTaskId"`
	PrerequisiteTaskID uuid.UUID      `json:"prerequisiteTaskId"`
	DependencyType     DependencyType `json:"dependencyType"`
	DelayDays          int            `json:"delayDays"`
	CreatedAt          time.Time      `json:"createdAt"`
}

// NewTaskDependency builds an edge, defaulting the type to FINISH_TO_START.
func NewTaskDependency(dependentID, prerequisiteID uuid.UUID, depType DependencyType, delayDays int, now time.Time) *TaskDependency {
	if depType == "" {
		depType = DependencyFinishToStart
	}
	return &TaskDependency{
		ID:                 uuid.New(),
		DependentTaskID:    dependentID,
		PrerequisiteTaskID: prerequisiteID,
		DependencyType:     depType,
		DelayDays:          delayDays,
		CreatedAt:          now,
	}
}

// IsBlocked reports whether any direct prerequisite is not COMPLETED. Only
// one hop is inspected, so the check terminates even on cyclic data.
func IsBlocked(prerequisites []*Task) bool {
	for _, p := range prerequisites {
		if p.Status != TaskStatusCompleted {
			return true
		}
	}
	return false
}

// Reaches reports whether target is reachable from start by repeatedly
// following next. Traversal is breadth-first over ids with a visited set.
func Reaches[K comparable](start, target K, next func(K) ([]K, error)) (bool, error) {
	if start == target {
		return true, nil
	}
	visited := map[K]struct{}{start: {}}
	queue := []K{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		neighbours, err := next(cur)
		if err != nil {
			return false, err
		}
		for _, n := range neighbours {
			if n == target {
				return true, nil
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			queue = append(queue, n)
		}
	}
	return false, nil
}

type DependencyRepository interface {
	Create(ctx context.Context, d *TaskDependency) error
	GetByID(ctx context.Context, id uuid.UUID) (*TaskDependency, error)
	Update(ctx context.Context, d *TaskDependency) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListPrerequisites returns edges where taskID is the dependent.
	ListPrerequisites(ctx context.Context, taskID uuid.UUID) ([]*TaskDependency, error)
	// ListDependents returns edges where taskID is the prerequisite.
	ListDependents(ctx context.Context, taskID uuid.UUID) ([]*TaskDependency, error)
	CountDependents(ctx context.Context, taskID uuid.UUID) (int, error)
}
