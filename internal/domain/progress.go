package domain

import (
	"math"
	"time"
)

// SubtaskCounts tallies subtask statuses for a parent task.
type SubtaskCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
}

func CountSubtasks(subtasks []*Task) SubtaskCounts {
	c := SubtaskCounts{Total: len(subtasks)}
	for _, st := range subtasks {
		switch st.Status {
		case TaskStatusCompleted:
			c.Completed++
		case TaskStatusInProgress:
			c.InProgress++
		case TaskStatusPending:
			c.Pending++
		case TaskStatusCancelled, TaskStatusOnHold:
		}
	}
	return c
}

// ProgressPercent returns round(100 * completed / total). ok is false when
// there are no subtasks.
func (c SubtaskCounts) ProgressPercent() (percent int, ok bool) {
	if c.Total == 0 {
		return 0, false
	}
	return int(math.Round(100 * float64(c.Completed) / float64(c.Total))), true
}

// ApplySubtaskProgress sets the parent's progress from its subtask counts and
// auto-completes it at 100%. A completed parent is never reverted. It
// reports whether anything changed.
func (t *Task) ApplySubtaskProgress(c SubtaskCounts, now time.Time) bool {
	percent, ok := c.ProgressPercent()
	if !ok {
		return false
	}
	changed := t.ProgressPercent != percent
	t.ProgressPercent = percent
	if percent == 100 && t.Status != TaskStatusCompleted {
		t.Status = TaskStatusCompleted
		at := now
		t.CompletedDate = &at
		changed = true
	}
	return changed
}
