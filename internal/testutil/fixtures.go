package testutil

import (
	"time"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
)

// BaseTime anchors fixture timestamps; later fixtures pass offsets from it.
var BaseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// TestTask creates a task fixture. The createdAt offset is minutes after
// BaseTime, so ordering in tests reads naturally.
func TestTask(id int, priority string, completed bool, minutesAfterBase int) models.Task {
	return models.Task{
		ID:          id,
		GoalID:      1,
		Title:       "Test task",
		Priority:    priority,
		IsCompleted: completed,
		CreatedAt:   BaseTime.Add(time.Duration(minutesAfterBase) * time.Minute),
	}
}

// TestGoal creates a goal fixture with an empty task list.
func TestGoal(id int, priority, status string, minutesAfterBase int) models.GoalWithTasks {
	return models.GoalWithTasks{
		Goal: models.Goal{
			ID:        id,
			Title:     "Test goal",
			Priority:  priority,
			Status:    status,
			OwnerID:   1,
			CreatedAt: BaseTime.Add(time.Duration(minutesAfterBase) * time.Minute),
		},
		Tasks: []models.Task{},
	}
}

// IntPtr returns a pointer to the given int.
func IntPtr(i int) *int {
	return &i
}
