// Package tracker owns the client-side cache of goals, tasks, and user
// lists, and re-derives the display order after every mutation. Ordering is
// never trusted from the backend: the same comparator is applied to every
// collection the store touches.
package tracker

import (
	"sort"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
)

// priorityRank orders high before medium before low. Unknown priorities
// rank as medium.
var priorityRank = map[string]int{
	models.PriorityHigh:   0,
	models.PriorityMedium: 1,
	models.PriorityLow:    2,
}

func rankPriority(priority string) int {
	if rank, ok := priorityRank[priority]; ok {
		return rank
	}
	return 1
}

// taskBefore is the task comparator: incomplete before complete, then by
// priority, then newest createdAt first. Equal keys keep their relative
// order (the sort is stable).
func taskBefore(left, right models.Task) bool {
	leftDone, rightDone := boolRank(left.IsCompleted), boolRank(right.IsCompleted)
	if leftDone != rightDone {
		return leftDone < rightDone
	}
	if lp, rp := rankPriority(left.Priority), rankPriority(right.Priority); lp != rp {
		return lp < rp
	}
	return left.CreatedAt.After(right.CreatedAt)
}

// goalBefore orders goals with the same comparator shape: achieved goals
// last, then by priority, then newest first.
func goalBefore(left, right models.GoalWithTasks) bool {
	leftDone, rightDone := boolRank(left.Status == models.StatusAchieved), boolRank(right.Status == models.StatusAchieved)
	if leftDone != rightDone {
		return leftDone < rightDone
	}
	if lp, rp := rankPriority(left.Priority), rankPriority(right.Priority); lp != rp {
		return lp < rp
	}
	return left.CreatedAt.After(right.CreatedAt)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SortTasks returns a freshly allocated, stably sorted copy of tasks. The
// input is never mutated; sorting an already-sorted slice yields an
// identical order.
func SortTasks(tasks []models.Task) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return taskBefore(sorted[i], sorted[j])
	})
	return sorted
}

// SortGoals returns a freshly allocated, stably sorted copy of goals.
// Nested task lists are carried over untouched; use SortGoalsWithTasks to
// order them too.
func SortGoals(goals []models.GoalWithTasks) []models.GoalWithTasks {
	sorted := make([]models.GoalWithTasks, len(goals))
	copy(sorted, goals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return goalBefore(sorted[i], sorted[j])
	})
	return sorted
}

// SortGoalsWithTasks sorts the goal collection and replaces every nested
// task list with its sorted copy. This is the canonical post-mutation
// ordering pass for the goal cache.
func SortGoalsWithTasks(goals []models.GoalWithTasks) []models.GoalWithTasks {
	sorted := SortGoals(goals)
	for i := range sorted {
		sorted[i].Tasks = SortTasks(sorted[i].Tasks)
	}
	return sorted
}
