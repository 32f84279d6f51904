package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/api"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/testutil"
)

// setupStore starts a fake backend with one registered user and returns a
// store plus that user's auth header.
func setupStore(t *testing.T) (*Store, *testutil.FakeBackend, int, map[string]string) {
	t.Helper()

	backend := testutil.NewFakeBackend(t)
	userID := backend.AddUser("Vera", "Ivanova", "vera@example.com", "secret")
	header := map[string]string{
		"Authorization": "Bearer " + testutil.MintValidToken(t, userID),
	}
	store := NewStore(api.NewClient(backend.URL(), 5*time.Second))
	return store, backend, userID, header
}

func TestFetchGoals(t *testing.T) {
	t.Run("replaces the cache with a fully sorted snapshot", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)

		achieved := backend.AddGoal(userID, models.CreateGoalPayload{
			Title: "Old", Priority: models.PriorityHigh, Status: models.StatusAchieved,
		})
		active := backend.AddGoal(userID, models.CreateGoalPayload{
			Title: "Current", Priority: models.PriorityMedium, Status: models.StatusTodo,
		})
		// Backend insertion order: done task first, high-priority task last.
		done := backend.AddTask(active.ID, userID, models.CreateTaskPayload{Title: "done", Priority: models.PriorityHigh})
		low := backend.AddTask(active.ID, userID, models.CreateTaskPayload{Title: "low", Priority: models.PriorityLow})
		high := backend.AddTask(active.ID, userID, models.CreateTaskPayload{Title: "high", Priority: models.PriorityHigh})
		_, err := store.UpdateTask(context.Background(), done.ID, models.UpdateTaskPayload{
			GoalID: active.ID, Title: "done", Priority: models.PriorityHigh, IsCompleted: true,
		}, header)
		require.NoError(t, err)

		require.NoError(t, store.FetchGoals(context.Background(), header))

		goals := store.Goals()
		require.Len(t, goals, 2)
		assert.Equal(t, active.ID, goals[0].ID, "achieved goal sorts last")
		assert.Equal(t, achieved.ID, goals[1].ID)
		assert.Equal(t, []int{high.ID, low.ID, done.ID}, taskIDs(goals[0].Tasks))
	})

	t.Run("clears the loading flag on failure and keeps the cache", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		backend.AddGoal(userID, models.CreateGoalPayload{Title: "Kept", Priority: models.PriorityLow})
		require.NoError(t, store.FetchGoals(context.Background(), header))

		err := store.FetchGoals(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, 401, api.StatusCode(err))
		assert.False(t, store.LoadingGoals())
		assert.Len(t, store.Goals(), 1, "failed fetch must not touch the cache")
	})
}

func TestFetchAssignedTasks(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "mine low", Priority: models.PriorityLow, AssigneeID: testutil.IntPtr(userID),
	})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "mine high", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
	})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{Title: "unassigned", Priority: models.PriorityHigh})

	require.NoError(t, store.FetchAssignedTasks(context.Background(), header))

	tasks := store.AssignedTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "mine high", tasks[0].Title)
	assert.Equal(t, "mine low", tasks[1].Title)
	assert.False(t, store.LoadingAssigned())
}

func TestFetchUsersTaskBoard(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	otherID := backend.AddUser("Pasha", "Petrov", "pasha@example.com", "pw")
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "low", Priority: models.PriorityLow, AssigneeID: testutil.IntPtr(otherID),
	})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "high", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(otherID),
	})

	board, err := store.FetchUsersTaskBoard(context.Background(), header)
	require.NoError(t, err)
	require.Len(t, board, 2)

	var row *models.UserTasksBoard
	for i := range board {
		if board[i].ID == otherID {
			row = &board[i]
		}
	}
	require.NotNil(t, row)
	assert.Equal(t, "high", row.Tasks[0].Title, "each user's tasks are sorted")
	assert.False(t, store.LoadingUsersTaskBoard())
}

func TestFetchUsersLookup(t *testing.T) {
	store, backend, _, header := setupStore(t)
	backend.AddUser("Pasha", "Petrov", "pasha@example.com", "pw")

	users, err := store.FetchUsersLookup(context.Background(), header)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, users, store.UsersLookup())
	assert.False(t, store.LoadingUsersLookup())
}

func TestRefresh(t *testing.T) {
	t.Run("populates goals and assigned tasks concurrently", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
		backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
			Title: "mine", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
		})

		require.NoError(t, store.Refresh(context.Background(), header))
		assert.Len(t, store.Goals(), 1)
		assert.Len(t, store.AssignedTasks(), 1)
	})

	t.Run("fails when either fetch fails", func(t *testing.T) {
		store, _, _, _ := setupStore(t)

		err := store.Refresh(context.Background(), nil)
		require.Error(t, err)
		assert.False(t, store.LoadingGoals())
		assert.False(t, store.LoadingAssigned())
	})
}

func TestFetchGoalTasks(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{Title: "low", Priority: models.PriorityLow})
	backend.AddTask(goal.ID, userID, models.CreateTaskPayload{Title: "high", Priority: models.PriorityHigh})

	fetched, err := store.FetchGoalTasks(context.Background(), goal.ID, header)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, fetched.ID)
	assert.Equal(t, "high", fetched.Tasks[0].Title)
	assert.Empty(t, store.Goals(), "read-through query must not mutate the cache")
}

func TestCreateGoal(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	backend.AddGoal(userID, models.CreateGoalPayload{Title: "Existing", Priority: models.PriorityLow})
	require.NoError(t, store.FetchGoals(context.Background(), header))

	created, err := store.CreateGoal(context.Background(), models.CreateGoalPayload{
		Title: "Learn X", Priority: models.PriorityHigh, Status: models.StatusTodo,
	}, header)
	require.NoError(t, err)
	require.NotNil(t, created)

	goals := store.Goals()
	require.Len(t, goals, 2)
	assert.Equal(t, created.ID, goals[0].ID, "high-priority goal sorts first")
	assert.NotNil(t, goals[0].Tasks)
	assert.Empty(t, goals[0].Tasks)
}

func TestUpdateGoal(t *testing.T) {
	t.Run("merges fields and preserves the task list", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "Before", Priority: models.PriorityMedium})
		task := backend.AddTask(goal.ID, userID, models.CreateTaskPayload{Title: "kept", Priority: models.PriorityHigh})
		require.NoError(t, store.FetchGoals(context.Background(), header))

		updated, err := store.UpdateGoal(context.Background(), goal.ID, models.CreateGoalPayload{
			Title: "After", Priority: models.PriorityHigh, Status: models.StatusInProgress,
		}, header)
		require.NoError(t, err)
		assert.Equal(t, "After", updated.Title)

		goals := store.Goals()
		require.Len(t, goals, 1)
		assert.Equal(t, "After", goals[0].Title)
		assert.Equal(t, []int{task.ID}, taskIDs(goals[0].Tasks))
	})

	t.Run("no-op on the cache when the goal is not cached", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		require.NoError(t, store.FetchGoals(context.Background(), header))
		goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "Server only", Priority: models.PriorityLow})

		updated, err := store.UpdateGoal(context.Background(), goal.ID, models.CreateGoalPayload{
			Title: "Renamed", Priority: models.PriorityLow, Status: models.StatusTodo,
		}, header)
		require.NoError(t, err, "the server call still occurs")
		assert.Equal(t, "Renamed", updated.Title)
		assert.Empty(t, store.Goals())
	})
}

func TestDeleteGoal(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	doomed := backend.AddGoal(userID, models.CreateGoalPayload{Title: "Doomed", Priority: models.PriorityMedium})
	other := backend.AddGoal(userID, models.CreateGoalPayload{Title: "Other", Priority: models.PriorityMedium})
	backend.AddTask(doomed.ID, userID, models.CreateTaskPayload{
		Title: "cascaded", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
	})
	kept := backend.AddTask(other.ID, userID, models.CreateTaskPayload{
		Title: "kept", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
	})
	require.NoError(t, store.Refresh(context.Background(), header))
	require.Len(t, store.AssignedTasks(), 2)

	require.NoError(t, store.DeleteGoal(context.Background(), doomed.ID, header))

	goals := store.Goals()
	require.Len(t, goals, 1)
	assert.Equal(t, other.ID, goals[0].ID)

	assigned := store.AssignedTasks()
	require.Len(t, assigned, 1)
	assert.Equal(t, kept.ID, assigned[0].ID)
}

func TestCreateTask(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	low := backend.AddTask(goal.ID, userID, models.CreateTaskPayload{Title: "low", Priority: models.PriorityLow})
	require.NoError(t, store.FetchGoals(context.Background(), header))

	created, err := store.CreateTask(context.Background(), goal.ID, models.CreateTaskPayload{
		Title: "Step 1", Priority: models.PriorityHigh,
	}, header)
	require.NoError(t, err)

	goals := store.Goals()
	require.Len(t, goals, 1)
	assert.Equal(t, []int{created.ID, low.ID}, taskIDs(goals[0].Tasks),
		"new high-priority task sorts before the existing low one")
}

func TestUpdateTask(t *testing.T) {
	t.Run("relocates a task that changes owning goal", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		g1 := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G1", Priority: models.PriorityMedium})
		g2 := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G2", Priority: models.PriorityMedium})
		task := backend.AddTask(g1.ID, userID, models.CreateTaskPayload{Title: "mover", Priority: models.PriorityHigh})
		require.NoError(t, store.FetchGoals(context.Background(), header))

		_, err := store.UpdateTask(context.Background(), task.ID, models.UpdateTaskPayload{
			GoalID: g2.ID, Title: "mover", Priority: models.PriorityHigh,
		}, header)
		require.NoError(t, err)

		var under1, under2 int
		for _, goal := range store.Goals() {
			for _, got := range goal.Tasks {
				if got.ID != task.ID {
					continue
				}
				switch goal.ID {
				case g1.ID:
					under1++
				case g2.ID:
					under2++
				}
			}
		}
		assert.Zero(t, under1, "task must leave its old goal")
		assert.Equal(t, 1, under2, "task appears exactly once under the new goal")
	})

	t.Run("drops the task when its new goal is not cached", func(t *testing.T) {
		store, backend, userID, header := setupStore(t)
		g1 := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G1", Priority: models.PriorityMedium})
		task := backend.AddTask(g1.ID, userID, models.CreateTaskPayload{Title: "t", Priority: models.PriorityHigh})
		require.NoError(t, store.FetchGoals(context.Background(), header))
		foreign := backend.AddGoal(userID, models.CreateGoalPayload{Title: "Uncached", Priority: models.PriorityLow})

		_, err := store.UpdateTask(context.Background(), task.ID, models.UpdateTaskPayload{
			GoalID: foreign.ID, Title: "t", Priority: models.PriorityHigh,
		}, header)
		require.NoError(t, err)

		for _, goal := range store.Goals() {
			assert.NotContains(t, taskIDs(goal.Tasks), task.ID)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	task := backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "t", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
	})
	require.NoError(t, store.Refresh(context.Background(), header))

	require.NoError(t, store.DeleteTask(context.Background(), task.ID, header))

	require.Len(t, store.Goals(), 1)
	assert.Empty(t, store.Goals()[0].Tasks)
	assert.Empty(t, store.AssignedTasks())
}

func TestAssignTask(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	otherID := backend.AddUser("Pasha", "Petrov", "pasha@example.com", "pw")
	goal := backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	task := backend.AddTask(goal.ID, userID, models.CreateTaskPayload{
		Title: "t", Priority: models.PriorityHigh, AssigneeID: testutil.IntPtr(userID),
	})
	require.NoError(t, store.Refresh(context.Background(), header))

	updated, err := store.AssignTask(context.Background(), task.ID, testutil.IntPtr(otherID), header)
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, otherID, *updated.AssigneeID)
	assert.Equal(t, "Pasha Petrov", updated.AssigneeName)

	// The flat list row is patched in place, without a refetch.
	assigned := store.AssignedTasks()
	require.Len(t, assigned, 1)
	require.NotNil(t, assigned[0].AssigneeID)
	assert.Equal(t, otherID, *assigned[0].AssigneeID)
	assert.Equal(t, "Pasha Petrov", assigned[0].AssigneeName)

	// And the goal cache reflects the new assignee too.
	goals := store.Goals()
	require.Len(t, goals, 1)
	require.Len(t, goals[0].Tasks, 1)
	assert.Equal(t, otherID, *goals[0].Tasks[0].AssigneeID)
}

func TestReset(t *testing.T) {
	store, backend, userID, header := setupStore(t)
	backend.AddGoal(userID, models.CreateGoalPayload{Title: "G", Priority: models.PriorityMedium})
	require.NoError(t, store.FetchGoals(context.Background(), header))
	require.NotEmpty(t, store.Goals())

	store.Reset()

	assert.Empty(t, store.Goals())
	assert.Empty(t, store.AssignedTasks())
	assert.Empty(t, store.UsersTaskBoard())
	assert.Empty(t, store.UsersLookup())
	assert.False(t, store.LoadingGoals())
	assert.False(t, store.LoadingAssigned())
}

// TestGoalLifecycle walks the full scenario: create goal, add a task,
// assign it, then delete the goal and observe the cascade.
func TestGoalLifecycle(t *testing.T) {
	store, _, userID, header := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Refresh(ctx, header))

	goal, err := store.CreateGoal(ctx, models.CreateGoalPayload{
		Title: "Learn X", Priority: models.PriorityHigh, Status: models.StatusTodo,
	}, header)
	require.NoError(t, err)

	goals := store.Goals()
	require.Len(t, goals, 1)
	assert.Equal(t, goal.ID, goals[0].ID)
	assert.Empty(t, goals[0].Tasks)

	task, err := store.CreateTask(ctx, goal.ID, models.CreateTaskPayload{
		Title: "Step 1", Priority: models.PriorityHigh,
	}, header)
	require.NoError(t, err)
	require.Len(t, store.Goals()[0].Tasks, 1)
	assert.Equal(t, "Step 1", store.Goals()[0].Tasks[0].Title)

	_, err = store.AssignTask(ctx, task.ID, testutil.IntPtr(userID), header)
	require.NoError(t, err)

	require.NoError(t, store.FetchAssignedTasks(ctx, header))
	assigned := store.AssignedTasks()
	require.Len(t, assigned, 1)
	require.NotNil(t, assigned[0].AssigneeID)
	assert.Equal(t, userID, *assigned[0].AssigneeID)

	require.NoError(t, store.DeleteGoal(ctx, goal.ID, header))
	assert.Empty(t, store.Goals())
	assert.Empty(t, store.AssignedTasks(), "cascade removes the goal's tasks from the flat list")
}
