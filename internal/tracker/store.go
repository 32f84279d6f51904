package tracker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/api"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
)

// Backend is the relay surface the store needs. *api.Client satisfies it.
type Backend interface {
	Do(ctx context.Context, req api.Request, out any) error
}

// Store is the client-side cache of goals (with nested tasks), the flat
// list of tasks assigned to the current user, and the user lookup lists.
// It holds no session reference: every call receives its Authorization
// header from the caller.
//
// Each collection is an immutable snapshot swapped in atomically under the
// mutex, so no reader ever observes a collection mid-mutation. Cached
// state is only touched after the backend call succeeds; a failed call
// leaves every collection exactly as it was.
type Store struct {
	backend Backend

	mu             sync.RWMutex
	goals          []models.GoalWithTasks
	assignedTasks  []models.Task
	usersTaskBoard []models.UserTasksBoard
	usersLookup    []models.UserLookup

	loadingGoals          bool
	loadingAssigned       bool
	loadingUsersTaskBoard bool
	loadingUsersLookup    bool
}

// NewStore creates an empty store backed by the given relay.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// FetchGoals replaces the goal cache with the backend's goal list, fully
// sorted (goal order and every nested task list). The goals loading flag
// is held for the duration of the call and cleared on every exit path.
func (s *Store) FetchGoals(ctx context.Context, authHeader map[string]string) error {
	s.setLoading(&s.loadingGoals, true)
	defer s.setLoading(&s.loadingGoals, false)

	var goals []models.GoalWithTasks
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/goals",
		Path:   "/goals",
		Header: authHeader,
	}, &goals)
	if err != nil {
		return fmt.Errorf("failed to fetch goals: %w", err)
	}

	s.mu.Lock()
	s.goals = SortGoalsWithTasks(goals)
	s.mu.Unlock()
	return nil
}

// FetchAssignedTasks replaces the flat assigned-tasks cache with the
// backend's sorted list.
func (s *Store) FetchAssignedTasks(ctx context.Context, authHeader map[string]string) error {
	s.setLoading(&s.loadingAssigned, true)
	defer s.setLoading(&s.loadingAssigned, false)

	var tasks []models.Task
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/tasks/assigned",
		Path:   "/tasks/assigned",
		Header: authHeader,
	}, &tasks)
	if err != nil {
		return fmt.Errorf("failed to fetch assigned tasks: %w", err)
	}

	s.mu.Lock()
	s.assignedTasks = SortTasks(tasks)
	s.mu.Unlock()
	return nil
}

// FetchUsersTaskBoard replaces the users task board cache; each user's
// task list is sorted with the task comparator. Returns the fresh board.
func (s *Store) FetchUsersTaskBoard(ctx context.Context, authHeader map[string]string) ([]models.UserTasksBoard, error) {
	s.setLoading(&s.loadingUsersTaskBoard, true)
	defer s.setLoading(&s.loadingUsersTaskBoard, false)

	var board []models.UserTasksBoard
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/users/tasks",
		Path:   "/users/tasks",
		Header: authHeader,
	}, &board)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users task board: %w", err)
	}

	for i := range board {
		board[i].Tasks = SortTasks(board[i].Tasks)
	}

	s.mu.Lock()
	s.usersTaskBoard = board
	s.mu.Unlock()
	return s.UsersTaskBoard(), nil
}

// FetchUsersLookup replaces the user lookup cache. Reference data keeps
// the backend's order (names are already sorted server-side).
func (s *Store) FetchUsersLookup(ctx context.Context, authHeader map[string]string) ([]models.UserLookup, error) {
	s.setLoading(&s.loadingUsersLookup, true)
	defer s.setLoading(&s.loadingUsersLookup, false)

	var users []models.UserLookup
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/users/lookup",
		Path:   "/users/lookup",
		Header: authHeader,
	}, &users)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users lookup: %w", err)
	}

	s.mu.Lock()
	s.usersLookup = users
	s.mu.Unlock()
	return s.UsersLookup(), nil
}

// Refresh runs FetchGoals and FetchAssignedTasks concurrently and settles
// only once both finish. Either failure propagates; neither fetch is
// cancelled on the other's error, and there is no partial-refresh
// suppression.
func (s *Store) Refresh(ctx context.Context, authHeader map[string]string) error {
	goalsErr := make(chan error, 1)
	tasksErr := make(chan error, 1)

	go func() { goalsErr <- s.FetchGoals(ctx, authHeader) }()
	go func() { tasksErr <- s.FetchAssignedTasks(ctx, authHeader) }()

	gErr := <-goalsErr
	tErr := <-tasksErr
	if gErr != nil {
		return gErr
	}
	return tErr
}

// FetchGoalTasks is a read-through query: it returns a single goal with
// its sorted task list without touching the cache.
func (s *Store) FetchGoalTasks(ctx context.Context, goalID int, authHeader map[string]string) (*models.GoalWithTasks, error) {
	var goal models.GoalWithTasks
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodGet,
		Route:  "/goals/{goalId}/tasks",
		Path:   fmt.Sprintf("/goals/%d/tasks", goalID),
		Header: authHeader,
	}, &goal)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goal tasks: %w", err)
	}

	goal.Tasks = SortTasks(goal.Tasks)
	return &goal, nil
}

// CreateGoal persists a new goal, inserts it into the cache with an empty
// task list, and re-sorts the goal collection. Returns the server-assigned
// goal.
func (s *Store) CreateGoal(ctx context.Context, payload models.CreateGoalPayload, authHeader map[string]string) (*models.Goal, error) {
	var created models.Goal
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodPost,
		Route:  "/goals",
		Path:   "/goals",
		Body:   payload,
		Header: authHeader,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.mu.Lock()
	next := make([]models.GoalWithTasks, 0, len(s.goals)+1)
	next = append(next, models.GoalWithTasks{Goal: created, Tasks: []models.Task{}})
	next = append(next, s.goals...)
	s.goals = SortGoalsWithTasks(next)
	s.mu.Unlock()

	log.Debug().Int("goal_id", created.ID).Msg("Goal created")
	return &created, nil
}

// UpdateGoal persists goal changes and merges the returned fields into the
// matching cached goal, preserving its task list, then re-sorts. The cache
// is untouched when goalID is not cached locally (the backend call still
// runs).
func (s *Store) UpdateGoal(ctx context.Context, goalID int, payload models.CreateGoalPayload, authHeader map[string]string) (*models.Goal, error) {
	var updated models.Goal
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodPut,
		Route:  "/goals/{goalId}",
		Path:   fmt.Sprintf("/goals/%d", goalID),
		Body:   payload,
		Header: authHeader,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	s.mu.Lock()
	next := make([]models.GoalWithTasks, len(s.goals))
	for i, goal := range s.goals {
		if goal.ID == goalID {
			goal.Goal = updated
		}
		next[i] = goal
	}
	s.goals = SortGoalsWithTasks(next)
	s.mu.Unlock()

	return &updated, nil
}

// DeleteGoal persists the deletion, removes the goal from the cache, and
// cascades removal of every task id it owned out of the assigned-tasks
// list. The cascade set is computed from the cached goal before removal;
// the backend response carries no task-id manifest.
func (s *Store) DeleteGoal(ctx context.Context, goalID int, authHeader map[string]string) error {
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodDelete,
		Route:  "/goals/{goalId}",
		Path:   fmt.Sprintf("/goals/%d", goalID),
		Header: authHeader,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	s.mu.Lock()
	deletedTaskIDs := make(map[int]struct{})
	for _, goal := range s.goals {
		if goal.ID != goalID {
			continue
		}
		for _, task := range goal.Tasks {
			deletedTaskIDs[task.ID] = struct{}{}
		}
	}

	nextGoals := make([]models.GoalWithTasks, 0, len(s.goals))
	for _, goal := range s.goals {
		if goal.ID != goalID {
			nextGoals = append(nextGoals, goal)
		}
	}
	s.goals = nextGoals

	nextAssigned := make([]models.Task, 0, len(s.assignedTasks))
	for _, task := range s.assignedTasks {
		if _, gone := deletedTaskIDs[task.ID]; !gone {
			nextAssigned = append(nextAssigned, task)
		}
	}
	s.assignedTasks = nextAssigned
	s.mu.Unlock()

	log.Debug().Int("goal_id", goalID).Int("cascaded_tasks", len(deletedTaskIDs)).Msg("Goal deleted")
	return nil
}

// CreateTask persists a new task under a goal and appends it to that
// goal's sorted task list. Goal-level order is unaffected by intra-goal
// task changes, so only the one task list is re-sorted.
func (s *Store) CreateTask(ctx context.Context, goalID int, payload models.CreateTaskPayload, authHeader map[string]string) (*models.Task, error) {
	var created models.Task
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodPost,
		Route:  "/goals/{goalId}/tasks",
		Path:   fmt.Sprintf("/goals/%d/tasks", goalID),
		Body:   payload,
		Header: authHeader,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.mu.Lock()
	next := make([]models.GoalWithTasks, len(s.goals))
	for i, goal := range s.goals {
		if goal.ID == goalID {
			goal.Tasks = SortTasks(append(append([]models.Task{}, goal.Tasks...), created))
		}
		next[i] = goal
	}
	s.goals = next
	s.mu.Unlock()

	return &created, nil
}

// UpdateTask persists task changes and relocates the returned task: it is
// removed from whichever goal currently holds it and reinserted under the
// goal named by its goalId field, so a task that changes owning goal moves
// exactly once. The affected task list and the goal collection order are
// both re-derived.
func (s *Store) UpdateTask(ctx context.Context, taskID int, payload models.UpdateTaskPayload, authHeader map[string]string) (*models.Task, error) {
	var updated models.Task
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodPut,
		Route:  "/tasks/{taskId}",
		Path:   fmt.Sprintf("/tasks/%d", taskID),
		Body:   payload,
		Header: authHeader,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.mu.Lock()
	s.upsertTaskLocked(updated)
	s.mu.Unlock()
	return &updated, nil
}

// DeleteTask persists the deletion and removes the task from its owning
// goal's list and from the assigned-tasks list.
func (s *Store) DeleteTask(ctx context.Context, taskID int, authHeader map[string]string) error {
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodDelete,
		Route:  "/tasks/{taskId}",
		Path:   fmt.Sprintf("/tasks/%d", taskID),
		Header: authHeader,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.mu.Lock()
	next := make([]models.GoalWithTasks, len(s.goals))
	for i, goal := range s.goals {
		goal.Tasks = removeTask(goal.Tasks, taskID)
		next[i] = goal
	}
	s.goals = SortGoalsWithTasks(next)
	s.assignedTasks = removeTask(s.assignedTasks, taskID)
	s.mu.Unlock()
	return nil
}

// AssignTask persists the assignment change, relocates the returned task
// in the goal cache, and patches the matching row of the assigned-tasks
// list in place by id so it reflects the new assignee without a refetch.
func (s *Store) AssignTask(ctx context.Context, taskID int, assigneeID *int, authHeader map[string]string) (*models.Task, error) {
	var updated models.Task
	err := s.backend.Do(ctx, api.Request{
		Method: http.MethodPut,
		Route:  "/tasks/{taskId}/assign",
		Path:   fmt.Sprintf("/tasks/%d/assign", taskID),
		Body:   models.AssignTaskPayload{AssigneeID: assigneeID},
		Header: authHeader,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	s.mu.Lock()
	s.upsertTaskLocked(updated)

	patched := make([]models.Task, len(s.assignedTasks))
	for i, task := range s.assignedTasks {
		if task.ID == taskID {
			task = updated
		}
		patched[i] = task
	}
	s.assignedTasks = SortTasks(patched)
	s.mu.Unlock()

	return &updated, nil
}

// upsertTaskLocked removes the task from every goal's list and reinserts
// it under the goal identified by its GoalID. When that goal is not cached
// the task simply drops out of the goal cache (the next fetch restores
// it). Callers hold the mutex.
func (s *Store) upsertTaskLocked(updated models.Task) {
	next := make([]models.GoalWithTasks, len(s.goals))
	target := -1
	for i, goal := range s.goals {
		goal.Tasks = removeTask(goal.Tasks, updated.ID)
		if goal.ID == updated.GoalID {
			target = i
		}
		next[i] = goal
	}

	if target < 0 {
		s.goals = next
		return
	}

	next[target].Tasks = SortTasks(append(next[target].Tasks, updated))
	s.goals = SortGoalsWithTasks(next)
}

// removeTask returns a fresh slice without the task with the given id.
func removeTask(tasks []models.Task, taskID int) []models.Task {
	filtered := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.ID != taskID {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

// Reset drops every cached collection and clears the loading flags. Called
// on logout; the store returns to its created-empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = nil
	s.assignedTasks = nil
	s.usersTaskBoard = nil
	s.usersLookup = nil
	s.loadingGoals = false
	s.loadingAssigned = false
	s.loadingUsersTaskBoard = false
	s.loadingUsersLookup = false
}

func (s *Store) setLoading(flag *bool, value bool) {
	s.mu.Lock()
	*flag = value
	s.mu.Unlock()
}

// Goals returns a snapshot copy of the goal cache.
func (s *Store) Goals() []models.GoalWithTasks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.GoalWithTasks(nil), s.goals...)
}

// AssignedTasks returns a snapshot copy of the assigned-tasks cache.
func (s *Store) AssignedTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Task(nil), s.assignedTasks...)
}

// UsersTaskBoard returns a snapshot copy of the users task board cache.
func (s *Store) UsersTaskBoard() []models.UserTasksBoard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UserTasksBoard(nil), s.usersTaskBoard...)
}

// UsersLookup returns a snapshot copy of the user lookup cache.
func (s *Store) UsersLookup() []models.UserLookup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UserLookup(nil), s.usersLookup...)
}

// LoadingGoals reports whether a goal fetch is in flight.
func (s *Store) LoadingGoals() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingGoals
}

// LoadingAssigned reports whether an assigned-tasks fetch is in flight.
func (s *Store) LoadingAssigned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingAssigned
}

// LoadingUsersTaskBoard reports whether a task board fetch is in flight.
func (s *Store) LoadingUsersTaskBoard() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingUsersTaskBoard
}

// LoadingUsersLookup reports whether a user lookup fetch is in flight.
func (s *Store) LoadingUsersLookup() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingUsersLookup
}
