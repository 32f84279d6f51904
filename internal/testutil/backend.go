package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
)

// FakeBackend is an in-memory implementation of the task-tracker backend
// API served over httptest. It implements the full versioned route table
// the client consumes, with bearer-token auth on every protected route.
//
// Collections are kept in insertion order; the backend deliberately does
// NOT sort anything, so client-side ordering is observable in tests.
type FakeBackend struct {
	Server *httptest.Server

	mu     sync.Mutex
	users  []fakeUser
	goals  []models.Goal
	tasks  []models.Task
	nextID int
	clock  time.Time
}

type fakeUser struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// NewFakeBackend starts a fake backend and registers its shutdown with t.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		nextID: 1,
		clock:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.NoCache)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", b.handleLogin)
		r.Post("/register", b.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(b.requireAuth)
			r.Get("/profile", b.handleGetProfile)
			r.Put("/profile", b.handleUpdateProfile)
			r.Put("/profile/password", b.handleUpdatePassword)
			r.Get("/goals", b.handleListGoals)
			r.Post("/goals", b.handleCreateGoal)
			r.Put("/goals/{goalId}", b.handleUpdateGoal)
			r.Delete("/goals/{goalId}", b.handleDeleteGoal)
			r.Get("/goals/{goalId}/tasks", b.handleGoalTasks)
			r.Post("/goals/{goalId}/tasks", b.handleCreateTask)
			r.Put("/tasks/{taskId}", b.handleUpdateTask)
			r.Delete("/tasks/{taskId}", b.handleDeleteTask)
			r.Put("/tasks/{taskId}/assign", b.handleAssignTask)
			r.Get("/tasks/assigned", b.handleAssignedTasks)
			r.Get("/users/tasks", b.handleUsersTaskBoard)
			r.Get("/users/lookup", b.handleUsersLookup)
		})
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend origin for wiring into an api.Client.
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// AddUser registers a user directly and returns its id.
func (b *FakeBackend) AddUser(firstName, lastName, email, password string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.allocID()
	b.users = append(b.users, fakeUser{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	})
	return id
}

// AddGoal inserts a goal directly, bypassing HTTP, and returns it.
func (b *FakeBackend) AddGoal(ownerID int, payload models.CreateGoalPayload) models.Goal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertGoal(ownerID, payload)
}

// AddTask inserts a task directly, bypassing HTTP, and returns it.
func (b *FakeBackend) AddTask(goalID, creatorID int, payload models.CreateTaskPayload) models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.insertTask(goalID, creatorID, payload)
}

func (b *FakeBackend) allocID() int {
	id := b.nextID
	b.nextID++
	return id
}

// tick advances the fake clock so consecutive records get distinct
// createdAt values.
func (b *FakeBackend) tick() time.Time {
	b.clock = b.clock.Add(time.Minute)
	return b.clock
}

func (b *FakeBackend) insertGoal(ownerID int, payload models.CreateGoalPayload) models.Goal {
	goal := models.Goal{
		ID:          b.allocID(),
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		Status:      payload.Status,
		OwnerID:     ownerID,
		CreatedAt:   b.tick(),
	}
	if goal.Status == "" {
		goal.Status = models.StatusTodo
	}
	b.goals = append(b.goals, goal)
	return goal
}

func (b *FakeBackend) insertTask(goalID, creatorID int, payload models.CreateTaskPayload) models.Task {
	task := models.Task{
		ID:          b.allocID(),
		GoalID:      goalID,
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		AssigneeID:  payload.AssigneeID,
		CreatedBy:   creatorID,
		CreatedAt:   b.tick(),
	}
	if task.AssigneeID != nil {
		task.AssigneeName = b.userName(*task.AssigneeID)
	}
	b.tasks = append(b.tasks, task)
	return task
}

func (b *FakeBackend) userName(id int) string {
	for _, u := range b.users {
		if u.ID == id {
			return strings.TrimSpace(u.FirstName + " " + u.LastName)
		}
	}
	return ""
}

// requireAuth rejects requests without a valid bearer token and stores the
// authenticated user id in the request header for handlers.
func (b *FakeBackend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return TestSecret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		userID, ok := claims["userID"].(string)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing userID claim")
			return
		}

		r.Header.Set("X-Test-User-ID", userID)
		next.ServeHTTP(w, r)
	})
}

func authedUserID(r *http.Request) int {
	id, _ := strconv.Atoi(r.Header.Get("X-Test-User-ID"))
	return id
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload models.LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == payload.Email && u.Password == payload.Password {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"userID":    strconv.Itoa(u.ID),
				"expiredAt": time.Now().Add(time.Hour).Unix(),
			})
			signed, err := token.SignedString(TestSecret)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to sign token")
				return
			}
			writeJSON(w, http.StatusOK, models.LoginResponse{Token: signed})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid email or password")
}

func (b *FakeBackend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload models.RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == payload.Email {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
	}
	b.users = append(b.users, fakeUser{
		ID:        b.allocID(),
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	w.WriteHeader(http.StatusCreated)
}

func (b *FakeBackend) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == authedUserID(r) {
			writeJSON(w, http.StatusOK, models.UserProfile{
				ID:        u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Email:     u.Email,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "user not found")
}

func (b *FakeBackend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload models.UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, u := range b.users {
		if u.ID == authedUserID(r) {
			b.users[i].FirstName = payload.FirstName
			b.users[i].LastName = payload.LastName
			writeJSON(w, http.StatusOK, models.UserProfile{
				ID:        u.ID,
				FirstName: payload.FirstName,
				LastName:  payload.LastName,
				Email:     u.Email,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "user not found")
}

func (b *FakeBackend) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var payload models.UpdatePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, u := range b.users {
		if u.ID == authedUserID(r) {
			if u.Password != payload.CurrentPassword {
				writeError(w, http.StatusBadRequest, "current password is invalid")
				return
			}
			b.users[i].Password = payload.NewPassword
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "user not found")
}

func (b *FakeBackend) handleListGoals(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.GoalWithTasks, 0, len(b.goals))
	for _, goal := range b.goals {
		if goal.OwnerID != authedUserID(r) {
			continue
		}
		out = append(out, models.GoalWithTasks{Goal: goal, Tasks: b.tasksForGoal(goal.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) tasksForGoal(goalID int) []models.Task {
	tasks := make([]models.Task, 0)
	for _, task := range b.tasks {
		if task.GoalID == goalID {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (b *FakeBackend) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var payload models.CreateGoalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	goal := b.insertGoal(authedUserID(r), payload)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, goal)
}

func (b *FakeBackend) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	goalID, _ := strconv.Atoi(chi.URLParam(r, "goalId"))
	var payload models.CreateGoalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, goal := range b.goals {
		if goal.ID == goalID && goal.OwnerID == authedUserID(r) {
			b.goals[i].Title = payload.Title
			b.goals[i].Description = payload.Description
			b.goals[i].Priority = payload.Priority
			b.goals[i].Status = payload.Status
			writeJSON(w, http.StatusOK, b.goals[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "goal not found")
}

func (b *FakeBackend) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID, _ := strconv.Atoi(chi.URLParam(r, "goalId"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, goal := range b.goals {
		if goal.ID == goalID && goal.OwnerID == authedUserID(r) {
			b.goals = append(b.goals[:i], b.goals[i+1:]...)
			kept := b.tasks[:0]
			for _, task := range b.tasks {
				if task.GoalID != goalID {
					kept = append(kept, task)
				}
			}
			b.tasks = kept
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "goal not found")
}

func (b *FakeBackend) handleGoalTasks(w http.ResponseWriter, r *http.Request) {
	goalID, _ := strconv.Atoi(chi.URLParam(r, "goalId"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, goal := range b.goals {
		if goal.ID == goalID && goal.OwnerID == authedUserID(r) {
			writeJSON(w, http.StatusOK, models.GoalWithTasks{Goal: goal, Tasks: b.tasksForGoal(goalID)})
			return
		}
	}
	writeError(w, http.StatusNotFound, "goal not found")
}

func (b *FakeBackend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	goalID, _ := strconv.Atoi(chi.URLParam(r, "goalId"))
	var payload models.CreateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, goal := range b.goals {
		if goal.ID == goalID {
			task := b.insertTask(goalID, authedUserID(r), payload)
			writeJSON(w, http.StatusCreated, task)
			return
		}
	}
	writeError(w, http.StatusNotFound, "goal not found")
}

func (b *FakeBackend) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, _ := strconv.Atoi(chi.URLParam(r, "taskId"))
	var payload models.UpdateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, task := range b.tasks {
		if task.ID == taskID {
			b.tasks[i].GoalID = payload.GoalID
			b.tasks[i].Title = payload.Title
			b.tasks[i].Description = payload.Description
			b.tasks[i].Priority = payload.Priority
			b.tasks[i].IsCompleted = payload.IsCompleted
			b.tasks[i].AssigneeID = payload.AssigneeID
			if payload.AssigneeID != nil {
				b.tasks[i].AssigneeName = b.userName(*payload.AssigneeID)
			} else {
				b.tasks[i].AssigneeName = ""
			}
			writeJSON(w, http.StatusOK, b.tasks[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, _ := strconv.Atoi(chi.URLParam(r, "taskId"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, task := range b.tasks {
		if task.ID == taskID {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	taskID, _ := strconv.Atoi(chi.URLParam(r, "taskId"))
	var payload models.AssignTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, task := range b.tasks {
		if task.ID == taskID {
			b.tasks[i].AssigneeID = payload.AssigneeID
			if payload.AssigneeID != nil {
				b.tasks[i].AssigneeName = b.userName(*payload.AssigneeID)
			} else {
				b.tasks[i].AssigneeName = ""
			}
			writeJSON(w, http.StatusOK, b.tasks[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleAssignedTasks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Task, 0)
	for _, task := range b.tasks {
		if task.AssigneeID != nil && *task.AssigneeID == authedUserID(r) {
			out = append(out, task)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleUsersTaskBoard(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.UserTasksBoard, 0, len(b.users))
	for _, u := range b.users {
		row := models.UserTasksBoard{
			ID:    u.ID,
			Name:  strings.TrimSpace(u.FirstName + " " + u.LastName),
			Email: u.Email,
			Tasks: make([]models.Task, 0),
		}
		for _, task := range b.tasks {
			if task.AssigneeID != nil && *task.AssigneeID == u.ID {
				row.Tasks = append(row.Tasks, task)
			}
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleUsersLookup(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.UserLookup, 0, len(b.users))
	for _, u := range b.users {
		out = append(out, models.UserLookup{
			ID:   u.ID,
			Name: strings.TrimSpace(u.FirstName + " " + u.LastName),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
