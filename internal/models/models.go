// Package models defines the domain types exchanged with the task-tracker
// backend. Every request and response body on the wire has an explicit type
// here; the client never works with untyped JSON maps.
//
// JSON tags follow the backend contract exactly (camelCase field names,
// nullable assignee as a pointer). Timestamps are RFC 3339 and parsed into
// time.Time at the boundary.
package models

import (
	"strings"
	"time"
)

// Priority values accepted by the backend for goals and tasks.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Goal status values. A goal whose status is StatusAchieved sorts after
// every non-achieved goal.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusAchieved   = "achieved"
)

// Goal is a top-level tracked objective.
//
// JSON example:
//
//	{
//	  "id": 12,
//	  "title": "Learn Go",
//	  "description": "Work through the standard library",
//	  "priority": "high",
//	  "status": "in_progress",
//	  "ownerId": 3,
//	  "createdAt": "2024-05-01T10:30:00Z"
//	}
type Goal struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	OwnerID     int       `json:"ownerId"`
	OwnerName   string    `json:"ownerName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GoalWithTasks is a goal together with its owned task list, as returned by
// the goal listing and single-goal endpoints. Within the client cache a task
// appears under exactly one goal.
type GoalWithTasks struct {
	Goal
	Tasks []Task `json:"tasks"`
}

// Task is an actionable item belonging to exactly one goal. GoalID is a
// lookup key back to the owning goal, not ownership. AssigneeID is nil for
// unassigned tasks.
type Task struct {
	ID            int       `json:"id"`
	GoalID        int       `json:"goalId"`
	GoalTitle     string    `json:"goalTitle,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Priority      string    `json:"priority"`
	IsCompleted   bool      `json:"isCompleted"`
	AssigneeID    *int      `json:"assigneeId,omitempty"`
	AssigneeName  string    `json:"assigneeName,omitempty"`
	CreatedBy     int       `json:"createdBy"`
	CreatedByName string    `json:"createdByName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserLookup is a read-only reference entry for assignment pickers.
type UserLookup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// UserTasksBoard is one row of the users task board: a user together with
// the tasks currently assigned to them.
type UserTasksBoard struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Tasks []Task `json:"tasks"`
}

// UserProfile is the authenticated user's profile as served by GET /profile.
type UserProfile struct {
	ID        int       `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName derives a human-readable name for the profile: the trimmed
// "first last" combination when non-empty, else the email address, else a
// generic placeholder.
func (p UserProfile) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if full != "" {
		return full
	}
	if p.Email != "" {
		return p.Email
	}
	return "Account"
}

// LoginPayload is the body of POST /login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued on successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterPayload is the body of POST /register.
type RegisterPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// CreateGoalPayload is the body of POST /goals and PUT /goals/{goalId}.
type CreateGoalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// CreateTaskPayload is the body of POST /goals/{goalId}/tasks.
type CreateTaskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AssigneeID  *int   `json:"assigneeId,omitempty"`
}

// UpdateTaskPayload is the body of PUT /tasks/{taskId}. GoalID names the
// goal the task should belong to after the update; changing it relocates
// the task.
type UpdateTaskPayload struct {
	GoalID      int    `json:"goalId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	IsCompleted bool   `json:"isCompleted"`
	AssigneeID  *int   `json:"assigneeId,omitempty"`
}

// AssignTaskPayload is the body of PUT /tasks/{taskId}/assign. A nil
// AssigneeID unassigns the task.
type AssignTaskPayload struct {
	AssigneeID *int `json:"assigneeId"`
}

// UpdateProfilePayload is the body of PUT /profile.
type UpdateProfilePayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UpdatePasswordPayload is the body of PUT /profile/password.
type UpdatePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
