// Command tracker is the CLI client for the vyachik task tracker. It wires
// the configuration, relay client, session manager, and tracker store into
// one application context and exposes goal/task commands on top of it.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/api"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/models"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/session"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/storage"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/internal/tracker"
	"github.com/VyacheslavKuchumov/vyachik-task-tracker/pkg/config"
)

// app is the application context: explicit, constructed in main, passed to
// every command. There is no global store.
type app struct {
	session *session.Manager
	store   *tracker.Store
}

// stderrNavigator satisfies session.Navigator for a CLI: there is no view
// to switch, so the redirect signal becomes a hint on stderr.
type stderrNavigator struct{}

func (stderrNavigator) NavigateToLogin() {
	fmt.Fprintln(os.Stderr, "Session ended. Run `tracker login` to sign in again.")
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	tokens, err := storage.NewFileTokenStore(cfg.Storage.TokenFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up token storage")
	}

	client := api.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	manager := session.NewManager(client, tokens, stderrNavigator{})
	if err := manager.Restore(); err != nil {
		log.Warn().Err(err).Msg("Failed to restore persisted session")
	}

	a := &app{
		session: manager,
		store:   tracker.NewStore(client),
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tracker <command> [flags]

Commands:
  signup         register an account and log in
  login          log in with email and password
  logout         clear the session
  whoami         show the authenticated profile
  goals          list goals with their tasks
  goal-create    create a goal
  goal-update    update a goal
  goal-delete    delete a goal (cascades its tasks)
  tasks          show one goal's tasks
  task-create    create a task under a goal
  task-update    update a task (can move it between goals)
  task-delete    delete a task
  task-assign    assign or unassign a task
  assigned       list tasks assigned to you
  board          show the users task board
  users          list users for assignment
  refresh        refetch goals and assigned tasks`)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.session.Logout(false)
		a.store.Reset()
		fmt.Println("Logged out.")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "goals":
		return a.goals(ctx)
	case "goal-create":
		return a.goalCreate(ctx, args)
	case "goal-update":
		return a.goalUpdate(ctx, args)
	case "goal-delete":
		return a.goalDelete(ctx, args)
	case "tasks":
		return a.goalTasks(ctx, args)
	case "task-create":
		return a.taskCreate(ctx, args)
	case "task-update":
		return a.taskUpdate(ctx, args)
	case "task-delete":
		return a.taskDelete(ctx, args)
	case "task-assign":
		return a.taskAssign(ctx, args)
	case "assigned":
		return a.assigned(ctx)
	case "board":
		return a.board(ctx)
	case "users":
		return a.users(ctx)
	case "refresh":
		return a.refresh(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// requireAuth guards authenticated commands, mirroring the route guard of
// the web client.
func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in (run `tracker login`)")
	}
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("signup", pflag.ContinueOnError)
	first := flags.String("first", "", "first name")
	last := flags.String("last", "", "last name")
	email := flags.String("email", "", "email address")
	password := flags.String("password", "", "password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := a.session.Signup(ctx, *first, *last, *email, *password); err != nil {
		return err
	}
	fmt.Printf("Signed up and logged in as %s.\n", displayName(a.session))
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := flags.String("email", "", "email address")
	password := flags.String("password", "", "password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s.\n", displayName(a.session))
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	profile, err := a.session.FetchProfile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> (id %d)\n", profile.DisplayName(), profile.Email, profile.ID)
	return nil
}

func (a *app) goals(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.store.FetchGoals(ctx, a.session.AuthHeader()); err != nil {
		return err
	}
	for _, goal := range a.store.Goals() {
		fmt.Printf("[%d] %s (%s, %s)\n", goal.ID, goal.Title, goal.Priority, goal.Status)
		for _, task := range goal.Tasks {
			fmt.Printf("    [%d] %s %s\n", task.ID, taskMark(task), task.Title)
		}
	}
	return nil
}

func (a *app) goalCreate(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	payload, err := parseGoalFlags("goal-create", args)
	if err != nil {
		return err
	}
	goal, err := a.store.CreateGoal(ctx, payload, a.session.AuthHeader())
	if err != nil {
		return err
	}
	fmt.Printf("Created goal [%d] %s.\n", goal.ID, goal.Title)
	return nil
}

func (a *app) goalUpdate(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	id, rest, err := leadingID(args)
	if err != nil {
		return err
	}
	payload, err := parseGoalFlags("goal-update", rest)
	if err != nil {
		return err
	}
	goal, err := a.store.UpdateGoal(ctx, id, payload, a.session.AuthHeader())
	if err != nil {
		return err
	}
	fmt.Printf("Updated goal [%d] %s.\n", goal.ID, goal.Title)
	return nil
}

func (a *app) goalDelete(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	id, _, err := leadingID(args)
	if err != nil {
		return err
	}
	if err := a.store.DeleteGoal(ctx, id, a.session.AuthHeader()); err != nil {
		return err
	}
	fmt.Printf("Deleted goal [%d].\n", id)
	return nil
}

func (a *app) goalTasks(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	id, _, err := leadingID(args)
	if err != nil {
		return err
	}
	goal, err := a.store.FetchGoalTasks(ctx, id, a.session.AuthHeader())
	if err != nil {
		return err
	}
	fmt.Printf("[%d] %s\n", goal.ID, goal.Title)
	for _, task := range goal.Tasks {
		fmt.Printf("    [%d] %s %s\n", task.ID, taskMark(task), task.Title)
	}
	return nil
}

func (a *app) taskCreate(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	goalID, rest, err := leadingID(args)
	if err != nil {
		return err
	}

	flags := pflag.NewFlagSet("task-create", pflag.ContinueOnError)
	title := flags.String("title", "", "task title")
	desc := flags.String("desc", "", "task description")
	priority := flags.String("priority", models.PriorityMedium, "high, medium, or low")
	assignee := flags.Int("assignee", 0, "assignee user id (0 leaves the task unassigned)")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	payload := models.CreateTaskPayload{Title: *title, Description: *desc, Priority: *priority}
	if *assignee > 0 {
		payload.AssigneeID = assignee
	}

	task, err := a.store.CreateTask(ctx, goalID, payload, a.session.AuthHeader())
	if err != nil {
		return err
	}
	fmt.Printf("Created task [%d] %s.\n", task.ID, task.Title)
	return nil
}

func (a *app) taskUpdate(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	taskID, rest, err := leadingID(args)
	if err != nil {
		return err
	}

	flags := pflag.NewFlagSet("task-update", pflag.ContinueOnError)
	goalID := flags.Int("goal", 0, "owning goal id")
	title := flags.String("title", "", "task title")
	desc := flags.String("desc", "", "task description")
	priority := flags.String("priority", models.PriorityMedium, "high, medium, or low")
	completed := flags.Bool("completed", false, "mark the task completed")
	assignee := flags.Int("assignee", 0, "assignee user id (0 unassigns)")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	payload := models.UpdateTaskPayload{
		GoalID:      *goalID,
		Title:       *title,
		Description: *desc,
		Priority:    *priority,
		IsCompleted: *completed,
	}
	if *assignee > 0 {
		payload.AssigneeID = assignee
	}

	task, err := a.store.UpdateTask(ctx, taskID, payload, a.session.AuthHeader())
	if err != nil {
		return err
	}
	fmt.Printf("Updated task [%d] %s.\n", task.ID, task.Title)
	return nil
}

func (a *app) taskDelete(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	taskID, _, err := leadingID(args)
	if err != nil {
		return err
	}
	if err := a.store.DeleteTask(ctx, taskID, a.session.AuthHeader()); err != nil {
		return err
	}
	fmt.Printf("Deleted task [%d].\n", taskID)
	return nil
}

func (a *app) taskAssign(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	taskID, rest, err := leadingID(args)
	if err != nil {
		return err
	}

	flags := pflag.NewFlagSet("task-assign", pflag.ContinueOnError)
	assignee := flags.Int("assignee", 0, "assignee user id (0 unassigns)")
	if err := flags.Parse(rest); err != nil {
		return err
	}

	var assigneeID *int
	if *assignee > 0 {
		assigneeID = assignee
	}

	task, err := a.store.AssignTask(ctx, taskID, assigneeID, a.session.AuthHeader())
	if err != nil {
		return err
	}
	if task.AssigneeName != "" {
		fmt.Printf("Task [%d] assigned to %s.\n", task.ID, task.AssigneeName)
	} else {
		fmt.Printf("Task [%d] unassigned.\n", task.ID)
	}
	return nil
}

func (a *app) assigned(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.store.FetchAssignedTasks(ctx, a.session.AuthHeader()); err != nil {
		return err
	}
	for _, task := range a.store.AssignedTasks() {
		fmt.Printf("[%d] %s %s (%s)\n", task.ID, taskMark(task), task.Title, task.GoalTitle)
	}
	return nil
}

func (a *app) board(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	board, err := a.store.FetchUsersTaskBoard(ctx, a.session.AuthHeader())
	if err != nil {
		return err
	}
	for _, row := range board {
		fmt.Printf("%s <%s>\n", row.Name, row.Email)
		for _, task := range row.Tasks {
			fmt.Printf("    [%d] %s %s\n", task.ID, taskMark(task), task.Title)
		}
	}
	return nil
}

func (a *app) users(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	users, err := a.store.FetchUsersLookup(ctx, a.session.AuthHeader())
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("[%d] %s\n", u.ID, u.Name)
	}
	return nil
}

func (a *app) refresh(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.store.Refresh(ctx, a.session.AuthHeader()); err != nil {
		return err
	}
	fmt.Printf("Refreshed: %d goals, %d assigned tasks.\n",
		len(a.store.Goals()), len(a.store.AssignedTasks()))
	return nil
}

func parseGoalFlags(name string, args []string) (models.CreateGoalPayload, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	title := flags.String("title", "", "goal title")
	desc := flags.String("desc", "", "goal description")
	priority := flags.String("priority", models.PriorityMedium, "high, medium, or low")
	status := flags.String("status", models.StatusTodo, "todo, in_progress, or achieved")
	if err := flags.Parse(args); err != nil {
		return models.CreateGoalPayload{}, err
	}
	return models.CreateGoalPayload{
		Title:       *title,
		Description: *desc,
		Priority:    *priority,
		Status:      *status,
	}, nil
}

// leadingID pops the numeric id argument a goal/task command starts with.
func leadingID(args []string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("missing id argument")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("invalid id %q", args[0])
	}
	return id, args[1:], nil
}

func taskMark(task models.Task) string {
	if task.IsCompleted {
		return "[x]"
	}
	return "[ ]"
}

func displayName(m *session.Manager) string {
	if profile := m.Profile(); profile != nil {
		return profile.DisplayName()
	}
	return fmt.Sprintf("user %d", m.UserID())
}
