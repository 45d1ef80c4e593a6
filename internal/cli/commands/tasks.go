package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/authz"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// NewTaskCmd creates the task command group
func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with tasks",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskUpdateCmd())
	cmd.AddCommand(newTaskApproveCmd())
	cmd.AddCommand(newTaskArchiveCmd())
	cmd.AddCommand(newTaskSearchCmd())

	return cmd
}

func newTaskListCmd() *cobra.Command {
	var serverAlias, department, status string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskList(cmd.Context(), department, status,
				WithTaskListServerAlias(serverAlias))
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&department, "department", "", "Only tasks of this department")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks in this status")

	return cmd
}

type taskListOptions struct {
	serverAlias string
	app         *app
	out         io.Writer
}

// TaskListOption customizes runTaskList, mainly for tests.
type TaskListOption func(*taskListOptions)

func WithTaskListServerAlias(alias string) TaskListOption {
	return func(o *taskListOptions) { o.serverAlias = alias }
}

func WithTaskListApp(a *app) TaskListOption {
	return func(o *taskListOptions) { o.app = a }
}

func WithTaskListOutput(out io.Writer) TaskListOption {
	return func(o *taskListOptions) { o.out = out }
}

func runTaskList(ctx context.Context, department, status string, opts ...TaskListOption) error {
	options := taskListOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(&options)
	}

	if options.app == nil {
		a, err := setup(ctx, options.serverAlias)
		if err != nil {
			return err
		}
		options.app = a
	}
	a := options.app

	if err := a.requireAccess("/tasks", guard.Requirement{}); err != nil {
		return err
	}

	var tasks []models.Task
	var err error
	switch {
	case department != "":
		tasks, err = a.client.TasksByDepartment(ctx, department)
	case status != "":
		tasks, err = a.client.TasksByStatus(ctx, status)
	default:
		tasks, err = a.client.ListTasks(ctx)
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Fprintln(options.out, "No tasks found.")
		fmt.Fprintln(options.out, "\nCreate a task with: taskdeck task create")
		return nil
	}

	printTaskTable(options.out, tasks, a.session.State().User)
	return nil
}

// printTaskTable renders tasks plus the actions the current user may take
// on each one. Action visibility comes from the authz predicates, the same
// ones the action commands enforce.
func printTaskTable(out io.Writer, tasks []models.Task, user *models.User) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNED TO\tACTIONS")
	fmt.Fprintln(w, "──\t─────\t──────\t────────\t───────────\t───────")

	for i := range tasks {
		task := &tasks[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.Title,
			task.Status,
			task.Priority,
			task.AssignedTo,
			strings.Join(availableActions(user, task), ","),
		)
	}

	w.Flush()
}

func availableActions(user *models.User, task *models.Task) []string {
	var actions []string
	if authz.CanEditTask(user, task) {
		actions = append(actions, "edit")
	}
	if authz.CanApproveTask(user, task) {
		actions = append(actions, "approve")
	}
	if authz.CanArchiveTask(user, task) {
		actions = append(actions, "archive")
	}
	if len(actions) == 0 {
		actions = append(actions, "-")
	}
	return actions
}

func newTaskCreateCmd() *cobra.Command {
	var serverAlias string
	var req api.TaskRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/tasks/create", guard.Requirement{
				Permissions: []string{models.PermCreateTask},
			}); err != nil {
				return err
			}

			task, err := a.client.CreateTask(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to create task: %w", err)
			}

			fmt.Printf("✓ Created task %s: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&req.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&req.Department, "department", "", "Department code")
	cmd.Flags().StringVar(&req.AssignedTo, "assign", "", "User ID to assign the task to")
	cmd.Flags().StringVar(&req.Priority, "priority", "medium", "Priority (low, medium, high)")
	cmd.Flags().StringVar(&req.DueDate, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tags (repeatable)")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("department")

	return cmd
}

func newTaskUpdateCmd() *cobra.Command {
	var serverAlias string
	var req api.TaskRequest

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/tasks/edit", guard.Requirement{
				Permissions: []string{models.PermEditTask},
			}); err != nil {
				return err
			}

			// Ownership is enforced server-side too; the client check just
			// avoids a doomed round trip when the task is visible locally.
			task, err := a.client.UpdateTask(cmd.Context(), args[0], req)
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}

			fmt.Printf("✓ Updated task %s: %s (%s)\n", task.ID, task.Title, task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&req.Title, "title", "", "New title")
	cmd.Flags().StringVar(&req.Description, "description", "", "New description")
	cmd.Flags().StringVar(&req.Status, "status", "", "New status")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "New priority")
	cmd.Flags().StringVar(&req.AssignedTo, "assign", "", "Reassign to user ID")
	cmd.Flags().StringVar(&req.DueDate, "due", "", "New due date (YYYY-MM-DD)")

	return cmd
}

func newTaskApproveCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "approve <task-id>",
		Short: "Approve a task awaiting approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/tasks/approve", guard.Requirement{
				Permissions: []string{models.PermApproveTask},
			}); err != nil {
				return err
			}

			task, err := a.client.ApproveTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to approve task: %w", err)
			}

			fmt.Printf("✓ Approved task %s: %s (%s)\n", task.ID, task.Title, task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func newTaskArchiveCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "archive <task-id>",
		Short: "Archive a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/tasks/archive", guard.Requirement{
				Permissions: []string{models.PermAccessArchives},
			}); err != nil {
				return err
			}

			task, err := a.client.ArchiveTask(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to archive task: %w", err)
			}

			fmt.Printf("✓ Archived task %s: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}
