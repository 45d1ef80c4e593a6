package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/logger"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var serverAlias, schedule, department string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically re-list tasks on a schedule",
		Long: `Poll the task list on a cron schedule and print it on every tick.

The default schedule polls once a minute. Press Ctrl-C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, serverAlias, schedule, department)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&schedule, "schedule", "* * * * *", "Cron schedule for polling")
	cmd.Flags().StringVar(&department, "department", "", "Only tasks of this department")

	return cmd
}

func runWatch(cmd *cobra.Command, serverAlias, schedule, department string) error {
	ctx := cmd.Context()
	log := logger.GetLogger()

	a, err := setup(ctx, serverAlias)
	if err != nil {
		return err
	}

	if err := a.requireAccess("/tasks", guard.Requirement{}); err != nil {
		return err
	}

	poll := func() {
		// Each tick reuses the hydrated session; an expired token is
		// renewed transparently by the transport.
		err := runTaskList(ctx, department, "", WithTaskListApp(a))
		if err != nil {
			log.Warn().Err(err).Msg("poll failed")
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, poll); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Printf("Watching tasks on %s (schedule: %s). Ctrl-C to stop.\n\n", a.server.Alias, schedule)
	poll()
	c.Start()
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	fmt.Println("\nStopped.")
	return nil
}
