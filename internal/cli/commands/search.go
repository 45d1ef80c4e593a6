package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/history"
)

func newTaskSearchCmd() *cobra.Command {
	var serverAlias, filterFile string
	var showHistory bool
	var noSave bool
	var filters api.SearchFilters

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search tasks",
		Long: `Search tasks by free-text query and filters.

Filters can also be loaded from a YAML file:

  query: quarterly review
  department: CSE
  status: in_progress
  tags: [finance, q3]

Past searches are recorded locally; recall them with --history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}

			if showHistory {
				return printSearchHistory(store)
			}

			if len(args) > 0 {
				filters.Query = args[0]
			}
			if filterFile != "" {
				data, err := os.ReadFile(filterFile)
				if err != nil {
					return fmt.Errorf("failed to read filter file: %w", err)
				}
				if err := yaml.Unmarshal(data, &filters); err != nil {
					return fmt.Errorf("failed to parse filter file: %w", err)
				}
			}

			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/tasks/search", guard.Requirement{}); err != nil {
				return err
			}

			tasks, err := a.client.SearchTasks(cmd.Context(), filters)
			if err != nil {
				return err
			}

			if !noSave {
				if err := store.RecordSearch(filters, len(tasks)); err != nil {
					// History is a convenience; a failed write never fails the search.
					fmt.Fprintf(os.Stderr, "Warning: failed to record search: %v\n", err)
				}
			}

			if len(tasks) == 0 {
				fmt.Println("No tasks matched.")
				return nil
			}

			printTaskTable(os.Stdout, tasks, a.session.State().User)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&filters.Department, "department", "", "Filter by department")
	cmd.Flags().StringVar(&filters.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&filters.Priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&filters.AssignedTo, "assignee", "", "Filter by assignee user ID")
	cmd.Flags().StringSliceVar(&filters.Tags, "tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().StringVar(&filterFile, "filter", "", "Load filters from a YAML file")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Show recent searches instead of searching")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not record this search in history")

	return cmd
}

func openHistory() (*history.Store, error) {
	path, err := history.DefaultPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func printSearchHistory(store *history.Store) error {
	entries, err := store.Recent(history.KindSearch, 20)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No search history yet.")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-40s  %d results\n",
			entry.CreatedAt.Format("2006-01-02 15:04"), entry.Summary, entry.ResultCount)
	}
	return nil
}
