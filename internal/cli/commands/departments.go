package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// NewDeptCmd creates the department command group
func NewDeptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dept",
		Aliases: []string{"department"},
		Short:   "Work with departments",
	}

	cmd.AddCommand(newDeptListCmd())
	cmd.AddCommand(newDeptAddCmd())

	return cmd
}

func newDeptListCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/departments", guard.Requirement{}); err != nil {
				return err
			}

			departments, err := a.client.ListDepartments(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME")
			fmt.Fprintln(w, "────\t────")
			for _, dept := range departments {
				fmt.Fprintf(w, "%s\t%s\n", dept.Code, dept.Name)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func newDeptAddCmd() *cobra.Command {
	var serverAlias, code, name string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a department",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/departments/add", guard.Requirement{
				Permissions: []string{models.PermManageDepartments},
			}); err != nil {
				return err
			}

			dept, err := a.client.CreateDepartment(cmd.Context(), code, name)
			if err != nil {
				return fmt.Errorf("failed to create department: %w", err)
			}

			fmt.Printf("✓ Created department %s (%s)\n", dept.Name, dept.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&code, "code", "", "Department code (e.g. CSE)")
	cmd.Flags().StringVar(&name, "name", "", "Department name")
	cmd.MarkFlagRequired("code")
	cmd.MarkFlagRequired("name")

	return cmd
}
