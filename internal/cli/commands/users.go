package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// NewUserCmd creates the user administration command group
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer users",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserUpdateCmd())
	cmd.AddCommand(newUserRolesCmd())
	cmd.AddCommand(newUserDepartmentCmd())

	return cmd
}

var userAdminRequirement = guard.Requirement{
	Permissions: []string{models.PermManageUsers},
}

func newUserListCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/users", userAdminRequirement); err != nil {
				return err
			}

			users, err := a.client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tDEPARTMENT\tROLES")
			fmt.Fprintln(w, "──\t────\t─────\t──────────\t─────")
			for _, user := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					user.ID, user.Name, user.Email, user.Department,
					strings.Join(user.Roles, ","))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func newUserUpdateCmd() *cobra.Command {
	var serverAlias string
	var update api.UserUpdate

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update a user's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/users/edit", userAdminRequirement); err != nil {
				return err
			}

			user, err := a.client.UpdateUser(cmd.Context(), args[0], update)
			if err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}

			fmt.Printf("✓ Updated user %s (%s)\n", user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&update.Name, "name", "", "New name")
	cmd.Flags().StringVar(&update.Email, "email", "", "New email")
	cmd.Flags().StringVar(&update.Department, "department", "", "New department code")

	return cmd
}

func newUserRolesCmd() *cobra.Command {
	var serverAlias string
	var roles []string

	cmd := &cobra.Command{
		Use:   "roles <user-id>",
		Short: "Replace a user's roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			// Changing roles needs both user and role management rights.
			if err := a.requireAccess("/users/roles", guard.Requirement{
				Permissions: []string{models.PermManageUsers, models.PermManageRoles},
			}); err != nil {
				return err
			}

			user, err := a.client.UpdateUserRoles(cmd.Context(), args[0], roles)
			if err != nil {
				return fmt.Errorf("failed to update roles: %w", err)
			}

			fmt.Printf("✓ Roles for %s: %s\n", user.Email, strings.Join(user.Roles, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to assign (repeatable)")
	cmd.MarkFlagRequired("role")

	return cmd
}

func newUserDepartmentCmd() *cobra.Command {
	var serverAlias, department string

	cmd := &cobra.Command{
		Use:   "department <user-id>",
		Short: "Move a user to another department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/users/department", userAdminRequirement); err != nil {
				return err
			}

			user, err := a.client.UpdateUserDepartment(cmd.Context(), args[0], department)
			if err != nil {
				return fmt.Errorf("failed to update department: %w", err)
			}

			fmt.Printf("✓ %s moved to %s\n", user.Email, user.Department)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&department, "to", "", "Target department code")
	cmd.MarkFlagRequired("to")

	return cmd
}
