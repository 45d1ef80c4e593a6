package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/profile", guard.Requirement{}); err != nil {
				return err
			}

			user := a.session.State().User
			fmt.Printf("User:        %s\n", user.Name)
			fmt.Printf("Email:       %s\n", user.Email)
			fmt.Printf("Department:  %s\n", user.Department)
			fmt.Printf("Roles:       %s\n", strings.Join(user.Roles, ", "))
			fmt.Printf("Permissions: %s\n", strings.Join(user.Permissions, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}
