package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/api"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var req api.RegisterRequest
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create a new account on the selected server.

Registration does not log you in; run 'taskdeck login' afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			user, err := a.session.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Printf("✓ Account created for %s (%s)\n", user.Name, user.Email)
			fmt.Println("Run 'taskdeck login' to authenticate.")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (min 8 characters)")
	cmd.Flags().StringVar(&req.Department, "department", "", "Department code")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("department")

	return cmd
}
