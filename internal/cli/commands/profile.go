package commands

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your own profile",
	}

	cmd.AddCommand(newProfileUpdateCmd())
	cmd.AddCommand(newProfilePasswordCmd())

	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var serverAlias string
	var update api.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/profile", guard.Requirement{}); err != nil {
				return err
			}

			if err := a.session.UpdateProfile(cmd.Context(), update); err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}

			user := a.session.State().User
			fmt.Printf("✓ Profile updated: %s (%s)\n", user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")
	cmd.Flags().StringVar(&update.Name, "name", "", "New name")
	cmd.Flags().StringVar(&update.Email, "email", "", "New email")
	cmd.Flags().StringVar(&update.Department, "department", "", "New department code")

	return cmd
}

func newProfilePasswordCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), serverAlias)
			if err != nil {
				return err
			}

			if err := a.requireAccess("/profile/password", guard.Requirement{}); err != nil {
				return err
			}

			current, err := promptPassword("Current password: ")
			if err != nil {
				return err
			}
			next, err := promptPassword("New password: ")
			if err != nil {
				return err
			}

			update := api.PasswordUpdate{CurrentPassword: current, NewPassword: next}
			if err := a.session.UpdatePassword(cmd.Context(), update); err != nil {
				return fmt.Errorf("failed to update password: %w", err)
			}

			fmt.Println("✓ Password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func promptPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password change requires an interactive terminal")
	}
	fmt.Print(label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()
	return string(bytePassword), nil
}
