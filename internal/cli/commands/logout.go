package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var serverAlias string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials for the selected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(serverAlias, auth.Default)
		},
	}

	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

func runLogout(serverAlias string, store auth.TokenStore) error {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return err
	}

	// Clearing twice is fine; logout is idempotent.
	if err := store.Clear(server.IP); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	fmt.Printf("✓ Logged out of %s (%s)\n", server.Alias, server.IP)
	return nil
}
