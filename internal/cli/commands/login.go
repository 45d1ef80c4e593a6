package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taskdeck-dev/taskdeck/internal/cli/auth"
	"github.com/taskdeck-dev/taskdeck/internal/cli/config"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Taskdeck server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password,
				WithLoginServerAlias(serverAlias))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set TASKDECK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TASKDECK_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias from taskdeck.json")

	return cmd
}

type loginOptions struct {
	serverAlias string
	server      *config.Server
	store       auth.TokenStore
	app         *app
	out         io.Writer
}

// LoginOption customizes runLogin, mainly for tests.
type LoginOption func(*loginOptions)

func WithLoginServerAlias(alias string) LoginOption {
	return func(o *loginOptions) { o.serverAlias = alias }
}

func WithLoginServer(server *config.Server) LoginOption {
	return func(o *loginOptions) { o.server = server }
}

func WithLoginStore(store auth.TokenStore) LoginOption {
	return func(o *loginOptions) { o.store = store }
}

func WithLoginApp(a *app) LoginOption {
	return func(o *loginOptions) { o.app = a }
}

func WithLoginOutput(out io.Writer) LoginOption {
	return func(o *loginOptions) { o.out = out }
}

func runLogin(ctx context.Context, email, password string, opts ...LoginOption) error {
	options := loginOptions{store: auth.Default, out: os.Stdout}
	for _, opt := range opts {
		opt(&options)
	}

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("TASKDECK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("TASKDECK_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or TASKDECK_EMAIL env var)")
	}

	if options.server == nil && options.app == nil {
		server, err := getSelectedServer(options.serverAlias)
		if err != nil {
			return err
		}
		options.server = server
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Fprint(options.out, "Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Fprintln(options.out)
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or TASKDECK_PASSWORD env var)")
		}
	}

	a := options.app
	if a == nil {
		var err error
		a, err = newAppForServer(options.server, options.store)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(options.out, "Logging in to %s (%s)...\n", a.server.Alias, a.server.IP)

	if err := a.session.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	state := a.session.State()
	fmt.Fprintln(options.out, "✓ Login successful!")
	fmt.Fprintf(options.out, "  User: %s (%s)\n", state.User.Name, state.User.Email)
	if len(state.User.Roles) > 0 {
		fmt.Fprintf(options.out, "  Roles: %s\n", strings.Join(state.User.Roles, ", "))
	}

	return nil
}
