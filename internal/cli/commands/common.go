package commands

import (
	"context"
	"fmt"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/auth"
	"github.com/taskdeck-dev/taskdeck/internal/cli/config"
	"github.com/taskdeck-dev/taskdeck/internal/cli/guard"
	"github.com/taskdeck-dev/taskdeck/internal/cli/serverselect"
	"github.com/taskdeck-dev/taskdeck/internal/logger"
	"github.com/taskdeck-dev/taskdeck/internal/session"
)

// getSelectedServer loads the config and returns the selected server.
// This is common logic used by most commands.
func getSelectedServer(serverAlias string) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'taskdeck init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, err
	}

	if server.IP == "" {
		return nil, fmt.Errorf("server IP is empty. Please edit taskdeck.json and add a valid IP address")
	}

	return server, nil
}

// app bundles the wired client and session for one command invocation.
type app struct {
	server  *config.Server
	client  *api.Client
	session *session.Manager
}

// setup resolves the server, wires the API client to the session manager,
// and hydrates the session from stored credentials.
func setup(ctx context.Context, serverAlias string) (*app, error) {
	return setupWithStore(ctx, serverAlias, auth.Default)
}

// setupWithStore is setup with an injectable token store (tests).
func setupWithStore(ctx context.Context, serverAlias string, store auth.TokenStore) (*app, error) {
	server, err := getSelectedServer(serverAlias)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger()
	client := api.New(server.IP, log)
	mgr := session.NewManager(client, store, server.IP, log)
	client.SetTokenSource(mgr)

	if err := mgr.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	return &app{server: server, client: client, session: mgr}, nil
}

// newAppForServer wires a client and session for an already-resolved
// server without hydrating, used by login which starts a fresh session.
func newAppForServer(server *config.Server, store auth.TokenStore) (*app, error) {
	log := logger.GetLogger()
	client := api.New(server.IP, log)
	mgr := session.NewManager(client, store, server.IP, log)
	client.SetTokenSource(mgr)
	return &app{server: server, client: client, session: mgr}, nil
}

// requireAccess runs the guard for a command target and converts a denial
// into an actionable error.
func (a *app) requireAccess(target string, req guard.Requirement) error {
	decision := guard.Check(a.session.State(), target, req)
	if decision.Allowed {
		return nil
	}
	if decision.Pending {
		return fmt.Errorf("session is still loading, try again")
	}
	return guard.Explain(decision, req)
}
