// Package session owns the client's authentication state: the current
// user, the credential pair, and the state machine that moves between
// anonymous, authenticating, authenticated and refreshing. There is one
// Manager per process; every consumer reads state through it and observes
// changes through Subscribe, so no surface ever derives identity from ad
// hoc persisted strings.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/taskdeck-dev/taskdeck/internal/api"
	"github.com/taskdeck-dev/taskdeck/internal/cli/auth"
	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusRefreshing     Status = "refreshing"
)

// State is an immutable snapshot of the session.
type State struct {
	Status          Status
	User            *models.User
	IsAuthenticated bool
	Loading         bool
	Err             string
}

// API is the slice of the HTTP client the manager needs. *api.Client
// satisfies it; tests substitute fakes.
type API interface {
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*models.User, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, update api.PasswordUpdate) error
}

// Manager owns the session. All methods are safe for concurrent use.
type Manager struct {
	api      API
	store    auth.TokenStore
	serverIP string
	log      zerolog.Logger
	validate *validator.Validate

	mu        sync.Mutex
	state     State
	creds     auth.Credentials
	expiresAt time.Time
	listeners []func(State)

	// refreshing is non-nil while a refresh is in flight; concurrent
	// callers wait on it instead of issuing their own refresh.
	refreshing     chan struct{}
	lastRefreshErr error
}

// NewManager creates a Manager in the anonymous state.
func NewManager(apiClient API, store auth.TokenStore, serverIP string, log zerolog.Logger) *Manager {
	return &Manager{
		api:      apiClient,
		store:    store,
		serverIP: serverIP,
		log:      log,
		validate: validator.New(),
		state:    State{Status: StatusAnonymous},
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer called on every state change. The
// callback runs synchronously with the change; it must not call back into
// the manager.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// setState replaces the state and notifies observers.
func (m *Manager) setState(mutate func(*State)) {
	m.mu.Lock()
	mutate(&m.state)
	m.state.IsAuthenticated = m.state.User != nil &&
		m.creds.AccessToken != "" && !expired(m.expiresAt)
	snapshot := m.state
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func expired(at time.Time) bool {
	return !at.IsZero() && time.Now().After(at)
}

// errMessage extracts the server-provided message from a typed API error
// so forms can surface it verbatim.
func errMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Login authenticates and, on success, persists both tokens and hydrates
// the user. On failure the session stays unauthenticated and the error
// text lands in State.Err.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setState(func(s *State) {
		s.Status = StatusAuthenticating
		s.Loading = true
		s.Err = ""
	})

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.log.Debug().Err(err).Str("email", email).Msg("login failed")
		m.setState(func(s *State) {
			s.Status = StatusAnonymous
			s.Loading = false
			s.Err = errMessage(err)
		})
		return err
	}

	creds := auth.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if err := m.store.Save(m.serverIP, creds); err != nil {
		m.setState(func(s *State) {
			s.Status = StatusAnonymous
			s.Loading = false
			s.Err = err.Error()
		})
		return err
	}

	user := resp.User
	user.Normalize()

	m.mu.Lock()
	m.creds = creds
	m.expiresAt, _ = TokenExpiry(creds.AccessToken)
	m.mu.Unlock()

	m.setState(func(s *State) {
		s.Status = StatusAuthenticated
		s.Loading = false
		s.User = &user
		s.Err = ""
	})
	return nil
}

// Register creates an account. It never authenticates: the caller logs in
// separately. Input is validated client-side first so obvious mistakes
// never reach the wire.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (*models.User, error) {
	if err := m.validate.Struct(req); err != nil {
		return nil, &api.Error{Kind: api.KindValidation, Message: err.Error()}
	}

	m.setState(func(s *State) {
		s.Loading = true
		s.Err = ""
	})

	user, err := m.api.Register(ctx, req)
	if err != nil {
		m.setState(func(s *State) {
			s.Loading = false
			s.Err = errMessage(err)
		})
		return nil, err
	}

	m.setState(func(s *State) {
		s.Loading = false
	})
	return user, nil
}

// Hydrate turns persisted credentials into a live session at startup. With
// no stored credentials it leaves the session anonymous and returns nil.
// Invalid or expired credentials are cleared silently, leaving the user on
// the login surface; only unexpected failures (e.g. network) return an
// error.
func (m *Manager) Hydrate(ctx context.Context) error {
	creds, err := m.store.Load(m.serverIP)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return nil
		}
		return err
	}
	if creds.AccessToken == "" {
		return nil
	}

	m.mu.Lock()
	m.creds = creds
	m.expiresAt, _ = TokenExpiry(creds.AccessToken)
	m.mu.Unlock()

	// Optimistic: a token exists, so show loading rather than a login
	// flash while the backend confirms identity.
	m.setState(func(s *State) {
		s.Status = StatusAuthenticating
		s.Loading = true
		s.Err = ""
	})

	// A locally expired access token is exchanged up front; anything the
	// local check misses is caught reactively by the 401 protocol.
	if expired(m.mustExpiry()) && creds.RefreshToken != "" {
		if _, err := m.Refresh(ctx); err != nil {
			// Refresh already cleared the session.
			return nil
		}
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		if api.IsAuthentication(err) {
			m.log.Debug().Msg("stored credentials rejected, clearing session")
			m.Logout()
			return nil
		}
		m.setState(func(s *State) {
			s.Status = StatusAnonymous
			s.Loading = false
			s.Err = errMessage(err)
		})
		return err
	}

	user.Normalize()
	m.setState(func(s *State) {
		s.Status = StatusAuthenticated
		s.Loading = false
		s.User = user
	})
	return nil
}

func (m *Manager) mustExpiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share a single in-flight exchange: the first caller creates the
// latch and performs the request, later callers wait on the latch and read
// its outcome. Failure forcibly logs out.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if ch := m.refreshing; ch != nil {
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.lastRefreshErr != nil {
			return "", m.lastRefreshErr
		}
		return m.creds.AccessToken, nil
	}

	refreshToken := m.creds.RefreshToken
	ch := make(chan struct{})
	m.refreshing = ch
	m.mu.Unlock()

	if refreshToken == "" {
		err := &api.Error{Kind: api.KindAuthentication, Message: "no refresh token"}
		m.finishRefresh(ch, "", err)
		m.Logout()
		return "", err
	}

	m.setState(func(s *State) {
		s.Status = StatusRefreshing
		s.Loading = true
	})

	token, err := m.api.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		m.log.Debug().Err(err).Msg("refresh token exchange failed, logging out")
		m.finishRefresh(ch, "", err)
		m.Logout()
		return "", err
	}

	m.finishRefresh(ch, token, nil)

	if err := m.store.Save(m.serverIP, auth.Credentials{AccessToken: token, RefreshToken: refreshToken}); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refreshed token")
	}

	m.setState(func(s *State) {
		s.Status = StatusAuthenticated
		s.Loading = false
	})
	return token, nil
}

// finishRefresh records the outcome and releases waiters.
func (m *Manager) finishRefresh(ch chan struct{}, token string, err error) {
	m.mu.Lock()
	m.lastRefreshErr = err
	if err == nil {
		m.creds.AccessToken = token
		m.expiresAt, _ = TokenExpiry(token)
	}
	m.refreshing = nil
	m.mu.Unlock()
	close(ch)
}

// Logout clears stored credentials and resets the session. Idempotent and
// synchronous.
func (m *Manager) Logout() {
	if err := m.store.Clear(m.serverIP); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear stored credentials")
	}

	m.mu.Lock()
	m.creds = auth.Credentials{}
	m.expiresAt = time.Time{}
	m.mu.Unlock()

	m.setState(func(s *State) {
		*s = State{Status: StatusAnonymous}
	})
}

// UpdateProfile updates the current user's profile and replaces the
// session user wholesale on success.
func (m *Manager) UpdateProfile(ctx context.Context, update api.ProfileUpdate) error {
	if err := m.validate.Struct(update); err != nil {
		return &api.Error{Kind: api.KindValidation, Message: err.Error()}
	}

	m.setState(func(s *State) {
		s.Loading = true
		s.Err = ""
	})

	user, err := m.api.UpdateProfile(ctx, update)
	if err != nil {
		m.setState(func(s *State) {
			s.Loading = false
			s.Err = errMessage(err)
		})
		return err
	}

	user.Normalize()
	m.setState(func(s *State) {
		s.Loading = false
		s.User = user
	})
	return nil
}

// UpdatePassword changes the current user's password.
func (m *Manager) UpdatePassword(ctx context.Context, update api.PasswordUpdate) error {
	if err := m.validate.Struct(update); err != nil {
		return &api.Error{Kind: api.KindValidation, Message: err.Error()}
	}

	m.setState(func(s *State) {
		s.Loading = true
		s.Err = ""
	})

	if err := m.api.UpdatePassword(ctx, update); err != nil {
		m.setState(func(s *State) {
			s.Loading = false
			s.Err = errMessage(err)
		})
		return err
	}

	m.setState(func(s *State) {
		s.Loading = false
	})
	return nil
}

// AccessToken implements api.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.AccessToken
}

// Invalidate implements api.TokenSource: terminal auth failure clears the
// session.
func (m *Manager) Invalidate() {
	m.Logout()
}
