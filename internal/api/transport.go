package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// TokenSource supplies the transport with credentials. The session manager
// implements it; Refresh must be safe to call from concurrent requests and
// must collapse them into a single in-flight refresh.
type TokenSource interface {
	// AccessToken returns the current access token, or "" when anonymous.
	AccessToken() string

	// Refresh exchanges the refresh token for a new access token and
	// returns it. Concurrent callers share one refresh operation.
	Refresh(ctx context.Context) (string, error)

	// Invalidate clears the session after a terminal auth failure.
	Invalidate()
}

// AuthTransport decorates an http.RoundTripper with bearer credentials and
// the refresh-then-retry protocol: a request that comes back 401 pauses,
// waits for one shared refresh, and is replayed exactly once with the new
// token. A second 401, or a failed refresh, invalidates the session and
// propagates an authentication error.
type AuthTransport struct {
	Base   http.RoundTripper
	Source TokenSource
	Log    zerolog.Logger
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone per RoundTripper contract: the original request is not mutated,
	// which also keeps GetBody usable for the replay.
	attempt := req.Clone(req.Context())
	attempt.Header.Set("X-Request-ID", ulid.Make().String())
	if token := t.Source.AccessToken(); token != "" {
		attempt.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := t.base().RoundTrip(attempt)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Drain so the underlying connection can be reused before the retry.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	t.Log.Debug().Str("url", req.URL.Path).Msg("received 401, refreshing access token")

	token, err := t.Source.Refresh(req.Context())
	if err != nil {
		t.Log.Debug().Err(err).Msg("token refresh failed")
		return nil, &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized,
			Message: fmt.Sprintf("session expired: %v", err)}
	}

	retry := req.Clone(req.Context())
	retry.Header.Set("X-Request-ID", ulid.Make().String())
	retry.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		retry.Body = body
	}

	resp, err = t.base().RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// The refreshed token was rejected too; nothing left to try.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		t.Source.Invalidate()
		return nil, &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized,
			Message: "session expired: credentials rejected after refresh"}
	}

	return resp, nil
}
