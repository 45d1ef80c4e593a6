package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// fakeTokenSource is a programmable TokenSource with call counters. Refresh
// mimics the session manager's single-flight behavior.
type fakeTokenSource struct {
	mu          sync.Mutex
	token       string
	nextToken   string
	refreshErr  error
	refreshes   int32
	invalidated int32
}

func (s *fakeTokenSource) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeTokenSource) Refresh(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.refreshes, 1)
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.mu.Lock()
	s.token = s.nextToken
	s.mu.Unlock()
	return s.nextToken, nil
}

func (s *fakeTokenSource) Invalidate() {
	atomic.AddInt32(&s.invalidated, 1)
}

func authedClient(server *httptest.Server, src TokenSource) *http.Client {
	return &http.Client{
		Transport: &AuthTransport{Base: http.DefaultTransport, Source: src, Log: zerolog.Nop()},
	}
}

func TestAuthTransport_AttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	src := &fakeTokenSource{token: "access-1"}
	resp, err := authedClient(server, src).Get(server.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer access-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer access-1")
	}
	if gotRequestID == "" {
		t.Error("expected an X-Request-ID header")
	}
}

func TestAuthTransport_AnonymousSendsNoBearer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	src := &fakeTokenSource{}
	resp, err := authedClient(server, src).Get(server.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "" {
		t.Errorf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestAuthTransport_RefreshesAndRetriesOn401(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	src := &fakeTokenSource{token: "access-1", nextToken: "access-2"}
	resp, err := authedClient(server, src).Get(server.URL + "/api/tasks")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after refresh and retry", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&src.refreshes); n != 1 {
		t.Errorf("refreshes = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&requests); n != 2 {
		t.Errorf("server saw %d requests, want original plus one retry", n)
	}
}

func TestAuthTransport_RetryRewindsBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	src := &fakeTokenSource{token: "access-1", nextToken: "access-2"}
	resp, err := authedClient(server, src).Post(server.URL+"/api/tasks", "application/json",
		strings.NewReader(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if len(bodies) != 2 || bodies[0] != bodies[1] {
		t.Errorf("expected identical bodies on both attempts, got %q", bodies)
	}
}

func TestAuthTransport_SecondUnauthorizedInvalidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	src := &fakeTokenSource{token: "access-1", nextToken: "access-2"}
	_, err := authedClient(server, src).Get(server.URL + "/api/tasks")
	if err == nil {
		t.Fatal("expected error when the refreshed token is rejected")
	}
	if apiErr := unwrapAPIError(err); apiErr == nil || apiErr.Kind != KindAuthentication {
		t.Errorf("expected authentication error, got %v", err)
	}
	if n := atomic.LoadInt32(&src.invalidated); n != 1 {
		t.Errorf("invalidations = %d, want 1", n)
	}
	if n := atomic.LoadInt32(&src.refreshes); n != 1 {
		t.Errorf("refreshes = %d, want exactly 1, never a loop", n)
	}
}

func TestAuthTransport_RefreshFailurePropagatesAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	src := &fakeTokenSource{
		token:      "access-1",
		refreshErr: &Error{Kind: KindAuthentication, Status: 401, Message: "refresh token revoked"},
	}
	_, err := authedClient(server, src).Get(server.URL + "/api/tasks")
	if err == nil {
		t.Fatal("expected error when refresh fails")
	}
	if apiErr := unwrapAPIError(err); apiErr == nil || apiErr.Kind != KindAuthentication {
		t.Errorf("expected authentication error, got %v", err)
	}
}
