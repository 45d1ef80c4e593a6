package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestClient points a client at an httptest server with no token source
// wired, so requests go out exactly as written.
func newTestClient(server *httptest.Server) *Client {
	client := New("unused", zerolog.Nop())
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())
	return client
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "test@example.com" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"user":          map[string]any{"id": "user-1", "email": "test@example.com"},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	resp, err := client.Login(context.Background(), "test@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken != "access-1" || resp.RefreshToken != "refresh-1" {
		t.Errorf("unexpected tokens: %+v", resp)
	}
	if resp.User.ID != "user-1" {
		t.Errorf("unexpected user: %+v", resp.User)
	}
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"unauthorized", 401, `{"error":"token expired"}`, KindAuthentication, "token expired"},
		{"forbidden", 403, `{"error":"insufficient permissions"}`, KindAuthorization, "insufficient permissions"},
		{"not found", 404, `{"error":"task not found"}`, KindNotFound, "task not found"},
		{"validation", 422, `{"error":"title is required"}`, KindValidation, "title is required"},
		{"server", 500, `{"error":"internal error"}`, KindServer, "internal error"},
		{"empty body falls back to status text", 403, ``, KindAuthorization, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server).ListTasks(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected typed error, got %T: %v", err, err)
			}
			if apiErr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", apiErr.Kind, tt.kind)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.message)
			}
		})
	}
}

func TestClient_ValidationFieldErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":  "validation failed",
			"fields": map[string]string{"email": "must be a valid email address"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server).Register(context.Background(), RegisterRequest{
		Name: "x", Email: "bad", Password: "password123", Department: "eng",
	})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if apiErr.Fields["email"] != "must be a valid email address" {
		t.Errorf("expected field-level message, got %+v", apiErr.Fields)
	}
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(server)
	client.SetHTTPClient(&http.Client{Timeout: 20 * time.Millisecond})

	_, err := client.ListTasks(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Errorf("expected network kind for a timeout, got %v", err)
	}
}

func TestClient_UnreachableIsNetworkError(t *testing.T) {
	client := New("unused", zerolog.Nop())
	// A closed port on localhost fails fast with a connection error.
	client.SetBaseURL("http://127.0.0.1:1")

	_, err := client.ListTasks(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Errorf("expected network kind for unreachable server, got %v", err)
	}
}

func TestClient_AuthorizationErrorHelpers(t *testing.T) {
	authn := &Error{Kind: KindAuthentication, Status: 401}
	authz := &Error{Kind: KindAuthorization, Status: 403}

	if !IsAuthentication(authn) || IsAuthentication(authz) {
		t.Error("IsAuthentication must match 401-class errors only")
	}
	if !IsAuthorization(authz) || IsAuthorization(authn) {
		t.Error("IsAuthorization must match 403-class errors only")
	}
}

func TestClient_RefreshUsesRefreshTokenAsBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer refresh-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-2"})
	}))
	defer server.Close()

	token, err := newTestClient(server).RefreshAccessToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if token != "access-2" {
		t.Errorf("token = %q, want %q", token, "access-2")
	}
}
