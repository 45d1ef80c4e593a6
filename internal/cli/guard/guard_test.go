package guard

import (
	"strings"
	"testing"

	"github.com/taskdeck-dev/taskdeck/internal/models"
	"github.com/taskdeck-dev/taskdeck/internal/session"
)

func authedState(user *models.User) session.State {
	return session.State{
		Status:          session.StatusAuthenticated,
		User:            user,
		IsAuthenticated: true,
	}
}

func TestCheck_AnonymousRedirectsToLogin(t *testing.T) {
	d := Check(session.State{Status: session.StatusAnonymous}, "/admin/users", Requirement{})

	if d.Allowed {
		t.Fatal("expected anonymous navigation to be denied")
	}
	if d.Redirect != DestLogin {
		t.Errorf("redirect = %q, want %q", d.Redirect, DestLogin)
	}
	if d.Resume != "/admin/users" {
		t.Errorf("resume = %q, want intended destination preserved", d.Resume)
	}
}

func TestCheck_AuthenticatedWithoutRoleRedirectsToUnauthorized(t *testing.T) {
	user := &models.User{ID: "u1", Roles: []string{models.RoleStaff}}
	d := Check(authedState(user), "/admin/users", Requirement{Roles: []string{models.RoleAdmin}})

	if d.Allowed {
		t.Fatal("expected staff user to be denied an admin target")
	}
	// An authenticated user with the wrong role must not be bounced to the
	// login surface; a second login would not help.
	if d.Redirect != DestUnauthorized {
		t.Errorf("redirect = %q, want %q", d.Redirect, DestUnauthorized)
	}
}

func TestCheck_PermissionRequirement(t *testing.T) {
	user := &models.User{
		ID:          "u1",
		Roles:       []string{models.RoleStaff},
		Permissions: []string{models.PermCreateTask},
	}
	req := Requirement{Permissions: []string{models.PermManageUsers}}

	if d := Check(authedState(user), "/admin/users", req); d.Redirect != DestUnauthorized {
		t.Errorf("redirect = %q, want %q", d.Redirect, DestUnauthorized)
	}

	user.Permissions = append(user.Permissions, models.PermManageUsers)
	if d := Check(authedState(user), "/admin/users", req); !d.Allowed {
		t.Error("expected navigation to be allowed once permission is held")
	}
}

func TestCheck_LoadingIsPendingNotDenied(t *testing.T) {
	d := Check(session.State{Loading: true}, "/tasks", Requirement{})

	if !d.Pending {
		t.Fatal("expected a loading session to yield a pending decision")
	}
	if d.Redirect != "" {
		t.Errorf("pending decision must not redirect, got %q", d.Redirect)
	}
	if d.Resume != "/tasks" {
		t.Errorf("resume = %q, want intended destination preserved", d.Resume)
	}
}

func TestCheck_EmptyRequirementAllowsAnyAuthenticated(t *testing.T) {
	user := &models.User{ID: "u1", Roles: []string{models.RoleStaff}}
	if d := Check(authedState(user), "/profile", Requirement{}); !d.Allowed {
		t.Error("expected empty requirement to allow any authenticated user")
	}
}

func TestExplain(t *testing.T) {
	loginErr := Explain(Decision{Redirect: DestLogin, Resume: "/tasks"}, Requirement{})
	if loginErr == nil || !strings.Contains(loginErr.Error(), "taskdeck login") {
		t.Errorf("expected login hint, got %v", loginErr)
	}

	req := Requirement{Permissions: []string{models.PermManageUsers}}
	denyErr := Explain(Decision{Redirect: DestUnauthorized, Resume: "/admin/users"}, req)
	if denyErr == nil || !strings.Contains(denyErr.Error(), models.PermManageUsers) {
		t.Errorf("expected missing permission named, got %v", denyErr)
	}

	if err := Explain(Decision{Allowed: true}, Requirement{}); err != nil {
		t.Errorf("expected nil error for allowed decision, got %v", err)
	}
}
