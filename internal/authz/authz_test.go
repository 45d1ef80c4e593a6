package authz

import (
	"testing"

	"github.com/taskdeck-dev/taskdeck/internal/models"
)

func staffUser() *models.User {
	return &models.User{
		ID:          "user-1",
		Name:        "Test User",
		Email:       "a@b.com",
		Roles:       []string{models.RoleStaff},
		Permissions: []string{models.PermCreateTask, models.PermEditTask},
	}
}

func TestHasRole_EmptyRequirementAlwaysTrue(t *testing.T) {
	if !HasRole(staffUser()) {
		t.Error("expected empty requirement to pass for any authenticated user")
	}
}

func TestHasRole_Intersection(t *testing.T) {
	user := staffUser()

	if !HasRole(user, models.RoleStaff) {
		t.Error("expected staff user to match staff requirement")
	}
	if !HasRole(user, models.RoleAdmin, models.RoleStaff) {
		t.Error("expected staff user to match requirement containing staff")
	}
	if HasRole(user, models.RoleAdmin) {
		t.Error("expected staff user to fail admin requirement")
	}
}

func TestHasRole_CaseInsensitiveRequirement(t *testing.T) {
	// Requirements may come from hand-written command definitions; user
	// roles are already normalized at the session boundary.
	if !HasRole(staffUser(), "Staff") {
		t.Error("expected mixed-case requirement to match normalized role")
	}
}

func TestHasRole_NilUserFailsEverything(t *testing.T) {
	if HasRole(nil) {
		t.Error("expected nil user to fail even the empty requirement")
	}
	if HasRole(nil, models.RoleStaff) {
		t.Error("expected nil user to fail a role requirement")
	}
	if HasPermission(nil, models.PermCreateTask) {
		t.Error("expected nil user to fail a permission check")
	}
}

func TestHasPermission(t *testing.T) {
	user := staffUser()

	if !HasPermission(user, models.PermCreateTask) {
		t.Error("expected user to hold create_task")
	}
	if HasPermission(user, models.PermApproveTask) {
		t.Error("expected user to lack approve_task")
	}
}

func TestCanEditTask_OwnershipRule(t *testing.T) {
	user := staffUser()

	owned := &models.Task{ID: "t1", CreatedBy: user.ID, Status: models.StatusInProgress}
	assigned := &models.Task{ID: "t2", AssignedTo: user.ID, Status: models.StatusInProgress}
	foreign := &models.Task{ID: "t3", CreatedBy: "someone-else", Status: models.StatusInProgress}

	if !CanEditTask(user, owned) {
		t.Error("expected creator to be able to edit")
	}
	if !CanEditTask(user, assigned) {
		t.Error("expected assignee to be able to edit")
	}
	if CanEditTask(user, foreign) {
		t.Error("expected non-owner to be denied edit")
	}

	// Without the permission, ownership is not enough.
	user.Permissions = nil
	if CanEditTask(user, owned) {
		t.Error("expected edit to require edit_task permission")
	}
}

func TestCanApproveTask_RequiresPermissionAndStatus(t *testing.T) {
	user := staffUser()
	pending := &models.Task{ID: "t1", Status: models.StatusPendingApproval}

	if CanApproveTask(user, pending) {
		t.Error("expected approve to be hidden without approve_task permission")
	}

	// Granting the permission makes the action appear with no other change.
	user.Permissions = append(user.Permissions, models.PermApproveTask)
	if !CanApproveTask(user, pending) {
		t.Error("expected approve to appear once permission is granted")
	}

	done := &models.Task{ID: "t2", Status: models.StatusDone}
	if CanApproveTask(user, done) {
		t.Error("expected approve to be limited to pending_approval tasks")
	}
}

func TestCanArchiveTask(t *testing.T) {
	user := staffUser()
	user.Permissions = append(user.Permissions, models.PermAccessArchives)

	done := &models.Task{ID: "t1", Status: models.StatusDone}
	inProgress := &models.Task{ID: "t2", Status: models.StatusInProgress}

	if !CanArchiveTask(user, done) {
		t.Error("expected done task to be archivable")
	}
	if CanArchiveTask(user, inProgress) {
		t.Error("expected in-progress task to not be archivable")
	}
}
