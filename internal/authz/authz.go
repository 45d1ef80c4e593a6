// Package authz is the single source of truth for client-side permission
// checks. Every command and view consults these predicates instead of
// reimplementing role logic, so gating cannot drift between surfaces.
package authz

import (
	"strings"

	"github.com/taskdeck-dev/taskdeck/internal/models"
)

// HasRole reports whether the user holds at least one of the required
// roles. An empty requirement means the check passes for any authenticated
// user. A nil user always fails.
func HasRole(user *models.User, required ...string) bool {
	if user == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		want = strings.ToLower(want)
		for _, have := range user.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasPermission reports whether the user holds the given permission.
func HasPermission(user *models.User, permission string) bool {
	if user == nil {
		return false
	}
	permission = strings.ToLower(permission)
	for _, have := range user.Permissions {
		if have == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the user holds at least one of the
// given permissions.
func HasAnyPermission(user *models.User, permissions ...string) bool {
	for _, p := range permissions {
		if HasPermission(user, p) {
			return true
		}
	}
	return false
}

// CanEditTask allows editing when the user has the edit permission and is
// either the creator or the assignee of the task.
func CanEditTask(user *models.User, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	if !HasPermission(user, models.PermEditTask) {
		return false
	}
	return task.CreatedBy == user.ID || task.AssignedTo == user.ID
}

// CanApproveTask allows approval of tasks awaiting it.
func CanApproveTask(user *models.User, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	return HasPermission(user, models.PermApproveTask) &&
		task.Status == models.StatusPendingApproval
}

// CanArchiveTask allows archival of completed tasks.
func CanArchiveTask(user *models.User, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	return HasPermission(user, models.PermAccessArchives) &&
		task.Status == models.StatusDone
}

// CanManageUsers gates the user administration commands.
func CanManageUsers(user *models.User) bool {
	return HasPermission(user, models.PermManageUsers)
}

// CanGenerateReports gates the report commands.
func CanGenerateReports(user *models.User) bool {
	return HasPermission(user, models.PermGenerateReports)
}
