package models

import (
	"strings"
	"time"
)

// Role names as issued by the backend. Stored lowercase everywhere; any
// other casing coming off the wire is normalized at the session boundary.
const (
	RoleSuperAdmin     = "super_admin"
	RoleAdmin          = "admin"
	RoleDepartmentHead = "department_head"
	RoleFaculty        = "faculty"
	RoleStaff          = "staff"
)

// Permission names as issued by the backend.
const (
	PermManageUsers       = "manage_users"
	PermManageRoles       = "manage_roles"
	PermManageDepartments = "manage_departments"
	PermCreateTask        = "create_task"
	PermEditTask          = "edit_task"
	PermDeleteTask        = "delete_task"
	PermViewAllTasks      = "view_all_tasks"
	PermApproveTask       = "approve_task"
	PermGenerateReports   = "generate_reports"
	PermAccessArchives    = "access_archives"
	PermViewDeptTasks     = "view_department_tasks"
	PermViewAssignedTasks = "view_assigned_tasks"
)

// Task lifecycle statuses.
const (
	StatusNotStarted      = "not_started"
	StatusInProgress      = "in_progress"
	StatusPendingApproval = "pending_approval"
	StatusDone            = "done"
	StatusArchived        = "archived"
)

// RolePermissions maps each role to the permissions the backend grants it.
// The authoritative set always comes from the user payload; this table is
// used by the test backend and by documentation output.
var RolePermissions = map[string][]string{
	RoleSuperAdmin: {
		PermManageUsers, PermManageRoles, PermManageDepartments,
		PermCreateTask, PermEditTask, PermDeleteTask, PermViewAllTasks,
		PermApproveTask, PermGenerateReports, PermAccessArchives,
		PermViewDeptTasks, PermViewAssignedTasks,
	},
	RoleAdmin: {
		PermManageUsers, PermManageRoles,
		PermCreateTask, PermEditTask, PermViewAllTasks,
		PermApproveTask, PermGenerateReports, PermAccessArchives,
		PermViewDeptTasks, PermViewAssignedTasks,
	},
	RoleDepartmentHead: {
		PermCreateTask, PermEditTask, PermViewDeptTasks,
		PermApproveTask, PermGenerateReports, PermViewAssignedTasks,
	},
	RoleFaculty: {
		PermCreateTask, PermEditTask, PermViewDeptTasks,
		PermApproveTask, PermGenerateReports, PermViewAssignedTasks,
	},
	RoleStaff: {
		PermCreateTask, PermEditTask, PermViewAssignedTasks,
		PermGenerateReports,
	},
}

// User is the identity object returned by the backend.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Department  string    `json:"department"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Normalize lowercases role and permission strings in place. The backend
// has historically been inconsistent about casing ("Admin" vs "admin"), so
// every user object is normalized once when it enters the session.
func (u *User) Normalize() {
	for i, r := range u.Roles {
		u.Roles[i] = strings.ToLower(strings.TrimSpace(r))
	}
	for i, p := range u.Permissions {
		u.Permissions[i] = strings.ToLower(strings.TrimSpace(p))
	}
}

// Task represents a task as returned by the backend.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Department  string   `json:"department"`
	CreatedBy   string   `json:"created_by"`
	AssignedTo  string   `json:"assigned_to"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// Department represents a department.
type Department struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Report is a generated report record.
type Report struct {
	ID         string `json:"id"`
	Template   string `json:"template"`
	Department string `json:"department,omitempty"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  string `json:"created_at"`
}

// ReportTemplate describes an available report template.
type ReportTemplate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
