// Package guard gates navigation targets on session state. It replaces the
// scattered per-view role checks with a single decision point layered on
// the authz predicates.
package guard

import (
	"fmt"
	"strings"

	"github.com/taskdeck-dev/taskdeck/internal/authz"
	"github.com/taskdeck-dev/taskdeck/internal/session"
)

// Destinations a denied navigation is redirected to. Unauthenticated and
// unauthorized are distinct surfaces: the first needs a login, the second
// a permissions change.
const (
	DestLogin        = "/login"
	DestUnauthorized = "/unauthorized"
)

// Requirement is what a navigation target demands. Empty sets mean
// "any authenticated user".
type Requirement struct {
	Roles       []string
	Permissions []string
}

// Decision is the guard's verdict for one navigation attempt.
type Decision struct {
	// Allowed means the target may render.
	Allowed bool
	// Pending means session state is still loading; render a neutral
	// pending surface and decide nothing yet.
	Pending bool
	// Redirect is DestLogin or DestUnauthorized when not allowed.
	Redirect string
	// Resume is the originally intended destination, preserved so the
	// caller can return to it after a successful login.
	Resume string
}

// Check evaluates a navigation to target against the current session.
func Check(st session.State, target string, req Requirement) Decision {
	if st.Loading {
		return Decision{Pending: true, Resume: target}
	}
	if !st.IsAuthenticated || st.User == nil {
		return Decision{Redirect: DestLogin, Resume: target}
	}
	if !authz.HasRole(st.User, req.Roles...) {
		return Decision{Redirect: DestUnauthorized, Resume: target}
	}
	for _, perm := range req.Permissions {
		if !authz.HasPermission(st.User, perm) {
			return Decision{Redirect: DestUnauthorized, Resume: target}
		}
	}
	return Decision{Allowed: true}
}

// Explain renders a denial as an actionable CLI error.
func Explain(d Decision, req Requirement) error {
	switch d.Redirect {
	case DestLogin:
		return fmt.Errorf("not authenticated. Please run 'taskdeck login' first, then retry %s", d.Resume)
	case DestUnauthorized:
		var needs []string
		if len(req.Roles) > 0 {
			needs = append(needs, "role "+strings.Join(req.Roles, " or "))
		}
		if len(req.Permissions) > 0 {
			needs = append(needs, "permission "+strings.Join(req.Permissions, ", "))
		}
		if len(needs) == 0 {
			return fmt.Errorf("unauthorized: access to %s denied", d.Resume)
		}
		return fmt.Errorf("unauthorized: %s requires %s", d.Resume, strings.Join(needs, " and "))
	}
	return nil
}
