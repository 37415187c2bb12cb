package session

import "github.com/stemsi/perizinan-backend/internal/model"

// Decision is the outcome of the authorization gate for a protected view.
type Decision int

const (
	ShowLoadingPlaceholder Decision = iota
	RedirectToLogin
	RedirectToDefaultDashboard
	RenderProtectedContent
)

func (d Decision) String() string {
	switch d {
	case ShowLoadingPlaceholder:
		return "loading"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToDefaultDashboard:
		return "redirect_dashboard"
	case RenderProtectedContent:
		return "render"
	}
	return "unknown"
}

// Paths of the login view and the role-neutral dashboard.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Verdict is a gate decision. From carries the requested location when the
// caller is sent to the login view.
type Verdict struct {
	Decision Decision
	From     string
}

// Decide evaluates the gate. Rules apply in order: loading, no session,
// role outside required, render.
func Decide(state State, requested string, required ...model.Role) Verdict {
	switch {
	case state.Loading:
		return Verdict{Decision: ShowLoadingPlaceholder}
	case state.Session == nil:
		return Verdict{Decision: RedirectToLogin, From: requested}
	case !state.Session.Role.In(required...):
		return Verdict{Decision: RedirectToDefaultDashboard}
	}
	return Verdict{Decision: RenderProtectedContent}
}

var destinations = map[model.Role]string{
	model.RoleAdmin:     "/admin",
	model.RoleSubmitter: "/teacher",
	model.RoleApprover:  "/deputy",
}

// DefaultDestination returns the dashboard of role. ok is false for an
// unrecognized role, which must end on an unauthorized display instead of
// another redirect.
func DefaultDestination(role model.Role) (path string, ok bool) {
	path, ok = destinations[role]
	return path, ok
}
