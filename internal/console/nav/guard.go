package nav

import "github.com/emart-ops/emart-core/internal/console/session"

// Resolution is the outcome of resolving a requested path against the
// current session.
type Resolution struct {
	// Path is the screen that will actually be shown.
	Path string
	// Redirected is true when Path differs from the requested path.
	Redirected bool
	// ReturnTo carries the originally requested path when an anonymous
	// user was sent to the login screen, so it can be offered as a
	// return target after login.
	ReturnTo string
}

// Resolve applies the auth guard and the role guard to a requested
// path, stateless and purely reactive: callers re-run it on every
// session change.
//
// Anonymous users resolve to the login screen. A user whose role is
// not in the screen's allowed set resolves to their own home route,
// never a forbidden page. Unmatched paths resolve to the login screen.
func Resolve(path string, user *session.User) Resolution {
	if isPublic(path) {
		return Resolution{Path: path}
	}

	rule, known := ruleFor(path)
	if !known {
		return Resolution{Path: RouteLogin, Redirected: path != RouteLogin}
	}

	if user == nil {
		return Resolution{Path: RouteLogin, Redirected: true, ReturnTo: path}
	}

	if !IsAllowed(user.Role, rule.Allowed) {
		return Resolution{Path: HomeRoute(user.Role), Redirected: true}
	}

	return Resolution{Path: path}
}
