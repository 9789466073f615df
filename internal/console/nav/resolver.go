package nav

import "strings"

// Role identifiers the resolver understands. The console treats roles
// as strings so the resolver stays the only role-to-route table.
const (
	RoleMaker   = "maker"
	RoleChecker = "checker"
	RoleManager = "manager"
)

// Well-known routes.
const (
	RouteLogin            = "/login"
	RouteSignup           = "/signup"
	RouteDashboardMaker   = "/DashboardMaker"
	RouteDashboardChecker = "/DashboardChecker"
	RouteDashboardManager = "/manager-dashboard"
)

// HomeRoute maps a role to its home route. Unrecognized roles resolve
// to the anonymous home, the login screen.
func HomeRoute(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleMaker:
		return RouteDashboardMaker
	case RoleChecker:
		return RouteDashboardChecker
	case RoleManager:
		return RouteDashboardManager
	default:
		return RouteLogin
	}
}

// IsAllowed reports whether role may view a screen restricted to the
// allowed set. Membership is case-insensitive, and an empty allowed
// set means any authenticated role.
func IsAllowed(role string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	role = strings.ToLower(strings.TrimSpace(role))
	for _, a := range allowed {
		if role == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}
