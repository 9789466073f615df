package nav

import "strings"

// AccessRule pairs a protected screen with the roles allowed to view
// it. An empty Allowed set admits any authenticated role. Rules are
// static configuration, not runtime state.
type AccessRule struct {
	Path    string
	Allowed []string
}

// publicRoutes need no session at all.
var publicRoutes = map[string]struct{}{
	RouteLogin:  {},
	RouteSignup: {},
}

// accessRules is the route table for the protected screens. Prefix
// rules (trailing "/*") cover nested paths.
var accessRules = []AccessRule{
	{Path: RouteDashboardMaker, Allowed: []string{RoleMaker}},
	{Path: RouteDashboardChecker, Allowed: []string{RoleChecker}},
	{Path: RouteDashboardManager, Allowed: []string{RoleManager}},
	{Path: "/inventory/*"},
	{Path: "/invoices"},
	{Path: "/thresholds", Allowed: []string{RoleManager}},
	{Path: "/profile"},
	{Path: "/my-submissions", Allowed: []string{RoleMaker}},
}

// isPublic reports whether the path needs no session.
func isPublic(path string) bool {
	_, ok := publicRoutes[path]
	return ok
}

// RolesFor returns the roles allowed on a protected screen, and whether
// the path is a known protected screen at all. An empty role slice on a
// known screen means any authenticated role.
func RolesFor(path string) ([]string, bool) {
	rule, ok := ruleFor(path)
	return rule.Allowed, ok
}

// ruleFor returns the access rule matching path, or false when the
// path is not a known protected screen.
func ruleFor(path string) (AccessRule, bool) {
	for _, rule := range accessRules {
		if prefix, ok := strings.CutSuffix(rule.Path, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return rule, true
			}
			continue
		}
		if path == rule.Path {
			return rule, true
		}
	}
	return AccessRule{}, false
}
