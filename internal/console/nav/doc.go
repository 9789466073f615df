// Package nav decides, on every render and every history event, whether
// the current user may see the current screen and where to send them if
// not.
//
// Resolve combines the auth and role guards into one stateless check;
// History models the browser back/forward stack so the guards are
// unit-testable without a browser; BackGuard is the per-screen state
// machine that stops the native back button from silently exposing an
// authenticated screen after logout.
package nav
