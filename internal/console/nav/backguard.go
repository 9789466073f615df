package nav

import (
	"sync"

	"github.com/emart-ops/emart-core/internal/console/session"
)

// guardState is the BackGuard's two-state machine.
type guardState int

const (
	stateIdle guardState = iota
	stateConfirmPending
)

// BackGuard intercepts back/forward navigation on one guarded screen.
//
// While mounted it owns the top history entry: a popstate re-pushes the
// screen's own URL so the visible URL never moves, and opens a
// confirmation prompt instead. Confirm logs out and replaces to the
// login screen; Cancel replaces back to the stay path. Role drift and
// logout redirect immediately without a prompt.
//
// Each mounted screen runs its own guard with its own listeners; there
// is no shared global listener.
type BackGuard struct {
	store   *session.Store
	history *History
	path    string
	allowed []string

	mu        sync.Mutex
	state     guardState
	stayPath  string
	mounted   bool
	closed    bool
	detachPop func()
	unsub     func()
}

// NewBackGuard creates a guard for the screen at path, restricted to
// the allowed role set (empty = any authenticated role).
func NewBackGuard(store *session.Store, history *History, path string, allowed []string) *BackGuard {
	return &BackGuard{
		store:    store,
		history:  history,
		path:     path,
		allowed:  allowed,
		stayPath: path,
	}
}

// Mount activates the guard. With no session it redirects to the login
// screen; with a mismatched role it redirects to the user's own home.
// Otherwise it pushes the screen's URL, taking ownership of the top of
// the stack, and attaches its popstate and session listeners.
func (g *BackGuard) Mount() {
	user := g.store.Current()

	if user == nil {
		g.history.Replace(RouteLogin)
		return
	}
	if !IsAllowed(user.Role, g.allowed) {
		g.history.Replace(HomeRoute(user.Role))
		return
	}

	g.mu.Lock()
	g.mounted = true
	g.mu.Unlock()

	g.history.Push(g.path)
	detach := g.history.Listen(g.onPopState)
	unsub := g.store.Subscribe(g.onSessionChange)

	g.mu.Lock()
	g.detachPop, g.unsub = detach, unsub
	g.mu.Unlock()
}

// ConfirmPromptOpen reports whether the leave-confirmation prompt is
// showing.
func (g *BackGuard) ConfirmPromptOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateConfirmPending
}

// Confirm answers the prompt with "Log Out": the session clears and
// the current entry is replaced with the login screen.
func (g *BackGuard) Confirm() {
	g.mu.Lock()
	if g.state != stateConfirmPending {
		g.mu.Unlock()
		return
	}
	g.state = stateIdle
	g.mu.Unlock()

	g.store.Logout()
	g.history.Replace(RouteLogin)
}

// Cancel answers the prompt with "Stay": the current entry is replaced
// with the stay path, or the user's home if their role has drifted off
// this screen.
func (g *BackGuard) Cancel() {
	g.mu.Lock()
	if g.state != stateConfirmPending {
		g.mu.Unlock()
		return
	}
	g.state = stateIdle
	target := g.stayPath
	g.mu.Unlock()

	if user := g.store.Current(); user != nil && !IsAllowed(user.Role, g.allowed) {
		target = HomeRoute(user.Role)
	}
	g.history.Replace(target)
}

// Close detaches the guard's listeners. A closed guard never touches
// history again; failing to close leaks a handler that manipulates
// history for a screen no longer displayed.
func (g *BackGuard) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.state = stateIdle
	detach, unsub := g.detachPop, g.unsub
	g.mu.Unlock()

	if detach != nil {
		detach()
	}
	if unsub != nil {
		unsub()
	}
}

// onPopState handles a back/forward event: re-push the same URL so the
// stack pointer does not actually move, then open the prompt.
func (g *BackGuard) onPopState() {
	// A guard whose session is gone or whose role has drifted has no
	// claim on the stack any more; the session listener already
	// redirected.
	if user := g.store.Current(); user == nil || !IsAllowed(user.Role, g.allowed) {
		return
	}

	g.mu.Lock()
	if g.closed || !g.mounted {
		g.mu.Unlock()
		return
	}
	g.state = stateConfirmPending
	g.mu.Unlock()

	g.history.Push(g.path)
}

// onSessionChange redirects without a prompt when the session becomes
// anonymous or the role no longer matches the screen. The prompt is
// only for the back-navigation case.
//
// Runs inside the store's locked update; it must not call back into
// the store.
func (g *BackGuard) onSessionChange(user *session.User) {
	g.mu.Lock()
	if g.closed || !g.mounted {
		g.mu.Unlock()
		return
	}

	switch {
	case user == nil:
		g.state = stateIdle
		g.mu.Unlock()
		g.history.Replace(RouteLogin)
	case !IsAllowed(user.Role, g.allowed):
		g.state = stateIdle
		g.mu.Unlock()
		g.history.Replace(HomeRoute(user.Role))
	default:
		g.mu.Unlock()
	}
}
