package session

import (
	"context"
	"sync"
	"time"
)

// User is the authenticated identity held by the store. Absence (nil)
// means anonymous.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// SignupRequest is the payload for Store.Signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Backend is the REST surface the store drives. Client implements it
// over HTTP; tests substitute a fake.
type Backend interface {
	Login(ctx context.Context, username, password string) (*User, error)
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	Me(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
}

// logoutNotifyTimeout bounds the best-effort backend notify on logout.
const logoutNotifyTimeout = 5 * time.Second

// Store is the single source of truth for "who is logged in".
//
// Subscribers are notified synchronously inside the same locked update
// that changes the session, so two guards evaluating in one update
// cycle never observe different sessions.
type Store struct {
	backend Backend

	mu      sync.Mutex
	current *User
	lastOp  uint64

	subs   map[int]func(*User)
	nextID int
}

// NewStore creates a session store over the given backend.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		subs:    make(map[int]func(*User)),
	}
}

// Current returns the logged-in user, or nil for anonymous.
func (s *Store) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

// Subscribe registers a callback fired synchronously on every session
// change. The returned function detaches the subscriber.
//
// Callbacks run with the store lock held and must not call back into
// the store.
func (s *Store) Subscribe(fn func(*User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Login authenticates against the backend. On success the user is
// stored and returned; on failure the session is left unchanged and a
// typed error surfaces. The store never navigates.
func (s *Store) Login(ctx context.Context, identifier, secret string) (*User, error) {
	op := s.beginOp()

	user, err := s.backend.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}

	if !s.apply(op, user) {
		return nil, ErrSuperseded
	}
	return user, nil
}

// Signup registers a new account with the same contract as Login, plus
// ErrConflict when the identifier already exists.
func (s *Store) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	op := s.beginOp()

	user, err := s.backend.Signup(ctx, req)
	if err != nil {
		return nil, err
	}

	if !s.apply(op, user) {
		return nil, ErrSuperseded
	}
	return user, nil
}

// Logout clears the session synchronously. It is idempotent, and the
// backend notify runs in the background so it can never block the
// local transition.
func (s *Store) Logout() {
	op := s.beginOp()
	s.apply(op, nil)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logoutNotifyTimeout)
		defer cancel()
		//nolint:errcheck // best-effort notify; the local transition already happened
		s.backend.Logout(ctx)
	}()
}

// RefreshFromServer reconstitutes the session from a still-valid
// backend credential, typically on cold load. Any failure resolves to
// anonymous rather than an error: not-logged-in is a terminal state,
// not an exceptional one.
func (s *Store) RefreshFromServer(ctx context.Context) *User {
	op := s.beginOp()

	user, err := s.backend.Me(ctx)
	if err != nil {
		user = nil
	}

	if !s.apply(op, user) {
		return s.Current()
	}
	return user
}

// Expire clears the session through the latest-wins path. Call sites
// invoke it when an authenticated request comes back 401 so the auth
// guard redirects on its next evaluation.
func (s *Store) Expire() {
	op := s.beginOp()
	s.apply(op, nil)
}

// beginOp issues the next operation token. Issuing a token makes every
// older in-flight operation stale.
func (s *Store) beginOp() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOp++
	return s.lastOp
}

// apply installs user as the session if op is still the newest issued
// token, notifying subscribers inside the same locked update. Returns
// false if the operation was superseded and the response discarded.
func (s *Store) apply(op uint64, user *User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if op != s.lastOp {
		return false
	}

	s.current = user
	for _, fn := range s.subs {
		fn(user)
	}
	return true
}
