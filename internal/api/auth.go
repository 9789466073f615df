package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/emart-ops/emart-core/internal/audit"
	"github.com/emart-ops/emart-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// loginRequest is the request body for POST /api/auth/token/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// signupRequest is the request body for POST /api/auth/token/signup.
type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// sessionResponse is the response body for login and me.
type sessionResponse struct {
	Token string     `json:"token,omitempty"`
	User  *auth.User `json:"user"`
}

// handleLogin authenticates a user and returns a JWT.
//
// The token is returned in the body for API clients and also set as an
// httpOnly cookie so browser sessions survive a reload without script
// access to the token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeValidationError(w, "username and password are required")
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.recordAudit(r, nil, audit.ActionLoginFailed, "user", "", req.Username)
			writeUnauthorized(w, "invalid credentials")
			return
		}
		writeInternalError(w, "login failed")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		s.recordAudit(r, nil, audit.ActionLoginFailed, "user", user.ID, req.Username)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.Active {
		writeForbidden(w, "account is inactive")
		return
	}

	token, err := auth.GenerateToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	if err := s.users.TouchLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("recording last login failed", "user_id", user.ID, "error", err)
	}

	s.setSessionCookie(w, token)
	s.recordAudit(r, user, audit.ActionLogin, "user", user.ID, "")

	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// handleSignup registers a new account.
//
// The role defaults to maker when omitted; unknown role strings are a
// validation error rather than a silent downgrade.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidUsername(req.Username) {
		writeValidationError(w, "username must be 3-64 characters: letters, digits, dots, hyphens, underscores")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeValidationError(w, "a valid email address is required")
		return
	}
	if !auth.IsValidPassword(req.Password) {
		writeValidationError(w, "password must be at least 8 characters")
		return
	}

	role := auth.RoleMaker
	if req.Role != "" {
		var ok bool
		role, ok = auth.NormalizeRole(req.Role)
		if !ok {
			writeValidationError(w, "role must be maker, checker or manager")
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "failed to hash password")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already exists")
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already exists")
		default:
			writeInternalError(w, "failed to create account")
		}
		return
	}

	// A fresh account is logged in immediately, same contract as login.
	token, err := auth.GenerateToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	s.setSessionCookie(w, token)
	s.recordAudit(r, user, audit.ActionSignup, "user", user.ID, string(role))

	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

// handleMe returns the account behind the current token.
//
// The console calls this on boot to rebuild its session from the cookie.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		// Token outlived the account.
		writeUnauthorized(w, "account no longer exists")
		return
	}
	if !user.Active {
		writeUnauthorized(w, "account is inactive")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: user})
}

// handleLogout clears the session cookie. The JWT itself stays valid
// until expiry; short TTLs bound the exposure.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFrom(r.Context()); claims != nil {
		s.recordAudit(r, &auth.User{ID: claims.Subject, Username: claims.Username}, audit.ActionLogout, "user", claims.Subject, "")
	}

	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie sets the httpOnly JWT cookie for browser clients.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	ttl := s.secCfg.JWT.CookieTTL
	if ttl <= 0 {
		ttl = 24 * 60 // 24 hours
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   ttl * 60,
		HttpOnly: true,
		Secure:   s.cfg.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the JWT cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// recordAudit appends an audit entry, logging rather than failing the
// request if the write does not land.
func (s *Server) recordAudit(r *http.Request, user *auth.User, action, entityType, entityID, detail string) {
	if s.audit == nil {
		return
	}

	entry := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		RemoteAddr: r.RemoteAddr,
	}
	if user != nil {
		entry.UserID = user.ID
		entry.Username = user.Username
	}

	if err := s.audit.Record(r.Context(), entry); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use, expire after ticketTTL, and carry the
// identity of the user who requested them.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	userID    string
	username  string
	role      auth.Role
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		userID:    claims.Subject,
		username:  claims.Username,
		role:      claims.Role,
		expiresAt: time.Now().Add(ticketTTL),
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validate checks if a ticket is valid and consumes it (single-use).
func (ts *ticketStore) validate(ticket string) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(ts.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// clean removes expired tickets from the store.
func (ts *ticketStore) clean() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// cleanLoop runs clean periodically until the context is cancelled.
func (ts *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts.clean()
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
