package auth

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 3-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 3-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// IsValidEmail checks if an email address is parseable.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// IsValidPassword checks if a password meets the minimum length requirement.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleMaker records inventory movements and raises submissions for
	// review. Cannot approve anything, including their own work.
	RoleMaker Role = "maker"

	// RoleChecker reviews and decides pending submissions. The four-eyes
	// rule applies: a checker never decides their own submission.
	RoleChecker Role = "checker"

	// RoleManager has full visibility: thresholds, audit trail, reports,
	// plus everything makers and checkers can do.
	RoleManager Role = "manager"
)

// ValidRoles is the set of roles a user account may hold.
var ValidRoles = []Role{RoleMaker, RoleChecker, RoleManager}

// IsValidRole returns true if the role is a valid role for a user account.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// NormalizeRole canonicalises a raw role string to a Role.
//
// Matching is case-insensitive and tolerates surrounding whitespace.
// The legacy "admin" role maps to manager; accounts created before the
// role model settled still carry it. Unknown values return ok=false.
func NormalizeRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "maker":
		return RoleMaker, true
	case "checker":
		return RoleChecker, true
	case "manager", "admin":
		return RoleManager, true
	default:
		return "", false
	}
}

// User represents an authenticated account.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never serialised
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidRole        = errors.New("invalid role")
	ErrForbidden          = errors.New("insufficient permissions")
)
