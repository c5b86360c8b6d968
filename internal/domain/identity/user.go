package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ledgerbook/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is lowered by tests
var bcryptCost = 12

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]{3,50}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// User is a person who can sign in and post transactions.
// Administrators can additionally read the audit log and run maintenance.
type User struct {
	shared.BaseEntity
	Username       string
	Email          string
	FullName       string
	PasswordHash   string
	IsAdmin        bool
	IsActive       bool
	LastLoginAt    *time.Time
	LastLoginIP    string
	FailedAttempts int
	LockedUntil    *time.Time
}

// NewUser creates an active, non-admin user. Username and email are
// stored trimmed and lower-cased; email may be empty.
func NewUser(username, email, password string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if err := firstError(checkUsername(username), checkEmail(email), checkPassword(password)); err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		BaseEntity:   shared.NewBaseEntity(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}, nil
}

// SetFullName sets the display name
func (u *User) SetFullName(name string) error {
	if len(name) > 200 {
		return invalid("FULL_NAME", "Full name cannot exceed 200 characters")
	}
	u.FullName = strings.TrimSpace(name)
	u.Touch()
	return nil
}

// GrantAdmin gives the user administrator rights
func (u *User) GrantAdmin() {
	u.IsAdmin = true
	u.Touch()
}

func (u *User) SetPassword(password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch()
	return nil
}

func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Deactivate prevents the user from signing in
func (u *User) Deactivate() {
	u.IsActive = false
	u.Touch()
}

// IsLocked reports whether a failed-login lock is in effect
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

func (u *User) CanLogin() bool {
	return u.IsActive && !u.IsLocked()
}

// RecordLoginSuccess stamps the login and clears any lock
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
}

// RecordLoginFailure counts a wrong password and locks the account for
// lockDuration once maxAttempts is reached. It reports whether it locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.Touch()
	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// DisplayName returns the full name if set, otherwise the username
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Actor is the user acting from ip
func (u *User) Actor(ip, userAgent string) shared.Actor {
	return shared.Actor{
		UserID:    u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IP:        ip,
		UserAgent: userAgent,
	}
}

func invalid(field, message string) error {
	return shared.NewValidationError("INVALID_"+field, message)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkUsername(username string) error {
	switch {
	case len(username) < 3:
		return invalid("USERNAME", "Username must be at least 3 characters")
	case len(username) > 50:
		return invalid("USERNAME", "Username cannot exceed 50 characters")
	case !usernamePattern.MatchString(username):
		return invalid("USERNAME", "Username can only contain letters, numbers, underscores, hyphens and dots")
	}
	return nil
}

func checkEmail(email string) error {
	switch {
	case email == "":
		return nil
	case len(email) > 100:
		return invalid("EMAIL", "Email cannot exceed 100 characters")
	case !emailPattern.MatchString(email):
		return invalid("EMAIL", "Invalid email format")
	}
	return nil
}

// checkPassword enforces 8 to 72 bytes (bcrypt ignores the rest) with at
// least one letter and one digit
func checkPassword(password string) error {
	if len(password) < 8 {
		return invalid("PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return invalid("PASSWORD", "Password cannot exceed 72 characters")
	}
	if !strings.ContainsFunc(password, unicode.IsLetter) || !strings.ContainsFunc(password, unicode.IsDigit) {
		return invalid("PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
