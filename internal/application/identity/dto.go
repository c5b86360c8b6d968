package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
)

// LoginInput carries the credentials and the client the login came from
type LoginInput struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is a fresh token pair plus the profile of the user
type LoginResult struct {
	auth.TokenPair
	User UserInfo `json:"user"`
}

// RefreshTokenResult is the pair issued in exchange for a refresh token
type RefreshTokenResult = auth.TokenPair

// UserInfo is the public view of a user
type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: u.LastLoginAt,
	}
}

type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput names the access token to retire. RemainingTTL bounds how
// long the revocation has to be remembered.
type LogoutInput struct {
	TokenJTI     string
	RemainingTTL time.Duration
}

// CreateUserInput bootstraps an account from the command line
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
}
