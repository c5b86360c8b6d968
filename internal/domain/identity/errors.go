package identity

import "github.com/ledgerbook/backend/internal/domain/shared"

var (
	ErrInvalidCredentials = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid username or password"}
	ErrAccountLocked      = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "ACCOUNT_LOCKED", Message: "Account is locked. Please try again later"}
	ErrAccountInactive    = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "ACCOUNT_INACTIVE", Message: "Account is not active"}
	ErrTokenExpired       = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "TOKEN_EXPIRED", Message: "Token has expired"}
	ErrTokenInvalid       = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "TOKEN_INVALID", Message: "Invalid token"}
	ErrTokenRevoked       = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "TOKEN_REVOKED", Message: "Token has been revoked"}
	ErrTokenMaxRefresh    = &shared.DomainError{Kind: shared.KindUnauthorized, Code: "TOKEN_MAX_REFRESH", Message: "Maximum token refresh count exceeded. Please log in again"}
	ErrUserNotFound       = shared.NewNotFoundError("USER_NOT_FOUND", "User not found")
	ErrUsernameTaken      = shared.NewConflictError("USERNAME_TAKEN", "Username is already taken")
)
