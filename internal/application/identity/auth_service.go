package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig is the lockout policy applied to password failures
type AuthServiceConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{MaxLoginAttempts: 5, LockDuration: 15 * time.Minute}
}

// AuthService issues, rotates and revokes the tokens of ledger users.
// Logins and logouts land in the audit log when an audit repository is set.
type AuthService struct {
	users     identity.UserRepository
	audits    ledger.AuditRepository
	tokens    *auth.JWTService
	blacklist auth.TokenBlacklist
	policy    AuthServiceConfig
	logger    *zap.Logger
}

func NewAuthService(
	users identity.UserRepository,
	audits ledger.AuditRepository,
	tokens *auth.JWTService,
	blacklist auth.TokenBlacklist,
	policy AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		audits:    audits,
		tokens:    tokens,
		blacklist: blacklist,
		policy:    policy,
		logger:    logger,
	}
}

// Login checks the credentials and returns a new token pair. An unknown
// username and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := s.logger.With(zap.String("username", input.Username))

	user, err := s.authenticate(ctx, log, input)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	})
	if err != nil {
		return nil, shared.NewStorageError("issue tokens", err)
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.users.Update(ctx, user); err != nil {
		// the pair is already signed; a stale last-login is acceptable
		log.Error("Failed to record login", zap.Error(err))
	}
	s.audit(ctx, user.Actor(input.IP, input.UserAgent), ledger.AuditActionLogin)

	log.Info("User logged in", zap.Stringer("user_id", user.ID))
	return &LoginResult{TokenPair: *pair, User: ToUserInfo(user)}, nil
}

func (s *AuthService) authenticate(ctx context.Context, log *zap.Logger, input LoginInput) (*identity.User, error) {
	user, err := s.users.FindByUsername(ctx, input.Username)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		log.Warn("Login for unknown user")
		return nil, identity.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}

	if !user.CanLogin() {
		if user.IsLocked() {
			log.Warn("Login for locked account")
			return nil, identity.ErrAccountLocked
		}
		log.Warn("Login for inactive account")
		return nil, identity.ErrAccountInactive
	}

	if user.VerifyPassword(input.Password) {
		return user, nil
	}

	locked := user.RecordLoginFailure(s.policy.MaxLoginAttempts, s.policy.LockDuration)
	if err := s.users.Update(ctx, user); err != nil {
		log.Error("Failed to record login failure", zap.Error(err))
	}
	if locked {
		log.Warn("Account locked", zap.Duration("lock_duration", s.policy.LockDuration))
		return nil, identity.ErrAccountLocked
	}
	log.Warn("Wrong password", zap.Int("failed_attempts", user.FailedAttempts))
	return nil, identity.ErrInvalidCredentials
}

// RefreshToken exchanges a refresh token for a new pair. The presented token
// is revoked so it cannot be replayed.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Debug("Refresh token rejected", zap.Error(err))
		return nil, mapTokenError(err)
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, shared.NewStorageError("check token blacklist", err)
	}
	if revoked {
		return nil, identity.ErrTokenRevoked
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, identity.ErrTokenInvalid
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CanLogin() {
		return nil, identity.ErrAccountInactive
	}

	pair, err := s.tokens.Rotate(claims)
	if err != nil {
		return nil, mapTokenError(err)
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.String("jti", claims.ID), zap.Error(err))
	}
	return pair, nil
}

// Logout revokes the access token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}
	if input.TokenJTI != "" {
		if err := s.blacklist.Revoke(ctx, input.TokenJTI, input.RemainingTTL); err != nil {
			return shared.NewStorageError("revoke token", err)
		}
	}
	s.audit(ctx, actor, ledger.AuditActionLogout)
	s.logger.Info("User logged out", zap.String("username", actor.Username))
	return nil
}

// IsRevoked reports whether jti was retired by logout or rotation
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.blacklist.IsRevoked(ctx, jti)
}

// GetCurrentUser returns the profile of the request actor
func (s *AuthService) GetCurrentUser(ctx context.Context) (*UserInfo, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, identity.ErrUserNotFound
	}
	return user, err
}

func (s *AuthService) audit(ctx context.Context, actor shared.Actor, action ledger.AuditAction) {
	if s.audits == nil {
		return
	}
	entry := ledger.NewAuditEntry(actor, action, ledger.TableUsers, actor.UserID.String())
	if err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append audit entry", zap.String("action", string(action)), zap.Error(err))
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return identity.ErrTokenExpired
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return identity.ErrTokenMaxRefresh
	default:
		return identity.ErrTokenInvalid
	}
}
