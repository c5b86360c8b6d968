package identity

import (
	"context"

	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService bootstraps users from the operator CLI
type UserService struct {
	userRepo  identity.UserRepository
	auditRepo ledger.AuditRepository
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, auditRepo ledger.AuditRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, auditRepo: auditRepo, logger: logger}
}

// CreateUser creates an active user. The context actor, if any, is recorded
// in the audit entry; without one the system actor is used.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, identity.ErrUsernameTaken
	}

	user, err := identity.NewUser(input.Username, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.FullName != "" {
		if err := user.SetFullName(input.FullName); err != nil {
			return nil, err
		}
	}
	if input.IsAdmin {
		user.GrantAdmin()
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		actor = shared.SystemActor("ledgerctl")
	}
	info := ToUserInfo(user)
	if s.auditRepo != nil {
		entry, err := ledger.NewAuditEntry(actor, ledger.AuditActionCreate, ledger.TableUsers, user.ID.String()).WithAfter(info)
		if err != nil {
			return nil, err
		}
		if err := s.auditRepo.Append(ctx, entry); err != nil {
			s.logger.Error("Failed to append audit entry", zap.Error(err))
		}
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.Bool("is_admin", user.IsAdmin))
	return &info, nil
}
