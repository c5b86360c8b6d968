package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/identity"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository stores identity.User rows in the users table
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Create(models.UserModelFromDomain(user)).Error
	return translateError("create user", err, nil)
}

// Update rewrites every column but created_at, zero values included, so a
// cleared lock or failure counter is persisted.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	res := r.db.WithContext(ctx).Model(model).Select("*").Omit("created_at").Updates(model)
	if err := translateError("update user", res.Error, nil); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.first(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("id = ?", id) })
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.first(ctx, usernameIs(username))
}

func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).Scopes(usernameIs(username)).Count(&n).Error
	return n > 0, translateError("check username", err, nil)
}

func (r *GormUserRepository) first(ctx context.Context, where func(*gorm.DB) *gorm.DB) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).Scopes(where).First(&m).Error; err != nil {
		return nil, translateError("find user", err, nil)
	}
	return m.ToDomain(), nil
}

func usernameIs(username string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(username) = ?", strings.ToLower(username))
	}
}
