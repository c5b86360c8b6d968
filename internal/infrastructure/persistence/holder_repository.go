package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormHolderRepository implements ledger.HolderRepository using GORM
type GormHolderRepository struct {
	db *gorm.DB
}

// NewGormHolderRepository creates a new GormHolderRepository
func NewGormHolderRepository(db *gorm.DB) *GormHolderRepository {
	return &GormHolderRepository{db: db}
}

// Create inserts a new account holder
func (r *GormHolderRepository) Create(ctx context.Context, holder *ledger.AccountHolder) error {
	model := models.AccountHolderModelFromDomain(holder)
	return translateError("create holder", r.db.WithContext(ctx).Create(model).Error, nil)
}

// FindByID finds an account holder by ID
func (r *GormHolderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AccountHolder, error) {
	var model models.AccountHolderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find holder", err, ledger.ErrHolderNotFound)
	}
	return model.ToDomain(), nil
}

// List returns every account holder ordered by name
func (r *GormHolderRepository) List(ctx context.Context) ([]ledger.AccountHolder, error) {
	var rows []models.AccountHolderModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translateError("list holders", err, nil)
	}
	holders := make([]ledger.AccountHolder, len(rows))
	for i := range rows {
		holders[i] = *rows[i].ToDomain()
	}
	return holders, nil
}

// Delete removes an account holder
func (r *GormHolderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AccountHolderModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete holder", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrHolderNotFound
	}
	return nil
}

var _ ledger.HolderRepository = (*GormHolderRepository)(nil)
