package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCurrencyRepository implements ledger.CurrencyRepository using GORM
type GormCurrencyRepository struct {
	db *gorm.DB
}

// NewGormCurrencyRepository creates a new GormCurrencyRepository
func NewGormCurrencyRepository(db *gorm.DB) *GormCurrencyRepository {
	return &GormCurrencyRepository{db: db}
}

// Create inserts a new currency
func (r *GormCurrencyRepository) Create(ctx context.Context, currency *ledger.Currency) error {
	model := models.CurrencyModelFromDomain(currency)
	return translateError("create currency", r.db.WithContext(ctx).Create(model).Error, nil)
}

// FindByID finds a currency by ID
func (r *GormCurrencyRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Currency, error) {
	var model models.CurrencyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find currency", err, ledger.ErrCurrencyNotFound)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a currency by its ISO-like code
func (r *GormCurrencyRepository) FindByCode(ctx context.Context, code string) (*ledger.Currency, error) {
	var model models.CurrencyModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, translateError("find currency", err, ledger.ErrCurrencyNotFound)
	}
	return model.ToDomain(), nil
}

// FindBase returns the base currency
func (r *GormCurrencyRepository) FindBase(ctx context.Context) (*ledger.Currency, error) {
	var model models.CurrencyModel
	if err := r.db.WithContext(ctx).Where("is_base = ?", true).First(&model).Error; err != nil {
		return nil, translateError("find base currency", err, ledger.ErrCurrencyNotFound)
	}
	return model.ToDomain(), nil
}

// List returns currencies ordered by code
func (r *GormCurrencyRepository) List(ctx context.Context, activeOnly bool) ([]ledger.Currency, error) {
	query := r.db.WithContext(ctx).Model(&models.CurrencyModel{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.CurrencyModel
	if err := query.Order("code ASC").Find(&rows).Error; err != nil {
		return nil, translateError("list currencies", err, nil)
	}
	currencies := make([]ledger.Currency, len(rows))
	for i := range rows {
		currencies[i] = *rows[i].ToDomain()
	}
	return currencies, nil
}

// ClearBase removes the base flag from every currency except keep
func (r *GormCurrencyRepository) ClearBase(ctx context.Context, keep uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.CurrencyModel{}).
		Where("is_base = ? AND id <> ?", true, keep).
		Updates(map[string]any{
			"is_base":    false,
			"updated_at": time.Now().UTC(),
		}).Error
	return translateError("clear base currency", err, nil)
}

// Update writes every column of the currency
func (r *GormCurrencyRepository) Update(ctx context.Context, currency *ledger.Currency) error {
	model := models.CurrencyModelFromDomain(currency)
	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("created_at").Updates(model)
	if result.Error != nil {
		return translateError("update currency", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrCurrencyNotFound
	}
	return nil
}

// Delete removes a currency
func (r *GormCurrencyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CurrencyModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete currency", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrCurrencyNotFound
	}
	return nil
}

var _ ledger.CurrencyRepository = (*GormCurrencyRepository)(nil)
