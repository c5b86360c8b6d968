package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCategoryRepository implements ledger.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	return translateError("create category", r.db.WithContext(ctx).Create(model).Error, nil)
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find category", err, ledger.ErrCategoryNotFound)
	}
	return model.ToDomain(), nil
}

// Exists reports whether a category with id exists
func (r *GormCategoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CategoryModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError("check category", err, nil)
	}
	return count > 0, nil
}

// List returns categories ordered by sort order, then name
func (r *GormCategoryRepository) List(ctx context.Context, filter ledger.CategoryFilter) ([]ledger.Category, error) {
	query := r.db.WithContext(ctx).Model(&models.CategoryModel{})
	if filter.Type != nil {
		query = query.Where("category_type = ?", string(*filter.Type))
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.CategoryModel
	if err := query.Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, translateError("list categories", err, nil)
	}
	categories := make([]ledger.Category, len(rows))
	for i := range rows {
		categories[i] = *rows[i].ToDomain()
	}
	return categories, nil
}

// Update writes every column of the category
func (r *GormCategoryRepository) Update(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	result := r.db.WithContext(ctx).Model(model).Select("*").Omit("created_at").Updates(model)
	if result.Error != nil {
		return translateError("update category", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CategoryModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete category", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrCategoryNotFound
	}
	return nil
}

// CountChildren counts the direct subcategories of a category
func (r *GormCategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CategoryModel{}).Where("parent_id = ?", id).Count(&count).Error
	return count, translateError("count subcategories", err, nil)
}

var _ ledger.CategoryRepository = (*GormCategoryRepository)(nil)
