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

const transactionDetailSelect = `t.*,
	c.name AS category_name,
	c.category_type AS category_type,
	sa.name AS source_account_name,
	da.name AS dest_account_name,
	COALESCE(u.full_name, u.username) AS posted_by_name`

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts a transaction. The reference is the only unique column besides
// the random primary key, so any duplicate key is reported as ledger.ErrDuplicateReference.
func (r *GormTransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(txn)
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil && isDuplicateKey(err) {
		return ledger.ErrDuplicateReference.WithCause(err)
	}
	return translateError("create transaction", err, nil)
}

// FindByID finds a transaction by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find transaction", err, ledger.ErrTransactionNotFound)
	}
	return model.ToDomain(), nil
}

// FindDetail returns a transaction with its display names
func (r *GormTransactionRepository) FindDetail(ctx context.Context, id uuid.UUID) (*ledger.TransactionDetail, error) {
	var rows []models.TransactionDetailRow
	if err := r.detailQuery(ctx).Where("t.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, translateError("find transaction", err, nil)
	}
	if len(rows) == 0 {
		return nil, ledger.ErrTransactionNotFound
	}
	detail := rows[0].ToDomain()
	return &detail, nil
}

// ListDetails returns one page of transaction details, newest first, and the total match count.
// A zero page size returns every matching row.
func (r *GormTransactionRepository) ListDetails(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.TransactionDetail, int64, error) {
	var total int64
	countQuery := applyTransactionFilter(r.db.WithContext(ctx).Table("transactions AS t"), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, translateError("count transactions", err, nil)
	}

	query := applyTransactionFilter(r.detailQuery(ctx), filter).
		Order("t.transaction_date DESC, t.created_at DESC")
	if filter.PageSize > 0 {
		page := filter.PageRequest.Normalize()
		query = query.Offset(page.Offset()).Limit(page.PageSize)
	}

	var rows []models.TransactionDetailRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, translateError("list transactions", err, nil)
	}
	details := make([]ledger.TransactionDetail, len(rows))
	for i := range rows {
		details[i] = rows[i].ToDomain()
	}
	return details, total, nil
}

// Delete removes a transaction
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete transaction", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

// SetReconciliation updates the reconciliation state only while the stored flag equals expected
func (r *GormTransactionRepository) SetReconciliation(ctx context.Context, id uuid.UUID, expected bool, reconciled bool, at *time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("id = ? AND is_reconciled = ?", id, expected).
		Updates(map[string]any{
			"is_reconciled": reconciled,
			"reconciled_at": at,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, translateError("toggle reconciliation", result.Error, nil)
	}
	return result.RowsAffected == 1, nil
}

// CountByAccount counts transactions that use the account on either leg
func (r *GormTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("source_account_id = ? OR dest_account_id = ?", accountID, accountID).
		Count(&count).Error
	return count, translateError("count transactions by account", err, nil)
}

// CountByCategory counts transactions booked against a category
func (r *GormTransactionRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, translateError("count transactions by category", err, nil)
}

func (r *GormTransactionRepository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("transactions AS t").
		Select(transactionDetailSelect).
		Joins("JOIN categories c ON c.id = t.category_id").
		Joins("LEFT JOIN accounts sa ON sa.id = t.source_account_id").
		Joins("LEFT JOIN accounts da ON da.id = t.dest_account_id").
		Joins("LEFT JOIN users u ON u.id = t.posted_by")
}

func applyTransactionFilter(query *gorm.DB, filter ledger.TransactionFilter) *gorm.DB {
	if filter.DateFrom != nil {
		query = query.Where("t.transaction_date >= ?", ledger.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("t.transaction_date <= ?", ledger.DateOnly(*filter.DateTo))
	}
	if filter.AccountID != nil {
		query = query.Where("(t.source_account_id = ? OR t.dest_account_id = ?)", *filter.AccountID, *filter.AccountID)
	}
	if filter.CategoryID != nil {
		query = query.Where("t.category_id = ?", *filter.CategoryID)
	}
	if filter.IsReconciled != nil {
		query = query.Where("t.is_reconciled = ?", *filter.IsReconciled)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(t.description) LIKE ? OR LOWER(t.reference) LIKE ?)", pattern, pattern)
	}
	return query
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
