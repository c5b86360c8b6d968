package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// balanceSelect recomputes balances in a single statement. Both placeholders take the as-of date.
const balanceSelect = `a.id AS account_id,
	a.starting_balance AS starting_balance,
	a.current_balance AS cached_balance,
	COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.dest_account_id = a.id AND t.transaction_date <= ?), 0) AS inflow,
	COALESCE((SELECT SUM(t.amount) FROM transactions t WHERE t.source_account_id = a.id AND t.transaction_date <= ?), 0) AS outflow`

type balanceRow struct {
	AccountID       uuid.UUID
	StartingBalance decimal.Decimal
	CachedBalance   decimal.Decimal
	Inflow          decimal.Decimal
	Outflow         decimal.Decimal
}

func (r balanceRow) toDomain(asOf time.Time) ledger.Balance {
	return ledger.Balance{
		AccountID:       r.AccountID,
		StartingBalance: r.StartingBalance,
		Inflow:          r.Inflow,
		Outflow:         r.Outflow,
		CachedBalance:   r.CachedBalance,
		AsOf:            asOf,
	}
}

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return translateError("create account", r.db.WithContext(ctx).Create(model).Error, nil)
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find account", err, ledger.ErrAccountNotFound)
	}
	return model.ToDomain(), nil
}

// List returns the accounts matching filter ordered by name
func (r *GormAccountRepository) List(ctx context.Context, filter ledger.AccountFilter) ([]ledger.Account, error) {
	var rows []models.AccountModel
	query := applyAccountFilter(r.db.WithContext(ctx).Model(&models.AccountModel{}), filter, "")
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translateError("list accounts", err, nil)
	}
	accounts := make([]ledger.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Update writes every column of the account except the cached balance
func (r *GormAccountRepository) Update(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	result := r.db.WithContext(ctx).Model(model).
		Select("*").
		Omit("current_balance", "created_at").
		Updates(model)
	if result.Error != nil {
		return translateError("update account", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Delete removes an account
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError("delete account", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Exists reports whether an account with id exists
func (r *GormAccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError("check account", err, nil)
	}
	return count > 0, nil
}

// ApplyBalanceDelta adds delta to the cached balance in one UPDATE statement
func (r *GormAccountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_balance": gorm.Expr("current_balance + ?", delta),
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return translateError("apply balance delta", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// SetCachedBalance overwrites the cached balance
func (r *GormAccountRepository) SetCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_balance": balance,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return translateError("set cached balance", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// LockBalances takes FOR UPDATE locks on all account rows in id order.
// Postings block on their balance UPDATE until the caller commits.
func (r *GormAccountRepository) LockBalances(ctx context.Context) error {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.AccountModel{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return translateError("lock account balances", err, nil)
	}
	return nil
}

// ComputeBalance recomputes one account's balance from its transactions
func (r *GormAccountRepository) ComputeBalance(ctx context.Context, id uuid.UUID, asOf time.Time) (*ledger.Balance, error) {
	asOf = ledger.DateOnly(asOf)
	var rows []balanceRow
	err := r.db.WithContext(ctx).
		Table("accounts AS a").
		Select(balanceSelect, asOf, asOf).
		Where("a.id = ?", id).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError("compute balance", err, nil)
	}
	if len(rows) == 0 {
		return nil, ledger.ErrAccountNotFound
	}
	balance := rows[0].toDomain(asOf)
	return &balance, nil
}

// ComputeBalances recomputes the balance of every account matching filter
func (r *GormAccountRepository) ComputeBalances(ctx context.Context, filter ledger.AccountFilter, asOf time.Time) ([]ledger.Balance, error) {
	asOf = ledger.DateOnly(asOf)
	var rows []balanceRow
	query := r.db.WithContext(ctx).
		Table("accounts AS a").
		Select(balanceSelect, asOf, asOf)
	err := applyAccountFilter(query, filter, "a.").
		Order("a.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError("compute balances", err, nil)
	}
	balances := make([]ledger.Balance, len(rows))
	for i, row := range rows {
		balances[i] = row.toDomain(asOf)
	}
	return balances, nil
}

// CountByHolder counts accounts owned by a holder
func (r *GormAccountRepository) CountByHolder(ctx context.Context, holderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("holder_id = ?", holderID).Count(&count).Error
	return count, translateError("count accounts by holder", err, nil)
}

// CountByCurrency counts accounts denominated in a currency
func (r *GormAccountRepository) CountByCurrency(ctx context.Context, currencyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AccountModel{}).Where("currency_id = ?", currencyID).Count(&count).Error
	return count, translateError("count accounts by currency", err, nil)
}

func applyAccountFilter(query *gorm.DB, filter ledger.AccountFilter, prefix string) *gorm.DB {
	if filter.ActiveOnly {
		query = query.Where(prefix+"is_active = ?", true)
	}
	if filter.HolderID != nil {
		query = query.Where(prefix+"holder_id = ?", *filter.HolderID)
	}
	if filter.CurrencyID != nil {
		query = query.Where(prefix+"currency_id = ?", *filter.CurrencyID)
	}
	if filter.Type != nil {
		query = query.Where(prefix+"account_type = ?", string(*filter.Type))
	}
	return query
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
