package persistence

import (
	"context"
	"errors"

	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// NewLedgerRepositories binds every ledger repository to db, which may be a
// plain connection or an open transaction
func NewLedgerRepositories(db *gorm.DB) ledger.Repositories {
	return ledger.Repositories{
		Accounts:     NewGormAccountRepository(db),
		Categories:   NewGormCategoryRepository(db),
		Holders:      NewGormHolderRepository(db),
		Currencies:   NewGormCurrencyRepository(db),
		Transactions: NewGormTransactionRepository(db),
		Audit:        NewGormAuditRepository(db),
	}
}

// GormUnitOfWork implements ledger.UnitOfWork with a GORM transaction
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn inside one database transaction. The transaction commits only
// when fn returns nil.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewLedgerRepositories(tx))
	})
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.NewStorageError("transaction", err)
}
