package handler

import (
	"context"

	"github.com/google/uuid"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/ledger"
)

// MasterDataUseCase is the reference data surface shared by the account,
// category, holder and currency handlers
type MasterDataUseCase interface {
	CreateAccount(ctx context.Context, req ledgerapp.CreateAccountRequest) (*ledgerapp.AccountResponse, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*ledgerapp.AccountResponse, error)
	ListAccounts(ctx context.Context, filter ledger.AccountFilter) ([]ledgerapp.AccountWithBalanceResponse, error)
	SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*ledgerapp.AccountResponse, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, req ledgerapp.CreateCategoryRequest) (*ledgerapp.CategoryResponse, error)
	ListCategories(ctx context.Context, query ledgerapp.CategoryListQuery) ([]ledgerapp.CategoryResponse, error)
	SetCategoryActive(ctx context.Context, id uuid.UUID, active bool) (*ledgerapp.CategoryResponse, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateHolder(ctx context.Context, req ledgerapp.CreateHolderRequest) (*ledgerapp.HolderResponse, error)
	ListHolders(ctx context.Context) ([]ledgerapp.HolderResponse, error)
	DeleteHolder(ctx context.Context, id uuid.UUID) error

	CreateCurrency(ctx context.Context, req ledgerapp.CreateCurrencyRequest) (*ledgerapp.CurrencyResponse, error)
	ListCurrencies(ctx context.Context, activeOnly bool) ([]ledgerapp.CurrencyResponse, error)
	SetBaseCurrency(ctx context.Context, id uuid.UUID) (*ledgerapp.CurrencyResponse, error)
	DeleteCurrency(ctx context.Context, id uuid.UUID) error
}
