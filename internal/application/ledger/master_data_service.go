package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MasterDataService manages accounts, categories, account holders and currencies.
// Deletions are refused while other records still reference the target.
type MasterDataService struct {
	uow    ledger.UnitOfWork
	repos  ledger.Repositories
	logger *zap.Logger
}

// NewMasterDataService creates a new MasterDataService
func NewMasterDataService(uow ledger.UnitOfWork, repos ledger.Repositories, logger *zap.Logger) *MasterDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterDataService{uow: uow, repos: repos, logger: logger}
}

// audit appends an entry with optional snapshots inside the current unit of work
func audit(ctx context.Context, repos ledger.Repositories, actor shared.Actor, action ledger.AuditAction, table, id string, before, after any) error {
	entry := ledger.NewAuditEntry(actor, action, table, id)
	if before != nil {
		if _, err := entry.WithBefore(before); err != nil {
			return err
		}
	}
	if after != nil {
		if _, err := entry.WithAfter(after); err != nil {
			return err
		}
	}
	return repos.Audit.Append(ctx, entry)
}

// =============================================================================
// Accounts
// =============================================================================

// CreateAccount creates an account for an existing holder and currency
func (s *MasterDataService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	var openedOn time.Time
	if req.OpenedOn != "" {
		if openedOn, err = ledger.ParseDate(req.OpenedOn); err != nil {
			return nil, err
		}
	}
	account, err := ledger.NewAccount(req.Name, ledger.AccountType(req.Type), req.HolderID, req.CurrencyID, req.StartingBalance, openedOn)
	if err != nil {
		return nil, err
	}
	account.WithNumber(req.Number).WithBankName(req.BankName).WithDetails(req.Details)
	if req.CreditLimit != nil {
		account.WithCreditLimit(*req.CreditLimit)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		if _, err := repos.Holders.FindByID(ctx, req.HolderID); err != nil {
			return err
		}
		if _, err := repos.Currencies.FindByID(ctx, req.CurrencyID); err != nil {
			return err
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionCreate, ledger.TableAccounts, account.ID.String(), nil, ToAccountResponse(account))
	})
	if err != nil {
		return nil, err
	}

	resp := ToAccountResponse(account)
	return &resp, nil
}

// GetAccount returns one account
func (s *MasterDataService) GetAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.repos.Accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// ListAccounts returns accounts with their balances recomputed as of today
func (s *MasterDataService) ListAccounts(ctx context.Context, filter ledger.AccountFilter) ([]AccountWithBalanceResponse, error) {
	accounts, err := s.repos.Accounts.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	balances, err := s.repos.Accounts.ComputeBalances(ctx, filter, time.Now())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]ledger.Balance, len(balances))
	for _, b := range balances {
		byID[b.AccountID] = b
	}

	out := make([]AccountWithBalanceResponse, len(accounts))
	for i := range accounts {
		out[i] = AccountWithBalanceResponse{
			AccountResponse: ToAccountResponse(&accounts[i]),
			Balance:         accounts[i].StartingBalance,
		}
		if b, ok := byID[accounts[i].ID]; ok {
			out[i].Balance = b.Amount()
		}
	}
	return out, nil
}

// SetAccountActive activates or deactivates an account
func (s *MasterDataService) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*AccountResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	var account *ledger.Account
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		account, err = repos.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		action := ledger.AuditActionActivate
		if active {
			account.Activate()
		} else {
			account.Deactivate()
			action = ledger.AuditActionDeactivate
		}
		if err := repos.Accounts.Update(ctx, account); err != nil {
			return err
		}
		return audit(ctx, repos, actor, action, ledger.TableAccounts, id.String(), nil, nil)
	})
	if err != nil {
		return nil, err
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// DeleteAccount deletes an account that no transaction references
func (s *MasterDataService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		account, err := repos.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		count, err := repos.Transactions.CountByAccount(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ledger.ErrAccountInUse
		}
		if err := repos.Accounts.Delete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionDelete, ledger.TableAccounts, id.String(), ToAccountResponse(account), nil)
	})
}

// =============================================================================
// Categories
// =============================================================================

// CreateCategory creates a category, optionally below a parent of the same type
func (s *MasterDataService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	category, err := ledger.NewCategory(req.Name, ledger.CategoryType(req.Type))
	if err != nil {
		return nil, err
	}
	if err := category.SetDisplay(req.Icon, req.Color, req.SortOrder); err != nil {
		return nil, err
	}
	if err := category.SetBudget(req.Budget); err != nil {
		return nil, err
	}
	category.TaxDeductible = req.TaxDeductible

	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		if req.ParentID != nil {
			parent, err := repos.Categories.FindByID(ctx, *req.ParentID)
			if err != nil {
				return err
			}
			if err := category.SetParent(parent); err != nil {
				return err
			}
		}
		if err := repos.Categories.Create(ctx, category); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionCreate, ledger.TableCategories, category.ID.String(), nil, ToCategoryResponse(category))
	})
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// ListCategories returns categories ordered for display
func (s *MasterDataService) ListCategories(ctx context.Context, query CategoryListQuery) ([]CategoryResponse, error) {
	filter := ledger.CategoryFilter{ActiveOnly: query.ActiveOnly}
	if query.Type != "" {
		t := ledger.CategoryType(query.Type)
		filter.Type = &t
	}
	categories, err := s.repos.Categories.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}
	return out, nil
}

// SetCategoryActive activates or deactivates a category
func (s *MasterDataService) SetCategoryActive(ctx context.Context, id uuid.UUID, active bool) (*CategoryResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	var category *ledger.Category
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		category, err = repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		action := ledger.AuditActionActivate
		if active {
			category.Activate()
		} else {
			category.Deactivate()
			action = ledger.AuditActionDeactivate
		}
		if err := repos.Categories.Update(ctx, category); err != nil {
			return err
		}
		return audit(ctx, repos, actor, action, ledger.TableCategories, id.String(), nil, nil)
	})
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// DeleteCategory deletes a category that has no transactions and no subcategories
func (s *MasterDataService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		category, err := repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		used, err := repos.Transactions.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		children, err := repos.Categories.CountChildren(ctx, id)
		if err != nil {
			return err
		}
		if used > 0 || children > 0 {
			return ledger.ErrCategoryInUse
		}
		if err := repos.Categories.Delete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionDelete, ledger.TableCategories, id.String(), ToCategoryResponse(category), nil)
	})
}

// =============================================================================
// Account holders
// =============================================================================

// CreateHolder creates an account holder
func (s *MasterDataService) CreateHolder(ctx context.Context, req CreateHolderRequest) (*HolderResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	holder, err := ledger.NewAccountHolder(req.Name, ledger.HolderType(req.Type), ledger.HolderContact{
		TaxID:   req.TaxID,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		Notes:   req.Notes,
	})
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		if err := repos.Holders.Create(ctx, holder); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionCreate, ledger.TableAccountHolders, holder.ID.String(), nil, ToHolderResponse(holder))
	})
	if err != nil {
		return nil, err
	}
	resp := ToHolderResponse(holder)
	return &resp, nil
}

// ListHolders returns every account holder
func (s *MasterDataService) ListHolders(ctx context.Context) ([]HolderResponse, error) {
	holders, err := s.repos.Holders.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]HolderResponse, len(holders))
	for i := range holders {
		out[i] = ToHolderResponse(&holders[i])
	}
	return out, nil
}

// DeleteHolder deletes a holder that owns no accounts
func (s *MasterDataService) DeleteHolder(ctx context.Context, id uuid.UUID) error {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		holder, err := repos.Holders.FindByID(ctx, id)
		if err != nil {
			return err
		}
		count, err := repos.Accounts.CountByHolder(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ledger.ErrHolderInUse
		}
		if err := repos.Holders.Delete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionDelete, ledger.TableAccountHolders, id.String(), ToHolderResponse(holder), nil)
	})
}

// =============================================================================
// Currencies
// =============================================================================

// CreateCurrency creates a currency. Creating it as base clears the previous base
// in the same unit of work.
func (s *MasterDataService) CreateCurrency(ctx context.Context, req CreateCurrencyRequest) (*CurrencyResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	currency, err := ledger.NewCurrency(req.Code, req.Name, req.Symbol, req.ExchangeRate)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		if req.IsBase {
			if err := repos.Currencies.ClearBase(ctx, currency.ID); err != nil {
				return err
			}
			currency.MarkBase()
		}
		if err := repos.Currencies.Create(ctx, currency); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionCreate, ledger.TableCurrencies, currency.ID.String(), nil, ToCurrencyResponse(currency))
	})
	if err != nil {
		return nil, err
	}
	resp := ToCurrencyResponse(currency)
	return &resp, nil
}

// ListCurrencies returns currencies, optionally only active ones
func (s *MasterDataService) ListCurrencies(ctx context.Context, activeOnly bool) ([]CurrencyResponse, error) {
	currencies, err := s.repos.Currencies.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]CurrencyResponse, len(currencies))
	for i := range currencies {
		out[i] = ToCurrencyResponse(&currencies[i])
	}
	return out, nil
}

// SetBaseCurrency makes id the single base currency
func (s *MasterDataService) SetBaseCurrency(ctx context.Context, id uuid.UUID) (*CurrencyResponse, error) {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	var currency *ledger.Currency
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		currency, err = repos.Currencies.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if currency.IsBase {
			return nil
		}
		var previous any
		if old, err := repos.Currencies.FindBase(ctx); err == nil {
			previous = map[string]string{"base_currency": old.Code}
		}
		if err := repos.Currencies.ClearBase(ctx, id); err != nil {
			return err
		}
		currency.MarkBase()
		if err := repos.Currencies.Update(ctx, currency); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionSetBaseCurrency, ledger.TableCurrencies, id.String(),
			previous, map[string]string{"base_currency": currency.Code})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Base currency changed", zap.String("code", currency.Code), zap.String("user", actor.Username))
	resp := ToCurrencyResponse(currency)
	return &resp, nil
}

// DeleteCurrency deletes a non-base currency that no account uses
func (s *MasterDataService) DeleteCurrency(ctx context.Context, id uuid.UUID) error {
	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}
	return s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		currency, err := repos.Currencies.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if currency.IsBase {
			return ledger.ErrBaseCurrencyInUse
		}
		count, err := repos.Accounts.CountByCurrency(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ledger.ErrCurrencyInUse
		}
		if err := repos.Currencies.Delete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, repos, actor, ledger.AuditActionDelete, ledger.TableCurrencies, id.String(), ToCurrencyResponse(currency), nil)
	})
}
