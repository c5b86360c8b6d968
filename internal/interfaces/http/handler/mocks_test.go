package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/application/identity"
	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/application/maintenance"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/interfaces/http/dto"
	"github.com/ledgerbook/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockAuthService is a mock implementation of AuthUseCase
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, input identity.LoginInput) (*identity.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.LoginResult), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, input identity.RefreshTokenInput) (*identity.RefreshTokenResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.RefreshTokenResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, input identity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockAuthService) GetCurrentUser(ctx context.Context) (*identity.UserInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.UserInfo), args.Error(1)
}

// MockLedgerService is a mock implementation of TransactionUseCase and BalanceUseCase
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) PostTransaction(ctx context.Context, req ledgerapp.PostTransactionRequest) (*ledgerapp.PostTransactionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PostTransactionResult), args.Error(1)
}

func (m *MockLedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedgerService) ToggleReconciliation(ctx context.Context, id uuid.UUID) (*ledgerapp.TransactionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.TransactionResponse), args.Error(1)
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*ledgerapp.TransactionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.TransactionResponse), args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) (shared.Paginated[ledgerapp.TransactionResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[ledgerapp.TransactionResponse]), args.Error(1)
}

func (m *MockLedgerService) ExportTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.ExportRow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.ExportRow), args.Error(1)
}

func (m *MockLedgerService) GetAccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (*ledgerapp.BalanceResponse, error) {
	args := m.Called(ctx, accountID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.BalanceResponse), args.Error(1)
}

func (m *MockLedgerService) VerifyBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.BalanceDriftResponse), args.Error(1)
}

func (m *MockLedgerService) RefreshBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.BalanceDriftResponse), args.Error(1)
}

// MockMasterDataService is a mock implementation of MasterDataUseCase
type MockMasterDataService struct {
	mock.Mock
}

func (m *MockMasterDataService) result(args mock.Arguments) (any, error) {
	return args.Get(0), args.Error(1)
}

func (m *MockMasterDataService) CreateAccount(ctx context.Context, req ledgerapp.CreateAccountRequest) (*ledgerapp.AccountResponse, error) {
	v, err := m.result(m.Called(ctx, req))
	r, _ := v.(*ledgerapp.AccountResponse)
	return r, err
}

func (m *MockMasterDataService) GetAccount(ctx context.Context, id uuid.UUID) (*ledgerapp.AccountResponse, error) {
	v, err := m.result(m.Called(ctx, id))
	r, _ := v.(*ledgerapp.AccountResponse)
	return r, err
}

func (m *MockMasterDataService) ListAccounts(ctx context.Context, filter ledger.AccountFilter) ([]ledgerapp.AccountWithBalanceResponse, error) {
	v, err := m.result(m.Called(ctx, filter))
	r, _ := v.([]ledgerapp.AccountWithBalanceResponse)
	return r, err
}

func (m *MockMasterDataService) SetAccountActive(ctx context.Context, id uuid.UUID, active bool) (*ledgerapp.AccountResponse, error) {
	v, err := m.result(m.Called(ctx, id, active))
	r, _ := v.(*ledgerapp.AccountResponse)
	return r, err
}

func (m *MockMasterDataService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMasterDataService) CreateCategory(ctx context.Context, req ledgerapp.CreateCategoryRequest) (*ledgerapp.CategoryResponse, error) {
	v, err := m.result(m.Called(ctx, req))
	r, _ := v.(*ledgerapp.CategoryResponse)
	return r, err
}

func (m *MockMasterDataService) ListCategories(ctx context.Context, query ledgerapp.CategoryListQuery) ([]ledgerapp.CategoryResponse, error) {
	v, err := m.result(m.Called(ctx, query))
	r, _ := v.([]ledgerapp.CategoryResponse)
	return r, err
}

func (m *MockMasterDataService) SetCategoryActive(ctx context.Context, id uuid.UUID, active bool) (*ledgerapp.CategoryResponse, error) {
	v, err := m.result(m.Called(ctx, id, active))
	r, _ := v.(*ledgerapp.CategoryResponse)
	return r, err
}

func (m *MockMasterDataService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMasterDataService) CreateHolder(ctx context.Context, req ledgerapp.CreateHolderRequest) (*ledgerapp.HolderResponse, error) {
	v, err := m.result(m.Called(ctx, req))
	r, _ := v.(*ledgerapp.HolderResponse)
	return r, err
}

func (m *MockMasterDataService) ListHolders(ctx context.Context) ([]ledgerapp.HolderResponse, error) {
	v, err := m.result(m.Called(ctx))
	r, _ := v.([]ledgerapp.HolderResponse)
	return r, err
}

func (m *MockMasterDataService) DeleteHolder(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMasterDataService) CreateCurrency(ctx context.Context, req ledgerapp.CreateCurrencyRequest) (*ledgerapp.CurrencyResponse, error) {
	v, err := m.result(m.Called(ctx, req))
	r, _ := v.(*ledgerapp.CurrencyResponse)
	return r, err
}

func (m *MockMasterDataService) ListCurrencies(ctx context.Context, activeOnly bool) ([]ledgerapp.CurrencyResponse, error) {
	v, err := m.result(m.Called(ctx, activeOnly))
	r, _ := v.([]ledgerapp.CurrencyResponse)
	return r, err
}

func (m *MockMasterDataService) SetBaseCurrency(ctx context.Context, id uuid.UUID) (*ledgerapp.CurrencyResponse, error) {
	v, err := m.result(m.Called(ctx, id))
	r, _ := v.(*ledgerapp.CurrencyResponse)
	return r, err
}

func (m *MockMasterDataService) DeleteCurrency(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockReportService is a mock implementation of ReportUseCase, CategoryTotalUseCase and AuditUseCase
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) IncomeExpense(ctx context.Context, q ledgerapp.DateRangeQuery) (*ledgerapp.IncomeExpenseResponse, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*ledgerapp.IncomeExpenseResponse)
	return r, args.Error(1)
}

func (m *MockReportService) CashFlow(ctx context.Context, q ledgerapp.DateRangeQuery) ([]ledgerapp.CashFlowDayResponse, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).([]ledgerapp.CashFlowDayResponse)
	return r, args.Error(1)
}

func (m *MockReportService) Dashboard(ctx context.Context) (*ledgerapp.DashboardResponse, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*ledgerapp.DashboardResponse)
	return r, args.Error(1)
}

func (m *MockReportService) CategoryTotal(ctx context.Context, categoryID uuid.UUID, q ledgerapp.DateRangeQuery) (*ledgerapp.CategoryTotalResponse, error) {
	args := m.Called(ctx, categoryID, q)
	r, _ := args.Get(0).(*ledgerapp.CategoryTotalResponse)
	return r, args.Error(1)
}

func (m *MockReportService) ListAudit(ctx context.Context, q ledgerapp.AuditListQuery) (shared.Paginated[ledgerapp.AuditEntryResponse], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(shared.Paginated[ledgerapp.AuditEntryResponse]), args.Error(1)
}

// MockBackupService is a mock implementation of BackupUseCase
type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Run(ctx context.Context, upload bool) (*maintenance.BackupResult, error) {
	args := m.Called(ctx, upload)
	r, _ := args.Get(0).(*maintenance.BackupResult)
	return r, args.Error(1)
}

// performRequest serves one request through a router with a single route
func performRequest(method, pattern, target string, body any, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.Handle(method, pattern, handler)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeResponse unmarshals the envelope and, when data is non-nil, its payload
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var envelope struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return envelope.Response
}
