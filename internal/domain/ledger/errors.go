package ledger

import "github.com/ledgerbook/backend/internal/domain/shared"

// Posting validation errors, checked in this order
var (
	ErrNoAccountSpecified = shared.NewValidationError("NO_ACCOUNT_SPECIFIED", "A transaction needs a source or a destination account")
	ErrSameAccount        = shared.NewValidationError("SAME_ACCOUNT", "Source and destination accounts must differ")
	ErrUnknownCategory    = shared.NewValidationError("UNKNOWN_CATEGORY", "Category does not exist")
	ErrInvalidAmount      = shared.NewValidationError("INVALID_AMOUNT", "Amount must be a number greater than or equal to zero")
)

// Lookup errors
var (
	ErrAccountNotFound     = shared.NewNotFoundError("ACCOUNT_NOT_FOUND", "Account not found")
	ErrCategoryNotFound    = shared.NewNotFoundError("CATEGORY_NOT_FOUND", "Category not found")
	ErrHolderNotFound      = shared.NewNotFoundError("HOLDER_NOT_FOUND", "Account holder not found")
	ErrCurrencyNotFound    = shared.NewNotFoundError("CURRENCY_NOT_FOUND", "Currency not found")
	ErrTransactionNotFound = shared.NewNotFoundError("TRANSACTION_NOT_FOUND", "Transaction not found")
)

// Referential deletion guards
var (
	ErrAccountInUse      = shared.NewConstraintError("ACCOUNT_IN_USE", "Account is referenced by transactions")
	ErrCategoryInUse     = shared.NewConstraintError("CATEGORY_IN_USE", "Category is referenced by transactions or subcategories")
	ErrHolderInUse       = shared.NewConstraintError("HOLDER_IN_USE", "Account holder is referenced by accounts")
	ErrCurrencyInUse     = shared.NewConstraintError("CURRENCY_IN_USE", "Currency is referenced by accounts")
	ErrBaseCurrencyInUse = shared.NewConstraintError("BASE_CURRENCY_IN_USE", "The base currency cannot be deleted")
)

// ErrDuplicateReference is returned by storage when a generated reference collides
var ErrDuplicateReference = shared.NewConflictError("DUPLICATE_REFERENCE", "Transaction reference already exists")
