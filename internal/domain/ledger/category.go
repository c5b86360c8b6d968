package ledger

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CategoryType is credit for income-like and debit for expense-like categories
type CategoryType string

const (
	CategoryTypeCredit CategoryType = "credit"
	CategoryTypeDebit  CategoryType = "debit"
)

// String returns the string representation of CategoryType
func (t CategoryType) String() string {
	return string(t)
}

// IsValid returns true if the category type is valid
func (t CategoryType) IsValid() bool {
	return t == CategoryTypeCredit || t == CategoryTypeDebit
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category classifies transactions
type Category struct {
	shared.BaseEntity
	Name          string
	Type          CategoryType
	ParentID      *uuid.UUID
	Icon          string
	Color         string
	SortOrder     int
	Budget        *decimal.Decimal
	TaxDeductible bool
	IsActive      bool
}

// NewCategory creates a new active category
func NewCategory(name string, categoryType CategoryType) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	if !categoryType.IsValid() {
		return nil, shared.NewValidationError("INVALID_CATEGORY_TYPE", "Category type must be credit or debit")
	}
	return &Category{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Type:       categoryType,
		Color:      "#6c757d",
		IsActive:   true,
	}, nil
}

// SetParent attaches the category below parent. A category cannot be its own parent
// and must share the parent's type.
func (c *Category) SetParent(parent *Category) error {
	if parent == nil {
		c.ParentID = nil
		return nil
	}
	if parent.ID == c.ID {
		return shared.NewValidationError("INVALID_PARENT", "A category cannot be its own parent")
	}
	if parent.Type != c.Type {
		return shared.NewValidationError("INVALID_PARENT", "Parent category must have the same type")
	}
	id := parent.ID
	c.ParentID = &id
	return nil
}

// SetDisplay sets icon, color and sort order
func (c *Category) SetDisplay(icon, color string, sortOrder int) error {
	if color != "" {
		if !colorPattern.MatchString(color) {
			return shared.NewValidationError("INVALID_COLOR", "Color must be a hex value like #1a2b3c")
		}
		c.Color = color
	}
	c.Icon = strings.TrimSpace(icon)
	c.SortOrder = sortOrder
	return nil
}

// SetBudget sets the optional budget amount
func (c *Category) SetBudget(budget *decimal.Decimal) error {
	if budget != nil && budget.IsNegative() {
		return shared.NewValidationError("INVALID_BUDGET", "Budget cannot be negative")
	}
	c.Budget = budget
	return nil
}

// Activate marks the category as active
func (c *Category) Activate() {
	c.IsActive = true
	c.Touch()
}

// Deactivate hides the category from active listings
func (c *Category) Deactivate() {
	c.IsActive = false
	c.Touch()
}

// CategoryFilter narrows category listings
type CategoryFilter struct {
	Type       *CategoryType
	ActiveOnly bool
}
