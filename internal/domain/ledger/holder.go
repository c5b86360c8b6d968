package ledger

import (
	"net/mail"
	"strings"

	"github.com/ledgerbook/backend/internal/domain/shared"
)

// HolderType represents who owns an account
type HolderType string

const (
	HolderTypePersonal HolderType = "personal"
	HolderTypeJoint    HolderType = "joint"
	HolderTypeBusiness HolderType = "business"
	HolderTypeOther    HolderType = "other"
)

// IsValid returns true if the holder type is valid
func (t HolderType) IsValid() bool {
	switch t {
	case HolderTypePersonal, HolderTypeJoint, HolderTypeBusiness, HolderTypeOther:
		return true
	}
	return false
}

// AccountHolder owns one or more accounts
type AccountHolder struct {
	shared.BaseEntity
	Name    string
	Type    HolderType
	TaxID   string
	Address string
	Phone   string
	Email   string
	Notes   string
}

// HolderContact carries optional holder metadata
type HolderContact struct {
	TaxID   string
	Address string
	Phone   string
	Email   string
	Notes   string
}

// NewAccountHolder creates a new account holder
func NewAccountHolder(name string, holderType HolderType, contact HolderContact) (*AccountHolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Holder name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("INVALID_NAME", "Holder name cannot exceed 100 characters")
	}
	if holderType == "" {
		holderType = HolderTypePersonal
	}
	if !holderType.IsValid() {
		return nil, shared.NewValidationError("INVALID_HOLDER_TYPE", "Invalid holder type")
	}
	email := strings.TrimSpace(contact.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, shared.NewValidationError("INVALID_EMAIL", "Invalid email format")
		}
	}

	return &AccountHolder{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Type:       holderType,
		TaxID:      strings.TrimSpace(contact.TaxID),
		Address:    strings.TrimSpace(contact.Address),
		Phone:      strings.TrimSpace(contact.Phone),
		Email:      email,
		Notes:      contact.Notes,
	}, nil
}
