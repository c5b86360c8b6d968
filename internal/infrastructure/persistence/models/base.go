package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
)

// BaseModel holds the columns shared by every table keyed on a UUID
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func baseModel(e shared.BaseEntity) BaseModel {
	return BaseModel(e)
}

func (m BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity(m)
}

// nullString maps the empty string to NULL
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
