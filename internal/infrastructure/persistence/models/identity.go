package models

import (
	"time"

	"github.com/ledgerbook/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	BaseModel
	Username       string  `gorm:"type:varchar(50);not null;uniqueIndex:idx_users_username"`
	Email          *string `gorm:"type:varchar(100)"`
	FullName       *string `gorm:"type:varchar(200)"`
	PasswordHash   string  `gorm:"type:varchar(255);not null"`
	IsAdmin        bool    `gorm:"not null;default:false"`
	IsActive       bool    `gorm:"not null;default:true"`
	LastLoginAt    *time.Time
	LastLoginIP    *string `gorm:"type:varchar(45)"`
	FailedAttempts int     `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseEntity:     m.BaseModel.entity(),
		Username:       m.Username,
		Email:          stringOrEmpty(m.Email),
		FullName:       stringOrEmpty(m.FullName),
		PasswordHash:   m.PasswordHash,
		IsAdmin:        m.IsAdmin,
		IsActive:       m.IsActive,
		LastLoginAt:    m.LastLoginAt,
		LastLoginIP:    stringOrEmpty(m.LastLoginIP),
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
	}
}

// UserModelFromDomain creates a persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Username:       u.Username,
		Email:          nullString(u.Email),
		FullName:       nullString(u.FullName),
		PasswordHash:   u.PasswordHash,
		IsAdmin:        u.IsAdmin,
		IsActive:       u.IsActive,
		LastLoginAt:    u.LastLoginAt,
		LastLoginIP:    nullString(u.LastLoginIP),
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
	}
	m.BaseModel = baseModel(u.BaseEntity)
	return m
}
