// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of
// ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by every table with id/created_at/updated_at
// - identity.go: users
// - ledger.go: currencies, account holders, accounts, categories, transactions, audit log
//
// Column types follow the migrations under migrations/. Tags avoid PostgreSQL-only
// types so the same models can be auto-migrated into SQLite for tests.
package models
