package persistence

import (
	"context"
	"time"

	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements ledger.AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an audit entry. A zero timestamp is set to now.
func (r *GormAuditRepository) Append(ctx context.Context, entry *ledger.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	model := models.AuditLogModelFromDomain(entry)
	return translateError("append audit entry", r.db.WithContext(ctx).Create(model).Error, nil)
}

// List returns one page of audit entries, newest first, and the total match count
func (r *GormAuditRepository) List(ctx context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, translateError("count audit entries", err, nil)
	}

	page := filter.PageRequest.Normalize()
	var rows []models.AuditLogModel
	if err := r.filtered(ctx, filter).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translateError("list audit entries", err, nil)
	}
	entries := make([]ledger.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

func (r *GormAuditRepository) filtered(ctx context.Context, filter ledger.AuditFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", string(*filter.Action))
	}
	if filter.TableName != "" {
		query = query.Where("table_name = ?", filter.TableName)
	}
	if filter.RecordID != "" {
		query = query.Where("record_id = ?", filter.RecordID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	return query
}

var _ ledger.AuditRepository = (*GormAuditRepository)(nil)
