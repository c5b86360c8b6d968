package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and bookkeeping timestamps every aggregate
// carries. IDs are UUIDv7 so they sort by creation time.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.Must(uuid.NewV7()), CreatedAt: now, UpdatedAt: now}
}

// Touch marks the entity as modified now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
