package ledger

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/shared"
)

// AuditAction labels what an actor did
type AuditAction string

const (
	AuditActionCreate          AuditAction = "CREATE"
	AuditActionUpdate          AuditAction = "UPDATE"
	AuditActionDelete          AuditAction = "DELETE"
	AuditActionReconcile       AuditAction = "RECONCILE"
	AuditActionUnreconcile     AuditAction = "UNRECONCILE"
	AuditActionActivate        AuditAction = "ACTIVATE"
	AuditActionDeactivate      AuditAction = "DEACTIVATE"
	AuditActionSetBaseCurrency AuditAction = "SET_BASE_CURRENCY"
	AuditActionRefreshBalance  AuditAction = "REFRESH_BALANCE"
	AuditActionBackup          AuditAction = "BACKUP"
	AuditActionLogin           AuditAction = "LOGIN"
	AuditActionLogout          AuditAction = "LOGOUT"
)

// Audited table names
const (
	TableTransactions   = "transactions"
	TableAccounts       = "accounts"
	TableCategories     = "categories"
	TableAccountHolders = "account_holders"
	TableCurrencies     = "currencies"
	TableUsers          = "users"
	TableDatabase       = "database"
)

// Column widths of the request metadata kept with each entry
const (
	MaxAuditIPLength        = 45
	MaxAuditUserAgentLength = 255
)

// AuditEntry records who did what, with optional before/after snapshots
type AuditEntry struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	Action    AuditAction
	TableName string
	RecordID  string
	OldValues json.RawMessage
	NewValues json.RawMessage
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// NewAuditEntry creates an audit entry for actor
func NewAuditEntry(actor shared.Actor, action AuditAction, table, recordID string) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.New(),
		UserID:    actor.UserRef(),
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		IPAddress: truncateUTF8(actor.IP, MaxAuditIPLength),
		UserAgent: truncateUTF8(actor.UserAgent, MaxAuditUserAgentLength),
		CreatedAt: time.Now().UTC(),
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// WithBefore attaches the state before the mutation
func (e *AuditEntry) WithBefore(v any) (*AuditEntry, error) {
	raw, err := marshalSnapshot(v)
	if err != nil {
		return nil, err
	}
	e.OldValues = raw
	return e, nil
}

// WithAfter attaches the state after the mutation
func (e *AuditEntry) WithAfter(v any) (*AuditEntry, error) {
	raw, err := marshalSnapshot(v)
	if err != nil {
		return nil, err
	}
	e.NewValues = raw
	return e, nil
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return raw, nil
}

// AuditFilter narrows audit listings
type AuditFilter struct {
	UserID    *uuid.UUID
	Action    *AuditAction
	TableName string
	RecordID  string
	From      *time.Time
	To        *time.Time
	shared.PageRequest
}
