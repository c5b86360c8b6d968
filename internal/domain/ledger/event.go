package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger event types
const (
	EventTransactionPosted     = "transaction.posted"
	EventTransactionDeleted    = "transaction.deleted"
	EventTransactionReconciled = "transaction.reconciliation_toggled"
)

// Event notifies downstream consumers of a committed ledger change
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Type        string      `json:"type"`
	Transaction uuid.UUID   `json:"transaction_id"`
	Reference   string      `json:"reference"`
	AccountIDs  []uuid.UUID `json:"account_ids"`
	Amount      string      `json:"amount"`
	ActorID     *uuid.UUID  `json:"actor_id,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// NewEvent builds an event describing txn
func NewEvent(eventType string, txn *Transaction, actorID *uuid.UUID) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		Transaction: txn.ID,
		Reference:   txn.Reference,
		AccountIDs:  txn.AccountIDs(),
		Amount:      txn.Amount.StringFixed(2),
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
}

// EventPublisher delivers committed ledger events
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events
type NopPublisher struct{}

// Publish implements EventPublisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }
