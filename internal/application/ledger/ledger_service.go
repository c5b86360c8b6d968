package ledger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxReferenceAttempts bounds reference regeneration after a unique index collision
const maxReferenceAttempts = 5

// LedgerService posts, reconciles and deletes transactions and reads balances.
// Every mutation runs in one unit of work together with its cached balance
// updates and audit entry; events are published only after commit.
type LedgerService struct {
	uow        ledger.UnitOfWork
	repos      ledger.Repositories
	references ledger.ReferenceGenerator
	publisher  ledger.EventPublisher
	metrics    *telemetry.LedgerMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// LedgerServiceConfig holds the collaborators of LedgerService
type LedgerServiceConfig struct {
	UnitOfWork   ledger.UnitOfWork
	Repositories ledger.Repositories
	References   ledger.ReferenceGenerator
	Publisher    ledger.EventPublisher
	Metrics      *telemetry.LedgerMetrics
	Logger       *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = ledger.NopPublisher{}
	}
	references := cfg.References
	if references == nil {
		references = ledger.NewReferenceGenerator(ledger.DefaultReferencePrefix)
	}
	return &LedgerService{
		uow:        cfg.UnitOfWork,
		repos:      cfg.Repositories,
		references: references,
		publisher:  publisher,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// PostTransaction validates and posts a transaction, updating cached balances atomically.
//
// Validation runs in a fixed order and the first failure wins: missing legs,
// identical legs, unknown category, invalid amount. Account existence, date
// and description checks follow.
func (s *LedgerService) PostTransaction(ctx context.Context, req PostTransactionRequest) (*PostTransactionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "post")
	defer span.End()

	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	if err := ledger.ValidateLegs(req.SourceAccountID, req.DestAccountID); err != nil {
		return nil, err
	}
	if req.CategoryID == uuid.Nil {
		return nil, ledger.ErrUnknownCategory
	}
	exists, err := s.repos.Categories.Exists(ctx, req.CategoryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !exists {
		return nil, ledger.ErrUnknownCategory
	}
	amount, err := ledger.ParseAmount(string(req.Amount))
	if err != nil {
		return nil, err
	}

	for _, id := range []*uuid.UUID{req.SourceAccountID, req.DestAccountID} {
		if id == nil {
			continue
		}
		ok, err := s.repos.Accounts.Exists(ctx, *id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if !ok {
			return nil, ledger.ErrAccountNotFound
		}
	}

	now := s.now()
	date := now
	if req.Date != "" {
		if date, err = ledger.ParseDate(req.Date); err != nil {
			return nil, err
		}
	}
	postedBy := actor.UserID
	if req.PostedBy != nil {
		postedBy = *req.PostedBy
	}

	var txn *ledger.Transaction
	for attempt := 1; ; attempt++ {
		reference, err := s.references.Next(now)
		if err != nil {
			return nil, err
		}
		txn, err = ledger.NewTransaction(ledger.NewTransactionParams{
			Reference:       reference,
			SourceAccountID: req.SourceAccountID,
			DestAccountID:   req.DestAccountID,
			CategoryID:      req.CategoryID,
			PostedBy:        postedBy,
			Date:            date,
			Amount:          amount,
			Description:     req.Description,
			Notes:           req.Notes,
		})
		if err != nil {
			return nil, err
		}

		err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
			// balance rows first, so the insert's foreign key checks find them already locked
			if err := applyEffects(ctx, repos.Accounts, txn.BalanceEffects()); err != nil {
				return err
			}
			if err := repos.Transactions.Create(ctx, txn); err != nil {
				return err
			}
			entry, err := ledger.NewAuditEntry(actor, ledger.AuditActionCreate, ledger.TableTransactions, txn.ID.String()).
				WithAfter(txn.Snapshot())
			if err != nil {
				return err
			}
			return repos.Audit.Append(ctx, entry)
		})
		if err == nil {
			break
		}
		if errors.Is(err, ledger.ErrDuplicateReference) && attempt < maxReferenceAttempts {
			span.AddEvent("reference_collision", trace.WithAttributes(
				telemetry.AttrReference.String(reference),
				telemetry.AttrAttempt.Int(attempt)))
			s.logger.Warn("Transaction reference collision, regenerating",
				zap.String("reference", reference),
				zap.Int("attempt", attempt))
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(
		telemetry.AttrTransactionID.String(txn.ID.String()),
		telemetry.AttrReference.String(txn.Reference),
		telemetry.AttrAmount.String(txn.Amount.String()),
	)
	s.metrics.TransactionRecorded(ctx, "posted")
	s.publish(ctx, ledger.NewEvent(ledger.EventTransactionPosted, txn, actor.UserRef()))

	s.logger.Info("Transaction posted",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("reference", txn.Reference),
		zap.String("amount", txn.Amount.String()),
		zap.String("user", actor.Username))

	return &PostTransactionResult{ID: txn.ID, Reference: txn.Reference}, nil
}

// DeleteTransaction removes a transaction and reverses its effect on cached balances
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "delete",
		telemetry.AttrTransactionID.String(id.String()))
	defer span.End()

	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return err
	}

	var deleted *ledger.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		txn, err := repos.Transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Transactions.Delete(ctx, id); err != nil {
			return err
		}
		if err := applyEffects(ctx, repos.Accounts, txn.ReversalEffects()); err != nil {
			return err
		}
		entry, err := ledger.NewAuditEntry(actor, ledger.AuditActionDelete, ledger.TableTransactions, id.String()).
			WithBefore(txn.Snapshot())
		if err != nil {
			return err
		}
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return err
		}
		deleted = txn
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.metrics.TransactionRecorded(ctx, "deleted")
	s.publish(ctx, ledger.NewEvent(ledger.EventTransactionDeleted, deleted, actor.UserRef()))
	s.logger.Info("Transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("reference", deleted.Reference),
		zap.String("user", actor.Username))
	return nil
}

// ToggleReconciliation flips the reconciled flag with a conditional update.
// A concurrent toggle between read and write yields ErrConcurrencyConflict.
func (s *LedgerService) ToggleReconciliation(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "toggle_reconciliation",
		telemetry.AttrTransactionID.String(id.String()))
	defer span.End()

	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	var toggled *ledger.Transaction
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		txn, err := repos.Transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		before := txn.Snapshot()
		observed := txn.IsReconciled
		txn.ToggleReconciliation(s.now())

		ok, err := repos.Transactions.SetReconciliation(ctx, id, observed, txn.IsReconciled, txn.ReconciledAt)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := repos.Transactions.FindByID(ctx, id); err != nil {
				return err
			}
			return shared.ErrConcurrencyConflict
		}

		action := ledger.AuditActionReconcile
		if !txn.IsReconciled {
			action = ledger.AuditActionUnreconcile
		}
		entry, err := ledger.NewAuditEntry(actor, action, ledger.TableTransactions, id.String()).WithBefore(before)
		if err != nil {
			return err
		}
		if _, err := entry.WithAfter(txn.Snapshot()); err != nil {
			return err
		}
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return err
		}
		toggled = txn
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.TransactionRecorded(ctx, "reconciliation_toggled")
	s.publish(ctx, ledger.NewEvent(ledger.EventTransactionReconciled, toggled, actor.UserRef()))

	resp := ToTransactionResponse(toggled)
	return &resp, nil
}

// GetTransaction returns one transaction with display names
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	detail, err := s.repos.Transactions.FindDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionDetailResponse(detail)
	return &resp, nil
}

// ListTransactions returns a page of transactions, newest first
func (s *LedgerService) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) (shared.Paginated[TransactionResponse], error) {
	filter.PageRequest = filter.PageRequest.Normalize()

	details, total, err := s.repos.Transactions.ListDetails(ctx, filter)
	if err != nil {
		return shared.Paginated[TransactionResponse]{}, err
	}
	items := make([]TransactionResponse, len(details))
	for i := range details {
		items[i] = ToTransactionDetailResponse(&details[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ExportTransactions projects every transaction matching filter onto the export columns
func (s *LedgerService) ExportTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.ExportRow, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transaction", "export")
	defer span.End()

	filter.PageRequest = shared.PageRequest{}
	details, _, err := s.repos.Transactions.ListDetails(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	rows := make([]ledger.ExportRow, len(details))
	for i, d := range details {
		rows[i] = ledger.NewExportRow(d)
	}
	span.SetAttributes(telemetry.AttrExportRows.Int(len(rows)))
	return rows, nil
}

// GetAccountBalance recomputes an account balance from transactions dated on or
// before asOf. A nil asOf means today.
func (s *LedgerService) GetAccountBalance(ctx context.Context, accountID uuid.UUID, asOf *time.Time) (*BalanceResponse, error) {
	at := s.now()
	if asOf != nil {
		at = *asOf
	}
	balance, err := s.repos.Accounts.ComputeBalance(ctx, accountID, at)
	if err != nil {
		return nil, err
	}
	resp := ToBalanceResponse(*balance)
	return &resp, nil
}

// VerifyBalances lists accounts whose cached balance differs from the recomputed one.
// The cache is compared against every posted transaction regardless of date.
func (s *LedgerService) VerifyBalances(ctx context.Context) ([]BalanceDriftResponse, error) {
	balances, err := s.repos.Accounts.ComputeBalances(ctx, ledger.AccountFilter{}, farFuture)
	if err != nil {
		return nil, err
	}
	drifts := make([]BalanceDriftResponse, 0)
	for _, b := range balances {
		if b.IsStale() {
			drifts = append(drifts, toDriftResponse(b))
		}
	}
	s.metrics.BalanceDrift(ctx, len(drifts))
	return drifts, nil
}

// RefreshBalances rewrites stale cached balances from the recomputation in one
// unit of work and audits each corrected account
func (s *LedgerService) RefreshBalances(ctx context.Context) ([]BalanceDriftResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "refresh")
	defer span.End()

	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	corrected := make([]BalanceDriftResponse, 0)
	err = s.uow.Do(ctx, func(ctx context.Context, repos ledger.Repositories) error {
		// postings committed before the lock are counted; later ones apply their delta on top
		if err := repos.Accounts.LockBalances(ctx); err != nil {
			return err
		}
		balances, err := repos.Accounts.ComputeBalances(ctx, ledger.AccountFilter{}, farFuture)
		if err != nil {
			return err
		}
		for _, b := range balances {
			if !b.IsStale() {
				continue
			}
			if err := repos.Accounts.SetCachedBalance(ctx, b.AccountID, b.Amount()); err != nil {
				return err
			}
			drift := toDriftResponse(b)
			entry, err := ledger.NewAuditEntry(actor, ledger.AuditActionRefreshBalance, ledger.TableAccounts, b.AccountID.String()).
				WithBefore(map[string]string{"current_balance": b.CachedBalance.StringFixed(2)})
			if err != nil {
				return err
			}
			if _, err := entry.WithAfter(map[string]string{"current_balance": b.Amount().StringFixed(2)}); err != nil {
				return err
			}
			if err := repos.Audit.Append(ctx, entry); err != nil {
				return err
			}
			corrected = append(corrected, drift)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(telemetry.AttrCorrected.Int(len(corrected)))

	if len(corrected) > 0 {
		s.logger.Warn("Refreshed stale cached balances", zap.Int("accounts", len(corrected)))
	}
	return corrected, nil
}

// farFuture includes every transaction when recomputing for cache comparison
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// applyEffects updates accounts in id order, the order LockBalances locks them in
func applyEffects(ctx context.Context, accounts ledger.AccountRepository, effects []ledger.BalanceEffect) error {
	effects = slices.Clone(effects)
	slices.SortFunc(effects, func(a, b ledger.BalanceEffect) int {
		return bytes.Compare(a.AccountID[:], b.AccountID[:])
	})
	for _, e := range effects {
		if e.Delta.IsZero() {
			continue
		}
		if err := accounts.ApplyBalanceDelta(ctx, e.AccountID, e.Delta); err != nil {
			return err
		}
	}
	return nil
}

// publish delivers a committed event. Failures are logged only; the mutation is already durable.
func (s *LedgerService) publish(ctx context.Context, event ledger.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish ledger event",
			zap.String("event_type", event.Type),
			zap.String("transaction_id", event.Transaction.String()),
			zap.Error(err))
	}
}
