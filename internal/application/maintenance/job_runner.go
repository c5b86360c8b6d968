package maintenance

import (
	"context"
	"fmt"

	ledgerapp "github.com/ledgerbook/backend/internal/application/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// schedulerActor is recorded in the audit log for scheduled work
const schedulerActor = "scheduler"

// BalanceChecker compares cached balances with recomputed ones
type BalanceChecker interface {
	VerifyBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error)
	RefreshBalances(ctx context.Context) ([]ledgerapp.BalanceDriftResponse, error)
}

// JobRunner executes scheduled maintenance jobs as the system actor
type JobRunner struct {
	balances BalanceChecker
	backups  *BackupService
	logger   *zap.Logger
}

// NewJobRunner creates a job runner. A nil backup service makes BACKUP jobs fail.
func NewJobRunner(balances BalanceChecker, backups *BackupService, logger *zap.Logger) *JobRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRunner{balances: balances, backups: backups, logger: logger}
}

// Execute implements scheduler.JobExecutor
func (r *JobRunner) Execute(ctx context.Context, job *scheduler.Job) error {
	ctx = shared.WithActor(ctx, shared.SystemActor(schedulerActor))

	switch job.Type {
	case scheduler.JobTypeVerifyBalances:
		drifts, err := r.balances.VerifyBalances(ctx)
		if err != nil {
			return err
		}
		for _, d := range drifts {
			r.logger.Warn("Cached balance drifted",
				zap.String("account_id", d.AccountID.String()),
				zap.String("cached", d.Cached.String()),
				zap.String("computed", d.Computed.String()),
			)
		}
		r.logger.Info("Balance verification finished", zap.Int("drifted", len(drifts)))
		return nil

	case scheduler.JobTypeRefreshBalances:
		corrected, err := r.balances.RefreshBalances(ctx)
		if err != nil {
			return err
		}
		r.logger.Info("Balances refreshed", zap.Int("corrected", len(corrected)))
		return nil

	case scheduler.JobTypeBackup:
		if r.backups == nil {
			return fmt.Errorf("backup job: backups are not configured")
		}
		result, err := r.backups.Run(ctx, r.backups.CanUpload())
		if err != nil {
			return err
		}
		r.logger.Info("Scheduled backup finished",
			zap.String("file", result.FileName),
			zap.Int64("size", result.Size),
			zap.String("object_key", result.ObjectKey),
		)
		return nil
	}

	return fmt.Errorf("%w: %s", scheduler.ErrInvalidJobType, job.Type)
}
