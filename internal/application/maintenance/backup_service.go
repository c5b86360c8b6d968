// Package maintenance runs administrative jobs: database backups and their upload.
package maintenance

import (
	"context"
	"time"

	"github.com/ledgerbook/backend/internal/domain/ledger"
	"github.com/ledgerbook/backend/internal/domain/shared"
	"github.com/ledgerbook/backend/internal/infrastructure/backup"
	"github.com/ledgerbook/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const backupContentType = "application/sql"

// Dumper produces a database dump on the local filesystem
type Dumper interface {
	Dump(ctx context.Context) (*backup.Result, error)
}

// Uploader stores a local file in object storage
type Uploader interface {
	UploadFile(ctx context.Context, localPath, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// BackupResult describes a finished backup
type BackupResult struct {
	FileName    string     `json:"file_name"`
	Path        string     `json:"path"`
	Size        int64      `json:"size"`
	StartedAt   time.Time  `json:"started_at"`
	DurationMs  int64      `json:"duration_ms"`
	ObjectKey   string     `json:"object_key,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	URLExpires  *time.Time `json:"url_expires_at,omitempty"`
}

// BackupService dumps the database and optionally uploads the dump
type BackupService struct {
	dumper   Dumper
	uploader Uploader
	audit    ledger.AuditRepository
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger
}

// NewBackupService creates a backup service. A nil uploader keeps dumps local only.
func NewBackupService(dumper Dumper, uploader Uploader, audit ledger.AuditRepository, metrics *telemetry.LedgerMetrics, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		dumper:   dumper,
		uploader: uploader,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
	}
}

// CanUpload reports whether an object storage uploader is configured
func (s *BackupService) CanUpload() bool {
	return s.uploader != nil
}

// Run dumps the database. With upload set, the dump is also pushed to object
// storage and a presigned download URL is returned.
func (s *BackupService) Run(ctx context.Context, upload bool) (*BackupResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "maintenance", "backup")
	defer span.End()

	actor, err := shared.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, shared.ErrForbidden
	}
	if upload && s.uploader == nil {
		return nil, shared.NewValidationError("UPLOAD_UNAVAILABLE", "Object storage is not configured")
	}

	started := time.Now()
	dump, err := s.dumper.Dump(ctx)
	if err != nil {
		s.metrics.BackupFinished(ctx, time.Since(started), err)
		telemetry.RecordError(span, err)
		s.logger.Error("Database backup failed", zap.Error(err))
		return nil, shared.NewStorageError("backup", err)
	}

	result := &BackupResult{
		FileName:   dump.FileName,
		Path:       dump.Path,
		Size:       dump.Size,
		StartedAt:  dump.StartedAt,
		DurationMs: dump.Duration().Milliseconds(),
	}

	if upload {
		key, err := s.uploader.UploadFile(ctx, dump.Path, backupContentType)
		if err != nil {
			s.metrics.BackupFinished(ctx, time.Since(started), err)
			telemetry.RecordError(span, err)
			s.logger.Error("Backup upload failed", zap.String("file", dump.Path), zap.Error(err))
			return nil, shared.NewStorageError("upload backup", err)
		}
		result.ObjectKey = key
		if url, expires, err := s.uploader.GenerateDownloadURL(ctx, key, 0); err != nil {
			s.logger.Warn("Failed to presign backup download", zap.String("key", key), zap.Error(err))
		} else {
			result.DownloadURL = url
			result.URLExpires = &expires
		}
	}

	s.metrics.BackupFinished(ctx, time.Since(started), nil)
	span.SetAttributes(telemetry.AttrBackupFile.String(dump.FileName), telemetry.AttrBackupSize.Int64(dump.Size))

	if s.audit != nil {
		entry, err := ledger.NewAuditEntry(actor, ledger.AuditActionBackup, ledger.TableDatabase, dump.FileName).WithAfter(result)
		if err == nil {
			err = s.audit.Append(ctx, entry)
		}
		if err != nil {
			s.logger.Error("Failed to append backup audit entry", zap.Error(err))
		}
	}

	s.logger.Info("Database backup completed",
		zap.String("file", dump.FileName),
		zap.Int64("size", dump.Size),
		zap.String("object_key", result.ObjectKey),
		zap.String("user", actor.Username))
	return result, nil
}
