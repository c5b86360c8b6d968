package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/ledgerbook/backend/internal/application/maintenance"
	"github.com/ledgerbook/backend/internal/infrastructure/backup"
	"github.com/ledgerbook/backend/internal/infrastructure/persistence"
	"github.com/ledgerbook/backend/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump the database with pg_dump",
		Long: `Backup writes a plain SQL dump into the configured backup directory.
With --upload the dump is also stored in the configured S3 bucket and a
presigned download URL is printed. Uploaded dumps beyond storage.retain
are pruned, oldest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var uploader maintenance.Uploader
			if upload {
				bucket, err := openBucket(ctx)
				if err != nil {
					return err
				}
				uploader = bucket
			}

			svc := maintenance.NewBackupService(
				backup.NewPgDumper(cfg.Backup, cfg.Database, log),
				uploader,
				persistence.NewGormAuditRepository(db.DB),
				nil,
				log,
			)
			result, err := svc.Run(operatorContext(ctx), upload)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup written to %s (%d bytes, %dms)\n", result.Path, result.Size, result.DurationMs)
			if result.ObjectKey != "" {
				fmt.Fprintf(out, "Uploaded as %s\n", result.ObjectKey)
			}
			if result.DownloadURL != "" {
				fmt.Fprintf(out, "Download URL (expires %s):\n%s\n", result.URLExpires.Format("2006-01-02 15:04 MST"), result.DownloadURL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "upload the dump to object storage")
	cmd.AddCommand(backupListCmd(), backupPruneCmd())
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bucket, err := openBucket(cmd.Context())
			if err != nil {
				return err
			}
			backups, err := bucket.Backups(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tUPLOADED")
			for _, b := range backups {
				fmt.Fprintf(w, "%s\t%d\t%s\n", b.Key, b.Size, b.LastModified.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func backupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest uploaded backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if keep == 0 {
				keep = cfg.Storage.Retain
			}
			if keep < 1 {
				return fmt.Errorf("--keep must be at least 1 (or set LEDGER_STORAGE_RETAIN)")
			}
			bucket, err := openBucket(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := bucket.Prune(cmd.Context(), keep)
			for _, key := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d backup(s) removed, %d kept\n", len(removed), keep)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "number of backups to keep (default storage.retain)")
	return cmd
}

func openBucket(ctx context.Context) (*storage.BackupBucket, error) {
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("object storage is disabled: set LEDGER_STORAGE_ENABLED=true")
	}
	bucket, err := storage.NewBackupBucket(&cfg.Storage,
		storage.WithLogger(log.Named("storage")),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		return nil, err
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return bucket, nil
}
