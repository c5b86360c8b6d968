// Package backup produces PostgreSQL dumps by running pg_dump as a child process.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// FileNameLayout names dump files by their start time
const FileNameLayout = "2006-01-02_15-04-05"

// maxStderr bounds how much of pg_dump's stderr is carried in an error
const maxStderr = 2048

// Result describes a finished dump
type Result struct {
	FileName   string
	Path       string
	Size       int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the dump took
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PgDumper runs pg_dump against the configured database.
// The password reaches the child only through PGPASSWORD; no shell is involved.
type PgDumper struct {
	binary  string
	db      config.DatabaseConfig
	dir     string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewPgDumper creates a dumper writing into cfg.Directory
func NewPgDumper(cfg config.BackupConfig, db config.DatabaseConfig, logger *zap.Logger) *PgDumper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgDumper{
		binary:  cfg.PgDumpPath,
		db:      db,
		dir:     cfg.Directory,
		timeout: cfg.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Args returns the argument vector passed to pg_dump for outPath
func (d *PgDumper) Args(outPath string) []string {
	return []string{
		"--host", d.db.Host,
		"--port", strconv.Itoa(d.db.Port),
		"--username", d.db.User,
		"--dbname", d.db.DBName,
		"--format", "plain",
		"--no-owner",
		"--no-privileges",
		"--file", outPath,
	}
}

// Env returns the child environment: the parent's plus libpq credentials
func (d *PgDumper) Env() []string {
	env := os.Environ()
	env = append(env, "PGPASSWORD="+d.db.Password)
	if d.db.SSLMode != "" {
		env = append(env, "PGSSLMODE="+d.db.SSLMode)
	}
	return env
}

// Dump writes a plain SQL dump and returns its location.
// A failed run leaves no partial file behind.
func (d *PgDumper) Dump(ctx context.Context) (*Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	started := d.now().UTC()
	name := fmt.Sprintf("%s_backup_%s.sql", d.db.DBName, started.Format(FileNameLayout))
	out := filepath.Join(d.dir, name)

	cmd := exec.CommandContext(ctx, d.binary, d.Args(out)...)
	cmd.Env = d.Env()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	d.logger.Info("starting database backup",
		zap.String("file", out),
		zap.String("host", d.db.Host),
		zap.String("database", d.db.DBName),
	)

	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pg_dump aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("pg_dump failed: %w: %s", err, msg)
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("pg_dump produced no output file: %w", err)
	}

	result := &Result{
		FileName:   name,
		Path:       out,
		Size:       info.Size(),
		StartedAt:  started,
		FinishedAt: d.now().UTC(),
	}
	d.logger.Info("database backup finished",
		zap.String("file", out),
		zap.Int64("bytes", result.Size),
		zap.Duration("duration", result.Duration()),
	)
	return result, nil
}
