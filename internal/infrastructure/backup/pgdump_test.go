package backup

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "ledger",
		Password: "s3cr3t; rm -rf /",
		DBName:   "ledgerbook",
		SSLMode:  "require",
	}
}

// fakePgDump writes a script that records its arguments and PGPASSWORD into the --file target
func fakePgDump(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pg_dump")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestPgDumper_Args(t *testing.T) {
	d := NewPgDumper(config.BackupConfig{PgDumpPath: "pg_dump", Directory: "/tmp"}, testDB(), nil)

	assert.Equal(t, []string{
		"--host", "db.internal",
		"--port", "5433",
		"--username", "ledger",
		"--dbname", "ledgerbook",
		"--format", "plain",
		"--no-owner",
		"--no-privileges",
		"--file", "/tmp/out.sql",
	}, d.Args("/tmp/out.sql"))

	env := d.Env()
	assert.Contains(t, env, "PGPASSWORD=s3cr3t; rm -rf /")
	assert.Contains(t, env, "PGSSLMODE=require")
	for _, arg := range d.Args("/tmp/out.sql") {
		assert.NotContains(t, arg, "s3cr3t")
	}
}

func TestPgDumper_Dump(t *testing.T) {
	// the last argument is the output file
	script := `for last; do :; done
printf '%s\n' "$@" > "$last"
printf 'password=%s\n' "$PGPASSWORD" >> "$last"
`
	dir := filepath.Join(t.TempDir(), "nested", "backups")
	d := NewPgDumper(config.BackupConfig{PgDumpPath: fakePgDump(t, script), Directory: dir}, testDB(), nil)
	d.now = func() time.Time { return time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC) }

	result, err := d.Dump(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ledgerbook_backup_2024-01-05_10-30-00.sql", result.FileName)
	assert.Equal(t, filepath.Join(dir, result.FileName), result.Path)
	assert.Positive(t, result.Size)

	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "--dbname\nledgerbook\n")
	assert.Contains(t, string(content), "password=s3cr3t; rm -rf /")
}

func TestPgDumper_DumpFailure(t *testing.T) {
	script := `for last; do :; done
echo partial > "$last"
echo "pg_dump: error: connection refused" >&2
exit 1
`
	dir := t.TempDir()
	d := NewPgDumper(config.BackupConfig{PgDumpPath: fakePgDump(t, script), Directory: dir}, testDB(), nil)

	_, err := d.Dump(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial dump must be removed")
}

func TestPgDumper_Timeout(t *testing.T) {
	dir := t.TempDir()
	d := NewPgDumper(config.BackupConfig{
		PgDumpPath: fakePgDump(t, "exec sleep 5\n"),
		Directory:  dir,
		Timeout:    50 * time.Millisecond,
	}, testDB(), nil)

	_, err := d.Dump(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "aborted"), err.Error())
}

func TestPgDumper_MissingBinary(t *testing.T) {
	d := NewPgDumper(config.BackupConfig{
		PgDumpPath: filepath.Join(t.TempDir(), "does-not-exist"),
		Directory:  t.TempDir(),
	}, testDB(), nil)

	_, err := d.Dump(context.Background())
	assert.Error(t, err)
}
