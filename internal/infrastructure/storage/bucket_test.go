package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "ledger-backups"

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       testBucket,
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		UsePathStyle: true,
		Prefix:       "backups/",
	}
}

type storedObject struct {
	body     string
	modified time.Time
}

// fakeS3 answers the path-style requests BackupBucket makes
type fakeS3 struct {
	mu      sync.Mutex
	created bool
	objects map[string]storedObject
	clock   time.Time
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{
		objects: map[string]storedObject{},
		clock:   time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) seed(key string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = storedObject{body: key, modified: f.clock.Add(-age)}
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

func (f *fakeS3) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, isObject := strings.CutPrefix(r.URL.Path, "/"+testBucket+"/")
	isObject = isObject && key != ""

	switch {
	case !isObject && r.Method == http.MethodHead:
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case !isObject && r.Method == http.MethodPut:
		f.created = true
		w.WriteHeader(http.StatusOK)
	case !isObject && r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		f.list(w)
	case isObject && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.clock = f.clock.Add(time.Minute)
		f.objects[key] = storedObject{body: string(body), modified: f.clock}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case isObject && r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) list(w http.ResponseWriter) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	b.WriteString(`<Name>` + testBucket + `</Name><IsTruncated>false</IsTruncated>`)
	for k, obj := range f.objects {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified></Contents>",
			k, len(obj.body), obj.modified.Format("2006-01-02T15:04:05.000Z"))
	}
	b.WriteString(`</ListBucketResult>`)
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

func writeDump(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestNewBackupBucket_Validation(t *testing.T) {
	_, err := NewBackupBucket(nil)
	require.EqualError(t, err, "storage configuration is required")

	_, err = NewBackupBucket(&config.StorageConfig{})
	require.Error(t, err)
	for _, missing := range []string{"bucket", "access key", "secret key"} {
		assert.Contains(t, err.Error(), "storage "+missing+" is required")
	}

	_, err = NewBackupBucket(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
	require.EqualError(t, err, "storage secret key is required")

	b, err := NewBackupBucket(testStorageConfig("http://localhost:9000"), WithPresignExpiration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, testBucket, b.Bucket())
	assert.Equal(t, time.Hour, b.ttl)
	assert.Equal(t, "backups/db.sql", b.key("db.sql"))

	b, err = NewBackupBucket(testStorageConfig(""), WithPresignExpiration(0))
	require.NoError(t, err)
	assert.Equal(t, defaultPresign, b.ttl, "non-positive override keeps the default")
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
		wantErr  bool
	}{
		{endpoint: "", want: defaultEndpoint},
		{endpoint: "minio:9000", useSSL: true, want: "https://minio:9000"},
		{endpoint: "minio:9000", want: "http://minio:9000"},
		{endpoint: "https://s3.amazonaws.com", want: "https://s3.amazonaws.com"},
		{endpoint: "ftp://files:21", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got)
	}
}

func TestBackupBucket_UploadAndList(t *testing.T) {
	fake, srv := newFakeS3(t)
	b, err := NewBackupBucket(testStorageConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.EnsureBucket(ctx))
	assert.True(t, fake.created)
	require.NoError(t, b.EnsureBucket(ctx), "existing bucket is left alone")

	key, err := b.UploadFile(ctx, writeDump(t, "ledgerbook_20240105_100000.sql", "-- dump"), "application/sql")
	require.NoError(t, err)
	assert.Equal(t, "backups/ledgerbook_20240105_100000.sql", key)
	assert.Equal(t, "-- dump", fake.objects[key].body)

	_, err = b.UploadFile(ctx, writeDump(t, "ledgerbook_20240106_100000.sql", "-- newer dump"), "application/sql")
	require.NoError(t, err)

	backups, err := b.Backups(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backups/ledgerbook_20240106_100000.sql", backups[0].Key, "newest first")
	assert.Equal(t, int64(len("-- newer dump")), backups[0].Size)
	assert.Equal(t, key, backups[1].Key)
}

func TestBackupBucket_Prune(t *testing.T) {
	fake, srv := newFakeS3(t)
	b, err := NewBackupBucket(testStorageConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	fake.seed("backups/a.sql", 4*time.Hour)
	fake.seed("backups/b.sql", 3*time.Hour)
	fake.seed("backups/c.sql", 2*time.Hour)
	fake.seed("backups/d.sql", time.Hour)

	_, err = b.Prune(ctx, 0)
	require.Error(t, err)

	removed, err := b.Prune(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, removed)

	removed, err = b.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"backups/b.sql", "backups/a.sql"}, removed)
	assert.ElementsMatch(t, []string{"backups/c.sql", "backups/d.sql"}, fake.keys())
}

func TestBackupBucket_UploadAppliesRetention(t *testing.T) {
	fake, srv := newFakeS3(t)
	cfg := testStorageConfig(srv.URL)
	cfg.Retain = 1
	b, err := NewBackupBucket(cfg)
	require.NoError(t, err)

	fake.seed("backups/old.sql", time.Hour)
	key, err := b.UploadFile(context.Background(), writeDump(t, "new.sql", "-- dump"), "application/sql")
	require.NoError(t, err)

	assert.Equal(t, []string{key}, fake.keys())
}

func TestBackupBucket_GenerateDownloadURL(t *testing.T) {
	b, err := NewBackupBucket(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	_, _, err = b.GenerateDownloadURL(context.Background(), "", 0)
	require.Error(t, err)

	url, expiresAt, err := b.GenerateDownloadURL(context.Background(), "backups/db.sql", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost:9000/ledger-backups/backups/db.sql")
	assert.Contains(t, url, "X-Amz-Signature")
	assert.WithinDuration(t, time.Now().Add(defaultPresign), expiresAt, time.Minute)
}

func TestBackupBucket_UploadMissingFile(t *testing.T) {
	b, err := NewBackupBucket(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	_, err = b.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.sql"), "application/sql")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
