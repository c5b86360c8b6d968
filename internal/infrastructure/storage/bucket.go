// Package storage keeps database backups in an S3-compatible bucket.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ledgerbook/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "http://localhost:9000"
	defaultRegion   = "us-east-1"
	defaultPresign  = 15 * time.Minute
)

// Backup is one dump stored in the bucket
type Backup struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BackupBucket uploads dumps under a key prefix and prunes old ones.
// Any S3-compatible server works (AWS, MinIO).
type BackupBucket struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	retain  int
	ttl     time.Duration
	logger  *zap.Logger
}

// Option configures a BackupBucket
type Option func(*BackupBucket)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *BackupBucket) { b.logger = logger }
}

// WithPresignExpiration overrides how long download URLs stay valid
func WithPresignExpiration(d time.Duration) Option {
	return func(b *BackupBucket) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// NewBackupBucket builds a client from cfg. No request is made until the first call.
func NewBackupBucket(cfg *config.StorageConfig, opts ...Option) (*BackupBucket, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cmp.Or(cfg.Region, defaultRegion)),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
		// MinIO and friends reject streaming trailer checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	b := &BackupBucket{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		retain:  cfg.Retain,
		ttl:     cmp.Or(cfg.PresignExpiration, defaultPresign),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func checkConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return errors.New("storage configuration is required")
	}
	var errs []error
	for _, field := range []struct{ name, value string }{
		{"bucket", cfg.Bucket},
		{"access key", cfg.AccessKey},
		{"secret key", cfg.SecretKey},
	} {
		if field.value == "" {
			errs = append(errs, fmt.Errorf("storage %s is required", field.name))
		}
	}
	return errors.Join(errs...)
}

// normalizeEndpoint adds a scheme to a bare host:port
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	endpoint = cmp.Or(endpoint, defaultEndpoint)
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid storage endpoint scheme %q", u.Scheme)
	}
	return endpoint, nil
}

// Bucket returns the bucket name
func (b *BackupBucket) Bucket() string { return b.bucket }

func (b *BackupBucket) key(name string) string {
	return path.Join(b.prefix, name)
}

// EnsureBucket creates the bucket on first use
func (b *BackupBucket) EnsureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("head bucket %s: %w", b.bucket, err)
	}

	b.logger.Info("Creating backup bucket", zap.String("bucket", b.bucket))
	_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	return nil
}

// UploadFile stores the dump at localPath under its base name and returns the
// object key. When retention is configured, older backups are pruned after a
// successful upload; a failed prune is logged, not returned.
func (b *BackupBucket) UploadFile(ctx context.Context, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	key := b.key(filepath.Base(localPath))
	if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	b.logger.Info("Uploaded backup", zap.String("bucket", b.bucket), zap.String("key", key))

	if b.retain > 0 {
		if removed, err := b.Prune(ctx, b.retain); err != nil {
			b.logger.Warn("Failed to prune old backups", zap.Error(err))
		} else if len(removed) > 0 {
			b.logger.Info("Pruned old backups", zap.Strings("keys", removed))
		}
	}
	return key, nil
}

// GenerateDownloadURL presigns a GET for key. A non-positive expiresIn uses
// the configured expiration.
func (b *BackupBucket) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = b.ttl
	}
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// Backups lists the stored dumps, newest first. Dump names carry their
// timestamp, so the key breaks ties between equal modification times.
func (b *BackupBucket) Backups(ctx context.Context) ([]Backup, error) {
	var backups []Backup
	pages := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		for _, obj := range page.Contents {
			backups = append(backups, Backup{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	slices.SortFunc(backups, func(a, c Backup) int {
		if n := c.LastModified.Compare(a.LastModified); n != 0 {
			return n
		}
		return strings.Compare(c.Key, a.Key)
	})
	return backups, nil
}

// Prune deletes all but the keep newest backups and returns the removed keys
func (b *BackupBucket) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("prune must keep at least one backup, got %d", keep)
	}
	backups, err := b.Backups(ctx)
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, old := range backups[keep:] {
		if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(old.Key),
		}); err != nil {
			return removed, fmt.Errorf("delete %s: %w", old.Key, err)
		}
		removed = append(removed, old.Key)
	}
	return removed, nil
}
