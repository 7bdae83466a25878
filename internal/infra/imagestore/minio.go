package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/rihla/internal/domain/generation"
)

// MinioOptions describes an S3-compatible bucket (MinIO, R2, S3).
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// MinioStore archives heritage uploads in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
	ready  bucketGuard
}

// bucketGuard runs a setup step until it first succeeds. Failures are not
// remembered so a later call retries.
type bucketGuard struct {
	mu   sync.Mutex
	done bool
}

func (g *bucketGuard) ensure(ctx context.Context, setup func(context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	if err := setup(ctx); err != nil {
		return err
	}
	g.done = true
	return nil
}

// NewMinioStore constructs the storage adapter.
func NewMinioStore(opts MinioOptions, logger *slog.Logger) (*MinioStore, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("image archive bucket cannot be empty")
	}
	useSSL := strings.HasPrefix(strings.ToLower(strings.TrimSpace(opts.Endpoint)), "https")
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, logger: logger.With("component", "imagestore.minio")}, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	return s.ready.ensure(ctx, s.createBucket)
}

func (s *MinioStore) createBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("image archive bucket created", "bucket", s.bucket)
	return nil
}

// Put implements generation.ImageArchive and returns an s3:// location.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5<<20,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

var _ generation.ImageArchive = (*MinioStore)(nil)
