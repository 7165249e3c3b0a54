package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds S3-compatible connection configuration.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Validate reports missing required settings.
func (c *MinIOConfig) Validate() error {
	if c == nil || c.Endpoint == "" {
		return fmt.Errorf("minio config missing endpoint")
	}
	if c.Bucket == "" {
		return fmt.Errorf("minio config missing bucket")
	}
	return nil
}

// MinIOStore pins documents to an S3-compatible bucket, keyed by content hash.
type MinIOStore struct {
	client *minio.Client
	bucket string
	scheme string
}

// NewMinIOStore connects to the bucket, creating it if needed.
func NewMinIOStore(ctx context.Context, cfg *MinIOConfig, scheme string) (*MinIOStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStore{client: mc, bucket: cfg.Bucket, scheme: scheme}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// already-exists errors are fine
		exists, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exists {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Pin uploads the document under its content key.
func (s *MinIOStore) Pin(ctx context.Context, doc Document) (Pointer, error) {
	key := ContentKey(doc.Data)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(doc.Data), int64(len(doc.Data)),
		minio.PutObjectOptions{ContentType: doc.ContentType})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return NewPointer(s.scheme, key), nil
}

// Ping checks the bucket is reachable; used as a readiness check.
func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio bucket %q missing", s.bucket)
	}
	return nil
}

var (
	_ ContentStore = (*MinIOStore)(nil)
	_ ContentStore = (*MemoryStore)(nil)
)
