package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/scry-reader/internal/config"
)

// MinioStore keeps blobs in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore connects to the endpoint and creates the bucket if it does
// not exist.
func NewMinioStore(ctx context.Context, cfg config.BlobConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Put implements Store. A negative size streams the upload in parts.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	clean, err := validateKey(key)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: contentType(clean)}
	if _, err := s.client.PutObject(ctx, s.bucket, clean, r, size, opts); err != nil {
		return fmt.Errorf("failed to upload %s: %w", clean, err)
	}
	return nil
}

// Open implements Store. The object is stat'ed first so a missing key
// surfaces as ErrNotFound here rather than on the first read.
func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := validateKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, clean, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(clean, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioError(clean, err)
	}
	return obj, nil
}

// Delete implements Store.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	clean, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, clean, minio.RemoveObjectOptions{}); err != nil {
		return mapMinioError(clean, err)
	}
	return nil
}

func mapMinioError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("blob %s: %w", key, err)
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
