// Package s3 stores posters in an S3-compatible bucket such as MinIO.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/shopexplore/internal/posterstore"
)

const keyPrefix = "posters/"

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type PosterStore struct {
	client *minio.Client
	bucket string
}

// NewPosterStore connects to the endpoint and creates the bucket if it is
// missing.
func NewPosterStore(ctx context.Context, opts Options) (*PosterStore, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("s3 poster store requires endpoint, access key, secret key and bucket")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", opts.Bucket, err)
		}
		slog.Info("created poster bucket", "bucket", opts.Bucket)
	}

	return &PosterStore{client: client, bucket: opts.Bucket}, nil
}

func (s *PosterStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := posterstore.NewKey(prefix, mimeType)
	if _, err := s.client.PutObject(ctx, s.bucket, objectName(key), r, -1,
		minio.PutObjectOptions{ContentType: mimeType}); err != nil {
		return "", fmt.Errorf("failed to upload poster: %w", err)
	}
	return key, nil
}

func (s *PosterStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	name, err := checkedObjectName(storageKey)
	if err != nil {
		return nil, "", err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get poster: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, "", posterstore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to stat poster: %w", err)
	}

	mimeType := info.ContentType
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = posterstore.MIMEForKey(storageKey)
	}
	return obj, mimeType, nil
}

func (s *PosterStore) Delete(ctx context.Context, storageKey string) error {
	name, err := checkedObjectName(storageKey)
	if err != nil {
		return err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return posterstore.ErrNotFound
		}
		return fmt.Errorf("failed to stat poster: %w", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete poster: %w", err)
	}
	return nil
}

func objectName(key string) string {
	return keyPrefix + key
}

// checkedObjectName rejects keys that could escape the poster prefix.
func checkedObjectName(key string) (string, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid poster key %q", key)
	}
	return objectName(key), nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
