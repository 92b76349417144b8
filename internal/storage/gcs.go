// Package storage implements core.ObjectStore on Firebase Storage (GCS) and S3-compatible buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

// downloadTokenKey is the object metadata key Firebase Storage reads download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// GCSStore stores objects in the Firebase default bucket.
type GCSStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
	logger     *zap.Logger
}

// NewGCSStore opens the default bucket configured on the Firebase app.
func NewGCSStore(ctx context.Context, app *firebase.App, bucketName string, logger *zap.Logger) (*GCSStore, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Storage: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketName, err)
	}
	return &GCSStore{bucket: bucket, bucketName: bucketName, logger: logger}, nil
}

// Upload writes the object with a fresh download token and returns its public URL.
func (s *GCSStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	token := uuid.NewString()
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s: %w", path, err)
	}
	return firebaseDownloadURL(s.bucketName, path, token), nil
}

// DeletePrefix lists every object under prefix and deletes them one by one.
func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})
	deleted := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("list %s: %w", prefix, err)
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			if errors.Is(err, gcs.ErrObjectNotExist) {
				continue
			}
			return deleted, fmt.Errorf("delete %s: %w", attrs.Name, err)
		}
		deleted++
	}
	s.logger.Debug("Deleted objects", zap.String("prefix", prefix), zap.Int("count", deleted))
	return deleted, nil
}

func firebaseDownloadURL(bucket, path, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(path), token)
}
