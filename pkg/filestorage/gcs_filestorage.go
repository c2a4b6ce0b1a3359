package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

type GCSFileStorage struct {
	client *storage.Client
	bucket string
}

// NewGCSFileStorage uses application default credentials.
func NewGCSFileStorage(ctx context.Context, bucket string) (FileStorageInterface, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is not configured")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSFileStorage{client: client, bucket: bucket}, nil
}

func (s *GCSFileStorage) Save(ctx context.Context, file io.Reader, originalFileName string, prefix string) (string, error) {
	name := objectName(originalFileName, prefix)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", name, err)
	}
	return name, nil
}

func (s *GCSFileStorage) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	return s.client.Bucket(s.bucket).Object(strings.TrimPrefix(filePath, "/")).NewReader(ctx)
}

func (s *GCSFileStorage) Delete(ctx context.Context, filePath string) error {
	err := s.client.Bucket(s.bucket).Object(strings.TrimPrefix(filePath, "/")).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// New picks the backend from STORAGE_DRIVER.
func New(ctx context.Context, driver, localPath, bucket string) (FileStorageInterface, error) {
	switch driver {
	case "", "local":
		return NewLocalFileStorage(localPath)
	case "gcs":
		return NewGCSFileStorage(ctx, bucket)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
